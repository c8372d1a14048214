package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/postdeck/calendar-engine/configs"
	"github.com/postdeck/calendar-engine/internal/api/handlers"
	"github.com/postdeck/calendar-engine/internal/api/middleware"
	job "github.com/postdeck/calendar-engine/internal/jobs"
	"github.com/postdeck/calendar-engine/internal/queue"
	"github.com/postdeck/calendar-engine/internal/repository"
	"github.com/postdeck/calendar-engine/internal/service"
	"github.com/robfig/cron"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	postRepo := repository.NewPostRepository(db)
	postMediaRepo := repository.NewPostMediaRepository(db)
	socialAccountRepo := repository.NewSocialAccountRepository(db)
	mediaAssetRepo := repository.NewMediaAssetRepository(db)
	locationRepo := repository.NewLocationRepository(db)
	historyRepo := repository.NewPostingHistoryRepository(db)

	calendarService := service.NewCalendarService(
		postRepo,
		time.Duration(cfg.CacheStaleSeconds)*time.Second,
		time.Duration(cfg.CacheIdleMinutes)*time.Minute,
	)
	accountService := service.NewAccountService(socialAccountRepo)
	rescheduleService := service.NewRescheduleService(calendarService, postRepo, postRepo, &queue.Enqueuer{Client: client})
	draftService := service.NewDraftService(calendarService, postRepo, accountService)
	mediaService := service.NewMediaSelectionService()
	threadService := service.NewThreadService(mediaService)
	r2Service := service.NewR2Service(*cfg)
	uploadService := service.NewUploadService(mediaAssetRepo, *r2Service)
	postService := service.NewPostService(db, postRepo, postMediaRepo, socialAccountRepo, calendarService)
	locationService := service.NewLocationService(locationRepo)

	authMiddleware := middleware.NewAuthMiddleware(*cfg)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	calendar := handlers.NewCalendarHandler(calendarService, rescheduleService)
	api.Get("/calendar", calendar.GetRange)
	api.Post("/calendar/drop", calendar.DropOnDay)
	api.Post("/calendar/drop/confirm", calendar.ConfirmDrop)
	api.Post("/calendar/drop/cancel", calendar.CancelDrop)
	api.Post("/calendar/remove", calendar.RemovePost)

	draft := handlers.NewDraftHandler(draftService, mediaService, threadService, postService, client)
	api.Post("/draft/open", draft.Open)
	api.Post("/draft/new", draft.New)
	api.Post("/draft/reuse", draft.Reuse)
	api.Post("/draft/close", draft.Close)
	api.Get("/draft", draft.Get)
	api.Post("/draft/caption", draft.SetCaption)
	api.Post("/draft/schedule", draft.SetSchedule)
	api.Post("/draft/media/toggle", draft.ToggleMedia)
	api.Post("/draft/thread/add", draft.AddThreadSegment)
	api.Post("/draft/thread/remove", draft.RemoveThreadSegment)
	api.Post("/draft/thread/update", draft.UpdateThreadSegment)
	api.Post("/draft/save", draft.Save)

	media := handlers.NewMediaHandler(uploadService, draftService)
	api.Post("/media/stage", media.Stage)

	account := handlers.NewAccountHandler(accountService)
	api.Get("/accounts", account.ListAccounts)

	location := handlers.NewLocationHandler(locationService)
	api.Get("/locations/search", location.Search)

	// cron jobs
	refreshTokenJob := job.NewTokenRefreshJob(*cfg, socialAccountRepo)
	cacheSweepJob := job.NewCacheSweepJob(calendarService)

	//queue
	queueW := queue.NewQueue(postRepo, socialAccountRepo, historyRepo, calendarService)

	c := cron.New()
	c.AddFunc("@every 00h10m00s", refreshTokenJob.RefreshTokens)
	c.AddFunc("@every 00h01m00s", cacheSweepJob.Sweep)
	c.Start()

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 10,
		})

		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypePublishPost, queueW.HandlePublishPostTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":3000"); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Println("Server is running on http://localhost:3000")

	gracefulShutdown(app, db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
