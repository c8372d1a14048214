package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/postdeck/calendar-engine/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDraftTestApp() (*fiber.App, service.DraftService) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", "42")
		return c.Next()
	})

	cache := service.NewCalendarService(nil, time.Minute, time.Hour)
	drafts := service.NewDraftService(cache, nil, nil)
	media := service.NewMediaSelectionService()
	threads := service.NewThreadService(media)

	h := NewDraftHandler(drafts, media, threads, nil, nil)
	app.Post("/draft/caption", h.SetCaption)
	app.Post("/draft/schedule", h.SetSchedule)
	app.Post("/draft/media/toggle", h.ToggleMedia)
	app.Post("/draft/thread/add", h.AddThreadSegment)
	app.Post("/draft/save", h.Save)

	return app, drafts
}

func postJSON(t *testing.T, app *fiber.App, path, body string) int {
	t.Helper()

	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestDraftEditsWithoutSessionReturnNotFound(t *testing.T) {
	app, _ := newDraftTestApp()

	// No compose session is open: every edit endpoint must answer 404
	// instead of touching a missing store.
	assert.Equal(t, fiber.StatusNotFound, postJSON(t, app, "/draft/caption", `{"caption":"hi"}`))
	assert.Equal(t, fiber.StatusNotFound, postJSON(t, app, "/draft/schedule", `{"is_scheduling":false}`))
	assert.Equal(t, fiber.StatusNotFound, postJSON(t, app, "/draft/media/toggle", `{"platform":"x","uid":"m-1"}`))
	assert.Equal(t, fiber.StatusNotFound, postJSON(t, app, "/draft/thread/add", `{"platform":"x"}`))
	assert.Equal(t, fiber.StatusNotFound, postJSON(t, app, "/draft/save", `{}`))
}

func TestDraftCaptionWithOpenSession(t *testing.T) {
	app, drafts := newDraftTestApp()
	drafts.OpenForNew(42, 1, time.Time{})

	assert.Equal(t, fiber.StatusOK, postJSON(t, app, "/draft/caption", `{"caption":"hi"}`))

	view, err := drafts.View(42)
	require.NoError(t, err)
	assert.Equal(t, "hi", view.Draft.Caption)
}
