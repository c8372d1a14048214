package handlers

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/postdeck/calendar-engine/internal/queue"
	"github.com/postdeck/calendar-engine/internal/service"
	"github.com/postdeck/calendar-engine/internal/transfer"

	"github.com/hibiken/asynq"
)

type DraftHandler struct {
	drafts      service.DraftService
	media       service.MediaSelectionService
	threads     service.ThreadService
	posts       service.PostService
	AsynqClient *asynq.Client
}

func NewDraftHandler(
	drafts service.DraftService,
	media service.MediaSelectionService,
	threads service.ThreadService,
	posts service.PostService,
	asynqClient *asynq.Client) *DraftHandler {
	return &DraftHandler{
		drafts:      drafts,
		media:       media,
		threads:     threads,
		posts:       posts,
		AsynqClient: asynqClient,
	}
}

func (h *DraftHandler) Open(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var req transfer.OpenDraftRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request",
		})
	}

	view, err := h.drafts.OpenForEdit(c.Context(), userID, req.WorkspaceID, req.PostID)
	if err != nil {
		if errors.Is(err, service.ErrPostLocked) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to open post",
		})
	}

	return c.Status(fiber.StatusOK).JSON(view)
}

func (h *DraftHandler) New(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var req transfer.NewDraftRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request",
		})
	}

	var date time.Time
	if req.Date != "" {
		var err error
		date, err = time.Parse("2006-01-02", req.Date)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid date",
			})
		}
	}

	view := h.drafts.OpenForNew(userID, req.WorkspaceID, date)
	return c.Status(fiber.StatusOK).JSON(view)
}

func (h *DraftHandler) Reuse(c *fiber.Ctx) error {
	userID := GetUserID(c)

	view, err := h.drafts.ReuseAsDraft(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(view)
}

func (h *DraftHandler) Close(c *fiber.Ctx) error {
	h.drafts.Close(GetUserID(c))
	return c.SendStatus(fiber.StatusOK)
}

func (h *DraftHandler) Get(c *fiber.Ctx) error {
	view, err := h.drafts.View(GetUserID(c))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.Status(fiber.StatusOK).JSON(view)
}

func (h *DraftHandler) SetCaption(c *fiber.Ctx) error {
	store, err := h.drafts.Store(GetUserID(c))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No compose session",
		})
	}

	var req transfer.CaptionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request",
		})
	}

	if req.Platform == "" {
		store.SetCaption(req.Caption)
	} else {
		store.SetPlatformCaption(req.Platform, req.Caption)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *DraftHandler) SetSchedule(c *fiber.Ctx) error {
	store, err := h.drafts.Store(GetUserID(c))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No compose session",
		})
	}

	var req transfer.ScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request",
		})
	}

	var at time.Time
	if req.ScheduledAt != "" {
		at, err = time.Parse(time.RFC3339, req.ScheduledAt)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid scheduled_at",
			})
		}
	}

	store.SetSchedule(at, req.IsScheduling)
	return c.SendStatus(fiber.StatusOK)
}

func (h *DraftHandler) ToggleMedia(c *fiber.Ctx) error {
	store, err := h.drafts.Store(GetUserID(c))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No compose session",
		})
	}

	var req transfer.ToggleMediaRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request",
		})
	}

	if req.ThreadIndex != nil {
		err = h.threads.ToggleSegmentMedia(store, req.Platform, *req.ThreadIndex, req.UID)
	} else {
		err = h.media.Toggle(store, req.Platform, req.UID)
	}
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *DraftHandler) AddThreadSegment(c *fiber.Ctx) error {
	store, err := h.drafts.Store(GetUserID(c))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No compose session",
		})
	}

	var req transfer.ThreadSegmentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request",
		})
	}

	if err := h.threads.AddSegment(store, req.Platform); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *DraftHandler) RemoveThreadSegment(c *fiber.Ctx) error {
	store, err := h.drafts.Store(GetUserID(c))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No compose session",
		})
	}

	var req transfer.ThreadSegmentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request",
		})
	}

	if err := h.threads.RemoveSegment(store, req.Platform, req.Index); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *DraftHandler) UpdateThreadSegment(c *fiber.Ctx) error {
	store, err := h.drafts.Store(GetUserID(c))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No compose session",
		})
	}

	var req transfer.ThreadSegmentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request",
		})
	}

	if err := h.threads.UpdateSegmentText(store, req.Platform, req.Index, req.Text); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *DraftHandler) Save(c *fiber.Ctx) error {
	userID := GetUserID(c)

	store, err := h.drafts.Store(GetUserID(c))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No compose session",
		})
	}
	draft := store.Snapshot()

	postID, delay, scheduled, err := h.posts.SaveDraft(c.Context(), draft.WorkspaceID, draft)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if scheduled {
		err = queue.EnqueuePost(h.AsynqClient, queue.PublishPostPayload{PostID: postID, WorkspaceID: draft.WorkspaceID}, delay)
		if err != nil {
			return c.Status(fiber.StatusOK).JSON(fiber.Map{
				"error": "Error scheduling post",
			})
		}
	}

	// A successful save discards the compose session.
	h.drafts.Close(userID)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Post saved successfully",
		"post_id": postID,
	})
}
