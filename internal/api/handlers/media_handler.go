package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/postdeck/calendar-engine/internal/service"
)

type MediaHandler struct {
	uploads service.UploadService
	drafts  service.DraftService
}

func NewMediaHandler(uploads service.UploadService, drafts service.DraftService) *MediaHandler {
	return &MediaHandler{uploads: uploads, drafts: drafts}
}

// Stage uploads one file and adds it to the compose session's shared
// media pool.
func (h *MediaHandler) Stage(c *fiber.Ctx) error {
	userID := GetUserID(c)

	store, err := h.drafts.Store(userID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No compose session",
		})
	}

	workspaceID := int64(c.QueryInt("workspace_id", 0))

	file, err := c.FormFile("file")
	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No file selected",
		})
	}

	item, err := h.uploads.Stage(c.Context(), workspaceID, file)
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	store.AddStagedMedia(*item)

	return c.Status(fiber.StatusOK).JSON(item)
}
