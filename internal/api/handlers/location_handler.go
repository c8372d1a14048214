package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/postdeck/calendar-engine/internal/service"
)

type LocationHandler struct {
	s service.LocationService
}

func NewLocationHandler(service service.LocationService) *LocationHandler {
	return &LocationHandler{s: service}
}

func (h *LocationHandler) Search(c *fiber.Ctx) error {
	query := c.Query("q")
	integrationID := int64(c.QueryInt("integration_id", 0))
	workspaceID := int64(c.QueryInt("workspace_id", 0))

	locations, err := h.s.Search(c.Context(), query, integrationID, workspaceID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to search locations",
		})
	}

	return c.Status(fiber.StatusOK).JSON(locations)
}
