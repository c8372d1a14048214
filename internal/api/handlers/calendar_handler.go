package handlers

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/postdeck/calendar-engine/internal/models"
	"github.com/postdeck/calendar-engine/internal/service"
	"github.com/postdeck/calendar-engine/internal/transfer"
)

type CalendarHandler struct {
	calendar   service.CalendarService
	reschedule service.RescheduleService
}

func NewCalendarHandler(calendar service.CalendarService, reschedule service.RescheduleService) *CalendarHandler {
	return &CalendarHandler{calendar: calendar, reschedule: reschedule}
}

func (h *CalendarHandler) GetRange(c *fiber.Ctx) error {
	workspaceID := int64(c.QueryInt("workspace_id", 0))
	view := c.Query("view", "month")
	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid start",
		})
	}
	end, err := time.Parse(time.RFC3339, c.Query("end"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid end",
		})
	}

	result, err := h.calendar.Range(c.Context(), workspaceID, view, start, end)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Unable to load calendar range",
		})
	}

	filters := models.CalendarFilters{
		Statuses: splitParam(c.Query("statuses")),
		Channels: splitParam(c.Query("channels")),
		Labels:   splitParam(c.Query("labels")),
	}
	result.Posts = service.ApplyFilters(result.Posts, filters)

	// Locked cards render as non-interactive in the calendar.
	locked := make([]int64, 0)
	for _, p := range result.Posts {
		if h.calendar.IsLocked(p.ID) {
			locked = append(locked, p.ID)
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"posts":      result.Posts,
		"fetched_at": result.FetchedAt,
		"refreshing": result.Refreshing,
		"last_error": result.LastErr,
		"locked_ids": locked,
	})
}

func splitParam(v string) []string {
	if v == "" {
		return nil
	}
	return strings.Split(v, ",")
}

func (h *CalendarHandler) DropOnDay(c *fiber.Ctx) error {
	var req transfer.DropRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request",
		})
	}

	day, err := time.Parse("2006-01-02", req.Day)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid day",
		})
	}

	result, err := h.reschedule.DropOnDay(c.Context(), req.WorkspaceID, req.PostID, day)
	if err != nil {
		return dropError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *CalendarHandler) ConfirmDrop(c *fiber.Ctx) error {
	var req transfer.ConfirmDropRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request",
		})
	}

	result, err := h.reschedule.ConfirmDrop(c.Context(), req.PostID)
	if err != nil {
		return dropError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *CalendarHandler) CancelDrop(c *fiber.Ctx) error {
	var req transfer.ConfirmDropRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request",
		})
	}

	if err := h.reschedule.CancelDrop(req.PostID); err != nil {
		return dropError(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *CalendarHandler) RemovePost(c *fiber.Ctx) error {
	var req transfer.RemovePostRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request",
		})
	}

	if err := h.reschedule.Remove(c.Context(), req.WorkspaceID, req.PostID); err != nil {
		if errors.Is(err, service.ErrPostLocked) {
			return dropError(c, err)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to remove post",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

func dropError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrPostNotFound), errors.Is(err, service.ErrNothingPending):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrPostLocked), errors.Is(err, service.ErrPostSent):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "The move could not be saved and was undone"})
	}
}
