package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/postdeck/calendar-engine/internal/service"
)

type AccountHandler struct {
	s service.AccountService
}

func NewAccountHandler(service service.AccountService) *AccountHandler {
	return &AccountHandler{s: service}
}

func (h *AccountHandler) ListAccounts(c *fiber.Ctx) error {
	workspaceID := int64(c.QueryInt("workspace_id", 0))

	accounts, err := h.s.List(c.Context(), workspaceID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list social accounts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(accounts)
}
