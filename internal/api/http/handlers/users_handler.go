package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-router/internal/api/dto"
	"github.com/spec-kit/support-router/internal/auth"
	"github.com/spec-kit/support-router/internal/service"
	apperrors "github.com/spec-kit/support-router/pkg/util"
)

// UsersHandler exposes end-user actions: rating closed tickets and language
// preference.
type UsersHandler struct {
	tickets   *service.TicketService
	directory *service.DirectoryService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(tickets *service.TicketService, directory *service.DirectoryService) *UsersHandler {
	return &UsersHandler{tickets: tickets, directory: directory}
}

// Rate POST /api/tickets/:id/rating.
func (h *UsersHandler) Rate(c *fiber.Ctx) error {
	ticketID, err := parseTicketID(c)
	if err != nil {
		return err
	}
	var req dto.RateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	if err := h.tickets.Rate(c.UserContext(), ticketID, req.Score, req.Feedback); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": fiber.Map{
		"ticket_id": ticketID,
		"score":     req.Score,
	}})
}

// SetLanguage PUT /api/me/language.
func (h *UsersHandler) SetLanguage(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.LanguageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	if err := h.directory.SetLanguage(c.UserContext(), principal.User.ExternalID, principal.User.DisplayName, req.Language); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"language": req.Language}})
}
