package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-router/internal/api/dto"
	"github.com/spec-kit/support-router/internal/auth"
	"github.com/spec-kit/support-router/internal/i18n"
	"github.com/spec-kit/support-router/internal/service"
	apperrors "github.com/spec-kit/support-router/pkg/util"
)

// StaffHandler exposes agent actions on tickets.
type StaffHandler struct {
	claims  *service.ClaimService
	tickets *service.TicketService
}

// NewStaffHandler constructs handler.
func NewStaffHandler(claims *service.ClaimService, tickets *service.TicketService) *StaffHandler {
	return &StaffHandler{claims: claims, tickets: tickets}
}

// Claim POST /api/tickets/:id/claim.
func (h *StaffHandler) Claim(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticketID, err := parseTicketID(c)
	if err != nil {
		return err
	}

	result, err := h.claims.AttemptClaim(c.UserContext(), ticketID, principal.User)
	if err != nil {
		return err
	}

	switch result {
	case service.ClaimNotFound:
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	case service.ClaimLost:
		return c.JSON(fiber.Map{"data": dto.ClaimResponse{
			TicketID: ticketID,
			Result:   result.String(),
			Message:  i18n.T(principal.User.Language, "already_claimed"),
		}})
	default:
		return c.JSON(fiber.Map{"data": dto.ClaimResponse{
			TicketID: ticketID,
			Result:   result.String(),
		}})
	}
}

// Reply POST /api/tickets/:id/reply.
func (h *StaffHandler) Reply(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticketID, err := parseTicketID(c)
	if err != nil {
		return err
	}
	var req dto.ReplyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	if err := h.tickets.Reply(c.UserContext(), ticketID, principal.User, req.Text); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"message": i18n.T(principal.User.Language, "reply_sent"),
	}})
}

// Close POST /api/tickets/:id/close.
func (h *StaffHandler) Close(c *fiber.Ctx) error {
	ticketID, err := parseTicketID(c)
	if err != nil {
		return err
	}
	if err := h.tickets.Close(c.UserContext(), ticketID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"ticket_id": ticketID, "status": "CLOSED"}})
}

func parseTicketID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid ticket id", nil)
	}
	return id, nil
}
