package handlers

import (
	"crypto/subtle"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-router/internal/api/dto"
	"github.com/spec-kit/support-router/internal/auth"
	"github.com/spec-kit/support-router/internal/service"
	apperrors "github.com/spec-kit/support-router/pkg/util"
)

const gatewaySecretHeader = "X-Gateway-Secret"

// GatewayHandler receives inbound traffic from the chat gateway: user
// messages that become tickets, and token requests for identities the
// gateway has already authenticated.
type GatewayHandler struct {
	tickets *service.TicketService
	tokens  *auth.TokenManager
	secret  string
}

// NewGatewayHandler constructs handler.
func NewGatewayHandler(tickets *service.TicketService, tokens *auth.TokenManager, secret string) *GatewayHandler {
	return &GatewayHandler{tickets: tickets, tokens: tokens, secret: secret}
}

// VerifySecret guards gateway routes with the shared webhook secret.
func (h *GatewayHandler) VerifySecret(c *fiber.Ctx) error {
	provided := c.Get(gatewaySecretHeader)
	if h.secret == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(h.secret)) != 1 {
		return apperrors.NewUnauthorized("invalid gateway secret")
	}
	return c.Next()
}

// Inbound POST /gateway/messages.
func (h *GatewayHandler) Inbound(c *fiber.Ctx) error {
	var req dto.InboundMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ExternalID == 0 {
		return apperrors.NewValidationError("external_id required", nil)
	}

	ticket, err := h.tickets.Submit(c.UserContext(), service.SubmitInput{
		ExternalID:  req.ExternalID,
		DisplayName: req.DisplayName,
		Text:        req.Text,
		HasPhoto:    req.Photo,
		DocumentID:  req.DocumentID,
	})
	if err != nil {
		if errors.Is(err, service.ErrStaffSubmitter) {
			// Staff chatter is not a support request.
			return c.SendStatus(fiber.StatusNoContent)
		}
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"data": fiber.Map{"ticket_id": ticket.ID}})
}

// IssueToken POST /gateway/token.
func (h *GatewayHandler) IssueToken(c *fiber.Ctx) error {
	var req dto.TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ExternalID == 0 {
		return apperrors.NewValidationError("external_id required", nil)
	}
	token, expiresAt, err := h.tokens.GenerateToken(req.ExternalID)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.JSON(fiber.Map{"data": dto.TokenResponse{Token: token, ExpiresAt: expiresAt}})
}
