package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-router/internal/api/dto"
	"github.com/spec-kit/support-router/internal/domain"
	"github.com/spec-kit/support-router/internal/service"
	apperrors "github.com/spec-kit/support-router/pkg/util"
)

// AdminHandler exposes the owner-only surface: roster management, reporting
// and ticket lookup.
type AdminHandler struct {
	directory *service.DirectoryService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(directory *service.DirectoryService) *AdminHandler {
	return &AdminHandler{directory: directory}
}

// AssignAgents POST /api/admin/agents.
func (h *AdminHandler) AssignAgents(c *fiber.Ctx) error {
	var req dto.AgentsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	assigned, err := h.directory.AssignAgents(c.UserContext(), req.ExternalIDs)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"assigned": assigned}})
}

// UnassignAgents DELETE /api/admin/agents.
func (h *AdminHandler) UnassignAgents(c *fiber.Ctx) error {
	var req dto.AgentsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	removed, err := h.directory.UnassignAgents(c.UserContext(), req.ExternalIDs)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"removed": removed}})
}

// Roster GET /api/admin/agents.
func (h *AdminHandler) Roster(c *fiber.Ctx) error {
	ids, err := h.directory.Roster(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"agents": ids}})
}

// Stats GET /api/admin/stats.
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.directory.Stats(c.UserContext())
	if err != nil {
		return err
	}
	rows := make([]dto.AgentStatRow, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, dto.AgentStatRow{
			AgentExternalID: s.AgentExternalID,
			DisplayName:     s.DisplayName,
			Claimed:         s.Claimed,
		})
	}
	return c.JSON(fiber.Map{"data": rows})
}

// Unresolved GET /api/admin/tickets/unresolved.
func (h *AdminHandler) Unresolved(c *fiber.Ctx) error {
	tickets, err := h.directory.Unresolved(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summarize(tickets)})
}

// Search GET /api/admin/tickets/search?q=term.
func (h *AdminHandler) Search(c *fiber.Ctx) error {
	term := strings.TrimSpace(c.Query("q"))
	tickets, err := h.directory.Search(c.UserContext(), term)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summarize(tickets)})
}

// Dashboard GET /api/admin/dashboard.
func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	stats, err := h.directory.Dashboard(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.DashboardResponse{
		Claimed: stats.Claimed,
		Total:   stats.Total,
	}})
}

func summarize(tickets []domain.Ticket) []dto.TicketSummary {
	out := make([]dto.TicketSummary, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, dto.TicketSummary{
			ID:             t.ID,
			Status:         t.Status,
			ClaimedBy:      t.ClaimedBy,
			ContentPreview: contentPreview(t.Content),
			CreatedAt:      t.CreatedAt,
			UpdatedAt:      t.UpdatedAt,
		})
	}
	return out
}

func contentPreview(body string) string {
	const max = 120
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	return body[:max-3] + "..."
}
