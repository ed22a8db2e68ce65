package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/support-router/internal/domain"
	"github.com/spec-kit/support-router/internal/repository"
	apperrors "github.com/spec-kit/support-router/pkg/util"
)

// AgentStat is one row of the per-agent claim count report.
type AgentStat struct {
	AgentExternalID int64
	DisplayName     string
	Claimed         int64
}

// DashboardStats summarizes ticket volume for the owner dashboard.
type DashboardStats struct {
	Claimed int64
	Total   int64
}

// DirectoryService covers the administrative surface: agent roster
// management, reporting and user preferences.
type DirectoryService struct {
	users   repository.UserRepository
	tickets repository.TicketRepository
	logger  *zap.Logger
}

// DirectoryDependencies bundles collaborators for the directory service.
type DirectoryDependencies struct {
	UserRepo   repository.UserRepository
	TicketRepo repository.TicketRepository
	Logger     *zap.Logger
}

// NewDirectoryService constructs the service.
func NewDirectoryService(deps DirectoryDependencies) *DirectoryService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectoryService{
		users:   deps.UserRepo,
		tickets: deps.TicketRepo,
		logger:  logger,
	}
}

// AssignAgents grants the agent role to each identity, creating unknown ones.
// Returns the identities actually assigned.
func (s *DirectoryService) AssignAgents(ctx context.Context, externalIDs []int64) ([]int64, error) {
	if len(externalIDs) == 0 {
		return nil, apperrors.NewValidationError("no identities provided", nil)
	}
	assigned := make([]int64, 0, len(externalIDs))
	for _, id := range externalIDs {
		if _, err := s.users.EnsureWithRole(ctx, id, "", domain.RoleAgent); err != nil {
			s.logger.Warn("assign failed", zap.Int64("external_id", id), zap.Error(err))
			continue
		}
		assigned = append(assigned, id)
	}
	if len(assigned) == 0 {
		return nil, apperrors.NewStoreUnavailable(errors.New("no assignment applied"))
	}
	return assigned, nil
}

// UnassignAgents demotes each identity back to plain, skipping identities
// that are not agents. Returns the identities actually removed.
func (s *DirectoryService) UnassignAgents(ctx context.Context, externalIDs []int64) ([]int64, error) {
	if len(externalIDs) == 0 {
		return nil, apperrors.NewValidationError("no identities provided", nil)
	}
	removed := make([]int64, 0, len(externalIDs))
	for _, id := range externalIDs {
		user, err := s.users.GetByExternalID(ctx, id)
		if err != nil || user.Role != domain.RoleAgent {
			continue
		}
		if ok, err := s.users.UpdateRole(ctx, id, domain.RolePlain); err == nil && ok {
			removed = append(removed, id)
		}
	}
	return removed, nil
}

// Stats reports how many tickets each agent has claimed.
func (s *DirectoryService) Stats(ctx context.Context) ([]AgentStat, error) {
	agents, err := s.users.ListByRole(ctx, domain.RoleAgent)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	stats := make([]AgentStat, 0, len(agents))
	for _, agent := range agents {
		count, err := s.tickets.CountByClaimer(ctx, agent.ExternalID)
		if err != nil {
			return nil, apperrors.NewStoreUnavailable(err)
		}
		stats = append(stats, AgentStat{
			AgentExternalID: agent.ExternalID,
			DisplayName:     agent.DisplayName,
			Claimed:         count,
		})
	}
	return stats, nil
}

// Roster lists current agent identities.
func (s *DirectoryService) Roster(ctx context.Context) ([]int64, error) {
	agents, err := s.users.ListByRole(ctx, domain.RoleAgent)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	ids := make([]int64, 0, len(agents))
	for _, agent := range agents {
		ids = append(ids, agent.ExternalID)
	}
	return ids, nil
}

// Unresolved lists tickets still needing attention: unclaimed, claimed and
// escalated alike.
func (s *DirectoryService) Unresolved(ctx context.Context) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListByStatuses(ctx, domain.OpenStatuses())
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	return tickets, nil
}

// Search finds tickets whose content matches the term.
func (s *DirectoryService) Search(ctx context.Context, term string) ([]domain.Ticket, error) {
	if strings.TrimSpace(term) == "" {
		return nil, apperrors.NewValidationError("search term required", nil)
	}
	tickets, err := s.tickets.SearchContent(ctx, term, 50)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	return tickets, nil
}

// Dashboard returns claimed/total ticket counts.
func (s *DirectoryService) Dashboard(ctx context.Context) (DashboardStats, error) {
	claimed, err := s.tickets.CountByStatus(ctx, domain.TicketStatusClaimed)
	if err != nil {
		return DashboardStats{}, apperrors.NewStoreUnavailable(err)
	}
	total, err := s.tickets.CountAll(ctx)
	if err != nil {
		return DashboardStats{}, apperrors.NewStoreUnavailable(err)
	}
	return DashboardStats{Claimed: claimed, Total: total}, nil
}

// SetLanguage stores the language preference for an identity, creating the
// user on first contact.
func (s *DirectoryService) SetLanguage(ctx context.Context, externalID int64, displayName, language string) error {
	language = strings.TrimSpace(strings.ToLower(language))
	if language == "" {
		return apperrors.NewValidationError("language code required", nil)
	}
	ok, err := s.users.UpdateLanguage(ctx, externalID, language)
	if err != nil {
		return apperrors.NewStoreUnavailable(err)
	}
	if !ok {
		user := &domain.User{
			ExternalID:  externalID,
			DisplayName: displayName,
			Role:        domain.RolePlain,
			Language:    language,
		}
		if err := s.users.Create(ctx, user); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFound("user", nil)
			}
			return apperrors.NewStoreUnavailable(err)
		}
	}
	return nil
}
