// Package mocks provides hand-written test doubles for the service layer.
package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-router/internal/domain"
)

// TicketRepo is a func-field double for repository.TicketRepository.
type TicketRepo struct {
	CreateFunc                  func(ctx context.Context, ticket *domain.Ticket) error
	GetByIDFunc                 func(ctx context.Context, id int64) (*domain.Ticket, error)
	ConditionalUpdateStatusFunc func(ctx context.Context, id int64, expected []domain.TicketStatus, next domain.TicketStatus, claimedBy *int64) (bool, error)
	ListByStatusesFunc          func(ctx context.Context, statuses []domain.TicketStatus) ([]domain.Ticket, error)
	SearchContentFunc           func(ctx context.Context, term string, limit int) ([]domain.Ticket, error)
	CountByClaimerFunc          func(ctx context.Context, agentExternalID int64) (int64, error)
	CountByStatusFunc           func(ctx context.Context, status domain.TicketStatus) (int64, error)
	CountAllFunc                func(ctx context.Context) (int64, error)
}

func (m *TicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	return m.CreateFunc(ctx, ticket)
}

func (m *TicketRepo) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *TicketRepo) ConditionalUpdateStatus(ctx context.Context, id int64, expected []domain.TicketStatus, next domain.TicketStatus, claimedBy *int64) (bool, error) {
	return m.ConditionalUpdateStatusFunc(ctx, id, expected, next, claimedBy)
}

func (m *TicketRepo) ListByStatuses(ctx context.Context, statuses []domain.TicketStatus) ([]domain.Ticket, error) {
	return m.ListByStatusesFunc(ctx, statuses)
}

func (m *TicketRepo) SearchContent(ctx context.Context, term string, limit int) ([]domain.Ticket, error) {
	return m.SearchContentFunc(ctx, term, limit)
}

func (m *TicketRepo) CountByClaimer(ctx context.Context, agentExternalID int64) (int64, error) {
	return m.CountByClaimerFunc(ctx, agentExternalID)
}

func (m *TicketRepo) CountByStatus(ctx context.Context, status domain.TicketStatus) (int64, error) {
	return m.CountByStatusFunc(ctx, status)
}

func (m *TicketRepo) CountAll(ctx context.Context) (int64, error) {
	return m.CountAllFunc(ctx)
}

// UserRepo is a func-field double for repository.UserRepository.
type UserRepo struct {
	CreateFunc          func(ctx context.Context, user *domain.User) error
	GetByIDFunc         func(ctx context.Context, id string) (*domain.User, error)
	GetByExternalIDFunc func(ctx context.Context, externalID int64) (*domain.User, error)
	EnsureWithRoleFunc  func(ctx context.Context, externalID int64, displayName string, role domain.UserRole) (*domain.User, error)
	UpdateRoleFunc      func(ctx context.Context, externalID int64, role domain.UserRole) (bool, error)
	UpdateLanguageFunc  func(ctx context.Context, externalID int64, language string) (bool, error)
	ListByRoleFunc      func(ctx context.Context, role domain.UserRole) ([]domain.User, error)
}

func (m *UserRepo) Create(ctx context.Context, user *domain.User) error {
	return m.CreateFunc(ctx, user)
}

func (m *UserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *UserRepo) GetByExternalID(ctx context.Context, externalID int64) (*domain.User, error) {
	return m.GetByExternalIDFunc(ctx, externalID)
}

func (m *UserRepo) EnsureWithRole(ctx context.Context, externalID int64, displayName string, role domain.UserRole) (*domain.User, error) {
	return m.EnsureWithRoleFunc(ctx, externalID, displayName, role)
}

func (m *UserRepo) UpdateRole(ctx context.Context, externalID int64, role domain.UserRole) (bool, error) {
	return m.UpdateRoleFunc(ctx, externalID, role)
}

func (m *UserRepo) UpdateLanguage(ctx context.Context, externalID int64, language string) (bool, error) {
	return m.UpdateLanguageFunc(ctx, externalID, language)
}

func (m *UserRepo) ListByRole(ctx context.Context, role domain.UserRole) ([]domain.User, error) {
	return m.ListByRoleFunc(ctx, role)
}

// ReceiptRepo is a func-field double for repository.ReceiptRepository.
type ReceiptRepo struct {
	CreateFunc       func(ctx context.Context, receipt *domain.DeliveryReceipt) error
	ListByTicketFunc func(ctx context.Context, ticketID int64) ([]domain.DeliveryReceipt, error)
}

func (m *ReceiptRepo) Create(ctx context.Context, receipt *domain.DeliveryReceipt) error {
	return m.CreateFunc(ctx, receipt)
}

func (m *ReceiptRepo) ListByTicket(ctx context.Context, ticketID int64) ([]domain.DeliveryReceipt, error) {
	return m.ListByTicketFunc(ctx, ticketID)
}

// RatingRepo is a func-field double for repository.RatingRepository.
type RatingRepo struct {
	CreateFunc          func(ctx context.Context, rating *domain.Rating) error
	ExistsForTicketFunc func(ctx context.Context, ticketID int64) (bool, error)
}

func (m *RatingRepo) Create(ctx context.Context, rating *domain.Rating) error {
	return m.CreateFunc(ctx, rating)
}

func (m *RatingRepo) ExistsForTicket(ctx context.Context, ticketID int64) (bool, error) {
	return m.ExistsForTicketFunc(ctx, ticketID)
}

// Notifier is a func-field double for notify.Notifier. Nil funcs succeed.
type Notifier struct {
	mu          sync.Mutex
	DeliverFunc func(ctx context.Context, recipient int64, content string) (string, error)
	ReviseFunc  func(ctx context.Context, recipient int64, messageRef, content string) error

	Delivered []Delivery
	Revised   []Revision
}

// Delivery records one Deliver call.
type Delivery struct {
	Recipient int64
	Content   string
}

// Revision records one Revise call.
type Revision struct {
	Recipient  int64
	MessageRef string
	Content    string
}

func (m *Notifier) Deliver(ctx context.Context, recipient int64, content string) (string, error) {
	if m.DeliverFunc != nil {
		ref, err := m.DeliverFunc(ctx, recipient, content)
		if err != nil {
			return "", err
		}
		m.record(recipient, content)
		return ref, nil
	}
	m.record(recipient, content)
	return fmt.Sprintf("msg-%d", recipient), nil
}

func (m *Notifier) Revise(ctx context.Context, recipient int64, messageRef, content string) error {
	if m.ReviseFunc != nil {
		if err := m.ReviseFunc(ctx, recipient, messageRef, content); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Revised = append(m.Revised, Revision{Recipient: recipient, MessageRef: messageRef, Content: content})
	return nil
}

func (m *Notifier) record(recipient int64, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Delivered = append(m.Delivered, Delivery{Recipient: recipient, Content: content})
}

// MemoryTicketRepo is a mutex-guarded in-memory ticket store whose
// ConditionalUpdateStatus has the same atomicity as the SQL implementation.
// It backs the concurrency tests where real races are exercised.
type MemoryTicketRepo struct {
	mu      sync.Mutex
	nextID  int64
	tickets map[int64]*domain.Ticket
}

// NewMemoryTicketRepo constructs an empty store.
func NewMemoryTicketRepo() *MemoryTicketRepo {
	return &MemoryTicketRepo{tickets: make(map[int64]*domain.Ticket)}
}

// Seed inserts a ticket directly and returns its id.
func (m *MemoryTicketRepo) Seed(ticket domain.Ticket) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	ticket.ID = m.nextID
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now()
	}
	ticket.UpdatedAt = ticket.CreatedAt
	m.tickets[ticket.ID] = &ticket
	return ticket.ID
}

func (m *MemoryTicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	ticket.ID = m.nextID
	now := time.Now()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	clone := *ticket
	m.tickets[ticket.ID] = &clone
	return nil
}

func (m *MemoryTicketRepo) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ticket, ok := m.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *ticket
	return &clone, nil
}

func (m *MemoryTicketRepo) ConditionalUpdateStatus(ctx context.Context, id int64, expected []domain.TicketStatus, next domain.TicketStatus, claimedBy *int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ticket, ok := m.tickets[id]
	if !ok {
		return false, nil
	}
	matched := false
	for _, status := range expected {
		if ticket.Status == status {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}
	if claimedBy != nil {
		if ticket.ClaimedBy != nil {
			return false, nil
		}
		agent := *claimedBy
		ticket.ClaimedBy = &agent
	}
	ticket.Status = next
	ticket.UpdatedAt = time.Now()
	return true, nil
}

func (m *MemoryTicketRepo) ListByStatuses(ctx context.Context, statuses []domain.TicketStatus) ([]domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Ticket
	for _, ticket := range m.tickets {
		for _, status := range statuses {
			if ticket.Status == status {
				out = append(out, *ticket)
				break
			}
		}
	}
	return out, nil
}

func (m *MemoryTicketRepo) SearchContent(ctx context.Context, term string, limit int) ([]domain.Ticket, error) {
	return nil, nil
}

func (m *MemoryTicketRepo) CountByClaimer(ctx context.Context, agentExternalID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, ticket := range m.tickets {
		if ticket.ClaimedBy != nil && *ticket.ClaimedBy == agentExternalID {
			n++
		}
	}
	return n, nil
}

func (m *MemoryTicketRepo) CountByStatus(ctx context.Context, status domain.TicketStatus) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, ticket := range m.tickets {
		if ticket.Status == status {
			n++
		}
	}
	return n, nil
}

func (m *MemoryTicketRepo) CountAll(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.tickets)), nil
}
