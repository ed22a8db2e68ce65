package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-router/internal/domain"
)

// TicketRepository encapsulates ticket persistence. The store is the single
// source of truth: callers re-read and conditionally write, never cache.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	// ConditionalUpdateStatus applies "set status=next, claimed_by=claimedBy
	// only if current status is one of expected" as a single atomic
	// row-level operation. It reports whether the row was updated. This is
	// the sole synchronization primitive for claim and escalation races.
	ConditionalUpdateStatus(ctx context.Context, id int64, expected []domain.TicketStatus, next domain.TicketStatus, claimedBy *int64) (bool, error)
	ListByStatuses(ctx context.Context, statuses []domain.TicketStatus) ([]domain.Ticket, error)
	SearchContent(ctx context.Context, term string, limit int) ([]domain.Ticket, error)
	CountByClaimer(ctx context.Context, agentExternalID int64) (int64, error)
	CountByStatus(ctx context.Context, status domain.TicketStatus) (int64, error)
	CountAll(ctx context.Context) (int64, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, user_id, status, claimed_by, content, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (user_id, status, content)
        VALUES ($1,$2,$3)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.UserID,
		ticket.Status,
		ticket.Content,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.UserID,
		&ticket.Status,
		&ticket.ClaimedBy,
		&ticket.Content,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ConditionalUpdateStatus(ctx context.Context, id int64, expected []domain.TicketStatus, next domain.TicketStatus, claimedBy *int64) (bool, error) {
	statuses := make([]string, 0, len(expected))
	for _, s := range expected {
		statuses = append(statuses, string(s))
	}

	if claimedBy != nil {
		const query = `
            UPDATE tickets SET status=$2, claimed_by=$3, updated_at=NOW()
            WHERE id=$1 AND claimed_by IS NULL AND status = ANY($4)`
		cmd, err := r.pool.Exec(ctx, query, id, next, *claimedBy, statuses)
		if err != nil {
			return false, err
		}
		return cmd.RowsAffected() == 1, nil
	}

	// Escalation and close never touch claimed_by.
	const query = `
        UPDATE tickets SET status=$2, updated_at=NOW()
        WHERE id=$1 AND status = ANY($3)`
	cmd, err := r.pool.Exec(ctx, query, id, next, statuses)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *ticketRepository) ListByStatuses(ctx context.Context, statuses []domain.TicketStatus) ([]domain.Ticket, error) {
	values := make([]string, 0, len(statuses))
	for _, s := range statuses {
		values = append(values, string(s))
	}
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE status = ANY($1) ORDER BY id`
	rows, err := r.pool.Query(ctx, query, values)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) SearchContent(ctx context.Context, term string, limit int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 50
	}
	search := "%" + strings.TrimSpace(term) + "%"
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE content ILIKE $1 ORDER BY id DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, search, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) CountByClaimer(ctx context.Context, agentExternalID int64) (int64, error) {
	const query = `SELECT COUNT(*) FROM tickets WHERE claimed_by=$1`
	var count int64
	err := r.pool.QueryRow(ctx, query, agentExternalID).Scan(&count)
	return count, err
}

func (r *ticketRepository) CountByStatus(ctx context.Context, status domain.TicketStatus) (int64, error) {
	const query = `SELECT COUNT(*) FROM tickets WHERE status=$1`
	var count int64
	err := r.pool.QueryRow(ctx, query, status).Scan(&count)
	return count, err
}

func (r *ticketRepository) CountAll(ctx context.Context) (int64, error) {
	const query = `SELECT COUNT(*) FROM tickets`
	var count int64
	err := r.pool.QueryRow(ctx, query).Scan(&count)
	return count, err
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.UserID,
			&ticket.Status,
			&ticket.ClaimedBy,
			&ticket.Content,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
