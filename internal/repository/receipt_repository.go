package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-router/internal/domain"
)

// ReceiptRepository persists delivery receipts recorded at fan-out time.
type ReceiptRepository interface {
	Create(ctx context.Context, receipt *domain.DeliveryReceipt) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.DeliveryReceipt, error)
}

type receiptRepository struct {
	pool *pgxpool.Pool
}

// NewReceiptRepository instantiates repository.
func NewReceiptRepository(pool *pgxpool.Pool) ReceiptRepository {
	return &receiptRepository{pool: pool}
}

func (r *receiptRepository) Create(ctx context.Context, receipt *domain.DeliveryReceipt) error {
	const query = `
        INSERT INTO delivery_receipts (ticket_id, agent_id, message_ref)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		receipt.TicketID,
		receipt.AgentID,
		receipt.MessageRef,
	).Scan(&receipt.ID, &receipt.CreatedAt)
}

func (r *receiptRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.DeliveryReceipt, error) {
	const query = `
        SELECT id, ticket_id, agent_id, message_ref, created_at
        FROM delivery_receipts WHERE ticket_id=$1 ORDER BY id`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.DeliveryReceipt
	for rows.Next() {
		var receipt domain.DeliveryReceipt
		if err := rows.Scan(
			&receipt.ID,
			&receipt.TicketID,
			&receipt.AgentID,
			&receipt.MessageRef,
			&receipt.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, receipt)
	}
	return result, rows.Err()
}
