package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-router/internal/domain"
)

// ErrDuplicateRating is returned when a second rating row is attempted for
// the same ticket. The unique index on ticket_id is the arbiter, so two
// racing rate calls cannot both insert.
var ErrDuplicateRating = errors.New("rating already exists for ticket")

// RatingRepository persists ratings for closed tickets.
type RatingRepository interface {
	Create(ctx context.Context, rating *domain.Rating) error
	ExistsForTicket(ctx context.Context, ticketID int64) (bool, error)
}

type ratingRepository struct {
	pool *pgxpool.Pool
}

// NewRatingRepository instantiates repository.
func NewRatingRepository(pool *pgxpool.Pool) RatingRepository {
	return &ratingRepository{pool: pool}
}

func (r *ratingRepository) Create(ctx context.Context, rating *domain.Rating) error {
	const query = `
        INSERT INTO ratings (ticket_id, score, feedback)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query,
		rating.TicketID,
		rating.Score,
		rating.Feedback,
	).Scan(&rating.ID, &rating.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateRating
		}
		return err
	}
	return nil
}

func (r *ratingRepository) ExistsForTicket(ctx context.Context, ticketID int64) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM ratings WHERE ticket_id=$1)`
	var exists bool
	err := r.pool.QueryRow(ctx, query, ticketID).Scan(&exists)
	return exists, err
}
