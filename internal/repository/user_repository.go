package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-router/internal/domain"
)

// UserRepository encapsulates user persistence.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByExternalID(ctx context.Context, externalID int64) (*domain.User, error)
	// EnsureWithRole creates the identity when missing, otherwise updates its
	// role. Used by first-contact upserts and owner role assignment.
	EnsureWithRole(ctx context.Context, externalID int64, displayName string, role domain.UserRole) (*domain.User, error)
	UpdateRole(ctx context.Context, externalID int64, role domain.UserRole) (bool, error)
	UpdateLanguage(ctx context.Context, externalID int64, language string) (bool, error)
	ListByRole(ctx context.Context, role domain.UserRole) ([]domain.User, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository instantiates repository.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, external_id, display_name, role, language, created_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (external_id, display_name, role, language)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	if user.Role == "" {
		user.Role = domain.RolePlain
	}
	if user.Language == "" {
		user.Language = "en"
	}
	return r.pool.QueryRow(ctx, query,
		user.ExternalID,
		user.DisplayName,
		user.Role,
		user.Language,
	).Scan(&user.ID, &user.CreatedAt)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *userRepository) GetByExternalID(ctx context.Context, externalID int64) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE external_id=$1`
	return r.fetchSingle(ctx, query, externalID)
}

func (r *userRepository) EnsureWithRole(ctx context.Context, externalID int64, displayName string, role domain.UserRole) (*domain.User, error) {
	const query = `
        INSERT INTO users (external_id, display_name, role)
        VALUES ($1,$2,$3)
        ON CONFLICT (external_id) DO UPDATE SET role = EXCLUDED.role
        RETURNING ` + userColumns
	return r.fetchSingle(ctx, query, externalID, displayName, role)
}

func (r *userRepository) UpdateRole(ctx context.Context, externalID int64, role domain.UserRole) (bool, error) {
	const query = `UPDATE users SET role=$2 WHERE external_id=$1`
	cmd, err := r.pool.Exec(ctx, query, externalID, role)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *userRepository) UpdateLanguage(ctx context.Context, externalID int64, language string) (bool, error) {
	const query = `UPDATE users SET language=$2 WHERE external_id=$1`
	cmd, err := r.pool.Exec(ctx, query, externalID, language)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *userRepository) ListByRole(ctx context.Context, role domain.UserRole) ([]domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE role=$1 ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.User, error) {
	var user domain.User
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&user.ID,
		&user.ExternalID,
		&user.DisplayName,
		&user.Role,
		&user.Language,
		&user.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

func scanUsers(rows pgx.Rows) ([]domain.User, error) {
	var result []domain.User
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(
			&user.ID,
			&user.ExternalID,
			&user.DisplayName,
			&user.Role,
			&user.Language,
			&user.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, user)
	}
	return result, rows.Err()
}
