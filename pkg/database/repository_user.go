package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// UserRepository persists User rows. Email is enforced globally unique
// by the users_email_key constraint (spec §3).
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new User.
func (r *UserRepository) Create(ctx context.Context, q Querier, u *User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	const query = `
		INSERT INTO users (id, tenant_id, email, role)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	if err := q.QueryRowContext(ctx, query, u.ID, u.TenantID, u.Email, u.Role).Scan(&u.CreatedAt); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// Get fetches a User by id.
func (r *UserRepository) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	const query = `SELECT id, tenant_id, email, role, created_at FROM users WHERE id = $1`
	var u User
	err := r.db.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.TenantID, &u.Email, &u.Role, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// HasLiveDocuments reports whether a User owns any Document not in a
// terminal state. Deleting such a User is forbidden (spec §3
// Ownership).
func (r *UserRepository) HasLiveDocuments(ctx context.Context, userID uuid.UUID) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM documents
			WHERE owner_id = $1 AND status NOT IN ('SIGNED', 'CANCELLED', 'EXPIRED')
		)
	`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check live documents: %w", err)
	}
	return exists, nil
}
