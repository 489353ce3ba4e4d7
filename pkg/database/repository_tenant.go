package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// TenantRepository persists Tenant rows.
type TenantRepository struct {
	db *sql.DB
}

// NewTenantRepository constructs a TenantRepository.
func NewTenantRepository(db *sql.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

// Create inserts a new Tenant.
func (r *TenantRepository) Create(ctx context.Context, q Querier, t *Tenant) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	const query = `INSERT INTO tenants (id, name) VALUES ($1, $2) RETURNING created_at`
	if err := q.QueryRowContext(ctx, query, t.ID, t.Name).Scan(&t.CreatedAt); err != nil {
		return fmt.Errorf("insert tenant: %w", err)
	}
	return nil
}

// Get fetches a Tenant by id.
func (r *TenantRepository) Get(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	const query = `SELECT id, name, created_at FROM tenants WHERE id = $1`
	var t Tenant
	err := r.db.QueryRowContext(ctx, query, id).Scan(&t.ID, &t.Name, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return &t, nil
}
