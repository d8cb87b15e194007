package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vietddude/retryfetch/internal/infra/storage"
)

// SlotRepo implements storage.Store on the error_slots table.
type SlotRepo struct {
	db *DB
}

var _ storage.Store = (*SlotRepo)(nil)

// NewSlotRepo creates a new PostgreSQL slot repository.
func NewSlotRepo(db *DB) *SlotRepo {
	return &SlotRepo{db: db}
}

// Get reads a slot.
func (r *SlotRepo) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.db.GetContext(ctx, &value, `SELECT value FROM error_slots WHERE key = $1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get slot: %w", err)
	}
	return value, nil
}

// Set upserts a slot.
func (r *SlotRepo) Set(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO error_slots (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`
	if _, err := r.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to set slot: %w", err)
	}
	return nil
}

// Delete removes a slot.
func (r *SlotRepo) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM error_slots WHERE key = $1`, key); err != nil {
		return fmt.Errorf("failed to delete slot: %w", err)
	}
	return nil
}
