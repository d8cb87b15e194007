package storage

import (
	"context"
	"errors"
)

var (
	// ErrSlotNotFound is returned when a named slot has never been written
	// or was deleted.
	ErrSlotNotFound = errors.New("slot not found")
)

// Store is a durable key-value side channel holding named slots of opaque
// bytes. Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the slot contents or ErrSlotNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set replaces the slot contents.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes the slot. Deleting an absent slot is not an error.
	Delete(ctx context.Context, key string) error
}
