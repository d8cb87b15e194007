package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/vietddude/retryfetch/internal/infra/storage"
)

func TestMemoryStorage_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	if _, err := s.Get(ctx, "error_logs"); !errors.Is(err, storage.ErrSlotNotFound) {
		t.Fatalf("expected ErrSlotNotFound, got %v", err)
	}

	value := []byte(`[{"id":"1"}]`)
	if err := s.Set(ctx, "error_logs", value); err != nil {
		t.Fatalf("set: %v", err)
	}

	value[0] = 'X'
	got, err := s.Get(ctx, "error_logs")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != `[{"id":"1"}]` {
		t.Errorf("stored value must be copied, got %s", got)
	}

	if err := s.Delete(ctx, "error_logs"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, "error_logs"); err != nil {
		t.Fatalf("deleting an absent slot should succeed: %v", err)
	}
	if _, err := s.Get(ctx, "error_logs"); !errors.Is(err, storage.ErrSlotNotFound) {
		t.Errorf("expected ErrSlotNotFound after delete, got %v", err)
	}
}
