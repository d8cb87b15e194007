package errlog

import (
	"encoding/json"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/retryfetch/internal/core/apperror"
)

// Context keys always present on an entry.
const (
	ContextURL       = "url"
	ContextUserAgent = "userAgent"
)

// Entry is one recorded AppError.
type Entry struct {
	ID        string             `json:"id"`
	Error     *apperror.AppError `json:"error"`
	Context   map[string]any     `json:"context"`
	Timestamp time.Time          `json:"timestamp"`
}

func (e Entry) clone() Entry {
	e.Context = maps.Clone(e.Context)
	return e
}

// newEntryID returns "<unix-millis>-<9 random chars>". Uniqueness is
// best-effort.
func newEntryID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("%d-%s", now.UnixMilli(), suffix)
}

// decodeEntries reads a persisted slot. Empty or malformed data yields no
// entries.
func decodeEntries(data []byte) []Entry {
	if len(data) == 0 {
		return nil
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil
	}
	out := entries[:0]
	for _, e := range entries {
		if e.Error != nil {
			out = append(out, e)
		}
	}
	return out
}
