// Package errlog keeps a bounded, newest-first trail of AppErrors for the
// whole process, and a smaller durable trail of severe (status >= 500) ones.
//
// Logging never fails from the caller's point of view: forwarding and
// persistence errors are counted and dropped.
package errlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vietddude/retryfetch/internal/core/apperror"
	"github.com/vietddude/retryfetch/internal/core/clock"
	"github.com/vietddude/retryfetch/internal/core/env"
	"github.com/vietddude/retryfetch/internal/infra/storage"
	"github.com/vietddude/retryfetch/internal/metrics"
)

const (
	DefaultCapacity          = 100
	DefaultPersistedCapacity = 20
	DefaultPersistKey        = "error_logs"
	DefaultPersistTimeout    = 2 * time.Second
)

// Forwarder ships entries to an external observability service.
type Forwarder interface {
	Forward(ctx context.Context, entry Entry) error
}

// NoopForwarder drops every entry.
type NoopForwarder struct{}

func (NoopForwarder) Forward(context.Context, Entry) error { return nil }

// Logger is the process-wide error log. Create one with New and share it.
type Logger struct {
	env               env.Environment
	clock             clock.Clock
	log               *slog.Logger
	forwarder         Forwarder
	capacity          int
	persistedCapacity int
	persistKey        string
	persistTimeout    time.Duration

	mu      sync.Mutex
	entries []Entry

	// serializes read-modify-write of the persisted slot
	persistMu sync.Mutex
}

// Option configures a Logger.
type Option func(*Logger)

func WithCapacity(n int) Option {
	return func(l *Logger) {
		if n > 0 {
			l.capacity = n
		}
	}
}

func WithPersistedCapacity(n int) Option {
	return func(l *Logger) {
		if n > 0 {
			l.persistedCapacity = n
		}
	}
}

func WithPersistKey(key string) Option {
	return func(l *Logger) {
		if key != "" {
			l.persistKey = key
		}
	}
}

func WithPersistTimeout(d time.Duration) Option {
	return func(l *Logger) {
		if d > 0 {
			l.persistTimeout = d
		}
	}
}

func WithForwarder(f Forwarder) Option {
	return func(l *Logger) {
		if f != nil {
			l.forwarder = f
		}
	}
}

func WithClock(c clock.Clock) Option {
	return func(l *Logger) { l.clock = c }
}

func WithSlog(log *slog.Logger) Option {
	return func(l *Logger) { l.log = log }
}

// New creates an empty logger bound to an environment. A nil environment
// behaves like env.Noop.
func New(e env.Environment, opts ...Option) *Logger {
	if e == nil {
		e = env.Noop{}
	}
	l := &Logger{
		env:               e,
		clock:             clock.Real{},
		log:               slog.Default(),
		forwarder:         NoopForwarder{},
		capacity:          DefaultCapacity,
		persistedCapacity: DefaultPersistedCapacity,
		persistKey:        DefaultPersistKey,
		persistTimeout:    DefaultPersistTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Log records err with the ambient context plus fields, and returns the
// stored entry.
func (l *Logger) Log(ctx context.Context, err *apperror.AppError, fields map[string]any) Entry {
	if ctx == nil {
		ctx = context.Background()
	}
	if err == nil {
		err = apperror.NewWithClock(l.clock, 0, "nil error logged", nil)
	}

	now := l.clock.Now()
	entryCtx := map[string]any{
		ContextURL:       l.env.CurrentURL(),
		ContextUserAgent: l.env.ClientIdentifier(),
	}
	for k, v := range fields {
		entryCtx[k] = v
	}

	entry := Entry{
		ID:        newEntryID(now),
		Error:     err,
		Context:   entryCtx,
		Timestamp: now,
	}

	l.mu.Lock()
	l.entries = append([]Entry{entry}, l.entries...)
	if len(l.entries) > l.capacity {
		l.entries = l.entries[:l.capacity]
	}
	size := len(l.entries)
	l.mu.Unlock()

	metrics.ErrorsLoggedTotal.WithLabelValues(err.Kind().String()).Inc()
	metrics.LogBufferSize.Set(float64(size))

	if l.env.IsDebug() {
		l.log.Error("Error logged",
			"id", entry.ID,
			"kind", err.Kind().String(),
			"status", err.StatusCode(),
			"message", err.Message(),
			"context", entryCtx,
		)
	}

	l.safely("forward", func() {
		fctx, cancel := l.persistContext(ctx)
		defer cancel()
		if ferr := l.forwarder.Forward(fctx, entry.clone()); ferr != nil {
			l.log.Debug("Failed to forward error entry", "id", entry.ID, "error", ferr)
		}
	})

	if err.StatusCode() >= 500 {
		l.safely("persist", func() { l.persist(ctx, entry) })
	}

	return entry.clone()
}

// GetLogs returns a copy of the buffer, newest first.
func (l *Logger) GetLogs() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.clone()
	}
	return out
}

// ClearLogs empties the buffer and deletes the persisted slot.
func (l *Logger) ClearLogs(ctx context.Context) {
	l.mu.Lock()
	l.entries = nil
	l.mu.Unlock()
	metrics.LogBufferSize.Set(0)

	store := l.env.Store()
	if store == nil {
		return
	}
	l.safely("delete", func() {
		pctx, cancel := l.persistContext(ctx)
		defer cancel()

		l.persistMu.Lock()
		defer l.persistMu.Unlock()
		if err := store.Delete(pctx, l.persistKey); err != nil {
			metrics.PersistFailuresTotal.WithLabelValues("delete").Inc()
			l.log.Debug("Failed to delete persisted error log", "error", err)
		}
	})
}

// GetPersisted returns the durable trail, newest first. An absent, empty
// or malformed slot reads as empty.
func (l *Logger) GetPersisted(ctx context.Context) []Entry {
	store := l.env.Store()
	if store == nil {
		return nil
	}
	pctx, cancel := l.persistContext(ctx)
	defer cancel()

	var entries []Entry
	l.safely("read", func() {
		var err error
		if entries, err = l.readPersisted(pctx, store); err != nil {
			metrics.PersistFailuresTotal.WithLabelValues("read").Inc()
			l.log.Debug("Failed to read persisted error log", "error", err)
		}
	})
	return entries
}

func (l *Logger) persist(ctx context.Context, entry Entry) {
	store := l.env.Store()
	if store == nil {
		return
	}
	pctx, cancel := l.persistContext(ctx)
	defer cancel()

	l.persistMu.Lock()
	defer l.persistMu.Unlock()

	existing, err := l.readPersisted(pctx, store)
	if err != nil {
		// Writing now would replace a trail we could not see.
		metrics.PersistFailuresTotal.WithLabelValues("read").Inc()
		l.log.Debug("Skipped persisting error entry", "id", entry.ID, "error", err)
		return
	}
	entries := append([]Entry{entry}, existing...)
	if len(entries) > l.persistedCapacity {
		entries = entries[:l.persistedCapacity]
	}

	data, err := json.Marshal(entries)
	if err != nil {
		metrics.PersistFailuresTotal.WithLabelValues("marshal").Inc()
		l.log.Debug("Failed to encode persisted error log", "error", err)
		return
	}
	if err := store.Set(pctx, l.persistKey, data); err != nil {
		metrics.PersistFailuresTotal.WithLabelValues("write").Inc()
		l.log.Debug("Failed to persist error entry", "id", entry.ID, "error", err)
		return
	}
	metrics.ErrorsPersistedTotal.Inc()
}

// readPersisted treats an absent slot as empty. Any other store error is
// returned so callers can tell it apart from an empty trail.
func (l *Logger) readPersisted(ctx context.Context, store storage.Store) ([]Entry, error) {
	data, err := store.Get(ctx, l.persistKey)
	if errors.Is(err, storage.ErrSlotNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeEntries(data), nil
}

// persistContext detaches from the caller's cancellation so a finished
// request does not abort the write, but still bounds it.
func (l *Logger) persistContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(context.WithoutCancel(ctx), l.persistTimeout)
}

func (l *Logger) safely(op string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			metrics.PersistFailuresTotal.WithLabelValues(op).Inc()
			l.log.Debug("Recovered panic in error log side channel", "op", op, "panic", fmt.Sprint(r))
		}
	}()
	fn()
}
