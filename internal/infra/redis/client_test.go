package redis

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/retryfetch/internal/core/apperror"
	"github.com/vietddude/retryfetch/internal/errlog"
	"github.com/vietddude/retryfetch/internal/infra/storage"
)

func unreachableClient(cfg Config) *Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	return newClient(rdb, cfg)
}

func TestSlotKey(t *testing.T) {
	c := unreachableClient(Config{})
	defer c.Close()
	if got := c.slotKey("error_logs"); got != "retryfetch:slot:error_logs" {
		t.Errorf("unexpected default key %s", got)
	}

	c2 := unreachableClient(Config{KeyPrefix: "agency"})
	defer c2.Close()
	if got := c2.slotKey("error_logs"); got != "agency:slot:error_logs" {
		t.Errorf("unexpected prefixed key %s", got)
	}
}

func TestClient_UnreachableIsNotSlotMissing(t *testing.T) {
	c := unreachableClient(Config{})
	defer c.Close()

	_, err := c.Get(context.Background(), "error_logs")
	if err == nil {
		t.Fatal("expected error from unreachable server")
	}
	if errors.Is(err, storage.ErrSlotNotFound) {
		t.Error("connection failures must not be reported as a missing slot")
	}
}

func TestNewPublishForwarder_DefaultChannel(t *testing.T) {
	c := unreachableClient(Config{KeyPrefix: "agency"})
	defer c.Close()

	if f := NewPublishForwarder(c, ""); f.channel != "agency:errors" {
		t.Errorf("unexpected default channel %s", f.channel)
	}
	if f := NewPublishForwarder(c, "ops"); f.channel != "ops" {
		t.Errorf("unexpected channel %s", f.channel)
	}
}

// Requires a reachable server, e.g.
// RETRYFETCH_TEST_REDIS_URL=redis://localhost:6379/15
func liveClient(t *testing.T, cfg Config) *Client {
	t.Helper()
	url := os.Getenv("RETRYFETCH_TEST_REDIS_URL")
	if url == "" {
		t.Skip("RETRYFETCH_TEST_REDIS_URL not set")
	}
	cfg.URL = url
	c, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClient_Live(t *testing.T) {
	c := liveClient(t, Config{KeyPrefix: "retryfetch_test", TTL: time.Minute})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	key := "error_logs"
	_ = c.Delete(ctx, key)

	if _, err := c.Get(ctx, key); !errors.Is(err, storage.ErrSlotNotFound) {
		t.Fatalf("expected ErrSlotNotFound, got %v", err)
	}
	if err := c.Set(ctx, key, []byte(`[1]`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := c.Set(ctx, key, []byte(`[2]`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err := c.Get(ctx, key)
	if err != nil || string(got) != `[2]` {
		t.Fatalf("get = %s, %v", got, err)
	}

	ttl, err := c.rdb.TTL(ctx, c.slotKey(key)).Result()
	if err != nil {
		t.Fatalf("ttl: %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("expected TTL within (0, 1m], got %v", ttl)
	}

	if err := c.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := c.Get(ctx, key); !errors.Is(err, storage.ErrSlotNotFound) {
		t.Fatalf("expected ErrSlotNotFound after delete, got %v", err)
	}
}

func TestClient_LiveNoTTL(t *testing.T) {
	c := liveClient(t, Config{KeyPrefix: "retryfetch_test"})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	key := "no_ttl"
	t.Cleanup(func() { _ = c.Delete(context.Background(), key) })
	if err := c.Set(ctx, key, []byte(`[]`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	// -1 means the key exists without expiry.
	if ttl, err := c.rdb.TTL(ctx, c.slotKey(key)).Result(); err != nil || ttl != -1 {
		t.Errorf("expected no expiry, got %v (%v)", ttl, err)
	}
}

func TestPublishForwarder_Live(t *testing.T) {
	c := liveClient(t, Config{KeyPrefix: "retryfetch_test"})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	f := NewPublishForwarder(c, "")
	sub := c.rdb.Subscribe(ctx, f.channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	entry := errlog.Entry{
		ID:        "1760745600000-abc123def",
		Error:     apperror.New(502, "bad gateway", nil),
		Context:   map[string]any{"url": "https://cms.example.com"},
		Timestamp: time.Now().UTC(),
	}
	if err := f.Forward(ctx, entry); err != nil {
		t.Fatalf("forward: %v", err)
	}

	msg, err := sub.ReceiveMessage(ctx)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	var got errlog.Entry
	if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != entry.ID || got.Error.StatusCode() != 502 {
		t.Errorf("unexpected published entry: %+v", got)
	}
}
