package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/retryfetch/internal/errlog"
)

// PublishForwarder publishes error log entries on a Redis pub/sub channel
// so an external collector can subscribe to them.
type PublishForwarder struct {
	rdb     *redis.Client
	channel string
}

var _ errlog.Forwarder = (*PublishForwarder)(nil)

// NewPublishForwarder creates a forwarder on the given channel.
func NewPublishForwarder(client *Client, channel string) *PublishForwarder {
	if channel == "" {
		channel = client.prefix + ":errors"
	}
	return &PublishForwarder{
		rdb:     client.rdb,
		channel: channel,
	}
}

// Forward serializes the entry and publishes it.
func (f *PublishForwarder) Forward(ctx context.Context, entry errlog.Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}
	if err := f.rdb.Publish(ctx, f.channel, data).Err(); err != nil {
		return fmt.Errorf("publish failed: %w", err)
	}
	return nil
}
