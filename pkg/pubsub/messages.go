package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
)

// CleanupMessage asks the cleanup worker to remove a blob that the API could
// not delete inline, typically after a failed batch rollback.
type CleanupMessage struct {
	StorageKey  string    `json:"storage_key"`
	Bucket      string    `json:"bucket,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// PublishCleanup enqueues a blob-cleanup request and waits for the server ack.
func (c *Client) PublishCleanup(ctx context.Context, msg CleanupMessage) error {
	if c == nil || c.client == nil {
		return errors.New("pubsub client not initialized")
	}
	if msg.StorageKey == "" {
		return errors.New("storage key is required")
	}
	if msg.RequestedAt.IsZero() {
		msg.RequestedAt = time.Now().UTC()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding cleanup message: %w", err)
	}

	publisher := c.CleanupPublisher()
	if publisher == nil {
		return errors.New("cleanup topic not configured")
	}

	result := publisher.Publish(ctx, &pubsub.Message{Data: data})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publishing cleanup message: %w", err)
	}
	return nil
}
