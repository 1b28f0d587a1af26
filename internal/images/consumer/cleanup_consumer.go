package consumer

import (
	"context"
	"encoding/json"
	"errors"

	gpubsub "cloud.google.com/go/pubsub/v2"

	"github.com/equipqr/equipqr-backend/pkg/logger"
	"github.com/equipqr/equipqr-backend/pkg/metrics"
	"github.com/equipqr/equipqr-backend/pkg/pubsub"
)

type blobDeleter interface {
	Delete(ctx context.Context, objectName string) error
}

// CleanupConsumer drains the orphaned-blob queue. The API enqueues a message
// whenever a storage object outlives its database row (rollback cleanup
// failed, or the post-delete blob removal failed); this worker retries the
// deletion until the bucket agrees.
type CleanupConsumer struct {
	blobs        blobDeleter
	subscription *gpubsub.Subscriber
	jobs         *metrics.CronJobMetrics
	logg         *logger.Logger
}

const cleanupJobName = "image-blob-cleanup"

func NewCleanupConsumer(blobs blobDeleter, subscription *gpubsub.Subscriber, jobs *metrics.CronJobMetrics, logg *logger.Logger) (*CleanupConsumer, error) {
	if blobs == nil {
		return nil, errors.New("blob store is required")
	}
	if subscription == nil {
		return nil, errors.New("cleanup subscription is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &CleanupConsumer{
		blobs:        blobs,
		subscription: subscription,
		jobs:         jobs,
		logg:         logg,
	}, nil
}

// Run processes cleanup messages until the context is canceled.
func (c *CleanupConsumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *gpubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *CleanupConsumer) process(ctx context.Context, msg *gpubsub.Message) processResult {
	var payload pubsub.CleanupMessage
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		logCtx := c.logg.WithFields(ctx, map[string]any{"message_id": msg.ID})
		c.logg.Error(logCtx, "failed to decode cleanup message", err)
		c.jobs.IncFailure(cleanupJobName)
		// A malformed message never becomes parseable; drop it.
		return processResult{ack: true}
	}

	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id":  msg.ID,
		"storage_key": payload.StorageKey,
		"bucket":      payload.Bucket,
		"reason":      payload.Reason,
	})

	if payload.StorageKey == "" {
		c.logg.Warn(logCtx, "cleanup message missing storage key")
		return processResult{ack: true}
	}

	if err := c.blobs.Delete(ctx, payload.StorageKey); err != nil {
		c.logg.Error(logCtx, "orphaned blob deletion failed", err)
		c.jobs.IncFailure(cleanupJobName)
		return processResult{nack: true}
	}

	c.jobs.IncSuccess(cleanupJobName)
	c.logg.Info(logCtx, "orphaned blob removed")
	return processResult{ack: true}
}
