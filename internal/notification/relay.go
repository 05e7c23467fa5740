package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Outbox runs fn with a repository whose reads and writes commit together.
// Postgres implements it with a transaction so concurrent relays skip rows
// another relay has locked.
type Outbox interface {
	Do(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error
}

// Relay moves unpublished notifications to a Publisher. Delivery is at least
// once: a crash between publish and stamp republishes the batch.
type Relay struct {
	outbox    Outbox
	publisher Publisher
	batchSize int
	now       func() time.Time
	log       *zap.Logger
}

func NewRelay(outbox Outbox, publisher Publisher, batchSize int, log *zap.Logger) *Relay {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Relay{
		outbox:    outbox,
		publisher: publisher,
		batchSize: batchSize,
		now:       time.Now,
		log:       log,
	}
}

// RunOnce publishes one batch and returns how many were stamped.
// Publishing stops at the first failure; messages sent before it stay
// stamped and the failure is returned.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	var (
		published  int
		publishErr error
	)

	err := r.outbox.Do(ctx, func(ctx context.Context, repo Repository) error {
		pending, err := repo.ListUnpublished(ctx, r.batchSize)
		if err != nil {
			return fmt.Errorf("list unpublished: %w", err)
		}
		if len(pending) == 0 {
			return nil
		}

		ids := make([]uuid.UUID, 0, len(pending))
		for _, n := range pending {
			if err := r.publisher.Publish(ctx, n); err != nil {
				publishErr = fmt.Errorf("publish notification %s: %w", n.ID, err)
				break
			}
			ids = append(ids, n.ID)
		}

		if err := repo.MarkPublished(ctx, ids, r.now()); err != nil {
			return err
		}
		published = len(ids)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if publishErr != nil {
		r.log.Warn("relay batch interrupted",
			zap.Int("published", published),
			zap.Error(publishErr),
		)
		return published, publishErr
	}

	if published > 0 {
		r.log.Info("notifications relayed", zap.Int("count", published))
	}
	return published, nil
}
