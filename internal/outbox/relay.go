package outbox

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Publisher dispatches a drained outbox message to the external bus.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// LogPublisher writes messages to the log. It is the default binding when
// no external bus is configured.
type LogPublisher struct {
	log *zap.Logger
}

// NewLogPublisher builds a LogPublisher.
func NewLogPublisher(log *zap.Logger) *LogPublisher {
	return &LogPublisher{log: log.Named("outbox.publisher")}
}

// Publish logs the message.
func (p *LogPublisher) Publish(_ context.Context, msg Message) error {
	p.log.Info("outbox event",
		zap.String("message_id", msg.ID.String()),
		zap.String("tenant_id", msg.TenantID),
		zap.String("event_type", msg.EventType),
	)
	return nil
}

// Relay drains unprocessed outbox rows oldest-first and dispatches them.
type Relay struct {
	db        *gorm.DB
	log       *zap.Logger
	publisher Publisher
	interval  time.Duration
	batchSize int
}

// NewRelay builds a Relay.
func NewRelay(db *gorm.DB, log *zap.Logger, publisher Publisher, interval time.Duration, batchSize int) *Relay {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Relay{
		db:        db,
		log:       log.Named("outbox.relay"),
		publisher: publisher,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Run polls until the context is cancelled.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.ProcessOnce(ctx); err != nil {
				r.log.Error("outbox drain failed", zap.Error(err))
			}
		}
	}
}

// ProcessOnce drains one batch and returns how many messages were dispatched.
func (r *Relay) ProcessOnce(ctx context.Context) (int, error) {
	var pending []Message
	err := r.db.WithContext(ctx).
		Where("processed_at IS NULL").
		Order("occurred_at asc, message_id asc").
		Limit(r.batchSize).
		Find(&pending).Error
	if err != nil {
		return 0, err
	}

	dispatched := 0
	for _, msg := range pending {
		if err := r.publisher.Publish(ctx, msg); err != nil {
			r.log.Warn("dispatch failed",
				zap.String("message_id", msg.ID.String()),
				zap.Int("retry_count", msg.RetryCount),
				zap.Error(err),
			)
			if err := r.db.WithContext(ctx).Model(&Message{}).
				Where("message_id = ?", msg.ID).
				UpdateColumn("retry_count", gorm.Expr("retry_count + 1")).Error; err != nil {
				return dispatched, err
			}
			continue
		}

		now := time.Now().UTC()
		if err := r.db.WithContext(ctx).Model(&Message{}).
			Where("message_id = ?", msg.ID).
			Update("processed_at", now).Error; err != nil {
			return dispatched, err
		}
		dispatched++
	}
	return dispatched, nil
}
