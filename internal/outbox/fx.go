package outbox

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/rideledger/rideledger/internal/config"
)

// Module wires the outbox writer and, when enabled, the relay loop.
var Module = fx.Module("outbox",
	fx.Provide(New),
	fx.Provide(func(log *zap.Logger) Publisher { return NewLogPublisher(log) }),
	fx.Invoke(registerRelay),
)

func registerRelay(lc fx.Lifecycle, cfg config.Config, db *gorm.DB, log *zap.Logger, publisher Publisher) {
	if !cfg.OutboxRelayEnabled {
		return
	}

	relay := NewRelay(db, log, publisher, cfg.OutboxRelayInterval, cfg.OutboxRelayBatchSize)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				relay.Run(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}
