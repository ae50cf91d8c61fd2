// Package observability wires logging and metrics from the env config.
package observability

import (
	"go.uber.org/fx"

	"github.com/rideledger/rideledger/internal/config"
	"github.com/rideledger/rideledger/internal/observability/logger"
	"github.com/rideledger/rideledger/internal/observability/metrics"
)

// Module provides the zap logger and metric instruments.
var Module = fx.Module("observability",
	fx.Provide(func(cfg config.Config) logger.Config {
		return logger.Config{
			ServiceName: cfg.AppName,
			Environment: cfg.Environment,
			Version:     cfg.AppVersion,
			Level:       cfg.LogLevel,
			Format:      cfg.LogFormat,
		}
	}),
	fx.Provide(logger.New),
	fx.Provide(func(cfg config.Config) metrics.Config {
		return metrics.Config{
			Enabled:          cfg.MetricsEnabled,
			ExporterEndpoint: cfg.OTLPEndpoint,
			ExporterProtocol: cfg.MetricsProtocol,
			ServiceName:      cfg.AppName,
			Environment:      cfg.Environment,
		}
	}),
	fx.Provide(metrics.NewProvider),
	fx.Provide(metrics.New),
)
