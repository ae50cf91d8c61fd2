package main

import (
	"os"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/rideledger/rideledger/internal/account"
	"github.com/rideledger/rideledger/internal/config"
	"github.com/rideledger/rideledger/internal/invoice"
	"github.com/rideledger/rideledger/internal/migration"
	"github.com/rideledger/rideledger/internal/observability"
	"github.com/rideledger/rideledger/internal/outbox"
	"github.com/rideledger/rideledger/internal/server"
	"github.com/rideledger/rideledger/pkg/db"
)

func newSnowflakeNode() (*snowflake.Node, error) {
	nodeID := int64(1)
	if raw := os.Getenv("SNOWFLAKE_NODE_ID"); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil {
			nodeID = parsed
		}
	}
	return snowflake.NewNode(nodeID)
}

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		db.Module,
		migration.Module,
		fx.Provide(newSnowflakeNode),
		outbox.Module,
		account.Module,
		invoice.Module,
		server.Module,
		fx.WithLogger(fxZapLogger),
	)
	app.Run()
}

func fxZapLogger(log *zap.Logger) fxevent.Logger {
	return &fxevent.ZapLogger{Logger: log.Named("fx")}
}
