package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tradeledger/internal/clock"
	"github.com/smallbiznis/tradeledger/internal/config"
	"github.com/smallbiznis/tradeledger/internal/migration"
	"github.com/smallbiznis/tradeledger/internal/observability"
	"github.com/smallbiznis/tradeledger/internal/scheduler"
	"github.com/smallbiznis/tradeledger/internal/seed"
	"github.com/smallbiznis/tradeledger/internal/server"
	"github.com/smallbiznis/tradeledger/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Schema first, then routes.
		migration.Module,
		seed.Module,
		server.Module,
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
