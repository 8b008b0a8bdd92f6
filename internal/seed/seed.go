package seed

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	clientdomain "github.com/smallbiznis/tradeledger/internal/client/domain"
	"github.com/smallbiznis/tradeledger/internal/clock"
	"github.com/smallbiznis/tradeledger/internal/config"
	supplierdomain "github.com/smallbiznis/tradeledger/internal/supplier/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var demoClients = []struct {
	name   string
	markup string
}{
	{"Acme Trading", "15"},
	{"Northwind Retail", "7.5"},
	{"Walk-in Customer", "0"},
}

var demoSuppliers = []string{
	"Steelworks Ltd",
	"Baltic Timber",
}

var Module = fx.Module("seed",
	fx.Invoke(func(cfg config.Config, conn *gorm.DB, node *snowflake.Node, clk clock.Clock, log *zap.Logger) error {
		if !cfg.SeedDemoData {
			return nil
		}
		if err := EnsureDemoData(context.Background(), conn, node, clk); err != nil {
			return err
		}
		log.Named("seed").Info("demo data ensured")
		return nil
	}),
)

// EnsureDemoData inserts the demo clients and suppliers that are missing by
// name. Running it again is a no-op.
func EnsureDemoData(ctx context.Context, db *gorm.DB, node *snowflake.Node, clk clock.Clock) error {
	if db == nil || node == nil || clk == nil {
		return errors.New("seed dependencies are required")
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := clk.Now().UTC()
		for _, demo := range demoClients {
			var existing clientdomain.Client
			err := tx.Where("name = ?", demo.name).First(&existing).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			client := clientdomain.Client{
				ID:               node.Generate(),
				Name:             demo.name,
				MarkupPercentage: decimal.RequireFromString(demo.markup),
				CreatedAt:        now,
				UpdatedAt:        now,
			}
			if err := tx.Create(&client).Error; err != nil {
				return err
			}
		}

		for _, name := range demoSuppliers {
			var existing supplierdomain.Supplier
			err := tx.Where("name = ?", name).First(&existing).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			supplier := supplierdomain.Supplier{
				ID:        node.Generate(),
				Name:      name,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := tx.Create(&supplier).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
