package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/smallbiznis/tradeledger/internal/clock"
	"github.com/smallbiznis/tradeledger/internal/config"
	"github.com/smallbiznis/tradeledger/internal/console"
	"github.com/smallbiznis/tradeledger/internal/observability/logger"
	"github.com/smallbiznis/tradeledger/internal/pricing"
	"github.com/smallbiznis/tradeledger/internal/remote"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()

	// The terminal belongs to the UI, so logs go to a file.
	log, err := logger.New(nil, logger.Config{
		ServiceName: cfg.AppName + "-console",
		Environment: cfg.Environment,
		Version:     cfg.AppVersion,
		Level:       cfg.Telemetry.LogLevel,
		OutputPaths: []string{cfg.Console.LogFile},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	billing, err := config.NewBillingConfigHolder(log)
	if err != nil {
		return fmt.Errorf("load billing config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := remote.NewHTTPClient(remote.HTTPClientConfigFrom(cfg.Console), log)
	model := console.New(ctx, console.Deps{
		Service: svc,
		Log:     log,
		Money:   pricing.MoneyFormat{Locale: cfg.Console.CurrencyLocale, Symbol: cfg.Console.CurrencySymbol},
		Units:   billing.Get().Units,
		Clock:   clock.New(),
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	stop := model.Watch(p.Send)
	defer stop()

	log.Info("console started", zap.String("api_base_url", cfg.Console.APIBaseURL))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run console: %w", err)
	}
	return nil
}
