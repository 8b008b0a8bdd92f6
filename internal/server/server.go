package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/tradeledger/internal/client"
	clientdomain "github.com/smallbiznis/tradeledger/internal/client/domain"
	"github.com/smallbiznis/tradeledger/internal/config"
	"github.com/smallbiznis/tradeledger/internal/debt"
	debtdomain "github.com/smallbiznis/tradeledger/internal/debt/domain"
	"github.com/smallbiznis/tradeledger/internal/invoice"
	invoicedomain "github.com/smallbiznis/tradeledger/internal/invoice/domain"
	"github.com/smallbiznis/tradeledger/internal/ledger"
	ledgerdomain "github.com/smallbiznis/tradeledger/internal/ledger/domain"
	obslogger "github.com/smallbiznis/tradeledger/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/tradeledger/internal/observability/metrics"
	obstracing "github.com/smallbiznis/tradeledger/internal/observability/tracing"
	"github.com/smallbiznis/tradeledger/internal/ratelimit"
	"github.com/smallbiznis/tradeledger/internal/supplier"
	supplierdomain "github.com/smallbiznis/tradeledger/internal/supplier/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	client.Module,
	supplier.Module,
	ledger.Module,
	debt.Module,
	invoice.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

type EngineParams struct {
	fx.In

	Log         *zap.Logger
	HTTPMetrics *obsmetrics.HTTPMetrics `optional:"true"`
	Gatherer    prometheus.Gatherer     `optional:"true"`
}

func NewEngine(p EngineParams) *gin.Engine {
	gatherer := p.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Base:            p.Log,
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	if p.HTTPMetrics != nil {
		r.Use(p.HTTPMetrics.GinMiddleware())
	}
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	clientSvc   clientdomain.Service
	supplierSvc supplierdomain.Service
	invoiceSvc  invoicedomain.Service
	ledgerSvc   ledgerdomain.Service
	debtSvc     debtdomain.Service
	limiter     *ratelimit.WriteLimiter
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	ClientSvc   clientdomain.Service
	SupplierSvc supplierdomain.Service
	InvoiceSvc  invoicedomain.Service
	LedgerSvc   ledgerdomain.Service
	DebtSvc     debtdomain.Service
	Limiter     *ratelimit.WriteLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		clientSvc:   p.ClientSvc,
		supplierSvc: p.SupplierSvc,
		invoiceSvc:  p.InvoiceSvc,
		ledgerSvc:   p.LedgerSvc,
		debtSvc:     p.DebtSvc,
		limiter:     p.Limiter,
	}

	svc.registerAPIRoutes()
	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.GET("/clients", s.ListClients)
	api.POST("/clients", s.limitWrites, s.CreateClient)
	api.GET("/clients/:id", s.GetClientByID)
	api.GET("/clients/:id/debts", s.ListClientDebts)

	api.GET("/suppliers", s.ListSuppliers)
	api.POST("/suppliers", s.limitWrites, s.CreateSupplier)
	api.GET("/suppliers/:id", s.GetSupplierByID)
	api.GET("/suppliers/:id/debts", s.ListSupplierDebts)

	api.GET("/invoices", s.ListInvoices)
	api.POST("/invoices", s.limitWrites, s.CreateInvoice)
	api.GET("/invoices/:id", s.GetInvoiceByID)

	api.GET("/transactions", s.ListTransactions)
	api.GET("/transactions/:id", s.GetTransactionByID)

	api.GET("/debts", s.ListDebts)

	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
