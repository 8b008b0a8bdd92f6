package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	clientdomain "github.com/smallbiznis/tradeledger/internal/client/domain"
	"github.com/smallbiznis/tradeledger/internal/clock"
	"github.com/smallbiznis/tradeledger/internal/config"
	debtdomain "github.com/smallbiznis/tradeledger/internal/debt/domain"
	invoicedomain "github.com/smallbiznis/tradeledger/internal/invoice/domain"
	ledgerdomain "github.com/smallbiznis/tradeledger/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/tradeledger/internal/observability/metrics"
	"github.com/smallbiznis/tradeledger/internal/pricing"
	supplierdomain "github.com/smallbiznis/tradeledger/internal/supplier/domain"
	"github.com/smallbiznis/tradeledger/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Billing      *config.BillingConfigHolder
	Repo         invoicedomain.Repository
	ClientRepo   clientdomain.Repository
	SupplierRepo supplierdomain.Repository
	LedgerRepo   ledgerdomain.Repository
	DebtRepo     debtdomain.Repository
	ObsMetrics   *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	billing      *config.BillingConfigHolder
	repo         invoicedomain.Repository
	clientRepo   clientdomain.Repository
	supplierRepo supplierdomain.Repository
	ledgerRepo   ledgerdomain.Repository
	debtRepo     debtdomain.Repository
	obsMetrics   *obsmetrics.Metrics
}

func New(p Params) invoicedomain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("invoice.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		billing:      p.Billing,
		repo:         p.Repo,
		clientRepo:   p.ClientRepo,
		supplierRepo: p.SupplierRepo,
		ledgerRepo:   p.LedgerRepo,
		debtRepo:     p.DebtRepo,
		obsMetrics:   p.ObsMetrics,
	}
}

type validatedRequest struct {
	number      string
	date        time.Time
	clientID    snowflake.ID
	supplierID  snowflake.ID
	description string
	items       []invoicedomain.CreateInvoiceItem
}

// Create records the invoice, its ledger transaction, and both debts in one
// database transaction. Nothing is written when any step fails.
func (s *Service) Create(ctx context.Context, req invoicedomain.CreateInvoiceRequest) (invoicedomain.CreateInvoiceResult, error) {
	terms := s.billing.Get()

	in, err := s.validate(req, terms)
	if err != nil {
		s.obsMetrics.RecordInvoiceFailure(ctx, "validation")
		return invoicedomain.CreateInvoiceResult{}, err
	}

	var result invoicedomain.CreateInvoiceResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		client, err := s.clientRepo.FindByID(ctx, tx, in.clientID)
		if err != nil {
			return err
		}
		if client == nil {
			return invoicedomain.ErrClientNotFound
		}

		supplier, err := s.supplierRepo.FindByID(ctx, tx, in.supplierID)
		if err != nil {
			return err
		}
		if supplier == nil {
			return invoicedomain.ErrSupplierNotFound
		}

		lines := make([]pricing.Line, 0, len(in.items))
		for _, item := range in.items {
			lines = append(lines, pricing.Line{Quantity: item.Quantity, UnitPrice: item.UnitPrice})
		}
		markup := client.MarkupPercentage
		quote := pricing.Compute(lines, &markup)

		now := s.clock.Now()
		invoice := invoicedomain.Invoice{
			ID:               s.genID.Generate(),
			InvoiceNumber:    in.number,
			Date:             in.date,
			Description:      in.description,
			ClientID:         client.ID,
			SupplierID:       supplier.ID,
			TotalAmount:      quote.Subtotal,
			MarkupPercentage: quote.MarkupPercentage,
			MarkupAmount:     quote.MarkupAmount,
			TotalWithMarkup:  quote.GrandTotal,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		invoice.Items = make([]invoicedomain.InvoiceItem, 0, len(in.items))
		for i, item := range in.items {
			invoice.Items = append(invoice.Items, invoicedomain.InvoiceItem{
				ID:           s.genID.Generate(),
				InvoiceID:    invoice.ID,
				Position:     i,
				MaterialName: item.MaterialName,
				Quantity:     item.Quantity,
				UnitPrice:    item.UnitPrice,
				Unit:         item.Unit,
				TotalPrice:   pricing.LineTotal(lines[i]),
			})
		}

		if err := s.repo.Insert(ctx, tx, &invoice); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return invoicedomain.ErrDuplicateInvoiceNumber
			}
			return err
		}

		transaction := ledgerdomain.Transaction{
			ID:              s.genID.Generate(),
			TransactionType: ledgerdomain.TransactionTypeInvoice,
			Amount:          quote.GrandTotal,
			Description:     ledgerdomain.InvoiceDescription(invoice.InvoiceNumber, quote.MarkupPercentage),
			Date:            invoice.Date,
			InvoiceID:       invoice.ID,
			Metadata: datatypes.JSONMap{
				"subtotal":          quote.Subtotal.String(),
				"markup_percentage": quote.MarkupPercentage.String(),
				"markup_amount":     quote.MarkupAmount.String(),
			},
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.ledgerRepo.Insert(ctx, tx, &transaction); err != nil {
			return err
		}

		ref := &debtdomain.InvoiceRef{ID: invoice.ID, InvoiceNumber: invoice.InvoiceNumber, Date: invoice.Date}
		clientDue := invoice.Date.AddDate(0, 0, terms.ClientDueDays)
		clientDebt := debtdomain.Debt{
			ID:        s.genID.Generate(),
			Amount:    quote.GrandTotal,
			DebtType:  debtdomain.DebtTypeClient,
			DueDate:   &clientDue,
			InvoiceID: invoice.ID,
			ClientID:  &client.ID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.debtRepo.Insert(ctx, tx, &clientDebt); err != nil {
			return err
		}

		supplierDue := invoice.Date.AddDate(0, 0, terms.SupplierDueDays)
		supplierDebt := debtdomain.Debt{
			ID:         s.genID.Generate(),
			Amount:     quote.Subtotal,
			DebtType:   debtdomain.DebtTypeSupplier,
			DueDate:    &supplierDue,
			InvoiceID:  invoice.ID,
			SupplierID: &supplier.ID,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.debtRepo.Insert(ctx, tx, &supplierDebt); err != nil {
			return err
		}

		invoice.Client = client
		invoice.Supplier = supplier
		clientDebt.Client, clientDebt.Invoice = client, ref
		supplierDebt.Supplier, supplierDebt.Invoice = supplier, ref

		result = invoicedomain.CreateInvoiceResult{
			Invoice:      invoice,
			Transaction:  transaction,
			ClientDebt:   clientDebt,
			SupplierDebt: supplierDebt,
		}
		return nil
	})
	if err != nil {
		s.obsMetrics.RecordInvoiceFailure(ctx, failureReason(err))
		s.log.Warn("invoice creation failed",
			zap.String("invoice_number", in.number),
			zap.Error(err),
		)
		return invoicedomain.CreateInvoiceResult{}, err
	}

	total, _ := result.Invoice.TotalWithMarkup.Float64()
	s.obsMetrics.RecordInvoiceCreated(ctx, total)
	s.obsMetrics.RecordDebt(ctx, string(debtdomain.DebtTypeClient))
	s.obsMetrics.RecordDebt(ctx, string(debtdomain.DebtTypeSupplier))
	s.log.Info("invoice created",
		zap.String("invoice_id", result.Invoice.ID.String()),
		zap.String("invoice_number", result.Invoice.InvoiceNumber),
		zap.String("total_with_markup", result.Invoice.TotalWithMarkup.String()),
	)
	return result, nil
}

func (s *Service) validate(req invoicedomain.CreateInvoiceRequest, terms config.BillingConfig) (validatedRequest, error) {
	number := strings.TrimSpace(req.InvoiceNumber)
	if number == "" || len(number) > 50 {
		return validatedRequest{}, invoicedomain.ErrInvalidInvoiceNumber
	}
	if req.Date.IsZero() {
		return validatedRequest{}, invoicedomain.ErrInvalidDate
	}

	clientID, err := snowflake.ParseString(strings.TrimSpace(req.ClientID))
	if err != nil || clientID == 0 {
		return validatedRequest{}, invoicedomain.ErrInvalidClient
	}
	supplierID, err := snowflake.ParseString(strings.TrimSpace(req.SupplierID))
	if err != nil || supplierID == 0 {
		return validatedRequest{}, invoicedomain.ErrInvalidSupplier
	}

	if len(req.Items) == 0 {
		return validatedRequest{}, invoicedomain.ErrNoItems
	}
	items := make([]invoicedomain.CreateInvoiceItem, 0, len(req.Items))
	for i, item := range req.Items {
		item.MaterialName = strings.TrimSpace(item.MaterialName)
		item.Unit = strings.TrimSpace(item.Unit)
		switch {
		case item.MaterialName == "" || len(item.MaterialName) > 100:
			return validatedRequest{}, &invoicedomain.ItemError{Index: i, Err: invoicedomain.ErrInvalidMaterialName}
		case !item.Quantity.GreaterThan(decimal.Zero) || !pricing.WithinScale(item.Quantity):
			return validatedRequest{}, &invoicedomain.ItemError{Index: i, Err: invoicedomain.ErrInvalidQuantity}
		case !item.UnitPrice.GreaterThan(decimal.Zero) || !pricing.WithinScale(item.UnitPrice):
			return validatedRequest{}, &invoicedomain.ItemError{Index: i, Err: invoicedomain.ErrInvalidUnitPrice}
		case !terms.AllowsUnit(item.Unit):
			return validatedRequest{}, &invoicedomain.ItemError{Index: i, Err: invoicedomain.ErrInvalidUnit}
		}
		items = append(items, item)
	}

	return validatedRequest{
		number:      number,
		date:        truncateToDay(req.Date),
		clientID:    clientID,
		supplierID:  supplierID,
		description: strings.TrimSpace(req.Description),
		items:       items,
	}, nil
}

func (s *Service) List(ctx context.Context) ([]invoicedomain.Invoice, error) {
	items, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}

	invoices := make([]invoicedomain.Invoice, 0, len(items))
	for _, item := range items {
		if item != nil {
			invoices = append(invoices, *item)
		}
	}
	return invoices, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (invoicedomain.Invoice, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || parsed == 0 {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if item == nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrNotFound
	}
	return *item, nil
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, invoicedomain.ErrClientNotFound), errors.Is(err, invoicedomain.ErrSupplierNotFound):
		return "not_found"
	case errors.Is(err, invoicedomain.ErrDuplicateInvoiceNumber):
		return "duplicate"
	default:
		return "internal"
	}
}
