package e2e

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tradeledger/internal/client"
	"github.com/smallbiznis/tradeledger/internal/clock"
	"github.com/smallbiznis/tradeledger/internal/config"
	"github.com/smallbiznis/tradeledger/internal/debt"
	"github.com/smallbiznis/tradeledger/internal/draft"
	"github.com/smallbiznis/tradeledger/internal/invoice"
	"github.com/smallbiznis/tradeledger/internal/ledger"
	"github.com/smallbiznis/tradeledger/internal/migration"
	"github.com/smallbiznis/tradeledger/internal/observability"
	"github.com/smallbiznis/tradeledger/internal/remote"
	"github.com/smallbiznis/tradeledger/internal/server"
	"github.com/smallbiznis/tradeledger/internal/supplier"
	"github.com/smallbiznis/tradeledger/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	app     *fx.App
	db      *gorm.DB
	baseURL string
	httpSrv *httptest.Server
	dir     string
}

var env *testEnv

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)

	dir, err := os.MkdirTemp("", "tradeledger-e2e")
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to create temp dir:", err)
		os.Exit(1)
	}
	setDefaultEnv(dir)

	env, err = startEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to start test environment:", err)
		os.Exit(1)
	}
	env.dir = dir

	code := m.Run()
	env.shutdown()
	os.Exit(code)
}

func startEnv() (*testEnv, error) {
	var (
		srv    *server.Server
		dbConn *gorm.DB
	)

	app := fx.New(
		config.Module,
		observability.Module,
		db.Module,
		clock.Module,
		migration.Module,
		fx.Provide(func() *snowflake.Node {
			node, err := snowflake.NewNode(1)
			if err != nil {
				panic(err)
			}
			return node
		}),
		client.Module,
		supplier.Module,
		ledger.Module,
		debt.Module,
		invoice.Module,
		fx.Provide(server.NewEngine),
		fx.Provide(server.NewServer),
		fx.Populate(&srv, &dbConn),
		fx.NopLogger,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.Start(ctx); err != nil {
		return nil, err
	}

	httpSrv := httptest.NewServer(srv.Engine())
	return &testEnv{
		app:     app,
		db:      dbConn,
		baseURL: httpSrv.URL,
		httpSrv: httpSrv,
	}, nil
}

func (e *testEnv) shutdown() {
	if e == nil {
		return
	}
	if e.httpSrv != nil {
		e.httpSrv.Close()
	}
	if e.app != nil {
		_ = e.app.Stop(context.Background())
	}
	if e.dir != "" {
		_ = os.RemoveAll(e.dir)
	}
}

func setDefaultEnv(dir string) {
	setEnvIfEmpty("ENVIRONMENT", "test")
	setEnvIfEmpty("LOG_LEVEL", "error")
	setEnvIfEmpty("OTEL_ENABLED", "false")
	setEnvIfEmpty("DATABASE_TYPE", "sqlite")
	setEnvIfEmpty("DATABASE_PATH", filepath.Join(dir, "e2e.db"))
}

func setEnvIfEmpty(key, value string) {
	if os.Getenv(key) == "" {
		_ = os.Setenv(key, value)
	}
}

func resetDatabase(t *testing.T, dbConn *gorm.DB) {
	t.Helper()
	models := migration.Models()
	for i := len(models) - 1; i >= 0; i-- {
		err := dbConn.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(models[i]).Error
		require.NoError(t, err)
	}
}

func newRemote() *remote.HTTPClient {
	return remote.NewHTTPClient(remote.HTTPClientConfig{
		BaseURL: env.baseURL,
		Timeout: 5 * time.Second,
	}, zap.NewNop())
}

type fixture struct {
	client   remote.Client
	supplier remote.Supplier
}

func createFixture(t *testing.T, svc *remote.HTTPClient, markup string) fixture {
	t.Helper()
	ctx := context.Background()
	c, err := svc.CreateClient(ctx, "Acme", decimal.RequireFromString(markup))
	require.NoError(t, err)
	s, err := svc.CreateSupplier(ctx, "Steelworks")
	require.NoError(t, err)
	return fixture{client: c, supplier: s}
}

func newDraft(t *testing.T, svc *remote.HTTPClient, fix fixture, number string) *draft.Controller {
	t.Helper()
	ctrl := draft.New(svc, draft.Reference{
		Clients:   []remote.Client{fix.client},
		Suppliers: []remote.Supplier{fix.supplier},
	}, draft.WithClock(clock.NewFakeClock(time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC))))

	require.NoError(t, ctrl.SetInvoiceNumber(number))
	require.NoError(t, ctrl.SelectClient(fix.client.ID))
	require.NoError(t, ctrl.SelectSupplier(fix.supplier.ID))
	require.NoError(t, ctrl.UpdateLineItem(0, draft.FieldMaterialName, "Rebar"))
	require.NoError(t, ctrl.UpdateLineItem(0, draft.FieldQuantity, "10"))
	require.NoError(t, ctrl.UpdateLineItem(0, draft.FieldUnitPrice, "20"))
	require.NoError(t, ctrl.AddLineItem())
	require.NoError(t, ctrl.UpdateLineItem(1, draft.FieldMaterialName, "Wire"))
	require.NoError(t, ctrl.UpdateLineItem(1, draft.FieldQuantity, "2,5"))
	require.NoError(t, ctrl.UpdateLineItem(1, draft.FieldUnitPrice, "20"))
	require.NoError(t, ctrl.UpdateLineItem(1, draft.FieldUnit, "kg"))
	return ctrl
}

func TestE2E_HealthCheck(t *testing.T) {
	resp, err := http.Get(env.baseURL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestE2E_PreviewMatchesPersistedInvoice(t *testing.T) {
	resetDatabase(t, env.db)
	svc := newRemote()
	fix := createFixture(t, svc, "15")

	ctrl := newDraft(t, svc, fix, "INV-1")
	preview := ctrl.Quote()
	assert.Equal(t, "250", preview.Subtotal.String())
	assert.Equal(t, "287.5", preview.GrandTotal.String())

	result, err := ctrl.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, draft.StateSucceeded, ctrl.Snapshot().State)

	inv := result.Invoice
	assert.True(t, preview.Subtotal.Equal(inv.TotalAmount), "subtotal %s vs %s", preview.Subtotal, inv.TotalAmount)
	assert.True(t, preview.MarkupAmount.Equal(inv.MarkupAmount))
	assert.True(t, preview.GrandTotal.Equal(inv.TotalWithMarkup))
	assert.True(t, decimal.NewFromInt(15).Equal(inv.MarkupPercentage))
	require.Len(t, inv.Items, 2)
	assert.Equal(t, "kg", inv.Items[1].Unit)
	assert.True(t, decimal.RequireFromString("50").Equal(inv.Items[1].TotalPrice))

	assert.True(t, preview.GrandTotal.Equal(result.Transaction.Amount))
	assert.True(t, preview.GrandTotal.Equal(result.ClientDebt.Amount))
	assert.True(t, preview.Subtotal.Equal(result.SupplierDebt.Amount))

	invoices, err := svc.FetchInvoices(context.Background())
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Equal(t, "Acme", invoices[0].Client.Name)
	assert.Equal(t, "Steelworks", invoices[0].Supplier.Name)
	assert.Equal(t, "2024-05-02", invoices[0].Date.Format("2006-01-02"))
	assert.True(t, preview.Subtotal.Equal(invoices[0].TotalAmount), "stored subtotal %s", invoices[0].TotalAmount)
	assert.True(t, preview.MarkupAmount.Equal(invoices[0].MarkupAmount), "stored markup %s", invoices[0].MarkupAmount)
	assert.True(t, preview.GrandTotal.Equal(invoices[0].TotalWithMarkup), "stored total %s", invoices[0].TotalWithMarkup)
	require.Len(t, invoices[0].Items, 2)
	assert.True(t, decimal.RequireFromString("2.5").Equal(invoices[0].Items[1].Quantity))

	debts, err := svc.FetchDebts(context.Background())
	require.NoError(t, err)
	require.Len(t, debts, 2)
	byType := map[remote.DebtType]remote.Debt{}
	for _, d := range debts {
		byType[d.DebtType] = d
	}
	assert.Equal(t, "Acme", byType[remote.DebtTypeClient].Counterparty())
	assert.Equal(t, "Steelworks", byType[remote.DebtTypeSupplier].Counterparty())
	assert.Equal(t, "INV-1", byType[remote.DebtTypeClient].Invoice.InvoiceNumber)
	assert.False(t, byType[remote.DebtTypeSupplier].IsPaid)
}

func TestE2E_FractionalInputsRoundTrip(t *testing.T) {
	resetDatabase(t, env.db)
	svc := newRemote()
	fix := createFixture(t, svc, "10")
	ctx := context.Background()

	ctrl := newDraft(t, svc, fix, "INV-F")
	require.NoError(t, ctrl.UpdateLineItem(0, draft.FieldQuantity, "0,125"))
	require.NoError(t, ctrl.UpdateLineItem(0, draft.FieldUnitPrice, "1.99"))
	require.NoError(t, ctrl.UpdateLineItem(1, draft.FieldUnitPrice, "3.3333"))

	preview := ctrl.Quote()
	assert.Equal(t, "8.582", preview.Subtotal.String())
	assert.Equal(t, "0.8582", preview.MarkupAmount.String())
	assert.Equal(t, "9.4402", preview.GrandTotal.String())

	result, err := ctrl.Submit(ctx)
	require.NoError(t, err)
	assert.True(t, preview.GrandTotal.Equal(result.Invoice.TotalWithMarkup))

	invoices, err := svc.FetchInvoices(ctx)
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	stored := invoices[0]
	assert.True(t, preview.Subtotal.Equal(stored.TotalAmount), "stored subtotal %s", stored.TotalAmount)
	assert.True(t, preview.MarkupAmount.Equal(stored.MarkupAmount), "stored markup %s", stored.MarkupAmount)
	assert.True(t, preview.GrandTotal.Equal(stored.TotalWithMarkup), "stored total %s", stored.TotalWithMarkup)
	assert.True(t, stored.TotalWithMarkup.Equal(stored.TotalAmount.Add(stored.MarkupAmount)))
	require.Len(t, stored.Items, 2)
	assert.True(t, decimal.RequireFromString("0.24875").Equal(stored.Items[0].TotalPrice))
	assert.True(t, decimal.RequireFromString("8.33325").Equal(stored.Items[1].TotalPrice))

	debts, err := svc.FetchDebts(ctx)
	require.NoError(t, err)
	require.Len(t, debts, 2)
	for _, d := range debts {
		want := preview.Subtotal
		if d.DebtType == remote.DebtTypeClient {
			want = preview.GrandTotal
		}
		assert.True(t, want.Equal(d.Amount), "%s debt %s", d.DebtType, d.Amount)
	}
}

func TestE2E_ZeroMarkupClient(t *testing.T) {
	resetDatabase(t, env.db)
	svc := newRemote()
	fix := createFixture(t, svc, "0")

	ctrl := newDraft(t, svc, fix, "INV-0")
	preview := ctrl.Quote()
	assert.True(t, preview.HasMarkup)
	assert.True(t, preview.MarkupAmount.IsZero())

	result, err := ctrl.Submit(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Invoice.TotalWithMarkup.Equal(result.Invoice.TotalAmount))
	assert.True(t, preview.GrandTotal.Equal(result.Invoice.TotalWithMarkup))
}

func TestE2E_DuplicateInvoiceNumberKeepsDraft(t *testing.T) {
	resetDatabase(t, env.db)
	svc := newRemote()
	fix := createFixture(t, svc, "15")

	_, err := newDraft(t, svc, fix, "INV-7").Submit(context.Background())
	require.NoError(t, err)

	second := newDraft(t, svc, fix, "INV-7")
	_, err = second.Submit(context.Background())
	require.Error(t, err)

	var apiErr *remote.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.Status)

	snap := second.Snapshot()
	assert.Equal(t, draft.StateFailed, snap.State)
	assert.Equal(t, "Invoice was not created: invoice number already exists", snap.Error)
	assert.Equal(t, "INV-7", snap.Draft.InvoiceNumber)
	assert.Len(t, snap.Draft.Items, 2)

	invoices, err := svc.FetchInvoices(context.Background())
	require.NoError(t, err)
	assert.Len(t, invoices, 1)
}

func TestE2E_ServerRejectsBadItemWithFieldPath(t *testing.T) {
	resetDatabase(t, env.db)
	svc := newRemote()
	fix := createFixture(t, svc, "15")

	_, err := svc.CreateInvoice(context.Background(), remote.CreateInvoiceInput{
		InvoiceNumber: "INV-9",
		Date:          time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC),
		ClientID:      fix.client.ID,
		SupplierID:    fix.supplier.ID,
		Items: []remote.CreateInvoiceItemInput{
			{MaterialName: "Rebar", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(5), Unit: "pcs"},
			{MaterialName: "Wire", Quantity: decimal.Zero, UnitPrice: decimal.NewFromInt(5), Unit: "pcs"},
		},
	})

	var apiErr *remote.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	require.NotEmpty(t, apiErr.Errors)
	assert.Equal(t, "items[1].quantity", apiErr.Errors[0].Field)

	var count int64
	require.NoError(t, env.db.Table("invoices").Count(&count).Error)
	assert.Zero(t, count)
}
