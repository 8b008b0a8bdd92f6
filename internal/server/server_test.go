package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	clientdomain "github.com/smallbiznis/tradeledger/internal/client/domain"
	debtdomain "github.com/smallbiznis/tradeledger/internal/debt/domain"
	invoicedomain "github.com/smallbiznis/tradeledger/internal/invoice/domain"
	ledgerdomain "github.com/smallbiznis/tradeledger/internal/ledger/domain"
	"github.com/smallbiznis/tradeledger/internal/config"
	obsmetrics "github.com/smallbiznis/tradeledger/internal/observability/metrics"
	"github.com/smallbiznis/tradeledger/internal/ratelimit"
	supplierdomain "github.com/smallbiznis/tradeledger/internal/supplier/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockClientSvc struct{ mock.Mock }

func (m *mockClientSvc) Create(ctx context.Context, req clientdomain.CreateClientRequest) (clientdomain.Client, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(clientdomain.Client), args.Error(1)
}

func (m *mockClientSvc) List(ctx context.Context) ([]clientdomain.Client, error) {
	args := m.Called(ctx)
	return args.Get(0).([]clientdomain.Client), args.Error(1)
}

func (m *mockClientSvc) GetByID(ctx context.Context, req clientdomain.GetClientRequest) (clientdomain.Client, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(clientdomain.Client), args.Error(1)
}

type mockSupplierSvc struct{ mock.Mock }

func (m *mockSupplierSvc) Create(ctx context.Context, req supplierdomain.CreateSupplierRequest) (supplierdomain.Supplier, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(supplierdomain.Supplier), args.Error(1)
}

func (m *mockSupplierSvc) List(ctx context.Context) ([]supplierdomain.Supplier, error) {
	args := m.Called(ctx)
	return args.Get(0).([]supplierdomain.Supplier), args.Error(1)
}

func (m *mockSupplierSvc) GetByID(ctx context.Context, req supplierdomain.GetSupplierRequest) (supplierdomain.Supplier, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(supplierdomain.Supplier), args.Error(1)
}

type mockInvoiceSvc struct{ mock.Mock }

func (m *mockInvoiceSvc) Create(ctx context.Context, req invoicedomain.CreateInvoiceRequest) (invoicedomain.CreateInvoiceResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(invoicedomain.CreateInvoiceResult), args.Error(1)
}

func (m *mockInvoiceSvc) List(ctx context.Context) ([]invoicedomain.Invoice, error) {
	args := m.Called(ctx)
	return args.Get(0).([]invoicedomain.Invoice), args.Error(1)
}

func (m *mockInvoiceSvc) GetByID(ctx context.Context, id string) (invoicedomain.Invoice, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(invoicedomain.Invoice), args.Error(1)
}

type mockLedgerSvc struct{ mock.Mock }

func (m *mockLedgerSvc) List(ctx context.Context, req ledgerdomain.ListTransactionRequest) ([]ledgerdomain.Transaction, error) {
	args := m.Called(ctx, req)
	return args.Get(0).([]ledgerdomain.Transaction), args.Error(1)
}

func (m *mockLedgerSvc) GetByID(ctx context.Context, id string) (ledgerdomain.Transaction, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(ledgerdomain.Transaction), args.Error(1)
}

type mockDebtSvc struct{ mock.Mock }

func (m *mockDebtSvc) List(ctx context.Context, req debtdomain.ListDebtRequest) ([]debtdomain.Debt, error) {
	args := m.Called(ctx, req)
	return args.Get(0).([]debtdomain.Debt), args.Error(1)
}

func (m *mockDebtSvc) ListByClient(ctx context.Context, clientID string) ([]debtdomain.Debt, error) {
	args := m.Called(ctx, clientID)
	return args.Get(0).([]debtdomain.Debt), args.Error(1)
}

func (m *mockDebtSvc) ListBySupplier(ctx context.Context, supplierID string) ([]debtdomain.Debt, error) {
	args := m.Called(ctx, supplierID)
	return args.Get(0).([]debtdomain.Debt), args.Error(1)
}

type testServer struct {
	engine    *gin.Engine
	clients   *mockClientSvc
	suppliers *mockSupplierSvc
	invoices  *mockInvoiceSvc
	ledger    *mockLedgerSvc
	debts     *mockDebtSvc
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	return newLimitedTestServer(t, nil)
}

func newLimitedTestServer(t *testing.T, limiter *ratelimit.WriteLimiter) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := prometheus.NewRegistry()
	httpMetrics, err := obsmetrics.NewHTTPMetrics(obsmetrics.Config{ServiceName: "test"}, reg)
	require.NoError(t, err)

	ts := testServer{
		engine:    NewEngine(EngineParams{Log: zap.NewNop(), HTTPMetrics: httpMetrics, Gatherer: reg}),
		clients:   &mockClientSvc{},
		suppliers: &mockSupplierSvc{},
		invoices:  &mockInvoiceSvc{},
		ledger:    &mockLedgerSvc{},
		debts:     &mockDebtSvc{},
	}
	NewServer(ServerParams{
		Gin:         ts.engine,
		ClientSvc:   ts.clients,
		SupplierSvc: ts.suppliers,
		InvoiceSvc:  ts.invoices,
		LedgerSvc:   ts.ledger,
		DebtSvc:     ts.debts,
		Limiter:     limiter,
	})
	return ts
}

func (ts testServer) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = ts.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tradeledger_http_requests_total")
}

func TestCreateClientHandler(t *testing.T) {
	ts := newTestServer(t)
	ts.clients.On("Create", mock.Anything, mock.MatchedBy(func(req clientdomain.CreateClientRequest) bool {
		return req.Name == "Acme" && req.MarkupPercentage.Equal(decimal.RequireFromString("12.5"))
	})).Return(clientdomain.Client{ID: 7, Name: "Acme", MarkupPercentage: decimal.RequireFromString("12.5")}, nil)

	w := ts.do(http.MethodPost, "/api/clients", `{"name":" Acme ","markup_percentage":12.5}`)

	require.Equal(t, http.StatusCreated, w.Code)
	var resp struct {
		Data struct {
			ID               string `json:"id"`
			MarkupPercentage string `json:"markup_percentage"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "7", resp.Data.ID)
	assert.Equal(t, "12.5", resp.Data.MarkupPercentage)
	ts.clients.AssertExpectations(t)
}

func TestCreateClientValidationEnvelope(t *testing.T) {
	ts := newTestServer(t)
	ts.clients.On("Create", mock.Anything, mock.Anything).Return(clientdomain.Client{}, clientdomain.ErrInvalidMarkup)

	w := ts.do(http.MethodPost, "/api/clients", `{"name":"Acme","markup_percentage":"-1"}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	payload := decodeError(t, w)
	assert.Equal(t, "validation_error", payload.Type)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "markup_percentage", payload.Errors[0].Field)
}

func TestMalformedJSONIsInvalidRequest(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodPost, "/api/suppliers", `{"name":`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	payload := decodeError(t, w)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "request", payload.Errors[0].Field)
	ts.suppliers.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateInvoiceHandlerPassesDecimalsThrough(t *testing.T) {
	ts := newTestServer(t)
	ts.invoices.On("Create", mock.Anything, mock.MatchedBy(func(req invoicedomain.CreateInvoiceRequest) bool {
		return req.InvoiceNumber == "INV-1" &&
			req.Date.Equal(time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)) &&
			req.ClientID == "11" && req.SupplierID == "22" &&
			len(req.Items) == 1 &&
			req.Items[0].Quantity.Equal(decimal.RequireFromString("1.5")) &&
			req.Items[0].UnitPrice.Equal(decimal.RequireFromString("0.1"))
	})).Return(invoicedomain.CreateInvoiceResult{
		Invoice: invoicedomain.Invoice{ID: 99, InvoiceNumber: "INV-1"},
	}, nil)

	body := `{"invoice_number":"INV-1","date":"2024-05-02","client_id":"11","supplier_id":"22",
		"items":[{"material_name":"Sand","quantity":"1.5","unit_price":0.1,"unit":"kg"}]}`
	w := ts.do(http.MethodPost, "/api/invoices", body)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"invoice_number":"INV-1"`)
	ts.invoices.AssertExpectations(t)
}

func TestCreateInvoiceRejectsBadDate(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodPost, "/api/invoices", `{"invoice_number":"INV-1","date":"02/05/2024"}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "date", decodeError(t, w).Errors[0].Field)
	ts.invoices.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateInvoiceErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		errType string
		field   string
	}{
		{name: "item", err: &invoicedomain.ItemError{Index: 2, Err: invoicedomain.ErrInvalidQuantity}, status: http.StatusBadRequest, errType: "validation_error", field: "items[2].quantity"},
		{name: "no items", err: invoicedomain.ErrNoItems, status: http.StatusBadRequest, errType: "validation_error", field: "items"},
		{name: "missing client", err: invoicedomain.ErrClientNotFound, status: http.StatusNotFound, errType: "not_found"},
		{name: "duplicate", err: invoicedomain.ErrDuplicateInvoiceNumber, status: http.StatusConflict, errType: "conflict"},
		{name: "unexpected", err: assert.AnError, status: http.StatusInternalServerError, errType: "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.invoices.On("Create", mock.Anything, mock.Anything).Return(invoicedomain.CreateInvoiceResult{}, tt.err)

			w := ts.do(http.MethodPost, "/api/invoices", `{"invoice_number":"INV-1","date":"2024-05-02"}`)

			require.Equal(t, tt.status, w.Code)
			payload := decodeError(t, w)
			assert.Equal(t, tt.errType, payload.Type)
			if tt.field != "" {
				require.Len(t, payload.Errors, 1)
				assert.Equal(t, tt.field, payload.Errors[0].Field)
			}
		})
	}
}

func TestDebtRoutes(t *testing.T) {
	ts := newTestServer(t)
	ts.debts.On("List", mock.Anything, debtdomain.ListDebtRequest{DebtType: "supplier"}).Return([]debtdomain.Debt{{ID: 1}}, nil)
	ts.debts.On("ListByClient", mock.Anything, "5").Return([]debtdomain.Debt{}, nil)
	ts.debts.On("List", mock.Anything, debtdomain.ListDebtRequest{DebtType: "nope"}).Return([]debtdomain.Debt(nil), debtdomain.ErrInvalidDebtType)

	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/debts?type=supplier", "").Code)
	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/clients/5/debts", "").Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodGet, "/api/debts?type=nope", "").Code)
	ts.debts.AssertExpectations(t)
}

func TestNotFoundRoutes(t *testing.T) {
	ts := newTestServer(t)
	ts.ledger.On("GetByID", mock.Anything, "3").Return(ledgerdomain.Transaction{}, ledgerdomain.ErrNotFound)

	w := ts.do(http.MethodGet, "/api/transactions/3", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "transaction not found", decodeError(t, w).Message)

	w = ts.do(http.MethodGet, "/api/unknown", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWritesPassWhenRedisIsDown(t *testing.T) {
	limiter, err := ratelimit.NewWriteLimiter(config.Config{RateLimit: config.RateLimitConfig{
		Enabled:    true,
		RedisAddr:  "127.0.0.1:1",
		WriteRate:  1,
		WriteBurst: 1,
	}}, zap.NewNop())
	require.NoError(t, err)

	ts := newLimitedTestServer(t, limiter)
	ts.suppliers.On("Create", mock.Anything, mock.Anything).
		Return(supplierdomain.Supplier{ID: 3, Name: "Steelworks"}, nil)

	w := ts.do(http.MethodPost, "/api/suppliers", `{"name":"Steelworks"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestLimiterErrorsMapToEnvelope(t *testing.T) {
	status, payload := mapError(ErrRateLimited)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "rate_limited", payload.Type)

	status, payload = mapError(ErrInvoiceInProgress)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "conflict", payload.Type)
}
