package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tradeledger/internal/config"
	obscontext "github.com/smallbiznis/tradeledger/internal/observability/context"
	obstracing "github.com/smallbiznis/tradeledger/internal/observability/tracing"
	"go.uber.org/zap"
)

const (
	requestIDHeader       = "X-Request-Id"
	defaultRequestTimeout = 10 * time.Second
	dateLayout            = "2006-01-02"
	maxErrorBodyBytes     = 64 << 10
)

type HTTPClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

// HTTPClientConfigFrom reads the console section of the app config.
func HTTPClientConfigFrom(cfg config.ConsoleConfig) HTTPClientConfig {
	return HTTPClientConfig{
		BaseURL: cfg.APIBaseURL,
		Timeout: time.Duration(cfg.RequestTimeout) * time.Second,
	}
}

// HTTPClient talks to the tradeledger JSON API.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

var _ Service = (*HTTPClient)(nil)

func NewHTTPClient(cfg HTTPClientConfig, log *zap.Logger) *HTTPClient {
	if log == nil {
		log = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		httpClient: obstracing.WrapHTTPClient(&http.Client{Timeout: timeout}),
		log:        log.Named("remote.http"),
	}
}

func (c *HTTPClient) FetchClients(ctx context.Context) ([]Client, error) {
	var out []Client
	if err := c.do(ctx, http.MethodGet, "/api/clients", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) FetchSuppliers(ctx context.Context) ([]Supplier, error) {
	var out []Supplier
	if err := c.do(ctx, http.MethodGet, "/api/suppliers", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) FetchInvoices(ctx context.Context) ([]Invoice, error) {
	var out []Invoice
	if err := c.do(ctx, http.MethodGet, "/api/invoices", nil, &out); err != nil {
		return nil, err
	}
	for i := range out {
		if err := checkInvoice(out[i]); err != nil {
			c.log.Warn("invoice list rejected", zap.Int("index", i), zap.Error(err))
			return nil, err
		}
	}
	return out, nil
}

func (c *HTTPClient) FetchDebts(ctx context.Context) ([]Debt, error) {
	var out []Debt
	if err := c.do(ctx, http.MethodGet, "/api/debts", nil, &out); err != nil {
		return nil, err
	}
	for i := range out {
		if err := checkDebt(out[i]); err != nil {
			c.log.Warn("debt list rejected", zap.Int("index", i), zap.Error(err))
			return nil, err
		}
	}
	return out, nil
}

func (c *HTTPClient) CreateClient(ctx context.Context, name string, markupPercentage decimal.Decimal) (Client, error) {
	body := struct {
		Name             string          `json:"name"`
		MarkupPercentage decimal.Decimal `json:"markup_percentage"`
	}{Name: name, MarkupPercentage: markupPercentage}

	var out *Client
	if err := c.do(ctx, http.MethodPost, "/api/clients", body, &out); err != nil {
		return Client{}, err
	}
	if out == nil || out.ID == "" {
		return Client{}, malformed("created client has no id")
	}
	return *out, nil
}

func (c *HTTPClient) CreateSupplier(ctx context.Context, name string) (Supplier, error) {
	body := struct {
		Name string `json:"name"`
	}{Name: name}

	var out *Supplier
	if err := c.do(ctx, http.MethodPost, "/api/suppliers", body, &out); err != nil {
		return Supplier{}, err
	}
	if out == nil || out.ID == "" {
		return Supplier{}, malformed("created supplier has no id")
	}
	return *out, nil
}

type createInvoiceItemBody struct {
	MaterialName string          `json:"material_name"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Unit         string          `json:"unit"`
}

type createInvoiceBody struct {
	InvoiceNumber string                  `json:"invoice_number"`
	Date          string                  `json:"date"`
	ClientID      string                  `json:"client_id"`
	SupplierID    string                  `json:"supplier_id"`
	Description   string                  `json:"description,omitempty"`
	Items         []createInvoiceItemBody `json:"items"`
}

func (c *HTTPClient) CreateInvoice(ctx context.Context, input CreateInvoiceInput) (CreateInvoiceResult, error) {
	body := createInvoiceBody{
		InvoiceNumber: input.InvoiceNumber,
		ClientID:      input.ClientID,
		SupplierID:    input.SupplierID,
		Description:   input.Description,
		Items:         make([]createInvoiceItemBody, 0, len(input.Items)),
	}
	if !input.Date.IsZero() {
		body.Date = input.Date.Format(dateLayout)
	}
	for _, item := range input.Items {
		body.Items = append(body.Items, createInvoiceItemBody(item))
	}

	var out *CreateInvoiceResult
	if err := c.do(ctx, http.MethodPost, "/api/invoices", body, &out); err != nil {
		return CreateInvoiceResult{}, err
	}
	if out == nil {
		return CreateInvoiceResult{}, malformed("empty invoice creation result")
	}
	if err := checkInvoice(out.Invoice); err != nil {
		return CreateInvoiceResult{}, err
	}
	if out.Transaction.ID == "" || out.ClientDebt.ID == "" || out.SupplierDebt.ID == "" {
		return CreateInvoiceResult{}, malformed("invoice %s created without its ledger records", out.Invoice.InvoiceNumber)
	}
	return *out, nil
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *APIError       `json:"error"`
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := obscontext.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set(requestIDHeader, requestID)

	log := c.log.With(
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", requestID),
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn("request failed", zap.Error(err))
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes(resp.StatusCode)))
	if err != nil {
		log.Warn("read response failed", zap.Error(err))
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := &APIError{Status: resp.StatusCode}
		if decodeErr == nil && env.Error != nil {
			apiErr = env.Error
			apiErr.Status = resp.StatusCode
		}
		log.Warn("request rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("error_type", apiErr.Type),
			zap.Duration("duration", time.Since(start)),
		)
		return apiErr
	}

	if decodeErr != nil {
		log.Warn("undecodable response", zap.Error(decodeErr))
		return malformed("%s %s: %v", method, path, decodeErr)
	}
	if len(env.Data) == 0 {
		return malformed("%s %s: missing data", method, path)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		log.Warn("unexpected payload shape", zap.Error(err))
		return malformed("%s %s: %v", method, path, err)
	}

	log.Debug("request completed", zap.Int("status", resp.StatusCode), zap.Duration("duration", time.Since(start)))
	return nil
}

func maxResponseBytes(status int) int64 {
	if status >= http.StatusMultipleChoices {
		return maxErrorBodyBytes
	}
	return 32 << 20
}

func checkInvoice(inv Invoice) error {
	if inv.ID == "" {
		return malformed("invoice without id")
	}
	if inv.Client == nil {
		return malformed("invoice %s has no client", inv.InvoiceNumber)
	}
	if inv.Supplier == nil {
		return malformed("invoice %s has no supplier", inv.InvoiceNumber)
	}
	return nil
}

func checkDebt(d Debt) error {
	if d.Invoice == nil {
		return malformed("debt %s has no invoice", d.ID)
	}
	switch d.DebtType {
	case DebtTypeClient:
		if d.Client == nil {
			return malformed("client debt %s has no client", d.ID)
		}
	case DebtTypeSupplier:
		if d.Supplier == nil {
			return malformed("supplier debt %s has no supplier", d.ID)
		}
	default:
		return malformed("debt %s has unknown type %q", d.ID, d.DebtType)
	}
	return nil
}

// IsMalformed reports whether err came from an unusable payload.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedResponse)
}
