package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Service is the data service the console reads from and writes to.
type Service interface {
	FetchClients(ctx context.Context) ([]Client, error)
	FetchSuppliers(ctx context.Context) ([]Supplier, error)
	FetchInvoices(ctx context.Context) ([]Invoice, error)
	FetchDebts(ctx context.Context) ([]Debt, error)
	CreateClient(ctx context.Context, name string, markupPercentage decimal.Decimal) (Client, error)
	CreateSupplier(ctx context.Context, name string) (Supplier, error)
	CreateInvoice(ctx context.Context, input CreateInvoiceInput) (CreateInvoiceResult, error)
}

// ErrMalformedResponse reports a payload missing data the console relies on.
var ErrMalformedResponse = errors.New("malformed_response")

type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIError is a non-2xx answer from the data service.
type APIError struct {
	Status  int          `json:"-"`
	Type    string       `json:"type"`
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors,omitempty"`
}

func (e *APIError) Error() string {
	if len(e.Errors) > 0 {
		first := e.Errors[0]
		if first.Field != "" {
			return fmt.Sprintf("%s: %s", first.Field, first.Message)
		}
		return first.Message
	}
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedResponse, fmt.Sprintf(format, args...))
}
