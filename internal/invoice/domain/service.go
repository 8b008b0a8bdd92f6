package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	debtdomain "github.com/smallbiznis/tradeledger/internal/debt/domain"
	ledgerdomain "github.com/smallbiznis/tradeledger/internal/ledger/domain"
)

type CreateInvoiceItem struct {
	MaterialName string
	Quantity     decimal.Decimal
	UnitPrice    decimal.Decimal
	Unit         string
}

type CreateInvoiceRequest struct {
	InvoiceNumber string
	Date          time.Time
	ClientID      string
	SupplierID    string
	Description   string
	Items         []CreateInvoiceItem
}

// CreateInvoiceResult is everything a single invoice creation writes.
type CreateInvoiceResult struct {
	Invoice      Invoice                  `json:"invoice"`
	Transaction  ledgerdomain.Transaction `json:"transaction"`
	ClientDebt   debtdomain.Debt          `json:"client_debt"`
	SupplierDebt debtdomain.Debt          `json:"supplier_debt"`
}

type Service interface {
	Create(context.Context, CreateInvoiceRequest) (CreateInvoiceResult, error)
	List(context.Context) ([]Invoice, error)
	GetByID(ctx context.Context, id string) (Invoice, error)
}

var (
	ErrInvalidInvoiceNumber   = errors.New("invalid_invoice_number")
	ErrInvalidDate            = errors.New("invalid_date")
	ErrInvalidClient          = errors.New("invalid_client_id")
	ErrInvalidSupplier        = errors.New("invalid_supplier_id")
	ErrNoItems                = errors.New("invalid_items")
	ErrInvalidMaterialName    = errors.New("invalid_material_name")
	ErrInvalidQuantity        = errors.New("invalid_quantity")
	ErrInvalidUnitPrice       = errors.New("invalid_unit_price")
	ErrInvalidUnit            = errors.New("invalid_unit")
	ErrClientNotFound         = errors.New("client_not_found")
	ErrSupplierNotFound       = errors.New("supplier_not_found")
	ErrDuplicateInvoiceNumber = errors.New("duplicate_invoice_number")
	ErrInvalidID              = errors.New("invalid_id")
	ErrNotFound               = errors.New("invoice_not_found")
)

// ItemError ties a line-item validation failure to its position.
type ItemError struct {
	Index int
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("items[%d]: %s", e.Index, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }

// Field names the offending request field, e.g. items[2].quantity.
func (e *ItemError) Field() string {
	name := "item"
	switch {
	case errors.Is(e.Err, ErrInvalidMaterialName):
		name = "material_name"
	case errors.Is(e.Err, ErrInvalidQuantity):
		name = "quantity"
	case errors.Is(e.Err, ErrInvalidUnitPrice):
		name = "unit_price"
	case errors.Is(e.Err, ErrInvalidUnit):
		name = "unit"
	}
	return fmt.Sprintf("items[%d].%s", e.Index, name)
}
