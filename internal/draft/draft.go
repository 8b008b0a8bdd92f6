// Package draft holds the editable state of an invoice that has not been
// submitted yet and turns it into a creation request.
package draft

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tradeledger/internal/pricing"
)

type State int

const (
	StateEditing State = iota
	StateSubmitting
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateSubmitting:
		return "submitting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "editing"
	}
}

// Field names one editable column of a line item.
type Field string

const (
	FieldMaterialName Field = "material_name"
	FieldQuantity     Field = "quantity"
	FieldUnitPrice    Field = "unit_price"
	FieldUnit         Field = "unit"
)

type LineItem struct {
	MaterialName string
	Quantity     decimal.Decimal
	UnitPrice    decimal.Decimal
	Unit         string
}

func (i LineItem) Total() decimal.Decimal {
	return pricing.LineTotal(i.line())
}

func (i LineItem) line() pricing.Line {
	return pricing.Line{Quantity: i.Quantity, UnitPrice: i.UnitPrice}
}

type Draft struct {
	InvoiceNumber string
	Date          time.Time
	ClientID      string
	SupplierID    string
	Description   string
	Items         []LineItem
}

func (d Draft) clone() Draft {
	out := d
	out.Items = append([]LineItem(nil), d.Items...)
	return out
}

func (d Draft) lines() []pricing.Line {
	lines := make([]pricing.Line, 0, len(d.Items))
	for _, item := range d.Items {
		lines = append(lines, item.line())
	}
	return lines
}

var (
	ErrNotEditable      = errors.New("draft_not_editable")
	ErrSubmitInProgress = errors.New("submit_in_progress")
	ErrAlreadySubmitted = errors.New("draft_already_submitted")
	ErrIndexOutOfRange  = errors.New("line_item_index_out_of_range")
	ErrUnknownField     = errors.New("unknown_line_item_field")
	ErrInvalidNumber    = errors.New("invalid_number")
	ErrInvalidUnit      = errors.New("invalid_unit")
	ErrInvalidDate      = errors.New("invalid_date")
	ErrUnknownClient    = errors.New("unknown_client")
	ErrUnknownSupplier  = errors.New("unknown_supplier")
	ErrValidationFailed = errors.New("draft_invalid")
)

const DateLayout = "2006-01-02"

// ParseDate reads a calendar date as typed in the form. Blank input yields
// the zero time, which validation reports as missing.
func ParseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}
