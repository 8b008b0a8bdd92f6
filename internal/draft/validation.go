package draft

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/smallbiznis/tradeledger/internal/pricing"
)

var scaleMessage = fmt.Sprintf("Use at most %d decimal places", pricing.InputScale)

// Violations maps a form field to the message shown next to it. Line item
// fields are keyed like items[0].quantity.
type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Fields returns the violated fields in a stable order.
func (v Violations) Fields() []string {
	fields := make([]string, 0, len(v))
	for field := range v {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

func ItemField(index int, field Field) string {
	return fmt.Sprintf("items[%d].%s", index, field)
}

// ValidationError is returned by Submit when the draft is incomplete.
type ValidationError struct {
	Violations Violations
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("draft has %d invalid field(s): %s", len(e.Violations), strings.Join(e.Violations.Fields(), ", "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

func validate(d Draft, units []string) Violations {
	v := Violations{}
	if strings.TrimSpace(d.InvoiceNumber) == "" {
		v["invoice_number"] = "Invoice number is required"
	}
	if d.Date.IsZero() {
		v["date"] = "Date is required"
	}
	if strings.TrimSpace(d.ClientID) == "" {
		v["client_id"] = "Select a client"
	}
	if strings.TrimSpace(d.SupplierID) == "" {
		v["supplier_id"] = "Select a supplier"
	}
	if len(d.Items) == 0 {
		v["items"] = "Add at least one item"
	}
	for i, item := range d.Items {
		if strings.TrimSpace(item.MaterialName) == "" {
			v[ItemField(i, FieldMaterialName)] = "Material name is required"
		}
		switch {
		case !item.Quantity.IsPositive():
			v[ItemField(i, FieldQuantity)] = "Quantity must be greater than zero"
		case !pricing.WithinScale(item.Quantity):
			v[ItemField(i, FieldQuantity)] = scaleMessage
		}
		switch {
		case !item.UnitPrice.IsPositive():
			v[ItemField(i, FieldUnitPrice)] = "Unit price must be greater than zero"
		case !pricing.WithinScale(item.UnitPrice):
			v[ItemField(i, FieldUnitPrice)] = scaleMessage
		}
		if len(units) > 0 && !slices.Contains(units, item.Unit) {
			v[ItemField(i, FieldUnit)] = "Choose one of " + strings.Join(units, ", ")
		}
	}
	return v
}
