package remote

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ids are opaque to the console: they are only ever echoed back to the
// data service.

type Client struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	MarkupPercentage decimal.Decimal `json:"markup_percentage"`
	CreatedAt        time.Time       `json:"created_at"`
}

type Supplier struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type InvoiceItem struct {
	ID           string          `json:"id"`
	Position     int             `json:"position"`
	MaterialName string          `json:"material_name"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Unit         string          `json:"unit"`
	TotalPrice   decimal.Decimal `json:"total_price"`
}

type Invoice struct {
	ID               string          `json:"id"`
	InvoiceNumber    string          `json:"invoice_number"`
	Date             time.Time       `json:"date"`
	Description      string          `json:"description"`
	ClientID         string          `json:"client_id"`
	SupplierID       string          `json:"supplier_id"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	MarkupPercentage decimal.Decimal `json:"markup_percentage"`
	MarkupAmount     decimal.Decimal `json:"markup_amount"`
	TotalWithMarkup  decimal.Decimal `json:"total_with_markup"`
	Client           *Client         `json:"client"`
	Supplier         *Supplier       `json:"supplier"`
	Items            []InvoiceItem   `json:"items"`
}

type Transaction struct {
	ID              string          `json:"id"`
	TransactionType string          `json:"transaction_type"`
	Amount          decimal.Decimal `json:"amount"`
	Description     string          `json:"description"`
	Date            time.Time       `json:"date"`
	InvoiceID       string          `json:"invoice_id"`
}

type DebtType string

const (
	DebtTypeClient   DebtType = "client"
	DebtTypeSupplier DebtType = "supplier"
)

// InvoiceRef is the part of an invoice a debt row carries.
type InvoiceRef struct {
	ID            string    `json:"id"`
	InvoiceNumber string    `json:"invoice_number"`
	Date          time.Time `json:"date"`
}

type Debt struct {
	ID         string          `json:"id"`
	Amount     decimal.Decimal `json:"amount"`
	DebtType   DebtType        `json:"debt_type"`
	IsPaid     bool            `json:"is_paid"`
	DueDate    *time.Time      `json:"due_date"`
	InvoiceID  string          `json:"invoice_id"`
	ClientID   string          `json:"client_id"`
	SupplierID string          `json:"supplier_id"`
	Client     *Client         `json:"client"`
	Supplier   *Supplier       `json:"supplier"`
	Invoice    *InvoiceRef     `json:"invoice"`
}

// Counterparty names the client or supplier a debt belongs to.
func (d Debt) Counterparty() string {
	switch {
	case d.DebtType == DebtTypeClient && d.Client != nil:
		return d.Client.Name
	case d.DebtType == DebtTypeSupplier && d.Supplier != nil:
		return d.Supplier.Name
	}
	return ""
}

type CreateInvoiceItemInput struct {
	MaterialName string
	Quantity     decimal.Decimal
	UnitPrice    decimal.Decimal
	Unit         string
}

type CreateInvoiceInput struct {
	InvoiceNumber string
	Date          time.Time
	ClientID      string
	SupplierID    string
	Description   string
	Items         []CreateInvoiceItemInput
}

// CreateInvoiceResult holds every record one invoice creation produced.
type CreateInvoiceResult struct {
	Invoice      Invoice     `json:"invoice"`
	Transaction  Transaction `json:"transaction"`
	ClientDebt   Debt        `json:"client_debt"`
	SupplierDebt Debt        `json:"supplier_debt"`
}
