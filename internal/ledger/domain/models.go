package domain

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type TransactionType string

const (
	TransactionTypeInvoice TransactionType = "invoice"
	TransactionTypePayment TransactionType = "payment"
)

// Transaction is a money movement recorded against an invoice.
type Transaction struct {
	ID              snowflake.ID      `gorm:"primaryKey" json:"id"`
	TransactionType TransactionType   `gorm:"type:varchar(20);not null" json:"transaction_type"`
	Amount          decimal.Decimal   `gorm:"type:decimal(32,14);not null" json:"amount"`
	Description     string            `gorm:"type:text" json:"description"`
	Date            time.Time         `gorm:"type:date;not null" json:"date"`
	InvoiceID       snowflake.ID      `gorm:"not null;index" json:"invoice_id"`
	Metadata        datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt       time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"not null" json:"updated_at"`
}

func (Transaction) TableName() string { return "transactions" }

// InvoiceDescription is the description recorded for the transaction an
// invoice produces.
func InvoiceDescription(invoiceNumber string, markupPercentage decimal.Decimal) string {
	return fmt.Sprintf("Transaction for invoice %s with markup %s%%", invoiceNumber, markupPercentage.String())
}
