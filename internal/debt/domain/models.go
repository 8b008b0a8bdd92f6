package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	clientdomain "github.com/smallbiznis/tradeledger/internal/client/domain"
	supplierdomain "github.com/smallbiznis/tradeledger/internal/supplier/domain"
)

type DebtType string

const (
	DebtTypeClient   DebtType = "client"
	DebtTypeSupplier DebtType = "supplier"
)

func (t DebtType) Valid() bool {
	return t == DebtTypeClient || t == DebtTypeSupplier
}

// Debt is money owed by a client or to a supplier as a result of an invoice.
// Exactly one of ClientID and SupplierID is set, matching DebtType.
type Debt struct {
	ID         snowflake.ID    `gorm:"primaryKey" json:"id"`
	Amount     decimal.Decimal `gorm:"type:decimal(32,14);not null" json:"amount"`
	DebtType   DebtType        `gorm:"type:varchar(20);not null;index" json:"debt_type"`
	IsPaid     bool            `gorm:"not null;default:false" json:"is_paid"`
	DueDate    *time.Time      `gorm:"type:date" json:"due_date,omitempty"`
	InvoiceID  snowflake.ID    `gorm:"not null;index" json:"invoice_id"`
	ClientID   *snowflake.ID   `gorm:"index" json:"client_id,omitempty"`
	SupplierID *snowflake.ID   `gorm:"index" json:"supplier_id,omitempty"`
	CreatedAt  time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"not null" json:"updated_at"`

	Client   *clientdomain.Client     `gorm:"foreignKey:ClientID;-:migration" json:"client,omitempty"`
	Supplier *supplierdomain.Supplier `gorm:"foreignKey:SupplierID;-:migration" json:"supplier,omitempty"`
	Invoice  *InvoiceRef              `gorm:"foreignKey:InvoiceID;-:migration" json:"invoice,omitempty"`
}

func (Debt) TableName() string { return "debts" }

// InvoiceRef is the slice of an invoice a debt listing needs.
type InvoiceRef struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	InvoiceNumber string       `json:"invoice_number"`
	Date          time.Time    `json:"date"`
}

func (InvoiceRef) TableName() string { return "invoices" }
