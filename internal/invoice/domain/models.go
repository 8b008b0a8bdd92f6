package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	clientdomain "github.com/smallbiznis/tradeledger/internal/client/domain"
	supplierdomain "github.com/smallbiznis/tradeledger/internal/supplier/domain"
)

// Invoice is a confirmed sale of supplier materials to a client.
// TotalWithMarkup always equals TotalAmount + MarkupAmount, and MarkupAmount
// is TotalAmount * MarkupPercentage / 100 for the percentage captured at
// creation time.
type Invoice struct {
	ID               snowflake.ID    `gorm:"primaryKey" json:"id"`
	InvoiceNumber    string          `gorm:"type:varchar(50);not null;uniqueIndex:ux_invoices_invoice_number" json:"invoice_number"`
	Date             time.Time       `gorm:"type:date;not null" json:"date"`
	Description      string          `gorm:"type:text" json:"description"`
	ClientID         snowflake.ID    `gorm:"not null;index" json:"client_id"`
	SupplierID       snowflake.ID    `gorm:"not null;index" json:"supplier_id"`
	TotalAmount      decimal.Decimal `gorm:"type:decimal(32,14);not null" json:"total_amount"`
	MarkupPercentage decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"markup_percentage"`
	MarkupAmount     decimal.Decimal `gorm:"type:decimal(32,14);not null" json:"markup_amount"`
	TotalWithMarkup  decimal.Decimal `gorm:"type:decimal(32,14);not null" json:"total_with_markup"`
	CreatedAt        time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"not null" json:"updated_at"`

	Client   *clientdomain.Client     `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Supplier *supplierdomain.Supplier `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
	Items    []InvoiceItem            `gorm:"foreignKey:InvoiceID" json:"items"`
}

func (Invoice) TableName() string { return "invoices" }

type InvoiceItem struct {
	ID           snowflake.ID    `gorm:"primaryKey" json:"id"`
	InvoiceID    snowflake.ID    `gorm:"not null;index" json:"invoice_id"`
	Position     int             `gorm:"not null" json:"position"`
	MaterialName string          `gorm:"type:varchar(100);not null" json:"material_name"`
	Quantity     decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"quantity"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"unit_price"`
	Unit         string          `gorm:"type:varchar(20);not null" json:"unit"`
	TotalPrice   decimal.Decimal `gorm:"type:decimal(32,14);not null" json:"total_price"`
}

func (InvoiceItem) TableName() string { return "invoice_items" }
