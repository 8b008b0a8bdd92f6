package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Client is a buyer. Its markup percentage is applied to every invoice
// issued against it.
type Client struct {
	ID               snowflake.ID    `gorm:"primaryKey" json:"id"`
	Name             string          `gorm:"type:varchar(100);not null" json:"name"`
	MarkupPercentage decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"markup_percentage"`
	CreatedAt        time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"not null" json:"updated_at"`
}

func (Client) TableName() string { return "clients" }
