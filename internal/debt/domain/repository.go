package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListDebtFilter struct {
	DebtType   DebtType
	ClientID   snowflake.ID
	SupplierID snowflake.ID
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, debt *Debt) error
	List(ctx context.Context, db *gorm.DB, filter ListDebtFilter) ([]*Debt, error)
}
