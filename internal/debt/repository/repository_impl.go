package repository

import (
	"context"

	"github.com/smallbiznis/tradeledger/internal/debt/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, debt *domain.Debt) error {
	return db.WithContext(ctx).Omit("Client", "Supplier", "Invoice").Create(debt).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListDebtFilter) ([]*domain.Debt, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Debt{}).
		Preload("Client").
		Preload("Supplier").
		Preload("Invoice")
	if filter.DebtType != "" {
		stmt = stmt.Where("debt_type = ?", filter.DebtType)
	}
	if filter.ClientID != 0 {
		stmt = stmt.Where("client_id = ?", filter.ClientID)
	}
	if filter.SupplierID != 0 {
		stmt = stmt.Where("supplier_id = ?", filter.SupplierID)
	}

	var debts []*domain.Debt
	if err := stmt.Order("created_at desc, id desc").Find(&debts).Error; err != nil {
		return nil, err
	}
	return debts, nil
}
