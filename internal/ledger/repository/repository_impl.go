package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tradeledger/internal/ledger/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, tx *domain.Transaction) error {
	return db.WithContext(ctx).Create(tx).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Transaction, error) {
	var tx domain.Transaction
	err := db.WithContext(ctx).Where("id = ?", id).First(&tx).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// List returns transactions newest first. A zero invoiceID lists everything.
func (r *repo) List(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]*domain.Transaction, error) {
	stmt := db.WithContext(ctx).Model(&domain.Transaction{})
	if invoiceID != 0 {
		stmt = stmt.Where("invoice_id = ?", invoiceID)
	}

	var txs []*domain.Transaction
	if err := stmt.Order("date desc, id desc").Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}
