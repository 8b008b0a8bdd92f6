package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tradeledger/internal/ledger/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("ledger.service"),
		repo: p.Repo,
	}
}

func (s *Service) List(ctx context.Context, req domain.ListTransactionRequest) ([]domain.Transaction, error) {
	var invoiceID snowflake.ID
	if raw := strings.TrimSpace(req.InvoiceID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil || id == 0 {
			return nil, domain.ErrInvalidID
		}
		invoiceID = id
	}

	items, err := s.repo.List(ctx, s.db, invoiceID)
	if err != nil {
		return nil, err
	}

	txs := make([]domain.Transaction, 0, len(items))
	for _, item := range items {
		if item != nil {
			txs = append(txs, *item)
		}
	}
	return txs, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Transaction, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || parsed == 0 {
		return domain.Transaction{}, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return domain.Transaction{}, err
	}
	if item == nil {
		return domain.Transaction{}, domain.ErrNotFound
	}
	return *item, nil
}
