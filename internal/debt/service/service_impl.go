package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tradeledger/internal/debt/domain"
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
		log:  p.Log.Named("debt.service"),
		repo: p.Repo,
	}
}

func (s *Service) List(ctx context.Context, req domain.ListDebtRequest) ([]domain.Debt, error) {
	filter := domain.ListDebtFilter{}

	if raw := strings.ToLower(strings.TrimSpace(req.DebtType)); raw != "" {
		debtType := domain.DebtType(raw)
		if !debtType.Valid() {
			return nil, domain.ErrInvalidDebtType
		}
		filter.DebtType = debtType
	}

	var err error
	if filter.ClientID, err = parseOptionalID(req.ClientID); err != nil {
		return nil, err
	}
	if filter.SupplierID, err = parseOptionalID(req.SupplierID); err != nil {
		return nil, err
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	debts := make([]domain.Debt, 0, len(items))
	for _, item := range items {
		if item != nil {
			debts = append(debts, *item)
		}
	}
	return debts, nil
}

func (s *Service) ListByClient(ctx context.Context, clientID string) ([]domain.Debt, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, domain.ErrInvalidID
	}
	return s.List(ctx, domain.ListDebtRequest{DebtType: string(domain.DebtTypeClient), ClientID: clientID})
}

func (s *Service) ListBySupplier(ctx context.Context, supplierID string) ([]domain.Debt, error) {
	if strings.TrimSpace(supplierID) == "" {
		return nil, domain.ErrInvalidID
	}
	return s.List(ctx, domain.ListDebtRequest{DebtType: string(domain.DebtTypeSupplier), SupplierID: supplierID})
}

func parseOptionalID(value string) (snowflake.ID, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	id, err := snowflake.ParseString(value)
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
