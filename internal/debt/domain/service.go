package domain

import (
	"context"
	"errors"
)

type ListDebtRequest struct {
	DebtType   string
	ClientID   string
	SupplierID string
}

type Service interface {
	List(context.Context, ListDebtRequest) ([]Debt, error)
	ListByClient(ctx context.Context, clientID string) ([]Debt, error)
	ListBySupplier(ctx context.Context, supplierID string) ([]Debt, error)
}

var (
	ErrInvalidDebtType = errors.New("invalid_debt_type")
	ErrInvalidID       = errors.New("invalid_id")
)
