package domain

import (
	"context"
	"errors"
)

type ListTransactionRequest struct {
	InvoiceID string
}

type Service interface {
	List(context.Context, ListTransactionRequest) ([]Transaction, error)
	GetByID(ctx context.Context, id string) (Transaction, error)
}

var (
	ErrInvalidID = errors.New("invalid_id")
	ErrNotFound  = errors.New("transaction_not_found")
)
