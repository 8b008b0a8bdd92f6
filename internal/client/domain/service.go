package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

type CreateClientRequest struct {
	Name             string
	MarkupPercentage decimal.Decimal
}

type GetClientRequest struct {
	ID string
}

type Service interface {
	Create(context.Context, CreateClientRequest) (Client, error)
	List(context.Context) ([]Client, error)
	GetByID(context.Context, GetClientRequest) (Client, error)
}

var (
	ErrInvalidName   = errors.New("invalid_name")
	ErrInvalidMarkup = errors.New("invalid_markup_percentage")
	ErrInvalidID     = errors.New("invalid_id")
	ErrNotFound      = errors.New("client_not_found")
)
