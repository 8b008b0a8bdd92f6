package domain

import (
	"context"
	"errors"
)

type CreateSupplierRequest struct {
	Name string
}

type GetSupplierRequest struct {
	ID string
}

type Service interface {
	Create(context.Context, CreateSupplierRequest) (Supplier, error)
	List(context.Context) ([]Supplier, error)
	GetByID(context.Context, GetSupplierRequest) (Supplier, error)
}

var (
	ErrInvalidName = errors.New("invalid_name")
	ErrInvalidID   = errors.New("invalid_id")
	ErrNotFound    = errors.New("supplier_not_found")
)
