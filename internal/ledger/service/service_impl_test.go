package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tradeledger/internal/ledger/domain"
	"github.com/smallbiznis/tradeledger/internal/ledger/repository"
	"github.com/smallbiznis/tradeledger/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

func TestInvoiceDescription(t *testing.T) {
	assert.Equal(t, "Transaction for invoice INV-1 with markup 15%",
		domain.InvoiceDescription("INV-1", decimal.RequireFromString("15.00")))
	assert.Equal(t, "Transaction for invoice INV-2 with markup 0%",
		domain.InvoiceDescription("INV-2", decimal.Zero))
}

func TestListAndGetTransactions(t *testing.T) {
	conn := dbtest.Open(t, &domain.Transaction{})
	repo := repository.Provide()
	ctx := context.Background()
	now := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)

	seed := []domain.Transaction{
		{ID: snowflake.ID(11), TransactionType: domain.TransactionTypeInvoice, Amount: decimal.RequireFromString("287.5"), Date: now, InvoiceID: 1, Metadata: datatypes.JSONMap{"subtotal": "250"}},
		{ID: snowflake.ID(12), TransactionType: domain.TransactionTypeInvoice, Amount: decimal.RequireFromString("60"), Date: now.AddDate(0, 0, 1), InvoiceID: 2},
	}
	for i := range seed {
		seed[i].CreatedAt, seed[i].UpdatedAt = now, now
		require.NoError(t, repo.Insert(ctx, conn, &seed[i]))
	}

	svc := New(Params{DB: conn, Log: zap.NewNop(), Repo: repo})

	all, err := svc.List(ctx, domain.ListTransactionRequest{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, snowflake.ID(12), all[0].ID)

	forInvoice, err := svc.List(ctx, domain.ListTransactionRequest{InvoiceID: "1"})
	require.NoError(t, err)
	require.Len(t, forInvoice, 1)
	assert.True(t, decimal.RequireFromString("287.5").Equal(forInvoice[0].Amount))
	assert.Equal(t, "250", forInvoice[0].Metadata["subtotal"])

	_, err = svc.GetByID(ctx, "11")
	require.NoError(t, err)

	_, err = svc.GetByID(ctx, "404")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.List(ctx, domain.ListTransactionRequest{InvoiceID: "abc"})
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}
