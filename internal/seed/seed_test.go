package seed

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	clientdomain "github.com/smallbiznis/tradeledger/internal/client/domain"
	"github.com/smallbiznis/tradeledger/internal/clock"
	supplierdomain "github.com/smallbiznis/tradeledger/internal/supplier/domain"
	"github.com/smallbiznis/tradeledger/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDemoDataIsIdempotent(t *testing.T) {
	conn := dbtest.Open(t, &clientdomain.Client{}, &supplierdomain.Supplier{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	require.NoError(t, conn.Create(&clientdomain.Client{ID: 1, Name: "Acme Trading", CreatedAt: clk.Now(), UpdatedAt: clk.Now()}).Error)

	require.NoError(t, EnsureDemoData(ctx, conn, node, clk))
	require.NoError(t, EnsureDemoData(ctx, conn, node, clk))

	var clients []clientdomain.Client
	require.NoError(t, conn.Order("name").Find(&clients).Error)
	require.Len(t, clients, 3)
	assert.Equal(t, "Acme Trading", clients[0].Name)
	assert.True(t, clients[0].MarkupPercentage.IsZero())
	assert.Equal(t, "Northwind Retail", clients[1].Name)
	assert.Equal(t, "7.5", clients[1].MarkupPercentage.String())

	var suppliers int64
	require.NoError(t, conn.Model(&supplierdomain.Supplier{}).Count(&suppliers).Error)
	assert.Equal(t, int64(2), suppliers)
}

func TestEnsureDemoDataNeedsDatabase(t *testing.T) {
	assert.Error(t, EnsureDemoData(context.Background(), nil, nil, nil))
}
