package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smallbiznis/tradeledger/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFetchNotifiesLoadingThenReady(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	q := New("clients", func(context.Context) ([]string, error) {
		return []string{"Acme"}, nil
	}, zap.NewNop(), WithClock(fake))

	var seen []Status
	unsubscribe := q.Subscribe(func(r Result[[]string]) { seen = append(seen, r.Status) })
	defer unsubscribe()

	assert.Equal(t, StatusIdle, q.Current().Status)

	result := q.Fetch(context.Background())
	require.True(t, result.Ready())
	assert.Equal(t, []string{"Acme"}, result.Data)
	assert.Equal(t, fake.Now(), result.FetchedAt)
	assert.Equal(t, []Status{StatusLoading, StatusReady}, seen)
	assert.Equal(t, result, q.Current())
}

func TestFetchFailureKeepsPreviousData(t *testing.T) {
	fail := false
	boom := errors.New("connection refused")
	q := New("suppliers", func(context.Context) ([]string, error) {
		if fail {
			return nil, boom
		}
		return []string{"Steel"}, nil
	}, nil)

	q.Fetch(context.Background())
	fail = true
	result := q.Fetch(context.Background())

	assert.Equal(t, StatusFailed, result.Status)
	assert.ErrorIs(t, result.Err, boom)
	assert.Equal(t, []string{"Steel"}, result.Data)
}

func TestUnsubscribeStopsNotifications(t *testing.T) {
	q := New("debts", func(context.Context) (int, error) { return 1, nil }, zap.NewNop())

	calls := 0
	unsubscribe := q.Subscribe(func(Result[int]) { calls++ })
	q.Fetch(context.Background())
	unsubscribe()
	unsubscribe()
	q.Fetch(context.Background())

	assert.Equal(t, 2, calls)
}

func TestSubscriberMayReadCurrent(t *testing.T) {
	q := New("invoices", func(context.Context) (int, error) { return 7, nil }, zap.NewNop())

	var last Result[int]
	q.Subscribe(func(Result[int]) { last = q.Current() })
	q.Fetch(context.Background())

	assert.Equal(t, 7, last.Data)
	assert.Equal(t, "ready", last.Status.String())
}
