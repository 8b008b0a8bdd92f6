package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/tradeledger/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseScriptResult(t *testing.T) {
	res, err := parseScriptResult([]any{int64(1), "3.5", int64(1700000000000)}, 2, 10)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 10, res.Limit)
	assert.Equal(t, 3, res.Remaining)
	assert.Zero(t, res.RetryAfter)

	res, err = parseScriptResult([]any{int64(0), "0.5", int64(1700000000000)}, 2, 10)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 250*time.Millisecond, res.RetryAfter)

	_, err = parseScriptResult([]any{int64(1)}, 2, 10)
	assert.Error(t, err)
}

func TestBucketTTL(t *testing.T) {
	assert.Equal(t, 10*time.Second, bucketTTL(2, 10))
	assert.Equal(t, time.Second, bucketTTL(100, 1))
	assert.Equal(t, time.Second, bucketTTL(0, 1))
}

func TestDisabledLimiterAllowsEverything(t *testing.T) {
	limiter, err := NewWriteLimiter(config.Config{}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, limiter)
	assert.False(t, limiter.Enabled())

	res, err := limiter.AllowWrite(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	token, ok, err := limiter.TryLockInvoiceNumber(context.Background(), "INV-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, limiter.ReleaseInvoiceNumber(context.Background(), "INV-1", token))
}

func TestNewWriteLimiterValidatesConfig(t *testing.T) {
	_, err := NewWriteLimiter(config.Config{RateLimit: config.RateLimitConfig{
		Enabled: true, RedisAddr: " ", WriteRate: 1, WriteBurst: 1,
	}}, zap.NewNop())
	assert.Error(t, err)

	_, err = NewWriteLimiter(config.Config{RateLimit: config.RateLimitConfig{
		Enabled: true, RedisAddr: "localhost:6379", WriteRate: 0, WriteBurst: 1,
	}}, zap.NewNop())
	assert.Error(t, err)

	limiter, err := NewWriteLimiter(config.Config{RateLimit: config.RateLimitConfig{
		Enabled: true, RedisAddr: "localhost:6379", WriteRate: 1, WriteBurst: 5,
	}}, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, limiter.Enabled())
	assert.Equal(t, 30*time.Second, limiter.lockTTL)
}

func TestTokenBucketRejectsBadArguments(t *testing.T) {
	var bucket *TokenBucket
	_, err := bucket.Allow(context.Background(), "k", 1, 1)
	assert.ErrorIs(t, err, ErrNotConfigured)

	limiter := newWriteLimiter(nil, config.RateLimitConfig{WriteRate: 1, WriteBurst: 1}, nil)
	assert.False(t, limiter.Enabled())
}

func TestInvoiceLockKeyTrimsButKeepsCase(t *testing.T) {
	assert.Equal(t, invoiceLockKey("INV-7"), invoiceLockKey("  INV-7 "))
	// invoice_number is unique case-sensitively, so differently cased numbers
	// must not contend for the same lock.
	assert.NotEqual(t, invoiceLockKey("inv-7"), invoiceLockKey("INV-7"))
}
