package server

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	obslogger "github.com/smallbiznis/tradeledger/internal/observability/logger"
	"go.uber.org/zap"
)

// limitWrites applies the per-caller write budget. Redis errors let the
// request through.
func (s *Server) limitWrites(c *gin.Context) {
	if !s.limiter.Enabled() {
		c.Next()
		return
	}

	ctx := c.Request.Context()
	res, err := s.limiter.AllowWrite(ctx, c.ClientIP())
	if err != nil {
		obslogger.FromContext(ctx).Warn("rate limit check failed", zap.Error(err))
		c.Next()
		return
	}

	c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	if !res.Allowed {
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
		AbortWithError(c, ErrRateLimited)
		return
	}
	c.Next()
}
