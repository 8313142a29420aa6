package ratelimit

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/richxcame/langsheet/pkg/common"
	"github.com/richxcame/langsheet/pkg/logger"
	"go.uber.org/zap"
)

var rejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "langsheet",
	Name:      "ratelimit_rejected_total",
	Help:      "Requests rejected by the rate limiter",
}, []string{"endpoint"})

// Middleware limits requests per client IP on the matched route. Redis errors
// let the request through.
func Middleware(limiter *Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = c.Request.URL.Path
		}

		result, err := limiter.Allow(c.Request.Context(), endpoint, c.ClientIP())
		if err != nil {
			logger.WithContext(c.Request.Context()).Warn("rate limiter unavailable, allowing request",
				zap.String("endpoint", endpoint),
				zap.Error(err),
			)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

		if !result.Allowed {
			rejectedTotal.WithLabelValues(endpoint).Inc()
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(result.RetryAfter.Seconds()))))
			common.ErrorResponse(c, http.StatusTooManyRequests, "too many requests, try again later")
			c.Abort()
			return
		}

		c.Next()
	}
}
