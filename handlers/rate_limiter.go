package handlers

import (
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// apiLimiter throttles the whole API surface; nil means rate limiting is off
var apiLimiter *rate.Limiter

// InitRateLimiters configures the global limiter from environment variables.
// Disabled unless ENABLE_RATE_LIMIT=true.
func InitRateLimiters() {
	if os.Getenv("ENABLE_RATE_LIMIT") != "true" {
		apiLimiter = nil
		return
	}

	limit := 100
	if rateStr := os.Getenv("GLOBAL_RATE_LIMIT"); rateStr != "" {
		if parsed, err := strconv.Atoi(rateStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	apiLimiter = rate.NewLimiter(rate.Limit(limit), limit*2)
	log.Printf("Rate limiter enabled: %d req/s, burst %d", limit, limit*2)
}

// RateLimitMiddleware rejects requests above the configured global rate
func RateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiLimiter != nil && !apiLimiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}
		c.Next()
	}
}
