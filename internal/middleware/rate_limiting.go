package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"mercadopago-checkout/internal/config"
	"mercadopago-checkout/internal/constants"
	"mercadopago-checkout/internal/service"
)

// RateLimitMiddleware limits requests per client IP. It requires a
// RateLimitManager to be set in the context by the application.
func RateLimitMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg == nil || shouldBypassRateLimit(c.Request) {
			c.Next()
			return
		}

		managerVal, exists := c.Get(constants.ContextKeyRateLimits)
		if !exists {
			c.Next()
			return
		}

		manager, ok := managerVal.(*RateLimitManager)
		if !ok || manager == nil {
			c.Next()
			return
		}

		limiter := manager.GetVisitor(c.ClientIP(), cfg.RateLimitRequests, cfg.RateLimitWindow, cfg.RateLimitBurst)
		if limiter == nil {
			c.Next()
			return
		}

		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests, please try again later",
			})
			return
		}
		c.Next()
	}
}

// RateLimitManagerMiddleware exposes manager to RateLimitMiddleware.
func RateLimitManagerMiddleware(manager *RateLimitManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(constants.ContextKeyRateLimits, manager)
		c.Next()
	}
}

func shouldBypassRateLimit(r *http.Request) bool {
	if r == nil || r.URL == nil {
		return false
	}
	// provider notifications come from a handful of addresses and must only see 200 or 400
	if strings.HasSuffix(r.URL.Path, service.NotificationPath) {
		return true
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}

	switch r.URL.Path {
	case "/health", "/metrics", "/favicon.ico":
		return true
	}
	return false
}
