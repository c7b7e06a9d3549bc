package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"mercadopago-checkout/internal/constants"
	"mercadopago-checkout/internal/service"
)

// requestBaseURL returns the configured public URL, or the scheme and host the
// request reached us on.
func requestBaseURL(c *gin.Context, configured string) string {
	if base := strings.TrimRight(strings.TrimSpace(configured), "/"); base != "" {
		return base
	}

	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := strings.TrimSpace(c.GetHeader("X-Forwarded-Proto")); proto != "" {
		scheme = strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
	}

	return scheme + "://" + c.Request.Host
}

// callerContext identifies the caller by token identity and checkout session key.
func callerContext(c *gin.Context) service.RequestContext {
	return service.RequestContext{
		UserID:       c.GetString(constants.ContextKeyUserID),
		PayerEmail:   c.GetString(constants.ContextKeyEmail),
		SessionToken: c.GetHeader(constants.HeaderIdempotencyKey),
	}
}

func checkoutRequestContext(c *gin.Context, siteURL string) service.RequestContext {
	rc := callerContext(c)
	rc.BaseURL = requestBaseURL(c, siteURL)
	return rc
}
