package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"mercadopago-checkout/internal/constants"
	"mercadopago-checkout/pkg/logger"
)

const maxRequestIDLength = 128

// RequestIDMiddleware propagates the caller's X-Request-ID or assigns one, and
// attaches it to the request logger.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(constants.HeaderRequestID)
		if requestID == "" || len(requestID) > maxRequestIDLength {
			requestID = uuid.NewString()
		}
		c.Set(constants.ContextKeyRequestID, requestID)
		c.Header(constants.HeaderRequestID, requestID)
		ctx := logger.ContextWithFields(c.Request.Context(), map[string]interface{}{"request_id": requestID})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
