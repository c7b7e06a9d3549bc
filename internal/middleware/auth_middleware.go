package middleware

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"mercadopago-checkout/internal/constants"
	"mercadopago-checkout/pkg/logger"
)

// OptionalAuthMiddleware identifies callers that present a valid HS256 token
// issued by the embedding application. Anyone else continues as a guest.
func OptionalAuthMiddleware(jwtSecret string) gin.HandlerFunc {
	secret := []byte(strings.TrimSpace(jwtSecret))

	return func(c *gin.Context) {
		if len(secret) == 0 {
			c.Next()
			return
		}

		tokenString := bearerToken(c)
		if tokenString == "" {
			c.Next()
			return
		}

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			logger.FromContext(c.Request.Context()).WithError(err).Debug("Ignoring invalid bearer token")
			c.Next()
			return
		}

		userID := claimString(claims, "user_id")
		if userID == "" {
			userID = claimString(claims, "sub")
		}
		if userID != "" {
			c.Set(constants.ContextKeyUserID, userID)
			if email := claimString(claims, "email"); email != "" {
				c.Set(constants.ContextKeyEmail, email)
			}
		}

		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	if header := strings.TrimSpace(c.GetHeader("Authorization")); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := c.Cookie(constants.AuthTokenCookieName); err == nil {
		return strings.TrimSpace(cookie)
	}
	return ""
}

func claimString(claims jwt.MapClaims, key string) string {
	switch value := claims[key].(type) {
	case string:
		return strings.TrimSpace(value)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	default:
		return ""
	}
}
