package constants

const (
	// AuthTokenCookieName is the cookie an upstream application stores its bearer token in.
	AuthTokenCookieName = "auth_token"

	// Context keys set by middleware.
	ContextKeyRequestID  = "request_id"
	ContextKeyUserID     = "user_id"
	ContextKeyEmail      = "email"
	ContextKeyRateLimits = "rateLimitManager"

	// HeaderIdempotencyKey lets callers correlate retries of the same checkout.
	HeaderIdempotencyKey = "X-Idempotency-Key"
	HeaderRequestID      = "X-Request-ID"
)
