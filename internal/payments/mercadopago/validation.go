package mercadopago

import "strings"

const (
	// AccessTokenPrefixProduction is the prefix of production access tokens.
	AccessTokenPrefixProduction = "APP_USR-"
	// AccessTokenPrefixTest is the prefix of sandbox access tokens.
	AccessTokenPrefixTest = "TEST-"
)

func hasAllowedPrefix(value string, prefixes ...string) bool {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return false
	}

	for _, prefix := range prefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}

	return false
}

// IsAccessToken reports whether the value looks like a Mercado Pago access token.
func IsAccessToken(value string) bool {
	return hasAllowedPrefix(value, AccessTokenPrefixProduction, AccessTokenPrefixTest)
}

// IsTestAccessToken reports whether the value looks like a sandbox access token.
func IsTestAccessToken(value string) bool {
	return hasAllowedPrefix(value, AccessTokenPrefixTest)
}
