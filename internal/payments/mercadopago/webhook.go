package mercadopago

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignatureHeader carries the notification signature, formatted "ts=<unix>,v1=<hex hmac>".
const SignatureHeader = "X-Signature"

// RequestIDHeader is the provider's delivery id, part of the signed manifest.
const RequestIDHeader = "X-Request-Id"

// VerifyWebhookSignature validates the signature of a notification. The signed
// manifest is "id:<data.id>;request-id:<x-request-id>;ts:<ts>;" with absent
// parts left out. Alphanumeric data ids are lower-cased before signing.
func VerifyWebhookSignature(header, requestID, dataID, secret string, tolerance time.Duration) error {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return errors.New("mercadopago webhook secret is required")
	}

	timestamp, signatures := parseSignatureHeader(header)
	if timestamp == "" || len(signatures) == 0 {
		return errors.New("mercadopago signature header is missing required fields")
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid mercadopago signature timestamp: %w", err)
	}

	if tolerance > 0 {
		// ts is sent in seconds or milliseconds depending on the notification kind
		seconds := ts
		if seconds > 1e12 {
			seconds /= 1000
		}
		diff := time.Now().Unix() - seconds
		if diff < 0 {
			diff = -diff
		}
		if diff > int64(tolerance.Seconds()) {
			return errors.New("mercadopago signature timestamp outside tolerance")
		}
	}

	manifest := buildManifest(dataID, requestID, timestamp)
	expectedMAC := computeHMACSHA256([]byte(manifest), []byte(secret))

	for _, sig := range signatures {
		decoded, err := hex.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(decoded, expectedMAC) {
			return nil
		}
	}

	return errors.New("no matching mercadopago signature found")
}

// SignManifest returns the header value a correctly signed notification carries.
func SignManifest(dataID, requestID, timestamp, secret string) string {
	mac := computeHMACSHA256([]byte(buildManifest(dataID, requestID, timestamp)), []byte(strings.TrimSpace(secret)))
	return "ts=" + timestamp + ",v1=" + hex.EncodeToString(mac)
}

func buildManifest(dataID, requestID, timestamp string) string {
	var b strings.Builder
	if id := strings.TrimSpace(dataID); id != "" {
		b.WriteString("id:" + strings.ToLower(id) + ";")
	}
	if rid := strings.TrimSpace(requestID); rid != "" {
		b.WriteString("request-id:" + rid + ";")
	}
	b.WriteString("ts:" + timestamp + ";")
	return b.String()
}

func parseSignatureHeader(header string) (string, []string) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", nil
	}

	var (
		timestamp  string
		signatures []string
	)

	parts := strings.Split(header, ",")
	for _, part := range parts {
		part = strings.TrimSpace(part)
		switch {
		case strings.HasPrefix(part, "ts="):
			timestamp = strings.TrimPrefix(part, "ts=")
		case strings.HasPrefix(part, "v1="):
			if sig := strings.TrimPrefix(part, "v1="); sig != "" {
				signatures = append(signatures, sig)
			}
		}
	}

	return timestamp, signatures
}

func computeHMACSHA256(message, key []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(message)
	return mac.Sum(nil)
}
