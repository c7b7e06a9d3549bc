package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// CurrencyID is the only currency preferences are created in.
const CurrencyID = "USD"

// AutoReturnApproved asks the provider to redirect back automatically after an approved payment.
const AutoReturnApproved = "approved"

var (
	// ErrMalformedResponse is returned when a provider answers with a body that lacks required fields.
	ErrMalformedResponse = errors.New("malformed provider response")
	// ErrPaymentIDRequired is returned when a payment lookup is attempted without an identifier.
	ErrPaymentIDRequired = errors.New("payment id is required")
	// ErrPaymentNotFound matches a ProviderError for an unknown payment.
	ErrPaymentNotFound = errors.New("payment not found")
)

// PaymentStatus is the lifecycle state of a payment as reported by the provider.
type PaymentStatus string

const (
	StatusPending     PaymentStatus = "pending"
	StatusApproved    PaymentStatus = "approved"
	StatusAuthorized  PaymentStatus = "authorized"
	StatusInProcess   PaymentStatus = "in_process"
	StatusInMediation PaymentStatus = "in_mediation"
	StatusRejected    PaymentStatus = "rejected"
	StatusCancelled   PaymentStatus = "cancelled"
	StatusRefunded    PaymentStatus = "refunded"
	StatusChargedBack PaymentStatus = "charged_back"
)

// Final reports whether no further transition is expected for the status.
func (s PaymentStatus) Final() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusCancelled, StatusRefunded, StatusChargedBack:
		return true
	default:
		return false
	}
}

// PreferenceItem is one line of a checkout preference.
type PreferenceItem struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	CurrencyID string  `json:"currency_id"`
	UnitPrice  float64 `json:"unit_price"`
}

// Payer carries optional buyer details.
type Payer struct {
	Email string `json:"email,omitempty"`
}

// BackURLs are the browser redirect targets after checkout.
type BackURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

// PreferenceRequest is the body sent to create a checkout preference.
type PreferenceRequest struct {
	Items             []PreferenceItem `json:"items"`
	Payer             Payer            `json:"payer"`
	BackURLs          BackURLs         `json:"back_urls"`
	AutoReturn        string           `json:"auto_return"`
	NotificationURL   string           `json:"notification_url"`
	Expires           bool             `json:"expires"`
	ExternalReference string           `json:"external_reference"`

	// IdempotencyKey is sent as a header, never in the body.
	IdempotencyKey string `json:"-"`
}

// Preference is a created checkout preference.
type Preference struct {
	ID               string
	InitPoint        string
	SandboxInitPoint string
}

// PaymentRecord is the authoritative state of a payment fetched from the provider.
type PaymentRecord struct {
	ID                string
	Status            PaymentStatus
	StatusDetail      string
	Amount            float64
	CurrencyID        string
	ExternalReference string
	// OrderID is the provider's merchant order id. Empty when the payment has none.
	OrderID string
}

// ProviderError is a non-success answer from the payment provider. Body holds
// the provider's response verbatim.
type ProviderError struct {
	Operation  string
	StatusCode int
	Message    string
	Body       json.RawMessage
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: provider returned status %d: %s", e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: provider returned status %d", e.Operation, e.StatusCode)
}

// Is lets errors.Is(err, ErrPaymentNotFound) match a 404 payment lookup.
func (e *ProviderError) Is(target error) bool {
	return target == ErrPaymentNotFound && e.StatusCode == http.StatusNotFound
}

// AsProviderError unwraps err into a *ProviderError when possible.
func AsProviderError(err error) (*ProviderError, bool) {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr, true
	}
	return nil, false
}

// Provider defines the operations the checkout flow needs from a payment vendor.
type Provider interface {
	CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error)
	GetPayment(ctx context.Context, paymentID string) (*PaymentRecord, error)
}
