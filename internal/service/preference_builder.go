package service

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"mercadopago-checkout/internal/models"
	"mercadopago-checkout/internal/payments"
	"mercadopago-checkout/pkg/validator"
)

const (
	defaultItemID    = "item"
	defaultItemTitle = "Producto"

	SuccessPath      = "/payment/success"
	FailurePath      = "/payment/failure"
	PendingPath      = "/payment/pending"
	NotificationPath = "/webhook/mercadopago"

	maxSessionTokenLength = 64

	// MaxItemQuantity bounds a single line so the value fits the provider's integer field.
	MaxItemQuantity = 1_000_000
)

var sessionTokenPattern = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// RequestContext describes who is checking out and where the service is reachable.
type RequestContext struct {
	BaseURL string
	// UserID is empty for guests.
	UserID     string
	PayerEmail string
	// SessionToken is a caller-chosen key that tells guest checkouts apart and
	// makes preference creation idempotent. Generated when empty.
	SessionToken string
}

// Authenticated reports whether the caller was identified.
func (r RequestContext) Authenticated() bool {
	return strings.TrimSpace(r.UserID) != ""
}

// PreferenceBuilder turns a cart into a provider preference request.
type PreferenceBuilder struct {
	newToken func() string
}

func NewPreferenceBuilder() *PreferenceBuilder {
	return &PreferenceBuilder{newToken: uuid.NewString}
}

// Build produces one preference item per cart item, in order, with defaults
// applied to missing or unparseable fields.
func (b *PreferenceBuilder) Build(items []models.CartItem, rc RequestContext) (payments.PreferenceRequest, error) {
	if len(items) == 0 {
		return payments.PreferenceRequest{}, ErrNoItems
	}

	base := strings.TrimRight(strings.TrimSpace(rc.BaseURL), "/")
	if base == "" {
		return payments.PreferenceRequest{}, &ValidationError{Field: "base_url", Message: "base url is required"}
	}

	token := sanitizeSessionToken(rc.SessionToken)
	if token == "" {
		token = b.token()
	}

	req := payments.PreferenceRequest{
		Items: make([]payments.PreferenceItem, 0, len(items)),
		BackURLs: payments.BackURLs{
			Success: base + SuccessPath,
			Failure: base + FailurePath,
			Pending: base + PendingPath,
		},
		AutoReturn:        payments.AutoReturnApproved,
		NotificationURL:   base + NotificationPath,
		Expires:           false,
		ExternalReference: externalReference(rc, token),
		IdempotencyKey:    token,
	}

	if email := strings.TrimSpace(rc.PayerEmail); email != "" {
		req.Payer.Email = email
	}

	for i, item := range items {
		built, err := buildItem(item)
		if err != nil {
			if validationErr, ok := err.(*ValidationError); ok {
				validationErr.Field = fmt.Sprintf("items[%d].%s", i, validationErr.Field)
			}
			return payments.PreferenceRequest{}, err
		}
		req.Items = append(req.Items, built)
	}

	return req, nil
}

func (b *PreferenceBuilder) token() string {
	if b == nil || b.newToken == nil {
		return uuid.NewString()
	}
	return b.newToken()
}

func buildItem(item models.CartItem) (payments.PreferenceItem, error) {
	id := defaultItemID
	if item.ID.Set && strings.TrimSpace(item.ID.Value) != "" {
		id = strings.TrimSpace(item.ID.Value)
	}

	title := defaultItemTitle
	if item.Name.Set {
		if cleaned := validator.SanitizeString(item.Name.Value); cleaned != "" {
			title = cleaned
		}
	}

	quantity := 1
	if item.Quantity.Valid && !math.IsNaN(item.Quantity.Value) {
		q := math.Floor(item.Quantity.Value)
		if q > MaxItemQuantity {
			return payments.PreferenceItem{}, &ValidationError{
				Field:   "quantity",
				Message: fmt.Sprintf("must not exceed %d", MaxItemQuantity),
			}
		}
		if q >= 1 {
			quantity = int(q)
		}
	}

	price := 0.0
	if item.Price.Valid && !math.IsNaN(item.Price.Value) && !math.IsInf(item.Price.Value, 0) && item.Price.Value > 0 {
		price = item.Price.Value
	}

	return payments.PreferenceItem{
		ID:         id,
		Title:      title,
		Quantity:   quantity,
		CurrencyID: payments.CurrencyID,
		UnitPrice:  price,
	}, nil
}

// Owns reports whether reference is one this caller's checkouts produce: the
// user's own reference, or the guest reference of the presented session token.
func (r RequestContext) Owns(reference string) bool {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return false
	}
	if r.Authenticated() && reference == userReference(r.UserID) {
		return true
	}
	token := sanitizeSessionToken(r.SessionToken)
	return token != "" && reference == guestReference(token)
}

// externalReference correlates the preference with the caller's order.
// Guests get a per-checkout suffix so concurrent guest checkouts never share one.
func externalReference(rc RequestContext, token string) string {
	if rc.Authenticated() {
		return userReference(rc.UserID)
	}
	return guestReference(token)
}

func userReference(userID string) string {
	return fmt.Sprintf("order_%s", strings.TrimSpace(userID))
}

func guestReference(token string) string {
	return fmt.Sprintf("order_guest_%s", token)
}

func sanitizeSessionToken(token string) string {
	cleaned := sessionTokenPattern.ReplaceAllString(strings.TrimSpace(token), "")
	if len(cleaned) > maxSessionTokenLength {
		cleaned = cleaned[:maxSessionTokenLength]
	}
	return cleaned
}
