package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercadopago-checkout/internal/payments"
)

func TestCreatePreferenceReturnsSession(t *testing.T) {
	provider := &stubProvider{createResult: &payments.Preference{
		ID:               "pref-1",
		InitPoint:        "https://mp/init",
		SandboxInitPoint: "https://mp/sandbox",
	}}
	svc := NewCheckoutService(provider, fixedBuilder("tok"), CheckoutConfig{})

	session, err := svc.CreatePreference(context.Background(), decodeItems(t, `{"items":[{"id":"a"}]}`), RequestContext{BaseURL: "https://x.io"})
	require.NoError(t, err)
	assert.Equal(t, "pref-1", session.PreferenceID)
	assert.Equal(t, "https://mp/init", session.InitPoint)
	assert.Equal(t, 1, provider.createCalls)
	assert.Equal(t, "tok", provider.lastRequest.IdempotencyKey)
}

func TestCreatePreferenceSandboxInitPoint(t *testing.T) {
	provider := &stubProvider{createResult: &payments.Preference{
		ID:               "pref-1",
		InitPoint:        "https://mp/init",
		SandboxInitPoint: "https://mp/sandbox",
	}}
	svc := NewCheckoutService(provider, nil, CheckoutConfig{Sandbox: true})

	session, err := svc.CreatePreference(context.Background(), decodeItems(t, `{"items":[{"id":"a"}]}`), RequestContext{BaseURL: "https://x.io"})
	require.NoError(t, err)
	assert.Equal(t, "https://mp/sandbox", session.InitPoint)
}

func TestCreatePreferenceEmptyCartNeverCallsProvider(t *testing.T) {
	provider := &stubProvider{}
	svc := NewCheckoutService(provider, nil, CheckoutConfig{})

	_, err := svc.CreatePreference(context.Background(), nil, RequestContext{BaseURL: "https://x.io"})
	assert.ErrorIs(t, err, ErrNoItems)
	assert.Zero(t, provider.createCalls)
}

func TestCreatePreferencePassesProviderErrorThrough(t *testing.T) {
	providerErr := &payments.ProviderError{
		Operation:  "create preference",
		StatusCode: http.StatusBadRequest,
		Body:       json.RawMessage(`{"message":"bad"}`),
	}
	provider := &stubProvider{createError: providerErr}
	svc := NewCheckoutService(provider, nil, CheckoutConfig{})

	_, err := svc.CreatePreference(context.Background(), decodeItems(t, `{"items":[{"id":"a"}]}`), RequestContext{BaseURL: "https://x.io"})
	got, ok := payments.AsProviderError(err)
	require.True(t, ok)
	assert.Same(t, providerErr, got)
}

func TestCreatePreferenceWithoutProvider(t *testing.T) {
	svc := NewCheckoutService(nil, nil, CheckoutConfig{})

	_, err := svc.CreatePreference(context.Background(), decodeItems(t, `{"items":[{"id":"a"}]}`), RequestContext{BaseURL: "https://x.io"})
	assert.True(t, errors.Is(err, ErrProviderUnavailable))
}
