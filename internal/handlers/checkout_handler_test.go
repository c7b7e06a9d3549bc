package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"mercadopago-checkout/internal/constants"
	"mercadopago-checkout/internal/payments"
	"mercadopago-checkout/internal/service"
)

func newCheckoutRouter(provider payments.Provider, siteURL string, sandbox bool, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	if userID != "" {
		router.Use(func(c *gin.Context) {
			c.Set(constants.ContextKeyUserID, userID)
			c.Set(constants.ContextKeyEmail, "buyer@example.com")
			c.Next()
		})
	}
	checkoutService := service.NewCheckoutService(provider, service.NewPreferenceBuilder(), service.CheckoutConfig{Sandbox: sandbox})
	router.POST("/create-mercadopago-preference", NewCheckoutHandler(checkoutService, siteURL).CreatePreference)
	return router
}

func postCheckout(router *gin.Engine, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/create-mercadopago-preference", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var payload map[string]interface{}
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response %q: %v", recorder.Body.String(), err)
	}
	return payload
}

func TestCreatePreferenceReturnsInitPoint(t *testing.T) {
	provider := &stubProvider{preference: &payments.Preference{
		ID:               "pref-123",
		InitPoint:        "https://www.mercadopago.com/checkout?pref_id=pref-123",
		SandboxInitPoint: "https://sandbox.mercadopago.com/checkout?pref_id=pref-123",
	}}
	router := newCheckoutRouter(provider, "", false, "")

	recorder := postCheckout(router, `{"items":[{"id":"sku-1","name":"Mug","quantity":2,"price":"12.5"}]}`, nil)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	payload := decodeBody(t, recorder)
	if payload["preference_id"] != "pref-123" {
		t.Fatalf("unexpected preference id: %v", payload["preference_id"])
	}
	if payload["init_point"] != "https://www.mercadopago.com/checkout?pref_id=pref-123" {
		t.Fatalf("unexpected init point: %v", payload["init_point"])
	}

	req := provider.lastRequest
	if req.BackURLs.Success != "http://example.com/payment/success" {
		t.Fatalf("expected back url derived from host, got %s", req.BackURLs.Success)
	}
	if req.NotificationURL != "http://example.com/webhook/mercadopago" {
		t.Fatalf("unexpected notification url %s", req.NotificationURL)
	}
	if !strings.HasPrefix(req.ExternalReference, "order_guest_") {
		t.Fatalf("expected guest reference, got %s", req.ExternalReference)
	}
	if len(req.Items) != 1 || req.Items[0].Quantity != 2 || req.Items[0].UnitPrice != 12.5 {
		t.Fatalf("unexpected items %+v", req.Items)
	}
}

func TestCreatePreferenceUsesSandboxAndSiteURL(t *testing.T) {
	provider := &stubProvider{preference: &payments.Preference{
		ID:               "pref-1",
		InitPoint:        "https://prod",
		SandboxInitPoint: "https://sandbox",
	}}
	router := newCheckoutRouter(provider, "https://shop.example.com/", true, "42")

	recorder := postCheckout(router, `{"items":[{"name":"Book"}]}`, map[string]string{
		constants.HeaderIdempotencyKey: "retry-key-1",
	})

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", recorder.Code)
	}
	if got := decodeBody(t, recorder)["init_point"]; got != "https://sandbox" {
		t.Fatalf("expected sandbox init point, got %v", got)
	}

	req := provider.lastRequest
	if req.BackURLs.Failure != "https://shop.example.com/payment/failure" {
		t.Fatalf("expected configured site url, got %s", req.BackURLs.Failure)
	}
	if req.ExternalReference != "order_42" {
		t.Fatalf("expected user reference, got %s", req.ExternalReference)
	}
	if req.Payer.Email != "buyer@example.com" {
		t.Fatalf("expected payer email, got %q", req.Payer.Email)
	}
	if req.IdempotencyKey != "retry-key-1" {
		t.Fatalf("expected idempotency key to be forwarded, got %q", req.IdempotencyKey)
	}
}

func TestCreatePreferenceHonoursForwardedProto(t *testing.T) {
	provider := &stubProvider{preference: &payments.Preference{ID: "p", InitPoint: "https://prod"}}
	router := newCheckoutRouter(provider, "", false, "")

	postCheckout(router, `{"items":[{}]}`, map[string]string{"X-Forwarded-Proto": "https, http"})

	if provider.lastRequest.BackURLs.Pending != "https://example.com/payment/pending" {
		t.Fatalf("expected https back url, got %s", provider.lastRequest.BackURLs.Pending)
	}
}

func TestCreatePreferenceRejectsInvalidInput(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		message string
	}{
		{name: "Malformed JSON", body: `{"items":`, message: "Invalid JSON"},
		{name: "Missing items", body: `{}`, message: "No items provided"},
		{name: "Empty items", body: `{"items":[]}`, message: "No items provided"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			provider := &stubProvider{}
			router := newCheckoutRouter(provider, "", false, "")

			recorder := postCheckout(router, tc.body, nil)

			if recorder.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d", recorder.Code)
			}
			if got := decodeBody(t, recorder)["error"]; got != tc.message {
				t.Fatalf("expected error %q, got %v", tc.message, got)
			}
			if provider.createCalls != 0 {
				t.Fatalf("provider must not be called, got %d calls", provider.createCalls)
			}
		})
	}
}

func TestCreatePreferenceForwardsProviderRejection(t *testing.T) {
	provider := &stubProvider{preferenceErr: &payments.ProviderError{
		Operation:  "create preference",
		StatusCode: http.StatusBadRequest,
		Message:    "invalid unit_price",
		Body:       json.RawMessage(`{"message":"invalid unit_price","status":400}`),
	}}
	router := newCheckoutRouter(provider, "", false, "")

	recorder := postCheckout(router, `{"items":[{"price":1}]}`, nil)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", recorder.Code)
	}
	payload := decodeBody(t, recorder)
	if payload["error"] != "Error creating preference" {
		t.Fatalf("unexpected error %v", payload["error"])
	}
	details, ok := payload["details"].(map[string]interface{})
	if !ok || details["message"] != "invalid unit_price" {
		t.Fatalf("expected provider body as details, got %v", payload["details"])
	}
}

func TestCreatePreferenceReportsTransportFailure(t *testing.T) {
	provider := &stubProvider{preferenceErr: errors.New("dial tcp: connection refused")}
	router := newCheckoutRouter(provider, "", false, "")

	recorder := postCheckout(router, `{"items":[{"price":1}]}`, nil)

	if recorder.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", recorder.Code)
	}
	if got := decodeBody(t, recorder)["error"]; got != "dial tcp: connection refused" {
		t.Fatalf("unexpected error %v", got)
	}
}

func TestCreatePreferenceRejectsOversizedQuantity(t *testing.T) {
	provider := &stubProvider{}
	router := newCheckoutRouter(provider, "", false, "")

	recorder := postCheckout(router, `{"items":[{"name":"Mug","quantity":1e19,"price":1}]}`, nil)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", recorder.Code)
	}
	if got, _ := decodeBody(t, recorder)["error"].(string); !strings.Contains(got, "quantity") {
		t.Fatalf("expected quantity error, got %q", got)
	}
	if provider.createCalls != 0 {
		t.Fatalf("provider must not be called, got %d calls", provider.createCalls)
	}
}
