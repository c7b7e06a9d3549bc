package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"mercadopago-checkout/internal/config"
	"mercadopago-checkout/internal/constants"
	"mercadopago-checkout/internal/models"
	"mercadopago-checkout/internal/payments"
)

type fakeProvider struct {
	mu          sync.Mutex
	lastRequest payments.PreferenceRequest
	payment     payments.PaymentRecord
}

func (f *fakeProvider) CreatePreference(_ context.Context, req payments.PreferenceRequest) (*payments.Preference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastRequest = req
	return &payments.Preference{
		ID:               "pref-1",
		InitPoint:        "https://www.mercadopago.com/checkout/v1/redirect?pref_id=pref-1",
		SandboxInitPoint: "https://sandbox.mercadopago.com/checkout/v1/redirect?pref_id=pref-1",
	}, nil
}

func (f *fakeProvider) GetPayment(_ context.Context, paymentID string) (*payments.PaymentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record := f.payment
	record.ID = paymentID
	return &record, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Port:              "0",
		Environment:       "test",
		SiteURL:           "https://shop.example.com",
		CORSOrigins:       []string{"https://shop.example.com"},
		RateLimitRequests: 100,
		RateLimitWindow:   60,
		MercadoPagoAPIURL: "https://api.mercadopago.com",
		DBDriver:          "sqlite",
		DedupeTTL:         60,
		EnableMetrics:     true,
	}
}

func newTestApplication(t *testing.T, provider payments.Provider) (*Application, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	application, err := New(testConfig(), Options{Provider: provider, DB: db})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = application.Shutdown(context.Background())
		_ = sqlDB.Close()
	})

	return application, db
}

func serve(router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	return serveWithKey(router, method, target, body, "")
}

func serveWithKey(router http.Handler, method, target, body, key string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if key != "" {
		req.Header.Set(constants.HeaderIdempotencyKey, key)
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestApplicationCheckoutToWebhookFlow(t *testing.T) {
	provider := &fakeProvider{payment: payments.PaymentRecord{
		Status:     payments.StatusApproved,
		Amount:     20,
		CurrencyID: payments.CurrencyID,
	}}
	application, _ := newTestApplication(t, provider)
	router := application.Router()

	recorder := serveWithKey(router, http.MethodPost, "/create-mercadopago-preference", `{"items":[{"id":"1","name":"Tee","quantity":"2","price":10}]}`, "cart-42")
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	var checkout map[string]string
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &checkout))
	assert.Equal(t, "pref-1", checkout["preference_id"])
	assert.Equal(t, "https://shop.example.com/webhook/mercadopago", provider.lastRequest.NotificationURL)
	assert.Equal(t, "order_guest_cart-42", provider.lastRequest.ExternalReference)

	provider.payment.ExternalReference = provider.lastRequest.ExternalReference

	recorder = serve(router, http.MethodPost, "/webhook/mercadopago?type=payment&data.id=3001", "")
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = serveWithKey(router, http.MethodGet, "/api/v1/payments/records/3001", "", "cart-42")
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	var stored models.OrderPayment
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &stored))
	assert.Equal(t, string(payments.StatusApproved), stored.Status)
	assert.Equal(t, "order_guest_cart-42", stored.ExternalReference)

	recorder = serveWithKey(router, http.MethodGet, "/api/v1/payments/orders/order_guest_cart-42/payments", "", "cart-42")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"payment_id":"3001"`)

	recorder = serveWithKey(router, http.MethodGet, "/api/v1/payments/records/3001", "", "cart-43")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestApplicationMountsVersionedRoutes(t *testing.T) {
	application, _ := newTestApplication(t, &fakeProvider{})
	router := application.Router()

	recorder := serve(router, http.MethodGet, "/api/v1/payments/payment/pending", "")
	assert.Equal(t, http.StatusOK, recorder.Code)

	recorder = serve(router, http.MethodGet, "/api/v1/payments/payment/failure?reason=rejected", "")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"reason":"rejected"`)
}

func TestApplicationOperationalRoutes(t *testing.T) {
	application, _ := newTestApplication(t, &fakeProvider{})
	router := application.Router()

	recorder := serve(router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"status":"healthy"`)

	recorder = serve(router, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "checkout_http_requests_total")

	recorder = serve(router, http.MethodGet, "/unknown", "")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Route not found")
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(nil, Options{})
	assert.Error(t, err)
}
