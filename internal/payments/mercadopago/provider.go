package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"mercadopago-checkout/internal/payments"
)

const (
	defaultAPIBase = "https://api.mercadopago.com"
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
)

// Config holds the credentials and endpoint of the Mercado Pago API. Either an
// access token or a client id/secret pair is used; none of them is required
// here, the API rejects unauthenticated calls.
type Config struct {
	ClientID     string
	ClientSecret string
	AccessToken  string
	APIBaseURL   string
	Timeout      time.Duration
	// HTTPClient is the base client the OAuth2 transport wraps. Optional.
	HTTPClient *http.Client
}

// Provider implements payments.Provider for Mercado Pago Checkout Pro using direct HTTP calls.
type Provider struct {
	httpClient *http.Client
	apiBaseURL string
	userAgent  string
}

// NewProvider constructs a Mercado Pago provider. An access token wins over
// client credentials; with client credentials the token is obtained through
// the OAuth2 client_credentials grant and refreshed when it expires.
func NewProvider(cfg Config) (*Provider, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	if base == "" {
		base = defaultAPIBase
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid mercadopago api url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	baseClient := cfg.HTTPClient
	if baseClient == nil {
		baseClient = &http.Client{Timeout: timeout}
	}

	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, baseClient)

	var source oauth2.TokenSource
	switch {
	case strings.TrimSpace(cfg.AccessToken) != "":
		source = oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: strings.TrimSpace(cfg.AccessToken),
			TokenType:   "Bearer",
		})
	case strings.TrimSpace(cfg.ClientID) != "" && strings.TrimSpace(cfg.ClientSecret) != "":
		cc := &clientcredentials.Config{
			ClientID:     strings.TrimSpace(cfg.ClientID),
			ClientSecret: strings.TrimSpace(cfg.ClientSecret),
			TokenURL:     base + "/oauth/token",
			AuthStyle:    oauth2.AuthStyleInParams,
		}
		source = cc.TokenSource(tokenCtx)
	}

	httpClient := baseClient
	if source != nil {
		httpClient = oauth2.NewClient(tokenCtx, source)
		httpClient.Timeout = timeout
	}

	return &Provider{
		httpClient: httpClient,
		apiBaseURL: base,
		userAgent:  "mercadopago-checkout/checkout-pro",
	}, nil
}

type preferenceResponse struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

type paymentResponse struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	StatusDetail      string      `json:"status_detail"`
	TransactionAmount float64     `json:"transaction_amount"`
	CurrencyID        string      `json:"currency_id"`
	ExternalReference *string     `json:"external_reference"`
	Order             *struct {
		ID   json.Number `json:"id"`
		Type string      `json:"type"`
	} `json:"order"`
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// CreatePreference creates a Checkout Pro preference. Only a 201 answer is a success.
func (p *Provider) CreatePreference(ctx context.Context, params payments.PreferenceRequest) (*payments.Preference, error) {
	if p == nil {
		return nil, fmt.Errorf("mercadopago provider is not configured")
	}

	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode preference: %w", err)
	}

	req, err := p.newRequest(ctx, http.MethodPost, "/checkout/preferences", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if key := strings.TrimSpace(params.IdempotencyKey); key != "" {
		req.Header.Set("X-Idempotency-Key", key)
	}

	status, raw, err := p.do(req)
	if err != nil {
		return nil, fmt.Errorf("mercadopago create preference request failed: %w", err)
	}

	if status != http.StatusCreated {
		return nil, newProviderError("create preference", status, raw)
	}

	var payload preferenceResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: decode preference: %v", payments.ErrMalformedResponse, err)
	}
	if payload.ID == "" || payload.InitPoint == "" {
		return nil, fmt.Errorf("%w: preference is missing id or init_point", payments.ErrMalformedResponse)
	}

	return &payments.Preference{
		ID:               payload.ID,
		InitPoint:        payload.InitPoint,
		SandboxInitPoint: payload.SandboxInitPoint,
	}, nil
}

// GetPayment fetches the current state of a payment.
func (p *Provider) GetPayment(ctx context.Context, paymentID string) (*payments.PaymentRecord, error) {
	if p == nil {
		return nil, fmt.Errorf("mercadopago provider is not configured")
	}

	id := strings.TrimSpace(paymentID)
	if id == "" {
		return nil, payments.ErrPaymentIDRequired
	}

	req, err := p.newRequest(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	status, raw, err := p.do(req)
	if err != nil {
		return nil, fmt.Errorf("mercadopago get payment request failed: %w", err)
	}

	if status != http.StatusOK {
		return nil, newProviderError("get payment", status, raw)
	}

	var payload paymentResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: decode payment: %v", payments.ErrMalformedResponse, err)
	}
	if payload.Status == "" {
		return nil, fmt.Errorf("%w: payment %s has no status", payments.ErrMalformedResponse, id)
	}

	record := &payments.PaymentRecord{
		ID:           payload.ID.String(),
		Status:       payments.PaymentStatus(payload.Status),
		StatusDetail: payload.StatusDetail,
		Amount:       payload.TransactionAmount,
		CurrencyID:   payload.CurrencyID,
	}
	if record.ID == "" {
		record.ID = id
	}
	if payload.ExternalReference != nil {
		record.ExternalReference = *payload.ExternalReference
	}
	if payload.Order != nil {
		record.OrderID = payload.Order.ID.String()
	}

	return record, nil
}

func (p *Provider) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	req, err := http.NewRequestWithContext(ctx, method, p.apiBaseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", p.userAgent)
	return req, nil
}

func (p *Provider) do(req *http.Request) (int, []byte, error) {
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("read response body: %w", err)
	}
	return resp.StatusCode, raw, nil
}

func newProviderError(operation string, status int, raw []byte) *payments.ProviderError {
	providerErr := &payments.ProviderError{
		Operation:  operation,
		StatusCode: status,
	}

	trimmed := bytes.TrimSpace(raw)
	switch {
	case len(trimmed) == 0:
		providerErr.Body = json.RawMessage("null")
	case json.Valid(trimmed):
		providerErr.Body = json.RawMessage(trimmed)
		var payload errorResponse
		if err := json.Unmarshal(trimmed, &payload); err == nil {
			providerErr.Message = strings.TrimSpace(payload.Message)
			if providerErr.Message == "" {
				providerErr.Message = strings.TrimSpace(payload.Error)
			}
		}
	default:
		encoded, _ := json.Marshal(string(trimmed))
		providerErr.Body = encoded
	}

	return providerErr
}
