package service

import (
	"context"
	"time"

	"mercadopago-checkout/internal/models"
	"mercadopago-checkout/internal/payments"
	"mercadopago-checkout/pkg/logger"
)

// CheckoutConfig defines how created preferences are exposed to callers.
type CheckoutConfig struct {
	// Sandbox returns the sandbox checkout URL instead of the production one.
	Sandbox bool
}

// CheckoutSession is what the caller needs to redirect the buyer.
type CheckoutSession struct {
	PreferenceID string
	InitPoint    string
}

// CheckoutService coordinates preference building and creation with the provider.
type CheckoutService struct {
	provider payments.Provider
	builder  *PreferenceBuilder
	config   CheckoutConfig
}

// NewCheckoutService constructs a checkout service instance.
func NewCheckoutService(provider payments.Provider, builder *PreferenceBuilder, cfg CheckoutConfig) *CheckoutService {
	initMetrics()
	if builder == nil {
		builder = NewPreferenceBuilder()
	}
	return &CheckoutService{
		provider: provider,
		builder:  builder,
		config:   cfg,
	}
}

// CreatePreference builds a preference for items and registers it with the
// provider. Invalid input never reaches the provider.
func (s *CheckoutService) CreatePreference(ctx context.Context, items []models.CartItem, rc RequestContext) (*CheckoutSession, error) {
	if s == nil || s.provider == nil {
		return nil, ErrProviderUnavailable
	}

	req, err := s.builder.Build(items, rc)
	if err != nil {
		preferencesTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	log := logger.FromContext(ctx).WithField("external_reference", req.ExternalReference)
	log.WithField("items", len(req.Items)).Info("Creating checkout preference")

	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	pref, err := s.provider.CreatePreference(ctx, req)
	providerCallSeconds.WithLabelValues("create_preference", resultLabel(err)).Observe(time.Since(start).Seconds())
	if err != nil {
		if providerErr, ok := payments.AsProviderError(err); ok {
			preferencesTotal.WithLabelValues("rejected").Inc()
			log.WithField("provider_status", providerErr.StatusCode).Warn("Provider rejected checkout preference")
		} else {
			preferencesTotal.WithLabelValues("error").Inc()
			log.WithError(err).Error("Failed to create checkout preference")
		}
		return nil, err
	}

	initPoint := pref.InitPoint
	if s.config.Sandbox && pref.SandboxInitPoint != "" {
		initPoint = pref.SandboxInitPoint
	}

	preferencesTotal.WithLabelValues("created").Inc()
	log.WithField("preference_id", pref.ID).Info("Checkout preference ready")

	return &CheckoutSession{PreferenceID: pref.ID, InitPoint: initPoint}, nil
}
