package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mercadopago-checkout/internal/payments"
	"mercadopago-checkout/internal/payments/mercadopago"
	"mercadopago-checkout/pkg/logger"
)

// NotificationTypePayment is the only notification type that is reconciled.
const NotificationTypePayment = "payment"

const (
	defaultSignatureTolerance = 5 * time.Minute
	defaultDedupeTTL          = 24 * time.Hour
)

// OrderStore applies an observed payment state to the embedding application's
// order. Implementations must be idempotent for the same payment id.
type OrderStore interface {
	ApplyPayment(ctx context.Context, record payments.PaymentRecord) error
}

// DeliveryTracker remembers which payment states were already applied.
type DeliveryTracker interface {
	MarkPaymentDelivery(ctx context.Context, paymentID, status string, ttl time.Duration) (bool, error)
	ForgetPaymentDelivery(ctx context.Context, paymentID, status string) error
}

// WebhookConfig controls signature checks and de-duplication.
type WebhookConfig struct {
	// Secret enables signature verification when set.
	Secret             string
	SignatureTolerance time.Duration
	DedupeTTL          time.Duration
}

// Notification is one provider delivery.
type Notification struct {
	Type      string
	PaymentID string
	RequestID string
	Signature string
}

// WebhookResult describes what a delivery did.
type WebhookResult struct {
	Processed bool
	Duplicate bool
	Payment   *payments.PaymentRecord
}

// WebhookService fetches authoritative payment state for notifications and
// hands it to the order store.
type WebhookService struct {
	provider payments.Provider
	store    OrderStore
	tracker  DeliveryTracker
	config   WebhookConfig
}

// NewWebhookService constructs the service. tracker may be nil.
func NewWebhookService(provider payments.Provider, store OrderStore, tracker DeliveryTracker, cfg WebhookConfig) *WebhookService {
	initMetrics()
	if cfg.SignatureTolerance <= 0 {
		cfg.SignatureTolerance = defaultSignatureTolerance
	}
	if cfg.DedupeTTL <= 0 {
		cfg.DedupeTTL = defaultDedupeTTL
	}
	if store == nil {
		store = NewLogOrderStore()
	}
	return &WebhookService{
		provider: provider,
		store:    store,
		tracker:  tracker,
		config:   cfg,
	}
}

// HandleNotification processes one delivery. Non-payment notifications are
// acknowledged without contacting the provider.
func (s *WebhookService) HandleNotification(ctx context.Context, n Notification) (*WebhookResult, error) {
	if s == nil || s.provider == nil {
		return nil, ErrProviderUnavailable
	}
	if ctx == nil {
		ctx = context.Background()
	}

	notificationType := strings.TrimSpace(n.Type)
	if notificationType != NotificationTypePayment {
		notificationsTotal.WithLabelValues(typeLabel(notificationType), "ignored").Inc()
		logger.FromContext(ctx).WithField("type", notificationType).Debug("Ignoring notification")
		return &WebhookResult{}, nil
	}

	paymentID := strings.TrimSpace(n.PaymentID)
	if paymentID == "" {
		notificationsTotal.WithLabelValues(notificationType, "invalid").Inc()
		return nil, ErrMissingPaymentID
	}

	if s.config.Secret != "" {
		if err := mercadopago.VerifyWebhookSignature(n.Signature, n.RequestID, paymentID, s.config.Secret, s.config.SignatureTolerance); err != nil {
			notificationsTotal.WithLabelValues(notificationType, "invalid").Inc()
			return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
	}

	ctx = logger.ContextWithFields(ctx, map[string]interface{}{"payment_id": paymentID})
	log := logger.FromContext(ctx)

	start := time.Now()
	record, err := s.provider.GetPayment(ctx, paymentID)
	providerCallSeconds.WithLabelValues("get_payment", resultLabel(err)).Observe(time.Since(start).Seconds())
	if err != nil {
		notificationsTotal.WithLabelValues(notificationType, "error").Inc()
		return nil, fmt.Errorf("fetch payment %s: %w", paymentID, err)
	}

	log.WithFields(map[string]interface{}{
		"status":             record.Status,
		"amount":             record.Amount,
		"external_reference": record.ExternalReference,
		"merchant_order_id":  record.OrderID,
	}).Info("Payment notification received")

	result := &WebhookResult{Processed: true, Payment: record}

	marked := false
	if s.tracker != nil {
		first, err := s.tracker.MarkPaymentDelivery(ctx, paymentID, string(record.Status), s.config.DedupeTTL)
		switch {
		case err != nil:
			log.WithError(err).Warn("Delivery tracking unavailable, applying payment anyway")
		case !first:
			notificationsTotal.WithLabelValues(notificationType, "duplicate").Inc()
			log.Debug("Payment state already applied")
			result.Duplicate = true
			return result, nil
		default:
			marked = true
		}
	}

	if err := s.store.ApplyPayment(ctx, *record); err != nil {
		if marked {
			if forgetErr := s.tracker.ForgetPaymentDelivery(ctx, paymentID, string(record.Status)); forgetErr != nil {
				log.WithError(forgetErr).Warn("Failed to clear delivery marker")
			}
		}
		notificationsTotal.WithLabelValues(notificationType, "error").Inc()
		return nil, fmt.Errorf("apply payment %s: %w", paymentID, err)
	}

	reconciledPaymentTotal.WithLabelValues(string(record.Status)).Inc()
	notificationsTotal.WithLabelValues(notificationType, "processed").Inc()
	return result, nil
}

func typeLabel(notificationType string) string {
	switch notificationType {
	case "":
		return "none"
	case NotificationTypePayment, "merchant_order", "plan", "subscription", "point_integration_wh", "chargebacks", "topic_claims_integration_wh":
		return notificationType
	default:
		return "other"
	}
}
