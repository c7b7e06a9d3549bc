package service

import (
	"context"
	"strings"
	"time"

	"mercadopago-checkout/internal/payments"
	"mercadopago-checkout/pkg/cache"
	"mercadopago-checkout/pkg/logger"
)

const paymentRecordTTL = time.Minute

// PaymentRecordCache keeps recently fetched payment states so a buyer
// refreshing a landing page does not trigger a provider call each time.
type PaymentRecordCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

// LandingService cross-checks the status a buyer's browser reports on return
// against the provider. It never changes what the landing response contains.
type LandingService struct {
	provider payments.Provider
	records  PaymentRecordCache
	enabled  bool
}

// NewLandingService constructs the service. records may be nil.
func NewLandingService(provider payments.Provider, enabled bool, records PaymentRecordCache) *LandingService {
	return &LandingService{provider: provider, records: records, enabled: enabled}
}

// VerifyReturn fetches the payment and logs when the provider disagrees with
// the reported status. Errors are logged and swallowed.
func (s *LandingService) VerifyReturn(ctx context.Context, paymentID, reportedStatus string) {
	if s == nil || !s.enabled || s.provider == nil {
		return
	}

	id := strings.TrimSpace(paymentID)
	if id == "" {
		return
	}

	log := logger.FromContext(ctx).WithField("payment_id", id)

	record, err := s.lookup(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Could not verify returning payment")
		return
	}

	if reported := strings.TrimSpace(reportedStatus); reported != "" && reported != string(record.Status) {
		log.WithFields(map[string]interface{}{
			"reported_status": reported,
			"provider_status": record.Status,
		}).Warn("Returned payment status differs from provider")
		return
	}

	log.WithField("status", record.Status).Debug("Returning payment verified")
}

func (s *LandingService) lookup(ctx context.Context, id string) (*payments.PaymentRecord, error) {
	key := cache.PaymentRecordKey(id)

	if s.records != nil {
		var cached payments.PaymentRecord
		if err := s.records.Get(ctx, key, &cached); err == nil && cached.Status != "" {
			return &cached, nil
		}
	}

	record, err := s.provider.GetPayment(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.records != nil {
		if err := s.records.Set(ctx, key, record, paymentRecordTTL); err != nil {
			logger.FromContext(ctx).WithError(err).Debug("Failed to cache payment record")
		}
	}

	return record, nil
}
