package service

import (
	"context"

	"mercadopago-checkout/internal/payments"
	"mercadopago-checkout/pkg/logger"
)

// LogOrderStore records payment states in the log only. It stands in for the
// embedding application's order store when no database is configured.
type LogOrderStore struct{}

func NewLogOrderStore() *LogOrderStore {
	return &LogOrderStore{}
}

func (s *LogOrderStore) ApplyPayment(ctx context.Context, record payments.PaymentRecord) error {
	logger.FromContext(ctx).WithFields(map[string]interface{}{
		"payment_id":         record.ID,
		"status":             record.Status,
		"amount":             record.Amount,
		"external_reference": record.ExternalReference,
		"final":              record.Status.Final(),
	}).Info("Order payment update not persisted: no order store configured")
	return nil
}
