package service

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"mercadopago-checkout/internal/models"
)

var (
	ErrOrderStoreUnavailable = errors.New("order store is not configured")
	ErrOrderPaymentNotFound  = errors.New("order payment not found")
	ErrReferenceNotOwned     = errors.New("external reference does not belong to the caller")
)

// OrderPaymentReader reads reconciled payments back from the order store.
type OrderPaymentReader interface {
	GetByPaymentID(ctx context.Context, paymentID string) (*models.OrderPayment, error)
	ListByExternalReference(ctx context.Context, externalReference string) ([]models.OrderPayment, error)
}

// OrderPaymentService exposes stored payment states to the caller that
// created the checkout.
type OrderPaymentService struct {
	reader OrderPaymentReader
}

// NewOrderPaymentService constructs the service. reader is nil when no
// database is configured.
func NewOrderPaymentService(reader OrderPaymentReader) *OrderPaymentService {
	return &OrderPaymentService{reader: reader}
}

// ListForReference returns every payment recorded for reference, newest first.
func (s *OrderPaymentService) ListForReference(ctx context.Context, reference string, rc RequestContext) ([]models.OrderPayment, error) {
	if s == nil || s.reader == nil {
		return nil, ErrOrderStoreUnavailable
	}

	reference = strings.TrimSpace(reference)
	if !rc.Owns(reference) {
		return nil, ErrReferenceNotOwned
	}

	return s.reader.ListByExternalReference(ctx, reference)
}

// GetForCaller returns one payment. Payments of other callers are reported as
// not found so ids of other callers stay hidden.
func (s *OrderPaymentService) GetForCaller(ctx context.Context, paymentID string, rc RequestContext) (*models.OrderPayment, error) {
	if s == nil || s.reader == nil {
		return nil, ErrOrderStoreUnavailable
	}

	payment, err := s.reader.GetByPaymentID(ctx, strings.TrimSpace(paymentID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderPaymentNotFound
		}
		return nil, err
	}

	if !rc.Owns(payment.ExternalReference) {
		return nil, ErrOrderPaymentNotFound
	}

	return payment, nil
}
