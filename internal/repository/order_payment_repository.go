package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mercadopago-checkout/internal/models"
	"mercadopago-checkout/internal/payments"
)

type OrderPaymentRepository interface {
	ApplyPayment(ctx context.Context, record payments.PaymentRecord) error
	GetByPaymentID(ctx context.Context, paymentID string) (*models.OrderPayment, error)
	ListByExternalReference(ctx context.Context, externalReference string) ([]models.OrderPayment, error)
}

type orderPaymentRepository struct {
	db *gorm.DB
}

func NewOrderPaymentRepository(db *gorm.DB) OrderPaymentRepository {
	return &orderPaymentRepository{db: db}
}

// ApplyPayment upserts the payment keyed by its provider id, so replays of the
// same notification leave a single row with the latest state.
func (r *orderPaymentRepository) ApplyPayment(ctx context.Context, record payments.PaymentRecord) error {
	payment := &models.OrderPayment{
		PaymentID:         strings.TrimSpace(record.ID),
		ExternalReference: record.ExternalReference,
		MerchantOrderID:   record.OrderID,
		Status:            string(record.Status),
		StatusDetail:      record.StatusDetail,
		Amount:            record.Amount,
		CurrencyID:        record.CurrencyID,
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "payment_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"external_reference",
			"merchant_order_id",
			"status",
			"status_detail",
			"amount",
			"currency_id",
			"updated_at",
		}),
	}).Create(payment).Error
}

func (r *orderPaymentRepository) GetByPaymentID(ctx context.Context, paymentID string) (*models.OrderPayment, error) {
	var payment models.OrderPayment
	err := r.db.WithContext(ctx).First(&payment, "payment_id = ?", paymentID).Error
	return &payment, err
}

func (r *orderPaymentRepository) ListByExternalReference(ctx context.Context, externalReference string) ([]models.OrderPayment, error) {
	var result []models.OrderPayment
	err := r.db.WithContext(ctx).
		Where("external_reference = ?", externalReference).
		Order("updated_at DESC").
		Find(&result).Error
	return result, err
}
