package models

import "time"

// OrderPayment is the last observed state of a provider payment, correlated to
// an order through its external reference.
type OrderPayment struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	PaymentID         string  `gorm:"size:64;not null;uniqueIndex" json:"payment_id"`
	ExternalReference string  `gorm:"size:191;index" json:"external_reference"`
	MerchantOrderID   string  `gorm:"size:64" json:"merchant_order_id,omitempty"`
	Status            string  `gorm:"size:32;not null;index" json:"status"`
	StatusDetail      string  `gorm:"size:128" json:"status_detail,omitempty"`
	Amount            float64 `gorm:"not null;default:0" json:"amount"`
	CurrencyID        string  `gorm:"size:8" json:"currency_id,omitempty"`
}

type OrderPaymentListResponse struct {
	ExternalReference string         `json:"external_reference"`
	Payments          []OrderPayment `json:"payments"`
}
