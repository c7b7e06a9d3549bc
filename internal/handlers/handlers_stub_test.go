package handlers

import (
	"context"
	"sync"

	"mercadopago-checkout/internal/payments"
)

type stubProvider struct {
	mu sync.Mutex

	preference    *payments.Preference
	preferenceErr error
	payment       *payments.PaymentRecord
	paymentErr    error

	createCalls   int
	getCalls      int
	lastRequest   payments.PreferenceRequest
	lastPaymentID string
}

func (s *stubProvider) CreatePreference(_ context.Context, req payments.PreferenceRequest) (*payments.Preference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++
	s.lastRequest = req
	if s.preferenceErr != nil {
		return nil, s.preferenceErr
	}
	return s.preference, nil
}

func (s *stubProvider) GetPayment(_ context.Context, paymentID string) (*payments.PaymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	s.lastPaymentID = paymentID
	if s.paymentErr != nil {
		return nil, s.paymentErr
	}
	return s.payment, nil
}

type recordingStore struct {
	mu      sync.Mutex
	applied []payments.PaymentRecord
}

func (s *recordingStore) ApplyPayment(_ context.Context, record payments.PaymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applied = append(s.applied, record)
	return nil
}
