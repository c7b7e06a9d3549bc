package service

import (
	"context"
	"sync"

	"mercadopago-checkout/internal/payments"
)

type stubProvider struct {
	mu sync.Mutex

	createResult *payments.Preference
	createError  error
	createCalls  int
	lastRequest  payments.PreferenceRequest

	paymentResult *payments.PaymentRecord
	paymentError  error
	getCalls      int
	lastPaymentID string
}

func (s *stubProvider) CreatePreference(ctx context.Context, req payments.PreferenceRequest) (*payments.Preference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++
	s.lastRequest = req
	if s.createError != nil {
		return nil, s.createError
	}
	return s.createResult, nil
}

func (s *stubProvider) GetPayment(ctx context.Context, paymentID string) (*payments.PaymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	s.lastPaymentID = paymentID
	if s.paymentError != nil {
		return nil, s.paymentError
	}
	record := *s.paymentResult
	return &record, nil
}

type stubOrderStore struct {
	applied []payments.PaymentRecord
	err     error
}

func (s *stubOrderStore) ApplyPayment(ctx context.Context, record payments.PaymentRecord) error {
	if s.err != nil {
		return s.err
	}
	s.applied = append(s.applied, record)
	return nil
}
