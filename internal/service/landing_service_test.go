package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifyReturnDisabledSkipsProvider(t *testing.T) {
	provider := &stubProvider{paymentResult: approvedPayment()}
	NewLandingService(provider, false, nil).VerifyReturn(context.Background(), "123", "approved")
	assert.Zero(t, provider.getCalls)
}

func TestVerifyReturnFetchesPayment(t *testing.T) {
	provider := &stubProvider{paymentResult: approvedPayment()}
	NewLandingService(provider, true, nil).VerifyReturn(context.Background(), "123", "pending")
	assert.Equal(t, 1, provider.getCalls)
}

func TestVerifyReturnSwallowsErrors(t *testing.T) {
	provider := &stubProvider{paymentError: errors.New("boom")}
	svc := NewLandingService(provider, true, nil)

	assert.NotPanics(t, func() { svc.VerifyReturn(context.Background(), "123", "") })
	svc.VerifyReturn(context.Background(), "", "")
	assert.Equal(t, 1, provider.getCalls)
}

func TestVerifyReturnReusesCachedRecord(t *testing.T) {
	provider := &stubProvider{paymentResult: approvedPayment()}
	svc := NewLandingService(provider, true, newTestTracker(t))

	for i := 0; i < 3; i++ {
		svc.VerifyReturn(context.Background(), "123", "approved")
	}
	assert.Equal(t, 1, provider.getCalls)

	svc.VerifyReturn(context.Background(), "124", "approved")
	assert.Equal(t, 2, provider.getCalls)
}
