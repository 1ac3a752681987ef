package ledger

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/payment-settlement/internal/event"
	apperr "github.com/example/payment-settlement/pkg/errors"
)

func newService() *Service {
	return NewService(NewMemoryBalances(), zap.NewNop())
}

func TestAccrue_CreditsAmountTimesRate(t *testing.T) {
	cases := []struct {
		amount, rate, want float64
	}{
		{5000, 0.01, 50},
		{0, 0.01, 0},
		{100, 0, 0},
		{123.45, 0.1, 12.345},
	}
	for _, tc := range cases {
		svc := newService()
		got := svc.Accrue("user-1", "ORD1", tc.amount, tc.rate)
		assert.InDelta(t, tc.want, got, 1e-9)
		assert.InDelta(t, tc.want, svc.Balance("user-1"), 1e-9)
	}
}

func TestAccrue_SumsLinearly(t *testing.T) {
	svc := newService()

	svc.Accrue("user-1", "ORD1", 100, 0.01)
	svc.Accrue("user-1", "ORD2", 50, 0.01)

	assert.InDelta(t, 1.50, svc.Balance("user-1"), 1e-9)
	assert.Zero(t, svc.Balance("user-2"))
}

func TestAccrue_Concurrent(t *testing.T) {
	svc := newService()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.Accrue("user-1", "ORD", 10, 0.1)
		}()
	}
	wg.Wait()
	assert.InDelta(t, 100, svc.Balance("user-1"), 1e-6)
}

func TestSpend(t *testing.T) {
	svc := newService()
	svc.Accrue("user-1", "ORD1", 10000, 0.01)

	spent, balance, err := svc.Spend("user-1", "ORD2", 40)
	require.NoError(t, err)
	assert.Equal(t, 40.0, spent)
	assert.InDelta(t, 60, balance, 1e-9)

	_, balance, err = svc.Spend("user-1", "ORD3", 61)
	assert.ErrorIs(t, err, apperr.ErrInsufficientBalance)
	assert.InDelta(t, 60, balance, 1e-9)
	assert.InDelta(t, 60, svc.Balance("user-1"), 1e-9)

	_, _, err = svc.Spend("user-1", "ORD3", 0)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, _, err = svc.Spend("user-1", "ORD3", -5)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestSettlementHandler_UsesFixedRate(t *testing.T) {
	svc := newService()
	handle := svc.SettlementHandler(0.01)

	require.NoError(t, handle(context.Background(), event.SettlementEvent{OrderID: "ORD1", UserID: "user-1", Amount: 5000}))
	assert.InDelta(t, 50, svc.Balance("user-1"), 1e-9)
}
