package payment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "github.com/example/payment-settlement/pkg/errors"
)

func pending(id, order string) Payment {
	return Payment{ID: id, OrderID: order, UserID: "u-1", Status: StatusPending, Amount: 100, CreatedAt: time.Now()}
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusPending, StatusSucceeded))
	assert.True(t, CanTransition(StatusPending, StatusFailed))
	assert.False(t, CanTransition(StatusPending, StatusPending))
	assert.False(t, CanTransition(StatusSucceeded, StatusFailed))
	assert.False(t, CanTransition(StatusFailed, StatusSucceeded))
	assert.False(t, CanTransition(StatusSucceeded, StatusPending))
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Create(pending("pay_1", "ORD1")))

	got, err := s.Get("pay_1")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
	assert.Nil(t, got.PaidAt)

	_, err = s.Get("nope")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Create(pending("pay_1", "ORD1")))
	_, err := s.MarkSucceeded("pay_1", time.Now())
	require.NoError(t, err)

	got, _ := s.Get("pay_1")
	got.Status = StatusFailed
	*got.PaidAt = time.Time{}

	again, _ := s.Get("pay_1")
	assert.Equal(t, StatusSucceeded, again.Status)
	assert.False(t, again.PaidAt.IsZero())
}

func TestMemoryStore_TerminalStatesAreFinal(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Create(pending("pay_1", "ORD1")))
	require.NoError(t, s.Create(pending("pay_2", "ORD2")))

	paidAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	p, err := s.MarkSucceeded("pay_1", paidAt)
	require.NoError(t, err)
	assert.Equal(t, paidAt, *p.PaidAt)

	_, err = s.MarkFailed("pay_1")
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	_, err = s.MarkSucceeded("pay_1", time.Now())
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	_, err = s.MarkFailed("pay_2")
	require.NoError(t, err)
	_, err = s.MarkSucceeded("pay_2", time.Now())
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	failed, _ := s.Get("pay_2")
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Nil(t, failed.PaidAt)

	_, err = s.MarkSucceeded("missing", time.Now())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMemoryStore_AtMostOneSucceededPerOrder(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Create(pending("pay_1", "ORD1")))
	require.NoError(t, s.Create(pending("pay_2", "ORD1")))

	_, err := s.MarkSucceeded("pay_1", time.Now())
	require.NoError(t, err)
	_, err = s.MarkSucceeded("pay_2", time.Now())
	assert.ErrorIs(t, err, apperr.ErrAlreadyPaid)

	err = s.Create(pending("pay_3", "ORD1"))
	assert.ErrorIs(t, err, apperr.ErrAlreadyPaid)

	assert.True(t, s.HasSucceeded("ORD1"))
	assert.False(t, s.HasSucceeded("ORD2"))
	assert.Len(t, s.ByOrder("ORD1"), 2)
}
