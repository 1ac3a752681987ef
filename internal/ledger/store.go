// Package ledger keeps per-user bonus balances credited from settlement
// events.
package ledger

import (
	"fmt"
	"sync"

	apperr "github.com/example/payment-settlement/pkg/errors"
)

// Balances is the Balance Store contract.
type Balances interface {
	Balance(userID string) float64
	// Add credits delta, creating a zero balance first if needed.
	Add(userID string, delta float64) float64
	// Deduct debits amount unless the balance is smaller.
	Deduct(userID string, amount float64) (float64, error)
}

type MemoryBalances struct {
	mu       sync.Mutex
	balances map[string]float64
}

func NewMemoryBalances() *MemoryBalances {
	return &MemoryBalances{balances: make(map[string]float64)}
}

func (m *MemoryBalances) Balance(userID string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[userID]
}

func (m *MemoryBalances) Add(userID string, delta float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[userID] += delta
	return m.balances[userID]
}

func (m *MemoryBalances) Deduct(userID string, amount float64) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.balances[userID]
	if current < amount {
		return current, apperr.New(apperr.CodeInsufficientBalance,
			fmt.Sprintf("Insufficient bonuses. Available: %v, requested: %v", current, amount))
	}
	m.balances[userID] = current - amount
	return m.balances[userID], nil
}
