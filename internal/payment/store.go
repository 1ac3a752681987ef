package payment

import (
	"sync"
	"time"

	apperr "github.com/example/payment-settlement/pkg/errors"
)

// Repository is the Payment Record Store contract used by the orchestrator
// and the settlement task.
type Repository interface {
	// Create persists a pending payment unless its order already has a
	// succeeded payment, in which case it returns ErrAlreadyPaid.
	Create(p Payment) error
	Get(id string) (Payment, error)
	HasSucceeded(orderID string) bool
	// MarkSucceeded moves a pending payment to succeeded and stamps paidAt.
	MarkSucceeded(id string, paidAt time.Time) (Payment, error)
	// MarkFailed moves a pending payment to failed.
	MarkFailed(id string) (Payment, error)
}

// MemoryStore is a process-local Repository. Records are never deleted.
type MemoryStore struct {
	mu       sync.RWMutex
	payments map[string]*Payment
	byOrder  map[string][]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		payments: make(map[string]*Payment),
		byOrder:  make(map[string][]string),
	}
}

func (s *MemoryStore) Create(p Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.payments[p.ID]; exists {
		return apperr.New(apperr.CodeValidation, "payment id already exists: "+p.ID)
	}
	if s.hasSucceededLocked(p.OrderID) {
		return apperr.New(apperr.CodeAlreadyPaid, "order "+p.OrderID+" already paid")
	}

	cp := p.clone()
	s.payments[p.ID] = &cp
	s.byOrder[p.OrderID] = append(s.byOrder[p.OrderID], p.ID)
	return nil
}

func (s *MemoryStore) Get(id string) (Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.payments[id]
	if !ok {
		return Payment{}, apperr.New(apperr.CodeNotFound, "payment "+id+" not found")
	}
	return p.clone(), nil
}

func (s *MemoryStore) HasSucceeded(orderID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasSucceededLocked(orderID)
}

func (s *MemoryStore) hasSucceededLocked(orderID string) bool {
	for _, id := range s.byOrder[orderID] {
		if s.payments[id].Status == StatusSucceeded {
			return true
		}
	}
	return false
}

// ByOrder returns every attempt recorded for orderID in creation order.
func (s *MemoryStore) ByOrder(orderID string) []Payment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byOrder[orderID]
	out := make([]Payment, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.payments[id].clone())
	}
	return out
}

func (s *MemoryStore) MarkSucceeded(id string, paidAt time.Time) (Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.transitionableLocked(id, StatusSucceeded)
	if err != nil {
		return Payment{}, err
	}
	// At most one succeeded payment per order, even if two attempts were
	// accepted before either settled.
	if s.hasSucceededLocked(p.OrderID) {
		return Payment{}, apperr.New(apperr.CodeAlreadyPaid, "order "+p.OrderID+" already paid")
	}

	t := paidAt
	p.Status = StatusSucceeded
	p.PaidAt = &t
	return p.clone(), nil
}

func (s *MemoryStore) MarkFailed(id string) (Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.transitionableLocked(id, StatusFailed)
	if err != nil {
		return Payment{}, err
	}
	p.Status = StatusFailed
	return p.clone(), nil
}

func (s *MemoryStore) transitionableLocked(id string, to Status) (*Payment, error) {
	p, ok := s.payments[id]
	if !ok {
		return nil, apperr.New(apperr.CodeNotFound, "payment "+id+" not found")
	}
	if !CanTransition(p.Status, to) {
		return nil, apperr.New(apperr.CodeInvalidTransition, string(p.Status)+" -> "+string(to))
	}
	return p, nil
}
