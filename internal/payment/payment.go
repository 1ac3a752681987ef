// Package payment holds the payment record, its status machine, the
// in-memory record store, the orchestrator that accepts payments and the
// background settlement task.
package payment

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transition is defined from s.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// CanTransition reports whether from -> to is a legal edge.
// Only pending -> succeeded and pending -> failed exist.
func CanTransition(from, to Status) bool {
	return from == StatusPending && to.Terminal()
}

// Payment is one settlement attempt for an order.
type Payment struct {
	ID              string     `json:"payment_id"`
	OrderID         string     `json:"order_id"`
	UserID          string     `json:"user_id"`
	Status          Status     `json:"status"`
	Amount          float64    `json:"amount"`
	Currency        string     `json:"currency"`
	PaymentMethod   string     `json:"payment_method"`
	ConfirmationURL string     `json:"confirmation_url"`
	CreatedAt       time.Time  `json:"created_at"`
	PaidAt          *time.Time `json:"paid_at"`
}

func (p Payment) clone() Payment {
	if p.PaidAt != nil {
		t := *p.PaidAt
		p.PaidAt = &t
	}
	return p
}
