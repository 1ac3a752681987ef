// Package event defines the settlement event exchanged between the payment
// service and the ledger over the broker.
package event

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"

	apperr "github.com/example/payment-settlement/pkg/errors"
)

// SettlementEvent is published once per succeeded payment.
type SettlementEvent struct {
	OrderID string  `json:"order_id"`
	UserID  string  `json:"user_id"`
	Amount  float64 `json:"amount"`
}

var identifierRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.:-]{0,127}$`)

// ValidIdentifier reports whether s is usable as an order or user id.
// UUIDs and short slugs such as "ORD1" both qualify.
func ValidIdentifier(s string) bool {
	return identifierRe.MatchString(s)
}

func (e SettlementEvent) Validate() error {
	switch {
	case !ValidIdentifier(e.OrderID):
		return malformed(fmt.Sprintf("invalid order_id %q", e.OrderID), nil)
	case !ValidIdentifier(e.UserID):
		return malformed(fmt.Sprintf("invalid user_id %q", e.UserID), nil)
	case math.IsNaN(e.Amount) || math.IsInf(e.Amount, 0) || e.Amount < 0:
		return malformed(fmt.Sprintf("invalid amount %v", e.Amount), nil)
	}
	return nil
}

func (e SettlementEvent) Encode() ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(e)
}

// wire mirrors SettlementEvent with pointers so absent keys are detectable.
type wire struct {
	OrderID *string  `json:"order_id"`
	UserID  *string  `json:"user_id"`
	Amount  *float64 `json:"amount"`
}

// Decode parses a broker payload. Any missing key, wrong type or invalid
// identifier yields ErrMalformedEvent; there is no partial recovery.
func Decode(b []byte) (SettlementEvent, error) {
	var w wire
	if err := json.Unmarshal(b, &w); err != nil {
		return SettlementEvent{}, malformed("bad json", err)
	}
	switch {
	case w.OrderID == nil:
		return SettlementEvent{}, malformed("missing order_id", nil)
	case w.UserID == nil:
		return SettlementEvent{}, malformed("missing user_id", nil)
	case w.Amount == nil:
		return SettlementEvent{}, malformed("missing amount", nil)
	}

	ev := SettlementEvent{OrderID: *w.OrderID, UserID: *w.UserID, Amount: *w.Amount}
	if err := ev.Validate(); err != nil {
		return SettlementEvent{}, err
	}
	return ev, nil
}

func malformed(msg string, err error) error {
	return apperr.Wrap(apperr.CodeMalformedEvent, msg, err)
}
