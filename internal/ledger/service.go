package ledger

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/example/payment-settlement/internal/event"
	apperr "github.com/example/payment-settlement/pkg/errors"
	"github.com/example/payment-settlement/pkg/metrics"
)

type Service struct {
	balances Balances
	logger   *zap.Logger
}

func NewService(balances Balances, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{balances: balances, logger: logger}
}

// Bonus is the credit earned for amount at rate.
func Bonus(amount, rate float64) float64 {
	return amount * rate
}

// Accrue credits amount*rate to userID and returns the credited bonus.
func (s *Service) Accrue(userID, orderID string, amount, rate float64) float64 {
	bonus := Bonus(amount, rate)
	balance := s.balances.Add(userID, bonus)
	metrics.AddAccrued(bonus)
	s.logger.Info("accrued bonuses",
		zap.String("user_id", userID),
		zap.String("order_id", orderID),
		zap.Float64("bonus", bonus),
		zap.Float64("balance", balance))
	return bonus
}

// Spend debits amount bonuses from userID. The balance never goes negative.
func (s *Service) Spend(userID, orderID string, amount float64) (spent, balance float64, err error) {
	if !(amount > 0) || math.IsInf(amount, 0) {
		return 0, 0, apperr.New(apperr.CodeValidation, "amount must be positive")
	}
	balance, err = s.balances.Deduct(userID, amount)
	if err != nil {
		s.logger.Warn("spend rejected",
			zap.String("user_id", userID),
			zap.String("order_id", orderID),
			zap.Float64("requested", amount),
			zap.Float64("balance", balance))
		return 0, balance, err
	}
	s.logger.Info("spent bonuses",
		zap.String("user_id", userID),
		zap.String("order_id", orderID),
		zap.Float64("amount", amount),
		zap.Float64("balance", balance))
	return amount, balance, nil
}

func (s *Service) Balance(userID string) float64 {
	return s.balances.Balance(userID)
}

// SettlementHandler adapts Accrue to the consumer at a fixed rate.
func (s *Service) SettlementHandler(rate float64) func(context.Context, event.SettlementEvent) error {
	return func(_ context.Context, ev event.SettlementEvent) error {
		s.Accrue(ev.UserID, ev.OrderID, ev.Amount, rate)
		return nil
	}
}
