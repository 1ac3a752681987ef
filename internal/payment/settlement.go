package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	apperr "github.com/example/payment-settlement/pkg/errors"
	"github.com/example/payment-settlement/pkg/metrics"
)

// Publisher emits the settlement event for a succeeded payment.
type Publisher interface {
	Publish(ctx context.Context, orderID, userID string, amount float64) error
}

// Settler is the background settlement task. It owns the terminal
// transition of every payment it is handed.
type Settler struct {
	repo      Repository
	publisher Publisher
	delay     time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

func NewSettler(repo Repository, publisher Publisher, delay time.Duration, logger *zap.Logger) *Settler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Settler{
		repo:      repo,
		publisher: publisher,
		delay:     delay,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Settle waits out the simulated gateway latency, marks p succeeded and
// publishes its event. Errors never leave Settle; they end in the failed
// status or a log line.
func (s *Settler) Settle(ctx context.Context, p Payment) {
	log := s.logger.With(zap.String("payment_id", p.ID), zap.String("order_id", p.OrderID))

	defer func() {
		if r := recover(); r != nil {
			log.Error("settlement panicked", zap.String("panic", fmt.Sprint(r)))
			s.fail(log, p.ID)
		}
	}()

	log.Info("settlement started")
	timer := time.NewTimer(s.delay)
	select {
	case <-timer.C:
	case <-ctx.Done():
		timer.Stop()
	}

	settled, err := s.repo.MarkSucceeded(p.ID, s.now())
	switch {
	case errors.Is(err, apperr.ErrNotFound), errors.Is(err, apperr.ErrInvalidTransition):
		log.Warn("payment not settleable, skipping", zap.Error(err))
		metrics.IncSettlement(metrics.OutcomeSkipped)
		return
	case err != nil:
		log.Error("mark succeeded", zap.Error(err))
		s.fail(log, p.ID)
		return
	}
	metrics.IncSettlement(metrics.OutcomeSucceeded)
	log.Info("payment succeeded", zap.Timep("paid_at", settled.PaidAt))

	// succeeded is terminal: a lost event does not roll the payment back.
	if err := s.publisher.Publish(ctx, settled.OrderID, settled.UserID, settled.Amount); err != nil {
		metrics.IncPublished(metrics.ResultError)
		log.Error("publish settlement event", zap.Error(err))
		return
	}
	metrics.IncPublished(metrics.ResultOK)
	log.Info("settlement event published")
}

func (s *Settler) fail(log *zap.Logger, id string) {
	if _, err := s.repo.MarkFailed(id); err != nil {
		log.Error("mark failed", zap.Error(err))
		return
	}
	metrics.IncSettlement(metrics.OutcomeFailed)
	log.Warn("payment failed")
}
