package payment

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/payment-settlement/internal/event"
	"github.com/example/payment-settlement/internal/worker"
	apperr "github.com/example/payment-settlement/pkg/errors"
)

// Scheduler runs a task in the background without the caller waiting.
type Scheduler interface {
	Go(name string, task worker.Task) bool
}

type InitiateRequest struct {
	OrderID       string
	PaymentMethod string
	UserID        string
	Amount        float64
}

type Options struct {
	Currency            string
	ConfirmationBaseURL string
}

// Service is the payment orchestrator. It is the only component that
// creates payments; terminal transitions belong to the Settler.
type Service struct {
	repo      Repository
	scheduler Scheduler
	settler   *Settler
	opts      Options
	logger    *zap.Logger

	now   func() time.Time
	newID func() string
}

func NewService(repo Repository, scheduler Scheduler, settler *Settler, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Currency == "" {
		opts.Currency = "RUB"
	}
	return &Service{
		repo:      repo,
		scheduler: scheduler,
		settler:   settler,
		opts:      opts,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     newPaymentID,
	}
}

func newPaymentID() string {
	return "pay_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Initiate records a pending payment for the order and schedules its
// settlement. The returned payment is always pending.
func (s *Service) Initiate(ctx context.Context, req InitiateRequest) (Payment, error) {
	if err := validate(req); err != nil {
		return Payment{}, err
	}

	if s.repo.HasSucceeded(req.OrderID) {
		s.logger.Warn("order already paid", zap.String("order_id", req.OrderID))
		return Payment{}, apperr.New(apperr.CodeAlreadyPaid, "Order "+req.OrderID+" already paid")
	}

	id := s.newID()
	p := Payment{
		ID:              id,
		OrderID:         req.OrderID,
		UserID:          req.UserID,
		Status:          StatusPending,
		Amount:          req.Amount,
		Currency:        s.opts.Currency,
		PaymentMethod:   req.PaymentMethod,
		ConfirmationURL: s.confirmationURL(id),
		CreatedAt:       s.now(),
	}
	// Create re-checks the guard under the store lock.
	if err := s.repo.Create(p); err != nil {
		return Payment{}, err
	}
	s.logger.Info("payment created",
		zap.String("payment_id", id),
		zap.String("order_id", p.OrderID),
		zap.String("status", string(p.Status)))

	if !s.scheduler.Go("settle "+id, func(ctx context.Context) { s.settler.Settle(ctx, p) }) {
		s.logger.Error("settlement pool closed", zap.String("payment_id", id))
		if _, err := s.repo.MarkFailed(id); err != nil {
			s.logger.Error("mark failed", zap.String("payment_id", id), zap.Error(err))
		}
		return Payment{}, apperr.New(apperr.CodeUnavailable, "payment processing is shutting down")
	}
	return p, nil
}

func (s *Service) Get(_ context.Context, id string) (Payment, error) {
	return s.repo.Get(id)
}

func (s *Service) confirmationURL(id string) string {
	base := s.opts.ConfirmationBaseURL
	if base == "" {
		return ""
	}
	return base + "?token=" + id
}

func validate(req InitiateRequest) error {
	switch {
	case !event.ValidIdentifier(req.OrderID):
		return apperr.New(apperr.CodeValidation, "order_id is required and must be a valid identifier")
	case strings.TrimSpace(req.PaymentMethod) == "":
		return apperr.New(apperr.CodeValidation, "payment_method is required")
	case !event.ValidIdentifier(req.UserID):
		return apperr.New(apperr.CodeValidation, "user_id is required")
	case req.Amount <= 0:
		return apperr.New(apperr.CodeValidation, "amount must be positive")
	}
	return nil
}
