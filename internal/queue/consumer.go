package queue

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/example/payment-settlement/internal/event"
	"github.com/example/payment-settlement/pkg/metrics"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Handler processes one decoded settlement event.
type Handler func(ctx context.Context, ev event.SettlementEvent) error

type ConsumerConfig struct {
	Brokers []string
	Queue   string
	GroupID string
}

// Consumer reads settlement events one at a time and acknowledges each
// after its handler returns, whatever the outcome. Nothing is requeued.
type Consumer struct {
	reader  messageReader
	handle  Handler
	logger  *zap.Logger
	running atomic.Bool
}

func NewConsumer(cfg ConsumerConfig, handle Handler, logger *zap.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Queue,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		// prefetch 1
		QueueCapacity:  1,
		CommitInterval: 0,
		StartOffset:    kafka.FirstOffset,
	})
	return newConsumer(r, handle, logger)
}

func newConsumer(r messageReader, handle Handler, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{reader: r, handle: handle, logger: logger}
}

func (c *Consumer) Running() bool { return c.running.Load() }

// Run blocks until ctx is cancelled or the reader fails.
func (c *Consumer) Run(ctx context.Context) error {
	c.running.Store(true)
	defer c.running.Store(false)

	c.logger.Info("consumer started")
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.logger.Info("consumer stopped")
				return nil
			}
			c.logger.Error("fetch message", zap.Error(err))
			return fmt.Errorf("fetch message: %w", err)
		}

		c.process(ctx, m)

		commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		if err := c.reader.CommitMessages(commitCtx, m); err != nil {
			c.logger.Error("commit message", zap.Int64("offset", m.Offset), zap.Error(err))
		}
		cancel()
	}
}

func (c *Consumer) process(ctx context.Context, m kafka.Message) {
	log := c.logger.With(zap.Int("partition", m.Partition), zap.Int64("offset", m.Offset))

	defer func() {
		if r := recover(); r != nil {
			metrics.IncConsumed(metrics.ResultError)
			log.Error("handler panicked", zap.String("panic", fmt.Sprint(r)))
		}
	}()

	ev, err := event.Decode(m.Value)
	if err != nil {
		metrics.IncConsumed(metrics.ResultMalformed)
		log.Error("dropping malformed settlement event", zap.ByteString("body", m.Value), zap.Error(err))
		return
	}
	log.Info("received settlement event",
		zap.String("order_id", ev.OrderID),
		zap.String("user_id", ev.UserID),
		zap.Float64("amount", ev.Amount))

	if err := c.handle(ctx, ev); err != nil {
		metrics.IncConsumed(metrics.ResultError)
		log.Error("handle settlement event", zap.String("order_id", ev.OrderID), zap.Error(err))
		return
	}
	metrics.IncConsumed(metrics.ResultAccrued)
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
