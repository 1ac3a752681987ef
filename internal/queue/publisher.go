// Package queue carries settlement events over Kafka. A topic plays the
// role of the durable named queue; its name is the routing key.
package queue

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/example/payment-settlement/internal/event"
	apperr "github.com/example/payment-settlement/pkg/errors"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher is the single-topic settlement event emitter.
type Publisher struct {
	Brokers []string
	Queue   string

	logger *zap.Logger

	mu     sync.RWMutex
	writer messageWriter

	declare   func(ctx context.Context) error
	newWriter func() messageWriter
}

func NewPublisher(brokers []string, queue string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Publisher{Brokers: brokers, Queue: queue, logger: logger}
	p.declare = p.declareTopic
	p.newWriter = func() messageWriter {
		return &kafka.Writer{
			Addr:     kafka.TCP(p.Brokers...),
			Topic:    p.Queue,
			Balancer: &kafka.Hash{},
			// wait for every in-sync replica: the message survives a broker restart
			RequiredAcks: kafka.RequireAll,
			MaxAttempts:  1,
			BatchSize:    1,
			WriteTimeout: 10 * time.Second,
		}
	}
	return p
}

// Connect declares the durable topic and opens the writer. Publish fails
// with ErrNotInitialized until Connect succeeds.
func (p *Publisher) Connect(ctx context.Context) error {
	p.logger.Info("connecting to kafka", zap.Strings("brokers", p.Brokers), zap.String("queue", p.Queue))
	if err := p.declare(ctx); err != nil {
		p.logger.Error("declare queue", zap.Error(err))
		return apperr.Wrap(apperr.CodeDeliveryFailure, "declare queue "+p.Queue, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writer == nil {
		p.writer = p.newWriter()
	}
	p.logger.Info("queue declared", zap.String("queue", p.Queue))
	return nil
}

func (p *Publisher) Connected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.writer != nil
}

// Publish sends one settlement event. There is no retry: a broker error is
// returned to the caller as ErrDeliveryFailure.
func (p *Publisher) Publish(ctx context.Context, orderID, userID string, amount float64) error {
	p.mu.RLock()
	w := p.writer
	p.mu.RUnlock()
	if w == nil {
		p.logger.Error("publish before connect", zap.String("queue", p.Queue))
		return apperr.ErrNotInitialized
	}

	body, err := event.SettlementEvent{OrderID: orderID, UserID: userID, Amount: amount}.Encode()
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(orderID),
		Value: body,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
		},
	}
	if err := w.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("publish settlement event", zap.String("order_id", orderID), zap.Error(err))
		return apperr.Wrap(apperr.CodeDeliveryFailure, "publish to "+p.Queue, err)
	}

	p.logger.Info("published settlement event",
		zap.String("order_id", orderID),
		zap.String("user_id", userID),
		zap.Float64("amount", amount))
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writer == nil {
		return nil
	}
	err := p.writer.Close()
	p.writer = nil
	if err != nil {
		p.logger.Error("close kafka writer", zap.Error(err))
		return err
	}
	p.logger.Info("kafka writer closed")
	return nil
}

// declareTopic creates the topic on the cluster controller; an existing
// topic is fine.
func (p *Publisher) declareTopic(ctx context.Context) error {
	return DeclareTopic(ctx, p.Brokers, p.Queue)
}

func DeclareTopic(ctx context.Context, brokers []string, topic string) error {
	if len(brokers) == 0 {
		return errors.New("no kafka brokers configured")
	}
	conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return err
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return err
	}
	ctrl, err := kafka.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return err
	}
	defer ctrl.Close()

	err = ctrl.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if errors.Is(err, kafka.TopicAlreadyExists) {
		return nil
	}
	return err
}
