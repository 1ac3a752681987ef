package queue

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperr "github.com/example/payment-settlement/pkg/errors"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func newTestPublisher(w *fakeWriter, declareErr error) *Publisher {
	p := NewPublisher([]string{"localhost:9092"}, "payment_succeeded_queue", zap.NewNop())
	p.declare = func(context.Context) error { return declareErr }
	p.newWriter = func() messageWriter { return w }
	return p
}

func TestPublisher_NotInitialized(t *testing.T) {
	p := newTestPublisher(&fakeWriter{}, nil)

	err := p.Publish(context.Background(), "ORD1", "user-1", 5000)
	assert.ErrorIs(t, err, apperr.ErrNotInitialized)
	assert.False(t, p.Connected())
}

func TestPublisher_PublishAfterConnect(t *testing.T) {
	w := &fakeWriter{}
	p := newTestPublisher(w, nil)
	require.NoError(t, p.Connect(context.Background()))
	assert.True(t, p.Connected())

	require.NoError(t, p.Publish(context.Background(), "ORD1", "user-1", 5000))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, []byte("ORD1"), w.msgs[0].Key)
	assert.JSONEq(t, `{"order_id":"ORD1","user_id":"user-1","amount":5000}`, string(w.msgs[0].Value))
	assert.Empty(t, w.msgs[0].Topic, "topic is fixed on the writer")
}

func TestPublisher_DeclareFailure(t *testing.T) {
	p := newTestPublisher(&fakeWriter{}, errors.New("no brokers"))

	err := p.Connect(context.Background())
	assert.ErrorIs(t, err, apperr.ErrDeliveryFailure)
	assert.False(t, p.Connected())
}

func TestPublisher_BrokerErrorPropagates(t *testing.T) {
	w := &fakeWriter{err: errors.New("connection refused")}
	p := newTestPublisher(w, nil)
	require.NoError(t, p.Connect(context.Background()))

	err := p.Publish(context.Background(), "ORD1", "user-1", 5000)
	assert.ErrorIs(t, err, apperr.ErrDeliveryFailure)
	assert.ErrorContains(t, err, "connection refused")
}

func TestPublisher_InvalidEventNotSent(t *testing.T) {
	w := &fakeWriter{}
	p := newTestPublisher(w, nil)
	require.NoError(t, p.Connect(context.Background()))

	err := p.Publish(context.Background(), "ORD1", "", 5000)
	assert.ErrorIs(t, err, apperr.ErrMalformedEvent)
	assert.Empty(t, w.msgs)
}

func TestPublisher_Close(t *testing.T) {
	w := &fakeWriter{}
	p := newTestPublisher(w, nil)
	require.NoError(t, p.Close())

	require.NoError(t, p.Connect(context.Background()))
	require.NoError(t, p.Close())
	assert.True(t, w.closed)
	assert.ErrorIs(t, p.Publish(context.Background(), "ORD1", "u", 1), apperr.ErrNotInitialized)
}

func TestNewPublisher_WriterIsDurable(t *testing.T) {
	p := NewPublisher([]string{"k1:9092"}, "payment_succeeded_queue", nil)

	w, ok := p.newWriter().(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, "payment_succeeded_queue", w.Topic)
	assert.Equal(t, kafka.RequireAll, w.RequiredAcks)
}

func TestDeclareTopic_NoBrokers(t *testing.T) {
	assert.Error(t, DeclareTopic(context.Background(), nil, "q"))
}
