package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockWriter struct {
	WriteMessagesFunc func(ctx context.Context, msgs ...kafka.Message) error
	Messages          []kafka.Message
	Closed            bool
}

func (m *MockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if m.WriteMessagesFunc != nil {
		return m.WriteMessagesFunc(ctx, msgs...)
	}
	m.Messages = append(m.Messages, msgs...)
	return nil
}

func (m *MockWriter) Close() error {
	m.Closed = true
	return nil
}

func TestPublishValuation(t *testing.T) {
	w := &MockWriter{}
	p := &Producer{writer: w, log: zerolog.Nop()}

	ratio := 10.0
	err := p.PublishValuation(context.Background(), ValuationEvent{
		RunID:      "abc",
		Ticker:     "O",
		PeriodDate: "2023-06-30",
		PriceToFFO: &ratio,
	})
	require.NoError(t, err)
	require.Len(t, w.Messages, 1)

	msg := w.Messages[0]
	assert.Equal(t, "O", string(msg.Key))

	var ev ValuationEvent
	require.NoError(t, json.Unmarshal(msg.Value, &ev))
	assert.Equal(t, EventValuationComputed, ev.EventType)
	assert.Equal(t, "abc", ev.RunID)
	assert.False(t, ev.Timestamp.IsZero())
	require.NotNil(t, ev.PriceToFFO)
	assert.Equal(t, 10.0, *ev.PriceToFFO)
	assert.Nil(t, ev.TTMFFO)

	require.NoError(t, p.Close())
	assert.True(t, w.Closed)
}

func TestPublishValuationError(t *testing.T) {
	w := &MockWriter{WriteMessagesFunc: func(ctx context.Context, msgs ...kafka.Message) error {
		return errors.New("broker down")
	}}
	p := &Producer{writer: w, log: zerolog.Nop()}

	err := p.PublishValuation(context.Background(), ValuationEvent{Ticker: "O"})
	assert.ErrorContains(t, err, "broker down")
}

func TestNewProducer(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, "reit-valuations", zerolog.Nop())
	kw, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, "reit-valuations", kw.Topic)
	assert.NoError(t, p.Close())
}
