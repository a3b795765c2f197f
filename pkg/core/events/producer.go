// Package events publishes valuation results to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// EventValuationComputed is emitted once per completed pipeline run.
const EventValuationComputed = "VALUATION_COMPUTED"

// ValuationEvent is the message body. Figures the run could not produce are nil.
type ValuationEvent struct {
	EventType  string    `json:"event_type"`
	RunID      string    `json:"run_id"`
	Ticker     string    `json:"ticker"`
	PeriodDate string    `json:"period_date"`
	Mode       string    `json:"mode"`
	Horizon    int       `json:"horizon"`
	TTMFFO     *float64  `json:"ttm_ffo"`
	PriceToFFO *float64  `json:"price_to_ffo"`
	ForwardFFO *float64  `json:"forward_ffo"`
	Timestamp  time.Time `json:"timestamp"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes events keyed by ticker.
type Producer struct {
	writer messageWriter
	log    zerolog.Logger
}

// NewProducer creates a producer writing to topic on brokers.
func NewProducer(brokers []string, topic string, log zerolog.Logger) *Producer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}
	return &Producer{writer: w, log: log.With().Str("component", "events").Logger()}
}

// PublishValuation sends ev, filling in the event type and timestamp if unset.
func (p *Producer) PublishValuation(ctx context.Context, ev ValuationEvent) error {
	if ev.EventType == "" {
		ev.EventType = EventValuationComputed
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	return p.publish(ctx, ev.Ticker, ev)
}

func (p *Producer) publish(ctx context.Context, key string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: data,
	})
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.log.Debug().Str("key", key).Int("bytes", len(data)).Msg("Published event")
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
