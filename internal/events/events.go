// Package events publishes import lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Apsteward8/my-bet-tracker/internal/domain"
)

// ImportCompleted is emitted after every batch, committed or not.
type ImportCompleted struct {
	Type   string             `json:"type"`
	SentAt time.Time          `json:"sent_at"`
	Report domain.BatchReport `json:"report"`
}

// messageWriter is the subset of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes ImportCompleted events keyed by source.
type Publisher struct {
	w messageWriter
}

// NewPublisher returns a Publisher writing to topic on brokers.
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{w: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}}
}

// newPublisherWithWriter is used by tests.
func newPublisherWithWriter(w messageWriter) *Publisher {
	return &Publisher{w: w}
}

// ImportCompleted publishes one report.
func (p *Publisher) ImportCompleted(ctx context.Context, r domain.BatchReport) error {
	payload, err := json.Marshal(ImportCompleted{Type: "import.completed", SentAt: time.Now().UTC(), Report: r})
	if err != nil {
		return fmt.Errorf("events.ImportCompleted: marshal: %w", err)
	}
	msg := kafka.Message{Key: []byte(r.Source), Value: payload, Time: time.Now()}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("events.ImportCompleted: %w", err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	return p.w.Close()
}
