// Package kafka publishes built reports to a Kafka topic so other services
// (chat bridges, archives) can pick them up.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
)

var reportDate = regexp.MustCompile(`(\d{4})/(\d{2})/(\d{2})`)

// ReportMessage is the JSON value of each published message.
type ReportMessage struct {
	Recipient   string    `json:"recipient"`
	TargetDate  string    `json:"target_date,omitempty"`
	Text        string    `json:"text"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Writer produces report messages to a topic.
// It implements domain.Notifier.
type Writer struct {
	writer *kafkago.Writer
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewWriter creates a producer for topic on brokers.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, clock: clockwork.NewRealClock(), logger: logger}
}

func (w *Writer) Name() string { return "kafka" }

// Push publishes one report. Messages are keyed by recipient so one group's
// reports stay ordered on a partition.
func (w *Writer) Push(ctx context.Context, recipient, text string) error {
	msg, err := serializeToMessage(ReportMessage{
		Recipient:   recipient,
		TargetDate:  targetDateOf(text),
		Text:        text,
		GeneratedAt: w.clock.Now().UTC(),
	})
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish report to %s: %w", w.writer.Topic, err)
	}
	w.logger.Debug("report published", "topic", w.writer.Topic, "recipient", recipient)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a report into a Kafka message.
func serializeToMessage(m ReportMessage) (kafkago.Message, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize report: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(m.Recipient),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "target_date", Value: []byte(m.TargetDate)},
			{Key: "generated_at", Value: []byte(m.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}

// targetDateOf pulls the date out of a report's first line, as
// YYYY-MM-DD, or returns "" when it has none.
func targetDateOf(text string) string {
	first, _, _ := strings.Cut(text, "\n")
	m := reportDate.FindStringSubmatch(first)
	if m == nil {
		return ""
	}
	return m[1] + "-" + m[2] + "-" + m[3]
}
