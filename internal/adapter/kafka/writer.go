package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/era5-temperature-etl/internal/config"
	"github.com/couchcryptid/era5-temperature-etl/internal/domain"
)

// Writer produces monthly records to a Kafka topic.
// It implements pipeline.RecordPublisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// recordMessage is the wire form of a published record.
type recordMessage struct {
	RunID       string   `json:"run_id"`
	Period      string   `json:"period"`
	Year        int      `json:"year"`
	Month       int      `json:"month"`
	Temperature *float64 `json:"temperature"`
}

// PublishRecords writes every record in a single WriteMessages call. Keys are
// the "YYYY-MM" period so reruns of a month land on the same partition.
func (w *Writer) PublishRecords(ctx context.Context, runID string, records []domain.MonthlyRecord) error {
	if len(records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := serializeToMessage(runID, records[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write messages: %w", err)
	}
	w.logger.Info("records published", "topic", w.writer.Topic, "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a MonthlyRecord into a Kafka message.
func serializeToMessage(runID string, r domain.MonthlyRecord) (kafkago.Message, error) {
	key := r.Period().Key()
	data, err := json.Marshal(recordMessage{
		RunID:       runID,
		Period:      key,
		Year:        r.Year,
		Month:       r.Month,
		Temperature: r.Temperature,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize record %s: %w", key, err)
	}
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(runID)},
			{Key: "missing", Value: []byte(strconv.FormatBool(r.Missing()))},
		},
	}, nil
}
