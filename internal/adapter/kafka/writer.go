package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/weather-chat-service/internal/config"
	"github.com/couchcryptid/weather-chat-service/internal/domain"
)

// Writer produces replies to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured reply topic. Replies
// are hashed by conversation ID so one conversation stays on one partition.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaReplyTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch serializes and publishes replies in a single WriteMessages call.
func (w *Writer) LoadBatch(ctx context.Context, replies []domain.ReplyMessage) error {
	if len(replies) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(replies))
	for i := range replies {
		msg, err := serializeToMessage(replies[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write replies: %w", err)
	}
	w.logger.Debug("replies published", "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a reply into a Kafka message keyed by
// conversation ID.
func serializeToMessage(reply domain.ReplyMessage) (kafkago.Message, error) {
	data, err := json.Marshal(reply)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize reply: %w", err)
	}
	headers := []kafkago.Header{
		{Key: "intent", Value: []byte(reply.Intent)},
		{Key: "kind", Value: []byte(reply.Kind)},
		{Key: "responded_at", Value: []byte(reply.RespondedAt.Format(time.RFC3339))},
	}
	if reply.Error != "" {
		headers = append(headers, kafkago.Header{Key: "error", Value: []byte(reply.Error)})
	}
	return kafkago.Message{
		Key:     []byte(reply.ConversationID),
		Value:   data,
		Headers: headers,
	}, nil
}
