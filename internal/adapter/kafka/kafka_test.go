package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/weather-chat-service/internal/domain"
)

// fakeFetcher serves queued messages, then blocks until the context ends.
type fakeFetcher struct {
	queue     []kafkago.Message
	failAfter error
	committed []kafkago.Message
}

func (f *fakeFetcher) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	if len(f.queue) > 0 {
		msg := f.queue[0]
		f.queue = f.queue[1:]
		return msg, nil
	}
	if f.failAfter != nil {
		return kafkago.Message{}, f.failAfter
	}
	<-ctx.Done()
	return kafkago.Message{}, ctx.Err()
}

func (f *fakeFetcher) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeFetcher) Close() error { return nil }

func testReader(f *fakeFetcher) *Reader {
	return &Reader{reader: f, flushInterval: 20 * time.Millisecond, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func msgAt(offset int64) kafkago.Message {
	return kafkago.Message{Key: []byte("c1"), Value: []byte(`{"message":"hola"}`), Topic: "chat-requests", Offset: offset}
}

func TestMapMessageToRawMessage(t *testing.T) {
	now := time.Now()
	msg := kafkago.Message{
		Key:       []byte("conv-1"),
		Value:     []byte(`{"message":"hola"}`),
		Topic:     "chat-requests",
		Partition: 2,
		Offset:    42,
		Time:      now,
		Headers: []kafkago.Header{
			{Key: "channel", Value: []byte("telegram")},
		},
	}
	f := &fakeFetcher{}

	raw := testReader(f).mapMessageToRawMessage(msg)

	assert.Equal(t, []byte("conv-1"), raw.Key)
	assert.Equal(t, "conv-1", raw.ConversationKey())
	assert.JSONEq(t, `{"message":"hola"}`, string(raw.Value))
	assert.Equal(t, "chat-requests", raw.Topic)
	assert.Equal(t, 2, raw.Partition)
	assert.Equal(t, int64(42), raw.Offset)
	assert.Equal(t, now, raw.Timestamp)
	assert.Equal(t, "telegram", raw.Headers["channel"])

	require.NoError(t, raw.Commit(context.Background()))
	require.Len(t, f.committed, 1)
	assert.Equal(t, int64(42), f.committed[0].Offset)
}

func TestExtractBatch_FillsToBatchSize(t *testing.T) {
	f := &fakeFetcher{queue: []kafkago.Message{msgAt(1), msgAt(2), msgAt(3)}}

	batch, err := testReader(f).ExtractBatch(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, batch, 2)
	assert.Len(t, f.queue, 1)
}

func TestExtractBatch_FlushesPartialBatch(t *testing.T) {
	f := &fakeFetcher{queue: []kafkago.Message{msgAt(1)}}

	batch, err := testReader(f).ExtractBatch(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, batch, 1)
}

func TestExtractBatch_FetchErrorAfterFirstKeepsBatch(t *testing.T) {
	f := &fakeFetcher{queue: []kafkago.Message{msgAt(1)}, failAfter: errors.New("broker gone")}

	batch, err := testReader(f).ExtractBatch(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, batch, 1)
}

func TestExtractBatch_CanceledBeforeFirst(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testReader(&fakeFetcher{}).ExtractBatch(ctx, 10)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2026, 4, 2, 15, 10, 0, 0, time.UTC)
	reply := domain.NewReplyMessage(domain.Reply{
		ConversationID: "conv-1",
		Text:           "Para mañana en Cali...",
		Intent:         domain.IntentWeather,
		Kind:           domain.KindForecast,
	}, nil, now)

	msg, err := serializeToMessage(reply)
	require.NoError(t, err)

	assert.Equal(t, []byte("conv-1"), msg.Key)
	assert.Contains(t, string(msg.Value), `"kind":"forecast"`)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "intent", msg.Headers[0].Key)
	assert.Equal(t, []byte("weather"), msg.Headers[0].Value)
	assert.Equal(t, "kind", msg.Headers[1].Key)
	assert.Equal(t, "responded_at", msg.Headers[2].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[2].Value)
}

func TestSerializeToMessage_ErrorHeader(t *testing.T) {
	reply := domain.NewReplyMessage(domain.Reply{ConversationID: "c1", Kind: domain.KindAuthRequired}, domain.ErrAuthenticationRequired, time.Now())

	msg, err := serializeToMessage(reply)
	require.NoError(t, err)
	require.Len(t, msg.Headers, 4)
	assert.Equal(t, "error", msg.Headers[3].Key)
	assert.Equal(t, []byte(domain.ErrorCodeAuthRequired), msg.Headers[3].Value)
}
