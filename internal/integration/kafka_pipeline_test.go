//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/weather-chat-service/internal/adapter/kafka"
	"github.com/couchcryptid/weather-chat-service/internal/bootstrap"
	"github.com/couchcryptid/weather-chat-service/internal/config"
	"github.com/couchcryptid/weather-chat-service/internal/dialogue"
	"github.com/couchcryptid/weather-chat-service/internal/domain"
	"github.com/couchcryptid/weather-chat-service/internal/observability"
	"github.com/couchcryptid/weather-chat-service/internal/pipeline"
)

const (
	testRequestTopic = "test-chat-requests"
	testReplyTopic   = "test-chat-replies"
)

// replyMessage holds a deserialized message read from the reply topic.
type replyMessage struct {
	Reply   domain.ReplyMessage
	Key     string
	Headers map[string]string
}

// readReply reads a single message from the reply consumer and deserializes it.
func readReply(ctx context.Context, t *testing.T, consumer *kafkago.Reader) replyMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from reply topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var reply domain.ReplyMessage
	require.NoError(t, json.Unmarshal(msg.Value, &reply), "unmarshal reply message")

	return replyMessage{Reply: reply, Key: string(msg.Key), Headers: headers}
}

func testConfig(t *testing.T, broker, forecastURL, group string) *config.Config {
	t.Helper()
	t.Setenv("FORECAST_URL", forecastURL)
	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.KafkaEnabled = true
	cfg.KafkaBrokers = []string{broker}
	cfg.KafkaRequestTopic = testRequestTopic
	cfg.KafkaReplyTopic = testReplyTopic
	cfg.KafkaGroupID = fmt.Sprintf("%s-%d", group, time.Now().UnixNano())
	cfg.BatchFlushInterval = 2 * time.Second
	return cfg
}

// forecastServer answers every prediction with two hourly records.
func forecastServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, fmt.Sprintf(`[{"id": 7, "city": %q, "hours": [
			{"datetime": "2026-04-03T10:00:00", "temp_pred": 24, "humidity_pred": 60},
			{"datetime": "2026-04-03T11:00:00", "temp_pred": 26, "humidity_pred": 62}
		]}]`, r.URL.Query().Get("city")))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newEngine(t *testing.T, cfg *config.Config, metrics *observability.Metrics) *dialogue.Engine {
	t.Helper()
	logger := discardLogger()
	clock := clockwork.NewRealClock()

	res, err := bootstrap.LoadResources(cfg, logger)
	require.NoError(t, err)
	svc, err := bootstrap.NewServices(context.Background(), cfg, logger, metrics, clock)
	require.NoError(t, err)
	engine, err := bootstrap.NewEngine(cfg, res, svc, bootstrap.NewStore(cfg, logger, metrics, clock), logger, metrics, clock)
	require.NoError(t, err)
	return engine
}

func publish(ctx context.Context, t *testing.T, broker string, msgs ...kafkago.Message) {
	t.Helper()
	producer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testRequestTopic}
	t.Cleanup(func() { _ = producer.Close() })
	require.NoError(t, producer.WriteMessages(ctx, msgs...))
}

func request(t *testing.T, conversation, message string) kafkago.Message {
	t.Helper()
	payload, err := json.Marshal(domain.ChatRequest{Message: message})
	require.NoError(t, err)
	return kafkago.Message{Key: []byte(conversation), Value: payload}
}

func replyConsumer(t *testing.T, broker string) *kafkago.Reader {
	t.Helper()
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testReplyTopic,
		GroupID:     fmt.Sprintf("test-replies-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })
	return consumer
}

// TestKafkaReaderWriter verifies the adapter layer: kafka.Reader and
// kafka.Writer round-trip a request and a reply through Kafka.
func TestKafkaReaderWriter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testRequestTopic)
	createTopic(t, broker, testReplyTopic)
	cfg := testConfig(t, broker, "http://localhost:8000", "test-reader")

	msg := request(t, "conv-1", "hola")
	msg.Headers = []kafkago.Header{{Key: pipeline.UserHeader, Value: []byte("u-1")}}
	publish(ctx, t, broker, msg)

	// Retry because the consumer group may need time to rebalance before
	// partitions are assigned and messages become available.
	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	var batch []domain.RawMessage
	for {
		var err error
		batch, err = reader.ExtractBatch(ctx, 1)
		require.NoError(t, err)
		if len(batch) > 0 {
			break
		}
		if ctx.Err() != nil {
			t.Fatal("timed out waiting for message from request topic")
		}
	}
	require.Len(t, batch, 1)
	raw := batch[0]
	assert.Equal(t, "conv-1", raw.ConversationKey())
	assert.Equal(t, testRequestTopic, raw.Topic)
	require.NotNil(t, raw.Commit, "commit callback should be set")
	require.NoError(t, raw.Commit(ctx))

	req, err := pipeline.ParseRequest(raw)
	require.NoError(t, err)
	assert.Equal(t, domain.ChatRequest{ConversationID: "conv-1", Message: "hola", UserID: "u-1"}, req)

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	reply := domain.NewReplyMessage(domain.Reply{
		ConversationID: "conv-1",
		Text:           "¡Buenas tardes!",
		Intent:         domain.IntentGreeting,
		Kind:           domain.KindSmallTalk,
	}, nil, time.Now())
	require.NoError(t, writer.LoadBatch(ctx, []domain.ReplyMessage{reply}))

	rm := readReply(ctx, t, replyConsumer(t, broker))
	assert.Equal(t, "conv-1", rm.Key)
	assert.Equal(t, "greeting", rm.Headers["intent"])
	assert.Equal(t, "small_talk", rm.Headers["kind"])
	_, err = time.Parse(time.RFC3339, rm.Headers["responded_at"])
	assert.NoError(t, err, "responded_at should be valid RFC3339")
	assert.Equal(t, "¡Buenas tardes!", rm.Reply.Text)
}

// TestPipelineEndToEnd wires Reader, Engine and Writer with real Kafka and
// checks that a multi-turn conversation keeps its context across messages.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testRequestTopic)
	createTopic(t, broker, testReplyTopic)
	cfg := testConfig(t, broker, forecastServer(t).URL, "test-pipeline")

	publish(ctx, t, broker,
		request(t, "conv-a", "quiero saber el clima en Santa Marta"),
		request(t, "conv-b", "hola"),
		request(t, "conv-a", "mañana"),
		request(t, "conv-b", "gracias"),
		request(t, "conv-a", "adiós"),
	)

	metrics := observability.NewMetricsForTesting()
	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	p := pipeline.New(reader, newEngine(t, cfg, metrics), writer, discardLogger(), metrics, cfg.BatchSize)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	consumer := replyConsumer(t, broker)
	byConversation := map[string][]domain.ReplyMessage{}
	for range 5 {
		rm := readReply(ctx, t, consumer)
		byConversation[rm.Key] = append(byConversation[rm.Key], rm.Reply)
	}

	pipelineCancel()
	require.NoError(t, <-errCh)

	a := byConversation["conv-a"]
	require.Len(t, a, 3)
	assert.Equal(t, domain.KindAskDays, a[0].Kind)
	assert.Equal(t, domain.KindForecast, a[1].Kind)
	assert.Equal(t, domain.Slots{City: "santa marta", Days: 2}, a[1].Slots)
	assert.Contains(t, a[1].Text, "Santa Marta")
	assert.Equal(t, domain.KindFarewell, a[2].Kind)

	b := byConversation["conv-b"]
	require.Len(t, b, 2)
	assert.Equal(t, domain.IntentGreeting, b[0].Intent)
	assert.Equal(t, domain.IntentThanks, b[1].Intent)
}

// TestPipelineInvalidRequest verifies that an unparsable message is skipped
// and the pipeline keeps answering valid ones.
func TestPipelineInvalidRequest(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testRequestTopic)
	createTopic(t, broker, testReplyTopic)
	cfg := testConfig(t, broker, "http://localhost:8000", "test-poison")

	publish(ctx, t, broker,
		kafkago.Message{Key: []byte("bad"), Value: []byte("not-json{{{")},
		request(t, "good", "hola"),
	)

	metrics := observability.NewMetricsForTesting()
	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	p := pipeline.New(reader, newEngine(t, cfg, metrics), writer, discardLogger(), metrics, cfg.BatchSize)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	consumer := replyConsumer(t, broker)
	rm := readReply(ctx, t, consumer)
	assert.Equal(t, "good", rm.Key)
	assert.Equal(t, domain.IntentGreeting, rm.Reply.Intent)

	// Verify no second message arrives (the poison pill was skipped).
	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err := consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no second message on reply topic")

	pipelineCancel()
	require.NoError(t, <-errCh)
}
