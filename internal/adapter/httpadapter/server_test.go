package httpadapter_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/weather-chat-service/internal/adapter/httpadapter"
	"github.com/couchcryptid/weather-chat-service/internal/domain"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockChat struct {
	got   domain.ChatRequest
	reply domain.Reply
	err   error
}

func (m *mockChat) Handle(_ context.Context, req domain.ChatRequest) (domain.Reply, error) {
	m.got = req
	reply := m.reply
	reply.ConversationID = req.ConversationID
	return reply, m.err
}

var testNow = time.Date(2026, 4, 2, 15, 0, 0, 0, time.UTC)

func newTestServer(chat *mockChat, readyErr error) *httpadapter.Server {
	return httpadapter.NewServer(":0", chat, &mockReadiness{err: readyErr},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		httpadapter.WithClock(clockwork.NewFakeClockAt(testNow)))
}

func postChat(t *testing.T, srv *httpadapter.Server, body string) (*httptest.ResponseRecorder, domain.ReplyMessage) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	srv.ServeHTTP(rec, req)

	var msg domain.ReplyMessage
	if rec.Code != http.StatusBadRequest {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
	}
	return rec, msg
}

func TestChat_ReturnsReply(t *testing.T) {
	chat := &mockChat{reply: domain.Reply{
		Text:   "Para mañana en Cali, la temperatura será de 24.5°C",
		Intent: domain.IntentWeather,
		Kind:   domain.KindForecast,
		Slots:  domain.Slots{City: "cali", Days: 1},
	}}
	srv := newTestServer(chat, nil)

	rec, msg := postChat(t, srv, `{"conversation_id":"c1","message":"clima en Cali mañana","user_id":"u1"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, domain.ChatRequest{ConversationID: "c1", Message: "clima en Cali mañana", UserID: "u1"}, chat.got)
	assert.Equal(t, "c1", msg.ConversationID)
	assert.Equal(t, domain.KindForecast, msg.Kind)
	assert.Equal(t, domain.Slots{City: "cali", Days: 1}, msg.Slots)
	assert.False(t, msg.DownloadAvailable)
	assert.Empty(t, msg.Error)
	assert.Equal(t, testNow, msg.RespondedAt)
}

func TestChat_AssignsConversationID(t *testing.T) {
	chat := &mockChat{reply: domain.Reply{Text: "¡Hola!", Kind: domain.KindSmallTalk}}
	srv := newTestServer(chat, nil)

	rec, msg := postChat(t, srv, `{"message":"hola"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	_, err := uuid.Parse(msg.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, msg.ConversationID, chat.got.ConversationID)
}

func TestChat_ReportArtifact(t *testing.T) {
	chat := &mockChat{reply: domain.Reply{
		Kind:     domain.KindReport,
		Artifact: &domain.Artifact{Name: "historial.xlsx", URL: "https://files.example/historial.xlsx"},
	}}
	srv := newTestServer(chat, nil)

	_, msg := postChat(t, srv, `{"conversation_id":"c1","message":"quiero el reporte","user_id":"u1"}`)

	assert.True(t, msg.DownloadAvailable)
	require.NotNil(t, msg.Artifact)
	assert.Equal(t, "historial.xlsx", msg.Artifact.Name)
}

func TestChat_ErrorStatuses(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"auth", domain.ErrAuthenticationRequired, http.StatusUnauthorized, domain.ErrorCodeAuthRequired},
		{"provider", &domain.ProviderError{Provider: "forecast", Err: errors.New("timeout")}, http.StatusBadGateway, domain.ErrorCodeProvider},
		{"internal", errors.New("boom"), http.StatusInternalServerError, domain.ErrorCodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			chat := &mockChat{reply: domain.Reply{Text: "Lo siento", Kind: domain.KindError}, err: tc.err}
			srv := newTestServer(chat, nil)

			rec, msg := postChat(t, srv, `{"conversation_id":"c1","message":"clima"}`)

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.code, msg.Error)
			assert.Equal(t, "Lo siento", msg.Text)
		})
	}
}

func TestChat_FailedTurnNotLoggedAgain(t *testing.T) {
	var buf bytes.Buffer
	chat := &mockChat{reply: domain.Reply{Text: "Lo siento", Kind: domain.KindError}, err: errors.New("boom")}
	srv := httpadapter.NewServer(":0", chat, &mockReadiness{},
		slog.New(slog.NewTextHandler(&buf, nil)),
		httpadapter.WithClock(clockwork.NewFakeClockAt(testNow)))

	rec, _ := postChat(t, srv, `{"conversation_id":"c1","message":"clima"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, buf.String(), "the engine already logs failed turns")
}

func TestChat_BadRequests(t *testing.T) {
	for _, body := range []string{`not json`, `{"message":"   "}`, `{}`} {
		t.Run(body, func(t *testing.T) {
			chat := &mockChat{}
			rec, _ := postChat(t, newTestServer(chat, nil), body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, chat.got.Message)
		})
	}
}

func TestChat_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(&mockChat{}, nil)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chat", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(&mockChat{}, nil)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyz(t *testing.T) {
	ready := newTestServer(&mockChat{}, nil)
	rec := httptest.NewRecorder()
	ready.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	notReady := newTestServer(&mockChat{}, fmt.Errorf("forecast service unreachable"))
	rec = httptest.NewRecorder()
	notReady.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(&mockChat{}, nil)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
