package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/weather-chat-service/internal/domain"
)

// maxBodyBytes caps the size of a chat request body.
const maxBodyBytes = 64 << 10

// ChatHandler answers one chat request. *dialogue.Engine implements it.
type ChatHandler interface {
	Handle(ctx context.Context, req domain.ChatRequest) (domain.Reply, error)
}

// Option configures a Server.
type Option func(*Server)

// WithClock sets the clock used to stamp replies.
func WithClock(c clockwork.Clock) Option {
	return func(s *Server) { s.clock = c }
}

// Server exposes the chat endpoint plus health, readiness, and metrics.
type Server struct {
	httpServer *http.Server
	chat       ChatHandler
	clock      clockwork.Clock
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /chat, /healthz, /readyz, and /metrics routes.
func NewServer(addr string, chat ChatHandler, ready sharedobs.ReadinessChecker, logger *slog.Logger, opts ...Option) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:        addr,
			Handler:     mux,
			ReadTimeout: 10 * time.Second,
			// Forecast and report calls can take up to a minute.
			WriteTimeout: 2 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
		chat:   chat,
		clock:  clockwork.NewRealClock(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req domain.ChatRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
		return
	}
	if req.ConversationID == "" {
		req.ConversationID = uuid.NewString()
	}

	reply, err := s.chat.Handle(r.Context(), req)
	if reply.ConversationID == "" {
		reply.ConversationID = req.ConversationID
	}
	if err != nil {
		s.logger.Debug("chat turn failed", "error", err, "conversation_id", req.ConversationID)
	}
	sharedobs.WriteJSON(w, statusFor(err), domain.NewReplyMessage(reply, err, s.clock.Now()))
}

// statusFor maps an engine error to an HTTP status. The reply body is sent
// in every case so clients can show its text.
func statusFor(err error) int {
	var provErr *domain.ProviderError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, domain.ErrAuthenticationRequired):
		return http.StatusUnauthorized
	case errors.As(err, &provErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
