// Package dialogue runs one conversation turn: it classifies the message,
// fills the city and days slots from the message or the stored context,
// and dispatches to the matching reply strategy.
package dialogue

import (
	"context"
	"errors"
	"log/slog"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/weather-chat-service/internal/domain"
	"github.com/couchcryptid/weather-chat-service/internal/intent"
	"github.com/couchcryptid/weather-chat-service/internal/nlp"
	"github.com/couchcryptid/weather-chat-service/internal/observability"
	"github.com/couchcryptid/weather-chat-service/internal/responses"
	"github.com/couchcryptid/weather-chat-service/internal/session"
)

// Classifier labels a message.
type Classifier interface {
	Detect(text string) domain.Intent
	HasWeatherIntent(text string) bool
}

// TimeExtractor resolves day offsets and the current day-part.
type TimeExtractor interface {
	ExtractDays(text string) int
	TimeOfDay() string
}

// Deps are the collaborators of an Engine. Classifier, Cities, Days, Store,
// Responses, Forecasts and Phrases are required.
type Deps struct {
	Classifier Classifier
	Cities     intent.CityFinder
	Days       TimeExtractor
	Store      *session.Store
	Locker     *session.Locker
	Responses  *responses.Generator
	Forecasts  domain.ForecastProvider
	Phrases    domain.PhraseProvider
	Reports    domain.ReportProvider // nil disables report exports
	Guard      AuthGuard
	Logger     *slog.Logger
	Metrics    *observability.Metrics
	Clock      clockwork.Clock
}

// Engine is the dialogue state machine. It is safe for concurrent use; turns
// on the same conversation are serialized.
type Engine struct {
	classifier Classifier
	cities     intent.CityFinder
	days       TimeExtractor
	store      *session.Store
	locker     *session.Locker
	responses  *responses.Generator
	forecasts  domain.ForecastProvider
	phrases    domain.PhraseProvider
	reports    domain.ReportProvider
	guard      AuthGuard
	logger     *slog.Logger
	metrics    *observability.Metrics
	clock      clockwork.Clock
}

// New validates deps and builds an Engine.
func New(d Deps) (*Engine, error) {
	switch {
	case d.Classifier == nil:
		return nil, errors.New("dialogue: classifier is required")
	case d.Cities == nil:
		return nil, errors.New("dialogue: city extractor is required")
	case d.Days == nil:
		return nil, errors.New("dialogue: time extractor is required")
	case d.Store == nil:
		return nil, errors.New("dialogue: context store is required")
	case d.Responses == nil:
		return nil, errors.New("dialogue: response generator is required")
	case d.Forecasts == nil:
		return nil, errors.New("dialogue: forecast provider is required")
	case d.Phrases == nil:
		return nil, errors.New("dialogue: phrase provider is required")
	}
	e := &Engine{
		classifier: d.Classifier,
		cities:     d.Cities,
		days:       d.Days,
		store:      d.Store,
		locker:     d.Locker,
		responses:  d.Responses,
		forecasts:  d.Forecasts,
		phrases:    d.Phrases,
		reports:    d.Reports,
		guard:      d.Guard,
		logger:     d.Logger,
		metrics:    d.Metrics,
		clock:      d.Clock,
	}
	if e.locker == nil {
		e.locker = session.NewLocker()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.metrics == nil {
		e.metrics = observability.NewMetricsForTesting()
	}
	if e.clock == nil {
		e.clock = clockwork.NewRealClock()
	}
	return e, nil
}

// turn is the per-message working state.
type turn struct {
	id       string
	userID   string
	message  string
	text     string // normalized
	intent   domain.Intent
	previous domain.Intent
	city     string
	days     int
}

// Handle answers one message. The returned Reply always carries text that is
// safe to show. The error is domain.ErrAuthenticationRequired when the action
// needs a logged-in user, or a *domain.ProviderError when a collaborator failed.
func (e *Engine) Handle(ctx context.Context, req domain.ChatRequest) (domain.Reply, error) {
	start := e.clock.Now()
	if req.ConversationID == "" {
		req.ConversationID = uuid.NewString()
	}

	unlock := e.locker.Lock(req.ConversationID)
	defer unlock()

	t := &turn{
		id:      req.ConversationID,
		userID:  req.UserID,
		message: req.Message,
		text:    nlp.Normalize(req.Message),
	}
	t.intent = e.classifier.Detect(t.text)
	t.city, _ = e.cities.ExtractCity(t.text)
	t.days = e.days.ExtractDays(t.text)

	// The previous intent must be read before this turn overwrites it.
	t.previous = e.lastIntent(t.id)
	e.store.Add(t.id, domain.KeyLastIntent, t.intent)

	reply, err := e.dispatch(ctx, t)
	reply.ConversationID = t.id
	reply.Intent = t.intent
	reply.TopicChanged = intent.TopicChanged(t.intent, t.previous)
	if reply.Kind != domain.KindFarewell {
		reply.Slots = e.storedSlots(t.id)
	}

	e.record(t, reply, err, e.clock.Since(start))
	return reply, err
}

// CheckReadiness reports whether the forecast provider can serve requests,
// when the provider exposes a readiness check.
func (e *Engine) CheckReadiness(ctx context.Context) error {
	if rc, ok := e.forecasts.(sharedobs.ReadinessChecker); ok {
		return rc.CheckReadiness(ctx)
	}
	return nil
}

func (e *Engine) dispatch(ctx context.Context, t *turn) (domain.Reply, error) {
	switch {
	case t.intent.IsSmallTalk():
		return e.smallTalk(t), nil
	case t.intent == domain.IntentFarewell:
		return e.farewell(t), nil
	case t.intent == domain.IntentReport:
		return e.report(ctx, t)
	case t.intent == domain.IntentAffirmative:
		return e.affirmative(t), nil
	case t.intent == domain.IntentNegative:
		return domain.Reply{Text: e.responses.Negative(), Kind: domain.KindAcknowledge}, nil
	case t.intent == domain.IntentWeather, t.city != "", t.days > 0, e.classifier.HasWeatherIntent(t.text):
		return e.weather(ctx, t)
	default:
		return e.fallback(t), nil
	}
}

func (e *Engine) record(t *turn, reply domain.Reply, err error, elapsed time.Duration) {
	e.metrics.Turns.WithLabelValues(string(t.intent), string(reply.Kind)).Inc()
	e.metrics.TurnDuration.Observe(elapsed.Seconds())
	e.metrics.ActiveContexts.Set(float64(e.store.Len()))
	if reply.TopicChanged {
		e.metrics.TopicChanges.Inc()
	}

	attrs := []any{
		"conversation_id", t.id,
		"intent", t.intent,
		"previous_intent", t.previous,
		"kind", reply.Kind,
		"city", reply.Slots.City,
		"days", reply.Slots.Days,
		"topic_changed", reply.TopicChanged,
		"duration", elapsed,
	}
	var provErr *domain.ProviderError
	switch {
	case errors.As(err, &provErr):
		e.logger.Error("turn failed", append(attrs, "provider", provErr.Provider, "error", provErr.Err)...)
	case err != nil:
		e.logger.Info("turn rejected", append(attrs, "error", err)...)
	default:
		e.logger.Debug("turn handled", attrs...)
	}
}

func (e *Engine) lastIntent(id string) domain.Intent {
	if v, ok := e.store.Get(id, domain.KeyLastIntent, nil).(domain.Intent); ok {
		return v
	}
	return ""
}

func (e *Engine) storedCity(id string) string {
	city, _ := e.store.Get(id, domain.KeyCity, "").(string)
	return city
}

func (e *Engine) storedDays(id string) int {
	days, _ := e.store.Get(id, domain.KeyDays, 0).(int)
	return days
}

func (e *Engine) storedSlots(id string) domain.Slots {
	data := e.store.GetAll(id)
	var s domain.Slots
	s.City, _ = data[domain.KeyCity].(string)
	s.Days, _ = data[domain.KeyDays].(int)
	return s
}
