// Package bootstrap assembles the dialogue engine and its collaborators from
// configuration. Both the service and the CLI build their engine here.
package bootstrap

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/weather-chat-service/data"
	"github.com/couchcryptid/weather-chat-service/internal/adapter/forecastapi"
	"github.com/couchcryptid/weather-chat-service/internal/adapter/gemini"
	"github.com/couchcryptid/weather-chat-service/internal/adapter/reportapi"
	"github.com/couchcryptid/weather-chat-service/internal/config"
	"github.com/couchcryptid/weather-chat-service/internal/dialogue"
	"github.com/couchcryptid/weather-chat-service/internal/domain"
	"github.com/couchcryptid/weather-chat-service/internal/forecast"
	"github.com/couchcryptid/weather-chat-service/internal/intent"
	"github.com/couchcryptid/weather-chat-service/internal/nlp"
	"github.com/couchcryptid/weather-chat-service/internal/observability"
	"github.com/couchcryptid/weather-chat-service/internal/responses"
	"github.com/couchcryptid/weather-chat-service/internal/session"
)

// Resources are the immutable lookup tables of the dialogue.
type Resources struct {
	Gazetteer *nlp.Gazetteer
	Lexicon   *nlp.DayLexicon
	Patterns  []intent.PatternSet
	Templates *responses.Templates
}

// LoadResources reads each table from its configured path, or from the
// embedded defaults when the path is empty.
func LoadResources(cfg *config.Config, logger *slog.Logger) (*Resources, error) {
	var (
		res Resources
		err error
	)

	if cfg.GazetteerPath != "" {
		res.Gazetteer, err = nlp.LoadGazetteerFile(cfg.GazetteerPath, logger)
	} else {
		res.Gazetteer, err = nlp.LoadGazetteer(bytes.NewReader(data.Cities), logger)
	}
	if err != nil {
		return nil, err
	}

	if cfg.DayLexiconPath != "" {
		res.Lexicon, err = nlp.LoadDayLexiconFile(cfg.DayLexiconPath)
	} else {
		res.Lexicon, err = nlp.LoadDayLexicon(bytes.NewReader(data.Days))
	}
	if err != nil {
		return nil, err
	}

	if cfg.IntentPatternsPath != "" {
		res.Patterns, err = intent.LoadPatternsFile(cfg.IntentPatternsPath)
	} else {
		res.Patterns, err = intent.LoadPatterns(bytes.NewReader(data.Intents))
	}
	if err != nil {
		return nil, err
	}

	if cfg.ResponsesPath != "" {
		res.Templates, err = responses.LoadTemplatesFile(cfg.ResponsesPath)
	} else {
		res.Templates, err = responses.LoadTemplates(bytes.NewReader(data.Responses))
	}
	if err != nil {
		return nil, err
	}

	logger.Info("dialogue resources loaded",
		"cities", res.Gazetteer.Len(),
		"intent_sets", len(res.Patterns),
		"conversation_topics", len(res.Templates.Conversation),
	)
	return &res, nil
}

// Services are the external collaborators of the engine.
type Services struct {
	Forecasts domain.ForecastProvider
	Phrases   domain.PhraseProvider
	Reports   domain.ReportProvider // nil when REPORT_URL is unset
}

// NewServices builds the HTTP clients, the forecast cache, and the phrase
// generator. Without a Gemini key, forecasts are answered with the plain
// summary sentence.
func NewServices(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock) (Services, error) {
	var svc Services

	var forecasts domain.ForecastProvider = forecastapi.NewClient(cfg.ForecastURL, cfg.ForecastTimeout, logger)
	if cfg.ForecastCacheSize > 0 && cfg.ForecastCacheTTL > 0 {
		forecasts = forecastapi.NewCachedProvider(forecasts, cfg.ForecastCacheSize, cfg.ForecastCacheTTL, clock, metrics)
		logger.Info("forecast cache enabled", "size", cfg.ForecastCacheSize, "ttl", cfg.ForecastCacheTTL)
	}
	svc.Forecasts = forecasts

	if cfg.ReportURL != "" {
		svc.Reports = reportapi.NewClient(cfg.ReportURL, cfg.ReportTimeout, logger)
	} else {
		logger.Info("report export disabled")
	}

	if cfg.GeminiAPIKey != "" {
		phraser, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger)
		if err != nil {
			return Services{}, err
		}
		svc.Phrases = phraser
		logger.Info("gemini phrasing enabled", "model", cfg.GeminiModel)
	} else {
		svc.Phrases = forecast.StaticPhraser{}
		logger.Info("gemini phrasing disabled, using plain summaries")
	}
	return svc, nil
}

// NewStore creates the conversation context store. Expired conversations
// are counted and logged.
func NewStore(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock) *session.Store {
	return session.NewStore(cfg.ContextTTL,
		session.WithClock(clock),
		session.WithExpiredHook(func(id string) {
			metrics.ExpiredContexts.Inc()
			logger.Debug("conversation context expired", "conversation_id", id)
		}),
	)
}

// NewEngine wires the dialogue engine.
func NewEngine(cfg *config.Config, res *Resources, svc Services, store *session.Store, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock) (*dialogue.Engine, error) {
	cities := nlp.NewCityExtractor(res.Gazetteer)
	days := nlp.NewTimeExtractor(res.Lexicon, clock, cfg.Location)
	gen := responses.NewGenerator(res.Templates,
		responses.WithClock(clock),
		responses.WithLocation(cfg.Location),
	)

	engine, err := dialogue.New(dialogue.Deps{
		Classifier: intent.New(res.Patterns, cities, days),
		Cities:     cities,
		Days:       days,
		Store:      store,
		Responses:  gen,
		Forecasts:  svc.Forecasts,
		Phrases:    svc.Phrases,
		Reports:    svc.Reports,
		Guard:      dialogue.AuthGuard{AnonymousMaxDays: cfg.AnonymousMaxDays},
		Logger:     logger,
		Metrics:    metrics,
		Clock:      clock,
	})
	if err != nil {
		return nil, fmt.Errorf("build dialogue engine: %w", err)
	}
	return engine, nil
}
