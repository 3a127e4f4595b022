package dialogue

import (
	"context"
	"errors"
	"time"

	"github.com/couchcryptid/weather-chat-service/internal/domain"
	"github.com/couchcryptid/weather-chat-service/internal/forecast"
)

var errReportsDisabled = errors.New("report export is not configured")

func (e *Engine) smallTalk(t *turn) domain.Reply {
	var text string
	switch t.intent {
	case domain.IntentGreeting:
		text = e.responses.Greeting()
	case domain.IntentThanks:
		text = e.responses.Thanks()
	case domain.IntentHelp:
		text = e.responses.Help()
	case domain.IntentConversation:
		text = e.responses.Conversation(t.message)
	case domain.IntentBotIdentity:
		text = e.responses.Identity()
	case domain.IntentCapabilities:
		text = e.responses.Capabilities()
	}
	return domain.Reply{Text: text, Kind: domain.KindSmallTalk}
}

func (e *Engine) farewell(t *turn) domain.Reply {
	e.store.Clear(t.id)
	return domain.Reply{Text: e.responses.Farewell(), Kind: domain.KindFarewell}
}

func (e *Engine) authRequired() (domain.Reply, error) {
	return domain.Reply{Text: e.responses.AuthRequired(), Kind: domain.KindAuthRequired}, domain.ErrAuthenticationRequired
}

func (e *Engine) report(ctx context.Context, t *turn) (domain.Reply, error) {
	if err := e.guard.AllowReport(t.userID); err != nil {
		return e.authRequired()
	}
	if e.reports == nil {
		return e.reportFailed(errReportsDisabled)
	}

	start := e.clock.Now()
	artifact, err := e.reports.Export(ctx, t.userID)
	e.observeProvider("report", start, err)
	switch {
	case errors.Is(err, domain.ErrAuthenticationRequired):
		return e.authRequired()
	case err != nil:
		return e.reportFailed(err)
	}
	return domain.Reply{Text: e.responses.ReportReady(), Kind: domain.KindReport, Artifact: &artifact}, nil
}

func (e *Engine) reportFailed(err error) (domain.Reply, error) {
	return domain.Reply{Text: e.responses.ReportFailed(), Kind: domain.KindError},
		&domain.ProviderError{Provider: "report", Err: err}
}

func (e *Engine) affirmative(t *turn) domain.Reply {
	switch t.previous {
	case domain.IntentGreeting, domain.IntentCapabilities, domain.IntentHelp:
		return domain.Reply{Text: e.responses.AffirmativeAfterGreeting(), Kind: domain.KindAcknowledge}
	}
	if city := e.storedCity(t.id); city != "" && e.storedDays(t.id) == 0 {
		return e.askDays(e.responses.AskDays(city))
	}
	return domain.Reply{Text: e.responses.GenericAffirmative(), Kind: domain.KindAcknowledge}
}

func (e *Engine) askDays(text string) domain.Reply {
	e.metrics.SlotClarifications.WithLabelValues(domain.SlotDays).Inc()
	return domain.Reply{Text: text, Kind: domain.KindAskDays}
}

// resolveSlots fills city and days from the message, persisting fresh
// values, or from the stored context. Fresh values are persisted even when
// the other slot is still missing.
func (e *Engine) resolveSlots(t *turn) (domain.Slots, error) {
	if t.city != "" {
		e.store.Add(t.id, domain.KeyCity, t.city)
	}
	if t.days > 0 {
		e.store.Add(t.id, domain.KeyDays, t.days)
	}

	city := t.city
	if city == "" {
		if city = e.storedCity(t.id); city == "" {
			return domain.Slots{}, &domain.MissingSlotError{Slot: domain.SlotCity}
		}
	}
	days := t.days
	if days == 0 {
		if days = e.storedDays(t.id); days == 0 {
			return domain.Slots{City: city}, &domain.MissingSlotError{Slot: domain.SlotDays, City: city}
		}
	}
	return domain.Slots{City: city, Days: days}, nil
}

func (e *Engine) weather(ctx context.Context, t *turn) (domain.Reply, error) {
	slots, err := e.resolveSlots(t)
	var missing *domain.MissingSlotError
	if errors.As(err, &missing) {
		if missing.Slot == domain.SlotCity {
			e.metrics.SlotClarifications.WithLabelValues(domain.SlotCity).Inc()
			return domain.Reply{Text: e.responses.CityMissing(), Kind: domain.KindAskCity}, nil
		}
		return e.askDays(e.responses.DaysMissing(missing.City)), nil
	}

	if err := e.guard.AllowForecast(t.userID, slots.Days); err != nil {
		return e.authRequired()
	}

	start := e.clock.Now()
	fc, err := e.forecasts.Predict(ctx, slots.City, slots.Days, t.userID)
	e.observeProvider("forecast", start, err)
	switch {
	case errors.Is(err, domain.ErrAuthenticationRequired):
		return e.authRequired()
	case err != nil:
		return domain.Reply{Text: e.responses.ServiceError(), Kind: domain.KindError},
			&domain.ProviderError{Provider: "forecast", Err: err}
	}
	if fc.City == "" {
		fc.City = slots.City
	}
	if fc.Days == 0 {
		fc.Days = slots.Days
	}

	pc := forecast.Summarize(fc).PromptContext(e.days.TimeOfDay())
	start = e.clock.Now()
	text := e.phrases.Generate(ctx, pc)
	e.observeProvider("phrase", start, nil)
	return domain.Reply{Text: text, Kind: domain.KindForecast}, nil
}

func (e *Engine) fallback(t *turn) domain.Reply {
	switch t.previous {
	case domain.IntentGreeting, domain.IntentConversation, domain.IntentThanks, domain.IntentCapabilities, domain.IntentHelp:
		return domain.Reply{Text: e.responses.AfterGreeting(), Kind: domain.KindFallback}
	}
	if city := e.storedCity(t.id); city != "" {
		return domain.Reply{Text: e.responses.FallbackCity(city), Kind: domain.KindFallback}
	}
	return domain.Reply{Text: e.responses.Fallback(), Kind: domain.KindFallback}
}

func (e *Engine) observeProvider(provider string, start time.Time, err error) {
	outcome := "success"
	switch {
	case errors.Is(err, domain.ErrAuthenticationRequired):
		outcome = "unauthorized"
	case err != nil:
		outcome = "error"
	}
	e.metrics.ProviderRequests.WithLabelValues(provider, outcome).Inc()
	e.metrics.ProviderDuration.WithLabelValues(provider).Observe(e.clock.Since(start).Seconds())
}
