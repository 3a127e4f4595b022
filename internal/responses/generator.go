package responses

import (
	"math/rand/v2"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/weather-chat-service/internal/nlp"
)

// Generator picks and fills templates.
type Generator struct {
	templates *Templates
	pick      func(n int) int
	clock     clockwork.Clock
	loc       *time.Location
}

// Option configures a Generator.
type Option func(*Generator)

// WithPicker replaces the random template choice. pick receives the number
// of candidates and returns an index in [0, n).
func WithPicker(pick func(n int) int) Option {
	return func(g *Generator) { g.pick = pick }
}

// WithClock sets the clock used for time-of-day greetings.
func WithClock(c clockwork.Clock) Option {
	return func(g *Generator) { g.clock = c }
}

// WithLocation sets the time zone used for time-of-day greetings.
func WithLocation(loc *time.Location) Option {
	return func(g *Generator) { g.loc = loc }
}

// First always picks the first template. Useful for deterministic output.
func First(int) int { return 0 }

// NewGenerator creates a generator. A nil catalogue uses DefaultTemplates.
func NewGenerator(t *Templates, opts ...Option) *Generator {
	if t == nil {
		t = DefaultTemplates()
	}
	g := &Generator{
		templates: t,
		pick:      rand.IntN,
		clock:     clockwork.NewRealClock(),
		loc:       time.UTC,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) choose(list []string) string {
	switch len(list) {
	case 0:
		return ""
	case 1:
		return list[0]
	}
	i := g.pick(len(list))
	if i < 0 || i >= len(list) {
		i = 0
	}
	return list[i]
}

func (g *Generator) withCity(list []string, city string) string {
	return strings.ReplaceAll(g.choose(list), "{city}", nlp.TitleCase(city))
}

// Greeting prefixes a template with a salutation for the local hour.
func (g *Generator) Greeting() string {
	var prefix string
	switch h := g.clock.Now().In(g.loc).Hour(); {
	case h >= 5 && h < 12:
		prefix = "¡Buenos días!"
	case h >= 12 && h < 18:
		prefix = "¡Buenas tardes!"
	default:
		prefix = "¡Buenas noches!"
	}
	return prefix + " " + g.choose(g.templates.Greeting)
}

// Conversation answers from the first topic whose key appears in message,
// or from the default topic.
func (g *Generator) Conversation(message string) string {
	var fallback []string
	for _, topic := range g.templates.Conversation {
		if topic.Key == DefaultTopic {
			fallback = topic.Templates
			continue
		}
		if nlp.ContainsPhrase(message, topic.Key) {
			return g.choose(topic.Templates)
		}
	}
	return g.choose(fallback)
}

// Farewell closes the conversation.
func (g *Generator) Farewell() string { return g.choose(g.templates.Farewell) }

// CityMissing asks which city the forecast is for.
func (g *Generator) CityMissing() string { return g.choose(g.templates.CityMissing) }

// Thanks answers a thank-you.
func (g *Generator) Thanks() string { return g.choose(g.templates.Thanks) }

// Help explains how to phrase a weather question.
func (g *Generator) Help() string { return g.choose(g.templates.Help) }

// Identity says who the assistant is.
func (g *Generator) Identity() string { return g.choose(g.templates.Identity) }

// Capabilities lists what the assistant can do.
func (g *Generator) Capabilities() string { return g.choose(g.templates.Capabilities) }

// Negative acknowledges a "no".
func (g *Generator) Negative() string { return g.choose(g.templates.Negative) }

// Fallback is used when the message was not understood.
func (g *Generator) Fallback() string { return g.choose(g.templates.Fallback) }

// ReportReady announces that the report can be downloaded.
func (g *Generator) ReportReady() string { return g.choose(g.templates.ReportReady) }

// ReportFailed apologizes for a report export that failed.
func (g *Generator) ReportFailed() string { return g.choose(g.templates.ReportFailed) }

// AuthRequired asks the user to log in.
func (g *Generator) AuthRequired() string { return g.choose(g.templates.AuthRequired) }

// ServiceError apologizes for a forecast service failure.
func (g *Generator) ServiceError() string { return g.choose(g.templates.ServiceError) }

// AffirmativeAfterGreeting answers a "yes" that follows a greeting, help or
// capabilities message.
func (g *Generator) AffirmativeAfterGreeting() string {
	return g.choose(g.templates.AffirmativeAfterGreeting)
}

// GenericAffirmative acknowledges a "yes" with no pending question.
func (g *Generator) GenericAffirmative() string {
	return g.choose(g.templates.GenericAffirmative)
}

// AfterGreeting keeps a small-talk conversation going.
func (g *Generator) AfterGreeting() string {
	return g.choose(g.templates.AfterGreeting)
}

// DaysMissing asks how many days the user wants for city.
func (g *Generator) DaysMissing(city string) string {
	return g.withCity(g.templates.DaysMissing, city)
}

// AskDays follows up an affirmative answer when only the city is known.
func (g *Generator) AskDays(city string) string {
	return g.withCity(g.templates.AskDays, city)
}

// FallbackCity suggests asking about a city mentioned earlier.
func (g *Generator) FallbackCity(city string) string {
	return g.withCity(g.templates.FallbackCity, city)
}
