package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/weather-chat-service/internal/bootstrap"
	"github.com/couchcryptid/weather-chat-service/internal/config"
	"github.com/couchcryptid/weather-chat-service/internal/dialogue"
	"github.com/couchcryptid/weather-chat-service/internal/domain"
	"github.com/couchcryptid/weather-chat-service/internal/intent"
	"github.com/couchcryptid/weather-chat-service/internal/nlp"
	"github.com/couchcryptid/weather-chat-service/internal/observability"
)

func offlineEngine(t *testing.T) *dialogue.Engine {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)
	logger := slog.New(slog.DiscardHandler)
	metrics := observability.NewMetricsForTesting()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 4, 2, 15, 0, 0, 0, time.UTC))

	res, err := bootstrap.LoadResources(cfg, logger)
	require.NoError(t, err)
	svc, err := bootstrap.NewServices(context.Background(), cfg, logger, metrics, clock)
	require.NoError(t, err)
	svc.Forecasts = cannedForecasts{clock: clock}

	engine, err := bootstrap.NewEngine(cfg, res, svc, bootstrap.NewStore(cfg, logger, metrics, clock), logger, metrics, clock)
	require.NoError(t, err)
	return engine
}

func TestReplay_ShippedScript(t *testing.T) {
	script, err := loadScript(filepath.Join("..", "..", "data", "scripts", "forecast_flow.yaml"))
	require.NoError(t, err)

	var out bytes.Buffer
	failed, err := replay(context.Background(), offlineEngine(t), script, &out)
	require.NoError(t, err)
	assert.Zero(t, failed, out.String())
	assert.Contains(t, out.String(), "Manizales")
	assert.Contains(t, out.String(), "error="+domain.ErrorCodeAuthRequired)
}

func TestReplay_ReportsMismatches(t *testing.T) {
	script, err := decodeScript(strings.NewReader(`
turns:
  - message: hola
    intent: farewell
  - message: gracias
    kind: small_talk
`))
	require.NoError(t, err)

	var out bytes.Buffer
	failed, err := replay(context.Background(), offlineEngine(t), script, &out)
	require.NoError(t, err)
	assert.Equal(t, 1, failed)
	assert.Contains(t, out.String(), "want intent=farewell kind=*")
}

func TestDecodeScript_Errors(t *testing.T) {
	cases := map[string]string{
		"no turns":       "conversation_id: x\n",
		"empty message":  "turns:\n  - intent: greeting\n",
		"unknown intent": "turns:\n  - message: hola\n    intent: smalltalk\n",
		"not yaml":       "turns: [",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := decodeScript(strings.NewReader(body))
			assert.Error(t, err)
		})
	}
}

func TestRepl(t *testing.T) {
	in := strings.NewReader("hola\n\n/reset\nclima en Cali hoy\n/quit\nnunca leído\n")
	var out bytes.Buffer

	require.NoError(t, repl(context.Background(), offlineEngine(t), in, &out))

	text := out.String()
	assert.Equal(t, 2, strings.Count(text, "conversación "))
	assert.Equal(t, 2, strings.Count(text, "bot> "))
	assert.Contains(t, text, "Cali")
	assert.NotContains(t, text, "nunca leído")
}

func TestRepl_EndOfInput(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, repl(context.Background(), offlineEngine(t), strings.NewReader("adiós"), &out))
	assert.Contains(t, out.String(), "bot> ")
}

func TestCannedForecasts_Deterministic(t *testing.T) {
	clock := clockwork.NewFakeClock()
	p := cannedForecasts{clock: clock}

	a, err := p.Predict(context.Background(), "cali", 2, "")
	require.NoError(t, err)
	b, err := p.Predict(context.Background(), "cali", 2, "")
	require.NoError(t, err)

	require.Len(t, a.Records, 48)
	assert.Equal(t, *a.Records[5].TempC, *b.Records[5].TempC)
	assert.Equal(t, "offline", a.Metadata["source"])
}

func TestValidatePatterns(t *testing.T) {
	res := &bootstrap.Resources{
		Gazetteer: nlp.NewGazetteer("Honda", "Cali"),
		Patterns: []intent.PatternSet{
			{Intent: domain.IntentGreeting, Phrases: []string{"hola", "Honda"}},
			{Intent: domain.IntentFarewell, Phrases: []string{"HOLA", "chao"}},
			{Intent: domain.IntentThanks},
		},
	}

	p := validatePatterns(res)
	assert.False(t, p.passed())
	assert.Len(t, p.errors, 3)

	var out bytes.Buffer
	assert.False(t, report(&out, []*phase{validateGazetteer(res), p}))
	assert.Contains(t, out.String(), "--- Intent patterns ---")
}

func TestValidateDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)
	res, err := bootstrap.LoadResources(cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	phases := []*phase{
		validateGazetteer(res),
		validatePatterns(res),
		validateScripts([]string{filepath.Join("..", "..", "data", "scripts", "forecast_flow.yaml")}),
	}
	assert.True(t, report(io.Discard, phases))
}
