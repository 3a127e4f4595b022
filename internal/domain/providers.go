package domain

import (
	"context"
	"time"
)

// HourlyRecord is one predicted hour. Nil fields were not produced by the model.
type HourlyRecord struct {
	Time     time.Time `json:"time"`
	TempC    *float64  `json:"temp_pred,omitempty"`
	Humidity *float64  `json:"humidity_pred,omitempty"`
}

// Forecast is the result of a prediction for a city and horizon.
type Forecast struct {
	City     string            `json:"city"`
	Days     int               `json:"days"`
	Records  []HourlyRecord    `json:"records"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ForecastProvider produces predictions for (city, days, user).
type ForecastProvider interface {
	// Predict returns hourly predictions. It returns ErrAuthenticationRequired
	// when the horizon needs a logged-in user and userID is empty.
	Predict(ctx context.Context, city string, days int, userID string) (Forecast, error)
}

// PromptContext carries everything a phrase generator needs to word a forecast.
type PromptContext struct {
	City      string
	Days      int
	TimeOfDay string
	Summary   string // plain-language forecast sentence, usable as-is
	TempC     string
	Humidity  string
	Prompt    string
}

// PhraseProvider turns a prompt into the final user-facing text.
// Implementations never fail: on internal errors they return a fixed apology.
type PhraseProvider interface {
	Generate(ctx context.Context, pc PromptContext) string
}

// ReportProvider exports a user's forecast history as a downloadable file.
type ReportProvider interface {
	Export(ctx context.Context, userID string) (Artifact, error)
}
