// Package forecastapi talks to the prediction service that produces hourly
// temperature and humidity forecasts.
package forecastapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/weather-chat-service/internal/domain"
	"github.com/couchcryptid/weather-chat-service/internal/nlp"
)

// UserHeader carries the authenticated user ID to the prediction service.
const UserHeader = "X-User-ID"

// Client implements domain.ForecastProvider against the prediction service.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a prediction service client.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// Predict requests hourly predictions for city over days. A 401 from the
// service is reported as domain.ErrAuthenticationRequired.
func (c *Client) Predict(ctx context.Context, city string, days int, userID string) (domain.Forecast, error) {
	params := url.Values{
		"city": {nlp.TitleCase(city)},
		"days": {strconv.Itoa(days)},
	}
	u := c.baseURL + "/predict_future_weather/?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return domain.Forecast{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if userID != "" {
		req.Header.Set(UserHeader, userID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Forecast{}, fmt.Errorf("predict request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return domain.Forecast{}, domain.ErrAuthenticationRequired
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return domain.Forecast{}, fmt.Errorf("prediction API error: status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var forecasts []forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&forecasts); err != nil {
		return domain.Forecast{}, fmt.Errorf("decode response: %w", err)
	}

	out := domain.Forecast{City: city, Days: days}
	if len(forecasts) == 0 {
		c.logger.Warn("prediction API returned no forecasts", "city", city, "days", days)
		return out, nil
	}
	hours, err := forecasts[0].hours()
	if err != nil {
		return domain.Forecast{}, err
	}
	out.Records = make([]domain.HourlyRecord, 0, len(hours))
	for _, h := range hours {
		out.Records = append(out.Records, domain.HourlyRecord{
			Time:     h.Datetime.Time,
			TempC:    h.TempPred,
			Humidity: h.HumidityPred,
		})
	}
	if id := forecasts[0].ID; id != 0 {
		out.Metadata = map[string]string{"forecast_id": strconv.FormatInt(id, 10)}
	}
	return out, nil
}

// CheckReadiness reports whether the prediction service answers at all.
func (c *Client) CheckReadiness(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("prediction API unreachable: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("prediction API unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// Prediction service response types.

type forecastResponse struct {
	ID    int64           `json:"id"`
	City  string          `json:"city"`
	Hours json.RawMessage `json:"hours"`
}

// hours decodes the hourly list. Older service versions send it as a
// JSON-encoded string.
func (f forecastResponse) hours() ([]hourResponse, error) {
	raw := bytes.TrimSpace(f.Hours)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("decode hours: %w", err)
		}
		raw = []byte(s)
	}
	var hours []hourResponse
	if err := json.Unmarshal(raw, &hours); err != nil {
		return nil, fmt.Errorf("decode hours: %w", err)
	}
	return hours, nil
}

type hourResponse struct {
	Datetime     serviceTime `json:"datetime"`
	TempPred     *float64    `json:"temp_pred"`
	HumidityPred *float64    `json:"humidity_pred"`
}

// serviceTime accepts RFC 3339 and the zone-less layout the service emits.
type serviceTime struct{ time.Time }

var serviceLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"}

func (t *serviceTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	var errs []error
	for _, layout := range serviceLayouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			t.Time = parsed
			return nil
		}
		errs = append(errs, err)
	}
	return fmt.Errorf("parse datetime %q: %w", s, errors.Join(errs...))
}
