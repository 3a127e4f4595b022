package main

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/weather-chat-service/internal/domain"
)

// cannedForecasts is a deterministic ForecastProvider for demos and
// scripted replays. Values depend only on the city and the hour.
type cannedForecasts struct {
	clock clockwork.Clock
}

func (c cannedForecasts) Predict(_ context.Context, city string, days int, _ string) (domain.Forecast, error) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(city))
	seed := float64(h.Sum32() % 12)

	start := c.clock.Now().UTC().Truncate(time.Hour)
	records := make([]domain.HourlyRecord, 0, days*24)
	for i := range days * 24 {
		temp := 16 + seed + float64(i%24)/4
		humidity := 55 + seed*2 + float64(i%6)
		records = append(records, domain.HourlyRecord{
			Time:     start.Add(time.Duration(i) * time.Hour),
			TempC:    &temp,
			Humidity: &humidity,
		})
	}
	return domain.Forecast{
		City:     city,
		Days:     days,
		Records:  records,
		Metadata: map[string]string{"source": "offline"},
	}, nil
}
