package forecast

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/couchcryptid/weather-chat-service/internal/domain"
)

func f(v float64) *float64 { return &v }

func TestSummarize_Averages(t *testing.T) {
	s := Summarize(domain.Forecast{
		City: "manizales",
		Days: 2,
		Records: []domain.HourlyRecord{
			{TempC: f(17.0), Humidity: f(80)},
			{TempC: f(18.25), Humidity: nil},
			{TempC: nil, Humidity: f(70)},
		},
	})

	assert.Equal(t, 17.6, *s.TempC)
	assert.Equal(t, 75.0, *s.Humidity)
	assert.Equal(t, "templado y húmedo", s.Condition)
	assert.Equal(t, "17.6", s.TempText())
	assert.Equal(t, "75", s.HumidityText())
}

func TestSummarize_NoData(t *testing.T) {
	s := Summarize(domain.Forecast{City: "cali", Days: 1})

	assert.Nil(t, s.TempC)
	assert.Nil(t, s.Humidity)
	assert.Equal(t, "variable", s.Condition)
	assert.Equal(t, NotAvailable, s.TempText())
	assert.Equal(t,
		"Para hoy en Cali, la temperatura será de No disponible°C y la humedad es No disponible%. Se espera un clima variable.",
		s.Report())
}

func TestInterpret(t *testing.T) {
	tests := []struct {
		temp, hum float64
		want      string
	}{
		{5, 20, "frío y seco"},
		{10, 30, "templado con humedad moderada"},
		{19.9, 59.9, "templado con humedad moderada"},
		{20, 60, "cálido y húmedo"},
		{30, 10, "caluroso y seco"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Interpret(f(tt.temp), f(tt.hum)))
	}
	assert.Equal(t, "variable", Interpret(f(20), nil))
}

func TestSummary_Report(t *testing.T) {
	s := Summary{City: "santa marta", Days: 4, TempC: f(29.4), Humidity: f(71.2), Condition: "cálido y húmedo"}
	assert.Equal(t,
		"Para los próximos 4 días en Santa Marta, la temperatura será de 29.4°C y la humedad es 71.2%. Se espera un clima cálido y húmedo.",
		s.Report())
}

func TestSummary_PromptContext(t *testing.T) {
	s := Summary{City: "cali", Days: 2, TempC: f(25), Humidity: f(50), Condition: "cálido con humedad moderada"}
	pc := s.PromptContext("tarde")

	want := domain.PromptContext{
		City:      "Cali",
		Days:      2,
		TimeOfDay: "tarde",
		Summary:   s.Report(),
		TempC:     "25",
		Humidity:  "50",
		Prompt:    s.Prompt(),
	}
	if diff := cmp.Diff(want, pc); diff != "" {
		t.Errorf("PromptContext mismatch (-want +got):\n%s", diff)
	}
	assert.Contains(t, pc.Prompt, "consulta el clima en Cali para 2 días")
	assert.Contains(t, pc.Prompt, "temperatura de 25°C y la humedad de 50%.")
}

func TestStaticPhraser(t *testing.T) {
	pc := domain.PromptContext{Summary: "Para hoy en Cali..."}
	assert.Equal(t, "Para hoy en Cali...", StaticPhraser{}.Generate(context.Background(), pc))
}
