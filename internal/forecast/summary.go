// Package forecast turns hourly model output into the sentence and prompt
// used to answer a weather question.
package forecast

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/couchcryptid/weather-chat-service/internal/domain"
	"github.com/couchcryptid/weather-chat-service/internal/nlp"
)

// NotAvailable is shown in place of a value the model did not produce.
const NotAvailable = "No disponible"

// Summary is the averaged view of a forecast.
type Summary struct {
	City      string
	Days      int
	TempC     *float64
	Humidity  *float64
	Condition string
}

// Summarize averages temperature and humidity over every record that has
// them. Values are rounded to one decimal.
func Summarize(f domain.Forecast) Summary {
	var (
		tempSum, humSum float64
		tempN, humN     int
	)
	for _, r := range f.Records {
		if r.TempC != nil && !math.IsNaN(*r.TempC) {
			tempSum += *r.TempC
			tempN++
		}
		if r.Humidity != nil && !math.IsNaN(*r.Humidity) {
			humSum += *r.Humidity
			humN++
		}
	}
	s := Summary{City: f.City, Days: f.Days}
	if tempN > 0 {
		s.TempC = ptr(round1(tempSum / float64(tempN)))
	}
	if humN > 0 {
		s.Humidity = ptr(round1(humSum / float64(humN)))
	}
	s.Condition = Interpret(s.TempC, s.Humidity)
	return s
}

// Interpret describes the expected weather, e.g. "cálido y húmedo".
// It returns "variable" unless both values are known.
func Interpret(tempC, humidity *float64) string {
	if tempC == nil || humidity == nil {
		return "variable"
	}
	var b strings.Builder
	switch t := *tempC; {
	case t < 10:
		b.WriteString("frío")
	case t < 20:
		b.WriteString("templado")
	case t < 30:
		b.WriteString("cálido")
	default:
		b.WriteString("caluroso")
	}
	switch h := *humidity; {
	case h < 30:
		b.WriteString(" y seco")
	case h < 60:
		b.WriteString(" con humedad moderada")
	default:
		b.WriteString(" y húmedo")
	}
	return b.String()
}

// TempText formats the average temperature or NotAvailable.
func (s Summary) TempText() string { return formatValue(s.TempC) }

// HumidityText formats the average humidity or NotAvailable.
func (s Summary) HumidityText() string { return formatValue(s.Humidity) }

// Report is the plain forecast sentence shown to the user.
func (s Summary) Report() string {
	return fmt.Sprintf("Para %s en %s, la temperatura será de %s°C y la humedad es %s%%. Se espera un clima %s.",
		nlp.DayText(s.Days), nlp.TitleCase(s.City), s.TempText(), s.HumidityText(), s.Condition)
}

// Prompt asks a language model to reword the report.
func (s Summary) Prompt() string {
	return fmt.Sprintf("Imagina que eres un experto meteorológico y genera una respuesta cálida, amigable y breve para un usuario "+
		"que consulta el clima en %s para %d días. Usa emojis y frases naturales. "+
		"El pronóstico es:\n%s\n"+
		"Genera una respuesta en español que mencione la temperatura de %s°C y la humedad de %s%%.",
		nlp.TitleCase(s.City), s.Days, s.Report(), s.TempText(), s.HumidityText())
}

// PromptContext packages the summary for a domain.PhraseProvider.
func (s Summary) PromptContext(timeOfDay string) domain.PromptContext {
	return domain.PromptContext{
		City:      nlp.TitleCase(s.City),
		Days:      s.Days,
		TimeOfDay: timeOfDay,
		Summary:   s.Report(),
		TempC:     s.TempText(),
		Humidity:  s.HumidityText(),
		Prompt:    s.Prompt(),
	}
}

// StaticPhraser answers with the plain report sentence. It is used when no
// language model is configured.
type StaticPhraser struct{}

// Generate implements domain.PhraseProvider.
func (StaticPhraser) Generate(_ context.Context, pc domain.PromptContext) string {
	return pc.Summary
}

func formatValue(v *float64) string {
	if v == nil {
		return NotAvailable
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func ptr(v float64) *float64 { return &v }
