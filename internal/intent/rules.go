package intent

import (
	"strings"

	"github.com/couchcryptid/weather-chat-service/internal/domain"
)

var (
	reportKeywords = []string{"reporte", "reportes", "reportar", "report", "excel", "descargar", "exportar", "archivo", "archivos"}

	// reportCombos are ordered word pairs: the second must follow the first.
	// A second word ending in '*' matches by prefix.
	reportCombos = [][2]string{
		{"generar", "report*"},
		{"crear", "report*"},
		{"datos", "excel"},
		{"archivo", "excel"},
		{"descarga", "datos"},
		{"exportar", "datos"},
		{"quiero", "report*"},
		{"necesito", "report*"},
		{"dame", "report*"},
		{"enviar", "report*"},
		{"mostrar", "report*"},
	}

	reportIndicators = []string{"reporte", "reportar", "excel", "descargar", "exportar", "archivo"}
	actionWords      = []string{"generar", "crear", "hacer", "dame", "quiero", "necesito", "enviar", "mostrar"}

	interrogatives = []string{"como", "que", "cual", "cuales", "cuando", "donde", "porque"}

	affirmativeWords = []string{"si", "ok", "okay", "vale", "bueno", "bien", "claro", "dale", "listo", "perfecto"}
	negativeWords    = []string{"no", "nope", "nunca", "jamas", "tampoco", "negativo"}

	weatherKeywords = []string{
		"clima", "tiempo", "temperatura", "temperaturas", "lluvia", "lluvias", "llover", "llovera",
		"lloviendo", "pronostico", "meteorologico", "calor", "frio", "soleado", "nublado",
		"humedad", "tormenta", "prevision",
	}
)

func matchReport(in *Input) (domain.Intent, bool) {
	if in.HasAny(reportKeywords) {
		return domain.IntentReport, true
	}
	for _, combo := range reportCombos {
		if in.hasOrderedPair(combo[0], combo[1]) {
			return domain.IntentReport, true
		}
	}
	if in.HasAny(reportIndicators) && (in.HasAny(actionWords) || len(in.Tokens) <= 3) {
		return domain.IntentReport, true
	}
	return "", false
}

// hasOrderedPair reports whether first appears before second.
func (in *Input) hasOrderedPair(first, second string) bool {
	i := in.index(first, 0)
	if i < 0 {
		return false
	}
	prefix, isPrefix := strings.CutSuffix(second, "*")
	for _, t := range in.Tokens[i+1:] {
		if t == second || (isPrefix && strings.HasPrefix(t, prefix)) {
			return true
		}
	}
	return false
}

func matchConversationQuestion(in *Input) (domain.Intent, bool) {
	if len(in.Tokens) >= 5 {
		return "", false
	}
	if in.HasAny(interrogatives) || in.HasPhrase("por que") {
		return domain.IntentConversation, true
	}
	return "", false
}

func matchShortAnswer(in *Input) (domain.Intent, bool) {
	if n := len(in.Tokens); n < 1 || n > 3 {
		return "", false
	}
	for _, t := range in.Tokens {
		for _, w := range affirmativeWords {
			if t == w {
				return domain.IntentAffirmative, true
			}
		}
		for _, w := range negativeWords {
			if t == w {
				return domain.IntentNegative, true
			}
		}
	}
	return "", false
}

func weatherRule(cities CityFinder, days DayFinder) func(*Input) (domain.Intent, bool) {
	return func(in *Input) (domain.Intent, bool) {
		if cities != nil {
			if _, ok := cities.ExtractCity(in.Canonical); ok {
				return domain.IntentWeather, true
			}
		}
		if days != nil && days.ExtractDays(in.Canonical) > 0 {
			return domain.IntentWeather, true
		}
		if in.HasAny(weatherKeywords) {
			return domain.IntentWeather, true
		}
		return "", false
	}
}
