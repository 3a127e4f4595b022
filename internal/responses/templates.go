// Package responses words the bot's canned replies. Each category holds one
// or more templates and one is picked per reply.
package responses

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Topic is a conversation template group selected when its key phrase
// appears in the user's message.
type Topic struct {
	Key       string
	Templates []string
}

// Templates is the full reply catalogue. Templates in DaysMissing, AskDays
// and FallbackCity may contain a {city} placeholder.
type Templates struct {
	Greeting                 []string `yaml:"greeting"`
	Farewell                 []string `yaml:"farewell"`
	CityMissing              []string `yaml:"city_missing"`
	DaysMissing              []string `yaml:"days_missing"`
	Thanks                   []string `yaml:"thanks"`
	Help                     []string `yaml:"help"`
	Identity                 []string `yaml:"identity"`
	Capabilities             []string `yaml:"capabilities"`
	AffirmativeAfterGreeting []string `yaml:"affirmative_after_greeting"`
	AskDays                  []string `yaml:"ask_days"`
	GenericAffirmative       []string `yaml:"generic_affirmative"`
	Negative                 []string `yaml:"negative"`
	AfterGreeting            []string `yaml:"after_greeting"`
	FallbackCity             []string `yaml:"fallback_city"`
	Fallback                 []string `yaml:"fallback"`
	ReportReady              []string `yaml:"report_ready"`
	ReportFailed             []string `yaml:"report_failed"`
	AuthRequired             []string `yaml:"auth_required"`
	ServiceError             []string `yaml:"service_error"`

	// Conversation is keyed by topic phrase in file order. The "default"
	// topic answers when no other key matches.
	Conversation []Topic `yaml:"-"`
}

// DefaultTopic is the conversation key used when no topic matches.
const DefaultTopic = "default"

// DefaultTemplates returns the built-in Spanish catalogue.
func DefaultTemplates() *Templates {
	return &Templates{
		Greeting: []string{
			"Soy tu asistente del clima. ¿De qué ciudad quieres conocer el pronóstico?",
			"Estoy aquí para contarte cómo estará el clima. ¿Qué ciudad te interesa?",
		},
		Farewell: []string{
			"¡Hasta pronto! Que tengas un excelente día.",
			"¡Adiós! Vuelve cuando quieras saber cómo estará el clima.",
		},
		CityMissing: []string{
			"¿De qué ciudad quieres conocer el clima? Por ejemplo: Bogotá, Medellín o Cali.",
			"Necesito saber la ciudad. ¿Dónde quieres consultar el pronóstico?",
		},
		DaysMissing: []string{
			"¿Para cuántos días quieres saber el clima en {city}?",
			"¿Para qué día quieres el pronóstico de {city}? Puedes decir hoy, mañana o en 3 días.",
		},
		Thanks: []string{
			"¡Con gusto! ¿Hay algo más en lo que te pueda ayudar?",
			"¡De nada! Aquí estaré si necesitas otro pronóstico.",
		},
		Help: []string{
			"Puedes preguntarme cosas como: '¿Cómo estará el clima en Medellín mañana?' o 'Dame el pronóstico de Cali para 5 días'.",
		},
		Identity: []string{
			"Soy un asistente virtual especializado en el clima de Colombia.",
		},
		Capabilities: []string{
			"Puedo darte pronósticos de temperatura y humedad por ciudad para los próximos días y generar un reporte en Excel de tus consultas.",
		},
		AffirmativeAfterGreeting: []string{
			"¡Genial! Dime la ciudad y para cuántos días quieres el pronóstico.",
			"¡Perfecto! ¿Qué ciudad quieres consultar?",
		},
		AskDays: []string{
			"¿Cuántos días quieres saber el clima en {city}?",
		},
		GenericAffirmative: []string{
			"¡Entendido! ¿Qué más quieres saber del clima?",
		},
		Negative: []string{
			"Está bien. Si cambias de opinión, aquí estaré.",
			"De acuerdo. ¿Hay algo más en lo que te pueda ayudar?",
		},
		AfterGreeting: []string{
			"¿Quieres que te cuente cómo estará el clima en alguna ciudad?",
		},
		FallbackCity: []string{
			"Parece que anteriormente hablamos sobre {city}. ¿Quieres saber cómo estará el clima allí? Puedes preguntarme específicamente.",
		},
		Fallback: []string{
			"No estoy seguro de entender tu pregunta. Puedo ayudarte con información del clima, por ejemplo: '¿Cómo estará el clima en Bogotá mañana?' o '¿Lloverá en Cali en los próximos 3 días?'",
		},
		ReportReady: []string{
			"Tu reporte en Excel con el historial de predicciones está listo para descargar.",
		},
		ReportFailed: []string{
			"Lo siento, no pude generar tu reporte en este momento. Inténtalo de nuevo más tarde.",
		},
		AuthRequired: []string{
			"Para usar esta función necesitas iniciar sesión o registrarte.",
		},
		ServiceError: []string{
			"Lo siento, tuve un problema obteniendo el pronóstico. Inténtalo de nuevo en unos minutos.",
		},
		Conversation: []Topic{
			{Key: "como estas", Templates: []string{"¡Muy bien, gracias por preguntar! ¿Quieres saber el clima de alguna ciudad?"}},
			{Key: "por que", Templates: []string{"Buena pregunta. Mi especialidad es el clima; pregúntame por cualquier ciudad de Colombia."}},
			{Key: DefaultTopic, Templates: []string{"Cuéntame, ¿de qué ciudad quieres conocer el clima?"}},
		},
	}
}

// Validate checks that every category has at least one template.
func (t *Templates) Validate() error {
	var errs []error
	categories := t.categories()
	for _, name := range slices.Sorted(maps.Keys(categories)) {
		if len(*categories[name]) == 0 {
			errs = append(errs, fmt.Errorf("category %q has no templates", name))
		}
	}
	hasDefault := false
	for _, topic := range t.Conversation {
		if len(topic.Templates) == 0 {
			errs = append(errs, fmt.Errorf("conversation topic %q has no templates", topic.Key))
		}
		if topic.Key == DefaultTopic {
			hasDefault = true
		}
	}
	if !hasDefault {
		errs = append(errs, fmt.Errorf("conversation has no %q topic", DefaultTopic))
	}
	return errors.Join(errs...)
}

func (t *Templates) categories() map[string]*[]string {
	return map[string]*[]string{
		"greeting":                   &t.Greeting,
		"farewell":                   &t.Farewell,
		"city_missing":               &t.CityMissing,
		"days_missing":               &t.DaysMissing,
		"thanks":                     &t.Thanks,
		"help":                       &t.Help,
		"identity":                   &t.Identity,
		"capabilities":               &t.Capabilities,
		"affirmative_after_greeting": &t.AffirmativeAfterGreeting,
		"ask_days":                   &t.AskDays,
		"generic_affirmative":        &t.GenericAffirmative,
		"negative":                   &t.Negative,
		"after_greeting":             &t.AfterGreeting,
		"fallback_city":              &t.FallbackCity,
		"fallback":                   &t.Fallback,
		"report_ready":               &t.ReportReady,
		"report_failed":              &t.ReportFailed,
		"auth_required":              &t.AuthRequired,
		"service_error":              &t.ServiceError,
	}
}

// LoadTemplates reads a YAML or JSON catalogue. Categories missing from the
// file keep their built-in templates. The conversation mapping keeps file
// order so more specific topics can be listed first.
func LoadTemplates(r io.Reader) (*Templates, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return DefaultTemplates(), nil
		}
		return nil, fmt.Errorf("decode templates: %w", err)
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errors.New("decode templates: expected a mapping")
	}

	t := DefaultTemplates()
	categories := t.categories()
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i].Value, root.Content[i+1]
		if key == "conversation" {
			topics, err := decodeTopics(value)
			if err != nil {
				return nil, err
			}
			t.Conversation = topics
			continue
		}
		dst, ok := categories[key]
		if !ok {
			return nil, fmt.Errorf("decode templates: unknown category %q", key)
		}
		var list []string
		if err := value.Decode(&list); err != nil {
			return nil, fmt.Errorf("decode templates for %q: %w", key, err)
		}
		*dst = list
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid templates: %w", err)
	}
	return t, nil
}

// LoadTemplatesFile opens path and calls LoadTemplates.
func LoadTemplatesFile(path string) (*Templates, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open templates: %w", err)
	}
	defer f.Close()
	return LoadTemplates(f)
}

func decodeTopics(n *yaml.Node) ([]Topic, error) {
	if n.Kind != yaml.MappingNode {
		return nil, errors.New("decode templates: conversation must be a mapping of topic to templates")
	}
	topics := make([]Topic, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		var list []string
		if err := n.Content[i+1].Decode(&list); err != nil {
			return nil, fmt.Errorf("decode conversation topic %q: %w", n.Content[i].Value, err)
		}
		topics = append(topics, Topic{Key: n.Content[i].Value, Templates: list})
	}
	return topics, nil
}
