package intent

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/weather-chat-service/internal/domain"
	"github.com/couchcryptid/weather-chat-service/internal/nlp"
)

// PatternSet lists the trigger phrases of one intent.
type PatternSet struct {
	Intent  domain.Intent
	Phrases []string
}

// DefaultPatterns is the built-in trigger table. Order matters: the first
// intent with a matching phrase wins.
func DefaultPatterns() []PatternSet {
	return []PatternSet{
		{domain.IntentGreeting, []string{"hola", "buenos días", "buenas tardes", "buenas noches", "buen día", "saludos", "qué tal", "hey"}},
		{domain.IntentFarewell, []string{"adiós", "chao", "chau", "hasta luego", "hasta pronto", "hasta mañana", "nos vemos", "bye"}},
		{domain.IntentThanks, []string{"gracias", "muchas gracias", "te agradezco", "mil gracias"}},
		{domain.IntentHelp, []string{"ayuda", "ayúdame", "necesito ayuda", "cómo funciona", "cómo te uso"}},
		{domain.IntentBotIdentity, []string{"quién eres", "qué eres", "cómo te llamas", "tu nombre", "eres un bot", "eres humano"}},
		{domain.IntentCapabilities, []string{"qué puedes hacer", "qué sabes hacer", "para qué sirves", "qué haces", "tus funciones"}},
	}
}

// LoadPatterns reads a YAML or JSON mapping of intent name to phrase list.
// Mapping order is preserved. A "report" entry is ignored because report
// detection runs before the table.
func LoadPatterns(r io.Reader) ([]PatternSet, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode intent patterns: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("decode intent patterns: expected a mapping, got %s", kindName(root.Kind))
	}

	sets := make([]PatternSet, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		name := root.Content[i].Value
		label, ok := domain.ParseIntent(name)
		if !ok {
			return nil, fmt.Errorf("decode intent patterns: unknown intent %q", name)
		}
		if label == domain.IntentReport {
			continue
		}
		var phrases []string
		if err := root.Content[i+1].Decode(&phrases); err != nil {
			return nil, fmt.Errorf("decode intent patterns for %q: %w", name, err)
		}
		sets = append(sets, PatternSet{Intent: label, Phrases: phrases})
	}
	return sets, nil
}

// LoadPatternsFile opens path and calls LoadPatterns.
func LoadPatternsFile(path string) ([]PatternSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open intent patterns: %w", err)
	}
	defer f.Close()
	return LoadPatterns(f)
}

// compiled holds a pattern set with phrases already canonicalized.
type compiled struct {
	intent  domain.Intent
	phrases []string
}

func compile(sets []PatternSet) []compiled {
	out := make([]compiled, 0, len(sets))
	for _, s := range sets {
		if s.Intent == domain.IntentReport {
			continue
		}
		c := compiled{intent: s.Intent}
		for _, p := range s.Phrases {
			if canon := nlp.Canonical(p); canon != "" {
				c.phrases = append(c.phrases, canon)
			}
		}
		out = append(out, c)
	}
	return out
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "document"
	}
}
