package nlp

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// cityColumn is the 0-based column holding the city name in the gazetteer file.
const cityColumn = 1

// Gazetteer is an immutable set of normalized place names indexed for
// token-sequence matching.
type Gazetteer struct {
	names   map[string]struct{}
	byFirst map[string][][]string // first token -> candidate token sequences
}

// NewGazetteer builds a gazetteer from raw city names. Names are normalized;
// empty names are ignored.
func NewGazetteer(names ...string) *Gazetteer {
	g := &Gazetteer{
		names:   make(map[string]struct{}, len(names)),
		byFirst: make(map[string][][]string),
	}
	for _, n := range names {
		tokens := Tokenize(n)
		if len(tokens) == 0 {
			continue
		}
		key := strings.Join(tokens, " ")
		if _, dup := g.names[key]; dup {
			continue
		}
		g.names[key] = struct{}{}
		g.byFirst[tokens[0]] = append(g.byFirst[tokens[0]], tokens)
	}
	return g
}

// LoadGazetteer reads a ';'-delimited file with a header row and the city name
// in the second column. Malformed rows are skipped and counted in the log.
func LoadGazetteer(r io.Reader, logger *slog.Logger) (*Gazetteer, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return NewGazetteer(), nil
		}
		return nil, fmt.Errorf("read gazetteer header: %w", err)
	}

	var names []string
	skipped := 0
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			skipped++
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read gazetteer: %w", err)
		}
		if len(row) <= cityColumn || strings.TrimSpace(row[cityColumn]) == "" {
			skipped++
			continue
		}
		names = append(names, strings.TrimSpace(row[cityColumn]))
	}

	g := NewGazetteer(names...)
	if skipped > 0 && logger != nil {
		logger.Warn("gazetteer rows skipped", "skipped", skipped, "loaded", g.Len())
	}
	return g, nil
}

// LoadGazetteerFile opens path and calls LoadGazetteer.
func LoadGazetteerFile(path string, logger *slog.Logger) (*Gazetteer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gazetteer: %w", err)
	}
	defer f.Close()
	return LoadGazetteer(f, logger)
}

// Len returns the number of distinct place names.
func (g *Gazetteer) Len() int { return len(g.names) }

// Contains reports whether name (in any casing or accenting) is known.
func (g *Gazetteer) Contains(name string) bool {
	_, ok := g.names[Canonical(name)]
	return ok
}

// CityExtractor finds gazetteer place names inside free text.
type CityExtractor struct {
	gazetteer *Gazetteer
}

// NewCityExtractor creates an extractor over a loaded gazetteer.
func NewCityExtractor(g *Gazetteer) *CityExtractor {
	if g == nil {
		g = NewGazetteer()
	}
	return &CityExtractor{gazetteer: g}
}

// ExtractCity returns the normalized city mentioned in text. When several
// place names match, the one spanning the most tokens wins ("santa marta" over
// "santa"); equal lengths resolve to the earliest position. Only whole-token
// sequences match, never substrings of a word.
func (e *CityExtractor) ExtractCity(text string) (string, bool) {
	tokens := Tokenize(text)
	var best []string
	for i, tok := range tokens {
		for _, cand := range e.gazetteer.byFirst[tok] {
			if len(cand) <= len(best) || i+len(cand) > len(tokens) {
				continue
			}
			if matchAt(tokens, i, cand) {
				best = cand
			}
		}
	}
	if best == nil {
		return "", false
	}
	return strings.Join(best, " "), true
}

func matchAt(tokens []string, at int, cand []string) bool {
	for j, c := range cand {
		if tokens[at+j] != c {
			return false
		}
	}
	return true
}
