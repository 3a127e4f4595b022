package nlp

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"gopkg.in/yaml.v3"
)

// MaxDays is the largest day-offset accepted from numeric patterns.
const MaxDays = 14

// DayTerm maps a literal phrase to a 1-based day-offset.
type DayTerm struct {
	Phrase string `yaml:"phrase"`
	Days   int    `yaml:"days"`
}

// DefaultDayTerms is the built-in Spanish lexicon (today = 1).
var DefaultDayTerms = []DayTerm{
	{"hoy", 1}, {"el día de hoy", 1}, {"ahora", 1}, {"ahorita", 1}, {"actual", 1},
	{"mañana", 2}, {"el día siguiente", 2}, {"el día de mañana", 2},
	{"pasado mañana", 3}, {"en dos días", 3}, {"en 2 días", 3},
	{"en tres días", 4}, {"en 3 días", 4},
	{"en cuatro días", 5}, {"en 4 días", 5},
	{"en cinco días", 6}, {"en 5 días", 6},
	{"en seis días", 7}, {"en 6 días", 7},
	{"una semana", 7}, {"en una semana", 7}, {"próxima semana", 7}, {"semana que viene", 7},
	{"en siete días", 8}, {"en 7 días", 8},
}

type dayPhrase struct {
	phrase string
	tokens int
	days   int
}

// DayLexicon is an immutable, ordered phrase lexicon. Phrases with more tokens
// are tried first so "pasado mañana" wins over "mañana"; equal lengths keep
// their declared order.
type DayLexicon struct {
	phrases []dayPhrase
}

// NewDayLexicon normalizes and orders terms. Terms with empty phrases or
// negative offsets are dropped.
func NewDayLexicon(terms []DayTerm) *DayLexicon {
	l := &DayLexicon{phrases: make([]dayPhrase, 0, len(terms))}
	for _, t := range terms {
		tokens := Tokenize(t.Phrase)
		if len(tokens) == 0 || t.Days < 0 {
			continue
		}
		l.phrases = append(l.phrases, dayPhrase{
			phrase: strings.Join(tokens, " "),
			tokens: len(tokens),
			days:   t.Days,
		})
	}
	sort.SliceStable(l.phrases, func(i, j int) bool {
		return l.phrases[i].tokens > l.phrases[j].tokens
	})
	return l
}

// LoadDayLexicon reads a YAML (or JSON) list of {phrase, days} entries.
func LoadDayLexicon(r io.Reader) (*DayLexicon, error) {
	var terms []DayTerm
	if err := yaml.NewDecoder(r).Decode(&terms); err != nil {
		return nil, fmt.Errorf("decode day lexicon: %w", err)
	}
	return NewDayLexicon(terms), nil
}

// LoadDayLexiconFile opens path and calls LoadDayLexicon.
func LoadDayLexiconFile(path string) (*DayLexicon, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open day lexicon: %w", err)
	}
	defer f.Close()
	return LoadDayLexicon(f)
}

// Lookup returns the offset of the first lexicon phrase found in canonical text.
func (l *DayLexicon) Lookup(canonical string) (int, bool) {
	padded := " " + canonical + " "
	for _, p := range l.phrases {
		if strings.Contains(padded, " "+p.phrase+" ") {
			return p.days, true
		}
	}
	return 0, false
}

// dayPattern captures a day count. shift is added to the count: "en N dias"
// points at the day N days after today, which is N+1 with today = 1, the
// same value the lexicon gives "en tres dias".
type dayPattern struct {
	re    *regexp.Regexp
	shift int
}

// Ordered numeric patterns over canonical text, most specific first; the
// first that matches wins.
var dayPatterns = []dayPattern{
	{regexp.MustCompile(`\ben (\d+) dias?\b`), 1},
	{regexp.MustCompile(`\bproximos? (\d+) dias?\b`), 0},
	{regexp.MustCompile(`\bsiguientes? (\d+) dias?\b`), 0},
	{regexp.MustCompile(`\b(\d+) dias? siguientes?\b`), 0},
	{regexp.MustCompile(`\b(\d+) dias?\b`), 0},
}

// TimeExtractor resolves forecast horizons and day-parts.
type TimeExtractor struct {
	lexicon  *DayLexicon
	clock    clockwork.Clock
	location *time.Location
}

// NewTimeExtractor creates an extractor. A nil lexicon uses DefaultDayTerms,
// a nil clock uses the real clock and a nil location uses time.Local.
func NewTimeExtractor(lexicon *DayLexicon, clock clockwork.Clock, loc *time.Location) *TimeExtractor {
	if lexicon == nil {
		lexicon = NewDayLexicon(DefaultDayTerms)
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if loc == nil {
		loc = time.Local
	}
	return &TimeExtractor{lexicon: lexicon, clock: clock, location: loc}
}

// ExtractDays returns the day-offset mentioned in text, or 0 when none is
// found. Resolution order: lexicon phrase, numeric pattern, bare number in
// [0, MaxDays]. Shifted pattern values are capped at MaxDays.
func (e *TimeExtractor) ExtractDays(text string) int {
	canonical := Canonical(text)

	if days, ok := e.lexicon.Lookup(canonical); ok {
		return days
	}

	for _, p := range dayPatterns {
		m := p.re.FindStringSubmatch(canonical)
		if m == nil {
			continue
		}
		if n, ok := boundedDays(m[1]); ok {
			return min(n+p.shift, MaxDays)
		}
	}

	for _, tok := range strings.Fields(canonical) {
		if n, ok := boundedDays(tok); ok {
			return n
		}
	}
	return 0
}

func boundedDays(s string) (int, bool) {
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > MaxDays {
		return 0, false
	}
	return n, true
}

// Day-part labels returned by TimeOfDay.
const (
	Morning   = "mañana"
	Afternoon = "tarde"
	Evening   = "noche"
	LateNight = "madrugada"
)

// TimeOfDay returns a coarse day-part for the current local hour.
func (e *TimeExtractor) TimeOfDay() string {
	return DayPart(e.clock.Now().In(e.location).Hour())
}

// DayPart buckets an hour: [6,12) morning, [12,18) afternoon, [18,22)
// evening, anything else late night.
func DayPart(hour int) string {
	switch {
	case hour >= 6 && hour < 12:
		return Morning
	case hour >= 12 && hour < 18:
		return Afternoon
	case hour >= 18 && hour < 22:
		return Evening
	default:
		return LateNight
	}
}

// DayText renders a 1-based horizon for a forecast sentence.
func DayText(days int) string {
	switch days {
	case 1:
		return "hoy"
	case 2:
		return "mañana"
	case 3:
		return "pasado mañana"
	default:
		return fmt.Sprintf("los próximos %d días", days)
	}
}
