package main

import (
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/weather-chat-service/internal/bootstrap"
	"github.com/couchcryptid/weather-chat-service/internal/config"
	"github.com/couchcryptid/weather-chat-service/internal/domain"
	"github.com/couchcryptid/weather-chat-service/internal/nlp"
)

var validateCmd = &cobra.Command{
	Use:   "validate [script.yaml...]",
	Short: "Check the dialogue resources and replay scripts",
	Long: `Loads the gazetteer, day lexicon, intent patterns and reply catalogue
configured in the environment (or the embedded defaults) and checks them
for conflicts. Any replay scripts given are parsed as well.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		res, err := bootstrap.LoadResources(cfg, slog.New(slog.DiscardHandler))
		if err != nil {
			return err
		}
		phases := []*phase{
			validateGazetteer(res),
			validatePatterns(res),
			validateScripts(args),
		}
		if !report(cmd.OutOrStdout(), phases) {
			return fmt.Errorf("validation failed")
		}
		return nil
	},
}

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func validateGazetteer(res *bootstrap.Resources) *phase {
	p := &phase{name: "Gazetteer"}
	if res.Gazetteer.Len() == 0 {
		p.errorf("gazetteer has no cities")
	}
	return p
}

// validatePatterns flags phrases listed under more than one intent, and
// phrases that are also city names, which would hide a weather question.
func validatePatterns(res *bootstrap.Resources) *phase {
	p := &phase{name: "Intent patterns"}
	owner := make(map[string]domain.Intent)
	for _, set := range res.Patterns {
		if len(set.Phrases) == 0 {
			p.errorf("%s: no phrases", set.Intent)
		}
		for _, phrase := range set.Phrases {
			c := nlp.Canonical(phrase)
			if c == "" {
				p.errorf("%s: blank phrase", set.Intent)
				continue
			}
			if prev, dup := owner[c]; dup && prev != set.Intent {
				p.errorf("%q is listed under %s and %s; %s always wins", phrase, prev, set.Intent, prev)
			}
			owner[c] = set.Intent
			if res.Gazetteer.Contains(c) {
				p.errorf("%s: %q is also a city name", set.Intent, phrase)
			}
		}
	}
	return p
}

func validateScripts(paths []string) *phase {
	p := &phase{name: "Replay scripts"}
	for _, path := range paths {
		if _, err := loadScript(path); err != nil {
			p.errorf("%s: %v", path, err)
		}
	}
	return p
}

// report prints a summary line per phase followed by the errors of failed
// phases. It returns whether every phase passed.
func report(out io.Writer, phases []*phase) bool {
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-24s %s\n", p.name, status)
	}
	for _, p := range phases {
		if p.passed() {
			continue
		}
		sort.Strings(p.errors)
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  %d. %s\n", i+1, e)
		}
	}
	return allPassed
}
