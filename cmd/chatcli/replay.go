package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/weather-chat-service/internal/domain"
)

var replayCmd = &cobra.Command{
	Use:   "replay <script.yaml>",
	Short: "Run a scripted conversation and check intents and reply kinds",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		script, err := loadScript(args[0])
		if err != nil {
			return err
		}
		engine, err := newEngine(cmd.Context())
		if err != nil {
			return err
		}
		failed, err := replay(cmd.Context(), engine, script, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d turns did not match", failed, len(script.Turns))
		}
		return nil
	},
}

// Script is a scripted conversation. Empty expectations are not checked.
type Script struct {
	ConversationID string       `yaml:"conversation_id"`
	UserID         string       `yaml:"user_id"`
	Turns          []ScriptTurn `yaml:"turns"`
}

// ScriptTurn is one user message and what the engine should do with it.
type ScriptTurn struct {
	Message string `yaml:"message"`
	UserID  string `yaml:"user_id"` // overrides the script user for this turn
	Intent  string `yaml:"intent"`
	Kind    string `yaml:"kind"`
}

func loadScript(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open script: %w", err)
	}
	defer f.Close()
	return decodeScript(f)
}

func decodeScript(r io.Reader) (*Script, error) {
	var s Script
	if err := yaml.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode script: %w", err)
	}
	if len(s.Turns) == 0 {
		return nil, errors.New("decode script: no turns")
	}
	for i, t := range s.Turns {
		if t.Message == "" {
			return nil, fmt.Errorf("decode script: turn %d has no message", i+1)
		}
		if t.Intent != "" {
			if _, ok := domain.ParseIntent(t.Intent); !ok {
				return nil, fmt.Errorf("decode script: turn %d: unknown intent %q", i+1, t.Intent)
			}
		}
	}
	return &s, nil
}

// replay runs every turn and returns how many did not match.
func replay(ctx context.Context, engine responder, s *Script, out io.Writer) (int, error) {
	conversation := s.ConversationID
	if conversation == "" {
		conversation = uuid.NewString()
	}

	failed := 0
	for i, t := range s.Turns {
		user := s.UserID
		if t.UserID != "" {
			user = t.UserID
		}
		if userID != "" && user == "" {
			user = userID
		}

		reply, err := engine.Handle(ctx, domain.ChatRequest{ConversationID: conversation, Message: t.Message, UserID: user})
		if ctx.Err() != nil {
			return failed, ctx.Err()
		}

		ok := (t.Intent == "" || string(reply.Intent) == t.Intent) &&
			(t.Kind == "" || string(reply.Kind) == t.Kind)
		status := "ok  "
		if !ok {
			status = "FAIL"
			failed++
		}
		fmt.Fprintf(out, "%s %2d > %s\n", status, i+1, t.Message)
		fmt.Fprintf(out, "        intent=%s kind=%s", reply.Intent, reply.Kind)
		if code := domain.ErrorCode(err); code != "" {
			fmt.Fprintf(out, " error=%s", code)
		}
		fmt.Fprintln(out)
		if !ok {
			fmt.Fprintf(out, "        want intent=%s kind=%s\n", orAny(t.Intent), orAny(t.Kind))
		}
		fmt.Fprintf(out, "        %s\n", reply.Text)
	}
	return failed, nil
}

func orAny(s string) string {
	if s == "" {
		return "*"
	}
	return s
}
