package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/weather-chat-service/internal/domain"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive conversation",
	Long: `Reads one message per line and prints the assistant's reply.
Type /reset to start a new conversation and /quit to leave.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		engine, err := newEngine(ctx)
		if err != nil {
			return err
		}
		return repl(ctx, engine, os.Stdin, cmd.OutOrStdout())
	},
}

// responder is the part of the engine the CLI drives.
type responder interface {
	Handle(ctx context.Context, req domain.ChatRequest) (domain.Reply, error)
}

func repl(ctx context.Context, engine responder, in io.Reader, out io.Writer) error {
	conversation := uuid.NewString()
	fmt.Fprintf(out, "conversación %s (escribe /quit para salir)\n", conversation)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "tú> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/reset":
			conversation = uuid.NewString()
			fmt.Fprintf(out, "conversación %s\n", conversation)
			continue
		}

		reply, err := engine.Handle(ctx, domain.ChatRequest{
			ConversationID: conversation,
			Message:        line,
			UserID:         userID,
		})
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprintf(out, "bot> %s\n", reply.Text)
		if reply.Artifact != nil {
			fmt.Fprintf(out, "     reporte: %s\n", reply.Artifact.URL)
		}
		if code := domain.ErrorCode(err); code != "" {
			fmt.Fprintf(out, "     [%s]\n", code)
		}
	}
}
