package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hrygo/verdant/ai/chat"
	"github.com/hrygo/verdant/ai/metrics"
	"github.com/hrygo/verdant/server"
)

// turnHandler is the part of the orchestrator the REPL drives.
type turnHandler interface {
	HandleTurn(ctx context.Context, userID, plantID int64, message string) (*chat.OutboundMessage, error)
}

func newChatCmd() *cobra.Command {
	var userID, plantID int64
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to a plant from the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadProfile()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), terminationSignals...)
			defer stop()

			st, err := openStore(ctx, p)
			if err != nil {
				return err
			}
			defer st.Close()

			components, err := server.NewChat(p, st, metrics.NewPrometheusExporter(metrics.DefaultConfig()))
			if err != nil {
				return err
			}
			return runREPL(ctx, components.Orchestrator, cmd.InOrStdin(), cmd.OutOrStdout(), userID, plantID)
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 1, "user id")
	cmd.Flags().Int64Var(&plantID, "plant", 1, "plant id")
	return cmd
}

// runREPL reads one message per line until EOF, "/quit" or cancellation.
func runREPL(ctx context.Context, h turnHandler, in io.Reader, out io.Writer, userID, plantID int64) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			fmt.Fprint(out, "> ")
			continue
		case "/quit", "/exit":
			return nil
		}

		reply, err := h.HandleTurn(ctx, userID, plantID, line)
		if err != nil {
			fmt.Fprintf(out, "[error] %v\n> ", err)
			continue
		}
		fmt.Fprintf(out, "%s\n> ", reply.Message)
	}
	return scanner.Err()
}
