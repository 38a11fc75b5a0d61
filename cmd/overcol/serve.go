package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/praetorian-inc/overcol/pkg/logger"
	"github.com/praetorian-inc/overcol/pkg/serve"
)

var serveGlobal bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run as streaming server for editor integration",
	Long: `Run overcol as a long-lived streaming server that accepts document
requests via stdin and answers with overflow markers via stdout using NDJSON.

Each open document gets its own overflow mode. The host sends edits and
render requests for visible ranges; every response carries the document's
current markers. The process runs until stdin closes, a "close" request
arrives, or SIGTERM is received.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveGlobal, "global", false, "Enable overflow mode for every programming document opened")
}

func runServe(cmd *cobra.Command, args []string) error {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	log := logger.L(parent)

	engine, err := newEngine(appConfig, log)
	if err != nil {
		return err
	}

	// Set up signal handling
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	srv := serve.NewServer(engine, cmd.InOrStdin(), cmd.OutOrStdout(), log)
	if err := srv.SetHighlight(appConfig.HighlightStyle); err != nil {
		return err
	}
	srv.Global().SetEnabled(serveGlobal)
	return srv.Run(ctx)
}
