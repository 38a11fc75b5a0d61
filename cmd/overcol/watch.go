package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/praetorian-inc/overcol"
	"github.com/praetorian-inc/overcol/pkg/logger"
	"github.com/praetorian-inc/overcol/pkg/types"
	"github.com/praetorian-inc/overcol/pkg/watch"
)

var (
	watchDebounce time.Duration
	watchColor    string
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Recheck files as they change",
	Long: `Watch a directory tree and recheck every file written to it, printing
the overlong lines of each changed file. Hidden files and directories are
ignored. Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "Wait for writes to settle this long")
	watchCmd.Flags().StringVar(&watchColor, "color", "auto", "Color output: auto, always, never")
}

func runWatch(cmd *cobra.Command, args []string) error {
	root := args[0]
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("target does not exist: %s", root)
	}
	if !info.IsDir() {
		return fmt.Errorf("target is not a directory: %s", root)
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	log := logger.L(parent)

	engine, err := newEngine(appConfig, log)
	if err != nil {
		return err
	}

	w, err := watch.New(watch.Config{
		Root:        root,
		DebounceDur: watchDebounce,
		Filter:      watchable(appConfig.Scan.MaxFileSize),
		Logger:      log,
	})
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	changes, err := w.Start()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	s := newStyles(colorEnabled(watchColor), appConfig)
	fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s (limit %s)\n", root, describeLimit(engine.Policy()))

	for {
		select {
		case <-ctx.Done():
			return nil
		case batch := <-changes:
			if err := checkBatch(cmd.OutOrStdout(), engine, batch, s, log); err != nil {
				return err
			}
		}
	}
}

// watchable skips hidden files and files over maxSize.
func watchable(maxSize int64) func(string) bool {
	return func(path string) bool {
		if strings.HasPrefix(filepath.Base(path), ".") {
			return false
		}
		if maxSize <= 0 {
			return true
		}
		info, err := os.Stat(path)
		return err == nil && info.Size() <= maxSize
	}
}

// checkBatch rechecks the changed files and prints their findings. Files
// that vanished in the meantime are skipped.
func checkBatch(w io.Writer, engine *overcol.Engine, batch []string, s *styles, log *zap.Logger) error {
	var all []*types.Finding
	for _, path := range batch {
		findings, err := engine.CheckFile(path)
		if err != nil {
			log.Debug("skipping changed file", zap.String("path", path), zap.Error(err))
			continue
		}
		fmt.Fprintf(w, "%s: %d overlong lines\n", path, len(findings))
		all = append(all, findings...)
	}
	if len(all) == 0 {
		return nil
	}
	return outputHuman(w, all, s)
}

func describeLimit(p overcol.Policy) string {
	if p.Resolver != nil {
		return "per line"
	}
	if p.Limit > 0 {
		return fmt.Sprintf("%d", p.Limit)
	}
	if p.FallbackWidth > 0 {
		return fmt.Sprintf("%d", p.FallbackWidth)
	}
	return fmt.Sprintf("%d", overcol.DefaultLimit)
}
