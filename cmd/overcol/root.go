package main

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/praetorian-inc/overcol"
	"github.com/praetorian-inc/overcol/pkg/config"
	"github.com/praetorian-inc/overcol/pkg/logger"
	"github.com/praetorian-inc/overcol/pkg/style"
)

var (
	verbose    bool
	quiet      bool
	configPath string

	// appConfig is loaded before every subcommand runs. Commands called
	// directly in tests see the defaults.
	appConfig = config.Defaults()
)

var rootCmd = &cobra.Command{
	Use:   "overcol",
	Short: "overcol - find lines that run past a column limit",
	Long: `overcol flags text that extends past a configurable column boundary.
It measures lines in display columns (tab stops, wide glyphs) and can skip
overflow that starts inside comments.

Use "scan" to check files, directories and git trees, "serve" to drive live
editor documents over NDJSON, and "watch" to recheck files as they change.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Quiet mode (errors only)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default .overcol.yaml, then ~/.config/overcol/config.yaml)")

	// Add subcommands
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func loadConfig(cmd *cobra.Command, args []string) error {
	log := logger.New(verbose, quiet)
	cmd.SetContext(logger.NewContext(cmd.Context(), log))

	cfg, v, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if used := v.ConfigFileUsed(); used != "" {
		log.Debug("loaded config", zap.String("path", used))
	}
	appConfig = cfg
	return nil
}

// newEngine builds the engine described by cfg.
func newEngine(cfg config.Config, log *zap.Logger) (*overcol.Engine, error) {
	engine, err := overcol.NewEngine(
		overcol.WithPolicy(cfg.Policy(log)),
		overcol.WithIncludeComments(cfg.IncludeComments),
		overcol.WithTabWidth(cfg.TabWidth),
		overcol.WithExclude(cfg.Exclude...),
		overcol.WithLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	return engine, nil
}

// fingerprint identifies the settings findings were computed with, so an
// incremental scan rechecks everything after a config change.
func fingerprint(cfg config.Config) (string, error) {
	// style and enumeration settings do not change findings
	cfg.HighlightStyle = style.Descriptor{}
	cfg.Scan = config.ScanConfig{}
	data, err := cfg.Marshal()
	if err != nil {
		return "", err
	}
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:]), nil
}
