package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/praetorian-inc/overcol/pkg/config"
	"github.com/praetorian-inc/overcol/pkg/enum"
	"github.com/praetorian-inc/overcol/pkg/logger"
	"github.com/praetorian-inc/overcol/pkg/policy"
	"github.com/praetorian-inc/overcol/pkg/store"
	"github.com/praetorian-inc/overcol/pkg/types"
)

var (
	scanLimit           int
	scanIncludeComments bool
	scanTabWidth        int
	scanOutputPath      string
	scanOutputFormat    string
	scanGit             bool
	scanMaxFileSize     int64
	scanIncludeHidden   bool
	scanIncremental     bool
	scanExclude         []string
)

var scanCmd = &cobra.Command{
	Use:   "scan <target>",
	Short: "Scan a target for overlong lines",
	Long:  "Scan a file, directory, or git repository for lines wider than the column limit",
	Args:  cobra.ExactArgs(1),
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanLimit, "limit", policy.DefaultLimit, "Column limit")
	scanCmd.Flags().BoolVar(&scanIncludeComments, "include-comments", true, "Report overflow that starts inside comments")
	scanCmd.Flags().IntVar(&scanTabWidth, "tab-width", 8, "Tab stop distance")
	scanCmd.Flags().StringVar(&scanOutputPath, "output", "overcol.db", "Output database path (:memory: for none)")
	scanCmd.Flags().StringVar(&scanOutputFormat, "format", "human", "Output format: json, sarif, human")
	scanCmd.Flags().BoolVar(&scanGit, "git", false, "Treat target as git repository (scan the HEAD tree)")
	scanCmd.Flags().Int64Var(&scanMaxFileSize, "max-file-size", config.DefaultMaxFileSize, "Maximum file size to scan (bytes)")
	scanCmd.Flags().BoolVar(&scanIncludeHidden, "include-hidden", false, "Include hidden files and directories")
	scanCmd.Flags().BoolVar(&scanIncremental, "incremental", false, "Skip files unchanged since the last scan")
	scanCmd.Flags().StringSliceVar(&scanExclude, "exclude", nil, "Skip lines matching regex (repeatable)")
}

// scanSettings applies the flags the user set on top of the loaded config.
func scanSettings(cmd *cobra.Command) (config.Config, error) {
	cfg := appConfig
	flags := cmd.Flags()
	if flags.Changed("limit") {
		if err := policy.ValidateLimit(scanLimit); err != nil {
			return cfg, fmt.Errorf("--limit: %w", err)
		}
		cfg.ColumnLimit = scanLimit
	}
	if flags.Changed("include-comments") {
		cfg.IncludeComments = scanIncludeComments
	}
	if flags.Changed("tab-width") {
		cfg.TabWidth = scanTabWidth
	}
	if flags.Changed("max-file-size") {
		cfg.Scan.MaxFileSize = scanMaxFileSize
	}
	if flags.Changed("include-hidden") {
		cfg.Scan.IncludeHidden = scanIncludeHidden
	}
	if len(scanExclude) > 0 {
		cfg.Exclude = append(append([]string(nil), cfg.Exclude...), scanExclude...)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

type scanStats struct {
	files    atomic.Int64
	skipped  atomic.Int64
	findings atomic.Int64
}

func runScan(cmd *cobra.Command, args []string) error {
	target := args[0]

	if err := checkFormat(scanOutputFormat); err != nil {
		return err
	}

	// Validate target exists
	if _, err := os.Stat(target); err != nil {
		return fmt.Errorf("target does not exist: %s", target)
	}

	cfg, err := scanSettings(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	log := logger.L(ctx)

	engine, err := newEngine(cfg, log)
	if err != nil {
		return err
	}
	fp, err := fingerprint(cfg)
	if err != nil {
		return err
	}

	// Create store
	s, err := store.New(store.Config{
		Path: scanOutputPath,
	})
	if err != nil {
		return fmt.Errorf("creating store: %w", err)
	}
	defer s.Close()

	enumerator := createEnumerator(target, scanGit, cfg)

	var stats scanStats
	err = enumerator.Enumerate(ctx, func(content []byte, blobID types.BlobID, prov types.Provenance) error {
		path := prov.Path()
		stats.files.Add(1)

		// Check for incremental scanning
		if scanIncremental {
			done, err := s.Scanned(path, blobID, fp)
			if err != nil {
				return fmt.Errorf("checking scan state: %w", err)
			}
			if done {
				stats.skipped.Add(1)
				return nil
			}
		}

		if err := s.AddBlob(blobID, int64(len(content))); err != nil {
			return fmt.Errorf("storing blob: %w", err)
		}
		if err := s.AddProvenance(blobID, prov); err != nil {
			return fmt.Errorf("storing provenance: %w", err)
		}

		findings := engine.Check(path, content)
		stats.findings.Add(int64(len(findings)))
		log.Debug("checked file", zap.String("path", path), zap.Int("findings", len(findings)))

		if err := s.ReplaceFindings(path, findings); err != nil {
			return fmt.Errorf("storing findings: %w", err)
		}
		if err := s.MarkScanned(path, blobID, fp); err != nil {
			return fmt.Errorf("recording scan: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scanning: %w", err)
	}

	// Summary goes to stderr for json/sarif to keep stdout pure JSON
	summary := cmd.OutOrStdout()
	if scanOutputFormat == "json" || scanOutputFormat == "sarif" {
		summary = cmd.ErrOrStderr()
	}
	printSummary(summary, &stats)

	findings, err := s.GetFindings()
	if err != nil {
		return fmt.Errorf("retrieving findings: %w", err)
	}
	return writeFindings(cmd, findings, scanOutputFormat, colorEnabled("auto"), cfg)
}

func printSummary(w io.Writer, stats *scanStats) {
	if scanIncremental {
		fmt.Fprintf(w, "Scan complete: %d files, %d overlong lines (%d files unchanged)\n",
			stats.files.Load(), stats.findings.Load(), stats.skipped.Load())
	} else {
		fmt.Fprintf(w, "Scan complete: %d files, %d overlong lines\n", stats.files.Load(), stats.findings.Load())
	}
	if scanOutputPath != store.MemoryPath {
		fmt.Fprintf(w, "Results stored in: %s\n", scanOutputPath)
	}
}

func createEnumerator(target string, useGit bool, cfg config.Config) enum.Enumerator {
	ec := enum.Config{
		Root:           target,
		IncludeHidden:  cfg.Scan.IncludeHidden,
		MaxFileSize:    cfg.Scan.MaxFileSize,
		FollowSymlinks: false,
	}

	if useGit {
		return enum.NewGitEnumerator(ec)
	}

	return enum.NewFilesystemEnumerator(ec)
}

// writeFindings renders findings in the requested format.
func writeFindings(cmd *cobra.Command, findings []*types.Finding, format string, color bool, cfg config.Config) error {
	switch format {
	case "json":
		if findings == nil {
			findings = []*types.Finding{}
		}
		return outputJSON(cmd.OutOrStdout(), findings)
	case "sarif":
		return outputSARIF(cmd.OutOrStdout(), findings)
	case "human":
		return outputHuman(cmd.OutOrStdout(), findings, newStyles(color, cfg))
	default:
		return checkFormat(format)
	}
}
