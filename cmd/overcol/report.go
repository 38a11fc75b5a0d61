package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/praetorian-inc/overcol/pkg/config"
	"github.com/praetorian-inc/overcol/pkg/display"
	"github.com/praetorian-inc/overcol/pkg/sarif"
	"github.com/praetorian-inc/overcol/pkg/store"
	"github.com/praetorian-inc/overcol/pkg/style"
	"github.com/praetorian-inc/overcol/pkg/types"
)

var (
	reportDatastore string
	reportFormat    string
	reportColor     string
)

// styles holds the formatters for human output
type styles struct {
	path     *color.Color
	location *color.Color
	width    *color.Color
	heading  *color.Color

	enabled  bool
	overflow *style.Highlighter
	measurer display.Measurer
}

// newStyles creates formatters for report output. With enabled false the
// overflow is marked by a caret line instead of the highlight style.
func newStyles(enabled bool, cfg config.Config) *styles {
	s := &styles{
		path:     color.New(color.Bold, color.FgHiWhite),
		location: color.New(color.FgHiGreen),
		width:    color.New(color.FgHiBlue),
		heading:  color.New(color.Bold),
		enabled:  enabled,
		overflow: style.NewHighlighter(cfg.HighlightStyle),
		measurer: display.NewMeasurer(cfg.TabWidth),
	}

	if !enabled {
		s.path.DisableColor()
		s.location.DisableColor()
		s.width.DisableColor()
		s.heading.DisableColor()
	}

	return s
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a report from scan results",
	Long:  "Read findings from a scan database and print them",
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportDatastore, "datastore", "overcol.db", "Path to scan database")
	reportCmd.Flags().StringVar(&reportFormat, "format", "human", "Output format: human, json, sarif")
	reportCmd.Flags().StringVar(&reportColor, "color", "auto", "Color output: auto, always, never")
}

func runReport(cmd *cobra.Command, args []string) error {
	if err := checkFormat(reportFormat); err != nil {
		return err
	}
	if reportDatastore == store.MemoryPath {
		return fmt.Errorf("cannot report from in-memory store")
	}
	if _, err := os.Stat(reportDatastore); err != nil {
		return fmt.Errorf("datastore not found: %s", reportDatastore)
	}

	s, err := store.New(store.Config{
		Path: reportDatastore,
	})
	if err != nil {
		return fmt.Errorf("opening datastore: %w", err)
	}
	defer s.Close()

	findings, err := s.GetFindings()
	if err != nil {
		return fmt.Errorf("retrieving findings: %w", err)
	}

	return writeFindings(cmd, findings, reportFormat, colorEnabled(reportColor), appConfig)
}

func checkFormat(format string) error {
	switch format {
	case "human", "json", "sarif":
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

// colorEnabled resolves a --color mode and configures the color libraries
// to match.
func colorEnabled(mode string) bool {
	var enabled bool
	switch mode {
	case "always":
		enabled = true
	case "never":
		enabled = false
	default:
		enabled = term.IsTerminal(int(os.Stdout.Fd())) && os.Getenv("NO_COLOR") == ""
	}

	color.NoColor = !enabled
	if enabled {
		lipgloss.SetColorProfile(termenv.ANSI256)
	} else {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
	return enabled
}

func outputHuman(w io.Writer, findings []*types.Finding, s *styles) error {
	if len(findings) == 0 {
		fmt.Fprintf(w, "\nNo overlong lines.\n")
		return nil
	}

	files := 0
	for i, f := range findings {
		if i == 0 || findings[i-1].Path != f.Path {
			files++
		}
	}
	fmt.Fprintf(w, "\n%s %d in %d files\n", s.heading.Sprint("Overlong lines:"), len(findings), files)

	for i, f := range findings {
		if i == 0 || findings[i-1].Path != f.Path {
			fmt.Fprintf(w, "\n%s\n", s.path.Sprint(f.Path))
		}
		start := f.Location.Source.Start
		fmt.Fprintf(w, "  %s  %s\n",
			s.location.Sprintf("%d:%d", start.Line, start.Column),
			s.width.Sprintf("%d columns, limit %d (+%d)", f.Width, f.Limit, f.Excess()))

		within := s.expandTabs(f.Snippet.Within, 0)
		overflow := s.expandTabs(f.Snippet.Overflow, s.measurer.Width(within))
		if s.enabled {
			fmt.Fprintf(w, "    %s\n", s.overflow.Render(within+overflow, len(within)))
			continue
		}
		fmt.Fprintf(w, "    %s\n", within+overflow)
		fmt.Fprintf(w, "    %s%s\n",
			strings.Repeat(" ", s.measurer.Width(within)),
			strings.Repeat("^", max(1, s.measurer.Width(overflow))))
	}
	return nil
}

// expandTabs replaces tabs with spaces up to the next tab stop, starting at
// display column col, so caret lines line up under the text.
func (s *styles) expandTabs(text string, col int) string {
	if !strings.Contains(text, "\t") {
		return text
	}
	tab := s.measurer.TabWidth
	if tab <= 0 {
		tab = display.DefaultTabWidth
	}

	var b strings.Builder
	seg := 0
	for i := 0; i < len(text); i++ {
		if text[i] != '\t' {
			continue
		}
		b.WriteString(text[seg:i])
		col += s.measurer.Width(text[seg:i])
		n := tab - col%tab
		b.WriteString(strings.Repeat(" ", n))
		col += n
		seg = i + 1
	}
	b.WriteString(text[seg:])
	return b.String()
}

// outputSARIF writes findings in SARIF 2.1.0 format
func outputSARIF(w io.Writer, findings []*types.Finding) error {
	report := sarif.NewReport(version)
	for _, f := range findings {
		report.AddFinding(f)
	}

	jsonBytes, err := report.ToJSON()
	if err != nil {
		return fmt.Errorf("serializing SARIF: %w", err)
	}
	if _, err := w.Write(jsonBytes); err != nil {
		return fmt.Errorf("writing SARIF output: %w", err)
	}
	return nil
}

func outputJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
