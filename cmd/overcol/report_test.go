package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praetorian-inc/overcol"
	"github.com/praetorian-inc/overcol/pkg/config"
	"github.com/praetorian-inc/overcol/pkg/store"
	"github.com/praetorian-inc/overcol/pkg/types"
)

// newReportCmd creates a fresh report command for testing
func newReportCmd(dbPath, format string) (*cobra.Command, *bytes.Buffer) {
	appConfig = config.Defaults()
	reportDatastore = dbPath
	reportFormat = format
	reportColor = "never"

	cmd := &cobra.Command{Use: "report", RunE: runReport}
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	return cmd, &buf
}

// seedStore writes the findings of content checked at limit 10.
func seedStore(t *testing.T, files map[string]string) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	engine, err := overcol.NewEngine(overcol.WithLimit(10))
	require.NoError(t, err)

	s, err := store.New(store.Config{Path: dbPath})
	require.NoError(t, err)
	for path, content := range files {
		require.NoError(t, s.AddBlob(types.ComputeBlobID([]byte(content)), int64(len(content))))
		require.NoError(t, s.ReplaceFindings(path, engine.CheckString(path, content)))
	}
	require.NoError(t, s.Close())
	return dbPath
}

func TestReportCommand_HumanFormat(t *testing.T) {
	dbPath := seedStore(t, map[string]string{
		"b.txt": "short\n" + strings.Repeat("b", 12) + "\n",
		"a.txt": strings.Repeat("a", 14) + "\n" + strings.Repeat("c", 11),
	})

	cmd, buf := newReportCmd(dbPath, "human")
	require.NoError(t, runReport(cmd, nil))

	output := buf.String()
	assert.Contains(t, output, "Overlong lines: 3 in 2 files")
	assert.Less(t, strings.Index(output, "a.txt"), strings.Index(output, "b.txt"), "files are sorted")
	assert.Contains(t, output, "1:11  14 columns, limit 10 (+4)")
	assert.Contains(t, output, "2:11  11 columns, limit 10 (+1)")
	assert.Contains(t, output, "    "+strings.Repeat("a", 14)+"\n")
	assert.Contains(t, output, "    "+strings.Repeat(" ", 10)+"^^^^\n")
}

func TestReportCommand_JSONFormat(t *testing.T) {
	dbPath := seedStore(t, map[string]string{"a.txt": strings.Repeat("a", 14)})

	cmd, buf := newReportCmd(dbPath, "json")
	require.NoError(t, runReport(cmd, nil))

	var findings []*types.Finding
	require.NoError(t, json.Unmarshal(buf.Bytes(), &findings))
	require.Len(t, findings, 1)
	assert.Equal(t, "aaaa", findings[0].Snippet.Overflow)
	assert.Equal(t, strings.Repeat("a", 10), findings[0].Snippet.Within)
}

func TestReportCommand_SARIFFormat(t *testing.T) {
	dbPath := seedStore(t, map[string]string{"a.txt": strings.Repeat("a", 14)})

	cmd, buf := newReportCmd(dbPath, "sarif")
	require.NoError(t, runReport(cmd, nil))

	var report struct {
		Runs []struct {
			Results []struct {
				RuleID string `json:"ruleId"`
			} `json:"results"`
		} `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &report))
	require.Len(t, report.Runs, 1)
	require.Len(t, report.Runs[0].Results, 1)
	assert.Equal(t, "overcol/line-too-long", report.Runs[0].Results[0].RuleID)
}

func TestReportCommand_NoFindings(t *testing.T) {
	dbPath := seedStore(t, map[string]string{"a.txt": "fine"})

	cmd, buf := newReportCmd(dbPath, "human")
	require.NoError(t, runReport(cmd, nil))
	assert.Contains(t, buf.String(), "No overlong lines.")
}

func TestReportCommand_Errors(t *testing.T) {
	cmd, _ := newReportCmd(":memory:", "human")
	assert.ErrorContains(t, runReport(cmd, nil), "in-memory")

	cmd, _ = newReportCmd(filepath.Join(t.TempDir(), "missing.db"), "human")
	assert.ErrorContains(t, runReport(cmd, nil), "datastore not found")

	cmd, _ = newReportCmd("whatever.db", "xml")
	assert.ErrorContains(t, runReport(cmd, nil), "unknown output format")
}

func TestOutputHuman_ExpandsTabs(t *testing.T) {
	engine, err := overcol.NewEngine(overcol.WithLimit(10))
	require.NoError(t, err)
	findings := engine.CheckString("tabs.go", "\tx = 1 + 2 + 3\n")
	require.Len(t, findings, 1)

	var buf bytes.Buffer
	require.NoError(t, outputHuman(&buf, findings, newStyles(false, config.Defaults())))

	output := buf.String()
	assert.Contains(t, output, "    "+strings.Repeat(" ", 8)+"x = 1 + 2 + 3\n")
	assert.Contains(t, output, "    "+strings.Repeat(" ", 10)+strings.Repeat("^", 11)+"\n")
}

func TestOutputHuman_Colored(t *testing.T) {
	engine, err := overcol.NewEngine(overcol.WithLimit(10))
	require.NoError(t, err)
	findings := engine.CheckString("a.txt", strings.Repeat("a", 14))

	enabled := colorEnabled("always")
	t.Cleanup(func() { colorEnabled("never") })
	require.True(t, enabled)

	var buf bytes.Buffer
	require.NoError(t, outputHuman(&buf, findings, newStyles(enabled, config.Defaults())))

	output := buf.String()
	assert.Contains(t, output, "\x1b[", "overflow is styled")
	assert.NotContains(t, output, "^^^^", "no caret line with colors")
}
