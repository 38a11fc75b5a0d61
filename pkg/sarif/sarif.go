package sarif

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/praetorian-inc/overcol/pkg/types"
)

// SARIF 2.1.0 constants
const (
	SchemaURI = "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json"
	Version   = "2.1.0"
	ToolName  = "overcol"
)

// RuleID identifies the overflow rule in reports.
const RuleID = "overcol/line-too-long"

// Report is the top-level SARIF report structure
type Report struct {
	Schema  string `json:"$schema"`
	Version string `json:"version"`
	Runs    []Run  `json:"runs"`
}

// Run represents a single invocation of the tool
type Run struct {
	Tool    Tool     `json:"tool"`
	Results []Result `json:"results"`
}

// Tool describes the analysis tool
type Tool struct {
	Driver Driver `json:"driver"`
}

// Driver contains tool metadata
type Driver struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Rules   []Rule `json:"rules,omitempty"`
}

// Rule describes the check results are reported against
type Rule struct {
	ID                   string               `json:"id"`
	Name                 string               `json:"name"`
	ShortDescription     Text                 `json:"shortDescription"`
	FullDescription      *Text                `json:"fullDescription,omitempty"`
	DefaultConfiguration DefaultConfiguration `json:"defaultConfiguration"`
}

// DefaultConfiguration holds the rule's default severity
type DefaultConfiguration struct {
	Level string `json:"level"`
}

// Text is a plain-text message
type Text struct {
	Text string `json:"text"`
}

// Result represents a single finding
type Result struct {
	RuleID              string            `json:"ruleId"`
	Level               string            `json:"level"`
	Message             Text              `json:"message"`
	Locations           []Location        `json:"locations"`
	PartialFingerprints map[string]string `json:"partialFingerprints,omitempty"`
	Properties          map[string]any    `json:"properties,omitempty"`
}

// Location describes where a result was found
type Location struct {
	PhysicalLocation PhysicalLocation `json:"physicalLocation"`
}

// PhysicalLocation specifies file location
type PhysicalLocation struct {
	ArtifactLocation ArtifactLocation `json:"artifactLocation"`
	Region           Region           `json:"region"`
}

// ArtifactLocation identifies the file
type ArtifactLocation struct {
	URI string `json:"uri"`
}

// Region specifies the line/column range
type Region struct {
	StartLine   int   `json:"startLine"`
	StartColumn int   `json:"startColumn"`
	EndLine     int   `json:"endLine"`
	EndColumn   int   `json:"endColumn"`
	Snippet     *Text `json:"snippet,omitempty"`
}

// NewReport creates a report for a tool version with the overflow rule
// registered.
func NewReport(toolVersion string) *Report {
	return &Report{
		Schema:  SchemaURI,
		Version: Version,
		Runs: []Run{
			{
				Tool: Tool{
					Driver: Driver{
						Name:    ToolName,
						Version: toolVersion,
						Rules: []Rule{
							{
								ID:               RuleID,
								Name:             "LineTooLong",
								ShortDescription: Text{Text: "Line exceeds the column limit"},
								FullDescription: &Text{
									Text: "The line is wider than the configured column limit when measured in display columns.",
								},
								DefaultConfiguration: DefaultConfiguration{Level: "warning"},
							},
						},
					},
				},
				Results: []Result{},
			},
		},
	}
}

// AddFinding adds a finding as a result.
func (r *Report) AddFinding(f *types.Finding) {
	loc := f.Location.Source
	region := Region{
		StartLine:   loc.Start.Line,
		StartColumn: loc.Start.Column,
		EndLine:     loc.End.Line,
		EndColumn:   loc.End.Column,
	}
	if f.Snippet.Overflow != "" {
		region.Snippet = &Text{Text: f.Snippet.Overflow}
	}

	result := Result{
		RuleID: RuleID,
		Level:  "warning",
		Message: Text{
			Text: fmt.Sprintf("Line is %d columns wide, exceeding the limit of %d by %d", f.Width, f.Limit, f.Excess()),
		},
		Locations: []Location{
			{
				PhysicalLocation: PhysicalLocation{
					ArtifactLocation: ArtifactLocation{
						URI: formatFileURI(f.Path),
					},
					Region: region,
				},
			},
		},
		PartialFingerprints: map[string]string{
			"overcolFindingId/v1": f.ID,
		},
		Properties: map[string]any{
			"width": f.Width,
			"limit": f.Limit,
		},
	}

	r.Runs[0].Results = append(r.Runs[0].Results, result)
}

// ToJSON serializes the report to JSON bytes
func (r *Report) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// formatFileURI converts a file path to SARIF URI format
// Absolute paths get file:// prefix, relative paths stay as-is
func formatFileURI(path string) string {
	if filepath.IsAbs(path) {
		path = filepath.ToSlash(path)
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		return "file://" + path
	}
	return filepath.ToSlash(path)
}
