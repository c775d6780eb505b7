package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"doclint/internal/check"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *check.Result {
	return &check.Result{
		Root:     "/repo",
		Files:    4,
		Commands: 2,
		Rules:    []string{"fence-language", "link-target"},
		Issues: []check.Issue{
			{Rule: "link-target", Severity: check.SeverityError, File: "docs/a.md", Line: 3, Message: `link target "docs/b.md" not found`},
			{Rule: "fence-language", Severity: check.SeverityWarning, File: "docs/a.md", Line: 9, Message: "code fence has no language tag"},
			{Rule: "fence-language", Severity: check.SeverityWarning, File: "docs/c.md", Line: 1, Message: "a | b"},
		},
	}
}

func TestNew_Summary(t *testing.T) {
	rep := New(sampleResult())

	_, err := uuid.Parse(rep.RunID)
	assert.NoError(t, err)
	assert.Equal(t, 1, rep.Summary.Errors)
	assert.Equal(t, 2, rep.Summary.Warnings)
	assert.Equal(t, map[string]int{"link-target": 1, "fence-language": 2}, rep.Summary.ByRule)
}

func TestExitCode(t *testing.T) {
	rep := New(sampleResult())
	assert.Equal(t, ExitIssues, rep.ExitCode(false))

	warnOnly := New(&check.Result{Issues: []check.Issue{{Rule: "x", Severity: check.SeverityWarning}}})
	assert.Equal(t, ExitOK, warnOnly.ExitCode(false))
	assert.Equal(t, ExitIssues, warnOnly.ExitCode(true))

	infoOnly := New(&check.Result{Issues: []check.Issue{{Rule: "x", Severity: check.SeverityInfo}}})
	assert.Equal(t, ExitOK, infoOnly.ExitCode(true))
}

func TestWrite_TextPlain(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, New(sampleResult()), Options{Format: "text"}))

	out := buf.String()
	assert.NotContains(t, out, "\x1b[", "plain output must not contain ANSI escapes")
	assert.Contains(t, out, "Checked 4 Markdown files (2 commands) with 2 rules")
	assert.Contains(t, out, `docs/a.md:3 error: link target "docs/b.md" not found [link-target]`)
	assert.Contains(t, out, "docs/a.md:9 warning: code fence has no language tag [fence-language]")
	assert.Contains(t, out, "Issues: 1 error, 2 warnings")
}

func TestWrite_TextClean(t *testing.T) {
	var buf bytes.Buffer
	rep := New(&check.Result{Files: 1, Rules: []string{"link-target"}})
	require.NoError(t, Write(&buf, rep, Options{Format: "text"}))
	assert.Contains(t, buf.String(), "OK: no issues found")
}

func TestWrite_TextColor(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, New(sampleResult()), Options{Format: "text", Color: true}))
	assert.Contains(t, buf.String(), "\x1b[")
}

func TestWrite_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, New(sampleResult()), Options{Format: "json"}))

	var decoded struct {
		RunID   string `json:"run_id"`
		Files   int    `json:"files"`
		Summary struct {
			Errors   int            `json:"errors"`
			Warnings int            `json:"warnings"`
			ByRule   map[string]int `json:"by_rule"`
		} `json:"summary"`
		Issues []check.Issue `json:"issues"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.NotEmpty(t, decoded.RunID)
	assert.Equal(t, 4, decoded.Files)
	assert.Equal(t, 1, decoded.Summary.Errors)
	assert.Equal(t, 2, decoded.Summary.ByRule["fence-language"])
	require.Len(t, decoded.Issues, 3)
	assert.Equal(t, "docs/a.md", decoded.Issues[0].File)
}

func TestWrite_JSONEmptyIssuesIsArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, New(&check.Result{}), Options{Format: "json"}))
	assert.Contains(t, buf.String(), `"issues": []`)
}

func TestMarkdown(t *testing.T) {
	out := Markdown(New(sampleResult()))
	assert.True(t, strings.HasPrefix(out, "# Documentation lint report"))
	assert.Contains(t, out, "| `docs/a.md:3` | error | `link-target` |")
	assert.Contains(t, out, `a \| b`, "pipes in messages are escaped")
	assert.Contains(t, out, "- `fence-language`: 2")

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, New(sampleResult()), Options{Format: "markdown"}))
	assert.Equal(t, out, buf.String(), "uncolored markdown is written raw")
}

func TestWrite_MarkdownStyled(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, New(sampleResult()), Options{Format: "markdown", Color: true, Width: 80}))
	assert.Contains(t, buf.String(), "Documentation lint report")
}

func TestWrite_UnknownFormat(t *testing.T) {
	err := Write(&bytes.Buffer{}, New(&check.Result{}), Options{Format: "xml"})
	assert.Error(t, err)
}

func TestColorEnabled(t *testing.T) {
	var buf bytes.Buffer
	assert.True(t, ColorEnabled("always", &buf))
	assert.False(t, ColorEnabled("never", &buf))
	assert.False(t, ColorEnabled("auto", &buf), "non-file writers are never terminals")
}
