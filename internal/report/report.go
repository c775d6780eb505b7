// Package report renders check results as text, Markdown, or JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"doclint/internal/check"
	"doclint/internal/logging"

	"github.com/charmbracelet/glamour"
	"github.com/google/uuid"
)

// Exit codes returned by the CLI.
const (
	ExitOK      = 0
	ExitIssues  = 1
	ExitRuntime = 2
)

// Summary aggregates a report's issues.
type Summary struct {
	check.Counts
	ByRule map[string]int `json:"by_rule"`
}

// Report is the printable outcome of one check run.
type Report struct {
	RunID       string        `json:"run_id"`
	Root        string        `json:"root"`
	GeneratedAt time.Time     `json:"generated_at"`
	Files       int           `json:"files"`
	Commands    int           `json:"commands"`
	Rules       []string      `json:"rules"`
	Summary     Summary       `json:"summary"`
	Issues      []check.Issue `json:"issues"`
}

// New builds a report from a check result.
func New(res *check.Result) *Report {
	byRule := make(map[string]int)
	for _, it := range res.Issues {
		byRule[it.Rule]++
	}
	issues := res.Issues
	if issues == nil {
		issues = []check.Issue{}
	}
	return &Report{
		RunID:       uuid.NewString(),
		Root:        res.Root,
		GeneratedAt: time.Now().UTC(),
		Files:       res.Files,
		Commands:    res.Commands,
		Rules:       res.Rules,
		Summary:     Summary{Counts: res.Counts(), ByRule: byRule},
		Issues:      issues,
	}
}

// ExitCode maps the summary to a process exit code.
func (r *Report) ExitCode(failOnWarn bool) int {
	if r.Summary.Errors > 0 || (failOnWarn && r.Summary.Warnings > 0) {
		return ExitIssues
	}
	return ExitOK
}

// Options controls rendering.
type Options struct {
	Format string // text, json, markdown
	Color  bool
	Width  int // Word wrap for styled markdown; 0 = 100
}

// Write renders rep to w in the requested format.
func Write(w io.Writer, rep *Report, opts Options) error {
	logging.Report("Rendering %d issues as %s", len(rep.Issues), opts.Format)
	switch opts.Format {
	case "", "text":
		return writeText(w, rep, NewStyles(w, opts.Color))
	case "json":
		return writeJSON(w, rep)
	case "markdown":
		return writeMarkdown(w, rep, opts)
	default:
		return fmt.Errorf("unknown report format %q", opts.Format)
	}
}

func writeJSON(w io.Writer, rep *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

func writeText(w io.Writer, rep *Report, st Styles) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d Markdown files (%d commands) with %d rules\n",
		st.Title.Render("Checked"), rep.Files, rep.Commands, len(rep.Rules))

	if len(rep.Issues) == 0 {
		b.WriteString(st.Success.Render("OK: no issues found"))
		b.WriteByte('\n')
		_, err := io.WriteString(w, b.String())
		return err
	}

	for _, it := range rep.Issues {
		fmt.Fprintf(&b, "%s %s %s %s\n",
			st.Location.Render(it.Location()),
			severityLabel(st, it.Severity),
			it.Message,
			st.Rule.Render("["+it.Rule+"]"))
	}
	b.WriteByte('\n')
	fmt.Fprintf(&b, "Issues: %s, %s",
		st.Error.Render(plural(rep.Summary.Errors, "error")),
		st.Warning.Render(plural(rep.Summary.Warnings, "warning")))
	if rep.Summary.Infos > 0 {
		fmt.Fprintf(&b, ", %s", st.Info.Render(plural(rep.Summary.Infos, "info")))
	}
	b.WriteByte('\n')

	_, err := io.WriteString(w, b.String())
	return err
}

func severityLabel(st Styles, s check.Severity) string {
	switch s {
	case check.SeverityError:
		return st.Error.Render("error:")
	case check.SeverityWarning:
		return st.Warning.Render("warning:")
	default:
		return st.Info.Render("info:")
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

// Markdown renders the report as GitHub-flavored Markdown, suitable for
// CI job summaries.
func Markdown(rep *Report) string {
	var b strings.Builder
	b.WriteString("# Documentation lint report\n\n")
	fmt.Fprintf(&b, "Checked **%d** Markdown files (**%d** commands) with %d rules.\n\n",
		rep.Files, rep.Commands, len(rep.Rules))

	if len(rep.Issues) == 0 {
		b.WriteString("No issues found.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "**%s**, **%s**", plural(rep.Summary.Errors, "error"), plural(rep.Summary.Warnings, "warning"))
	if rep.Summary.Infos > 0 {
		fmt.Fprintf(&b, ", **%s**", plural(rep.Summary.Infos, "info"))
	}
	b.WriteString(".\n\n")

	b.WriteString("## Issues\n\n")
	b.WriteString("| Location | Severity | Rule | Message |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, it := range rep.Issues {
		fmt.Fprintf(&b, "| `%s` | %s | `%s` | %s |\n",
			it.Location(), it.Severity, it.Rule, escapeCell(it.Message))
	}

	b.WriteString("\n## By rule\n\n")
	rules := make([]string, 0, len(rep.Summary.ByRule))
	for r := range rep.Summary.ByRule {
		rules = append(rules, r)
	}
	sort.Strings(rules)
	for _, r := range rules {
		fmt.Fprintf(&b, "- `%s`: %d\n", r, rep.Summary.ByRule[r])
	}
	return b.String()
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

func writeMarkdown(w io.Writer, rep *Report, opts Options) error {
	src := Markdown(rep)
	if !opts.Color {
		_, err := io.WriteString(w, src)
		return err
	}

	width := opts.Width
	if width <= 0 {
		width = 100
	}
	style := "light"
	if DarkBackground() {
		style = "dark"
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return fmt.Errorf("markdown renderer: %w", err)
	}
	out, err := renderer.Render(src)
	if err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}
