// Package check runs lint rules over a documentation set.
package check

import (
	"fmt"
	"sort"
)

// Severity ranks an issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// ParseSeverity converts a config string into a Severity.
func ParseSeverity(s string) (Severity, error) {
	switch Severity(s) {
	case SeverityError, SeverityWarning, SeverityInfo:
		return Severity(s), nil
	case "warn":
		return SeverityWarning, nil
	}
	return "", fmt.Errorf("unknown severity %q", s)
}

// Issue is one reported problem.
type Issue struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	File     string   `json:"file"`
	Line     int      `json:"line,omitempty"`
	Message  string   `json:"message"`
}

// Location renders "file:line" or just "file" when the line is unknown.
func (i Issue) Location() string {
	if i.Line > 0 {
		return fmt.Sprintf("%s:%d", i.File, i.Line)
	}
	return i.File
}

// Finding is what a rule reports; the runner stamps rule, severity,
// and (for document rules) file.
type Finding struct {
	File    string
	Line    int
	Message string
}

// SortIssues orders issues by file, line, rule, then message.
func SortIssues(issues []Issue) {
	sort.Slice(issues, func(i, j int) bool {
		a, b := issues[i], issues[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Rule != b.Rule {
			return a.Rule < b.Rule
		}
		return a.Message < b.Message
	})
}

// Counts tallies issues per severity.
type Counts struct {
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Infos    int `json:"infos"`
}

// Count tallies issues per severity.
func Count(issues []Issue) Counts {
	var c Counts
	for _, it := range issues {
		switch it.Severity {
		case SeverityError:
			c.Errors++
		case SeverityWarning:
			c.Warnings++
		case SeverityInfo:
			c.Infos++
		}
	}
	return c
}
