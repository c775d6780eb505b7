// Package docset walks a documentation tree and loads its Markdown files.
//
// A Set holds the loaded documents plus an Index of every file and
// directory under the root, which link checks resolve against.
package docset

import (
	"errors"
	"path"
	"sort"
	"strings"
	"time"
)

// ErrNotDirectory is returned when the walk root is not a directory.
var ErrNotDirectory = errors.New("root is not a directory")

// Kind classifies a loaded document.
type Kind string

const (
	KindDoc     Kind = "doc"     // Guides, write-ups, READMEs
	KindCommand Kind = "command" // Slash-command prompt templates
)

// Document is one loaded Markdown file.
type Document struct {
	Path    string // Absolute filesystem path
	Rel     string // Slash-separated path relative to the root
	Kind    Kind
	Content []byte
	Size    int64
	ModTime time.Time
}

// CommandName returns the slash-command name for a command document:
// the path below its command directory without extension, with
// subdirectories joined by ':' (".claude/commands/fix/null.md" -> "fix:null").
func (d *Document) CommandName(commandDirs []string) string {
	if d.Kind != KindCommand {
		return ""
	}
	for _, dir := range commandDirs {
		dir = strings.Trim(normalizePattern(dir), "/")
		if strings.HasPrefix(d.Rel, dir+"/") {
			rest := strings.TrimPrefix(d.Rel, dir+"/")
			rest = strings.TrimSuffix(rest, path.Ext(rest))
			return strings.ReplaceAll(rest, "/", ":")
		}
	}
	return ""
}

// Problem is a walker-level finding about a single path.
type Problem struct {
	Rel      string
	Severity string // error, warning
	Message  string
}

// Set is the result of a walk.
type Set struct {
	Root      string
	Documents []*Document
	Index     *Index
	Problems  []Problem
}

// Commands returns the command documents in Rel order.
func (s *Set) Commands() []*Document {
	var out []*Document
	for _, d := range s.Documents {
		if d.Kind == KindCommand {
			out = append(out, d)
		}
	}
	return out
}

// Lookup returns the loaded document at rel, if any.
func (s *Set) Lookup(rel string) (*Document, bool) {
	i := sort.Search(len(s.Documents), func(i int) bool { return s.Documents[i].Rel >= rel })
	if i < len(s.Documents) && s.Documents[i].Rel == rel {
		return s.Documents[i], true
	}
	return nil, false
}
