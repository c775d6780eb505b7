// Package markdown extracts the checkable structure of a Markdown file:
// YAML front matter, links, headings, and fenced code blocks.
package markdown

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

var (
	// ErrUnterminatedFrontMatter means an opening "---" had no closing line.
	ErrUnterminatedFrontMatter = errors.New("unterminated front matter")
	// ErrFrontMatterNotMapping means the block parsed but is not a key/value mapping.
	ErrFrontMatterNotMapping = errors.New("front matter is not a mapping")
)

var bom = []byte{0xEF, 0xBB, 0xBF}

// FrontMatterKey is one top-level key of a front-matter block.
type FrontMatterKey struct {
	Name  string
	Line  int // 1-based line in the file
	Value *yaml.Node
}

// FrontMatter is a parsed YAML front-matter block.
type FrontMatter struct {
	Present   bool
	StartLine int // Line of the opening "---"
	EndLine   int // Line of the closing "---" or "..."
	Keys      []FrontMatterKey
}

// Get returns the value node for a key.
func (fm *FrontMatter) Get(name string) (*yaml.Node, int, bool) {
	if fm == nil {
		return nil, 0, false
	}
	for _, k := range fm.Keys {
		if k.Name == name {
			return k.Value, k.Line, true
		}
	}
	return nil, 0, false
}

// String returns the scalar string value of a key.
// Non-scalar and null values report ok=false.
func (fm *FrontMatter) String(name string) (string, bool) {
	v, _, ok := fm.Get(name)
	if !ok || v.Kind != yaml.ScalarNode || v.Tag == "!!null" {
		return "", false
	}
	return v.Value, true
}

// SplitFrontMatter separates a leading front-matter block from the body.
// bodyLine is the 1-based file line where body starts. When no block is
// present the whole input is the body and bodyLine is 1. On error the
// returned FrontMatter still reports Present and StartLine, and body is
// the input after the opening line so the rest can be checked.
func SplitFrontMatter(src []byte) (*FrontMatter, []byte, int, error) {
	src = bytes.TrimPrefix(src, bom)
	fm := &FrontMatter{}

	first, rest, ok := cutLine(src)
	if !ok && len(first) == 0 {
		return fm, src, 1, nil
	}
	if string(trimCR(first)) != "---" {
		return fm, src, 1, nil
	}
	fm.Present = true
	fm.StartLine = 1

	var block []byte
	line := 1
	remaining := rest
	for {
		l, next, more := cutLine(remaining)
		if !more && len(l) == 0 {
			return fm, rest, 2, ErrUnterminatedFrontMatter
		}
		line++
		t := string(trimCR(l))
		if t == "---" || t == "..." {
			fm.EndLine = line
			remaining = next
			break
		}
		block = append(block, l...)
		block = append(block, '\n')
		if !more {
			return fm, rest, 2, ErrUnterminatedFrontMatter
		}
		remaining = next
	}

	body := remaining
	bodyLine := fm.EndLine + 1

	if len(bytes.TrimSpace(block)) == 0 {
		return fm, body, bodyLine, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(block, &doc); err != nil {
		return fm, body, bodyLine, fmt.Errorf("front matter: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return fm, body, bodyLine, nil
	}
	m := doc.Content[0]
	if m.Kind != yaml.MappingNode {
		return fm, body, bodyLine, ErrFrontMatterNotMapping
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		k := m.Content[i]
		fm.Keys = append(fm.Keys, FrontMatterKey{
			Name:  k.Value,
			Line:  k.Line + fm.StartLine, // yaml line 1 is the line after "---"
			Value: m.Content[i+1],
		})
	}
	return fm, body, bodyLine, nil
}

// cutLine splits off the first line (without its newline).
// more is false when no newline was found.
func cutLine(b []byte) (line, rest []byte, more bool) {
	i := bytes.IndexByte(b, '\n')
	if i < 0 {
		return b, nil, false
	}
	return b[:i], b[i+1:], true
}

func trimCR(b []byte) []byte {
	return bytes.TrimRight(b, "\r \t")
}
