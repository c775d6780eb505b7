package markdown

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark/ast"
)

// Fence is a fenced code block.
type Fence struct {
	Line     int    // 1-based line of the opening fence
	Marker   string // "```" or "~~~" run as written
	Info     string // Full info string after the marker
	Language string // First word of Info
	Closed   bool   // False when the block runs to the end of its container
}

// fenceCollector turns goldmark fenced code blocks into Fences. goldmark
// decides what is a fence; the raw lines supply the marker and whether a
// closing marker follows the content.
type fenceCollector struct {
	src    []byte
	lines  *lineIndex
	cursor int // Last file line consumed by a preceding block
}

// block records the lines used by a non-fence block so that a later
// fence with no content or info is searched for after it.
func (c *fenceCollector) block(n ast.Node) {
	if l := n.Lines(); l != nil && l.Len() > 0 {
		if end := c.lines.lineOf(l.At(l.Len() - 1).Start); end > c.cursor {
			c.cursor = end
		}
	}
}

func (c *fenceCollector) fence(node *ast.FencedCodeBlock) (Fence, bool) {
	open := c.openerLine(node)
	if open == 0 {
		return Fence{}, false
	}
	ch, n, info, ok := parseOpenerLine(c.lines.text(c.src, open))
	if !ok {
		return Fence{}, false
	}
	f := Fence{
		Line:     open,
		Marker:   strings.Repeat(string(ch), n),
		Info:     info,
		Language: firstWord(info),
	}

	last := open
	if l := node.Lines(); l.Len() > 0 {
		last = c.lines.lineOf(l.At(l.Len() - 1).Start)
	}
	if next, ok := c.lines.lookup(c.src, last+1); ok && isFenceClose(stripContainerPrefix(next), ch, n) {
		f.Closed = true
		last++
	}
	c.cursor = last
	return f, true
}

// openerLine finds the file line of the opening marker. goldmark keeps no
// position for the opener itself, so it is derived from the first content
// line or the info string, and otherwise searched for after the cursor.
func (c *fenceCollector) openerLine(node *ast.FencedCodeBlock) int {
	if l := node.Lines(); l.Len() > 0 {
		return c.lines.lineOf(l.At(0).Start) - 1
	}
	if node.Info != nil {
		return c.lines.lineOf(node.Info.Segment.Start)
	}
	for line := c.cursor + 1; ; line++ {
		t, ok := c.lines.lookup(c.src, line)
		if !ok {
			return 0
		}
		if _, _, _, ok := parseOpenerLine(t); ok {
			return line
		}
	}
}

// parseOpenerLine parses an opening marker that may follow container
// prefixes, including a list marker on the same line ("- ```go").
func parseOpenerLine(l []byte) (ch byte, n int, info string, ok bool) {
	t := stripContainerPrefix(l)
	if ch, n, info, ok = parseFenceOpen(t); ok {
		return ch, n, info, true
	}
	if i := bytes.IndexAny(t, "`~"); i > 0 {
		return parseFenceOpen(t[i:])
	}
	return 0, 0, "", false
}

func stripContainerPrefix(l []byte) []byte {
	l = bytes.TrimRight(l, "\r")
	return bytes.TrimLeft(l, " \t>")
}

// parseFenceOpen recognizes ``` or ~~~ runs of three or more.
// Backtick fences may not carry backticks in their info string.
func parseFenceOpen(t []byte) (ch byte, n int, info string, ok bool) {
	if len(t) < 3 || (t[0] != '`' && t[0] != '~') {
		return 0, 0, "", false
	}
	ch = t[0]
	for n < len(t) && t[n] == ch {
		n++
	}
	if n < 3 {
		return 0, 0, "", false
	}
	info = strings.TrimSpace(string(t[n:]))
	if ch == '`' && strings.ContainsRune(info, '`') {
		return 0, 0, "", false
	}
	return ch, n, info, true
}

func isFenceClose(t []byte, ch byte, minLen int) bool {
	t = bytes.TrimRight(t, " \t")
	if len(t) < minLen {
		return false
	}
	for _, c := range t {
		if c != ch {
			return false
		}
	}
	return true
}

func firstWord(info string) string {
	if info == "" {
		return ""
	}
	if i := strings.IndexAny(info, " \t{"); i >= 0 {
		info = info[:i]
	}
	return info
}
