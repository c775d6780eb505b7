package markdown

import (
	"bytes"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
)

// LinkKind says where a link destination came from.
type LinkKind string

const (
	LinkInline LinkKind = "link"  // [text](dest) and reference links
	LinkImage  LinkKind = "image" // ![alt](dest)
	LinkAuto   LinkKind = "auto"  // <https://...> and bare URLs
	LinkHTML   LinkKind = "html"  // href/src inside raw HTML
)

// Link is one link destination found in the body.
type Link struct {
	Kind LinkKind
	Dest string
	Line int
}

// Heading is a section heading with its anchor slug.
type Heading struct {
	Level int
	Text  string
	Slug  string
	Line  int
}

// Outline is the checkable structure of a Markdown body.
type Outline struct {
	Links    []Link
	Headings []Heading
	Fences   []Fence
	// Anchors holds every fragment a link may target: heading slugs plus
	// id/name attributes declared in raw HTML.
	Anchors map[string]struct{}
}

// HasAnchor reports whether fragment names a heading or HTML anchor.
// Matching is case-insensitive, as on GitHub.
func (o *Outline) HasAnchor(fragment string) bool {
	_, ok := o.Anchors[strings.ToLower(fragment)]
	return ok
}

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Parse extracts links, headings, and fences from body. lineOffset is
// the number of file lines preceding body (front matter), so reported
// lines are file lines.
func Parse(body []byte, lineOffset int) *Outline {
	out := &Outline{Anchors: make(map[string]struct{})}
	lines := newLineIndex(body, lineOffset)
	slugs := newSlugger()
	fences := &fenceCollector{src: body, lines: lines, cursor: lineOffset}

	root := md.Parser().Parse(text.NewReader(body))
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			t := plainText(node, body)
			slug := slugs.next(t)
			out.Headings = append(out.Headings, Heading{
				Level: node.Level,
				Text:  t,
				Slug:  slug,
				Line:  lines.lineOf(blockStart(node)),
			})
			out.Anchors[slug] = struct{}{}
		case *ast.Link:
			out.Links = append(out.Links, Link{Kind: LinkInline, Dest: string(node.Destination), Line: lines.lineOf(inlineStart(node))})
		case *ast.Image:
			out.Links = append(out.Links, Link{Kind: LinkImage, Dest: string(node.Destination), Line: lines.lineOf(inlineStart(node))})
		case *ast.AutoLink:
			out.Links = append(out.Links, Link{Kind: LinkAuto, Dest: string(node.URL(body)), Line: lines.lineOf(inlineStart(node))})
		case *ast.RawHTML:
			for i := 0; i < node.Segments.Len(); i++ {
				seg := node.Segments.At(i)
				out.addHTML(seg.Value(body), lines.lineOf(seg.Start))
			}
		case *ast.HTMLBlock:
			for i := 0; i < node.Lines().Len(); i++ {
				seg := node.Lines().At(i)
				out.addHTML(seg.Value(body), lines.lineOf(seg.Start))
			}
			if node.HasClosure() {
				out.addHTML(node.ClosureLine.Value(body), lines.lineOf(node.ClosureLine.Start))
			}
		case *ast.FencedCodeBlock:
			if f, ok := fences.fence(node); ok {
				out.Fences = append(out.Fences, f)
			}
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock:
			fences.block(node)
			return ast.WalkSkipChildren, nil
		}
		if n.Type() == ast.TypeBlock {
			fences.block(n)
		}
		return ast.WalkContinue, nil
	})
	return out
}

// addHTML records href/src destinations and id/name anchors from an HTML fragment.
func (o *Outline) addHTML(fragment []byte, line int) {
	z := html.NewTokenizer(bytes.NewReader(fragment))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		tok := z.Token()
		for _, a := range tok.Attr {
			switch a.Key {
			case "href", "src":
				if a.Val != "" {
					o.Links = append(o.Links, Link{Kind: LinkHTML, Dest: a.Val, Line: line})
				}
			case "id", "name":
				if tok.Data == "a" || a.Key == "id" {
					o.Anchors[strings.ToLower(a.Val)] = struct{}{}
				}
			}
		}
	}
}

// plainText concatenates the literal text under n.
func plainText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

// inlineStart returns a source offset for an inline node: its first text
// descendant, else the enclosing block's first line.
func inlineStart(n ast.Node) int {
	found := -1
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := c.(*ast.Text); ok && entering {
			found = t.Segment.Start
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	if found >= 0 {
		return found
	}
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p.Type() == ast.TypeBlock {
			return blockStart(p)
		}
	}
	return 0
}

func blockStart(n ast.Node) int {
	if l := n.Lines(); l != nil && l.Len() > 0 {
		return l.At(0).Start
	}
	return 0
}

// lineIndex maps byte offsets to 1-based file lines.
type lineIndex struct {
	starts []int
	offset int
}

func newLineIndex(src []byte, offset int) *lineIndex {
	starts := []int{0}
	for i, c := range src {
		if c == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &lineIndex{starts: starts, offset: offset}
}

func (x *lineIndex) lineOf(pos int) int {
	i := sort.Search(len(x.starts), func(i int) bool { return x.starts[i] > pos })
	return i + x.offset
}

// lookup returns the text of a 1-based file line, without its newline.
func (x *lineIndex) lookup(src []byte, line int) ([]byte, bool) {
	i := line - x.offset - 1
	if i < 0 || i >= len(x.starts) || x.starts[i] >= len(src) {
		return nil, false
	}
	end := len(src)
	if i+1 < len(x.starts) {
		end = x.starts[i+1] - 1
	}
	return src[x.starts[i]:end], true
}

// text is lookup without the presence flag.
func (x *lineIndex) text(src []byte, line int) []byte {
	t, _ := x.lookup(src, line)
	return t
}
