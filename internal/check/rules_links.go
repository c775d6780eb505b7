package check

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"doclint/internal/markdown"
)

type targetKind int

const (
	targetSkip     targetKind = iota // empty, external, or unparseable
	targetFragment                   // "#anchor" in the same document
	targetAbsolute                   // filesystem-absolute path
	targetRelative                   // path inside the documentation root
	targetEscapes                    // relative path climbing above the root
)

type linkTarget struct {
	kind     targetKind
	rel      string // Root-relative target for targetRelative
	fragment string
}

var (
	windowsDrive = regexp.MustCompile(`^/?[A-Za-z]:[/\\]`)
	urlScheme    = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*:`)
)

// resolveLink classifies a destination relative to the document at fromRel.
// Root-anchored paths ("/docs/x.md") resolve against the documentation root,
// matching how repository hosts render them.
func resolveLink(fromRel, dest string) linkTarget {
	dest = strings.TrimSpace(dest)
	if dest == "" {
		return linkTarget{kind: targetSkip}
	}
	if windowsDrive.MatchString(dest) || strings.HasPrefix(strings.ToLower(dest), "file:") {
		return linkTarget{kind: targetAbsolute}
	}
	if urlScheme.MatchString(dest) || strings.HasPrefix(dest, "//") {
		return linkTarget{kind: targetSkip}
	}

	p, frag, _ := strings.Cut(dest, "#")
	p, _, _ = strings.Cut(p, "?")
	if unescaped, err := url.PathUnescape(p); err == nil {
		p = unescaped
	}
	p = strings.ReplaceAll(p, "\\", "/")

	if p == "" {
		if frag == "" {
			return linkTarget{kind: targetSkip}
		}
		return linkTarget{kind: targetFragment, fragment: frag}
	}

	var joined string
	if strings.HasPrefix(p, "/") {
		joined = path.Clean(strings.TrimPrefix(p, "/"))
		if joined == "" {
			joined = "."
		}
	} else {
		joined = path.Join(path.Dir(fromRel), p)
	}
	if joined == ".." || strings.HasPrefix(joined, "../") {
		return linkTarget{kind: targetEscapes, rel: joined, fragment: frag}
	}
	return linkTarget{kind: targetRelative, rel: joined, fragment: frag}
}

type linkTargetRule struct{ baseRule }

func (r *linkTargetRule) CheckDoc(env *Env, u *Unit) []Finding {
	var out []Finding
	for _, l := range u.Outline.Links {
		t := resolveLink(u.Doc.Rel, l.Dest)
		switch t.kind {
		case targetEscapes:
			out = append(out, Finding{Line: l.Line, Message: fmt.Sprintf("link %q points outside the documentation root", l.Dest)})
		case targetRelative:
			if env.Set.Index.Exists(t.rel) {
				continue
			}
			msg := fmt.Sprintf("link target %q not found", t.rel)
			if actual, ok := env.Set.Index.FoldMatch(t.rel); ok {
				msg = fmt.Sprintf("link target %q not found (case mismatch: did you mean %q?)", t.rel, actual)
			}
			out = append(out, Finding{Line: l.Line, Message: msg})
		}
	}
	return out
}

type linkAnchorRule struct{ baseRule }

func (r *linkAnchorRule) CheckDoc(env *Env, u *Unit) []Finding {
	var out []Finding
	for _, l := range u.Outline.Links {
		t := resolveLink(u.Doc.Rel, l.Dest)
		if t.fragment == "" {
			continue
		}
		var target *markdown.Outline
		var where string
		switch t.kind {
		case targetFragment:
			target, where = u.Outline, "this document"
		case targetRelative:
			tu, ok := env.Units[t.rel]
			if !ok {
				continue // missing or non-Markdown target
			}
			target, where = tu.Outline, t.rel
		default:
			continue
		}
		frag := t.fragment
		if unescaped, err := url.PathUnescape(frag); err == nil {
			frag = unescaped
		}
		if !target.HasAnchor(frag) {
			out = append(out, Finding{Line: l.Line, Message: fmt.Sprintf("anchor #%s not found in %s", t.fragment, where)})
		}
	}
	return out
}

type linkAbsolutePathRule struct{ baseRule }

func (r *linkAbsolutePathRule) CheckDoc(_ *Env, u *Unit) []Finding {
	var out []Finding
	for _, l := range u.Outline.Links {
		if resolveLink(u.Doc.Rel, l.Dest).kind == targetAbsolute {
			out = append(out, Finding{Line: l.Line, Message: fmt.Sprintf("link %q uses a local filesystem path; use a relative link", l.Dest)})
		}
	}
	return out
}
