package markdown

import (
	"fmt"
	"strings"
	"unicode"
)

// Slug converts heading text to a GitHub-style anchor:
// lower-case, punctuation except '-' and '_' dropped, spaces become '-'.
func Slug(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(text)) {
		switch {
		case unicode.IsLetter(r), unicode.IsNumber(r), r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('-')
		}
	}
	return b.String()
}

// slugger assigns unique slugs the way GitHub does for repeated headings.
type slugger struct {
	seen map[string]int
}

func newSlugger() *slugger {
	return &slugger{seen: make(map[string]int)}
}

func (s *slugger) next(text string) string {
	base := Slug(text)
	n, dup := s.seen[base]
	s.seen[base] = n + 1
	if !dup {
		return base
	}
	slug := fmt.Sprintf("%s-%d", base, n)
	// A literal heading may already own the suffixed form.
	for {
		if _, taken := s.seen[slug]; !taken {
			break
		}
		n++
		slug = fmt.Sprintf("%s-%d", base, n)
	}
	s.seen[base] = n + 1
	s.seen[slug] = 1
	return slug
}
