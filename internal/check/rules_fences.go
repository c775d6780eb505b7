package check

import (
	"fmt"
	"strings"
)

type fenceLanguageRule struct{ baseRule }

func (r *fenceLanguageRule) CheckDoc(_ *Env, u *Unit) []Finding {
	var out []Finding
	for _, f := range u.Outline.Fences {
		if f.Language == "" {
			out = append(out, Finding{Line: f.Line, Message: "code fence has no language tag"})
		}
	}
	return out
}

type fenceUnknownLanguageRule struct {
	baseRule
	langs map[string]struct{}
}

func (r *fenceUnknownLanguageRule) CheckDoc(_ *Env, u *Unit) []Finding {
	var out []Finding
	for _, f := range u.Outline.Fences {
		if f.Language == "" {
			continue
		}
		if _, ok := r.langs[strings.ToLower(f.Language)]; !ok {
			out = append(out, Finding{Line: f.Line, Message: fmt.Sprintf("unrecognized code fence language %q", f.Language)})
		}
	}
	return out
}

type fenceUnclosedRule struct{ baseRule }

func (r *fenceUnclosedRule) CheckDoc(_ *Env, u *Unit) []Finding {
	var out []Finding
	for _, f := range u.Outline.Fences {
		if !f.Closed {
			out = append(out, Finding{Line: f.Line, Message: fmt.Sprintf("code fence opened with %s is never closed", f.Marker)})
		}
	}
	return out
}
