package check

import (
	"context"
	"errors"
	"strings"

	"doclint/internal/config"
	"doclint/internal/docset"
	"doclint/internal/markdown"
)

// Rule is the metadata every rule carries.
type Rule interface {
	Name() string
	Description() string
	DefaultSeverity() Severity
}

// DocRule checks one document at a time. Implementations must be safe
// for concurrent use; the runner calls CheckDoc from several goroutines.
type DocRule interface {
	Rule
	CheckDoc(env *Env, u *Unit) []Finding
}

// SetRule checks properties spanning the whole documentation set.
type SetRule interface {
	Rule
	CheckSet(ctx context.Context, env *Env) []Finding
}

// Unit is a parsed document.
type Unit struct {
	Doc            *docset.Document
	FrontMatter    *markdown.FrontMatter
	FrontMatterErr error
	Body           []byte
	BodyLine       int
	Outline        *markdown.Outline
}

// IsCommand reports whether the unit is a slash-command file.
func (u *Unit) IsCommand() bool {
	return u.Doc.Kind == docset.KindCommand
}

// ParseUnit splits front matter and parses the Markdown body.
// In ordinary docs a leading "---" that does not open a YAML mapping is a
// thematic break, so the whole file is treated as body.
func ParseUnit(doc *docset.Document) *Unit {
	fm, body, bodyLine, err := markdown.SplitFrontMatter(doc.Content)
	if doc.Kind != docset.KindCommand &&
		(errors.Is(err, markdown.ErrUnterminatedFrontMatter) || errors.Is(err, markdown.ErrFrontMatterNotMapping)) {
		fm, body, bodyLine, err = &markdown.FrontMatter{}, doc.Content, 1, nil
	}
	return &Unit{
		Doc:            doc,
		FrontMatter:    fm,
		FrontMatterErr: err,
		Body:           body,
		BodyLine:       bodyLine,
		Outline:        markdown.Parse(body, bodyLine-1),
	}
}

// Env is shared, read-only state available to every rule during a run.
type Env struct {
	Set    *docset.Set
	Config *config.Config
	Units  map[string]*Unit // keyed by Document.Rel
}

// baseRule carries the static metadata shared by the built-in rules.
type baseRule struct {
	name, desc string
	sev        Severity
}

func (b baseRule) Name() string              { return b.name }
func (b baseRule) Description() string       { return b.desc }
func (b baseRule) DefaultSeverity() Severity { return b.sev }

// DefaultRules returns the built-in rules configured from cfg.
func DefaultRules(cfg *config.Config) []Rule {
	known := toSet(cfg.Commands.KnownKeys, false)
	langs := toSet(cfg.Fences.Languages, true)
	return []Rule{
		&frontMatterSyntaxRule{baseRule{"frontmatter-syntax", "front matter must be a terminated YAML mapping", SeverityError}},
		&frontMatterPresentRule{baseRule{"frontmatter-present", "command files must start with a YAML front-matter block", SeverityError}},
		&frontMatterDescriptionRule{baseRule{"frontmatter-description", "command front matter must set a non-empty description", SeverityError}},
		&frontMatterKeysRule{baseRule{"frontmatter-keys", "command front matter keys must be known", SeverityWarning}, known},
		&commandBodyRule{baseRule{"command-body", "command files must contain instructions after the front matter", SeverityError}},
		&commandArgumentsRule{baseRule{"command-arguments", "commands using $ARGUMENTS or $1..$9 should declare argument-hint", SeverityWarning}},
		&commandCollisionRule{baseRule{"command-name-collision", "command names must not differ only by case", SeverityWarning}},
		&linkTargetRule{baseRule{"link-target", "relative links must resolve to an existing file", SeverityError}},
		&linkAnchorRule{baseRule{"link-anchor", "link fragments must match a heading in the target document", SeverityWarning}},
		&linkAbsolutePathRule{baseRule{"link-absolute-path", "links must not use filesystem-absolute paths", SeverityWarning}},
		&fenceLanguageRule{baseRule{"fence-language", "code fences must declare a language", SeverityWarning}},
		&fenceUnknownLanguageRule{baseRule{"fence-unknown-language", "code fence languages must be recognized", SeverityWarning}, langs},
		&fenceUnclosedRule{baseRule{"fence-unclosed", "code fences must be closed", SeverityError}},
	}
}

func toSet(values []string, lower bool) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if lower {
			v = strings.ToLower(v)
		}
		if v != "" {
			out[v] = struct{}{}
		}
	}
	return out
}
