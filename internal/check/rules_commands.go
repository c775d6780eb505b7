package check

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

type frontMatterSyntaxRule struct{ baseRule }

func (r *frontMatterSyntaxRule) CheckDoc(_ *Env, u *Unit) []Finding {
	if u.FrontMatterErr == nil {
		return nil
	}
	return []Finding{{Line: u.FrontMatter.StartLine, Message: u.FrontMatterErr.Error()}}
}

type frontMatterPresentRule struct{ baseRule }

func (r *frontMatterPresentRule) CheckDoc(_ *Env, u *Unit) []Finding {
	if !u.IsCommand() || u.FrontMatter.Present {
		return nil
	}
	return []Finding{{Line: 1, Message: "missing YAML front matter (expected a leading '---' block with a description)"}}
}

type frontMatterDescriptionRule struct{ baseRule }

func (r *frontMatterDescriptionRule) CheckDoc(_ *Env, u *Unit) []Finding {
	fm := u.FrontMatter
	if !u.IsCommand() || !fm.Present || u.FrontMatterErr != nil {
		return nil
	}
	node, line, ok := fm.Get("description")
	if !ok {
		return []Finding{{Line: fm.StartLine, Message: "front matter is missing required key: description"}}
	}
	if node.Kind != yaml.ScalarNode || node.ShortTag() != "!!str" {
		return []Finding{{Line: line, Message: "description must be a string"}}
	}
	if strings.TrimSpace(node.Value) == "" {
		return []Finding{{Line: line, Message: "description is empty"}}
	}
	return nil
}

type frontMatterKeysRule struct {
	baseRule
	known map[string]struct{}
}

func (r *frontMatterKeysRule) CheckDoc(_ *Env, u *Unit) []Finding {
	if !u.IsCommand() || u.FrontMatterErr != nil {
		return nil
	}
	var out []Finding
	for _, k := range u.FrontMatter.Keys {
		if _, ok := r.known[k.Name]; !ok {
			out = append(out, Finding{Line: k.Line, Message: fmt.Sprintf("unknown front-matter key %q", k.Name)})
		}
	}
	return out
}

type commandBodyRule struct{ baseRule }

func (r *commandBodyRule) CheckDoc(_ *Env, u *Unit) []Finding {
	if !u.IsCommand() || u.FrontMatterErr != nil {
		return nil
	}
	if len(bytes.TrimSpace(u.Body)) > 0 {
		return nil
	}
	line := 1
	if u.FrontMatter.Present {
		line = u.FrontMatter.EndLine
	}
	return []Finding{{Line: line, Message: "command has no instructions after the front matter"}}
}

var argumentRef = regexp.MustCompile(`\$(ARGUMENTS\b|[1-9]\b)`)

type commandArgumentsRule struct{ baseRule }

func (r *commandArgumentsRule) CheckDoc(_ *Env, u *Unit) []Finding {
	if !u.IsCommand() || u.FrontMatterErr != nil {
		return nil
	}
	if v, ok := u.FrontMatter.String("argument-hint"); ok && strings.TrimSpace(v) != "" {
		return nil
	}
	loc := argumentRef.FindIndex(u.Body)
	if loc == nil {
		return nil
	}
	line := u.BodyLine + bytes.Count(u.Body[:loc[0]], []byte("\n"))
	ref := string(u.Body[loc[0]:loc[1]])
	return []Finding{{Line: line, Message: fmt.Sprintf("body uses %s but front matter has no argument-hint", ref)}}
}

type commandCollisionRule struct{ baseRule }

func (r *commandCollisionRule) CheckSet(ctx context.Context, env *Env) []Finding {
	dirs := env.Config.Walk.CommandDirs
	groups := make(map[string][]string) // folded name -> rels
	names := make(map[string]string)    // rel -> name
	for _, d := range env.Set.Commands() {
		if ctx.Err() != nil {
			return nil
		}
		name := d.CommandName(dirs)
		if name == "" {
			continue
		}
		names[d.Rel] = name
		folded := strings.ToLower(name)
		groups[folded] = append(groups[folded], d.Rel)
	}

	var out []Finding
	for _, rels := range groups {
		if len(rels) < 2 {
			continue
		}
		sort.Strings(rels)
		for _, rel := range rels[1:] {
			out = append(out, Finding{
				File:    rel,
				Line:    1,
				Message: fmt.Sprintf("command %q collides with %q (%s); names differ only by case", names[rel], names[rels[0]], rels[0]),
			})
		}
	}
	return out
}
