package check

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"doclint/internal/config"
	"doclint/internal/docset"
	"doclint/internal/logging"

	"golang.org/x/sync/errgroup"
)

// slowRun is the check duration above which the run is logged as a warning.
const slowRun = 2 * time.Second

// walkRule is the pseudo-rule name for walker problems (unreadable or oversized files).
const walkRule = "walk"

// Result is the outcome of one run.
type Result struct {
	Root     string
	Files    int
	Commands int
	Rules    []string // Enabled rule names, sorted
	Issues   []Issue
}

// Counts tallies the result's issues per severity.
func (r *Result) Counts() Counts {
	return Count(r.Issues)
}

// Runner executes enabled rules over a documentation set.
type Runner struct {
	cfg         *config.Config
	docRules    []DocRule
	setRules    []SetRule
	severity    map[string]Severity
	concurrency int
}

// NewRunner builds a runner from cfg. Rules are disabled and re-ranked per
// cfg.Rules. Naming a rule that does not exist is an error.
func NewRunner(cfg *config.Config, rules []Rule) (*Runner, error) {
	byName := make(map[string]Rule, len(rules))
	for _, rule := range rules {
		if _, dup := byName[rule.Name()]; dup {
			return nil, fmt.Errorf("duplicate rule %q", rule.Name())
		}
		byName[rule.Name()] = rule
	}
	for name := range cfg.Rules {
		if _, ok := byName[name]; !ok {
			return nil, fmt.Errorf("rules.%s: unknown rule", name)
		}
	}

	r := &Runner{
		cfg:         cfg,
		severity:    make(map[string]Severity, len(rules)),
		concurrency: cfg.Check.Concurrency,
	}
	if r.concurrency <= 0 {
		r.concurrency = runtime.NumCPU()
	}

	for _, rule := range rules {
		if !cfg.RuleEnabled(rule.Name(), true) {
			logging.CheckDebug("Rule %s disabled by config", rule.Name())
			continue
		}
		sev := rule.DefaultSeverity()
		if rc, ok := cfg.Rules[rule.Name()]; ok && rc.Severity != "" {
			parsed, err := ParseSeverity(rc.Severity)
			if err != nil {
				return nil, fmt.Errorf("rules.%s: %w", rule.Name(), err)
			}
			sev = parsed
		}
		r.severity[rule.Name()] = sev

		switch impl := rule.(type) {
		case DocRule:
			r.docRules = append(r.docRules, impl)
		case SetRule:
			r.setRules = append(r.setRules, impl)
		default:
			return nil, fmt.Errorf("rule %q implements neither DocRule nor SetRule", rule.Name())
		}
	}
	return r, nil
}

// EnabledRules returns the names of the rules this runner executes.
func (r *Runner) EnabledRules() []string {
	names := make([]string, 0, len(r.severity))
	for name := range r.severity {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run parses every document, then applies document rules in parallel and
// set rules afterwards. Issues come back sorted, so output is stable
// regardless of scheduling.
func (r *Runner) Run(ctx context.Context, set *docset.Set) (*Result, error) {
	timer := logging.StartTimer(logging.CategoryCheck, "check run")
	defer timer.StopWithThreshold(slowRun)

	logging.Check("Checking %d documents with %d rules", len(set.Documents), len(r.docRules)+len(r.setRules))
	units, err := r.parseAll(ctx, set)
	if err != nil {
		return nil, err
	}
	env := &Env{Set: set, Config: r.cfg, Units: units}

	var (
		mu     sync.Mutex
		issues []Issue
	)
	for _, p := range set.Problems {
		sev := SeverityError
		if p.Severity == "warning" {
			sev = SeverityWarning
		}
		issues = append(issues, Issue{Rule: walkRule, Severity: sev, File: p.Rel, Message: p.Message})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, doc := range set.Documents {
		u := units[doc.Rel]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			local := r.checkUnit(env, u)
			if len(local) == 0 {
				return nil
			}
			mu.Lock()
			issues = append(issues, local...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, rule := range r.setRules {
		for _, f := range rule.CheckSet(ctx, env) {
			issues = append(issues, r.stamp(rule, f.File, f))
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	SortIssues(issues)
	res := &Result{
		Root:     set.Root,
		Files:    len(set.Documents),
		Commands: len(set.Commands()),
		Rules:    r.EnabledRules(),
		Issues:   issues,
	}
	c := res.Counts()
	logging.Get(logging.CategoryCheck).StructuredLog("info", "check complete", map[string]interface{}{
		"files":    res.Files,
		"commands": res.Commands,
		"rules":    len(res.Rules),
		"errors":   c.Errors,
		"warnings": c.Warnings,
		"infos":    c.Infos,
	})
	return res, nil
}

func (r *Runner) parseAll(ctx context.Context, set *docset.Set) (map[string]*Unit, error) {
	units := make(map[string]*Unit, len(set.Documents))
	parsed := make([]*Unit, len(set.Documents))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, doc := range set.Documents {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			parsed[i] = ParseUnit(doc)
			logging.ParseDebug("Parsed %s: %d links, %d fences, %d headings",
				doc.Rel, len(parsed[i].Outline.Links), len(parsed[i].Outline.Fences), len(parsed[i].Outline.Headings))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, u := range parsed {
		units[u.Doc.Rel] = u
	}
	return units, nil
}

func (r *Runner) checkUnit(env *Env, u *Unit) []Issue {
	var out []Issue
	for _, rule := range r.docRules {
		for _, f := range rule.CheckDoc(env, u) {
			out = append(out, r.stamp(rule, u.Doc.Rel, f))
		}
	}
	return out
}

func (r *Runner) stamp(rule Rule, file string, f Finding) Issue {
	if f.File != "" {
		file = f.File
	}
	return Issue{
		Rule:     rule.Name(),
		Severity: r.severity[rule.Name()],
		File:     file,
		Line:     f.Line,
		Message:  f.Message,
	}
}
