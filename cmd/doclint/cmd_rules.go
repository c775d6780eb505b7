package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"doclint/internal/check"
	"doclint/internal/config"
	"doclint/internal/report"

	"github.com/spf13/cobra"
)

// runRules prints every rule with its effective state and severity.
func runRules(cmd *cobra.Command, args []string) error {
	root, err := resolveRoot(nil)
	if err != nil {
		return &exitError{code: report.ExitRuntime, err: err}
	}
	cfg, err := config.LoadForRoot(root, configPath)
	if err != nil {
		return &exitError{code: report.ExitRuntime, err: err}
	}

	rules := check.DefaultRules(cfg)
	width := 0
	for _, r := range rules {
		if len(r.Name()) > width {
			width = len(r.Name())
		}
	}

	out := cmd.OutOrStdout()
	st := report.NewStyles(out, report.ColorEnabled(cfg.Output.Color, out))
	for _, r := range rules {
		sev := string(r.DefaultSeverity())
		if rc, ok := cfg.Rules[r.Name()]; ok && rc.Severity != "" {
			sev = rc.Severity
		}
		state := ""
		if !cfg.RuleEnabled(r.Name(), true) {
			state = st.Muted.Render(" (disabled)")
		}
		pad := strings.Repeat(" ", width-len(r.Name()))
		fmt.Fprintf(out, "%s%s  %-8s %s%s\n", st.Rule.Render(r.Name()), pad, sev, r.Description(), state)
	}
	if len(cfg.Rules) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "overrides from %s applied\n", configSource(root))
	}
	return nil
}

func configSource(root string) string {
	if configPath != "" {
		return configPath
	}
	return filepath.Join(root, config.DefaultFileName)
}
