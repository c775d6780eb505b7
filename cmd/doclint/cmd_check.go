package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"doclint/internal/check"
	"doclint/internal/config"
	"doclint/internal/docset"
	"doclint/internal/logging"
	"doclint/internal/report"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// resolveRoot picks the documentation root: positional arg, then
// --workspace, then the current directory.
func resolveRoot(args []string) (string, error) {
	root := workspace
	if len(args) > 0 {
		root = args[0]
	}
	if root == "" {
		var err error
		root, err = os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}
	return abs, nil
}

// loadConfig reads the config for root and layers the check flags on top.
func loadConfig(root string) (*config.Config, error) {
	cfg, err := config.LoadForRoot(root, configPath)
	if err != nil {
		return nil, err
	}
	if format != "" {
		cfg.Output.Format = format
	}
	if failOnWarn {
		cfg.Output.FailOnWarn = true
	}
	if concurrency > 0 {
		cfg.Check.Concurrency = concurrency
	}
	for _, name := range disable {
		cfg.DisableRule(name)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// session holds everything needed to run repeated checks of one root.
type session struct {
	root   string
	cfg    *config.Config
	runner *check.Runner
}

func newSession(root string) (*session, error) {
	cfg, err := loadConfig(root)
	if err != nil {
		return nil, err
	}
	if err := logging.Initialize(root, cfg.Logging.Options()); err != nil {
		logger.Warn("File logging disabled", zap.Error(err))
	} else if logging.IsDebugMode() {
		logger.Info("File logging enabled", zap.String("dir", filepath.Join(root, ".doclint", "logs")))
	}
	for name, rc := range cfg.Rules {
		if rc.Enabled != nil && !*rc.Enabled && rc.Severity != "" {
			logging.BootWarn("rules.%s: severity %q has no effect on a disabled rule", name, rc.Severity)
		}
	}
	runner, err := check.NewRunner(cfg, check.DefaultRules(cfg))
	if err != nil {
		return nil, err
	}
	logging.Boot("Session for %s with %d rules", root, len(runner.EnabledRules()))
	return &session{root: root, cfg: cfg, runner: runner}, nil
}

func (s *session) walkOptions() docset.WalkOptions {
	return docset.WalkOptions{
		Root:        s.root,
		Extensions:  s.cfg.Walk.Extensions,
		CommandDirs: s.cfg.Walk.CommandDirs,
		Ignore:      s.cfg.Walk.Ignore,
		MaxFileSize: s.cfg.Walk.MaxFileSize,
	}
}

// run performs one full check and writes the report to w.
// It returns the exit code the report maps to.
func (s *session) run(ctx context.Context, w io.Writer) (int, error) {
	set, err := docset.Walk(ctx, s.walkOptions())
	if err != nil {
		return report.ExitRuntime, fmt.Errorf("walk %s: %w", s.root, err)
	}
	res, err := s.runner.Run(ctx, set)
	if err != nil {
		return report.ExitRuntime, fmt.Errorf("check: %w", err)
	}

	rep := report.New(res)
	logger.Debug("Check complete",
		zap.String("run_id", rep.RunID),
		zap.Int("files", rep.Files),
		zap.Int("errors", rep.Summary.Errors),
		zap.Int("warnings", rep.Summary.Warnings))

	opts := report.Options{
		Format: s.cfg.Output.Format,
		Color:  report.ColorEnabled(s.cfg.Output.Color, w),
	}
	if err := report.Write(w, rep, opts); err != nil {
		return report.ExitRuntime, fmt.Errorf("write report: %w", err)
	}
	return rep.ExitCode(s.cfg.Output.FailOnWarn), nil
}

// runCheck executes a single check
func runCheck(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root, err := resolveRoot(args)
	if err != nil {
		return &exitError{code: report.ExitRuntime, err: err}
	}
	s, err := newSession(root)
	if err != nil {
		return &exitError{code: report.ExitRuntime, err: err}
	}
	defer logging.CloseAll()

	code, err := s.run(ctx, cmd.OutOrStdout())
	if err != nil {
		return &exitError{code: code, err: err}
	}
	if code != report.ExitOK {
		return &exitError{code: code}
	}
	return nil
}
