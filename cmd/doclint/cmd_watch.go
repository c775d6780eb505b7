package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"slices"
	"syscall"

	"doclint/internal/config"
	"doclint/internal/docset"
	"doclint/internal/logging"
	"doclint/internal/report"
	"doclint/internal/watch"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// runWatch checks once, then re-checks on change until interrupted.
func runWatch(cmd *cobra.Command, args []string) error {
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

	return watchLoop(ctx, s, cmd.OutOrStdout())
}

// watchLoop blocks until ctx is done. Check failures are reported and the
// loop keeps going; only a watcher that cannot start is fatal. A config
// reload that changes walk.ignore or watch.debounce restarts the watcher.
func watchLoop(ctx context.Context, s *session, out io.Writer) error {
	if _, err := s.run(ctx, out); err != nil {
		logger.Error("Initial check failed", zap.Error(err))
	}

	for {
		restart := make(chan struct{}, 1)
		debounce := s.cfg.GetDebounce()
		logger.Info("Watching for changes",
			zap.String("root", s.root),
			zap.Duration("debounce", debounce))
		w, err := startWatcher(ctx, s, out, restart)
		if err != nil {
			return &exitError{code: report.ExitRuntime, err: err}
		}

		select {
		case <-ctx.Done():
			w.Stop()
			return nil
		case <-w.Done():
			w.Stop()
			return nil
		case <-restart:
			w.Stop()
			logger.Info("Watch settings changed, restarting watcher")
		}
	}
}

// startWatcher watches s.root with the session's current settings. Every
// settled batch re-runs the check; restart is signalled when a reloaded
// config changes what or how the watcher watches.
func startWatcher(ctx context.Context, s *session, out io.Writer, restart chan<- struct{}) (*watch.Watcher, error) {
	w, err := watch.New(watch.Options{
		Root:     s.root,
		Debounce: s.cfg.GetDebounce(),
		Skip:     docset.SkipFunc(s.cfg.Walk.Ignore),
	}, func(ctx context.Context, changed []string) {
		if configChanged(changed) {
			if ns, err := newSession(s.root); err != nil {
				logger.Error("Config reload failed, keeping previous config", zap.Error(err))
			} else {
				old := s.cfg
				*s = *ns
				if watchSettingsChanged(old, ns.cfg) {
					select {
					case restart <- struct{}{}:
					default:
					}
				}
			}
		}
		logging.WatchDebug("Re-checking after changes: %v", changed)
		fmt.Fprintf(out, "\n--- %d changed, re-checking ---\n", len(changed))
		if _, err := s.run(ctx, out); err != nil && ctx.Err() == nil {
			logger.Error("Re-check failed", zap.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Start(ctx); err != nil {
		w.Stop()
		return nil, fmt.Errorf("start watcher: %w", err)
	}
	return w, nil
}

func configChanged(changed []string) bool {
	for _, p := range changed {
		if p == config.DefaultFileName {
			return true
		}
	}
	return false
}

// watchSettingsChanged reports whether the watcher must be rebuilt to
// apply next.
func watchSettingsChanged(prev, next *config.Config) bool {
	return prev.GetDebounce() != next.GetDebounce() || !slices.Equal(prev.Walk.Ignore, next.Walk.Ignore)
}
