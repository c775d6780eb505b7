package main

import (
	"fmt"
	"os"
	"path/filepath"

	"doclint/internal/config"
	"doclint/internal/report"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// runInit writes the default config unless one already exists.
func runInit(cmd *cobra.Command, args []string) error {
	root, err := resolveRoot(args)
	if err != nil {
		return &exitError{code: report.ExitRuntime, err: err}
	}
	path := filepath.Join(root, config.DefaultFileName)

	if _, err := os.Stat(path); err == nil {
		logger.Info("Config already exists", zap.String("path", path))
		fmt.Fprintf(cmd.OutOrStdout(), "%s already exists, leaving it unchanged\n", path)
		return nil
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return &exitError{code: report.ExitRuntime, err: err}
	}
	logger.Info("Wrote default config", zap.String("path", path))
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}
