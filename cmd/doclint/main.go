package main

import (
	"errors"
	"fmt"
	"os"

	"doclint/internal/report"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose   bool
	workspace string

	// Check flags
	configPath  string
	format      string
	failOnWarn  bool
	disable     []string
	concurrency int

	// Logger
	logger *zap.Logger
)

// exitError carries a process exit code out of a command.
// A nil err means the report was already printed and only the code matters.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "doclint",
	Short: "doclint - documentation linter for Markdown doc sets and slash commands",
	Long: `doclint validates a documentation repository: slash-command front matter,
relative links and anchors, and code-fence language tags.

Exit codes: 0 clean, 1 issues found, 2 runtime failure.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// checkCmd runs every enabled rule once
var checkCmd = &cobra.Command{
	Use:   "check [path]",
	Short: "Check a documentation root once",
	Long: `Walks the documentation root, runs every enabled rule, and prints a report.

Examples:
  doclint check
  doclint check docs-repo --format json
  doclint check --disable fence-language --fail-on-warn`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

// watchCmd re-checks on every settled change
var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Check, then re-check whenever files change",
	Long: `Runs a full check, then watches the documentation root and re-runs the
check after changes settle. Stops on SIGINT or SIGTERM.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

// rulesCmd lists the available rules
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List rules with their default severity",
	Args:  cobra.NoArgs,
	RunE:  runRules,
}

// initCmd writes a default config file
var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a default .doclint.yaml",
	Long: `Writes the default configuration to <path>/.doclint.yaml.
An existing file is left untouched.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Documentation root (default: current)")

	// Check and watch share their flags
	for _, c := range []*cobra.Command{checkCmd, watchCmd} {
		c.Flags().StringVar(&configPath, "config", "", "Config file (default: <root>/.doclint.yaml)")
		c.Flags().StringVar(&format, "format", "", "Report format: text, json, markdown")
		c.Flags().BoolVar(&failOnWarn, "fail-on-warn", false, "Exit 1 when warnings are reported")
		c.Flags().StringSliceVar(&disable, "disable", nil, "Disable a rule by name (repeatable)")
		c.Flags().IntVar(&concurrency, "concurrency", 0, "Parallel file checks (default: config or CPUs)")
	}
	rulesCmd.Flags().StringVar(&configPath, "config", "", "Config file (default: <root>/.doclint.yaml)")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(initCmd)
}

func main() {
	os.Exit(execute())
}

func execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return report.ExitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintln(os.Stderr, "doclint:", ee.err)
		}
		return ee.code
	}
	fmt.Fprintln(os.Stderr, "doclint:", err)
	return report.ExitRuntime
}
