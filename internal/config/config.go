package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the config file looked up at the documentation root.
const DefaultFileName = ".doclint.yaml"

// Config holds all doclint configuration.
type Config struct {
	// Walk controls which files are loaded and how they are classified.
	Walk WalkConfig `yaml:"walk"`

	// Commands configures slash-command front-matter checks.
	Commands CommandsConfig `yaml:"commands"`

	// Fences configures code-fence checks.
	Fences FencesConfig `yaml:"fences"`

	// Rules holds per-rule overrides keyed by rule name.
	Rules map[string]RuleConfig `yaml:"rules,omitempty"`

	// Check configures the rule runner.
	Check CheckConfig `yaml:"check"`

	// Output configures the report printer.
	Output OutputConfig `yaml:"output"`

	// Watch configures the re-check loop.
	Watch WatchConfig `yaml:"watch"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// WalkConfig configures the documentation walker.
type WalkConfig struct {
	Extensions  []string `yaml:"extensions"`    // Markdown extensions (lower-case, with dot)
	CommandDirs []string `yaml:"command_dirs"`  // Directories holding slash commands
	Ignore      []string `yaml:"ignore"`        // Directory names or globs to skip
	MaxFileSize int64    `yaml:"max_file_size"` // Bytes; 0 disables the limit
}

// CommandsConfig configures slash-command checks.
type CommandsConfig struct {
	KnownKeys []string `yaml:"known_keys"` // Front-matter keys that do not trigger a warning
}

// FencesConfig configures code-fence checks.
type FencesConfig struct {
	Languages []string `yaml:"languages"` // Recognized info-string languages (compared lower-case)
}

// RuleConfig overrides a single rule. A nil Enabled keeps the default.
type RuleConfig struct {
	Enabled  *bool  `yaml:"enabled,omitempty"`
	Severity string `yaml:"severity,omitempty"` // error, warning, info
}

// CheckConfig configures the rule runner.
type CheckConfig struct {
	Concurrency int `yaml:"concurrency"` // 0 = number of CPUs
}

// OutputConfig configures the report printer.
type OutputConfig struct {
	Format     string `yaml:"format"`       // text, json, markdown
	FailOnWarn bool   `yaml:"fail_on_warn"` // Exit non-zero on warnings
	Color      string `yaml:"color"`        // auto, always, never
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	Debounce string `yaml:"debounce"` // Go duration string
}

// ValidFormats lists the report formats.
var ValidFormats = []string{"text", "json", "markdown"}

// ValidSeverities lists the accepted severity overrides.
var ValidSeverities = []string{"error", "warning", "info"}

var validColors = []string{"auto", "always", "never"}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Walk: WalkConfig{
			Extensions:  []string{".md", ".markdown"},
			CommandDirs: []string{".claude/commands"},
			Ignore:      []string{".git", "node_modules", "bin", "obj", ".vs", ".doclint"},
			MaxFileSize: 2 << 20,
		},
		Commands: CommandsConfig{
			KnownKeys: []string{"description", "allowed-tools", "argument-hint", "model", "disable-model-invocation"},
		},
		Fences: FencesConfig{
			Languages: []string{
				"csharp", "cs", "c#", "vb", "fsharp", "xml", "xaml", "json", "yaml", "yml", "toml", "ini",
				"bash", "sh", "shell", "console", "powershell", "ps1", "pwsh", "cmd", "bat", "batch",
				"text", "txt", "plaintext", "markdown", "md", "diff", "sql", "html", "css",
				"javascript", "js", "typescript", "ts", "go", "python", "mermaid", "csproj",
			},
		},
		Check: CheckConfig{
			Concurrency: 0,
		},
		Output: OutputConfig{
			Format: "text",
			Color:  "auto",
		},
		Watch: WatchConfig{
			Debounce: "300ms",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file.
// A missing file yields the defaults; environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// LoadForRoot loads root/.doclint.yaml unless an explicit path is given.
func LoadForRoot(root, explicit string) (*Config, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		return Load(explicit)
	}
	return Load(filepath.Join(root, DefaultFileName))
}

// Save writes the configuration as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DOCLINT_FORMAT"); v != "" {
		c.Output.Format = strings.ToLower(v)
	}
	if v := os.Getenv("DOCLINT_FAIL_ON_WARN"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Output.FailOnWarn = b
		}
	}
	if v := os.Getenv("DOCLINT_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Check.Concurrency = n
		}
	}
	if v := os.Getenv("DOCLINT_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Logging.DebugMode = b
		}
	}
	// https://no-color.org: presence alone disables color.
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		c.Output.Color = "never"
	}
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if !contains(ValidFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %q (valid: %v)", c.Output.Format, ValidFormats)
	}
	if !contains(validColors, c.Output.Color) {
		return fmt.Errorf("invalid color mode: %q (valid: %v)", c.Output.Color, validColors)
	}
	if c.Check.Concurrency < 0 {
		return fmt.Errorf("check.concurrency must be >= 0, got %d", c.Check.Concurrency)
	}
	if c.Walk.MaxFileSize < 0 {
		return fmt.Errorf("walk.max_file_size must be >= 0, got %d", c.Walk.MaxFileSize)
	}
	if len(c.Walk.Extensions) == 0 {
		return fmt.Errorf("walk.extensions must not be empty")
	}
	for _, ext := range c.Walk.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("walk.extensions entry %q must start with '.'", ext)
		}
	}
	for name, rc := range c.Rules {
		if rc.Severity != "" && !contains(ValidSeverities, rc.Severity) {
			return fmt.Errorf("rules.%s.severity: invalid severity %q (valid: %v)", name, rc.Severity, ValidSeverities)
		}
	}
	if _, err := time.ParseDuration(c.Watch.Debounce); err != nil {
		return fmt.Errorf("watch.debounce: %w", err)
	}
	return nil
}

// GetDebounce returns the watch debounce window, falling back to 300ms.
func (c *Config) GetDebounce() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil || d <= 0 {
		return 300 * time.Millisecond
	}
	return d
}

// RuleEnabled reports whether a rule is on, given its default.
func (c *Config) RuleEnabled(name string, def bool) bool {
	rc, ok := c.Rules[name]
	if !ok || rc.Enabled == nil {
		return def
	}
	return *rc.Enabled
}

// DisableRule turns a rule off, keeping any severity override.
func (c *Config) DisableRule(name string) {
	if c.Rules == nil {
		c.Rules = make(map[string]RuleConfig)
	}
	rc := c.Rules[name]
	off := false
	rc.Enabled = &off
	c.Rules[name] = rc
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
