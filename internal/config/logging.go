package config

import "doclint/internal/logging"

// LoggingConfig configures file logging.
type LoggingConfig struct {
	Level      string          `yaml:"level"`                // debug, info, warn, error
	Format     string          `yaml:"format"`               // json, text
	DebugMode  bool            `yaml:"debug_mode"`           // Master toggle - false = no log files
	Categories map[string]bool `yaml:"categories,omitempty"` // Per-category toggles
}

// Options converts the config into logging.Options.
func (c *LoggingConfig) Options() logging.Options {
	return logging.Options{
		DebugMode:  c.DebugMode,
		Level:      c.Level,
		JSONFormat: c.Format == "json",
		Categories: c.Categories,
	}
}
