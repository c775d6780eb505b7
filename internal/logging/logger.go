// Package logging provides config-driven categorized file-based logging for doclint.
// Logs are written to <root>/.doclint/logs/ with separate files per category.
// Logging is controlled by logging.debug_mode in .doclint.yaml - when false, no logs are written.
package logging

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Category represents a log category/subsystem
type Category string

const (
	CategoryBoot   Category = "boot"   // Startup, config resolution
	CategoryWalk   Category = "walk"   // File walker and path index
	CategoryParse  Category = "parse"  // Front matter and Markdown parsing
	CategoryCheck  Category = "check"  // Rule execution
	CategoryReport Category = "report" // Report rendering
	CategoryWatch  Category = "watch"  // Filesystem watcher
)

// AllCategories lists every known category in a stable order.
func AllCategories() []Category {
	return []Category{CategoryBoot, CategoryWalk, CategoryParse, CategoryCheck, CategoryReport, CategoryWatch}
}

// Options mirrors the relevant parts of config.LoggingConfig
// to avoid an import cycle.
type Options struct {
	DebugMode  bool
	Level      string
	JSONFormat bool
	Categories map[string]bool
}

// StructuredLogEntry is one JSON log line.
type StructuredLogEntry struct {
	Timestamp int64                  `json:"ts"`  // Unix milliseconds
	Category  string                 `json:"cat"` // Log category
	Level     string                 `json:"lvl"` // debug/info/warn/error
	Message   string                 `json:"msg"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Logger wraps a standard logger with category and file output
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex
	logsDir   string
	opts      Options
	optsMu    sync.RWMutex
	logLevel  int // 0=debug, 1=info, 2=warn, 3=error
)

// Log levels
const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

// Initialize sets up the logging directory under root.
// With DebugMode off it is a silent no-op and every logger discards.
func Initialize(root string, o Options) error {
	if root == "" {
		return fmt.Errorf("root path required")
	}

	CloseAll()

	optsMu.Lock()
	opts = o
	logLevel = parseLevel(o.Level)
	optsMu.Unlock()

	if !o.DebugMode {
		logsDir = ""
		return nil
	}

	dir := filepath.Join(root, ".doclint", "logs")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}
	logsDir = dir

	boot := Get(CategoryBoot)
	boot.Info("=== doclint logging initialized ===")
	boot.Info("Root: %s", root)
	boot.Info("Logs directory: %s", logsDir)
	boot.Info("Log level: %s", o.Level)
	if len(o.Categories) == 0 {
		boot.Info("All categories enabled (no category filter)")
		return nil
	}
	var enabled []string
	for _, cat := range AllCategories() {
		if IsCategoryEnabled(cat) {
			enabled = append(enabled, string(cat))
		}
	}
	boot.Info("Enabled categories: %v", enabled)
	return nil
}

func parseLevel(level string) int {
	switch level {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// IsDebugMode returns whether file logging is enabled
func IsDebugMode() bool {
	optsMu.RLock()
	defer optsMu.RUnlock()
	return opts.DebugMode
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	optsMu.RLock()
	defer optsMu.RUnlock()

	if !opts.DebugMode {
		return false
	}
	if opts.Categories == nil {
		return true
	}
	enabled, exists := opts.Categories[string(category)]
	if !exists {
		return true // Enable by default if not specified
	}
	return enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if debug mode is disabled or category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) || logsDir == "" {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()

	// Double-check after acquiring write lock
	if l, ok := loggers[category]; ok {
		return l
	}

	date := time.Now().Format("2006-01-02")
	logPath := filepath.Join(logsDir, fmt.Sprintf("%s_%s.log", date, category))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] Warning: could not open log file %s: %v\n", logPath, err)
		return &Logger{category: category}
	}

	l := &Logger{
		category: category,
		file:     file,
		logger:   log.New(file, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
	loggers[category] = l
	return l
}

func (l *Logger) write(level string, lvl int, format string, args ...interface{}) {
	if l.logger == nil || (lvl < LevelError && logLevel > lvl) {
		return
	}
	msg := fmt.Sprintf(format, args...)
	optsMu.RLock()
	jsonFormat := opts.JSONFormat
	optsMu.RUnlock()
	if !jsonFormat {
		l.logger.Printf("[%s] %s", levelTag(level), msg)
		return
	}
	data, err := json.Marshal(StructuredLogEntry{
		Timestamp: time.Now().UnixMilli(),
		Category:  string(l.category),
		Level:     level,
		Message:   msg,
	})
	if err != nil {
		l.logger.Printf("[%s] %s", levelTag(level), msg)
		return
	}
	l.logger.Printf("%s", data)
}

func levelTag(level string) string {
	switch level {
	case "debug":
		return "DEBUG"
	case "warn":
		return "WARN"
	case "error":
		return "ERROR"
	default:
		return "INFO"
	}
}

// Debug logs a debug message (only if level <= debug)
func (l *Logger) Debug(format string, args ...interface{}) {
	l.write("debug", LevelDebug, format, args...)
}

// Info logs an informational message (only if level <= info)
func (l *Logger) Info(format string, args ...interface{}) {
	l.write("info", LevelInfo, format, args...)
}

// Warn logs a warning message (only if level <= warn)
func (l *Logger) Warn(format string, args ...interface{}) {
	l.write("warn", LevelWarn, format, args...)
}

// Error logs an error message (always logged if logger exists)
func (l *Logger) Error(format string, args ...interface{}) {
	l.write("error", LevelError, format, args...)
}

// StructuredLog writes a log entry with custom fields
func (l *Logger) StructuredLog(level string, msg string, fields map[string]interface{}) {
	if l.logger == nil {
		return
	}
	if IsJSONFormat() {
		data, err := json.Marshal(StructuredLogEntry{
			Timestamp: time.Now().UnixMilli(),
			Category:  string(l.category),
			Level:     level,
			Message:   msg,
			Fields:    fields,
		})
		if err == nil {
			l.logger.Printf("%s", data)
			return
		}
	}
	l.logger.Printf("[%s] %s | fields=%v", levelTag(level), msg, fields)
}

// IsJSONFormat returns whether JSON logging is enabled
func IsJSONFormat() bool {
	optsMu.RLock()
	defer optsMu.RUnlock()
	return opts.JSONFormat
}

// CloseAll closes all open log files (call at shutdown)
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	for _, l := range loggers {
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// These are no-ops if the category is disabled
// =============================================================================

func Boot(format string, args ...interface{})        { Get(CategoryBoot).Info(format, args...) }
func BootWarn(format string, args ...interface{})    { Get(CategoryBoot).Warn(format, args...) }
func Walk(format string, args ...interface{})        { Get(CategoryWalk).Info(format, args...) }
func WalkDebug(format string, args ...interface{})   { Get(CategoryWalk).Debug(format, args...) }
func WalkWarn(format string, args ...interface{})    { Get(CategoryWalk).Warn(format, args...) }
func ParseDebug(format string, args ...interface{})  { Get(CategoryParse).Debug(format, args...) }
func Check(format string, args ...interface{})       { Get(CategoryCheck).Info(format, args...) }
func CheckDebug(format string, args ...interface{})  { Get(CategoryCheck).Debug(format, args...) }
func Report(format string, args ...interface{})      { Get(CategoryReport).Info(format, args...) }
func Watch(format string, args ...interface{})       { Get(CategoryWatch).Info(format, args...) }
func WatchDebug(format string, args ...interface{})  { Get(CategoryWatch).Debug(format, args...) }
func WatchError(format string, args ...interface{})  { Get(CategoryWatch).Error(format, args...) }

// =============================================================================
// TIMING HELPERS
// =============================================================================

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs a warning if duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
