// Package logging provides the process-wide lifecycle logger for the lidx
// CLI: one log file per invocation, named after the run so it can be
// cross-referenced against the run_id a reindex/sync logs through logrus.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// LogLevel represents the severity of a log message.
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

// Config holds logger configuration.
type Config struct {
	Level      LogLevel
	Dir        string // directory run logs are written under (empty = stdout only)
	RunID      string // correlation id stamped into the log filename; a timestamp if empty
	MaxRuns    int    // how many past run logs to retain in Dir (default: 10)
	JSONFormat bool   // JSON lines (default: true outside debug mode)
	AddSource  bool   // add source file and line number (default: true in debug mode)
}

// Logger wraps slog.Logger with a run-scoped log file.
type Logger struct {
	slog      *slog.Logger
	config    Config
	file      *os.File
	mu        sync.Mutex
	debugMode bool
}

var (
	globalLogger *Logger
	once         sync.Once
)

// Initialize creates and configures the global logger. Must be called
// before any of the package-level logging functions.
func Initialize(config Config) error {
	var initErr error
	once.Do(func() {
		logger, err := NewLogger(config)
		if err != nil {
			initErr = fmt.Errorf("failed to initialize logger: %w", err)
			return
		}
		globalLogger = logger
	})
	return initErr
}

// NewLogger creates a logger instance for one CLI run. If config.Dir is
// set, pruneOldRuns removes old run logs down to MaxRuns before the new
// file is opened, then the run's output is written to both stdout and its
// own file named after RunID (or the current time if RunID is empty).
func NewLogger(config Config) (*Logger, error) {
	if config.MaxRuns == 0 {
		config.MaxRuns = 10
	}

	logger := &Logger{
		config:    config,
		debugMode: config.Level == DEBUG,
	}

	writers := []io.Writer{os.Stdout}

	if config.Dir != "" {
		if err := os.MkdirAll(config.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", config.Dir, err)
		}
		if err := pruneOldRuns(config.Dir, config.MaxRuns-1); err != nil {
			return nil, fmt.Errorf("failed to prune old run logs: %w", err)
		}

		runID := config.RunID
		if runID == "" {
			runID = time.Now().Format("2006-01-02_15-04-05")
		}
		runPath := filepath.Join(config.Dir, fmt.Sprintf("lidx_%s.log", runID))

		file, err := os.OpenFile(runPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", runPath, err)
		}
		logger.file = file
		writers = append(writers, file)
	}

	multiWriter := io.MultiWriter(writers...)

	opts := &slog.HandlerOptions{
		Level:     logger.toSlogLevel(config.Level),
		AddSource: config.AddSource,
	}

	var handler slog.Handler
	if config.JSONFormat {
		handler = slog.NewJSONHandler(multiWriter, opts)
	} else {
		handler = slog.NewTextHandler(multiWriter, opts)
	}

	logger.slog = slog.New(handler)
	return logger, nil
}

// pruneOldRuns keeps at most keep of the newest "lidx_*.log" files in dir,
// deleting the rest. A CLI invocation writes one file per run rather than
// rotating a single growing file, so retention is by run count, not size.
func pruneOldRuns(dir string, keep int) error {
	if keep < 0 {
		keep = 0
	}

	matches, err := filepath.Glob(filepath.Join(dir, "lidx_*.log"))
	if err != nil {
		return err
	}
	if len(matches) <= keep {
		return nil
	}

	type runFile struct {
		path    string
		modTime time.Time
	}
	runs := make([]runFile, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		runs = append(runs, runFile{path: m, modTime: info.ModTime()})
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].modTime.After(runs[j].modTime) })

	for _, r := range runs[minInt(keep, len(runs)):] {
		os.Remove(r.path)
	}
	return nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// toSlogLevel converts LogLevel to slog.Level.
func (l *Logger) toSlogLevel(level LogLevel) slog.Level {
	switch level {
	case DEBUG:
		return slog.LevelDebug
	case INFO:
		return slog.LevelInfo
	case WARN:
		return slog.LevelWarn
	case ERROR, FATAL:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...any) {
	l.slog.Debug(msg, args...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, args ...any) {
	l.slog.Info(msg, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, args ...any) {
	l.slog.Warn(msg, args...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, args ...any) {
	l.slog.Error(msg, args...)
}

// Fatal logs an error message, closes the run's log file, and exits.
func (l *Logger) Fatal(msg string, args ...any) {
	l.slog.Error(msg, args...)
	l.Close()
	os.Exit(1)
}

// With returns a new logger with additional context.
func (l *Logger) With(args ...any) *Logger {
	newLogger := *l
	newLogger.slog = l.slog.With(args...)
	return &newLogger
}

// Close closes the run's log file, if one is open.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// Global logging functions, mirroring slog's own package-level helpers,
// against whichever logger Initialize last installed.

func Debug(msg string, args ...any) {
	if globalLogger != nil {
		globalLogger.Debug(msg, args...)
	} else {
		slog.Debug(msg, args...)
	}
}

func Info(msg string, args ...any) {
	if globalLogger != nil {
		globalLogger.Info(msg, args...)
	} else {
		slog.Info(msg, args...)
	}
}

func Warn(msg string, args ...any) {
	if globalLogger != nil {
		globalLogger.Warn(msg, args...)
	} else {
		slog.Warn(msg, args...)
	}
}

func Error(msg string, args ...any) {
	if globalLogger != nil {
		globalLogger.Error(msg, args...)
	} else {
		slog.Error(msg, args...)
	}
}

func Fatal(msg string, args ...any) {
	if globalLogger != nil {
		globalLogger.Fatal(msg, args...)
	} else {
		slog.Error(msg, args...)
		os.Exit(1)
	}
}

func With(args ...any) *Logger {
	if globalLogger != nil {
		return globalLogger.With(args...)
	}
	return nil
}

// Close closes the global logger's run log file.
func Close() error {
	if globalLogger != nil {
		return globalLogger.Close()
	}
	return nil
}

// DefaultConfig returns the configuration the CLI bootstraps with: one run
// log file under ./logs, JSON in normal operation, human-readable text plus
// source locations under --verbose.
func DefaultConfig(debugMode bool) Config {
	level := INFO
	if debugMode {
		level = DEBUG
	}

	return Config{
		Level:      level,
		Dir:        "logs",
		MaxRuns:    10,
		JSONFormat: !debugMode,
		AddSource:  debugMode,
	}
}
