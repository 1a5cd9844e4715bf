// Package logging provides config-driven categorized file-based logging for askbot.
// Logs are written to <state_dir>/logs/ with separate files per category.
// Logging is controlled by debug_mode in the config - when false, no logs are written.
package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot      Category = "boot"      // Startup/initialization
	CategoryPipeline  Category = "pipeline"  // Per-turn query pipeline
	CategoryCatalog   Category = "catalog"   // Scenario catalog load/reload
	CategoryScorer    Category = "scorer"    // Scenario scoring tiers
	CategoryMatcher   Category = "matcher"   // Semantic matching
	CategoryEmbedding Category = "embedding" // Embedding engine
	CategoryPlanner   Category = "planner"   // Plan selection
	CategoryExecutor  Category = "executor"  // Plan execution
	CategoryTemplate  Category = "template"  // Template resolution/rendering
	CategoryValidator Category = "validator" // Response validation/repair
	CategoryConvo     Category = "convo"     // Conversation context store
	CategoryLLM       Category = "llm"       // Generative collaborator calls
	CategoryTransport Category = "transport" // Messaging transport
	CategoryKnowledge Category = "knowledge" // General docs corpus
	CategoryFeedback  Category = "feedback"  // Feedback write-through
)

// Log levels
const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

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
	debugMode bool
	logLevel  = LevelInfo
	configMu  sync.RWMutex
)

// Initialize sets up the logging directory. Should be called once at startup
// with the bot's state directory. When debug is false this is a silent no-op
// and every logger returned afterwards discards its output.
func Initialize(stateDir string, debug bool, level string) error {
	if stateDir == "" {
		return fmt.Errorf("state dir required")
	}

	configMu.Lock()
	debugMode = debug
	switch level {
	case "debug":
		logLevel = LevelDebug
	case "info", "":
		logLevel = LevelInfo
	case "warn", "warning":
		logLevel = LevelWarn
	case "error":
		logLevel = LevelError
	default:
		logLevel = LevelInfo
	}
	configMu.Unlock()

	if !debug {
		return nil
	}

	logsDir = filepath.Join(stateDir, "logs")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	boot := Get(CategoryBoot)
	boot.Info("=== askbot logging initialized ===")
	boot.Info("Logs directory: %s", logsDir)
	boot.Info("Log level: %s", level)

	return nil
}

// IsDebugMode returns whether debug logging is enabled
func IsDebugMode() bool {
	configMu.RLock()
	defer configMu.RUnlock()
	return debugMode
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if debug mode is disabled.
func Get(category Category) *Logger {
	if !IsDebugMode() || logsDir == "" {
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

	// Date prefix for easy rotation
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

// Debug logs a debug message (only if level <= debug)
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelDebug {
		return
	}
	l.logger.Printf("[DEBUG] %s", fmt.Sprintf(format, args...))
}

// Info logs an informational message (only if level <= info)
func (l *Logger) Info(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelInfo {
		return
	}
	l.logger.Printf("[INFO] %s", fmt.Sprintf(format, args...))
}

// Warn logs a warning message (only if level <= warn)
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelWarn {
		return
	}
	l.logger.Printf("[WARN] %s", fmt.Sprintf(format, args...))
}

// Error logs an error message (always logged if logger exists)
func (l *Logger) Error(format string, args ...interface{}) {
	if l.logger == nil {
		return
	}
	l.logger.Printf("[ERROR] %s", fmt.Sprintf(format, args...))
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
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Info(format, args...)
}

// Pipeline logs to the pipeline category
func Pipeline(format string, args ...interface{}) {
	Get(CategoryPipeline).Info(format, args...)
}

// PipelineDebug logs debug to the pipeline category
func PipelineDebug(format string, args ...interface{}) {
	Get(CategoryPipeline).Debug(format, args...)
}

// Catalog logs to the catalog category
func Catalog(format string, args ...interface{}) {
	Get(CategoryCatalog).Info(format, args...)
}

// Scorer logs to the scorer category
func Scorer(format string, args ...interface{}) {
	Get(CategoryScorer).Info(format, args...)
}

// ScorerDebug logs debug to the scorer category
func ScorerDebug(format string, args ...interface{}) {
	Get(CategoryScorer).Debug(format, args...)
}

// Matcher logs to the matcher category
func Matcher(format string, args ...interface{}) {
	Get(CategoryMatcher).Info(format, args...)
}

// Embedding logs to the embedding category
func Embedding(format string, args ...interface{}) {
	Get(CategoryEmbedding).Info(format, args...)
}

// EmbeddingDebug logs debug to the embedding category
func EmbeddingDebug(format string, args ...interface{}) {
	Get(CategoryEmbedding).Debug(format, args...)
}

// Planner logs to the planner category
func Planner(format string, args ...interface{}) {
	Get(CategoryPlanner).Info(format, args...)
}

// Executor logs to the executor category
func Executor(format string, args ...interface{}) {
	Get(CategoryExecutor).Info(format, args...)
}

// Template logs to the template category
func Template(format string, args ...interface{}) {
	Get(CategoryTemplate).Info(format, args...)
}

// Validator logs to the validator category
func Validator(format string, args ...interface{}) {
	Get(CategoryValidator).Info(format, args...)
}

// Convo logs to the convo category
func Convo(format string, args ...interface{}) {
	Get(CategoryConvo).Info(format, args...)
}

// ConvoDebug logs debug to the convo category
func ConvoDebug(format string, args ...interface{}) {
	Get(CategoryConvo).Debug(format, args...)
}

// LLM logs to the llm category
func LLM(format string, args ...interface{}) {
	Get(CategoryLLM).Info(format, args...)
}

// Transport logs to the transport category
func Transport(format string, args ...interface{}) {
	Get(CategoryTransport).Info(format, args...)
}

// Knowledge logs to the knowledge category
func Knowledge(format string, args ...interface{}) {
	Get(CategoryKnowledge).Info(format, args...)
}

// Feedback logs to the feedback category
func Feedback(format string, args ...interface{}) {
	Get(CategoryFeedback).Info(format, args...)
}

// =============================================================================
// TIMING HELPERS - For performance logging
// =============================================================================

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{
		category: category,
		op:       operation,
		start:    time.Now(),
	}
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
