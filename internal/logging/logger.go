package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"metrade/internal/config"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps logrus logger with additional functionality
type Logger struct {
	*logrus.Logger
	component string
}

// Log levels
const (
	DebugLevel = logrus.DebugLevel
	InfoLevel  = logrus.InfoLevel
	WarnLevel  = logrus.WarnLevel
	ErrorLevel = logrus.ErrorLevel
	FatalLevel = logrus.FatalLevel
)

// Global logger instance
var globalLogger *Logger

// NewLogger creates a new logger with the given configuration
func NewLogger(cfg config.LoggingConfig) *Logger {
	logger := logrus.New()

	// Set log level
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	// Set formatter
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	}

	// Set output
	var output io.Writer
	switch cfg.Output {
	case "stdout":
		output = os.Stdout
	case "file":
		output = createFileWriter(cfg)
	case "both":
		output = io.MultiWriter(os.Stdout, createFileWriter(cfg))
	default:
		output = os.Stdout
	}

	logger.SetOutput(output)

	return &Logger{
		Logger: logger,
	}
}

// createFileWriter creates a rotating file writer
func createFileWriter(cfg config.LoggingConfig) io.Writer {
	// Ensure log directory exists
	if err := os.MkdirAll(cfg.Directory, 0755); err != nil {
		fmt.Printf("Warning: Failed to create log directory: %v\n", err)
		return os.Stdout
	}

	logFile := filepath.Join(cfg.Directory, "metrade.log")

	return &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    cfg.MaxSize, // MB
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge, // days
		Compress:   cfg.Compress,
	}
}

// InitGlobalLogger initializes the global logger
func InitGlobalLogger(cfg config.LoggingConfig) {
	globalLogger = NewLogger(cfg)
}

// GetGlobalLogger returns the global logger instance
func GetGlobalLogger() *Logger {
	if globalLogger == nil {
		// Create default logger if not initialized
		globalLogger = NewLogger(config.LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		})
	}
	return globalLogger
}

// NewComponentLogger creates a logger for a specific component
func NewComponentLogger(component string) *Logger {
	baseLogger := GetGlobalLogger()
	return &Logger{
		Logger:    baseLogger.Logger,
		component: component,
	}
}

// Logging methods with component awareness

// Debug logs a debug message
func (l *Logger) Debug(args ...interface{}) {
	if l.component != "" {
		l.Logger.WithField("component", l.component).Debug(args...)
	} else {
		l.Logger.Debug(args...)
	}
}

// Debugf logs a formatted debug message
func (l *Logger) Debugf(format string, args ...interface{}) {
	if l.component != "" {
		l.Logger.WithField("component", l.component).Debugf(format, args...)
	} else {
		l.Logger.Debugf(format, args...)
	}
}

// Info logs an info message
func (l *Logger) Info(args ...interface{}) {
	if l.component != "" {
		l.Logger.WithField("component", l.component).Info(args...)
	} else {
		l.Logger.Info(args...)
	}
}

// Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	if l.component != "" {
		l.Logger.WithField("component", l.component).Infof(format, args...)
	} else {
		l.Logger.Infof(format, args...)
	}
}

// Warn logs a warning message
func (l *Logger) Warn(args ...interface{}) {
	if l.component != "" {
		l.Logger.WithField("component", l.component).Warn(args...)
	} else {
		l.Logger.Warn(args...)
	}
}

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, args ...interface{}) {
	if l.component != "" {
		l.Logger.WithField("component", l.component).Warnf(format, args...)
	} else {
		l.Logger.Warnf(format, args...)
	}
}

// Error logs an error message
func (l *Logger) Error(args ...interface{}) {
	if l.component != "" {
		l.Logger.WithField("component", l.component).Error(args...)
	} else {
		l.Logger.Error(args...)
	}
}

// Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	if l.component != "" {
		l.Logger.WithField("component", l.component).Errorf(format, args...)
	} else {
		l.Logger.Errorf(format, args...)
	}
}

// Fatal logs a fatal message and exits
func (l *Logger) Fatal(args ...interface{}) {
	if l.component != "" {
		l.Logger.WithField("component", l.component).Fatal(args...)
	} else {
		l.Logger.Fatal(args...)
	}
}

// Fatalf logs a formatted fatal message and exits
func (l *Logger) Fatalf(format string, args ...interface{}) {
	if l.component != "" {
		l.Logger.WithField("component", l.component).Fatalf(format, args...)
	} else {
		l.Logger.Fatalf(format, args...)
	}
}

// WithFields adds multiple fields to the logger. The returned entry carries
// the component field, so leveled calls on it go straight to logrus.
func (l *Logger) WithFields(fields map[string]interface{}) *logrus.Entry {
	entry := l.Logger.WithFields(fields)
	if l.component != "" {
		entry = entry.WithField("component", l.component)
	}
	return entry
}

// WithField adds a single field to the logger
func (l *Logger) WithField(key string, value interface{}) *logrus.Entry {
	entry := l.Logger.WithField(key, value)
	if l.component != "" {
		entry = entry.WithField("component", l.component)
	}
	return entry
}

// WithError adds an error field to the logger
func (l *Logger) WithError(err error) *logrus.Entry {
	entry := l.Logger.WithError(err)
	if l.component != "" {
		entry = entry.WithField("component", l.component)
	}
	return entry
}

// Backtest-specific logging methods

// LogTrade logs a simulated fill
func (l *Logger) LogTrade(symbol string, side string, quantity float64, price float64, commission float64) {
	l.WithFields(logrus.Fields{
		"event":      "trade",
		"symbol":     symbol,
		"side":       side,
		"quantity":   quantity,
		"price":      price,
		"commission": commission,
		"value":      quantity * price,
	}).Info("Trade executed")
}

// LogPerformance logs a completed run's headline metrics
func (l *Logger) LogPerformance(symbol string, totalReturn float64, maxDrawdown float64, tradeCount int, sharpeRatio float64) {
	l.WithFields(logrus.Fields{
		"event":        "performance",
		"symbol":       symbol,
		"total_return": totalReturn,
		"max_drawdown": maxDrawdown,
		"trade_count":  tradeCount,
		"sharpe_ratio": sharpeRatio,
	}).Info("Backtest performance")
}

// LogError logs an error with context
func (l *Logger) LogError(operation string, err error, context map[string]interface{}) {
	fields := logrus.Fields{
		"event":     "error",
		"operation": operation,
		"error":     err.Error(),
	}

	// Add context fields
	for k, v := range context {
		fields[k] = v
	}

	l.WithFields(fields).Error("Operation failed")
}

// Global convenience functions

// Debug logs a debug message using the global logger
func Debug(args ...interface{}) {
	GetGlobalLogger().Debug(args...)
}

// Debugf logs a formatted debug message using the global logger
func Debugf(format string, args ...interface{}) {
	GetGlobalLogger().Debugf(format, args...)
}

// Info logs an info message using the global logger
func Info(args ...interface{}) {
	GetGlobalLogger().Info(args...)
}

// Infof logs a formatted info message using the global logger
func Infof(format string, args ...interface{}) {
	GetGlobalLogger().Infof(format, args...)
}

// Warn logs a warning message using the global logger
func Warn(args ...interface{}) {
	GetGlobalLogger().Warn(args...)
}

// Warnf logs a formatted warning message using the global logger
func Warnf(format string, args ...interface{}) {
	GetGlobalLogger().Warnf(format, args...)
}

// Error logs an error message using the global logger
func Error(args ...interface{}) {
	GetGlobalLogger().Error(args...)
}

// Errorf logs a formatted error message using the global logger
func Errorf(format string, args ...interface{}) {
	GetGlobalLogger().Errorf(format, args...)
}

// Fatal logs a fatal message using the global logger
func Fatal(args ...interface{}) {
	GetGlobalLogger().Fatal(args...)
}

// Fatalf logs a formatted fatal message using the global logger
func Fatalf(format string, args ...interface{}) {
	GetGlobalLogger().Fatalf(format, args...)
}
