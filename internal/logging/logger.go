//
//  Copyright © the Cedrus authors. All rights reserved.
//

// Package logging provides module-scoped structured loggers built on zap.
//
// Each package obtains its own logger with [GetLogger]; per-module levels
// are managed centrally and may be reconfigured at runtime from the
// "log.level" configuration key via [UpdateLogLevels].
package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a module-scoped wrapper around zap.Logger.
type Logger struct {
	module string
	sugar  *zap.SugaredLogger
	level  zapcore.Level
	writer io.Writer
}

const moduleKey = "module"

func newEncoder() zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder

	// LOG_FORMATTER=text selects human-readable console output
	if os.Getenv("LOG_FORMATTER") == "text" {
		return zapcore.NewConsoleEncoder(encoderConfig)
	}
	return zapcore.NewJSONEncoder(encoderConfig)
}

// internal function to create a logger without tracking. Callers should use
// GetLogger() to retrieve a configured logger.
func newLogger(module string) *Logger {
	l := &Logger{module: module, level: zapcore.InfoLevel}
	l.rebuild()
	return l
}

func (l *Logger) rebuild() {
	var output io.Writer = os.Stdout
	if l.writer != nil {
		output = l.writer
	}

	core := zapcore.NewCore(newEncoder(), zapcore.AddSync(output), l.level)

	options := []zap.Option{
		zap.AddCallerSkip(1), // skip this wrapper
	}
	if os.Getenv("LOG_REPORT_CALLER") != "" {
		options = append(options, zap.AddCaller())
	}

	l.sugar = zap.New(core, options...).Sugar().With(zap.String(moduleKey, l.module))
}

// SetLevel sets the logging level for this module.
func (l *Logger) SetLevel(level zapcore.Level) {
	l.level = level
	l.rebuild()
}

// SetOut redirects output to the given writer (for tests).
func (l *Logger) SetOut(w io.Writer) {
	l.writer = w
	l.rebuild()
}

// Out returns the current output writer.
func (l *Logger) Out() io.Writer {
	if l.writer != nil {
		return l.writer
	}
	return os.Stdout
}

// IsDebugEnabled returns true if the current logging level is debug or lower.
// Use as a guard where generating debug output is itself expensive.
//
//	if logger.IsDebugEnabled() {
//	    logger.Debugf("expanded policy set: %+v", expensiveDump(ps))
//	}
func (l *Logger) IsDebugEnabled() bool {
	return l.level <= zapcore.DebugLevel
}

// Debug logs a debug message.
func (l *Logger) Debug(args ...interface{}) { l.sugar.Debug(args...) }

// Debugf logs a formatted debug message.
func (l *Logger) Debugf(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }

// Info logs an info message.
func (l *Logger) Info(args ...interface{}) { l.sugar.Info(args...) }

// Infof logs a formatted info message.
func (l *Logger) Infof(format string, args ...interface{}) { l.sugar.Infof(format, args...) }

// Warn logs a warning message.
func (l *Logger) Warn(args ...interface{}) { l.sugar.Warn(args...) }

// Warnf logs a formatted warning message.
func (l *Logger) Warnf(format string, args ...interface{}) { l.sugar.Warnf(format, args...) }

// Error logs an error message.
func (l *Logger) Error(args ...interface{}) { l.sugar.Error(args...) }

// Errorf logs a formatted error message.
func (l *Logger) Errorf(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }

// Fatal logs a fatal message and exits.
func (l *Logger) Fatal(args ...interface{}) { l.sugar.Fatal(args...) }

// Fatalf logs a formatted fatal message and exits.
func (l *Logger) Fatalf(format string, args ...interface{}) { l.sugar.Fatalf(format, args...) }
