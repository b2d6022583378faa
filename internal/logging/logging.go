// Package logging wires partikv's internal packages into a single leveled
// logger facade, reusing dragonboat's logger.ILogger interface so the
// bundled CLI can redirect every package's output with one factory call.
package logging

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/lni/dragonboat/v4/logger"
)

// partikvLogger implements logger.ILogger with a compact, grep-friendly
// format: LEVEL | package | message.
type partikvLogger struct {
	name   string
	level  logger.LogLevel
	logger *log.Logger
}

func (l *partikvLogger) SetLevel(level logger.LogLevel) {
	l.level = level
}

func (l *partikvLogger) Debugf(format string, args ...interface{}) {
	if l.level >= logger.DEBUG {
		l.log("DEBUG", format, args...)
	}
}

func (l *partikvLogger) Infof(format string, args ...interface{}) {
	if l.level >= logger.INFO {
		l.log("INFO", format, args...)
	}
}

func (l *partikvLogger) Warningf(format string, args ...interface{}) {
	if l.level >= logger.WARNING {
		l.log("WARN", format, args...)
	}
}

func (l *partikvLogger) Errorf(format string, args ...interface{}) {
	if l.level >= logger.ERROR {
		l.log("ERROR", format, args...)
	}
}

func (l *partikvLogger) Panicf(format string, args ...interface{}) {
	if l.level >= logger.CRITICAL {
		panic(fmt.Sprintf(format, args...))
	}
}

func (l *partikvLogger) log(levelStr, format string, args ...interface{}) {
	l.logger.Printf("%-5s | %-18s | %s", levelStr, l.name, fmt.Sprintf(format, args...))
}

// NewFactory creates a logger.Factory that writes to w with the given
// default level. Install it once with logger.SetLoggerFactory during
// client construction.
func NewFactory(w *os.File, defaultLevel logger.LogLevel) logger.Factory {
	std := log.New(w, "", log.Ldate|log.Ltime)
	return func(pkgName string) logger.ILogger {
		return &partikvLogger{name: pkgName, level: defaultLevel, logger: std}
	}
}

// Install wires the default factory and sets levels for every package this
// client touches. Safe to call multiple times; the last call wins, matching
// dragonboat's own SetLoggerFactory semantics.
func Install(levelName string) {
	level := ParseLevel(levelName)
	logger.SetLoggerFactory(NewFactory(os.Stderr, level))
	for _, pkg := range []string{"partikv/session", "partikv/pool", "partikv/meta", "partikv/table", "partikv/metrics", "partikv/wire", "partikv/client"} {
		logger.GetLogger(pkg).SetLevel(level)
	}
}

// ParseLevel converts a string level to logger.LogLevel, defaulting to INFO
// on an unrecognized value rather than panicking: log configuration should
// never be able to crash client construction.
func ParseLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return logger.DEBUG
	case "info", "":
		return logger.INFO
	case "warning", "warn":
		return logger.WARNING
	case "error":
		return logger.ERROR
	default:
		return logger.INFO
	}
}

// Get returns the named logger, equivalent to logger.GetLogger but kept
// local so call sites only need to import this package.
func Get(pkgName string) logger.ILogger {
	return logger.GetLogger(pkgName)
}
