package observability

import (
	"fmt"
	"log"
	"sort"
	"strings"
)

// StdLogger adapts the standard library logger to the Logger interface.
type StdLogger struct {
	MinLevel Level
}

// Level orders log severities for the standard logger adapter.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// NewStdLogger returns a Logger writing formatted lines via the log package.
func NewStdLogger(min Level) *StdLogger {
	return &StdLogger{MinLevel: min}
}

func (l *StdLogger) Debug(msg string, fields ...Field) { l.emit(LevelDebug, "DEBUG", msg, fields) }
func (l *StdLogger) Info(msg string, fields ...Field)  { l.emit(LevelInfo, "INFO", msg, fields) }
func (l *StdLogger) Warn(msg string, fields ...Field)  { l.emit(LevelWarn, "WARN", msg, fields) }
func (l *StdLogger) Error(msg string, fields ...Field) { l.emit(LevelError, "ERROR", msg, fields) }

func (l *StdLogger) emit(level Level, tag, msg string, fields []Field) {
	if level < l.MinLevel {
		return
	}
	if len(fields) == 0 {
		log.Printf("%s %s", tag, msg)
		return
	}
	pairs := make([]string, 0, len(fields))
	for _, f := range fields {
		if strings.TrimSpace(f.Key) == "" {
			continue
		}
		pairs = append(pairs, fmt.Sprintf("%s=%v", f.Key, f.Value))
	}
	sort.Strings(pairs)
	log.Printf("%s %s %s", tag, msg, strings.Join(pairs, " "))
}
