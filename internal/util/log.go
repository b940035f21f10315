package util

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

type LogLevel int32

const (
	LevelTrace LogLevel = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[string]LogLevel{
	"trace": LevelTrace,
	"debug": LevelDebug,
	"info":  LevelInfo,
	"warn":  LevelWarn,
	"error": LevelError,
}

var logrusLevels = map[LogLevel]logrus.Level{
	LevelTrace: logrus.TraceLevel,
	LevelDebug: logrus.DebugLevel,
	LevelInfo:  logrus.InfoLevel,
	LevelWarn:  logrus.WarnLevel,
	LevelError: logrus.ErrorLevel,
}

// Logger wraps a logrus logger with the small leveled API used across the daemon.
type Logger struct {
	base *logrus.Logger
}

// NewLogger creates a level-aware logger writing to stderr.
func NewLogger(level LogLevel) *Logger {
	return NewLoggerWithWriter(level, os.Stderr)
}

// NewLoggerWithWriter creates a level-aware logger writing to the provided destination.
func NewLoggerWithWriter(level LogLevel, w io.Writer) *Logger {
	base := logrus.New()
	base.SetOutput(w)
	base.SetFormatter(&lineFormatter{color: isTerminal(w)})
	l := &Logger{base: base}
	l.SetLevel(level)
	return l
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (l *Logger) SetLevel(level LogLevel) {
	lvl, ok := logrusLevels[level]
	if !ok {
		lvl = logrus.InfoLevel
	}
	l.base.SetLevel(lvl)
}

func (l *Logger) Level() LogLevel {
	current := l.base.GetLevel()
	for level, lvl := range logrusLevels {
		if lvl == current {
			return level
		}
	}
	return LevelInfo
}

// WithFields returns an entry carrying structured fields for a single log call.
func (l *Logger) WithFields(fields map[string]any) *logrus.Entry {
	return l.base.WithFields(logrus.Fields(fields))
}

func (l *Logger) Tracef(format string, args ...interface{}) {
	l.base.Tracef(format, args...)
}
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.base.Debugf(format, args...)
}
func (l *Logger) Infof(format string, args ...interface{}) {
	l.base.Infof(format, args...)
}
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.base.Warnf(format, args...)
}
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.base.Errorf(format, args...)
}

// ParseLogLevel converts a string into a LogLevel, defaulting to info.
func ParseLogLevel(s string) LogLevel {
	if lvl, ok := levelNames[strings.ToLower(s)]; ok {
		return lvl
	}
	return LevelInfo
}

type lineFormatter struct {
	color bool
}

var levelColors = map[logrus.Level]string{
	logrus.TraceLevel: "\033[90m",
	logrus.DebugLevel: "\033[36m",
	logrus.WarnLevel:  "\033[33m",
	logrus.ErrorLevel: "\033[31m",
}

// Format renders "2006/01/02 15:04:05 [LEVEL] message key=value".
func (f *lineFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b strings.Builder
	b.WriteString(entry.Time.Format("2006/01/02 15:04:05"))
	b.WriteByte(' ')

	level := entry.Level.String()
	if level == "warning" {
		level = "warn"
	}
	tag := "[" + strings.ToUpper(level) + "]"
	if code, ok := levelColors[entry.Level]; ok && f.color {
		tag = code + tag + "\033[0m"
	}
	b.WriteString(tag)
	b.WriteByte(' ')
	b.WriteString(entry.Message)

	if len(entry.Data) > 0 {
		keys := make([]string, 0, len(entry.Data))
		for key := range entry.Data {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Fprintf(&b, " %s=%v", key, entry.Data[key])
		}
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}
