// Package logging writes logfmt lines: ts, level and msg first, then the
// logger's bound fields, then the call's fields.
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Level int8

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "debug"
	case Warn:
		return "warn"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// ParseLevel maps a config value to a Level. Unknown values mean Info.
func ParseLevel(raw string) Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return Debug
	case "warn", "warning":
		return Warn
	case "error":
		return Error
	default:
		return Info
	}
}

type Field struct {
	Key   string
	Value any
}

func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
}

type Option func(*logger)

// WithClock replaces time.Now for the ts field.
func WithClock(now func() time.Time) Option {
	return func(l *logger) {
		if now != nil {
			l.now = now
		}
	}
}

// sink serializes whole lines from every logger derived from one New call.
type sink struct {
	mu  sync.Mutex
	out io.Writer
}

func (s *sink) write(line []byte) {
	s.mu.Lock()
	_, _ = s.out.Write(line)
	s.mu.Unlock()
}

type logger struct {
	sink  *sink
	level Level
	bound []byte
	now   func() time.Time
}

func New(out io.Writer, level Level, opts ...Option) Logger {
	if out == nil {
		out = os.Stderr
	}
	l := &logger{sink: &sink{out: out}, level: level, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *logger) With(fields ...Field) Logger {
	bound := make([]byte, len(l.bound), len(l.bound)+32*len(fields))
	copy(bound, l.bound)
	for _, field := range fields {
		bound = appendField(bound, field.Key, field.Value)
	}
	return &logger{sink: l.sink, level: l.level, bound: bound, now: l.now}
}

func (l *logger) Debug(msg string, fields ...Field) { l.log(Debug, msg, fields) }
func (l *logger) Info(msg string, fields ...Field)  { l.log(Info, msg, fields) }
func (l *logger) Warn(msg string, fields ...Field)  { l.log(Warn, msg, fields) }
func (l *logger) Error(msg string, fields ...Field) { l.log(Error, msg, fields) }

func (l *logger) log(level Level, msg string, fields []Field) {
	if level < l.level {
		return
	}
	line := make([]byte, 0, 128+len(l.bound))
	line = append(line, "ts="...)
	line = l.now().UTC().AppendFormat(line, time.RFC3339Nano)
	line = appendField(line, "level", level.String())
	line = appendField(line, "msg", msg)
	line = append(line, l.bound...)
	for _, field := range fields {
		line = appendField(line, field.Key, field.Value)
	}
	line = append(line, '\n')
	l.sink.write(line)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...Field) {}
func (nopLogger) Info(string, ...Field)  {}
func (nopLogger) Warn(string, ...Field)  {}
func (nopLogger) Error(string, ...Field) {}
func (n nopLogger) With(...Field) Logger { return n }

func Nop() Logger {
	return nopLogger{}
}

func appendField(dst []byte, key string, value any) []byte {
	dst = append(dst, ' ')
	dst = append(dst, key...)
	dst = append(dst, '=')
	return appendValue(dst, value)
}

func appendValue(dst []byte, value any) []byte {
	switch v := value.(type) {
	case nil:
		return append(dst, "null"...)
	case string:
		return appendText(dst, v)
	case []byte:
		return appendText(dst, string(v))
	case error:
		return appendText(dst, v.Error())
	case bool:
		return strconv.AppendBool(dst, v)
	case int:
		return strconv.AppendInt(dst, int64(v), 10)
	case int64:
		return strconv.AppendInt(dst, v, 10)
	case int32:
		return strconv.AppendInt(dst, int64(v), 10)
	case uint64:
		return strconv.AppendUint(dst, v, 10)
	case float64:
		return strconv.AppendFloat(dst, v, 'g', -1, 64)
	case time.Duration:
		return append(dst, v.String()...)
	case time.Time:
		return v.UTC().AppendFormat(dst, time.RFC3339Nano)
	case fmt.Stringer:
		return appendText(dst, v.String())
	default:
		return appendText(dst, fmt.Sprintf("%v", v))
	}
}

func appendText(dst []byte, value string) []byte {
	if value == "" {
		return append(dst, `""`...)
	}
	if strings.ContainsAny(value, " \t\n\r\"=") {
		return strconv.AppendQuote(dst, value)
	}
	return append(dst, value...)
}

// NewRequestID returns a short id for correlating one HTTP call in logs.
func NewRequestID() string {
	id := uuid.New()
	return strings.ReplaceAll(id.String(), "-", "")[:16]
}

// OpenFile returns a logger appending to path, creating parent directories.
// The returned closer releases the file.
func OpenFile(path string, level Level) (Logger, io.Closer, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil, errors.New("log path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, err
	}
	return New(file, level), file, nil
}
