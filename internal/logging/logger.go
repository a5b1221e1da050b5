package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// LogFormat represents the log output format.
type LogFormat string

const (
	// FormatText is human-readable console output.
	FormatText LogFormat = "text"
	// FormatJSON is one JSON object per line.
	FormatJSON LogFormat = "json"
)

// Config represents logging configuration.
type Config struct {
	Level   string
	Format  LogFormat
	Service string
	Version string
	Prefix  string
	// Output defaults to stderr.
	Output io.Writer
}

// Logger is a leveled logger backed by zerolog. Derived loggers share the
// underlying writer but carry their own fields.
type Logger struct {
	zl     zerolog.Logger
	prefix string
	level  Level
	mu     sync.RWMutex
	fields map[string]interface{}
}

// NewLogger creates a text logger on stderr.
func NewLogger(prefix string, level string) *Logger {
	return NewLoggerWithWriter(os.Stderr, &Config{
		Level:  level,
		Format: FormatText,
		Prefix: prefix,
	})
}

// NewLoggerWithWriter creates a logger writing to w.
func NewLoggerWithWriter(w io.Writer, cfg *Config) *Logger {
	out := w
	if cfg.Format == FormatText {
		out = zerolog.ConsoleWriter{Out: w, NoColor: true, TimeFormat: time.RFC3339Nano}
	}

	ctx := zerolog.New(out).With().Timestamp()
	if cfg.Service != "" {
		ctx = ctx.Str("service", cfg.Service)
	}
	if cfg.Version != "" {
		ctx = ctx.Str("version", cfg.Version)
	}

	prefix := ""
	if cfg.Format == FormatText {
		prefix = cfg.Prefix
	}

	return &Logger{
		zl:     ctx.Logger(),
		prefix: prefix,
		level:  parseLevel(cfg.Level),
		fields: make(map[string]interface{}),
	}
}

// NewLoggerFromConfig creates a logger based on configuration. JSON is the
// default format.
func NewLoggerFromConfig(cfg *Config) ContextLogger {
	format := LogFormat(strings.ToLower(string(cfg.Format)))
	if format == "" {
		if envFormat := os.Getenv("REVERSI_LOG_FORMAT"); envFormat != "" {
			format = LogFormat(strings.ToLower(envFormat))
		} else {
			format = FormatJSON
		}
	}
	if format != FormatText {
		format = FormatJSON
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	c := *cfg
	c.Format = format
	return NewLoggerWithWriter(out, &c)
}

func parseLevel(level string) Level {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

func (lv Level) toZerolog() zerolog.Level {
	switch lv {
	case DebugLevel:
		return zerolog.DebugLevel
	case WarnLevel:
		return zerolog.WarnLevel
	case ErrorLevel:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *Logger) GetLevel() Level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

func (l *Logger) shouldLog(level Level) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return level >= l.level
}

// derive copies l with extra fields.
func (l *Logger) derive(fields map[string]interface{}) *Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := &Logger{
		zl:     l.zl,
		prefix: l.prefix,
		level:  l.level,
		fields: make(map[string]interface{}, len(l.fields)+len(fields)),
	}
	for k, v := range l.fields {
		n.fields[k] = v
	}
	for k, v := range fields {
		n.fields[k] = v
	}
	return n
}

// WithContext returns a logger carrying the correlation and request IDs
// found in ctx.
func (l *Logger) WithContext(ctx context.Context) ContextLogger {
	fields := make(map[string]interface{}, 2)
	if id, ok := CorrelationIDFromContext(ctx); ok {
		fields["correlation_id"] = id
	}
	if id, ok := RequestIDFromContext(ctx); ok {
		fields["request_id"] = id
	}
	return l.derive(fields)
}

// WithFields returns a logger with additional fields.
func (l *Logger) WithFields(fields map[string]interface{}) ContextLogger {
	return l.derive(fields)
}

// WithField returns a logger with an additional field.
func (l *Logger) WithField(key string, value interface{}) ContextLogger {
	return l.derive(map[string]interface{}{key: value})
}

// splitArgs separates printf operands from trailing key/value pairs. Args
// beyond the number of format verbs are read as key/value pairs; a dangling
// value is stored under "extra".
func splitArgs(message string, args []interface{}) (string, map[string]interface{}) {
	if len(args) == 0 {
		return message, nil
	}

	verbs := 0
	for i := 0; i < len(message)-1; i++ {
		if message[i] != '%' {
			continue
		}
		if message[i+1] == '%' {
			i++
			continue
		}
		verbs++
	}

	if verbs > 0 && len(args) >= verbs {
		message = fmt.Sprintf(message, args[:verbs]...)
		args = args[verbs:]
	}
	if len(args) == 0 {
		return message, nil
	}

	kv := make(map[string]interface{}, len(args)/2+1)
	for i := 0; i < len(args)-1; i += 2 {
		if key, ok := args[i].(string); ok {
			kv[key] = args[i+1]
		}
	}
	if len(args)%2 == 1 {
		kv["extra"] = args[len(args)-1]
	}
	return message, kv
}

func (l *Logger) log(level Level, message string, args ...interface{}) {
	if !l.shouldLog(level) {
		return
	}
	l.emit(l.zl.WithLevel(level.toZerolog()), message, args)
}

func (l *Logger) emit(ev *zerolog.Event, message string, args []interface{}) {
	msg, kv := splitArgs(message, args)

	l.mu.RLock()
	if len(l.fields) > 0 {
		ev = ev.Fields(l.fields)
	}
	l.mu.RUnlock()
	if len(kv) > 0 {
		ev = ev.Fields(kv)
	}
	ev.Msg(l.prefix + msg)
}

func (l *Logger) Debug(message string, args ...interface{}) {
	l.log(DebugLevel, message, args...)
}

func (l *Logger) Info(message string, args ...interface{}) {
	l.log(InfoLevel, message, args...)
}

func (l *Logger) Warn(message string, args ...interface{}) {
	l.log(WarnLevel, message, args...)
}

func (l *Logger) Error(message string, args ...interface{}) {
	l.log(ErrorLevel, message, args...)
}

// Fatal logs at fatal level and exits the process.
func (l *Logger) Fatal(message string, args ...interface{}) {
	l.emit(l.zl.WithLevel(zerolog.FatalLevel), message, args)
	os.Exit(1)
}
