// Package logger writes one JSON object per line for SnapClash services.
// Loggers travel in the context; entries logged under an OpenTelemetry span
// carry its trace and span IDs.
package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Level is the minimum severity a Logger writes.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l Level) String() string {
	if l < LevelDebug || int(l) >= len(levelNames) {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel accepts the LOG_LEVEL spellings and falls back to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// ══════════════════════════════════════════════════════════════════════════════
// FIELDS
// ══════════════════════════════════════════════════════════════════════════════

// Field is one key of the "fields" object.
type Field struct {
	Key   string
	Value any
}

func String(key, value string) Field  { return Field{Key: key, Value: value} }
func Int(key string, value int) Field { return Field{Key: key, Value: value} }
func Any(key string, value any) Field { return Field{Key: key, Value: value} }

// Duration is rendered with time.Duration.String.
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

// Time is rendered as RFC 3339.
func Time(key string, value time.Time) Field {
	return Field{Key: key, Value: value.Format(time.RFC3339)}
}

// Err stores the error text under "error"; a nil error becomes null.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error"}
	}
	return Field{Key: "error", Value: err.Error()}
}

// RequestIDKey is the field set by the HTTP request-ID middleware.
const RequestIDKey = "request_id"

// Domain fields.
func UserID(id string) Field         { return String("user_id", id) }
func ChallengeID(id string) Field    { return String("challenge_id", id) }
func Range(r string) Field           { return String("range", r) }
func Rows(n int) Field               { return Int("rows", n) }
func DailyDate(date string) Field    { return String("daily_date", date) }
func Component(name string) Field    { return String("component", name) }
func Operation(name string) Field    { return String("operation", name) }
func Latency(d time.Duration) Field  { return Duration("latency", d) }
func StatusCode(code int) Field      { return Int("status_code", code) }
func HTTPMethod(method string) Field { return String("method", method) }
func HTTPPath(path string) Field     { return String("path", path) }

// ══════════════════════════════════════════════════════════════════════════════
// LOGGER
// ══════════════════════════════════════════════════════════════════════════════

// LogEntry is the JSON shape of one line.
type LogEntry struct {
	Timestamp string         `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Caller    string         `json:"caller,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Options configures New.
type Options struct {
	Output     io.Writer // os.Stdout when nil
	Level      Level
	AddCaller  bool
	CallerSkip int

	// Service is attached to every entry as "service" when set.
	Service string
}

// Logger is safe for concurrent use. Loggers derived with With share the
// parent's writer lock.
type Logger struct {
	mu         *sync.Mutex
	out        io.Writer
	level      Level
	fields     []Field
	addCaller  bool
	callerSkip int
}

// New builds a Logger from opts.
func New(opts Options) *Logger {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	var fields []Field
	if opts.Service != "" {
		fields = []Field{String("service", opts.Service)}
	}
	return &Logger{
		mu:         &sync.Mutex{},
		out:        opts.Output,
		level:      opts.Level,
		fields:     fields,
		addCaller:  opts.AddCaller,
		callerSkip: opts.CallerSkip,
	}
}

// NewNop discards every entry.
func NewNop() *Logger {
	return New(Options{Output: io.Discard, Level: LevelError + 1})
}

// Default writes info and above to stdout with callers.
func Default() *Logger {
	return New(Options{Level: LevelInfo, AddCaller: true})
}

// With returns a child that adds fields to every entry.
func (l *Logger) With(fields ...Field) *Logger {
	child := *l
	child.fields = append(append(make([]Field, 0, len(l.fields)+len(fields)), l.fields...), fields...)
	return &child
}

// WithRequestID is With(String(RequestIDKey, id)).
func (l *Logger) WithRequestID(requestID string) *Logger {
	return l.With(String(RequestIDKey, requestID))
}

func (l *Logger) Debug(msg string, fields ...Field) { l.write(LevelDebug, msg, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { l.write(LevelInfo, msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.write(LevelWarn, msg, fields) }
func (l *Logger) Error(msg string, fields ...Field) { l.write(LevelError, msg, fields) }

func (l *Logger) write(level Level, msg string, fields []Field) {
	if level < l.level {
		return
	}

	entry := LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level.String(),
		Message:   msg,
	}

	if l.addCaller {
		// write <- Info/Warn/... <- caller
		if _, file, line, ok := runtime.Caller(2 + l.callerSkip); ok {
			entry.Caller = fmt.Sprintf("%s:%d", file[strings.LastIndex(file, "/")+1:], line)
		}
	}

	if n := len(l.fields) + len(fields); n > 0 {
		entry.Fields = make(map[string]any, n)
		for _, f := range l.fields {
			entry.Fields[f.Key] = f.Value
		}
		for _, f := range fields {
			entry.Fields[f.Key] = f.Value
		}
	}

	data, err := json.Marshal(entry)

	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		fmt.Fprintf(l.out, "%s [%s] %s\n", entry.Timestamp, entry.Level, msg)
		return
	}
	_, _ = l.out.Write(append(data, '\n'))
}

// ══════════════════════════════════════════════════════════════════════════════
// CONTEXT
// ══════════════════════════════════════════════════════════════════════════════

type ctxKey struct{}

// WithContext stores l in ctx.
func WithContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored in ctx, or Default. Under a valid
// span the result also carries trace_id and span_id.
func FromContext(ctx context.Context) *Logger {
	l, ok := ctx.Value(ctxKey{}).(*Logger)
	if !ok {
		l = Default()
	}

	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return l
	}
	return l.With(
		String("trace_id", sc.TraceID().String()),
		String("span_id", sc.SpanID().String()),
	)
}
