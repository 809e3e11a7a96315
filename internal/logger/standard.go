package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// output serialises writes from a logger and every logger derived from it.
type output struct {
	mu        sync.Mutex
	w         io.Writer
	formatter Formatter
}

func (o *output) write(entry *Entry) {
	data, err := o.formatter.Format(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: format entry: %v\n", err)
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if _, err := o.w.Write(data); err != nil {
		fmt.Fprintf(os.Stderr, "logger: write entry: %v\n", err)
	}
}

// StandardLogger writes entries through a single Formatter. Loggers derived
// with With share its writer and level.
type StandardLogger struct {
	level  *atomic.Int32
	out    *output
	fields []Field
}

type options struct {
	level     Level
	w         io.Writer
	formatter Formatter
	fields    []Field
	json      bool
	color     bool
	clock     string
}

// Option configures a logger during construction.
type Option func(*options)

// WithLevel sets the minimum level emitted.
func WithLevel(level Level) Option {
	return func(o *options) {
		o.level = level
	}
}

// WithOutput redirects entries to w. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		o.w = w
	}
}

// WithFormatter overrides the formatter chosen from the other options.
func WithFormatter(formatter Formatter) Option {
	return func(o *options) {
		o.formatter = formatter
	}
}

// WithFields attaches fields to every entry.
func WithFields(fields ...Field) Option {
	return func(o *options) {
		o.fields = append(o.fields, fields...)
	}
}

// WithJSON switches to newline-delimited JSON.
func WithJSON() Option {
	return func(o *options) {
		o.json = true
	}
}

// NewStandardLogger returns a logger writing RFC 3339 stamped text to stdout
// at info level unless options say otherwise.
func NewStandardLogger(opts ...Option) *StandardLogger {
	return newStandardLogger(options{level: LevelInfo, clock: time.RFC3339}, opts)
}

func newStandardLogger(o options, opts []Option) *StandardLogger {
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.w == nil {
		o.w = os.Stdout
	}
	if o.formatter == nil {
		if o.json {
			o.formatter = &JSONFormatter{}
		} else {
			o.formatter = &TextFormatter{
				TimestampFormat: o.clock,
				Color:           o.color && colorEnabled(o.w),
			}
		}
	}

	level := new(atomic.Int32)
	level.Store(int32(o.level))
	return &StandardLogger{
		level:  level,
		out:    &output{w: o.w, formatter: o.formatter},
		fields: o.fields,
	}
}

func (l *StandardLogger) Debug(format string, args ...interface{}) {
	l.printf(LevelDebug, format, args)
}

func (l *StandardLogger) Info(format string, args ...interface{}) {
	l.printf(LevelInfo, format, args)
}

func (l *StandardLogger) Warn(format string, args ...interface{}) {
	l.printf(LevelWarn, format, args)
}

func (l *StandardLogger) Error(format string, args ...interface{}) {
	l.printf(LevelError, format, args)
}

func (l *StandardLogger) DebugContext(ctx context.Context, msg string, fields ...Field) {
	l.emit(ctx, LevelDebug, msg, fields)
}

func (l *StandardLogger) InfoContext(ctx context.Context, msg string, fields ...Field) {
	l.emit(ctx, LevelInfo, msg, fields)
}

func (l *StandardLogger) WarnContext(ctx context.Context, msg string, fields ...Field) {
	l.emit(ctx, LevelWarn, msg, fields)
}

func (l *StandardLogger) ErrorContext(ctx context.Context, msg string, fields ...Field) {
	l.emit(ctx, LevelError, msg, fields)
}

// With returns a child logger sharing l's writer and level.
func (l *StandardLogger) With(fields ...Field) Logger {
	merged := make([]Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &StandardLogger{level: l.level, out: l.out, fields: merged}
}

func (l *StandardLogger) SetLevel(level Level) {
	l.level.Store(int32(level))
}

func (l *StandardLogger) GetLevel() Level {
	return Level(l.level.Load())
}

func (l *StandardLogger) printf(level Level, format string, args []interface{}) {
	if level < l.GetLevel() {
		return
	}
	l.emit(context.Background(), level, fmt.Sprintf(format, args...), nil)
}

func (l *StandardLogger) emit(ctx context.Context, level Level, msg string, fields []Field) {
	if level < l.GetLevel() {
		return
	}

	entry := &Entry{
		Time:    time.Now(),
		Level:   level,
		Message: msg,
		Fields:  make([]Field, 0, len(l.fields)+len(fields)),
		Run:     RunFromContext(ctx),
	}
	entry.Fields = append(entry.Fields, l.fields...)
	entry.Fields = append(entry.Fields, fields...)
	l.out.write(entry)
}
