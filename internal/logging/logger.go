// Package logging provides the process-wide logging context for the ingestion step.
// A Context is built once at startup, owns the console and file sinks, and hands out
// per-stage loggers. Sinks are attached at most once per Context, so a long-lived
// process that runs the pipeline repeatedly never writes duplicate lines.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category names the pipeline stage a log entry comes from.
type Category string

const (
	CategoryBoot      Category = "boot"      // CLI startup and shutdown
	CategoryConfig    Category = "config"    // params.yaml loading
	CategoryFetch     Category = "fetch"     // dataset retrieval
	CategoryNormalize Category = "normalize" // column pruning and renaming
	CategorySplit     Category = "split"     // train/test partitioning
	CategoryStore     Category = "store"     // artifact writes
	CategoryHistory   Category = "history"   // run ledger
	CategoryWatch     Category = "watch"     // params watcher
	CategoryPipeline  Category = "pipeline"  // orchestration
)

const (
	// DefaultName is the logger name printed on every entry.
	DefaultName = "data_ingestion"
	// DefaultDir is where the log file is created.
	DefaultDir = "logs"
)

// Options configures a Context.
type Options struct {
	Name    string    // logger name, DefaultName if empty
	Dir     string    // log directory, DefaultDir if empty
	File    string    // log file name, "<Name>.log" if empty
	Level   string    // debug, info, warn, error; debug if empty
	Console io.Writer // console sink, os.Stderr if nil
}

// Context owns the zap core shared by every stage logger.
type Context struct {
	mu       sync.Mutex
	opts     Options
	level    zap.AtomicLevel
	attached bool
	base     *zap.Logger
	file     *os.File
}

// New creates a Context. No sink is opened until Attach is called.
func New(opts Options) (*Context, error) {
	if opts.Name == "" {
		opts.Name = DefaultName
	}
	if opts.Dir == "" {
		opts.Dir = DefaultDir
	}
	if opts.File == "" {
		opts.File = opts.Name + ".log"
	}
	if opts.Console == nil {
		opts.Console = os.Stderr
	}
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	return &Context{
		opts:  opts,
		level: zap.NewAtomicLevelAt(lvl),
		base:  zap.NewNop(),
	}, nil
}

// FromZap wraps an existing zap logger. The returned Context counts as attached.
func FromZap(z *zap.Logger) *Context {
	return &Context{
		level:    zap.NewAtomicLevelAt(zapcore.DebugLevel),
		attached: true,
		base:     z,
	}
}

// Nop returns a Context that discards everything.
func Nop() *Context {
	return FromZap(zap.NewNop())
}

// ParseLevel maps a level name to a zap level. Empty means debug.
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.DebugLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// encoderConfig renders "time - name - LEVEL - message". The console encoder
// always puts the level before the logger name, so the name is written by the
// level encoder and NameKey stays empty.
func encoderConfig(name string) zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:       "time",
		LevelKey:      "level",
		MessageKey:    "msg",
		StacktraceKey: "stacktrace",
		LineEnding:    zapcore.DefaultLineEnding,
		EncodeLevel: func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(name + " - " + l.CapitalString())
		},
		EncodeTime:       zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05,000"),
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: " - ",
	}
}

// Attach opens the log file and tees console and file sinks into the shared core.
// Calling Attach again on the same Context is a no-op.
func (c *Context) Attach() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.attached {
		return nil
	}

	if err := os.MkdirAll(c.opts.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}
	logPath := filepath.Join(c.opts.Dir, c.opts.File)
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", logPath, err)
	}

	enc := encoderConfig(c.opts.Name)
	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(zapcore.AddSync(c.opts.Console)), c.level),
		zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(file), c.level),
	)
	c.base = zap.New(core)
	c.file = file
	c.attached = true
	return nil
}

// Attached reports whether the sinks are in place.
func (c *Context) Attached() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attached
}

// Path returns the log file path, or "" for wrapped loggers.
func (c *Context) Path() string {
	if c.opts.Dir == "" {
		return ""
	}
	return filepath.Join(c.opts.Dir, c.opts.File)
}

// SetLevel changes the minimum level of every sink.
func (c *Context) SetLevel(l zapcore.Level) {
	c.level.SetLevel(l)
}

// Zap returns the underlying logger.
func (c *Context) Zap() *zap.Logger {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.base
}

// Get returns the logger for a stage. Loggers resolve the shared core on every call,
// so a logger obtained before Attach starts writing once Attach succeeds.
func (c *Context) Get(category Category) *Logger {
	return &Logger{ctx: c, category: category}
}

// Close flushes and closes the file sink. The Context falls back to a no-op logger.
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.base.Sync()
	c.base = zap.NewNop()
	c.attached = false
	if c.file == nil {
		return nil
	}
	err := c.file.Close()
	c.file = nil
	return err
}

// Logger is a stage-scoped view of a Context.
type Logger struct {
	ctx      *Context
	category Category
	fields   []zap.Field
}

func (l *Logger) zap() *zap.Logger {
	z := l.ctx.Zap().With(zap.String("stage", string(l.category)))
	if len(l.fields) > 0 {
		z = z.With(l.fields...)
	}
	return z
}

// With returns a logger that adds fields to every entry.
func (l *Logger) With(fields ...zap.Field) *Logger {
	merged := make([]zap.Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &Logger{ctx: l.ctx, category: l.category, fields: merged}
}

// Category returns the stage this logger writes for.
func (l *Logger) Category() Category {
	return l.category
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.zap().Debug(fmt.Sprintf(format, args...))
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.zap().Info(fmt.Sprintf(format, args...))
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.zap().Warn(fmt.Sprintf(format, args...))
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.zap().Error(fmt.Sprintf(format, args...))
}

// ErrorErr logs msg at error level with err attached as a field.
func (l *Logger) ErrorErr(msg string, err error, fields ...zap.Field) {
	l.zap().Error(msg, append([]zap.Field{zap.Error(err)}, fields...)...)
}
