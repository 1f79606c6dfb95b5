// Package logger is the process-wide structured logger, grounded on the
// teacher's internal/logger: a package-level slog.Logger behind an
// atomic level/format so every package can log without threading a
// logger value through constructors, plus a colorized text handler for
// interactive terminals and a context-carried request scope (session,
// database, operation) for cmd/confd's RPC handlers.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// Level is the logger's own level enum, translated to slog.Level so
// callers never need to import log/slog just to call SetLevel.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func toSlogLevel(l Level) slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config configures the process-wide logger.
type Config struct {
	Level  string // DEBUG, INFO, WARN, ERROR
	Format string // text, json
	Output string // stdout, stderr, or a file path
}

var (
	currentLevel  atomic.Int32
	currentFormat atomic.Value

	mu       sync.RWMutex
	handler  slog.Handler
	slogger  *slog.Logger
	output   io.Writer = os.Stdout
	useColor           = true
)

func init() {
	currentLevel.Store(int32(LevelInfo))
	currentFormat.Store("text")
	if f, ok := output.(*os.File); ok {
		useColor = isTerminal(f.Fd())
	}
	reconfigure()
}

func reconfigure() {
	mu.Lock()
	defer mu.Unlock()

	levelVar := new(slog.LevelVar)
	levelVar.Set(toSlogLevel(Level(currentLevel.Load())))
	opts := &slog.HandlerOptions{Level: levelVar}

	format, _ := currentFormat.Load().(string)
	if format == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = NewColorTextHandler(output, opts, useColor)
	}
	slogger = slog.New(handler)
}

// Init applies cfg to the process-wide logger. Fields left zero keep
// their current value, so Init can be called more than once (e.g. once
// with defaults, again after config.Load resolves the real values).
func Init(cfg Config) error {
	if cfg.Output != "" {
		mu.Lock()
		var newOutput io.Writer
		var newUseColor bool
		switch strings.ToLower(cfg.Output) {
		case "stdout":
			newOutput, newUseColor = os.Stdout, isTerminal(os.Stdout.Fd())
		case "stderr":
			newOutput, newUseColor = os.Stderr, isTerminal(os.Stderr.Fd())
		default:
			f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				mu.Unlock()
				return fmt.Errorf("open log file %q: %w", cfg.Output, err)
			}
			newOutput, newUseColor = f, false
		}
		output, useColor = newOutput, newUseColor
		mu.Unlock()
	}
	if cfg.Level != "" {
		SetLevel(cfg.Level)
	}
	if cfg.Format != "" {
		SetFormat(cfg.Format)
	}
	reconfigure()
	return nil
}

// InitWithWriter points the logger at w, bypassing the stdout/stderr/file
// switch in Init. Primarily useful for tests.
func InitWithWriter(w io.Writer, level, format string, enableColor bool) {
	mu.Lock()
	output, useColor = w, enableColor
	mu.Unlock()
	if level != "" {
		SetLevel(level)
	}
	if format != "" {
		SetFormat(format)
	}
	reconfigure()
}

// SetLevel sets the minimum log level; invalid values are ignored.
func SetLevel(level string) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		currentLevel.Store(int32(LevelDebug))
	case "INFO":
		currentLevel.Store(int32(LevelInfo))
	case "WARN":
		currentLevel.Store(int32(LevelWarn))
	case "ERROR":
		currentLevel.Store(int32(LevelError))
	default:
		return
	}
	reconfigure()
}

// SetFormat sets the output format ("text" or "json"); invalid values
// are ignored.
func SetFormat(format string) {
	format = strings.ToLower(format)
	if format != "text" && format != "json" {
		return
	}
	currentFormat.Store(format)
	reconfigure()
}

func getLogger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return slogger
}

func Debug(msg string, args ...any) { getLogger().Debug(msg, args...) }
func Info(msg string, args ...any)  { getLogger().Info(msg, args...) }
func Warn(msg string, args ...any)  { getLogger().Warn(msg, args...) }
func Error(msg string, args ...any) { getLogger().Error(msg, args...) }

// DebugCtx, InfoCtx, WarnCtx and ErrorCtx log with the RequestScope
// carried on ctx (session, database, operation) prepended to args.
func DebugCtx(ctx context.Context, msg string, args ...any) {
	getLogger().Debug(msg, appendScope(ctx, args)...)
}

func InfoCtx(ctx context.Context, msg string, args ...any) {
	getLogger().Info(msg, appendScope(ctx, args)...)
}

func WarnCtx(ctx context.Context, msg string, args ...any) {
	getLogger().Warn(msg, appendScope(ctx, args)...)
}

func ErrorCtx(ctx context.Context, msg string, args ...any) {
	getLogger().Error(msg, appendScope(ctx, args)...)
}

func appendScope(ctx context.Context, args []any) []any {
	rs := FromContext(ctx)
	if rs == nil {
		return args
	}
	scoped := make([]any, 0, 8+len(args))
	if rs.Session != "" {
		scoped = append(scoped, KeySession, rs.Session)
	}
	if rs.Database != "" {
		scoped = append(scoped, KeyDatabase, rs.Database)
	}
	if rs.Operation != "" {
		scoped = append(scoped, KeyOperation, rs.Operation)
	}
	if rs.Peer != "" {
		scoped = append(scoped, KeyPeer, rs.Peer)
	}
	return append(scoped, args...)
}

// With returns a child *slog.Logger with bound attributes.
func With(args ...any) *slog.Logger { return getLogger().With(args...) }
