package fhirpath

import (
	"context"
	"log/slog"
	"time"

	"github.com/cockroachdb/apd/v3"
)

type apdContextKey struct{}

// WithAPDContext sets the apd.Context for Decimal operations.
//
// The apd.Context controls precision and rounding of decimal arithmetic, the
// math functions and unit conversions. By default 34 significant digits are kept.
//
// Example:
//
//	ctx = fhirpath.WithAPDContext(ctx, apd.BaseContext.WithPrecision(10))
func WithAPDContext(ctx context.Context, apdContext *apd.Context) context.Context {
	return context.WithValue(ctx, apdContextKey{}, apdContext)
}

// DefaultDecimalPrecision is the number of significant digits kept when no
// apd.Context is installed.
const DefaultDecimalPrecision uint32 = 34

var defaultAPDContext = apd.BaseContext.WithPrecision(DefaultDecimalPrecision)

func apdContext(ctx context.Context) *apd.Context {
	if ctx != nil {
		if apdContext, ok := ctx.Value(apdContextKey{}).(*apd.Context); ok && apdContext != nil {
			return apdContext
		}
	}
	return defaultAPDContext
}

type loggerKey struct{}

// WithLogger installs a structured logger used by the dispatcher and the
// default Tracer.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// Logger retrieves the logger from the context.
func Logger(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
			return l
		}
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}

// Tracer receives the collections passed through trace().
type Tracer interface {
	// Log logs a trace message with the given name and collection.
	// ctx is the context of the evaluation calling trace().
	Log(ctx context.Context, name string, collection Collection) error
}

// LogTracer writes traces to the logger installed with WithLogger.
type LogTracer struct {
	Logger *slog.Logger
	Level  slog.Level
	// Prefix is prepended to every trace name.
	Prefix string
}

func (t LogTracer) Log(ctx context.Context, name string, collection Collection) error {
	t.Logger.Log(ctx, t.Level, "trace",
		slog.String("name", t.Prefix+name),
		slog.Int("count", len(collection)),
		slog.String("collection", collection.String()),
	)
	return nil
}

type tracerKey struct{}

// WithTracer installs the given trace logger into the context.
//
// By default, traces are written at info level to the context logger.
func WithTracer(ctx context.Context, tracer Tracer) context.Context {
	return context.WithValue(ctx, tracerKey{}, tracer)
}

func tracer(ctx context.Context) Tracer {
	if t, ok := ctx.Value(tracerKey{}).(Tracer); ok && t != nil {
		return t
	}
	return LogTracer{Logger: Logger(ctx), Level: slog.LevelInfo}
}

type evaluationTimeKey struct{}

// WithEvaluationTime fixes the instant returned by now(), today() and timeOfDay().
//
// The instant is truncated to milliseconds. Without it the wall clock is read
// on every call.
func WithEvaluationTime(ctx context.Context, instant time.Time) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, evaluationTimeKey{}, instant.Truncate(time.Millisecond))
}

func evaluationInstant(ctx context.Context) time.Time {
	if ctx != nil {
		if t, ok := ctx.Value(evaluationTimeKey{}).(time.Time); ok {
			return t
		}
	}
	return time.Now().Truncate(time.Millisecond)
}

// DefaultRepeatLimit bounds the number of expansion rounds of repeat().
const DefaultRepeatLimit = 10000

type repeatLimitKey struct{}

// WithRepeatLimit sets the maximum number of rounds repeat() performs before
// failing. Values below one restore the default.
func WithRepeatLimit(ctx context.Context, limit int) context.Context {
	return context.WithValue(ctx, repeatLimitKey{}, limit)
}

func repeatLimit(ctx context.Context) int {
	if l, ok := ctx.Value(repeatLimitKey{}).(int); ok && l > 0 {
		return l
	}
	return DefaultRepeatLimit
}
