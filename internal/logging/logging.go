// Package logging provides the bridge's package-level structured logger: a
// singleton zap.SugaredLogger with an UNSTRUCTURED_LOGS escape hatch for
// human-readable development output, and trace-correlated child loggers for
// the tracing middleware to attach trace_id/span_id to.
package logging

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var singleton atomic.Pointer[zap.SugaredLogger]

func init() {
	singleton.Store(newDefault())
}

func newDefault() *zap.SugaredLogger {
	var encoder zapcore.Encoder
	if unstructuredLogs() {
		encoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	} else {
		cfg := zap.NewProductionEncoderConfig()
		cfg.TimeKey = "ts"
		encoder = zapcore.NewJSONEncoder(cfg)
	}
	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stderr), zapcore.DebugLevel)
	return zap.New(core).Sugar()
}

// unstructuredLogs reports whether console (rather than JSON) output is
// requested via UNSTRUCTURED_LOGS. Defaults to true for local dev; an
// explicit "false" switches to JSON.
func unstructuredLogs() bool {
	return unstructuredLogsWithEnv(osEnv{})
}

type envReader interface {
	Getenv(key string) string
}

type osEnv struct{}

func (osEnv) Getenv(key string) string { return os.Getenv(key) }

func unstructuredLogsWithEnv(env envReader) bool {
	v := env.Getenv("UNSTRUCTURED_LOGS")
	if v == "" {
		return true
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return true
	}
	return b
}

// Init replaces the singleton logger. Called once at startup after config
// has been resolved.
func Init(l *zap.SugaredLogger) {
	singleton.Store(l)
}

// Get returns the current singleton logger.
func Get() *zap.SugaredLogger {
	return singleton.Load()
}

type traceFieldsKey struct{}

// TraceFields carries the trace_id/span_id pair the tracing middleware
// attaches to a request context so log lines emitted while handling it are
// correlated to the span.
type TraceFields struct {
	TraceID string
	SpanID  string
}

// WithTraceFields returns a context carrying trace correlation fields for
// ContextLogger to pick up.
func WithTraceFields(ctx context.Context, f TraceFields) context.Context {
	return context.WithValue(ctx, traceFieldsKey{}, f)
}

// ContextLogger returns a logger with trace_id/span_id fields attached if
// the context carries them, otherwise the plain singleton.
func ContextLogger(ctx context.Context) *zap.SugaredLogger {
	l := Get()
	f, ok := ctx.Value(traceFieldsKey{}).(TraceFields)
	if !ok {
		return l
	}
	return l.With("trace_id", f.TraceID, "span_id", f.SpanID)
}

func Debug(args ...any)  { Get().Debug(args...) }
func Info(args ...any)   { Get().Info(args...) }
func Warn(args ...any)   { Get().Warn(args...) }
func Error(args ...any)  { Get().Error(args...) }

func Debugf(format string, args ...any) { Get().Debugf(format, args...) }
func Infof(format string, args ...any)  { Get().Infof(format, args...) }
func Warnf(format string, args ...any)  { Get().Warnf(format, args...) }
func Errorf(format string, args ...any) { Get().Errorf(format, args...) }

func Debugw(msg string, kv ...any) { Get().Debugw(msg, kv...) }
func Infow(msg string, kv ...any)  { Get().Infow(msg, kv...) }
func Warnw(msg string, kv ...any)  { Get().Warnw(msg, kv...) }
func Errorw(msg string, kv ...any) { Get().Errorw(msg, kv...) }

// truncateLogLimit is the verbatim-vs-truncated cutoff for TruncateForLog.
const truncateLogLimit = 50

// TruncateForLog renders a credential-shaped string for debug tracing: short
// values (under truncateLogLimit characters — not enough to be a usable
// secret on their own, but enough to tell tokens apart in a trace) are
// logged verbatim, longer ones are cut to the limit with a trailing count of
// the characters withheld.
func TruncateForLog(s string) string {
	if len(s) < truncateLogLimit {
		return s
	}
	return s[:truncateLogLimit] + fmt.Sprintf("…(%d more chars)", len(s)-truncateLogLimit)
}
