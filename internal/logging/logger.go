package logging

import (
	"context"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Logger wraps structured logging with OpenTelemetry integration
// Provides consistent logging interface across application components
// Automatically correlates logs with distributed traces for observability
// Time Complexity: O(1) for logging operations
// Space Complexity: O(1) per log entry
type Logger struct {
	slogger *slog.Logger // Structured logger implementation
	tracer  trace.Tracer // OpenTelemetry tracer for correlation
}

// LogLevel represents logging severity levels
// Maps to standard syslog levels for consistent interpretation
type LogLevel int

const (
	LogLevelDebug LogLevel = iota // Detailed debugging information
	LogLevelInfo                  // General information messages
	LogLevelWarn                  // Warning conditions
	LogLevelError                 // Error conditions
	LogLevelFatal                 // Critical errors causing termination
)

// NewLogger creates structured logger with OpenTelemetry integration
// Configures JSON output for structured log parsing and correlation
// Initializes tracer for distributed tracing integration
// Time Complexity: O(1) - logger initialisation
// Space Complexity: O(1) - fixed logger structure
func NewLogger(service string) *Logger {
	// Configure structured JSON logging
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: true,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Rename timestamp field for consistency
			if a.Key == slog.TimeKey {
				a.Key = "timestamp"
			}
			return a
		},
	})

	logger := slog.New(handler)
	tracer := otel.Tracer(service)

	return &Logger{
		slogger: logger,
		tracer:  tracer,
	}
}

// Debug logs debug-level message with context and trace correlation
// Used for detailed debugging information in development/troubleshooting
// Automatically includes trace and span IDs when available
func (l *Logger) Debug(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.logWithTrace(ctx, slog.LevelDebug, msg, attrs...)
}

// Info logs informational message with context and trace correlation
// Used for general application flow and business logic events
func (l *Logger) Info(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.logWithTrace(ctx, slog.LevelInfo, msg, attrs...)
}

// Warn logs warning message with context and trace correlation
// Used for recoverable errors and unexpected conditions
func (l *Logger) Warn(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.logWithTrace(ctx, slog.LevelWarn, msg, attrs...)
}

// Error logs error message with context and trace correlation
// Automatically marks associated span as error for tracing
func (l *Logger) Error(ctx context.Context, msg string, err error, attrs ...slog.Attr) {
	// Add error to attributes if provided
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))

		// Mark span as error for distributed tracing
		if span := trace.SpanFromContext(ctx); span.IsRecording() {
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		}
	}

	l.logWithTrace(ctx, slog.LevelError, msg, attrs...)
}

// Fatal logs fatal error and terminates application
// Used for unrecoverable errors requiring immediate shutdown
func (l *Logger) Fatal(ctx context.Context, msg string, err error, attrs ...slog.Attr) {
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}

	l.logWithTrace(ctx, slog.LevelError, msg, attrs...)
	os.Exit(1)
}

// logWithTrace adds OpenTelemetry trace correlation to log entries
// Extracts trace and span IDs from context for log correlation
func (l *Logger) logWithTrace(ctx context.Context, level slog.Level, msg string, attrs ...slog.Attr) {
	// Extract trace information from context
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		attrs = append(attrs,
			slog.String("trace_id", span.SpanContext().TraceID().String()),
			slog.String("span_id", span.SpanContext().SpanID().String()),
		)
	}

	// Add service context information
	attrs = append(attrs,
		slog.String("service", "proxy"),
		slog.Time("timestamp", time.Now()),
	)

	l.slogger.LogAttrs(ctx, level, msg, attrs...)
}

// StartSpan creates new OpenTelemetry span with logging context
// Provides distributed tracing for request flow and performance monitoring
func (l *Logger) StartSpan(ctx context.Context, operationName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return l.tracer.Start(ctx, operationName, trace.WithAttributes(attrs...))
}

// WithFields creates logger with pre-configured attributes
// Returns new logger instance to avoid modifying original
func (l *Logger) WithFields(attrs ...slog.Attr) *Logger {
	anyAttrs := make([]any, len(attrs))
	for i, a := range attrs {
		anyAttrs[i] = a
	}
	return &Logger{
		slogger: l.slogger.With(anyAttrs...),
		tracer:  l.tracer,
	}
}

// RequestLogger logs the outcome of one forwarded request. This proxy
// drives a raw connection state machine rather than an http.Handler
// chain, so a wrap-a-handler logging middleware doesn't apply here;
// fingerprint, outcome and duration are still worth one log line per
// request.
func (l *Logger) RequestLogger(ctx context.Context, fingerprint, outcome string, duration time.Duration) {
	l.Info(ctx, "request completed",
		slog.String("fingerprint", fingerprint),
		slog.String("outcome", outcome),
		slog.Duration("duration", duration),
	)
}

// Event logs a one-line cache side effect (insert or eviction) with
// its key and byte size. Uses a background context: the cache has no
// per-request trace to correlate against, since it is shared across
// every worker.
func (l *Logger) Event(msg, key string, size int64) {
	l.Info(context.Background(), msg,
		slog.String("key", key),
		slog.Int64("size", size),
	)
}
