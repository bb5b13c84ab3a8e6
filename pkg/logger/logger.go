package logger

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
)

// Logger wraps logrus.Logger with additional functionality
type Logger struct {
	*logrus.Logger
}

// Config controls level, format and the optional rotated log files.
type Config struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Dir        string `mapstructure:"dir"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	userIDKey    ctxKey = "user_id"
)

// New creates a JSON logger writing to stdout
func New(level string) *Logger {
	log := logrus.New()
	log.SetLevel(parseLevel(level))
	log.SetFormatter(jsonFormatter())
	log.SetOutput(os.Stdout)

	return &Logger{Logger: log}
}

// NewWithConfig creates a logger that also writes daily rotated files when cfg.Dir is set:
// error-<date>.log receives error level and above, combined-<date>.log everything.
func NewWithConfig(cfg Config) (*Logger, error) {
	log := logrus.New()
	log.SetLevel(parseLevel(cfg.Level))
	log.SetOutput(os.Stdout)

	formatter := formatterFor(cfg.Format)
	log.SetFormatter(formatter)

	if cfg.Dir == "" {
		return &Logger{Logger: log}, nil
	}

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, err
	}

	maxAge := cfg.MaxAgeDays
	if maxAge <= 0 {
		maxAge = 15
	}

	errorWriter, err := rotatingWriter(cfg.Dir, "error", maxAge)
	if err != nil {
		return nil, err
	}
	combinedWriter, err := rotatingWriter(cfg.Dir, "combined", maxAge)
	if err != nil {
		return nil, err
	}

	log.AddHook(lfshook.NewHook(lfshook.WriterMap{
		logrus.PanicLevel: errorWriter,
		logrus.FatalLevel: errorWriter,
		logrus.ErrorLevel: errorWriter,
	}, formatter))
	log.AddHook(lfshook.NewHook(lfshook.WriterMap{
		logrus.PanicLevel: combinedWriter,
		logrus.FatalLevel: combinedWriter,
		logrus.ErrorLevel: combinedWriter,
		logrus.WarnLevel:  combinedWriter,
		logrus.InfoLevel:  combinedWriter,
		logrus.DebugLevel: combinedWriter,
		logrus.TraceLevel: combinedWriter,
	}, formatter))

	return &Logger{Logger: log}, nil
}

// NewNop returns a logger that discards everything, for tests.
func NewNop() *Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return &Logger{Logger: log}
}

func rotatingWriter(dir, name string, maxAgeDays int) (io.Writer, error) {
	return rotatelogs.New(
		filepath.Join(dir, name+"-%Y-%m-%d.log"),
		rotatelogs.WithRotationTime(24*time.Hour),
		rotatelogs.WithMaxAge(time.Duration(maxAgeDays)*24*time.Hour),
	)
}

func parseLevel(level string) logrus.Level {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

func formatterFor(format string) logrus.Formatter {
	if format == "text" {
		return &logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
			DisableColors:   true,
		}
	}
	return jsonFormatter()
}

func jsonFormatter() *logrus.JSONFormatter {
	return &logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	}
}

// ContextWithRequestID stores a request id for WithContext to pick up
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// ContextWithUserID stores the authenticated user for WithContext to pick up
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// RequestIDFromContext returns the request id or an empty string
func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// WithRequestID creates a new logger entry with request ID field
func (l *Logger) WithRequestID(requestID string) *logrus.Entry {
	return l.Logger.WithField("request_id", requestID)
}

// WithComponent creates a new logger entry with component name field
func (l *Logger) WithComponent(component string) *logrus.Entry {
	return l.Logger.WithField("component", component)
}

// WithContext creates a logger entry carrying the request and user ids found in ctx
func (l *Logger) WithContext(ctx context.Context) *logrus.Entry {
	entry := logrus.NewEntry(l.Logger)
	if requestID, ok := ctx.Value(requestIDKey).(string); ok && requestID != "" {
		entry = entry.WithField("request_id", requestID)
	}
	if userID, ok := ctx.Value(userIDKey).(string); ok && userID != "" {
		entry = entry.WithField("user_id", userID)
	}
	return entry
}

// Audit logs audit events with structured format
func (l *Logger) Audit(ctx context.Context, userID, action, resource string, success bool, details map[string]interface{}) {
	entry := l.WithContext(ctx).WithFields(logrus.Fields{
		"audit":    true,
		"user_id":  userID,
		"action":   action,
		"resource": resource,
		"success":  success,
		"details":  details,
	})

	if success {
		entry.Info("Audit event")
	} else {
		entry.Warn("Audit event failed")
	}
}

// Security logs security-related events
func (l *Logger) Security(ctx context.Context, event string, details map[string]interface{}) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"security": true,
		"event":    event,
		"details":  details,
	}).Warn("Security event")
}

// HTTPRequest logs HTTP request events
func (l *Logger) HTTPRequest(ctx context.Context, method, path, userAgent, clientIP string, statusCode int, duration time.Duration) {
	entry := l.WithContext(ctx).WithFields(logrus.Fields{
		"http_request": true,
		"method":       method,
		"path":         path,
		"user_agent":   userAgent,
		"client_ip":    clientIP,
		"status_code":  statusCode,
		"duration_ms":  duration.Milliseconds(),
	})

	switch {
	case statusCode >= 500:
		entry.Error("HTTP request failed")
	case statusCode >= 400:
		entry.Warn("HTTP request completed with error")
	default:
		entry.Info("HTTP request completed")
	}
}

// DatabaseOperation logs database operation events
func (l *Logger) DatabaseOperation(ctx context.Context, operation, table string, duration time.Duration, rowsAffected int64, err error) {
	entry := l.WithContext(ctx).WithFields(logrus.Fields{
		"database":      true,
		"operation":     operation,
		"table":         table,
		"duration_ms":   duration.Milliseconds(),
		"rows_affected": rowsAffected,
		"success":       err == nil,
	})

	if err != nil {
		entry.WithError(err).Error("Database operation failed")
		return
	}
	entry.Debug("Database operation completed")
}

// DatabaseConflict logs a statement rejected by a constraint the caller turns
// into a client error, such as a duplicate key
func (l *Logger) DatabaseConflict(ctx context.Context, operation, table string, duration time.Duration, err error) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"database":    true,
		"operation":   operation,
		"table":       table,
		"duration_ms": duration.Milliseconds(),
		"success":     false,
	}).WithError(err).Warn("Database operation rejected by constraint")
}
