package logger

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm/logger"
)

var Logger = logrus.New()

type contextKey struct{}

func Init() {
	Logger.SetOutput(os.Stdout)
	Logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
		ForceColors:     true,
		PadLevelText:    true,
	})
	Logger.SetLevel(logrus.DebugLevel)
}

// SetLevel switches the log level, ignoring unknown names.
func SetLevel(level string) {
	parsed, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return
	}
	Logger.SetLevel(parsed)
}

func Info(msg string, fields map[string]interface{}) {
	Logger.WithFields(fields).Info(msg)
}

func Error(err error, msg string, fields map[string]interface{}) {
	Logger.WithError(err).WithFields(fields).Error(msg)
}

func Warn(msg string, fields map[string]interface{}) {
	Logger.WithFields(fields).Warn(msg)
}

func Debug(msg string, fields map[string]interface{}) {
	Logger.WithFields(fields).Debug(msg)
}

func Fatal(msg string, fields map[string]interface{}) {
	Logger.WithFields(fields).Fatal(msg)
}

// ContextWithFields attaches log fields to ctx. Fields already present are kept
// unless overwritten by the new set.
func ContextWithFields(ctx context.Context, fields map[string]interface{}) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	merged := logrus.Fields{}
	if existing, ok := ctx.Value(contextKey{}).(logrus.Fields); ok {
		for k, v := range existing {
			merged[k] = v
		}
	}
	for k, v := range fields {
		merged[k] = v
	}
	return context.WithValue(ctx, contextKey{}, merged)
}

// FromContext returns an entry carrying the fields stored in ctx.
func FromContext(ctx context.Context) *logrus.Entry {
	entry := logrus.NewEntry(Logger)
	if ctx == nil {
		return entry
	}
	if fields, ok := ctx.Value(contextKey{}).(logrus.Fields); ok {
		return entry.WithFields(fields)
	}
	return entry
}

func GinLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		if raw != "" {
			path += "?" + raw
		}

		entry := FromContext(c.Request.Context()).WithFields(logrus.Fields{
			"ip":     c.ClientIP(),
			"method": c.Request.Method,
			"path":   path,
			"status": status,
			"took":   duration,
		})

		switch {
		case status >= 500:
			entry.Error("Server error")
		case status >= 400:
			entry.Warn("Client error")
		default:
			entry.Info("Request completed")
		}
	}
}

type GormLogger struct {
	SlowThreshold time.Duration
}

func NewGormLogger() logger.Interface {
	return &GormLogger{
		SlowThreshold: 200 * time.Millisecond,
	}
}

func (l *GormLogger) LogMode(level logger.LogLevel) logger.Interface {
	return l
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	FromContext(ctx).Infof(msg, data...)
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	FromContext(ctx).Warnf(msg, data...)
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	FromContext(ctx).Errorf(msg, data...)
}

func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	sql, rows := fc()

	entry := FromContext(ctx).WithFields(logrus.Fields{
		"sql":  sql,
		"rows": rows,
		"time": elapsed,
	})

	switch {
	case err != nil && !errors.Is(err, logger.ErrRecordNotFound):
		entry.WithError(err).Error("Database query error")
	case elapsed > l.SlowThreshold:
		entry.Warn("Slow query")
	default:
		entry.Debug("Query executed")
	}
}
