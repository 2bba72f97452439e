package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	organizationIDKey
)

// Config controls the application logger.
type Config struct {
	Level  string // debug | info | warn | error
	Format string // text | json
	Output string // stdout | file | both
	Path   string // directory for rotated log files
}

var (
	mu  sync.RWMutex
	log = newLogger(Config{Level: "info", Format: "text", Output: "stdout"})
)

// Init replaces the package logger. Safe to call once at startup.
func Init(cfg Config) error {
	if cfg.Output == "file" || cfg.Output == "both" {
		if err := os.MkdirAll(cfg.Path, 0755); err != nil {
			return fmt.Errorf("failed to create logs directory: %w", err)
		}
	}
	l := newLogger(cfg)
	mu.Lock()
	log = l
	mu.Unlock()
	return nil
}

func newLogger(cfg Config) *logrus.Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if cfg.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05.000",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "timestamp",
				logrus.FieldKeyMsg:  "message",
				logrus.FieldKeyFunc: "function",
			},
		})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05.000",
			CallerPrettyfier: func(f *runtime.Frame) (string, string) {
				s := strings.Split(f.Function, ".")
				return s[len(s)-1], fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
			},
		})
	}

	var writers []io.Writer
	if cfg.Output == "file" || cfg.Output == "both" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   filepath.Join(cfg.Path, "app.log"),
			MaxSize:    100, // MB
			MaxBackups: 10,
			MaxAge:     30, // days
			Compress:   true,
		})
	}
	if cfg.Output != "file" {
		writers = append(writers, os.Stdout)
	}
	l.SetOutput(io.MultiWriter(writers...))
	return l
}

// L returns the package logger.
func L() *logrus.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// SetOutput redirects the package logger, mostly for tests.
func SetOutput(w io.Writer) {
	L().SetOutput(w)
}

// ContextWithRequestID stores the request id on ctx.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// ContextWithOrganization stores the caller's organization on ctx.
func ContextWithOrganization(ctx context.Context, orgID string) context.Context {
	return context.WithValue(ctx, organizationIDKey, orgID)
}

// RequestID returns the request id stored on ctx, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithContext returns an entry carrying request_id and organization_id when present.
func WithContext(ctx context.Context) *logrus.Entry {
	entry := logrus.NewEntry(L())
	if ctx == nil {
		return entry
	}
	if id, ok := ctx.Value(requestIDKey).(string); ok && id != "" {
		entry = entry.WithField("request_id", id)
	}
	if org, ok := ctx.Value(organizationIDKey).(string); ok && org != "" {
		entry = entry.WithField("organization_id", org)
	}
	return entry
}
