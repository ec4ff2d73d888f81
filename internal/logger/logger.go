package logger

import (
	"context"
	"log/slog"
	"os"

	"github.com/google/uuid"
)

// Logger emits one JSON object per line to stdout with the field set the café
// services share: service, hostname, action, request_id.
type Logger struct {
	service  string
	hostname string
	sl       *slog.Logger
}

func New(service string) *Logger {
	hostname, _ := os.Hostname()
	return &Logger{
		service:  service,
		hostname: hostname,
		sl: slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})),
	}
}

// GenerateRequestID returns a fresh id for correlating log lines of one request.
func GenerateRequestID() string { return uuid.NewString() }

func (l *Logger) log(level slog.Level, action, requestID, msg string, err error, fields map[string]any) {
	attrs := []slog.Attr{
		slog.String("service", l.service),
		slog.String("hostname", l.hostname),
		slog.String("action", action),
		slog.String("request_id", requestID),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	l.sl.LogAttrs(context.Background(), level, msg, attrs...)
}

func (l *Logger) Debug(action, requestID, msg string, fields map[string]any) {
	l.log(slog.LevelDebug, action, requestID, msg, nil, fields)
}

func (l *Logger) Info(action, requestID, msg string, fields map[string]any) {
	l.log(slog.LevelInfo, action, requestID, msg, nil, fields)
}

func (l *Logger) Error(action, requestID, msg string, err error, fields map[string]any) {
	l.log(slog.LevelError, action, requestID, msg, err, fields)
}
