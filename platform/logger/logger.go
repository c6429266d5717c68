// Package logger is the slog setup every binary shares, plus a few
// event-shaped helpers so the same events log the same attributes.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type ctxKey uint8

const (
	requestIDKey ctxKey = iota
	userIDKey
)

// ContextWithRequestID tags ctx so WithContext adds request_id.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// ContextWithUserID tags ctx so WithContext adds user_id.
func ContextWithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

type Logger struct {
	*slog.Logger
}

func New(env string) *Logger { return NewWithWriter(env, os.Stdout) }

// NewWithWriter logs text at debug level in development and JSON at info
// level everywhere else.
func NewWithWriter(env string, w io.Writer) *Logger {
	if strings.EqualFold(env, "development") {
		return &Logger{slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))}
	}
	return &Logger{slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))}
}

func Discard() *Logger { return &Logger{slog.New(slog.DiscardHandler)} }

func (l *Logger) With(args ...any) *Logger { return &Logger{l.Logger.With(args...)} }

// WithContext adds the request and user ids carried by ctx, if any.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	var attrs []any
	if id, _ := ctx.Value(requestIDKey).(string); id != "" {
		attrs = append(attrs, slog.String("request_id", id))
	}
	if id, _ := ctx.Value(userIDKey).(string); id != "" {
		attrs = append(attrs, slog.String("user_id", id))
	}
	if attrs == nil {
		return l
	}
	return l.With(attrs...)
}

func (l *Logger) WithSurvey(studyID, surveyID string) *Logger {
	return l.With(slog.String("study_id", studyID), slog.String("survey_id", surveyID))
}

func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// AuthEvent logs a sign-up or sign-in outcome; failures go out at warn
// with the reason.
func (l *Logger) AuthEvent(event, email string, success bool, reason string) {
	attrs := []any{slog.String("event", event), slog.String("email", email), slog.Bool("success", success)}
	if success {
		l.Info("auth_event", attrs...)
		return
	}
	l.Warn("auth_event", append(attrs, slog.String("reason", reason))...)
}

// SyncEvent logs one marker sync or mirror step: debug when it worked,
// error when it did not.
func (l *Logger) SyncEvent(op, documentID string, err error) {
	if err == nil {
		l.Debug("sync_event", slog.String("op", op), slog.String("document_id", documentID))
		return
	}
	l.Error("sync_event", slog.String("op", op), slog.String("document_id", documentID), slog.Any("error", err))
}

func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded", slog.String("client_ip", clientIP), slog.String("path", path))
}
