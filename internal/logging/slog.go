package logging

import (
	"context"
	"log/slog"
	"strings"
)

// SlogLogger adapts *slog.Logger to Logger. Values under credential keys
// (tokens, authorization headers, key material, S3 secrets) are replaced
// before they reach a handler, so a stray debug line cannot leak them. The
// key id and issuer id are identifiers, not secrets, and pass through.
type SlogLogger struct {
	l *slog.Logger
}

var _ Logger = (*SlogLogger)(nil)

const redacted = "[redacted]"

var secretKeys = map[string]struct{}{
	"token":         {},
	"jwt":           {},
	"authorization": {},
	"private_key":   {},
	"key_pem":       {},
	"secret_key":    {},
	"s3_secret_key": {},
}

func isSecret(key string) bool {
	_, ok := secretKeys[strings.ToLower(key)]
	return ok
}

func NewSlogLogger(l *slog.Logger) *SlogLogger {
	if l == nil {
		l = slog.Default()
	}
	return &SlogLogger{l: l}
}

func (s *SlogLogger) Debug(ctx context.Context, msg string, args ...any) {
	s.l.DebugContext(ctx, msg, redact(args)...)
}

func (s *SlogLogger) Info(ctx context.Context, msg string, args ...any) {
	s.l.InfoContext(ctx, msg, redact(args)...)
}

func (s *SlogLogger) Warn(ctx context.Context, msg string, args ...any) {
	s.l.WarnContext(ctx, msg, redact(args)...)
}

func (s *SlogLogger) Error(ctx context.Context, msg string, args ...any) {
	s.l.ErrorContext(ctx, msg, redact(args)...)
}

// With binds attributes such as asset_id or key_id to every later line.
func (s *SlogLogger) With(args ...any) Logger {
	return &SlogLogger{l: s.l.With(redact(args)...)}
}

// Slog exposes the underlying logger for libraries that want one. It does
// not redact.
func (s *SlogLogger) Slog() *slog.Logger {
	return s.l
}

// redact walks args the way slog pairs them: a string key followed by its
// value, or a ready slog.Attr. args is copied only when something is hidden.
func redact(args []any) []any {
	var out []any
	for i := 0; i < len(args); i++ {
		switch v := args[i].(type) {
		case slog.Attr:
			if isSecret(v.Key) {
				out = copyOnce(out, args)
				out[i] = slog.String(v.Key, redacted)
			}
		case string:
			if i+1 >= len(args) {
				return pick(out, args)
			}
			if isSecret(v) {
				out = copyOnce(out, args)
				out[i+1] = redacted
			}
			i++
		}
	}
	return pick(out, args)
}

func copyOnce(out, args []any) []any {
	if out != nil {
		return out
	}
	return append([]any(nil), args...)
}

func pick(out, args []any) []any {
	if out != nil {
		return out
	}
	return args
}
