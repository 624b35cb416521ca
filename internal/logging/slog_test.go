package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestLogger(t *testing.T) (*SlogLogger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	l := slog.New(h)
	return NewSlogLogger(l), &buf
}

func TestSlogLogger_Levels_WriteExpectedOutput(t *testing.T) {
	log, buf := newTestLogger(t)
	ctx := context.Background()

	log.Debug(ctx, "dbg", "a", 1)
	log.Info(ctx, "inf", "b", 2)
	log.Warn(ctx, "wrn", "c", 3)
	log.Error(ctx, "err", "d", 4)

	out := buf.String()

	tests := []struct {
		level string
		msg   string
		key   string
		val   string
	}{
		{"DEBUG", "dbg", "a", "1"},
		{"INFO", "inf", "b", "2"},
		{"WARN", "wrn", "c", "3"},
		{"ERROR", "err", "d", "4"},
	}

	for _, tc := range tests {
		if !strings.Contains(out, "level="+tc.level) {
			t.Fatalf("expected line with level=%s in output:\n%s", tc.level, out)
		}
		if !strings.Contains(out, "msg="+tc.msg) {
			t.Fatalf("expected line with msg=%q in output:\n%s", tc.msg, out)
		}
		if !strings.Contains(out, tc.key+"="+tc.val) {
			t.Fatalf("expected attribute %s=%s in output:\n%s", tc.key, tc.val, out)
		}
	}
}

func TestSlogLogger_With_AddsAttributes(t *testing.T) {
	log, buf := newTestLogger(t)
	ctx := context.Background()

	log2 := log.With("request_id", "123", "key_id", "ABC")
	log2.Info(ctx, "hello", "k", "v")

	out := buf.String()
	wantSubs := []string{
		"level=INFO",
		"msg=hello",
		"request_id=123",
		"key_id=ABC",
		"k=v",
	}
	for _, s := range wantSubs {
		if !strings.Contains(out, s) {
			t.Fatalf("expected %q in output, got:\n%s", s, out)
		}
	}
}

func TestSlogLogger_ContextDoesNotPanic(t *testing.T) {
	log, _ := newTestLogger(t)

	ctx := context.TODO()
	log.Info(ctx, "ctx-ok")
	log.Debug(ctx, "ctx-ok")
	log.Warn(ctx, "ctx-ok")
	log.Error(ctx, "ctx-ok")
}

func TestNewSlogLogger_NilFallsBackToDefault(t *testing.T) {
	l := NewSlogLogger(nil)
	if l.Slog() != slog.Default() {
		t.Fatalf("expected slog.Default() when nil logger is passed")
	}
}

func TestSlogLogger_RedactsCredentials(t *testing.T) {
	log, buf := newTestLogger(t)
	ctx := context.Background()

	args := []any{"key_id", "ABC123", "token", "eyJhbGciOi.payload.sig"}
	log.Info(ctx, "token issued", args...)
	log.Debug(ctx, "request", slog.String("Authorization", "Bearer eyJ"), "path", "/v1/apps")
	log.With("s3_secret_key", "wJalrXUt").Warn(ctx, "s3 source", "bucket", "media")

	out := buf.String()
	assert.Contains(t, out, "key_id=ABC123")
	assert.Contains(t, out, "path=/v1/apps")
	assert.Contains(t, out, "bucket=media")
	assert.Equal(t, 3, strings.Count(out, redacted))
	for _, secret := range []string{"eyJhbGciOi", "Bearer", "wJalrXUt"} {
		assert.NotContains(t, out, secret)
	}
	// the caller's slice is left alone
	assert.Equal(t, "eyJhbGciOi.payload.sig", args[3])
}

func TestRedact_OddAndPlainArgs(t *testing.T) {
	plain := []any{"asset_id", "a1", "parts", 2}
	assert.Equal(t, plain, redact(plain))

	assert.Equal(t, []any{"asset_id", "a1", "token"}, redact([]any{"asset_id", "a1", "token"}))
	assert.Equal(t, []any{42, "jwt", redacted}, redact([]any{42, "jwt", "x.y.z"}))
}
