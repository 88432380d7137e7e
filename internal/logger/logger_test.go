package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected valid JSON log output, got error: %v\nraw output: %s", err, buf.String())
	}
	return entry
}

func TestSetup_ReturnsJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf)

	if l == nil {
		t.Fatal("expected non-nil logger")
	}

	l.Info("test message", slog.String("key", "value"))

	entry := decodeEntry(t, &buf)
	if entry["msg"] != "test message" {
		t.Errorf("msg = %q, want %q", entry["msg"], "test message")
	}
	if entry["key"] != "value" {
		t.Errorf("key = %q, want %q", entry["key"], "value")
	}
	if entry["service"] != ServiceName {
		t.Errorf("service = %q, want %q", entry["service"], ServiceName)
	}
	if _, ok := entry["time"]; !ok {
		t.Error("expected 'time' field in JSON log output")
	}
}

func TestSetup_IncludesLevelField(t *testing.T) {
	var buf bytes.Buffer
	Setup(&buf).Warn("warning test")

	entry := decodeEntry(t, &buf)
	if entry["level"] != "WARN" {
		t.Errorf("level = %q, want %q", entry["level"], "WARN")
	}
}

func TestSetup_DebugIsSuppressed(t *testing.T) {
	var buf bytes.Buffer
	Setup(&buf).Debug("hidden")

	if buf.Len() != 0 {
		t.Errorf("debug output should be suppressed, got %s", buf.String())
	}
}

func TestSetup_MultipleAttributes(t *testing.T) {
	var buf bytes.Buffer
	Setup(&buf).Info("sign-in completed",
		slog.String("user_id", "u-123"),
		slog.String("role", "doctor"),
		slog.Int("status", 200),
	)

	entry := decodeEntry(t, &buf)
	if entry["user_id"] != "u-123" {
		t.Errorf("user_id = %q, want %q", entry["user_id"], "u-123")
	}
	if entry["role"] != "doctor" {
		t.Errorf("role = %q, want %q", entry["role"], "doctor")
	}
	if entry["status"] != float64(200) {
		t.Errorf("status = %v, want %v", entry["status"], 200)
	}
}

func TestSetup_RedactsSensitiveAttributes(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{"パスワード", "password"},
		{"確認用パスワード", "confirm_password"},
		{"アクセストークン", "access_token"},
		{"リフレッシュトークン", "refresh_token"},
		{"セッションID", "session_id"},
		{"大文字のキー", "Authorization"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			Setup(&buf).Info("attempt", slog.String(tt.key, "secret-value"))

			entry := decodeEntry(t, &buf)
			if entry[tt.key] != redacted {
				t.Errorf("%s = %v, want %q", tt.key, entry[tt.key], redacted)
			}
		})
	}
}

func TestSetup_RedactsInsideGroups(t *testing.T) {
	var buf bytes.Buffer
	Setup(&buf).Info("request", slog.Group("form", slog.String("email", "a@example.com"), slog.String("password", "pw")))

	entry := decodeEntry(t, &buf)
	form, ok := entry["form"].(map[string]any)
	if !ok {
		t.Fatalf("form group missing: %v", entry)
	}
	if form["password"] != redacted {
		t.Errorf("form.password = %v, want %q", form["password"], redacted)
	}
	if form["email"] != "a@example.com" {
		t.Errorf("form.email = %v, want %q", form["email"], "a@example.com")
	}
}

func TestSetupDefault_SetsGlobalLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	SetupDefault(&buf)

	slog.Default().Info("global test", slog.String("test_key", "test_val"))

	entry := decodeEntry(t, &buf)
	if entry["msg"] != "global test" {
		t.Errorf("msg = %q, want %q", entry["msg"], "global test")
	}
	if entry["test_key"] != "test_val" {
		t.Errorf("test_key = %q, want %q", entry["test_key"], "test_val")
	}
}
