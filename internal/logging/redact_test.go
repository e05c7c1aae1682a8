package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode log json: %v", err)
	}
	return payload
}

func TestRedactingHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(WrapHandler(slog.NewJSONHandler(&buf, nil)))
	logger.Info("booking",
		"api_key", "s3cr3t",
		"access_token", "tok",
		"email", "Max@Example.com",
		"model", "res.partner",
	)

	payload := decode(t, &buf)
	if got := payload["api_key"]; got != redactedValue {
		t.Errorf("api_key = %v, want %v", got, redactedValue)
	}
	if got := payload["access_token"]; got != redactedValue {
		t.Errorf("access_token = %v, want %v", got, redactedValue)
	}
	if _, ok := payload["email"]; ok {
		t.Error("email should not be present")
	}
	if got := payload["email_fp"]; got != FingerprintEmail("max@example.com") {
		t.Errorf("email_fp = %v, want %v", got, FingerprintEmail("max@example.com"))
	}
	if got := payload["model"]; got != "res.partner" {
		t.Errorf("model = %v, want res.partner", got)
	}
	if strings.Contains(buf.String(), "s3cr3t") || strings.Contains(buf.String(), "Example.com") {
		t.Errorf("log leaks sensitive data: %s", buf.String())
	}
}

func TestRedactingHandler_WithAttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(WrapHandler(slog.NewJSONHandler(&buf, nil))).
		With("password", "hunter2").
		With(slog.Group("odoo", slog.String("username", "api@warmano.de"), slog.String("db", "warmano")))
	logger.Info("connected")

	payload := decode(t, &buf)
	if got := payload["password"]; got != redactedValue {
		t.Errorf("password = %v, want %v", got, redactedValue)
	}
	group, ok := payload["odoo"].(map[string]any)
	if !ok {
		t.Fatalf("odoo group = %v", payload["odoo"])
	}
	if _, ok := group["username"]; ok {
		t.Error("username should be fingerprinted")
	}
	if got := group["db"]; got != "warmano" {
		t.Errorf("db = %v, want warmano", got)
	}
}

func TestRedactingHandler_Enabled(t *testing.T) {
	h := WrapHandler(slog.NewJSONHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn}))
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("Enabled(info) = true, want false")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("Enabled(error) = false, want true")
	}
	if WrapHandler(nil) != nil {
		t.Error("WrapHandler(nil) should be nil")
	}
	rec := slog.NewRecord(time.Now(), slog.LevelError, "msg", 0)
	if err := h.Handle(context.Background(), rec); err != nil {
		t.Errorf("Handle() error = %v", err)
	}
}

func TestFingerprintEmail(t *testing.T) {
	a := FingerprintEmail(" Max@Example.com ")
	b := FingerprintEmail("max@example.com")
	if a != b {
		t.Errorf("FingerprintEmail() not case-insensitive: %v != %v", a, b)
	}
	if !strings.HasPrefix(a, "fp_") || len(a) != 19 {
		t.Errorf("FingerprintEmail() = %q", a)
	}
	if FingerprintEmail("") != "" {
		t.Error("FingerprintEmail(\"\") should be empty")
	}
}
