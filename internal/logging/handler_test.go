package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestHandlerJSONEncodesFields(t *testing.T) {
	var buf bytes.Buffer
	h := New(&buf, false)
	h.SetLevel(slog.LevelDebug)

	logger := slog.New(h)
	logger.Info("deploy started", "appName", "cam")

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["msg"] != "deploy started" {
		t.Fatalf("msg = %v", decoded["msg"])
	}
	if decoded["appName"] != "cam" {
		t.Fatalf("appName = %v", decoded["appName"])
	}
}

func TestHandlerPrettyIncludesLevelAndMessage(t *testing.T) {
	var buf bytes.Buffer
	h := New(&buf, true)
	h.SetLevel(slog.LevelInfo)

	logger := slog.New(h)
	logger.Warn("kill existing task failed", "app", "cam")

	out := buf.String()
	if !strings.Contains(out, "WARN") {
		t.Fatalf("expected WARN level in output: %q", out)
	}
	if !strings.Contains(out, "kill existing task failed") {
		t.Fatalf("expected message in output: %q", out)
	}
}

func TestHandlerEnabledRespectsLevel(t *testing.T) {
	h := New(&bytes.Buffer{}, false)
	h.SetLevel(slog.LevelWarn)

	if h.Enabled(nil, slog.LevelDebug) {
		t.Fatal("debug should not be enabled at warn level")
	}
	if !h.Enabled(nil, slog.LevelError) {
		t.Fatal("error should be enabled at warn level")
	}
}

func TestHandlerWithAttrsCarriesOverToChild(t *testing.T) {
	var buf bytes.Buffer
	h := New(&buf, false)
	h.SetLevel(slog.LevelInfo)

	logger := slog.New(h).With("component", "orchestrator")
	logger.Info("deploy complete")

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["component"] != "orchestrator" {
		t.Fatalf("component = %v", decoded["component"])
	}
}
