package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestWriteJSONLine(t *testing.T) {
	var buf bytes.Buffer
	SetCore(zapcore.AddSync(&buf))
	SetDebug(false)

	Info("server_start", map[string]any{"port": "8080"})
	Debug("sql", map[string]any{"sql": "SELECT 1"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line (debug suppressed), got %d: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("invalid json line: %v", err)
	}
	if entry["msg"] != "server_start" || entry["level"] != "info" || entry["port"] != "8080" {
		t.Fatalf("unexpected entry: %#v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("missing ts: %#v", entry)
	}
}

func TestSetDebugEnablesDebug(t *testing.T) {
	var buf bytes.Buffer
	SetCore(zapcore.AddSync(&buf))
	SetDebug(true)
	defer SetDebug(false)

	Debug("sql", nil)
	if !strings.Contains(buf.String(), `"msg":"sql"`) {
		t.Fatalf("debug entry missing: %q", buf.String())
	}
}
