package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestInfoWritesJSONLineWithFields(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "json", false)
	defer InitWithWriter(&buf, "INFO", "text", false)

	Info("commit applied", "db", "running", "bytes", 128)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("unmarshal log line: %v (raw: %s)", err, buf.String())
	}
	if line["msg"] != "commit applied" || line["db"] != "running" {
		t.Fatalf("unexpected log line: %v", line)
	}
}

func TestDebugSuppressedBelowConfiguredLevel(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "WARN", "text", false)
	defer InitWithWriter(&buf, "INFO", "text", false)

	Debug("should not appear")
	Info("should not appear either")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below WARN, got %q", buf.String())
	}

	Warn("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Fatalf("expected WARN line to be written, got %q", buf.String())
	}
}

func TestInfoCtxInjectsRequestScope(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "text", false)
	defer InitWithWriter(&buf, "INFO", "text", false)

	ctx := WithContext(context.Background(), &RequestScope{Database: "running", Operation: "put"})
	InfoCtx(ctx, "merge complete")

	out := buf.String()
	if !strings.Contains(out, "database=running") || !strings.Contains(out, "operation=put") {
		t.Fatalf("expected scope fields in output, got %q", out)
	}
}
