package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestJSONLoggerCarriesService(t *testing.T) {
	var buf bytes.Buffer
	New("invoicehub-agent", "warn", "json", &buf).Info("dropped")
	New("invoicehub-agent", "warn", "json", &buf).Warn("poller_tick_failed", "timer", "stats")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected only the warn record, got %q", buf.String())
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if record["service"] != "invoicehub-agent" || record["msg"] != "poller_tick_failed" || record["timer"] != "stats" {
		t.Fatalf("unexpected record: %v", record)
	}
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	New("invoicehub", "debug", "TEXT", &buf).Debug("upload_batch_sent", "files", 5)
	if !strings.Contains(buf.String(), "msg=upload_batch_sent") || !strings.Contains(buf.String(), "files=5") {
		t.Fatalf("unexpected text output %q", buf.String())
	}
}
