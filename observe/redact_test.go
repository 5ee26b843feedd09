package observe

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestRedactor_Scrub(t *testing.T) {
	r := NewRedactor()
	r.Add("hunter2", "s3cr3t", "")

	got := r.Scrub("login with hunter2 and s3cr3t failed")
	if strings.Contains(got, "hunter2") || strings.Contains(got, "s3cr3t") {
		t.Fatalf("secret values survived scrubbing: %q", got)
	}
	if !strings.Contains(got, "[redacted]") {
		t.Fatalf("expected placeholder in %q", got)
	}

	// Empty registered values must not mangle unrelated text.
	if got := r.Scrub("plain text"); got != "plain text" {
		t.Fatalf("Scrub() changed clean text: %q", got)
	}
}

func TestRedactingLogger_ScrubsMessageAndFields(t *testing.T) {
	var buf bytes.Buffer
	red := NewRedactor()
	red.Add("hunter2")
	logger := NewRedactingLogger(NewJSONLogger(&buf, false), red)

	logger.Error("push failed: bad password hunter2", map[string]any{
		"output":  "denied for user with password hunter2",
		"attempt": 2,
	})

	out := buf.String()
	if strings.Contains(out, "hunter2") {
		t.Fatalf("secret leaked into log output: %s", out)
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v", err)
	}
	if entry["level"] != "error" {
		t.Fatalf("expected error level, got %v", entry["level"])
	}
	if entry["attempt"] != float64(2) {
		t.Fatalf("non-string field altered: %v", entry["attempt"])
	}
}

func TestJSONLogger_DebugGatedOnVerbose(t *testing.T) {
	var buf bytes.Buffer
	NewJSONLogger(&buf, false).Debug("hidden", nil)
	if buf.Len() != 0 {
		t.Fatalf("debug written without verbose: %s", buf.String())
	}
	NewJSONLogger(&buf, true).Debug("shown", nil)
	if !strings.Contains(buf.String(), "shown") {
		t.Fatal("verbose debug entry missing")
	}
}

func TestChannelEmitter_DropsWhenFull(t *testing.T) {
	ce := NewChannelEmitter(1)
	ce.Emit(StageEvent{Kind: StageStarted, Stage: "build"})
	ce.Emit(StageEvent{Kind: StagePhase, Stage: "build"}) // dropped, buffer full

	e := <-ce.C
	if e.Kind != StageStarted {
		t.Fatalf("expected first event, got %s", e.Kind)
	}
	select {
	case e := <-ce.C:
		t.Fatalf("expected second event dropped, got %s", e.Kind)
	default:
	}
}

func TestLogEmitter_LevelsByOutcome(t *testing.T) {
	var buf bytes.Buffer
	le := &LogEmitter{Logger: NewJSONLogger(&buf, false)}

	le.Emit(StageEvent{Kind: RunFinished, Run: 1, Status: "Succeeded"})
	le.Emit(StageEvent{Kind: RunFinished, Run: 2, Status: "Failed", Err: "stage build: boom"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], `"level":"info"`) {
		t.Fatalf("successful run should log at info: %s", lines[0])
	}
	if !strings.Contains(lines[1], `"level":"error"`) {
		t.Fatalf("failed run should log at error: %s", lines[1])
	}
}
