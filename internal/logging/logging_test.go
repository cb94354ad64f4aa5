package logging

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLogfmtOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Info).With(F("dialog_id", "d1"))
	logger.Debug("hidden")
	logger.Info("stream_close", F("events", 3), F("error", "read failed: eof"))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line should be filtered: %q", out)
	}
	for _, want := range []string{"level=info", "msg=stream_close", "dialog_id=d1", "events=3", `error="read failed: eof"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
}

func TestLineLayout(t *testing.T) {
	var buf bytes.Buffer
	clock := func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	logger := New(&buf, Debug, WithClock(clock)).With(F("component", "sse"))
	logger.Warn("frame_dropped", F("err", errors.New("bad json")), F("took", 1500*time.Millisecond), F("ok", false))

	want := `ts=2026-03-01T12:00:00Z level=warn msg=frame_dropped component=sse err="bad json" took=1.5s ok=false` + "\n"
	if got := buf.String(); got != want {
		t.Fatalf("unexpected line:\n got %q\nwant %q", got, want)
	}
}

func TestWithDoesNotLeakFields(t *testing.T) {
	var buf bytes.Buffer
	base := New(&buf, Info)
	_ = base.With(F("dialog_id", "d1"))
	base.Info("plain")
	if strings.Contains(buf.String(), "dialog_id") {
		t.Fatalf("expected parent logger unchanged, got %q", buf.String())
	}
}

func TestNewRequestID(t *testing.T) {
	a, b := NewRequestID(), NewRequestID()
	if len(a) != 16 || a == b {
		t.Fatalf("expected distinct 16-char ids, got %q %q", a, b)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{"debug": Debug, " WARN ": Warn, "warning": Warn, "error": Error, "": Info, "verbose": Info}
	for raw, want := range cases {
		if got := ParseLevel(raw); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestOpenFileAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ui.log")
	for i := 0; i < 2; i++ {
		logger, closer, err := OpenFile(path, Debug)
		if err != nil {
			t.Fatalf("OpenFile: %v", err)
		}
		logger.Debug("line")
		if err := closer.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got := strings.Count(string(data), "msg=line"); got != 2 {
		t.Fatalf("expected two lines, got %d: %q", got, data)
	}
}
