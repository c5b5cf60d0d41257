package telemetry

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func TestWrapLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := WrapLogger(log.New(&buf, "", 0))

	logger.Printf("hello %s", "world")
	if got := strings.TrimSpace(buf.String()); got != "hello world" {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestLoggerFuncNilSafe(t *testing.T) {
	var fn LoggerFunc
	fn.Printf("must not panic")
}

func TestCounters(t *testing.T) {
	var counters Counters

	counters.Add("packets", 2)
	counters.Add("packets", 3)
	counters.Store("sessions", 7)

	snap := counters.Snapshot()
	if snap["packets"] != 5 {
		t.Fatalf("expected packets=5, got %d", snap["packets"])
	}
	if snap["sessions"] != 7 {
		t.Fatalf("expected sessions=7, got %d", snap["sessions"])
	}

	var nilCounters *Counters
	nilCounters.Add("x", 1)
	if nilCounters.Snapshot() != nil {
		t.Fatal("nil counters should snapshot to nil")
	}
}
