package notification

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewEventStamps(t *testing.T) {
	evt := NewEvent(KindResultRecorded, "a1", "BC100", "Negative")
	if evt.ID == "" {
		t.Error("expected event id")
	}
	if evt.OccurredAt.IsZero() {
		t.Error("expected occurred_at")
	}
	if evt.Kind != KindResultRecorded {
		t.Errorf("unexpected kind %s", evt.Kind)
	}
}

func TestLogNotifierWritesEvent(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	n := NewLogNotifier(logger)

	err := n.Notify(context.Background(), NewEvent(KindResultConfirmed, "a1", "BC100", "Positive"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "BC100") || !strings.Contains(out, KindResultConfirmed) {
		t.Errorf("log output missing fields: %s", out)
	}
}

func TestMemoryRecords(t *testing.T) {
	n := NewMemory()
	n.Notify(context.Background(), NewEvent(KindResultRecorded, "a1", "BC100", "Negative"))
	n.Notify(context.Background(), NewEvent(KindResultConfirmed, "a1", "BC100", "Positive"))

	events := n.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[1].Result != "Positive" {
		t.Errorf("unexpected second event: %+v", events[1])
	}
}

func TestMemoryFailWith(t *testing.T) {
	n := NewMemory()
	n.FailWith(errors.New("smtp down"))
	if err := n.Notify(context.Background(), NewEvent(KindResultRecorded, "a1", "BC100", "Negative")); err == nil {
		t.Error("expected error")
	}
	if len(n.Events()) != 0 {
		t.Error("failed notify should record nothing")
	}
}
