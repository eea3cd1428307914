package audit

import (
	"errors"
	"testing"
	"time"

	"github.com/devboost/secore/internal/testutil"
)

type captureSink struct {
	entries []Entry
	err     error
	panics  bool
}

func (c *captureSink) Emit(e Entry) error {
	if c.panics {
		panic("sink unavailable")
	}
	c.entries = append(c.entries, e)
	return c.err
}

func TestAuditor_EntryShape(t *testing.T) {
	sink := &captureSink{}
	clock := testutil.NewMockTime(time.Unix(1700000000, 0))
	a := New(
		WithSink(sink),
		WithClock(clock),
		WithSource("test-source"),
		WithSessionID(func() string { return "session-123" }),
		WithLogger(testutil.DiscardLogger()),
	)

	a.Log("login_attempt", map[string]any{"user": "alice"}, SeverityHigh)

	if len(sink.entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(sink.entries))
	}
	e := sink.entries[0]

	if e.ID == "" {
		t.Error("entry ID is empty")
	}
	if e.Event != "login_attempt" {
		t.Errorf("Event = %q", e.Event)
	}
	if e.Severity != SeverityHigh {
		t.Errorf("Severity = %q", e.Severity)
	}
	if e.Source != "test-source" {
		t.Errorf("Source = %q", e.Source)
	}
	if e.SessionID != "session-123" {
		t.Errorf("SessionID = %q", e.SessionID)
	}
	if e.Nonce == "" {
		t.Error("Nonce is empty")
	}
	if !e.Timestamp.Equal(clock.Now()) {
		t.Errorf("Timestamp = %v, want %v", e.Timestamp, clock.Now())
	}

	details, ok := e.Details.(map[string]any)
	if !ok || details["user"] != "alice" {
		t.Errorf("Details = %#v", e.Details)
	}
}

func TestAuditor_SanitizesEventAndDetails(t *testing.T) {
	sink := &captureSink{}
	a := New(WithSink(sink), WithLogger(testutil.DiscardLogger()))

	a.Log("<script>alert(1)</script>user_input", map[string]any{
		"payload": "javascript:steal()",
	}, SeverityCritical)

	e := sink.entries[0]
	if e.Event != "user_input" {
		t.Errorf("Event = %q, want script block stripped", e.Event)
	}
	details := e.Details.(map[string]any)
	if details["payload"] != "steal()" {
		t.Errorf("payload = %v, want scheme stripped", details["payload"])
	}
}

func TestAuditor_FreshNoncePerEntry(t *testing.T) {
	sink := &captureSink{}
	a := New(WithSink(sink), WithLogger(testutil.DiscardLogger()))

	a.Log("event", nil, SeverityLow)
	a.Log("event", nil, SeverityLow)

	if sink.entries[0].Nonce == sink.entries[1].Nonce {
		t.Error("correlation nonce reused across entries")
	}
	if sink.entries[0].ID == sink.entries[1].ID {
		t.Error("entry ID reused across entries")
	}
}

func TestAuditor_SinkErrorDoesNotPropagate(t *testing.T) {
	sink := &captureSink{err: errors.New("sink down")}
	a := New(WithSink(sink), WithLogger(testutil.DiscardLogger()))

	// Must not panic or surface the error.
	a.Log("event", nil, SeverityLow)
}

func TestAuditor_SinkPanicRecovered(t *testing.T) {
	sink := &captureSink{panics: true}
	a := New(WithSink(sink), WithLogger(testutil.DiscardLogger()))

	a.Log("event", nil, SeverityLow)
}

func TestAuditor_EmitRateCapDrops(t *testing.T) {
	sink := &captureSink{}
	a := New(
		WithSink(sink),
		WithEmitRate(5),
		WithLogger(testutil.DiscardLogger()),
	)

	for i := 0; i < 50; i++ {
		a.Log("flood", nil, SeverityLow)
	}

	// The cap admits the burst allowance and drops the rest instead of
	// blocking.
	if len(sink.entries) == 0 {
		t.Fatal("rate cap dropped every entry")
	}
	if len(sink.entries) > 6 {
		t.Errorf("entries = %d, want at most burst size", len(sink.entries))
	}
}

func TestAuditor_DisabledRateCap(t *testing.T) {
	sink := &captureSink{}
	a := New(
		WithSink(sink),
		WithEmitRate(0),
		WithLogger(testutil.DiscardLogger()),
	)

	for i := 0; i < 200; i++ {
		a.Log("event", nil, SeverityLow)
	}
	if len(sink.entries) != 200 {
		t.Errorf("entries = %d, want 200 with cap disabled", len(sink.entries))
	}
}

func TestSlogSink_NilLogger(t *testing.T) {
	s := &SlogSink{}
	if err := s.Emit(Entry{Event: "event"}); err != nil {
		t.Errorf("Emit() error = %v", err)
	}
}
