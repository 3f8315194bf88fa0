package sink

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/alxayo/go-tlog/internal/tlog/chunk"
	"github.com/alxayo/go-tlog/internal/tlog/packet"
	"github.com/alxayo/go-tlog/internal/tlog/tstamp"
)

func TestNewResolvesIdentity(t *testing.T) {
	s, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.host == "" {
		t.Fatalf("expected non-empty host")
	}
	if s.session == "" {
		t.Fatalf("expected non-empty session id")
	}
}

func TestWrapAssignsIncreasingMessageIDs(t *testing.T) {
	s := &Sink{host: "h", user: "u", session: "sess"}
	c := chunk.New(chunk.SizeMin)

	pos := 0
	pkt := packet.NewIO(tstamp.New(1, 0), true, []byte("hi"))
	if !c.Write(pkt, &pos) {
		t.Fatalf("expected write to fit")
	}
	c.Flush()

	m1 := s.Wrap(c, tstamp.New(1, 0))
	m2 := s.Wrap(c, tstamp.New(1, 0))

	if m1.ID != 1 || m2.ID != 2 {
		t.Fatalf("expected message ids 1,2; got %d,%d", m1.ID, m2.ID)
	}
	if m1.Session != "sess" || m1.Host != "h" || m1.User != "u" {
		t.Fatalf("unexpected identity fields: %+v", m1)
	}
	if !strings.Contains(m1.OutputTxt, "hi") {
		t.Fatalf("expected output text to contain written bytes, got %q", m1.OutputTxt)
	}
}

func TestWrapUsesFallbackTimestampForEmptyChunk(t *testing.T) {
	s := &Sink{host: "h", user: "u", session: "sess"}
	c := chunk.New(chunk.SizeMin)

	ts := tstamp.New(42, 0)
	m := s.Wrap(c, ts)
	if m.Timestamp != 42 {
		t.Fatalf("expected fallback timestamp 42, got %d", m.Timestamp)
	}
}

func TestMessageMarshalsToJSON(t *testing.T) {
	s := &Sink{host: "h", user: "u", session: "sess"}
	c := chunk.New(chunk.SizeMin)
	m := s.Wrap(c, tstamp.New(1, 0))

	b, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var round map[string]any
	if err := json.Unmarshal(b, &round); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if round["type"] != messageType {
		t.Fatalf("expected type %q, got %v", messageType, round["type"])
	}
	if _, ok := round["in_txt"]; ok {
		t.Fatalf("expected empty in_txt omitted, got present: %v", round["in_txt"])
	}
}
