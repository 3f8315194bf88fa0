package fork

import (
	"testing"

	"github.com/alxayo/go-tlog/internal/tlog/tstamp"
)

// fakeDispatcher is a minimal dispatcher.Dispatcher recording every call
// so tests can assert on the exact sequence of advance/reserve/printf
// the fork issues.
type fakeDispatcher struct {
	rem      int
	advanced []tstamp.T
	printed  []string
	failNext bool // forces the next Reserve to fail without debiting
}

func (d *fakeDispatcher) Advance(ts tstamp.T) bool {
	d.advanced = append(d.advanced, ts)
	return true
}

func (d *fakeDispatcher) Reserve(n int) bool {
	if d.failNext {
		d.failNext = false
		return false
	}
	if n > d.rem {
		return false
	}
	d.rem -= n
	return true
}

func (d *fakeDispatcher) Printf(s string) {
	d.printed = append(d.printed, s)
}

func TestForkAccountsSingleRun(t *testing.T) {
	d := &fakeDispatcher{rem: 100}
	f := New('<', '[', d)

	ts := tstamp.New(0, 0)
	if !f.Account(ts, true, 3) {
		t.Fatalf("Account failed unexpectedly")
	}
	if f.len != 3 {
		t.Fatalf("len = %d, want 3", f.len)
	}
	// marker(1) + first digit(1) = 2 reserved, no extra digits yet.
	if d.rem != 98 {
		t.Fatalf("rem = %d, want 98", d.rem)
	}
}

func TestForkFlushDiffersEndsRun(t *testing.T) {
	d := &fakeDispatcher{rem: 100}
	f := New('<', '[', d)
	ts := tstamp.New(0, 0)

	f.Account(ts, true, 2)
	f.Account(ts, false, 1) // validity flips: flushes the ack run first

	if len(d.printed) != 1 {
		t.Fatalf("printed = %v, want exactly one flush", d.printed)
	}
	if d.printed[0] != "<2" {
		t.Fatalf("printed[0] = %q, want %q", d.printed[0], "<2")
	}
	if f.ack {
		t.Fatalf("ack run still active after flip")
	}
	if f.len != 1 {
		t.Fatalf("len = %d, want 1", f.len)
	}
}

func TestForkFlushEmitsMarkerAndLength(t *testing.T) {
	d := &fakeDispatcher{rem: 100}
	f := New('<', '[', d)
	ts := tstamp.New(0, 0)

	f.Account(ts, false, 5)
	f.Flush()

	if len(d.printed) != 1 || d.printed[0] != "[5" {
		t.Fatalf("printed = %v, want [\"[5\"]", d.printed)
	}
	if !f.Empty() {
		t.Fatalf("fork not empty after flush")
	}
}

func TestForkDigitRollover(t *testing.T) {
	d := &fakeDispatcher{rem: 100}
	f := New('<', '[', d)
	ts := tstamp.New(0, 0)

	// First piece: run starts, reserves marker+1 digit (req=2).
	if !f.Account(ts, true, 9) {
		t.Fatalf("account 9 failed")
	}
	used := 100 - d.rem
	if used != 2 {
		t.Fatalf("used = %d after 9 pieces, want 2 (still 1 digit)", used)
	}

	// One more piece crosses len=10, needs a second digit.
	if !f.Account(ts, true, 1) {
		t.Fatalf("account 1 failed")
	}
	used = 100 - d.rem
	if used != 3 {
		t.Fatalf("used = %d after crossing 10, want 3 (2 digits now)", used)
	}
	if f.len != 10 {
		t.Fatalf("len = %d, want 10", f.len)
	}
}

func TestForkAccountFailsOnNoRoomAdvancesStill(t *testing.T) {
	d := &fakeDispatcher{rem: 1}
	f := New('<', '[', d)
	ts := tstamp.New(0, 0)

	if f.Account(ts, true, 3) {
		t.Fatalf("Account should have failed: only 1 byte available, need 2")
	}
	if len(d.advanced) != 1 {
		t.Fatalf("Advance should still be called even if Reserve fails")
	}
	if f.len != 0 {
		t.Fatalf("len = %d, want 0 (failed account must not commit)", f.len)
	}
}

func TestForkZeroLengthPieceIsNoop(t *testing.T) {
	d := &fakeDispatcher{rem: 0}
	f := New('<', '[', d)
	ts := tstamp.New(0, 0)

	if !f.Account(ts, true, 0) {
		t.Fatalf("zero-length piece must always succeed")
	}
	if len(d.advanced) != 0 {
		t.Fatalf("zero-length piece must not advance time")
	}
}

func TestNewPanicsOnIdenticalMarkers(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on identical ack/nak markers")
		}
	}()
	New('<', '<', &fakeDispatcher{})
}
