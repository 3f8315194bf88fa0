package stream

import (
	"testing"

	"github.com/alxayo/go-tlog/internal/tlog/channel"
	"github.com/alxayo/go-tlog/internal/tlog/tstamp"
)

type fakeDispatcher struct{ rem int }

func (d *fakeDispatcher) Advance(ts tstamp.T) bool { return true }
func (d *fakeDispatcher) Reserve(n int) bool {
	if n > d.rem {
		return false
	}
	d.rem -= n
	return true
}
func (d *fakeDispatcher) Printf(s string) {}

func newTestStream(rem int) *Stream {
	ch := channel.New([4]byte{'<', '[', '{', '('}, &fakeDispatcher{rem: rem})
	return New(ch, SizeMin)
}

func TestWriteSimpleASCII(t *testing.T) {
	s := newTestStream(1000)
	ts := tstamp.New(0, 0)
	n := s.Write(ts, []byte("hello"))
	if n != 5 {
		t.Fatalf("written = %d, want 5", n)
	}
	if string(s.TxtBytes()) != "hello" {
		t.Fatalf("txt = %q, want %q", s.TxtBytes(), "hello")
	}
}

func TestWriteEscapesControlChars(t *testing.T) {
	s := newTestStream(1000)
	ts := tstamp.New(0, 0)
	s.Write(ts, []byte("\n\t\""))
	if string(s.TxtBytes()) != `\n\t\"` {
		t.Fatalf("txt = %q, want %q", s.TxtBytes(), `\n\t\"`)
	}
}

func TestWriteLowControlByteUsesUnicodeEscape(t *testing.T) {
	s := newTestStream(1000)
	ts := tstamp.New(0, 0)
	s.Write(ts, []byte{0x01})
	want := `\u0001`
	if string(s.TxtBytes()) != want {
		t.Fatalf("txt = %q, want %q", s.TxtBytes(), want)
	}
}

func TestWriteMultiByteValidCharacterVerbatim(t *testing.T) {
	s := newTestStream(1000)
	ts := tstamp.New(0, 0)
	euro := []byte("€") // 3-byte UTF-8 sequence
	n := s.Write(ts, euro)
	if n != 3 {
		t.Fatalf("written = %d, want 3", n)
	}
	if string(s.TxtBytes()) != string(euro) {
		t.Fatalf("txt = %x, want verbatim euro sign", s.TxtBytes())
	}
	if s.BinLen() != 0 {
		t.Fatalf("bin buffer should be untouched by a valid character")
	}
}

func TestWriteInvalidByteProducesReplacementAndBinary(t *testing.T) {
	s := newTestStream(1000)
	ts := tstamp.New(0, 0)
	n := s.Write(ts, []byte{0x80, 0x41}) // stray continuation byte, then 'A'
	if n != 2 {
		t.Fatalf("written = %d, want 2", n)
	}
	if string(s.TxtBytes()) != "\xef\xbf\xbdA" {
		t.Fatalf("txt = %x, want replacement char then 'A'", s.TxtBytes())
	}
	if string(s.BinBytes()) != "128" {
		t.Fatalf("bin = %q, want %q", s.BinBytes(), "128")
	}
}

func TestWriteIncompleteSequenceIsPending(t *testing.T) {
	s := newTestStream(1000)
	ts := tstamp.New(0, 0)
	n := s.Write(ts, []byte{0xE2, 0x82}) // first two bytes of euro sign
	if n != 2 {
		t.Fatalf("written = %d, want 2 (both bytes buffered, nothing emitted yet)", n)
	}
	if !s.IsPending() {
		t.Fatalf("stream should report pending after an incomplete sequence")
	}
	if s.TxtLen() != 0 {
		t.Fatalf("nothing should be emitted until the sequence completes or is cut")
	}
}

func TestCutFlushesPendingAsInvalid(t *testing.T) {
	s := newTestStream(1000)
	ts := tstamp.New(0, 0)
	s.Write(ts, []byte{0xE2, 0x82})
	if !s.Cut(ts) {
		t.Fatalf("cut failed")
	}
	if s.IsPending() {
		t.Fatalf("stream still pending after cut")
	}
	if string(s.TxtBytes()) != "\xef\xbf\xbd" {
		t.Fatalf("txt after cut = %x, want one replacement char", s.TxtBytes())
	}
	if string(s.BinBytes()) != "226,130" {
		t.Fatalf("bin after cut = %q, want %q", s.BinBytes(), "226,130")
	}
}

func TestWriteFailsWhenOutOfSpace(t *testing.T) {
	s := newTestStream(0)
	ts := tstamp.New(0, 0)
	n := s.Write(ts, []byte("x"))
	if n != 0 {
		t.Fatalf("written = %d, want 0 with no budget", n)
	}
}

func TestSnapshotRestoreUndoesWrite(t *testing.T) {
	s := newTestStream(1000)
	ts := tstamp.New(0, 0)
	s.Write(ts, []byte("abc"))
	snap := s.Snapshot()

	s.Write(ts, []byte("def"))
	s.Restore(snap)

	if string(s.TxtBytes()) != "abc" {
		t.Fatalf("txt after restore = %q, want %q", s.TxtBytes(), "abc")
	}
}

func TestEmptyClearsBuffersNotPendingChar(t *testing.T) {
	s := newTestStream(1000)
	ts := tstamp.New(0, 0)
	s.Write(ts, []byte("ab"))
	s.Write(ts, []byte{0xE2}) // start of an incomplete sequence

	s.Empty()

	if !s.IsEmpty() {
		t.Fatalf("stream not empty after Empty")
	}
	if !s.IsPending() {
		t.Fatalf("Empty must not clear a pending incomplete character")
	}
}
