// Package fork implements the run-length counter used by each side of a
// channel to compress consecutive data pieces of the same validity
// (valid/ack or invalid/nak) into a single run atom.
package fork

import (
	"github.com/alxayo/go-tlog/internal/tlog/dispatcher"
	"github.com/alxayo/go-tlog/internal/tlog/tstamp"
)

// Fork accumulates a run of same-validity data pieces and flushes it as a
// single "<markerlen" atom through its dispatcher once the run ends.
// A Fork is not safe for concurrent use.
type Fork struct {
	markAck byte
	markNak byte
	disp    dispatcher.Dispatcher

	len int  // pieces accumulated into the current run
	dig int  // power-of-ten threshold at which len gains another digit
	ack bool // validity of the current run
}

// New creates a fork bound to disp, using ack as the marker for valid
// runs and nak as the marker for invalid runs. ack and nak must differ.
func New(ack, nak byte, disp dispatcher.Dispatcher) *Fork {
	if ack == nak {
		panic("fork: ack and nak markers must differ")
	}
	if disp == nil {
		panic("fork: nil dispatcher")
	}
	return &Fork{markAck: ack, markNak: nak, disp: disp}
}

// IsValid reports whether f is in a self-consistent state. Exposed
// mainly for tests; production code relies on the type's own invariants.
func (f *Fork) IsValid() bool {
	return f != nil && f.markAck != f.markNak && f.disp != nil &&
		(f.len == 0 || f.len < f.dig)
}

// Account records one data piece of length n, timestamped ts and tagged
// ack (valid) or not, against the run budget. It advances the shared
// dispatcher time first, which may flush an unrelated run, then flushes
// the current run if its validity differs from ack before folding n into
// the (possibly fresh) run. Reports false if there was no room to
// account for the extra digits the growing counter requires; whatever
// the dispatcher already committed to via Advance, and a previous run
// already flushed because its validity differed, stay committed.
func (f *Fork) Account(ts tstamp.T, ack bool, n int) bool {
	if n == 0 {
		return true
	}
	if !f.disp.Advance(ts) {
		return false
	}

	if f.len > 0 && ack != f.ack {
		f.Flush()
	}

	newLen := f.len
	newDig := f.dig
	var req int

	if newLen == 0 {
		newDig = 10
		req = 2 // marker byte + first digit
	}

	for remaining := n; remaining > 0; remaining-- {
		newLen++
		if newLen >= newDig {
			req++
			newDig *= 10
		}
	}

	if !f.disp.Reserve(req) {
		return false
	}

	f.len = newLen
	f.dig = newDig
	f.ack = ack
	return true
}

// Reserve debits n bytes from the shared budget on this fork's behalf,
// for encoded content the fork itself does not track (e.g. the literal
// bytes of the data piece, as opposed to the run-length atom describing
// it).
func (f *Fork) Reserve(n int) bool {
	if n == 0 {
		return true
	}
	return f.disp.Reserve(n)
}

// Flush emits the accumulated run, if any, as a single atom and resets
// the counter. A no-op on an empty fork.
func (f *Fork) Flush() {
	if f.len == 0 {
		return
	}
	marker := f.markNak
	if f.ack {
		marker = f.markAck
	}
	f.disp.Printf(runAtom(marker, f.len))
	f.len = 0
	f.dig = 0
}

// Empty reports whether the fork has no accumulated run.
func (f *Fork) Empty() bool { return f.len == 0 }

// Snapshot is an opaque capture of a Fork's mutable run state.
type Snapshot struct {
	len int
	dig int
	ack bool
}

// Snapshot captures the current run state for a later Restore.
func (f *Fork) Snapshot() Snapshot {
	return Snapshot{len: f.len, dig: f.dig, ack: f.ack}
}

// Restore reverts f to the state captured by s.
func (f *Fork) Restore(s Snapshot) {
	f.len = s.len
	f.dig = s.dig
	f.ack = s.ack
}
