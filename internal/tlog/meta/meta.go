// Package meta implements the chunk's metadata track: the append-only
// sequence of delay records and run/window atoms that describes how the
// input and output streams interleave in time.
package meta

import "github.com/alxayo/go-tlog/internal/tlog/tstamp"

// SizeMin is the smallest meta buffer size accepted by New.
const SizeMin = 32

// Meta accumulates the metadata track bytes for one chunk.
type Meta struct {
	buf []byte // grows up to the capacity passed to New, never shrinks in place

	first tstamp.T // timestamp of the first record written
	last  tstamp.T // timestamp of the most recently written record
	next  tstamp.T // timestamp set for the record about to be written

	delayLen int  // length reserved for the delay record preceding the next write
	written  bool // true once at least one record has been written
}

// New creates an empty meta track with capacity for size bytes.
func New(size int) *Meta {
	if size < SizeMin {
		panic("meta: size below SizeMin")
	}
	return &Meta{buf: make([]byte, 0, size)}
}

// Set records next as the timestamp of the record about to be written,
// reserving (the increase in) the delay record's length against rem.
// next must be equal to or later than the previously set timestamp.
// Returns false, leaving rem unchanged, if the reservation doesn't fit.
func (m *Meta) Set(next tstamp.T, rem *int) bool {
	if m.written {
		if tstamp.Cmp(m.next, next) > 0 {
			panic("meta: Set called with a timestamp earlier than the last one")
		}
		newDelayLen := tstamp.DelayLen(m.last, next)
		if newDelayLen < m.delayLen {
			panic("meta: delay record length shrank, timestamps must be monotonic")
		}
		inc := newDelayLen - m.delayLen
		if inc > *rem {
			return false
		}
		*rem -= inc
		m.delayLen += inc
	}
	m.next = next
	return true
}

// Write appends an already-reserved record to the track, prepending the
// delay record accrued since the last write (if any). The caller must
// have reserved exactly len(s) bytes for the record itself via the
// dispatcher before calling Write; the delay record's space was already
// reserved incrementally by Set.
func (m *Meta) Write(s string) {
	if len(s) == 0 {
		return
	}
	if m.written {
		m.buf = append(m.buf, tstamp.Delay(m.last, m.next)...)
	} else {
		m.first = m.next
		m.written = true
	}
	m.last = m.next
	m.delayLen = 0
	m.buf = append(m.buf, s...)
}

// Bytes returns the metadata track's accumulated bytes.
func (m *Meta) Bytes() []byte { return m.buf }

// Len reports the current size of the metadata track in bytes.
func (m *Meta) Len() int { return len(m.buf) }

// Written reports whether any record has been written yet.
func (m *Meta) Written() bool { return m.written }

// First returns the timestamp of the first record written. Meaningless
// if Written is false.
func (m *Meta) First() tstamp.T { return m.first }

// Last returns the timestamp of the most recently written record.
// Meaningless if Written is false.
func (m *Meta) Last() tstamp.T { return m.last }

// Empty resets the track to its initial, empty state.
func (m *Meta) Empty() {
	m.buf = m.buf[:0]
	m.first = tstamp.T{}
	m.last = tstamp.T{}
	m.next = tstamp.T{}
	m.delayLen = 0
	m.written = false
}

// Snapshot is an opaque capture of a Meta's mutable state, used by the
// owning chunk to undo a failed packet write atomically.
type Snapshot struct {
	len      int
	first    tstamp.T
	last     tstamp.T
	next     tstamp.T
	delayLen int
	written  bool
}

// Snapshot captures the current state for a later Restore.
func (m *Meta) Snapshot() Snapshot {
	return Snapshot{
		len:      len(m.buf),
		first:    m.first,
		last:     m.last,
		next:     m.next,
		delayLen: m.delayLen,
		written:  m.written,
	}
}

// Restore reverts m to the state captured by s. s must have been taken
// from this same Meta and no Empty call may have happened since.
func (m *Meta) Restore(s Snapshot) {
	m.buf = m.buf[:s.len]
	m.first = s.first
	m.last = s.last
	m.next = s.next
	m.delayLen = s.delayLen
	m.written = s.written
}
