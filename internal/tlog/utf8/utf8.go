// Package utf8 implements the byte-at-a-time UTF-8 re-synchronization
// filter the stream encoder uses to classify each incoming byte sequence
// as a valid or invalid character.
package utf8

// Filter accumulates up to four bytes of a single UTF-8 sequence and
// classifies it as it grows. It is not safe for concurrent use.
type Filter struct {
	buf      [4]byte
	len      int
	expected int // total bytes expected once len > 0 and started
	ended    bool
	complete bool
}

// Reset returns the filter to its empty state.
func (f *Filter) Reset() {
	*f = Filter{}
}

// IsEmpty reports whether no bytes have been accumulated yet.
func (f *Filter) IsEmpty() bool { return f.len == 0 }

// IsStarted reports whether at least one byte has been accumulated.
func (f *Filter) IsStarted() bool { return f.len > 0 }

// IsEnded reports whether the sequence has been classified (complete,
// valid, or rejected).
func (f *Filter) IsEnded() bool { return f.ended }

// IsComplete reports whether the ended sequence is a complete, valid
// character. Meaningless unless IsEnded is true.
func (f *Filter) IsComplete() bool { return f.complete }

// Bytes returns the accumulated prefix and its length.
func (f *Filter) Bytes() ([]byte, int) { return f.buf[:f.len], f.len }

func leadLen(b byte) int {
	switch {
	case b < 0x80:
		return 1
	case b&0xE0 == 0xC0:
		if b == 0xC0 || b == 0xC1 {
			return -1 // overlong-only lead bytes, never valid
		}
		return 2
	case b&0xF0 == 0xE0:
		return 3
	case b&0xF8 == 0xF0:
		if b >= 0xF5 {
			return -1
		}
		return 4
	default:
		return -1 // continuation byte or 0xF8..0xFF
	}
}

// Add feeds one byte into the filter. It returns true if the byte was
// accepted into the current sequence, false if it was refused (the
// caller must then either, in the empty-filter case, emit the refused
// byte as a single invalid byte and move past it, or flush the
// accumulated prefix as an invalid run and retry the same byte against
// a freshly reset filter).
func (f *Filter) Add(b byte) bool {
	if f.ended {
		panic("utf8: Add called on an ended filter")
	}
	if f.len == 0 {
		n := leadLen(b)
		if n < 0 {
			f.ended = true
			f.complete = false
			return false
		}
		f.buf[0] = b
		f.len = 1
		f.expected = n
		if n == 1 {
			f.ended = true
			f.complete = true
		}
		return true
	}
	if b&0xC0 != 0x80 {
		f.ended = true
		f.complete = false
		return false
	}
	f.buf[f.len] = b
	f.len++
	if f.len == f.expected {
		f.ended = true
		f.complete = true
	}
	return true
}
