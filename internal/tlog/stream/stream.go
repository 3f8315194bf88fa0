// Package stream implements one direction of I/O (input or output) of a
// chunk: a UTF-8 re-synchronization filter feeding a pair of encoded
// buffers (JSON string text, JSON array binary) and the channel that
// run-length-compresses their validity into the meta track.
package stream

import (
	"strconv"

	"github.com/alxayo/go-tlog/internal/tlog/channel"
	"github.com/alxayo/go-tlog/internal/tlog/fork"
	"github.com/alxayo/go-tlog/internal/tlog/tstamp"
	"github.com/alxayo/go-tlog/internal/tlog/utf8"
)

// SizeMin is the smallest text/binary buffer size accepted by New.
const SizeMin = 32

// replacement is the UTF-8 encoding of U+FFFD, written to the text
// buffer in place of each invalid byte sequence.
var replacement = []byte{0xef, 0xbf, 0xbd}

// Stream holds the encoded text and binary buffers for one direction of
// I/O, and the UTF-8 filter re-synchronizing the raw bytes fed to it.
type Stream struct {
	ch   *channel.Channel
	size int

	filter utf8.Filter

	txtBuf []byte
	binBuf []byte
}

// New creates a stream of capacity size for each of its two buffers,
// run-length-accounted through ch.
func New(ch *channel.Channel, size int) *Stream {
	if size < SizeMin {
		panic("stream: size below SizeMin")
	}
	if ch == nil {
		panic("stream: nil channel")
	}
	return &Stream{
		ch:     ch,
		size:   size,
		txtBuf: make([]byte, 0, size),
		binBuf: make([]byte, 0, size),
	}
}

// IsPending reports whether an incomplete multi-byte character is
// currently buffered in the UTF-8 filter.
func (s *Stream) IsPending() bool {
	return s.filter.IsStarted()
}

// IsEmpty reports whether both encoded buffers are empty. A pending
// incomplete character does not count.
func (s *Stream) IsEmpty() bool {
	return len(s.txtBuf) == 0 && len(s.binBuf) == 0
}

// TxtLen and BinLen report the current size of each encoded buffer.
func (s *Stream) TxtLen() int { return len(s.txtBuf) }
func (s *Stream) BinLen() int { return len(s.binBuf) }

// TxtBytes and BinBytes return the accumulated encoded buffers.
func (s *Stream) TxtBytes() []byte { return s.txtBuf }
func (s *Stream) BinBytes() []byte { return s.binBuf }

// btoaLen returns the decimal digit count of b, exactly as encBin will
// render it.
func btoaLen(b byte) int {
	switch {
	case b >= 100:
		return 3
	case b >= 10:
		return 2
	default:
		return 1
	}
}

// encBin appends the decimal rendering of each byte in buf to the binary
// buffer as a comma-separated JSON array body, accounting one run piece
// per byte through f. Returns false, leaving s unmodified, if the
// encoded bytes or the updated run counter don't fit the remaining
// chunk budget.
func (s *Stream) encBin(f *fork.Fork, ts tstamp.T, ack bool, buf []byte) bool {
	if len(buf) == 0 {
		return true
	}
	out := make([]byte, 0, len(buf)*4)
	for _, b := range buf {
		if !f.Account(ts, ack, 1) {
			return false
		}
		needComma := len(s.binBuf)+len(out) > 0
		digits := btoaLen(b)
		req := digits
		if needComma {
			req++
		}
		if !f.Reserve(req) {
			return false
		}
		if needComma {
			out = append(out, ',')
		}
		out = strconv.AppendInt(out, int64(b), 10)
	}
	s.binBuf = append(s.binBuf, out...)
	return true
}

// escapedLen returns the JSON string escape length of a single byte, for
// bytes written alone (ilen == 1 in the original encoder).
func escapedLen(c byte) int {
	switch c {
	case '"', '\\', '\b', '\f', '\n', '\r', '\t':
		return 2
	default:
		if c < 0x20 || c == 0x7f {
			return 6
		}
		return 1
	}
}

func appendEscaped(out []byte, c byte) []byte {
	switch c {
	case '"':
		return append(out, '\\', '"')
	case '\\':
		return append(out, '\\', '\\')
	case '\b':
		return append(out, '\\', 'b')
	case '\f':
		return append(out, '\\', 'f')
	case '\n':
		return append(out, '\\', 'n')
	case '\r':
		return append(out, '\\', 'r')
	case '\t':
		return append(out, '\\', 't')
	default:
		if c < 0x20 || c == 0x7f {
			const hex = "0123456789abcdef"
			return append(out, '\\', 'u', '0', '0', hex[c>>4], hex[c&0xf])
		}
		return append(out, c)
	}
}

// encTxt appends buf to the text buffer as a single run piece,
// reproducing it verbatim if it is a multi-byte character, or escaping
// it as a single JSON string byte otherwise. Returns false, leaving s
// unmodified, if it doesn't fit.
func (s *Stream) encTxt(f *fork.Fork, ts tstamp.T, ack bool, buf []byte) bool {
	if len(buf) == 0 {
		return true
	}
	if !f.Account(ts, ack, 1) {
		return false
	}
	var req int
	if len(buf) > 1 {
		req = len(buf)
	} else {
		req = escapedLen(buf[0])
	}
	if !f.Reserve(req) {
		return false
	}
	if len(buf) > 1 {
		s.txtBuf = append(s.txtBuf, buf...)
	} else {
		s.txtBuf = appendEscaped(s.txtBuf, buf[0])
	}
	return true
}

// writeSeq atomically writes one classified byte sequence: a valid
// multi-byte character goes to the text buffer verbatim; an invalid
// sequence goes to the text buffer as a replacement character and to
// the binary buffer as its raw bytes.
func (s *Stream) writeSeq(ts tstamp.T, valid bool, buf []byte) bool {
	if len(buf) == 0 {
		return true
	}
	if valid {
		return s.encTxt(s.ch.Txt, ts, true, buf)
	}
	if !s.encTxt(s.ch.Txt, ts, false, replacement) {
		return false
	}
	return s.encBin(s.ch.Bin, ts, true, buf)
}

// Write feeds buf through the UTF-8 filter, encoding each classified
// sequence as it completes. It returns the number of leading bytes of
// buf consumed. Bytes of an incomplete multi-byte character left
// buffered in the filter at the end of buf (pending, to be resolved by
// a later Write or by Cut) count as consumed; the result is fewer than
// len(buf) only when encoding failed to fit the remaining chunk budget
// partway through.
func (s *Stream) Write(ts tstamp.T, buf []byte) int {
	pos := 0
	for {
		start, f0 := pos, s.filter
		for pos < len(buf) {
			b := buf[pos]
			if s.filter.Add(b) {
				pos++
			}
			if s.filter.IsEnded() {
				break
			}
		}
		if pos >= len(buf) && !s.filter.IsEnded() {
			return pos
		}

		if s.filter.IsEmpty() {
			// The first byte encountered was itself invalid.
			if !s.writeSeq(ts, false, buf[pos:pos+1]) {
				s.filter.Reset()
				return pos
			}
			pos++
		} else {
			seq, _ := s.filter.Bytes()
			if !s.writeSeq(ts, s.filter.IsComplete(), seq) {
				s.filter = f0
				return start
			}
		}
		s.filter.Reset()
	}
}

// Cut writes out whatever incomplete character is currently pending in
// the UTF-8 filter, as an invalid sequence, and resets the filter.
// Returns false, leaving the filter untouched, if it didn't fit.
func (s *Stream) Cut(ts tstamp.T) bool {
	if !s.filter.IsStarted() {
		return true
	}
	seq, _ := s.filter.Bytes()
	if !s.writeSeq(ts, false, seq) {
		return false
	}
	s.filter.Reset()
	return true
}

// Flush flushes the underlying channel's run counters to the meta
// track.
func (s *Stream) Flush() {
	s.ch.Flush()
}

// Empty clears both encoded buffers. The UTF-8 filter's pending state,
// if any, is left untouched.
func (s *Stream) Empty() {
	s.txtBuf = s.txtBuf[:0]
	s.binBuf = s.binBuf[:0]
}

// Snapshot is an opaque capture of a Stream's mutable state.
type Snapshot struct {
	filter utf8.Filter
	txtLen int
	binLen int
	ch     channel.Snapshot
}

// Snapshot captures the current state for a later Restore.
func (s *Stream) Snapshot() Snapshot {
	return Snapshot{
		filter: s.filter,
		txtLen: len(s.txtBuf),
		binLen: len(s.binBuf),
		ch:     s.ch.Snapshot(),
	}
}

// Restore reverts s to the state captured by snap.
func (s *Stream) Restore(snap Snapshot) {
	s.filter = snap.filter
	s.txtBuf = s.txtBuf[:snap.txtLen]
	s.binBuf = s.binBuf[:snap.binLen]
	s.ch.Restore(snap.ch)
}
