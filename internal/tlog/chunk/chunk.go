// Package chunk implements the fixed-capacity, transactional coordinator
// that assembles terminal I/O and window packets into a single JSON
// payload: a meta track of delay/run/window records alongside four
// encoded buffers (input text, input binary, output text, output
// binary), all sharing one byte budget.
//
// Chunk owns the shared budget ("rem") and implements the dispatcher
// capability every fork and the meta track use to charge against it, so
// a packet write either fits entirely (subject to the rules below) or
// leaves the chunk exactly as it was.
package chunk

import (
	"fmt"

	"github.com/alxayo/go-tlog/internal/tlog/channel"
	"github.com/alxayo/go-tlog/internal/tlog/meta"
	"github.com/alxayo/go-tlog/internal/tlog/packet"
	"github.com/alxayo/go-tlog/internal/tlog/stream"
	"github.com/alxayo/go-tlog/internal/tlog/tstamp"
)

// SizeMin is the smallest chunk size New will accept.
const SizeMin = stream.SizeMin

// Marker alphabets for the input and output channels: first pair is the
// text fork's ack/nak markers, second pair the binary fork's. The
// reference sources disagree on whether text and binary runs share one
// marker pair or use four distinct ones; this encoder
// uses four, following lib/channel.c's tlog_channel_init contract.
var (
	inputMarks  = [4]byte{'<', '[', '{', '('}
	outputMarks = [4]byte{'>', ']', '}', ')'}
)

// writeStatus mirrors the reference encoder's internal classification
// of how much of a packet's payload was written.
type writeStatus int

const (
	statusIgnored writeStatus = iota - 1
	statusVoid
	statusIncomplete
	statusCompleted
)

// Chunk is a fixed-capacity, transactional packet encoder. The zero
// value is not usable; construct with New.
type Chunk struct {
	size int
	rem  int

	meta     *meta.Meta
	inputCh  *channel.Channel
	outputCh *channel.Channel
	input    *stream.Stream
	output   *stream.Stream

	gotWindow  bool
	lastWidth  uint16
	lastHeight uint16
}

// New creates an empty chunk with size bytes of total budget, shared
// across the meta track and all four encoded buffers.
func New(size int) *Chunk {
	if size < SizeMin {
		panic("chunk: size below SizeMin")
	}
	c := &Chunk{size: size, rem: size}
	c.meta = meta.New(size)
	c.inputCh = channel.New(inputMarks, c)
	c.outputCh = channel.New(outputMarks, c)
	c.input = stream.New(c.inputCh, size)
	c.output = stream.New(c.outputCh, size)
	return c
}

// Advance implements dispatcher.Dispatcher by charging the shared
// budget for the (incremental) delay record a new timestamp requires.
func (c *Chunk) Advance(ts tstamp.T) bool {
	return c.meta.Set(ts, &c.rem)
}

// Reserve implements dispatcher.Dispatcher by debiting n bytes from the
// shared budget.
func (c *Chunk) Reserve(n int) bool {
	if n > c.rem {
		return false
	}
	c.rem -= n
	return true
}

// Printf implements dispatcher.Dispatcher by appending a pre-reserved
// atom to the meta track.
func (c *Chunk) Printf(s string) {
	c.meta.Write(s)
}

// Size returns the chunk's total byte budget.
func (c *Chunk) Size() int { return c.size }

// Rem returns the chunk's remaining, unreserved byte budget.
func (c *Chunk) Rem() int { return c.rem }

// Meta returns the chunk's metadata track.
func (c *Chunk) Meta() *meta.Meta { return c.meta }

// Input and Output return the chunk's two stream buffers.
func (c *Chunk) Input() *stream.Stream  { return c.input }
func (c *Chunk) Output() *stream.Stream { return c.output }

// IsPending reports whether either stream has an incomplete character
// buffered.
func (c *Chunk) IsPending() bool {
	return c.input.IsPending() || c.output.IsPending()
}

// IsEmpty reports whether the chunk holds no data at all (the full
// budget is still unreserved).
func (c *Chunk) IsEmpty() bool {
	return c.rem >= c.size
}

type snapshot struct {
	rem        int
	meta       meta.Snapshot
	input      stream.Snapshot
	output     stream.Snapshot
	gotWindow  bool
	lastWidth  uint16
	lastHeight uint16
}

func (c *Chunk) snapshot() snapshot {
	return snapshot{
		rem:        c.rem,
		meta:       c.meta.Snapshot(),
		input:      c.input.Snapshot(),
		output:     c.output.Snapshot(),
		gotWindow:  c.gotWindow,
		lastWidth:  c.lastWidth,
		lastHeight: c.lastHeight,
	}
}

func (c *Chunk) restore(s snapshot) {
	c.rem = s.rem
	c.meta.Restore(s.meta)
	c.input.Restore(s.input)
	c.output.Restore(s.output)
	c.gotWindow = s.gotWindow
	c.lastWidth = s.lastWidth
	c.lastHeight = s.lastHeight
}

// writeIO writes as much as fits of an I/O packet's remaining payload,
// starting at *pos, into the stream matching its direction.
func (c *Chunk) writeIO(pkt *packet.Packet, pos *int) writeStatus {
	if *pos >= len(pkt.Data) {
		return statusIgnored
	}
	s := c.input
	if pkt.Output {
		s = c.output
	}
	buf := pkt.Data[*pos:]
	written := s.Write(pkt.Timestamp, buf)
	*pos += written
	switch {
	case written == len(buf):
		return statusCompleted
	case written != 0:
		return statusIncomplete
	default:
		return statusVoid
	}
}

// writeWindow writes a window-resize record, skipping it entirely if it
// repeats the last recorded size.
func (c *Chunk) writeWindow(pkt *packet.Packet, pos *int) writeStatus {
	if *pos >= 1 {
		return statusIgnored
	}
	if c.gotWindow && pkt.Width == c.lastWidth && pkt.Height == c.lastHeight {
		return statusIgnored
	}

	rec := fmt.Sprintf("=%dx%d", pkt.Width, pkt.Height)
	if len(rec) > c.rem {
		return statusVoid
	}

	c.input.Flush()
	c.output.Flush()
	c.rem -= len(rec)
	c.meta.Write(rec)

	c.gotWindow = true
	c.lastWidth = pkt.Width
	c.lastHeight = pkt.Height
	*pos = 1
	return statusCompleted
}

// Write writes (a part of) pkt's payload to the chunk. *pos must be 0 on
// the first call for a given packet and is updated to an opaque
// position to resume from on a subsequent call. Returns true if the
// whole of the remaining payload fit (or the packet was ignored, e.g. a
// repeated window size); false means the caller should flush and/or
// emit the chunk and retry the remainder against a fresh one. On a
// false return either nothing fit and the chunk is exactly as it was
// before the call, or only a prefix of the remaining payload fit: that
// prefix stays written and *pos is advanced past it.
func (c *Chunk) Write(pkt *packet.Packet, pos *int) bool {
	if pkt.IsVoid() {
		panic("chunk: Write called with a void packet")
	}

	snap := c.snapshot()

	if !c.meta.Set(pkt.Timestamp, &c.rem) {
		c.restore(snap)
		return false
	}

	var status writeStatus
	switch pkt.Type {
	case packet.TypeIO:
		status = c.writeIO(pkt, pos)
	case packet.TypeWindow:
		status = c.writeWindow(pkt, pos)
	default:
		panic("chunk: unknown packet type")
	}

	if status >= statusIncomplete {
		return status == statusCompleted
	}
	c.restore(snap)
	return status == statusIgnored
}

// Flush flushes both streams' run counters into the meta track without
// touching their encoded buffers.
func (c *Chunk) Flush() {
	c.input.Flush()
	c.output.Flush()
}

// Cut writes out any incomplete character currently pending in either
// stream, timestamped ts, as an invalid sequence. Returns false, leaving
// the chunk unchanged, if it didn't fit.
func (c *Chunk) Cut(ts tstamp.T) bool {
	snap := c.snapshot()
	if !c.input.Cut(ts) || !c.output.Cut(ts) {
		c.restore(snap)
		return false
	}
	return true
}

// Empty resets the chunk to its initial, empty state, freeing the whole
// budget. Pending incomplete characters in either stream are left
// untouched, matching Stream.Empty.
func (c *Chunk) Empty() {
	c.rem = c.size
	c.meta.Empty()
	c.input.Empty()
	c.output.Empty()
	c.gotWindow = false
}
