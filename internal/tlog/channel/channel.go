// Package channel pairs a text fork and a binary fork sharing a
// four-character marker alphabet, one side of a stream's distinction
// between valid (ack) and invalid (nak) runs.
package channel

import (
	"github.com/alxayo/go-tlog/internal/tlog/dispatcher"
	"github.com/alxayo/go-tlog/internal/tlog/fork"
)

// Channel holds the text and binary run counters for one direction of
// I/O (input or output).
type Channel struct {
	Txt *fork.Fork
	Bin *fork.Fork
}

// markStrIsDiverse reports whether all four characters of marks are
// pairwise distinct.
func markStrIsDiverse(marks [4]byte) bool {
	for i := 0; i < 3; i++ {
		for j := i + 1; j < 4; j++ {
			if marks[i] == marks[j] {
				return false
			}
		}
	}
	return true
}

// New creates a channel from a four-byte marker alphabet: marks[0]/[1]
// are the text fork's ack/nak markers, marks[2]/[3] the binary fork's.
// All four bytes must be pairwise distinct.
func New(marks [4]byte, disp dispatcher.Dispatcher) *Channel {
	if !markStrIsDiverse(marks) {
		panic("channel: marker string is not diverse")
	}
	return &Channel{
		Txt: fork.New(marks[0], marks[1], disp),
		Bin: fork.New(marks[2], marks[3], disp),
	}
}

// Flush flushes both forks, in text-then-binary order.
func (c *Channel) Flush() {
	c.Txt.Flush()
	c.Bin.Flush()
}

// Empty reports whether both forks are empty.
func (c *Channel) Empty() bool {
	return c.Txt.Empty() && c.Bin.Empty()
}

// Snapshot is an opaque capture of both forks' mutable run state.
type Snapshot struct {
	Txt fork.Snapshot
	Bin fork.Snapshot
}

// Snapshot captures the current state of both forks for a later Restore.
func (c *Channel) Snapshot() Snapshot {
	return Snapshot{Txt: c.Txt.Snapshot(), Bin: c.Bin.Snapshot()}
}

// Restore reverts both forks to the state captured by s.
func (c *Channel) Restore(s Snapshot) {
	c.Txt.Restore(s.Txt)
	c.Bin.Restore(s.Bin)
}
