// Package dispatcher defines the capability a run counter or meta track
// needs from its owning chunk: the ability to advance the shared
// timestamp, debit the shared byte budget, and emit a formatted atom once
// space for it has been reserved.
//
// The original C encoder wired this up as three raw function pointers
// (advance/reserve/printf) stored in struct tlog_dispatcher and shared by
// every fork and the meta track belonging to a chunk. The call sites in
// lib/fork.c and lib/meta.c never show the concrete function bodies —
// only the chunk that owns the shared "rem" budget can implement them, by
// reserving space for the run marker and digits (fork) or the delay
// record and run/window atoms (meta) out of that budget and serializing
// the result into the chunk's pending output. Chunk satisfies this
// interface itself.
package dispatcher

import "github.com/alxayo/go-tlog/internal/tlog/tstamp"

// Dispatcher is implemented by the chunk coordinating every fork,
// channel, and the meta track belonging to it.
type Dispatcher interface {
	// Advance moves the chunk's notion of "now" to ts, charging for any
	// delay record this requires and flushing whichever fork or meta
	// atom had accumulated up to the previous timestamp. Returns false
	// if there was no room.
	Advance(ts tstamp.T) bool

	// Reserve debits n bytes from the chunk's remaining budget without
	// writing anything yet. Returns false, leaving the budget
	// unchanged, if n exceeds what remains.
	Reserve(n int) bool

	// Printf writes a pre-reserved atom (run marker + length, or a
	// window record) into the chunk's meta track. The caller must have
	// already reserved exactly len(s) bytes for it via Reserve or as
	// part of the same accounting step that called Advance.
	Printf(s string)
}
