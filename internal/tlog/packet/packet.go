// Package packet defines the tagged union of recorder events the chunk
// encoder consumes: terminal I/O data, window resizes, and the void
// packet used as an end-of-stream marker.
package packet

import "github.com/alxayo/go-tlog/internal/tlog/tstamp"

// Type identifies which payload a Packet carries.
type Type int

const (
	// TypeVoid carries no payload and marks the end of a packet stream.
	TypeVoid Type = iota
	// TypeIO carries a slice of terminal input or output bytes.
	TypeIO
	// TypeWindow carries a terminal window size change.
	TypeWindow
)

// Packet is one recorded event: a slice of terminal I/O, a window
// resize, or the void marker.
type Packet struct {
	Timestamp tstamp.T
	Type      Type

	// IO payload, valid when Type == TypeIO.
	Output bool // true for terminal output, false for input
	Data   []byte

	// Window payload, valid when Type == TypeWindow.
	Width  uint16
	Height uint16
}

// IsVoid reports whether p is the void marker.
func (p *Packet) IsVoid() bool { return p.Type == TypeVoid }

// NewIO builds an I/O packet. output selects which stream the data
// belongs to: true for terminal output, false for input.
func NewIO(ts tstamp.T, output bool, data []byte) *Packet {
	return &Packet{Timestamp: ts, Type: TypeIO, Output: output, Data: data}
}

// NewWindow builds a window-resize packet.
func NewWindow(ts tstamp.T, width, height uint16) *Packet {
	return &Packet{Timestamp: ts, Type: TypeWindow, Width: width, Height: height}
}

// Void builds the end-of-stream marker packet.
func Void(ts tstamp.T) *Packet {
	return &Packet{Timestamp: ts, Type: TypeVoid}
}
