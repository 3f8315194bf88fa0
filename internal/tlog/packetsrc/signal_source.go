package packetsrc

import (
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/alxayo/go-tlog/internal/errors"
	"github.com/alxayo/go-tlog/internal/tlog/packet"
	"github.com/alxayo/go-tlog/internal/tlog/tstamp"
)

// SignalSource turns SIGWINCH into window-resize packets, reading the
// controlling terminal's current size via golang.org/x/term. Grounded on
// the pack's consistent use of golang.org/x/term for terminal-facing
// size queries rather than hand-rolled ioctls for this one call.
type SignalSource struct {
	fd int
	ch chan os.Signal
}

// NewSignalSource watches fd (typically os.Stdin's descriptor) for
// SIGWINCH.
func NewSignalSource(fd int) *SignalSource {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGWINCH)
	return &SignalSource{fd: fd, ch: ch}
}

// Next blocks until the next SIGWINCH and returns the resulting
// window-resize packet.
func (s *SignalSource) Next() (*packet.Packet, error) {
	if _, ok := <-s.ch; !ok {
		return nil, errors.NewTransportError("signalsource.closed", nil)
	}
	w, h, err := term.GetSize(s.fd)
	if err != nil {
		return nil, errors.NewTransportError("signalsource.getsize", err)
	}
	return packet.NewWindow(tstamp.Now(), uint16(w), uint16(h)), nil
}

// Initial returns a window-resize packet for the terminal's current
// size, for seeding a chunk before the first SIGWINCH ever fires.
func (s *SignalSource) Initial() (*packet.Packet, error) {
	w, h, err := term.GetSize(s.fd)
	if err != nil {
		return nil, errors.NewTransportError("signalsource.getsize", err)
	}
	return packet.NewWindow(tstamp.Now(), uint16(w), uint16(h)), nil
}

// Close stops signal delivery to this source.
func (s *SignalSource) Close() {
	signal.Stop(s.ch)
	close(s.ch)
}
