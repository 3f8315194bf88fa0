// Package packetsrc implements the two packet producers a terminal-session
// recorder wires into the chunk encoder: a pseudo-terminal spawning and
// relaying a child process's I/O, and a SIGWINCH-driven window-size
// reporter. Both speak only in terms of internal/tlog/packet, keeping the
// chunk encoder itself free of any process or terminal dependency.
package packetsrc

import (
	"os"
	"os/exec"
	"strconv"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/alxayo/go-tlog/internal/bufpool"
	"github.com/alxayo/go-tlog/internal/errors"
	"github.com/alxayo/go-tlog/internal/tlog/packet"
	"github.com/alxayo/go-tlog/internal/tlog/tstamp"
)

// readBufSize is the chunk-sized read buffer borrowed from bufpool for
// every PTY read; it does not need to match the encoder chunk size, only
// to be large enough to amortize syscalls.
const readBufSize = 4096

// PTYSource spawns a child process attached to a fresh pseudo-terminal
// and turns its input/output into packets. Grounded on the raw-ioctl
// style of opening and sizing a kernel device directly through
// golang.org/x/sys/unix (the same idiom a block-device driver uses to
// talk to its device node).
type PTYSource struct {
	master *os.File
	slave  *os.File
	cmd    *exec.Cmd
}

// Open allocates a pseudo-terminal pair via /dev/ptmx, unlocks the slave
// side, and starts cmd attached to it as its controlling terminal.
func Open(cmd *exec.Cmd) (*PTYSource, error) {
	master, err := os.OpenFile("/dev/ptmx", os.O_RDWR|os.O_NOCTTY, 0)
	if err != nil {
		return nil, errors.NewTransportError("pty.open_ptmx", err)
	}

	if err := unix.IoctlSetPointerInt(int(master.Fd()), unix.TIOCSPTLCK, 0); err != nil {
		master.Close()
		return nil, errors.NewTransportError("pty.unlock", err)
	}

	n, err := unix.IoctlGetInt(int(master.Fd()), unix.TIOCGPTN)
	if err != nil {
		master.Close()
		return nil, errors.NewTransportError("pty.ptn", err)
	}

	slavePath := "/dev/pts/" + strconv.Itoa(n)
	slave, err := os.OpenFile(slavePath, os.O_RDWR|os.O_NOCTTY, 0)
	if err != nil {
		master.Close()
		return nil, errors.NewTransportError("pty.open_slave", err)
	}

	cmd.Stdin = slave
	cmd.Stdout = slave
	cmd.Stderr = slave
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setsid = true
	cmd.SysProcAttr.Setctty = true
	cmd.SysProcAttr.Ctty = int(slave.Fd())

	if err := cmd.Start(); err != nil {
		master.Close()
		slave.Close()
		return nil, errors.NewTransportError("pty.start", err)
	}
	// The slave fd is now owned by the child; the parent only needs the
	// master side to relay I/O.
	slave.Close()

	return &PTYSource{master: master, cmd: cmd}, nil
}

// Read blocks for the next slice of child output and returns it as an
// output I/O packet timestamped at arrival. Returns an error (including
// io.EOF once the child closes its side) when no more data will arrive.
func (p *PTYSource) Read() (*packet.Packet, error) {
	buf := bufpool.Get(readBufSize)
	n, err := p.master.Read(buf)
	if err != nil {
		bufpool.Put(buf)
		return nil, err
	}
	data := append([]byte(nil), buf[:n]...)
	bufpool.Put(buf)
	return packet.NewIO(tstamp.Now(), true, data), nil
}

// Write sends input bytes to the child's stdin side of the pseudo
// terminal.
func (p *PTYSource) Write(data []byte) error {
	_, err := p.master.Write(data)
	if err != nil {
		return errors.NewTransportError("pty.write", err)
	}
	return nil
}

// Resize applies a new window size to the pseudo-terminal.
func (p *PTYSource) Resize(width, height uint16) error {
	ws := &unix.Winsize{Row: height, Col: width}
	if err := unix.IoctlSetWinsize(int(p.master.Fd()), unix.TIOCSWINSZ, ws); err != nil {
		return errors.NewTransportError("pty.resize", err)
	}
	return nil
}

// Size reads back the pseudo-terminal's current window size.
func (p *PTYSource) Size() (width, height uint16, err error) {
	ws, err := unix.IoctlGetWinsize(int(p.master.Fd()), unix.TIOCGWINSZ)
	if err != nil {
		return 0, 0, errors.NewTransportError("pty.size", err)
	}
	return ws.Col, ws.Row, nil
}

// Wait blocks until the child process exits and returns its result.
func (p *PTYSource) Wait() error {
	return p.cmd.Wait()
}

// Close releases the master side of the pseudo-terminal.
func (p *PTYSource) Close() error {
	return p.master.Close()
}

// ExitCode returns the child process's exit code, or -1 if it has not
// yet exited.
func (p *PTYSource) ExitCode() int {
	if p.cmd.ProcessState == nil {
		return -1
	}
	return p.cmd.ProcessState.ExitCode()
}
