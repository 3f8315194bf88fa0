// Package sink wraps a flushed chunk into the outer message envelope a
// transport writer actually ships: hostname, user, a session id shared
// by every message in one recording, a monotonically increasing message
// id, the whole seconds of the chunk's first timestamp, and the
// chunk's encoded buffers. The last timestamp is not carried.
package sink

import (
	"os"
	"os/user"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/alxayo/go-tlog/internal/errors"
	"github.com/alxayo/go-tlog/internal/tlog/chunk"
	"github.com/alxayo/go-tlog/internal/tlog/tstamp"
)

// Message is the envelope a transport writer serializes and ships. It
// mirrors the original recorder's JSON message shape: identity fields
// plus the chunk's meta/content buffers, one message per flushed chunk.
type Message struct {
	Type      string `json:"type"`
	Host      string `json:"host"`
	User      string `json:"user"`
	Session   string `json:"session"`
	ID        uint64 `json:"id"`
	Timestamp int64  `json:"timestamp"`

	Meta      string `json:"meta"`
	InputTxt  string `json:"in_txt,omitempty"`
	InputBin  string `json:"in_bin,omitempty"`
	OutputTxt string `json:"out_txt,omitempty"`
	OutputBin string `json:"out_bin,omitempty"`
}

// messageType is the constant "type" field of every emitted message;
// the original recorder uses this to distinguish log messages from a
// window-only or control message, but this sink only ever emits one
// kind.
const messageType = "log"

// Sink turns flushed chunks into message envelopes for one recording
// session. It assigns a session id once, at construction, and a
// strictly increasing message id to every Wrap call.
type Sink struct {
	host    string
	user    string
	session string
	nextID  uint64
}

// New creates a Sink for a new recording session, resolving the local
// hostname and current user. The session id is a fresh random UUID.
func New() (*Sink, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, errors.NewSinkError("sink.new", err)
	}

	u, err := user.Current()
	if err != nil {
		return nil, errors.NewSinkError("sink.new", err)
	}

	return &Sink{
		host:    host,
		user:    u.Username,
		session: uuid.NewString(),
	}, nil
}

// Session returns the session id shared by every message this sink
// produces.
func (s *Sink) Session() string { return s.session }

// Wrap builds the message envelope for a flushed chunk. ts is the
// timestamp to report if the chunk never received any writes; otherwise
// the meta track's First is used. Only its whole seconds are reported.
func (s *Sink) Wrap(c *chunk.Chunk, ts tstamp.T) Message {
	id := atomic.AddUint64(&s.nextID, 1)

	first := ts
	if c.Meta().Written() {
		first = c.Meta().First()
	}

	return Message{
		Type:      messageType,
		Host:      s.host,
		User:      s.user,
		Session:   s.session,
		ID:        id,
		Timestamp: first.Sec,
		Meta:      string(c.Meta().Bytes()),
		InputTxt:  string(c.Input().TxtBytes()),
		InputBin:  string(c.Input().BinBytes()),
		OutputTxt: string(c.Output().TxtBytes()),
		OutputBin: string(c.Output().BinBytes()),
	}
}
