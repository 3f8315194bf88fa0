// Package transport implements the destinations a recorded session's
// messages can be shipped to: a local file, an Azure Blob Storage
// append blob, a watched directory that reacts to external rotation,
// and a fan-out combinator of any of the above.
package transport

import (
	"context"

	"github.com/alxayo/go-tlog/internal/tlog/sink"
)

// Writer delivers one message envelope to a destination. Implementations
// must be safe for sequential use by a single recorder; MultiWriter adds
// the concurrency needed to fan out to several writers at once.
type Writer interface {
	Write(ctx context.Context, msg sink.Message) error
	Close() error
}
