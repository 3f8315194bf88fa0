package transport

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alxayo/go-tlog/internal/tlog/sink"
)

// DestinationStatus represents the health of one MultiWriter destination.
type DestinationStatus int

const (
	StatusActive DestinationStatus = iota
	StatusError
)

// String returns a human-readable destination status.
func (s DestinationStatus) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// DestinationMetrics tracks delivery counters for one destination.
type DestinationMetrics struct {
	MessagesSent    uint64
	MessagesDropped uint64
	LastSentTime    time.Time
}

// destination pairs a Writer with its observed health and metrics.
type destination struct {
	id     string
	w      Writer
	logger *slog.Logger

	mu        sync.RWMutex
	status    DestinationStatus
	lastError error
	metrics   DestinationMetrics
}

func newDestination(id string, w Writer, logger *slog.Logger) *destination {
	return &destination{
		id:     id,
		w:      w,
		status: StatusActive,
		logger: logger.With("destination_id", id),
	}
}

func (d *destination) send(ctx context.Context, msg sink.Message) {
	if err := d.w.Write(ctx, msg); err != nil {
		d.mu.Lock()
		d.status = StatusError
		d.lastError = err
		d.metrics.MessagesDropped++
		d.mu.Unlock()
		d.logger.Error("destination write failed", "error", err)
		return
	}

	d.mu.Lock()
	d.status = StatusActive
	d.lastError = nil
	d.metrics.MessagesSent++
	d.metrics.LastSentTime = time.Now()
	d.mu.Unlock()
}

func (d *destination) getStatus() DestinationStatus {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.status
}

func (d *destination) getMetrics() DestinationMetrics {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.metrics
}

// MultiWriter fans a message out to several named Writer destinations
// concurrently, tracking per-destination status and delivery metrics.
// Adapted from the teacher's relay Destination/Manager pair,
// generalized from "RTMP relay destination" to "transport destination":
// any Writer (file, Azure blob, watched directory, or another
// MultiWriter) can be a fan-out target.
type MultiWriter struct {
	mu     sync.RWMutex
	dests  map[string]*destination
	logger *slog.Logger
}

// NewMultiWriter creates an empty fan-out writer.
func NewMultiWriter(logger *slog.Logger) *MultiWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &MultiWriter{
		dests:  make(map[string]*destination),
		logger: logger.With("component", "multi_writer"),
	}
}

// Add registers a new destination under id. Returns an error if id is
// already in use.
func (m *MultiWriter) Add(id string, w Writer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.dests[id]; exists {
		return errAlreadyRegistered(id)
	}
	m.dests[id] = newDestination(id, w, m.logger)
	m.logger.Info("added transport destination", "id", id, "total", len(m.dests))
	return nil
}

// Write sends msg to every destination in parallel, waiting for all
// sends to complete before returning so message ordering across a
// single destination is preserved even though destinations run
// concurrently with each other. A destination failure is logged and
// reflected in its status/metrics; it never fails the overall Write,
// since other destinations may still be healthy.
func (m *MultiWriter) Write(ctx context.Context, msg sink.Message) error {
	m.mu.RLock()
	dests := make([]*destination, 0, len(m.dests))
	for _, d := range m.dests {
		dests = append(dests, d)
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, d := range dests {
		wg.Add(1)
		go func(d *destination) {
			defer wg.Done()
			d.send(ctx, msg)
		}(d)
	}
	wg.Wait()
	return nil
}

// Status returns the current status of every destination, keyed by id.
func (m *MultiWriter) Status() map[string]DestinationStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]DestinationStatus, len(m.dests))
	for id, d := range m.dests {
		out[id] = d.getStatus()
	}
	return out
}

// Metrics returns a snapshot of every destination's delivery metrics,
// keyed by id.
func (m *MultiWriter) Metrics() map[string]DestinationMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]DestinationMetrics, len(m.dests))
	for id, d := range m.dests {
		out[id] = d.getMetrics()
	}
	return out
}

// Close closes every destination, returning the last error encountered.
func (m *MultiWriter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var lastErr error
	for id, d := range m.dests {
		if err := d.w.Close(); err != nil {
			m.logger.Error("error closing destination", "id", id, "error", err)
			lastErr = err
		}
	}
	m.dests = make(map[string]*destination)
	return lastErr
}

type destinationExistsError struct{ id string }

func (e *destinationExistsError) Error() string {
	return "transport: destination already registered: " + e.id
}

func errAlreadyRegistered(id string) error { return &destinationExistsError{id: id} }
