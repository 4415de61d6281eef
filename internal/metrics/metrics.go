// Package metrics provides lightweight, lock-free counters for tracking
// what an intercept session observed.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime metrics for one intercept session.
// A nil Collector is safe to use: all methods become no-ops.
type Collector struct {
	connectionsActive atomic.Int64
	connectionsTotal  atomic.Int64
	eventsReceived    atomic.Int64
	eventsWritten     atomic.Int64
	errorsTotal       atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Reporter connections ─────────────────────────────────────────────

// ConnectionOpened increments both the active and total counters.
func (c *Collector) ConnectionOpened() {
	if c == nil {
		return
	}
	c.connectionsActive.Add(1)
	c.connectionsTotal.Add(1)
}

// ConnectionClosed decrements the active connection counter.
func (c *Collector) ConnectionClosed() {
	if c == nil {
		return
	}
	c.connectionsActive.Add(-1)
}

// ActiveConnections returns the current number of open connections.
func (c *Collector) ActiveConnections() int64 {
	if c == nil {
		return 0
	}
	return c.connectionsActive.Load()
}

// TotalConnections returns the lifetime connection count.
func (c *Collector) TotalConnections() int64 {
	if c == nil {
		return 0
	}
	return c.connectionsTotal.Load()
}

// ── Events ───────────────────────────────────────────────────────────

// EventReceived records one decoded event.
func (c *Collector) EventReceived() {
	if c == nil {
		return
	}
	c.eventsReceived.Add(1)
}

// EventWritten records one event persisted to the events file.
func (c *Collector) EventWritten() {
	if c == nil {
		return
	}
	c.eventsWritten.Add(1)
}

// EventsReceived returns the number of decoded events.
func (c *Collector) EventsReceived() int64 {
	if c == nil {
		return 0
	}
	return c.eventsReceived.Load()
}

// EventsWritten returns the number of persisted events.
func (c *Collector) EventsWritten() int64 {
	if c == nil {
		return 0
	}
	return c.eventsWritten.Load()
}

// ── Error metrics ────────────────────────────────────────────────────

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime           string `json:"uptime"`
	ConnectionsTotal int64  `json:"connections_total"`
	EventsReceived   int64  `json:"events_received"`
	EventsWritten    int64  `json:"events_written"`
	ErrorsTotal      int64  `json:"errors_total"`
	LastError        string `json:"last_error,omitempty"`
	LastErrorMessage string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:           time.Since(c.startTime).Truncate(time.Millisecond).String(),
		ConnectionsTotal: c.connectionsTotal.Load(),
		EventsReceived:   c.eventsReceived.Load(),
		EventsWritten:    c.eventsWritten.Load(),
		ErrorsTotal:      c.errorsTotal.Load(),
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as a compact JSON string.
func (c *Collector) JSON() string {
	data, _ := json.Marshal(c.Snapshot())
	return string(data)
}
