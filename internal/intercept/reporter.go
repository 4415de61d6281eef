package intercept

import (
	"fmt"
	"os"
	"sync"

	gerrors "gobear/internal/errors"
	"gobear/internal/event"
	"gobear/internal/metrics"
)

// Reporter persists events to the events file.  The file is created on
// the first event, so a build without compiler calls leaves none.
type Reporter struct {
	path    string
	metrics *metrics.Collector

	mu     sync.Mutex
	file   *os.File
	writer *event.Writer
	closed bool
}

// NewReporter returns a Reporter writing to path.
func NewReporter(path string, m *metrics.Collector) *Reporter {
	return &Reporter{path: path, metrics: m}
}

// Report appends ev to the events file.
func (r *Reporter) Report(ev event.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return fmt.Errorf("report %s: %w", ev.ID, gerrors.ErrCollectorClosed)
	}
	if r.file == nil {
		f, err := os.OpenFile(r.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("create events file: %w", err)
		}
		r.file = f
		r.writer = event.NewWriter(f)
	}
	if err := r.writer.Write(ev); err != nil {
		return fmt.Errorf("write event %s: %w", ev.ID, err)
	}
	r.metrics.EventWritten()
	return nil
}

// Close flushes and closes the events file, if one was created.
func (r *Reporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}
