// Package event defines the execution record that intercept collects
// and citnames consumes, and its JSON-lines encoding.
package event

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event is one observed process execution.
type Event struct {
	ID          string            `json:"id"`
	PID         int               `json:"pid"`
	PPID        int               `json:"ppid,omitempty"`
	Executable  string            `json:"executable"`
	Arguments   []string          `json:"arguments"`
	WorkingDir  string            `json:"working_dir"`
	Environment map[string]string `json:"environment,omitempty"`
	Started     time.Time         `json:"started"`
}

// FromProcess describes the current process as an Event, with the
// given executable and arguments (argv[0] included).
func FromProcess(executable string, args []string) (Event, error) {
	wd, err := os.Getwd()
	if err != nil {
		return Event{}, fmt.Errorf("working directory: %w", err)
	}
	return Event{
		ID:          uuid.NewString(),
		PID:         os.Getpid(),
		PPID:        os.Getppid(),
		Executable:  executable,
		Arguments:   args,
		WorkingDir:  wd,
		Environment: Environ(os.Environ()),
		Started:     time.Now().UTC(),
	}, nil
}

// Environ converts KEY=VALUE pairs into a map.
func Environ(pairs []string) map[string]string {
	env := make(map[string]string, len(pairs))
	for _, kv := range pairs {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			env[k] = v
		}
	}
	return env
}

// Validate rejects events that cannot describe a process.
func (e *Event) Validate() error {
	if e.Executable == "" {
		return errors.New("event: executable is empty")
	}
	if len(e.Arguments) == 0 {
		return errors.New("event: arguments are empty")
	}
	return nil
}

// ── JSON lines ───────────────────────────────────────────────────────

// Writer appends events as JSON lines.
type Writer struct {
	enc *json.Encoder
}

// NewWriter returns a Writer that encodes to w.
func NewWriter(w io.Writer) *Writer {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &Writer{enc: enc}
}

// Write encodes one event followed by a newline.
func (w *Writer) Write(ev Event) error {
	return w.enc.Encode(ev)
}

// Reader decodes a stream of JSON-line events.
type Reader struct {
	dec *json.Decoder
}

// NewReader returns a Reader that decodes from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{dec: json.NewDecoder(bufio.NewReader(r))}
}

// Next returns the next event, or io.EOF when the stream is exhausted.
func (r *Reader) Next() (Event, error) {
	var ev Event
	if err := r.dec.Decode(&ev); err != nil {
		return Event{}, err
	}
	return ev, nil
}

// ReadAll decodes every event from r.
func ReadAll(r io.Reader) ([]Event, error) {
	rd := NewReader(r)
	var events []Event
	for {
		ev, err := rd.Next()
		if errors.Is(err, io.EOF) {
			return events, nil
		}
		if err != nil {
			return events, fmt.Errorf("decode event %d: %w", len(events)+1, err)
		}
		events = append(events, ev)
	}
}

// ReadFile decodes every event in the file at path.
func ReadFile(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadAll(f)
}
