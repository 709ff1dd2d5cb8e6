// Package telemetry provides a JSONL event stream for recording the stages of
// an audit. Every run start, loaded object file, resolved item, diagnostic,
// and run completion is recorded as a structured JSON event tagged with the
// run's ID, so CI logs of successive runs can be told apart and replayed.
package telemetry

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event kinds identify the type of telemetry event.
const (
	KindAuditStart   = "audit_start"
	KindObjectLoaded = "object_loaded"
	KindItemResolved = "item_resolved"
	KindDiagnostic   = "diagnostic"
	KindAuditDone    = "audit_done"
)

// Event represents a single telemetry record. Each event carries a timestamp,
// a kind tag, the run ID, optional item and file context, and arbitrary
// structured data.
type Event struct {
	Timestamp time.Time `json:"ts"`
	Kind      string    `json:"kind"`
	RunID     string    `json:"run"`
	Item      string    `json:"item,omitempty"`
	File      string    `json:"file,omitempty"`
	Data      any       `json:"data,omitempty"`
}

// Emitter writes telemetry events as JSON lines. It is safe for concurrent
// use by multiple goroutines. A nil *Emitter is a valid no-op emitter.
type Emitter struct {
	w     io.Writer
	close func() error
	enc   *json.Encoder
	runID string
	now   func() time.Time
	mu    sync.Mutex
}

// NewEmitter creates an Emitter that appends JSONL events to the file at
// path, creating it if needed. Each Emitter gets a fresh run ID.
func NewEmitter(path string) (*Emitter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open %s: %w", path, err)
	}
	em := NewWriterEmitter(f)
	em.close = f.Close
	return em, nil
}

// NewWriterEmitter creates an Emitter writing to w. Close does not close w.
func NewWriterEmitter(w io.Writer) *Emitter {
	return &Emitter{
		w:     w,
		enc:   json.NewEncoder(w),
		runID: uuid.NewString(),
		now:   time.Now,
	}
}

// RunID returns the ID stamped on every event. It is empty for a nil
// Emitter.
func (e *Emitter) RunID() string {
	if e == nil {
		return ""
	}
	return e.runID
}

// Emit writes a single event. The run ID is always set, and a zero
// timestamp is replaced by the current time. Calling Emit on a nil Emitter
// is a no-op.
func (e *Emitter) Emit(evt Event) error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	evt.RunID = e.runID
	if evt.Timestamp.IsZero() {
		evt.Timestamp = e.now().UTC()
	}
	if err := e.enc.Encode(evt); err != nil {
		return fmt.Errorf("telemetry: encode event: %w", err)
	}
	return nil
}

// Close closes the underlying file, if the Emitter owns one. Calling Close
// on a nil Emitter is a no-op.
func (e *Emitter) Close() error {
	if e == nil || e.close == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.close(); err != nil {
		return fmt.Errorf("telemetry: close: %w", err)
	}
	return nil
}
