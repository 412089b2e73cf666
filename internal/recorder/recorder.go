// Package recorder keeps a rotating JSONL flight record of a presentation
// run: page turns, chat toggles, and transcript traffic. Traces are for
// post-hoc debugging of agent-driven sessions.
package recorder

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"deckpilot-mcp-server/internal/deck"
	"deckpilot-mcp-server/internal/transcript"
)

const (
	MaxRotatedFiles = 3
	TraceDir        = "data/traces"
)

// Record is a single line in the trace file.
type Record struct {
	Timestamp time.Time   `json:"ts"`
	Type      string      `json:"type"`
	RunID     string      `json:"run_id,omitempty"`
	Data      interface{} `json:"data"`
}

// Recorder manages rotating trace files for presentation runs.
type Recorder struct {
	mu       sync.Mutex
	file     *os.File
	encoder  *json.Encoder
	basePath string
	runID    string
}

// NewRecorder creates a recorder instance. It ensures the directory exists.
func NewRecorder(basePath string) (*Recorder, error) {
	if basePath == "" {
		basePath = TraceDir
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, err
	}
	return &Recorder{
		basePath: basePath,
	}, nil
}

// Start begins a new trace for the given run. Old traces are rotated so only
// the last MaxRotatedFiles remain.
func (r *Recorder) Start(runID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file != nil {
		_ = r.file.Close()
		r.file = nil
	}

	if err := r.rotate(); err != nil {
		return fmt.Errorf("rotate traces: %w", err)
	}

	filename := fmt.Sprintf("trace_%s_%d.jsonl", runID, time.Now().UnixMilli())
	path := filepath.Join(r.basePath, filename)
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	r.file = f
	r.encoder = json.NewEncoder(f)
	r.runID = runID
	return nil
}

// Log writes a record to the current trace file. A no-op before Start.
func (r *Recorder) Log(recordType string, data interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.encoder == nil {
		return
	}

	_ = r.encoder.Encode(Record{
		Timestamp: time.Now(),
		Type:      recordType,
		RunID:     r.runID,
		Data:      data,
	})
}

// Attach subscribes the recorder to deck events. The returned function
// detaches it.
func (r *Recorder) Attach(bus *deck.Bus) func() {
	if bus == nil {
		return func() {}
	}
	unsubPage := bus.Subscribe(deck.EventPageChanged, func(e deck.Event) {
		r.Log(string(deck.EventPageChanged), e)
	})
	unsubChat := bus.Subscribe(deck.EventChatToggled, func(e deck.Event) {
		r.Log(string(deck.EventChatToggled), e)
	})
	return func() {
		unsubPage()
		unsubChat()
	}
}

// AppendEntry records transcript traffic. Implements transcript.Display so
// the recorder can sit behind a display fan-out.
func (r *Recorder) AppendEntry(e transcript.Entry) {
	r.Log("transcript", e)
}

// rotate keeps only the newest MaxRotatedFiles.
func (r *Recorder) rotate() error {
	entries, err := os.ReadDir(r.basePath)
	if err != nil {
		return err
	}

	var traces []struct {
		Name string
		Time time.Time
	}

	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".jsonl" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		traces = append(traces, struct {
			Name string
			Time time.Time
		}{e.Name(), info.ModTime()})
	}

	// Sort newest first
	sort.Slice(traces, func(i, j int) bool {
		return traces[i].Time.After(traces[j].Time)
	})

	if len(traces) >= MaxRotatedFiles {
		// Keep N-1 to make room for the new one
		keep := MaxRotatedFiles - 1
		for i := keep; i < len(traces); i++ {
			path := filepath.Join(r.basePath, traces[i].Name)
			_ = os.Remove(path)
		}
	}
	return nil
}

// Close finishes the current trace.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file != nil {
		err := r.file.Close()
		r.file = nil
		r.encoder = nil
		return err
	}
	return nil
}
