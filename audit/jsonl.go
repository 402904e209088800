package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/branched-services/go-arbvm"
)

// JSONLSink appends one JSON object per record to a journal file. Writes
// are flushed per record so a crash loses at most the entry being written.
type JSONLSink struct {
	mu  sync.Mutex
	f   *os.File
	w   *bufio.Writer
	enc *json.Encoder
	err error
}

var _ arbvm.Auditor = (*JSONLSink)(nil)

type journalEntry struct {
	Time time.Time          `json:"time"`
	Kind string             `json:"kind"`
	Bat  *arbvm.BatchReport `json:"batch,omitempty"`
	Flow *arbvm.FlowReport  `json:"flow,omitempty"`
}

// NewJSONLSink opens the journal at path for appending, creating it if
// missing.
func NewJSONLSink(path string) (*JSONLSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("audit: open journal: %w", err)
	}
	w := bufio.NewWriter(f)
	return &JSONLSink{f: f, w: w, enc: json.NewEncoder(w)}, nil
}

// BatchExecuted appends one batch record.
func (s *JSONLSink) BatchExecuted(r arbvm.BatchReport) {
	s.write(journalEntry{Time: time.Now().UTC(), Kind: "batch", Bat: &r})
}

// FlowExecuted appends one flow record.
func (s *JSONLSink) FlowExecuted(r arbvm.FlowReport) {
	s.write(journalEntry{Time: time.Now().UTC(), Kind: "flow", Flow: &r})
}

func (s *JSONLSink) write(e journalEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return
	}
	if err := s.enc.Encode(e); err != nil {
		s.err = err
		return
	}
	s.err = s.w.Flush()
}

// Close flushes and closes the journal, returning the first error the sink
// observed.
func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ferr := s.w.Flush()
	cerr := s.f.Close()
	if s.err != nil {
		return s.err
	}
	if ferr != nil {
		return ferr
	}
	return cerr
}
