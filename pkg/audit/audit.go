// Package audit provides the append-only trail written by every
// state-changing operation. The sink is injected by the caller, so tests run
// against an in-memory sink and multiple engines can coexist without shared
// mutable state.
package audit

import (
	"sync"

	"go.uber.org/zap"

	"flowsync-core/pkg/utils"
)

// Entry is one audit record. Details must be sufficient to reconstruct what
// changed: ids, counts, before/after where cheap.
type Entry struct {
	Timestamp      string                 `json:"timestamp"`
	Operation      string                 `json:"operation"`
	Direction      string                 `json:"direction,omitempty"`
	SubDestination string                 `json:"sub_destination,omitempty"`
	UserID         string                 `json:"user_id,omitempty"`
	Details        map[string]interface{} `json:"details,omitempty"`
}

// Sink receives audit entries. Implementations must be safe for concurrent
// appends.
type Sink interface {
	Append(entry Entry)
}

// NewEntry creates an entry stamped with the current time
func NewEntry(operation string, details map[string]interface{}) Entry {
	return Entry{
		Timestamp: utils.NowRFC3339(),
		Operation: operation,
		Details:   details,
	}
}

// MemorySink keeps entries in memory, unbounded for the life of the process
// unless the caller clears it.
type MemorySink struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemorySink creates an empty in-memory sink
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Append adds an entry to the trail
func (s *MemorySink) Append(entry Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
}

// Entries returns a copy of the recorded trail
func (s *MemorySink) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Clear drops all recorded entries
func (s *MemorySink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
}

// ZapSink decorates another sink, mirroring each entry to a structured log
type ZapSink struct {
	next   Sink
	logger *zap.Logger
}

// NewZapSink wraps next so every entry is also logged
func NewZapSink(next Sink, logger *zap.Logger) *ZapSink {
	return &ZapSink{next: next, logger: logger}
}

// Append logs the entry and forwards it
func (s *ZapSink) Append(entry Entry) {
	s.logger.Info("audit",
		zap.String("operation", entry.Operation),
		zap.String("direction", entry.Direction),
		zap.String("subDestination", entry.SubDestination),
		zap.Any("details", entry.Details),
	)
	if s.next != nil {
		s.next.Append(entry)
	}
}

// NopSink discards all entries
type NopSink struct{}

// Append discards the entry
func (NopSink) Append(Entry) {}
