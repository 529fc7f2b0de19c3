// Package telemetry is a minimal, low-overhead local diagnostics log for
// cache-vs-network behavior. It is a pure side channel: the sync engine
// writes to it but never reads it, so it can be disabled entirely without
// behavioral change elsewhere.
package telemetry

import (
	"encoding/json"
	"sync"
	"time"

	"codexmonitor/pkg/logger"
)

// Event is one telemetry record. Optional fields stay empty when they do
// not apply to the event.
type Event struct {
	TS          int64  `json:"ts"`
	Event       string `json:"event"`
	WorkspaceID string `json:"workspaceId,omitempty"`
	ThreadID    string `json:"threadId,omitempty"`
	ScopeKey    string `json:"scopeKey,omitempty"`
	CommandID   string `json:"commandId,omitempty"`
	FromCache   bool   `json:"fromCache,omitempty"`
	DurationMs  int64  `json:"durationMs,omitempty"`
	Note        string `json:"note,omitempty"`
}

// Backing is an optional persistence slot for the ring. A nil backing
// keeps the log memory-only.
type Backing interface {
	Load() ([]byte, error)
	Store(data []byte) error
}

// DefaultCapacity bounds the ring when no capacity is configured.
const DefaultCapacity = 250

// Log is an append-only capped event ring, oldest dropped first.
type Log struct {
	mu      sync.Mutex
	backing Backing
	cap     int
	events  []Event
}

// NewLog builds a ring over an optional backing and hydrates any
// previously persisted events, best-effort.
func NewLog(b Backing, capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	l := &Log{backing: b, cap: capacity}
	if b != nil {
		if raw, err := b.Load(); err == nil && len(raw) > 0 {
			var events []Event
			if json.Unmarshal(raw, &events) == nil {
				if n := len(events); n > capacity {
					events = events[n-capacity:]
				}
				l.events = events
			}
		}
	}
	return l
}

// Push appends an event, stamping TS when unset, and drops the oldest
// entry once the ring is full.
func (l *Log) Push(ev Event) {
	if l == nil {
		return
	}
	if ev.TS == 0 {
		ev.TS = time.Now().UnixMilli()
	}
	l.mu.Lock()
	l.events = append(l.events, ev)
	if len(l.events) > l.cap {
		l.events = l.events[len(l.events)-l.cap:]
	}
	l.persistLocked()
	l.mu.Unlock()
}

// ReadAll returns a copy of the events in append order.
func (l *Log) ReadAll() []Event {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.events...)
}

// Clear drops all events.
func (l *Log) Clear() {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.events = nil
	l.persistLocked()
	l.mu.Unlock()
}

// persistLocked writes the ring through the backing, swallowing failures;
// diagnostics must never break the engine.
func (l *Log) persistLocked() {
	if l.backing == nil {
		return
	}
	data, err := json.Marshal(l.events)
	if err != nil {
		return
	}
	if err := l.backing.Store(data); err != nil {
		logger.Debug("telemetry_persist_failed", "error", err)
	}
}
