package syncer

import "sync"

// versionTable tracks the last accepted writer timestamp per scope key.
// Acceptance is strict: a candidate must carry a timestamp greater than
// the last accepted one, so replays, duplicates and reordered reads can
// never roll state backwards.
type versionTable struct {
	mu   sync.Mutex
	last map[string]int64
}

func newVersionTable() *versionTable {
	return &versionTable{last: map[string]int64{}}
}

// accept records ts for scope and reports whether it advanced the scope.
func (t *versionTable) accept(scope string, ts int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ts <= t.last[scope] {
		return false
	}
	t.last[scope] = ts
	return true
}

// seedBelow records ts-1 for scope and reports whether the scope was
// behind ts. Used when replaying cached envelopes: the cached copy is
// lossy, so it must not outrank its own source — a live re-fetch of the
// very same timestamp still has to win.
func (t *versionTable) seedBelow(scope string, ts int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ts <= t.last[scope] {
		return false
	}
	t.last[scope] = ts - 1
	return true
}
