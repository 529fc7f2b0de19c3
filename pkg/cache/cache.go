// Package cache persists the last-known snapshot per scope so the client
// can hydrate instantly on startup before any network round trip finishes.
// The cache trades completeness for footprint: thread snapshots are
// compacted on write and the whole blob expires after a maximum age.
package cache

import (
	"encoding/json"
	"sync"
	"time"

	"codexmonitor/pkg/logger"
	"codexmonitor/pkg/models"
)

// Backing is the storage slot the cache serializes into. Writes are
// best-effort: a failing backing degrades cross-restart hydration, never
// current-session correctness.
type Backing interface {
	Load() ([]byte, error)
	Store(data []byte) error
}

// Options bound the cache. Zero values pick the defaults.
type Options struct {
	MaxThreads  int           // MRU thread slots (default 8)
	MaxItems    int           // items kept per cached thread (default 80)
	MaxTextLen  int           // message text budget in runes (default 2000)
	MaxAge      time.Duration // whole-blob expiry (default 14 days)
}

func (o Options) withDefaults() Options {
	if o.MaxThreads <= 0 {
		o.MaxThreads = 8
	}
	if o.MaxItems <= 0 {
		o.MaxItems = 80
	}
	if o.MaxTextLen <= 0 {
		o.MaxTextLen = 2000
	}
	if o.MaxAge <= 0 {
		o.MaxAge = 14 * 24 * time.Hour
	}
	return o
}

// blobVersion is the persisted cache schema version.
const blobVersion = 1

// Snapshot is the persisted cache blob. Threads is keyed by thread key
// (workspaceId::threadId); ThreadOrder tracks recency, most recent last.
type Snapshot struct {
	V           int                         `json:"v"`
	UpdatedAtMs int64                       `json:"updatedAtMs"`
	Runner      *models.WriterInfo          `json:"runner,omitempty"`
	Global      *models.Envelope            `json:"global,omitempty"`
	Workspaces  map[string]*models.Envelope `json:"workspaces,omitempty"`
	Threads     map[string]*models.Envelope `json:"threads,omitempty"`
	ThreadOrder []string                    `json:"threadOrder,omitempty"`
}

// Cache is the durable snapshot cache. Single-writer: only the sync engine
// mutates it; reads happen on startup and on thread switches.
type Cache struct {
	mu      sync.Mutex
	backing Backing
	opts    Options
	snap    Snapshot
}

// New builds a cache over the given backing.
func New(b Backing, opts Options) *Cache {
	return &Cache{
		backing: b,
		opts:    opts.withDefaults(),
		snap: Snapshot{
			V:          blobVersion,
			Workspaces: map[string]*models.Envelope{},
			Threads:    map[string]*models.Envelope{},
		},
	}
}

// Load reads the persisted blob and adopts it as current state. It returns
// nil — treating the cache as absent — when the blob is missing, has an
// unknown schema version, fails to decode, or is older than the max age.
// Stale state must not silently resurrect after long client downtime.
func (c *Cache) Load() *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := c.backing.Load()
	if err != nil || len(raw) == 0 {
		if err != nil {
			logger.Warn("cache_load_failed", "error", err)
		}
		loadMisses.Inc()
		return nil
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		logger.Warn("cache_blob_undecodable", "error", err)
		loadMisses.Inc()
		return nil
	}
	if snap.V != blobVersion {
		loadMisses.Inc()
		return nil
	}
	age := time.Since(time.UnixMilli(snap.UpdatedAtMs))
	if age > c.opts.MaxAge {
		logger.Info("cache_blob_expired", "ageHours", int(age.Hours()))
		loadMisses.Inc()
		return nil
	}
	if snap.Workspaces == nil {
		snap.Workspaces = map[string]*models.Envelope{}
	}
	if snap.Threads == nil {
		snap.Threads = map[string]*models.Envelope{}
	}
	c.snap = snap
	loadHits.Inc()
	out := snap
	return &out
}

// PutRunner records the most recently discovered runner.
func (c *Cache) PutRunner(w *models.WriterInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.Runner = w
	c.flushLocked()
}

// PutGlobal stores the global scope envelope verbatim.
func (c *Cache) PutGlobal(env *models.Envelope) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.Global = env
	c.flushLocked()
}

// PutWorkspace stores a workspace scope envelope verbatim, one slot per
// workspace id.
func (c *Cache) PutWorkspace(workspaceID string, env *models.Envelope) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.Workspaces[workspaceID] = env
	c.flushLocked()
}

// PutThread stores a compacted copy of a thread scope envelope under its
// thread key and refreshes its MRU position. Inserting beyond the thread
// budget evicts the least-recently-touched entry entirely.
func (c *Cache) PutThread(threadKey string, env *models.Envelope) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.snap.Threads[threadKey] = c.compactThread(env)
	c.touchLocked(threadKey)
	for len(c.snap.ThreadOrder) > c.opts.MaxThreads {
		oldest := c.snap.ThreadOrder[0]
		c.snap.ThreadOrder = c.snap.ThreadOrder[1:]
		delete(c.snap.Threads, oldest)
		evictions.Inc()
	}
	c.flushLocked()
}

// Thread returns the cached envelope for a thread key, nil when absent.
func (c *Cache) Thread(threadKey string) *models.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap.Threads[threadKey]
}

// Sweep drops thread entries whose envelope timestamp is older than the
// max age and reports how many were removed. The whole-blob age check at
// load time still applies; sweeping keeps a long-running session tidy.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := time.Now().Add(-c.opts.MaxAge).UnixMilli()
	removed := 0
	order := c.snap.ThreadOrder[:0]
	for _, key := range c.snap.ThreadOrder {
		env := c.snap.Threads[key]
		if env != nil && env.Timestamp < cutoff {
			delete(c.snap.Threads, key)
			removed++
			continue
		}
		order = append(order, key)
	}
	c.snap.ThreadOrder = order
	if removed > 0 {
		c.flushLocked()
	}
	return removed
}

// touchLocked moves threadKey to the most-recent end of the MRU order.
func (c *Cache) touchLocked(threadKey string) {
	order := c.snap.ThreadOrder[:0]
	for _, k := range c.snap.ThreadOrder {
		if k != threadKey {
			order = append(order, k)
		}
	}
	c.snap.ThreadOrder = append(order, threadKey)
}

// compactThread bounds a thread envelope before persisting: only the item
// tail is kept, message texts are truncated, and the opaque raw thread
// record is dropped (a future live fetch reconstructs it). The cache
// optimizes for instant partial hydration over completeness.
func (c *Cache) compactThread(env *models.Envelope) *models.Envelope {
	payload, err := env.ThreadPayload()
	if err != nil {
		// undecodable payloads are cached verbatim; the engine already
		// accepted the envelope, so parsing here is best-effort
		return env
	}
	if n := len(payload.Items); n > c.opts.MaxItems {
		payload.Items = append([]models.ConversationItem(nil), payload.Items[n-c.opts.MaxItems:]...)
	}
	for i := range payload.Items {
		it := &payload.Items[i]
		if it.Kind != models.ItemKindMessage {
			continue
		}
		if runes := []rune(it.Text); len(runes) > c.opts.MaxTextLen {
			it.Text = string(runes[:c.opts.MaxTextLen]) + "…"
		}
	}
	payload.Raw = nil

	data, err := json.Marshal(payload)
	if err != nil {
		return env
	}
	compacted := *env
	compacted.Payload = data
	return &compacted
}

// flushLocked serializes the blob through the backing. Failures are logged
// and swallowed; in-memory state stays authoritative for the session.
func (c *Cache) flushLocked() {
	c.snap.UpdatedAtMs = time.Now().UnixMilli()
	data, err := json.Marshal(&c.snap)
	if err != nil {
		logger.Warn("cache_marshal_failed", "error", err)
		return
	}
	if err := c.backing.Store(data); err != nil {
		logger.Warn("cache_write_failed", "error", err)
		writeFailures.Inc()
	}
}
