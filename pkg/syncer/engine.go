// Package syncer is the client-side synchronization engine. It polls the
// shared snapshot store on an adaptive schedule, accepts envelopes under a
// strict per-scope timestamp check, tracks fire-and-forget commands through
// their lifecycle, and reconciles optimistic local items against remote
// state. All public methods are safe for concurrent use.
package syncer

import (
	"context"
	"sync"
	"time"

	"codexmonitor/pkg/cache"
	"codexmonitor/pkg/logger"
	"codexmonitor/pkg/models"
	"codexmonitor/pkg/telemetry"
	"codexmonitor/pkg/transport"
)

// Engine owns the in-memory view of remote state and the per-thread command
// bookkeeping. One instance per client process.
type Engine struct {
	opts  Options
	tr    transport.Transport
	cache *cache.Cache
	tel   *telemetry.Log

	versions *versionTable
	limits   *limiterPool
	now      func() time.Time

	mu              sync.Mutex
	runner          *models.WriterInfo
	global          *models.GlobalPayload
	workspaces      map[string]*models.WorkspacePayload
	threads         map[string]*models.ThreadPayload
	states          map[string]*threadState
	wsFetchedAt     map[string]time.Time
	threadFetchedAt map[string]time.Time
	activeWorkspace string
	activeKey       string
}

// New builds an engine over a transport. The cache and telemetry log are
// both optional; a nil cache disables hydration and persistence.
func New(tr transport.Transport, c *cache.Cache, tel *telemetry.Log, opts Options) *Engine {
	opts = opts.withDefaults()
	return &Engine{
		opts:            opts,
		tr:              tr,
		cache:           c,
		tel:             tel,
		versions:        newVersionTable(),
		limits:          newLimiterPool(opts.FetchRPS, opts.FetchBurst),
		now:             time.Now,
		workspaces:      map[string]*models.WorkspacePayload{},
		threads:         map[string]*models.ThreadPayload{},
		states:          map[string]*threadState{},
		wsFetchedAt:     map[string]time.Time{},
		threadFetchedAt: map[string]time.Time{},
	}
}

// Run hydrates from the cache and drives the two poll loops until the
// context is cancelled. The first tick fires immediately so the UI is not
// blank for a full poll interval after startup.
func (e *Engine) Run(ctx context.Context) {
	e.Hydrate()
	go e.resultLoop(ctx)

	ticker := time.NewTicker(e.opts.PollInterval)
	defer ticker.Stop()
	e.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Tick(ctx)
		}
	}
}

func (e *Engine) resultLoop(ctx context.Context) {
	ticker := time.NewTicker(e.opts.ResultPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.PollResults(ctx)
		}
	}
}

// Hydrate adopts the persisted cache blob as the starting view. Cached
// envelopes are installed through applyCached so the version table stays
// one below their timestamps and the first live fetch of each scope wins,
// even when the store still holds the exact envelope the cache was cut
// from. Safe to call at most once, before Run's loops start fetching.
func (e *Engine) Hydrate() {
	if e.cache == nil {
		return
	}
	snap := e.cache.Load()
	if snap == nil {
		return
	}
	if snap.Runner != nil {
		e.mu.Lock()
		e.runner = snap.Runner
		e.mu.Unlock()
	}
	applied := 0
	if snap.Global != nil && e.applyCached(snap.Global) {
		applied++
	}
	for _, env := range snap.Workspaces {
		if env != nil && e.applyCached(env) {
			applied++
		}
	}
	for _, key := range snap.ThreadOrder {
		if env := snap.Threads[key]; env != nil && e.applyCached(env) {
			applied++
		}
	}
	e.tel.Push(telemetry.Event{Event: "cache_hydrate", FromCache: true})
	logger.Info("engine_hydrated", "scopes", applied)
}

// SetActiveWorkspace marks a workspace as the one on screen; it is fetched
// first on the next tick, bypassing the per-workspace re-fetch floor once.
func (e *Engine) SetActiveWorkspace(workspaceID string) {
	e.mu.Lock()
	e.activeWorkspace = workspaceID
	delete(e.wsFetchedAt, workspaceID)
	e.mu.Unlock()
}

// SetActiveThread marks a thread as the one on screen. The thread is served
// from the cache immediately when no live state exists for it yet, and its
// fetch marker is cleared so the next tick pulls it fresh.
func (e *Engine) SetActiveThread(workspaceID, threadID string) {
	key := models.ThreadKey(workspaceID, threadID)

	e.mu.Lock()
	e.activeWorkspace = workspaceID
	e.activeKey = key
	delete(e.threadFetchedAt, key)
	needHydrate := e.threads[key] == nil && e.cache != nil
	e.mu.Unlock()

	if !needHydrate {
		return
	}
	if env := e.cache.Thread(key); env != nil {
		if e.applyCached(env) {
			e.tel.Push(telemetry.Event{
				Event:       "thread_hydrated",
				WorkspaceID: workspaceID,
				ThreadID:    threadID,
				ScopeKey:    env.ScopeKey,
				FromCache:   true,
			})
		}
	}
}

// Runner returns a copy of the most recently discovered runner, nil when
// none has ever been seen.
func (e *Engine) Runner() *models.WriterInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.runner == nil {
		return nil
	}
	w := *e.runner
	return &w
}

// RunnerOnline reports whether the runner was seen within the liveness
// window.
func (e *Engine) RunnerOnline() bool {
	e.mu.Lock()
	w := e.runner
	e.mu.Unlock()
	return w.Online(e.now().UnixMilli(), e.opts.LivenessWindow.Milliseconds())
}

// Workspaces returns the global workspace list, empty before the first
// accepted global snapshot.
func (e *Engine) Workspaces() []models.WorkspaceSummary {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.global == nil {
		return nil
	}
	return append([]models.WorkspaceSummary(nil), e.global.Workspaces...)
}

// WorkspaceThreads returns the thread list of a workspace, nil when its
// snapshot has not been accepted yet.
func (e *Engine) WorkspaceThreads(workspaceID string) []models.ThreadSummary {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.workspaces[workspaceID]
	if p == nil {
		return nil
	}
	return append([]models.ThreadSummary(nil), p.Threads...)
}

// ThreadStatus returns the activity flags for a thread. The workspace
// snapshot's status map wins; the thread snapshot's own status is the
// fallback for threads the workspace no longer lists.
func (e *Engine) ThreadStatus(workspaceID, threadID string) models.ThreadStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	if p := e.workspaces[workspaceID]; p != nil {
		if st, ok := p.Status[threadID]; ok {
			return st
		}
	}
	if t := e.threads[models.ThreadKey(workspaceID, threadID)]; t != nil && t.Status != nil {
		return *t.Status
	}
	return models.ThreadStatus{}
}

// Pending returns a copy of the thread's pending command, nil when none.
func (e *Engine) Pending(workspaceID, threadID string) *models.PendingCommand {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := e.states[models.ThreadKey(workspaceID, threadID)]
	if st == nil || st.pending == nil {
		return nil
	}
	p := *st.pending
	return &p
}

// PendingError returns the terminal error of the thread's pending command,
// empty when the command is live or absent.
func (e *Engine) PendingError(workspaceID, threadID string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := e.states[models.ThreadKey(workspaceID, threadID)]
	if st == nil || st.pending == nil || st.pending.Phase != models.PhaseError {
		return ""
	}
	return st.pending.Err
}
