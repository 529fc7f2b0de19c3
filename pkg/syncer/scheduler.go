package syncer

import (
	"context"
	"time"

	"codexmonitor/pkg/logger"
	"codexmonitor/pkg/models"
	"codexmonitor/pkg/telemetry"
)

// Tick runs one scheduler pass: expire stale awaiting-reply records,
// refresh runner presence, then fetch scopes by priority. Global goes
// every tick; workspaces rotate under a re-fetch floor with the active one
// first; the active thread polls fast while a command is live and idles
// otherwise; at most a handful of background threads with outstanding
// replies ride along. Nothing is fetched while the runner is offline.
func (e *Engine) Tick(ctx context.Context) {
	e.checkTimeouts()
	e.discover(ctx)

	now := e.now()
	e.mu.Lock()
	writer := e.runner
	e.mu.Unlock()
	if !writer.Online(now.UnixMilli(), e.opts.LivenessWindow.Milliseconds()) {
		return
	}

	e.fetchScope(ctx, writer.ID, models.ScopeGlobal)
	for _, id := range e.workspaceCandidates(now) {
		e.fetchScope(ctx, writer.ID, models.WorkspaceScope(id))
	}
	for _, key := range e.threadCandidates(now) {
		ws, th, ok := models.SplitThreadKey(key)
		if !ok {
			continue
		}
		e.fetchScope(ctx, writer.ID, models.ThreadScope(ws, th))
	}
}

// discover refreshes the runner record from transport presence. Discovery
// failures keep the previous record; liveness decay handles a runner that
// actually went away.
func (e *Engine) discover(ctx context.Context) {
	w, err := e.tr.DiscoverWriter(ctx)
	if err != nil {
		logger.Debug("writer_discovery_failed", "error", err)
		return
	}
	if w == nil {
		return
	}
	e.mu.Lock()
	changed := e.runner == nil || e.runner.ID != w.ID
	e.runner = w
	e.mu.Unlock()
	if changed {
		logger.Info("runner_discovered", "runner", w.ID)
	}
	if e.cache != nil {
		e.cache.PutRunner(w)
	}
}

// workspaceCandidates picks the workspace ids to fetch this tick: the
// active workspace first, then the global list in order, each gated by the
// minimum re-fetch interval and capped by the per-tick budget. Selected ids
// have their fetch marker advanced even if the fetch later fails, so a
// broken workspace cannot monopolize the budget.
func (e *Engine) workspaceCandidates(now time.Time) []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	minInterval := e.opts.workspaceMinInterval()
	budget := e.opts.WorkspaceFetchesPerTick

	var candidates []string
	seen := map[string]bool{}
	if e.activeWorkspace != "" {
		candidates = append(candidates, e.activeWorkspace)
		seen[e.activeWorkspace] = true
	}
	if e.global != nil {
		for _, ws := range e.global.Workspaces {
			if ws.ID != "" && !seen[ws.ID] {
				candidates = append(candidates, ws.ID)
				seen[ws.ID] = true
			}
		}
	}

	var picked []string
	for _, id := range candidates {
		if len(picked) >= budget {
			break
		}
		if last, ok := e.wsFetchedAt[id]; ok && now.Sub(last) < minInterval {
			continue
		}
		e.wsFetchedAt[id] = now
		picked = append(picked, id)
	}
	return picked
}

// threadCandidates picks the thread keys to fetch this tick: the active
// thread (every tick while a command is live for it, on the idle cadence
// otherwise) plus a bounded number of background threads still awaiting a
// reply.
func (e *Engine) threadCandidates(now time.Time) []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	idle := e.opts.threadIdleInterval()
	var picked []string

	if e.activeKey != "" {
		fast := false
		if st := e.states[e.activeKey]; st != nil {
			fast = st.pending.Live() || st.awaiting != nil
		}
		last, fetched := e.threadFetchedAt[e.activeKey]
		if fast || !fetched || now.Sub(last) >= idle {
			e.threadFetchedAt[e.activeKey] = now
			picked = append(picked, e.activeKey)
		}
	}

	budget := e.opts.BackgroundThreadsPerTick
	for key, st := range e.states {
		if budget <= 0 {
			break
		}
		if key == e.activeKey || st.awaiting == nil {
			continue
		}
		if last, ok := e.threadFetchedAt[key]; ok && now.Sub(last) < idle {
			continue
		}
		e.threadFetchedAt[key] = now
		picked = append(picked, key)
		budget--
	}
	return picked
}

// fetchScope pulls one scope from the store and feeds the result through
// envelope acceptance. Transport errors and malformed or stale envelopes
// are absorbed here; the previous accepted state stays on screen.
func (e *Engine) fetchScope(ctx context.Context, writerID, scope string) {
	if !e.limits.allow(scope) {
		return
	}
	kind, _, _, _ := models.ParseScope(scope)
	metricFetches.WithLabelValues(string(kind)).Inc()

	start := e.now()
	raw, err := e.tr.FetchSnapshot(ctx, writerID, scope)
	if err != nil {
		metricFetchErrors.Inc()
		logger.Debug("snapshot_fetch_failed", "scope", scope, "error", err)
		e.tel.Push(telemetry.Event{Event: "fetch_error", ScopeKey: scope, Note: err.Error()})
		return
	}
	if len(raw) == 0 {
		return
	}
	env := models.ParseEnvelope(raw)
	if env == nil {
		metricDiscarded.Inc()
		e.tel.Push(telemetry.Event{Event: "snapshot_discarded", ScopeKey: scope, Note: "malformed"})
		return
	}
	if e.applyEnvelope(env, true) {
		e.tel.Push(telemetry.Event{
			Event:      "snapshot_accepted",
			ScopeKey:   scope,
			DurationMs: e.now().Sub(start).Milliseconds(),
		})
	} else {
		e.tel.Push(telemetry.Event{Event: "snapshot_discarded", ScopeKey: scope, Note: "stale"})
	}
}

// applyEnvelope decodes, version-checks and installs one live envelope.
// The payload is decoded before the timestamp is consumed so an
// undecodable envelope never burns a version slot. Returns whether the
// envelope was accepted.
func (e *Engine) applyEnvelope(env *models.Envelope, persist bool) bool {
	return e.apply(env, persist, e.versions.accept)
}

// applyCached installs a cached envelope but seeds the version table one
// below its timestamp. Cached copies are compacted, so the store's own
// envelope at the same timestamp must still be able to replace them.
func (e *Engine) applyCached(env *models.Envelope) bool {
	return e.apply(env, false, e.versions.seedBelow)
}

func (e *Engine) apply(env *models.Envelope, persist bool, accept func(scope string, ts int64) bool) bool {
	kind, ws, th, ok := models.ParseScope(env.ScopeKey)
	if !ok {
		metricDiscarded.Inc()
		return false
	}

	switch kind {
	case models.ScopeKindGlobal:
		p, err := env.GlobalPayload()
		if err != nil || !accept(env.ScopeKey, env.Timestamp) {
			metricDiscarded.Inc()
			return false
		}
		e.mu.Lock()
		e.global = p
		e.mu.Unlock()
		if persist && e.cache != nil {
			e.cache.PutGlobal(env)
		}

	case models.ScopeKindWorkspace:
		p, err := env.WorkspacePayload()
		if err != nil || !accept(env.ScopeKey, env.Timestamp) {
			metricDiscarded.Inc()
			return false
		}
		e.mu.Lock()
		e.workspaces[ws] = p
		e.mu.Unlock()
		if persist && e.cache != nil {
			e.cache.PutWorkspace(ws, env)
		}

	case models.ScopeKindThread:
		p, err := env.ThreadPayload()
		if err != nil || !accept(env.ScopeKey, env.Timestamp) {
			metricDiscarded.Inc()
			return false
		}
		// the scope key is authoritative for addressing, not the payload's
		// own workspaceId/threadId fields
		key := models.ThreadKey(ws, th)
		e.mu.Lock()
		e.threads[key] = p
		e.reconcileLocked(key, p)
		e.mu.Unlock()
		if persist && e.cache != nil {
			e.cache.PutThread(key, env)
		}
	}

	metricAccepted.Inc()
	return true
}
