package syncer

import (
	"codexmonitor/pkg/logger"
	"codexmonitor/pkg/models"
	"codexmonitor/pkg/normalize"
	"codexmonitor/pkg/telemetry"
)

// effectiveItems renders a thread payload: a non-empty pre-rendered item
// list wins, otherwise the opaque raw thread record is normalized.
func effectiveItems(p *models.ThreadPayload) []models.ConversationItem {
	if p == nil {
		return nil
	}
	if len(p.Items) > 0 {
		return p.Items
	}
	return normalize.Thread(p.Raw)
}

// reconcileLocked runs after a thread envelope is accepted: overlay items
// whose signature now appears in remote state are dropped, and an
// awaiting-reply record resolves once the snapshot carries more assistant
// messages than the baseline captured at send time.
func (e *Engine) reconcileLocked(key string, p *models.ThreadPayload) {
	st := e.states[key]
	if st == nil {
		return
	}
	items := effectiveItems(p)

	if len(st.overlay) > 0 {
		sigs := map[string]bool{}
		for i := range items {
			if s := items[i].Signature(); s != "" {
				sigs[s] = true
			}
		}
		kept := st.overlay[:0]
		for _, ov := range st.overlay {
			if s := ov.Signature(); s != "" && sigs[s] {
				continue
			}
			kept = append(kept, ov)
		}
		st.overlay = kept
	}

	if st.awaiting != nil && assistantCount(items) > st.awaiting.BaselineAssistantCount {
		id := st.awaiting.CommandID
		st.awaiting = nil
		if st.pending != nil && st.pending.ID == id {
			st.pending = nil
		}
		ws, th, _ := models.SplitThreadKey(key)
		logger.Info("reply_confirmed", "command", id, "thread", key)
		e.tel.Push(telemetry.Event{
			Event:       "reply_confirmed",
			WorkspaceID: ws,
			ThreadID:    th,
			CommandID:   id,
			Note:        "snapshot",
		})
	}
}

// Items returns the merged conversation for a thread: the authoritative
// remote items followed by surviving overlay items. Overlay items whose
// signature already appears in the authoritative tail window are skipped
// so a confirmed message is never rendered twice.
func (e *Engine) Items(workspaceID, threadID string) []models.ConversationItem {
	key := models.ThreadKey(workspaceID, threadID)

	e.mu.Lock()
	defer e.mu.Unlock()

	auth := effectiveItems(e.threads[key])
	out := append([]models.ConversationItem(nil), auth...)
	st := e.states[key]
	if st == nil || len(st.overlay) == 0 {
		return out
	}

	tail := map[string]bool{}
	start := len(auth) - e.opts.DedupeWindow
	if start < 0 {
		start = 0
	}
	for i := start; i < len(auth); i++ {
		if s := auth[i].Signature(); s != "" {
			tail[s] = true
		}
	}
	for _, ov := range st.overlay {
		if s := ov.Signature(); s != "" && tail[s] {
			continue
		}
		out = append(out, ov)
	}
	return out
}
