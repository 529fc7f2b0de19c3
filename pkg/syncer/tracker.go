package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"codexmonitor/pkg/logger"
	"codexmonitor/pkg/models"
	"codexmonitor/pkg/telemetry"
)

// Send failures surfaced to callers before anything is dispatched.
var (
	ErrNoRunner        = errors.New("no runner online")
	ErrCommandInFlight = errors.New("a command is already in flight for this thread")
	ErrDuplicateSend   = errors.New("duplicate send suppressed")
	ErrEmptyMessage    = errors.New("message text is empty")
)

// threadState is the per-thread-key bookkeeping record. Pending command,
// awaiting-reply anchor and optimistic overlay live together because they
// share one lifecycle: a send populates all three, reconciliation and
// timeouts clear them together.
type threadState struct {
	pending  *models.PendingCommand
	awaiting *models.AwaitingReply
	overlay  []models.ConversationItem

	lastSentText string
	lastSentAt   time.Time
}

func (e *Engine) ensureStateLocked(key string) *threadState {
	st := e.states[key]
	if st == nil {
		st = &threadState{}
		e.states[key] = st
	}
	return st
}

// SendUserMessage dispatches a user message to a thread. The message is
// inserted into the local overlay immediately; the returned command id
// tracks the rest of the lifecycle. Rejections (in-flight command,
// duplicate within the debounce window, offline runner) happen before any
// state changes.
func (e *Engine) SendUserMessage(ctx context.Context, workspaceID, threadID, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyMessage
	}
	key := models.ThreadKey(workspaceID, threadID)
	now := e.now()

	e.mu.Lock()
	writer := e.runner
	if !writer.Online(now.UnixMilli(), e.opts.LivenessWindow.Milliseconds()) {
		e.mu.Unlock()
		return "", ErrNoRunner
	}
	st := e.ensureStateLocked(key)
	if st.pending.Live() {
		e.mu.Unlock()
		return "", ErrCommandInFlight
	}
	if text == st.lastSentText && now.Sub(st.lastSentAt) < e.opts.DuplicateSendWindow {
		e.mu.Unlock()
		return "", ErrDuplicateSend
	}

	cmd := models.NewSendUserMessage(e.opts.ClientID, workspaceID, threadID, text, "")
	payload, err := json.Marshal(cmd)
	if err != nil {
		e.mu.Unlock()
		return "", err
	}

	st.pending = &models.PendingCommand{ID: cmd.CommandID, CreatedAt: now, Phase: models.PhaseSubmitting}
	st.awaiting = &models.AwaitingReply{
		CommandID:              cmd.CommandID,
		WorkspaceID:            workspaceID,
		ThreadID:               threadID,
		StartedAt:              now,
		BaselineAssistantCount: assistantCount(effectiveItems(e.threads[key])),
	}
	st.overlay = append(st.overlay, models.ConversationItem{
		ID:   "local-" + cmd.CommandID,
		Kind: models.ItemKindMessage,
		Role: models.RoleUser,
		Text: text,
	})
	st.lastSentText = text
	st.lastSentAt = now
	writerID := writer.ID
	e.mu.Unlock()

	submitErr := e.tr.SubmitCommand(ctx, writerID, payload)

	e.mu.Lock()
	defer e.mu.Unlock()
	st = e.ensureStateLocked(key)
	if st.pending == nil || st.pending.ID != cmd.CommandID {
		// resolved or replaced while the dispatch was in flight
		return cmd.CommandID, submitErr
	}
	if submitErr != nil {
		st.pending.Phase = models.PhaseError
		st.pending.Err = submitErr.Error()
		st.awaiting = nil
		metricCommandErrors.Inc()
		logger.Warn("command_submit_failed", "command", cmd.CommandID, "error", submitErr)
		e.tel.Push(telemetry.Event{
			Event:       "command_error",
			WorkspaceID: workspaceID,
			ThreadID:    threadID,
			CommandID:   cmd.CommandID,
			Note:        submitErr.Error(),
		})
		return cmd.CommandID, submitErr
	}
	st.pending.Phase = models.PhaseWaitingResult
	metricCommandsSent.Inc()
	e.tel.Push(telemetry.Event{
		Event:       "command_submitted",
		WorkspaceID: workspaceID,
		ThreadID:    threadID,
		CommandID:   cmd.CommandID,
	})
	return cmd.CommandID, nil
}

// ConnectWorkspace asks the runner to connect a workspace.
func (e *Engine) ConnectWorkspace(ctx context.Context, workspaceID string) error {
	return e.submitControl(ctx, models.CmdConnectWorkspace, models.ThreadArgs{WorkspaceID: workspaceID})
}

// ResumeThread asks the runner to resume an existing thread.
func (e *Engine) ResumeThread(ctx context.Context, workspaceID, threadID string) error {
	return e.submitControl(ctx, models.CmdResumeThread, models.ThreadArgs{WorkspaceID: workspaceID, ThreadID: threadID})
}

// StartThread asks the runner to start a fresh thread in a workspace.
func (e *Engine) StartThread(ctx context.Context, workspaceID string) error {
	return e.submitControl(ctx, models.CmdStartThread, models.ThreadArgs{WorkspaceID: workspaceID})
}

// submitControl dispatches a control command. Control commands carry no
// per-thread lifecycle; their effect shows up in later snapshots.
func (e *Engine) submitControl(ctx context.Context, typ string, args models.ThreadArgs) error {
	e.mu.Lock()
	writer := e.runner
	e.mu.Unlock()
	if !writer.Online(e.now().UnixMilli(), e.opts.LivenessWindow.Milliseconds()) {
		return ErrNoRunner
	}
	cmd := models.NewCommand(e.opts.ClientID, typ, args)
	payload, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	if err := e.tr.SubmitCommand(ctx, writer.ID, payload); err != nil {
		metricCommandErrors.Inc()
		logger.Warn("command_submit_failed", "type", typ, "error", err)
		return err
	}
	metricCommandsSent.Inc()
	e.tel.Push(telemetry.Event{
		Event:       "command_submitted",
		WorkspaceID: args.WorkspaceID,
		ThreadID:    args.ThreadID,
		CommandID:   cmd.CommandID,
		Note:        typ,
	})
	return nil
}

// PollResults probes the transport for results of every command in the
// waitingResult phase. Runs on its own cadence, faster than the snapshot
// scheduler, so submit feedback is prompt.
func (e *Engine) PollResults(ctx context.Context) {
	type probe struct{ key, id string }

	e.mu.Lock()
	writerID := ""
	if e.runner != nil {
		writerID = e.runner.ID
	}
	var probes []probe
	for key, st := range e.states {
		if st.pending != nil && st.pending.Phase == models.PhaseWaitingResult {
			probes = append(probes, probe{key, st.pending.ID})
		}
	}
	e.mu.Unlock()
	if writerID == "" || len(probes) == 0 {
		return
	}

	for _, p := range probes {
		res, err := e.tr.FetchCommandResult(ctx, writerID, p.id)
		if err != nil {
			logger.Debug("result_fetch_failed", "command", p.id, "error", err)
			continue
		}
		if res == nil {
			continue
		}
		e.applyResult(p.key, p.id, res)
	}
}

// applyResult moves one pending command out of waitingResult. A failed
// result is terminal; a successful one either resolves inline when the
// runner returned assistant text, or advances to waitingReply where
// snapshot growth is the proof.
func (e *Engine) applyResult(key, id string, res *models.CommandResult) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.states[key]
	if st == nil || st.pending == nil || st.pending.ID != id || st.pending.Phase != models.PhaseWaitingResult {
		return
	}
	ws, th, _ := models.SplitThreadKey(key)

	if !res.OK {
		msg := res.Error
		if msg == "" {
			msg = "command failed"
		}
		st.pending.Phase = models.PhaseError
		st.pending.Err = msg
		st.awaiting = nil
		metricCommandErrors.Inc()
		logger.Warn("command_failed", "command", id, "error", msg)
		e.tel.Push(telemetry.Event{
			Event:       "command_error",
			WorkspaceID: ws,
			ThreadID:    th,
			CommandID:   id,
			Note:        msg,
		})
		return
	}

	if txt := res.AssistantText(); txt != "" {
		st.overlay = append(st.overlay, models.ConversationItem{
			ID:   "result-" + id,
			Kind: models.ItemKindMessage,
			Role: models.RoleAssistant,
			Text: txt,
		})
		st.pending = nil
		st.awaiting = nil
		e.tel.Push(telemetry.Event{
			Event:       "reply_confirmed",
			WorkspaceID: ws,
			ThreadID:    th,
			CommandID:   id,
			Note:        "inline",
		})
		return
	}

	st.pending.Phase = models.PhaseWaitingReply
	e.tel.Push(telemetry.Event{
		Event:       "command_acknowledged",
		WorkspaceID: ws,
		ThreadID:    th,
		CommandID:   id,
	})
}

// checkTimeouts force-clears awaiting-reply records past the reply timeout
// together with their pending commands. A timeout is not an error: the
// agent may still be working and its reply will land via a later snapshot.
func (e *Engine) checkTimeouts() {
	now := e.now()
	e.mu.Lock()
	defer e.mu.Unlock()

	for key, st := range e.states {
		if st.awaiting == nil || now.Sub(st.awaiting.StartedAt) < e.opts.ReplyTimeout {
			continue
		}
		id := st.awaiting.CommandID
		st.awaiting = nil
		if st.pending != nil && st.pending.ID == id {
			st.pending = nil
		}
		metricReplyTimeouts.Inc()
		ws, th, _ := models.SplitThreadKey(key)
		logger.Info("reply_timeout", "command", id, "thread", key)
		e.tel.Push(telemetry.Event{
			Event:       "reply_timeout",
			WorkspaceID: ws,
			ThreadID:    th,
			CommandID:   id,
		})
	}
}

func assistantCount(items []models.ConversationItem) int {
	n := 0
	for i := range items {
		if items[i].IsAssistantMessage() {
			n++
		}
	}
	return n
}
