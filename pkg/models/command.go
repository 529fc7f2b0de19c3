package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// CommandPhase is the lifecycle state of a pending command for one thread.
type CommandPhase string

const (
	PhaseSubmitting    CommandPhase = "submitting"
	PhaseWaitingResult CommandPhase = "waitingResult"
	PhaseWaitingReply  CommandPhase = "waitingReply"
	PhaseDone          CommandPhase = "done"
	PhaseError         CommandPhase = "error"
)

// PendingCommand tracks one in-flight command for a thread key. At most one
// live (non-error) pending command exists per thread key; a new send while
// one is live is rejected, not queued.
type PendingCommand struct {
	ID        string       `json:"id"`
	CreatedAt time.Time    `json:"createdAt"`
	Phase     CommandPhase `json:"phase"`
	Err       string       `json:"error,omitempty"`
}

// Live reports whether the command still blocks new sends for its thread.
func (p *PendingCommand) Live() bool {
	return p != nil && p.Phase != PhaseError && p.Phase != PhaseDone
}

// AwaitingReply anchors "has a new assistant message arrived since this
// command was sent" independently of the command result content.
type AwaitingReply struct {
	CommandID              string    `json:"commandId"`
	WorkspaceID            string    `json:"workspaceId"`
	ThreadID               string    `json:"threadId"`
	StartedAt              time.Time `json:"startedAt"`
	BaselineAssistantCount int       `json:"baselineAssistantMessageCount"`
}

// Command type discriminators on the wire.
const (
	CmdConnectWorkspace = "connectWorkspace"
	CmdResumeThread     = "resumeThread"
	CmdStartThread      = "startThread"
	CmdSendUserMessage  = "sendUserMessage"
)

// DefaultAccessMode is applied when a send does not specify one.
const DefaultAccessMode = "current"

// CommandEnvelope is the fire-and-forget command wire shape.
type CommandEnvelope struct {
	CommandID string `json:"commandId"`
	ClientID  string `json:"clientId"`
	Type      string `json:"type"`
	Args      any    `json:"args"`
}

// SendUserMessageArgs are the args of a sendUserMessage command.
type SendUserMessageArgs struct {
	WorkspaceID string `json:"workspaceId"`
	ThreadID    string `json:"threadId"`
	Text        string `json:"text"`
	AccessMode  string `json:"accessMode"`
}

// ThreadArgs address a thread for connect/resume/start commands.
type ThreadArgs struct {
	WorkspaceID string `json:"workspaceId"`
	ThreadID    string `json:"threadId,omitempty"`
}

// NewCommand builds a command envelope with a fresh id.
func NewCommand(clientID, typ string, args any) CommandEnvelope {
	return CommandEnvelope{
		CommandID: uuid.NewString(),
		ClientID:  clientID,
		Type:      typ,
		Args:      args,
	}
}

// NewSendUserMessage builds a sendUserMessage command, defaulting the
// access mode when empty.
func NewSendUserMessage(clientID, workspaceID, threadID, text, accessMode string) CommandEnvelope {
	if accessMode == "" {
		accessMode = DefaultAccessMode
	}
	return NewCommand(clientID, CmdSendUserMessage, SendUserMessageArgs{
		WorkspaceID: workspaceID,
		ThreadID:    threadID,
		Text:        text,
		AccessMode:  accessMode,
	})
}

// CommandResult is the runner's answer to a command, fetched by id.
type CommandResult struct {
	OK      bool            `json:"ok"`
	Payload json.RawMessage `json:"payloadJson,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// AssistantText extracts an inline assistant reply from the result payload,
// when the runner chose to return one. Empty when absent or undecodable.
func (r *CommandResult) AssistantText() string {
	if r == nil || len(r.Payload) == 0 {
		return ""
	}
	var p struct {
		AssistantText string `json:"assistantText"`
	}
	if err := json.Unmarshal(r.Payload, &p); err != nil {
		return ""
	}
	return p.AssistantText
}
