package models

import (
	"bytes"
	"encoding/json"
)

// EnvelopeVersion is the only snapshot schema version this client accepts.
const EnvelopeVersion = 1

// Envelope wraps a scope payload as written by a remote runner. Timestamps
// are writer-assigned milliseconds, monotonic per scope; the engine accepts
// an envelope only when its timestamp strictly exceeds the last accepted one
// for the same scope.
type Envelope struct {
	Version   int             `json:"version"`
	Timestamp int64           `json:"timestamp"`
	WriterID  string          `json:"writerId"`
	ScopeKey  string          `json:"scopeKey"`
	Payload   json.RawMessage `json:"payload"`
}

// ParseEnvelope decodes raw snapshot bytes. It returns nil for malformed
// JSON, a non-object payload, or a version other than EnvelopeVersion.
// No payload-shape validation happens here; the store is external and the
// client degrades to "no data" rather than crash on schema drift.
func ParseEnvelope(raw []byte) *Envelope {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil
	}
	if env.Version != EnvelopeVersion {
		return nil
	}
	p := bytes.TrimSpace(env.Payload)
	if len(p) == 0 || p[0] != '{' {
		return nil
	}
	return &env
}

// WorkspaceSummary is one entry of the global workspace list.
type WorkspaceSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Path      string `json:"path,omitempty"`
	Connected bool   `json:"connected,omitempty"`
}

// GlobalPayload is the payload of the global scope.
type GlobalPayload struct {
	Workspaces []WorkspaceSummary `json:"workspaces"`
}

// ThreadSummary is one entry of a workspace's thread list.
type ThreadSummary struct {
	ID          string `json:"id"`
	Title       string `json:"title,omitempty"`
	UpdatedAtMs int64  `json:"updatedAtMs,omitempty"`
}

// ThreadStatus mirrors the runner-side activity flags for a thread.
type ThreadStatus struct {
	IsProcessing bool `json:"isProcessing"`
	HasUnread    bool `json:"hasUnread"`
	IsReviewing  bool `json:"isReviewing"`
}

// WorkspacePayload is the payload of a workspace scope.
type WorkspacePayload struct {
	WorkspaceID string                  `json:"workspaceId"`
	Threads     []ThreadSummary         `json:"threads"`
	Status      map[string]ThreadStatus `json:"status,omitempty"`
}

// ThreadPayload is the payload of a thread scope. Items and Raw are
// mutually exclusive in preference: a non-empty Items list wins, Raw is the
// opaque runner-side thread record kept for normalization fallback.
type ThreadPayload struct {
	WorkspaceID string             `json:"workspaceId"`
	ThreadID    string             `json:"threadId"`
	Items       []ConversationItem `json:"items,omitempty"`
	Raw         json.RawMessage    `json:"raw,omitempty"`
	Status      *ThreadStatus      `json:"status,omitempty"`
}

// GlobalPayload decodes the envelope payload as the global scope shape.
func (e *Envelope) GlobalPayload() (*GlobalPayload, error) {
	var p GlobalPayload
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// WorkspacePayload decodes the envelope payload as a workspace scope shape.
func (e *Envelope) WorkspacePayload() (*WorkspacePayload, error) {
	var p WorkspacePayload
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ThreadPayload decodes the envelope payload as a thread scope shape.
func (e *Envelope) ThreadPayload() (*ThreadPayload, error) {
	var p ThreadPayload
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// WriterInfo describes a discovered runner (the remote snapshot writer).
type WriterInfo struct {
	ID           string `json:"id"`
	DisplayName  string `json:"displayName,omitempty"`
	LastSeenAtMs int64  `json:"lastSeenAtMs"`
}

// Online reports whether the writer was seen within the liveness window.
func (w *WriterInfo) Online(nowMs int64, windowMs int64) bool {
	if w == nil {
		return false
	}
	return nowMs-w.LastSeenAtMs < windowMs
}
