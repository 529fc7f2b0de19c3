package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseEnvelope(t *testing.T) {
	good := []byte(`{"version":1,"timestamp":1000,"writerId":"r1","scopeKey":"global","payload":{"workspaces":[]}}`)
	env := ParseEnvelope(good)
	if env == nil {
		t.Fatal("expected envelope, got nil")
	}
	if env.Timestamp != 1000 || env.WriterID != "r1" || env.ScopeKey != "global" {
		t.Fatalf("unexpected envelope: %+v", env)
	}

	bad := [][]byte{
		nil,
		[]byte(""),
		[]byte("   "),
		[]byte("not json"),
		[]byte(`{"version":2,"timestamp":1,"payload":{}}`),
		[]byte(`{"version":1,"timestamp":1,"payload":[]}`),
		[]byte(`{"version":1,"timestamp":1,"payload":"str"}`),
		[]byte(`{"version":1,"timestamp":1}`),
	}
	for _, raw := range bad {
		if env := ParseEnvelope(raw); env != nil {
			t.Fatalf("ParseEnvelope(%q) = %+v, want nil", raw, env)
		}
	}
}

func TestEnvelopePayloadDecode(t *testing.T) {
	raw := []byte(`{"version":1,"timestamp":5,"scopeKey":"thread/ws1/th1","payload":{"workspaceId":"ws1","threadId":"th1","items":[{"id":"i1","kind":"message","role":"user","text":"hi"}]}}`)
	env := ParseEnvelope(raw)
	if env == nil {
		t.Fatal("expected envelope")
	}
	p, err := env.ThreadPayload()
	if err != nil {
		t.Fatalf("ThreadPayload: %v", err)
	}
	if len(p.Items) != 1 || p.Items[0].Text != "hi" {
		t.Fatalf("unexpected payload: %+v", p)
	}
}

func TestWriterOnline(t *testing.T) {
	now := time.Now().UnixMilli()
	w := &WriterInfo{ID: "r1", LastSeenAtMs: now - 1000}
	if !w.Online(now, 20000) {
		t.Fatal("writer seen 1s ago should be online within a 20s window")
	}
	if w.Online(now, 500) {
		t.Fatal("writer seen 1s ago should be offline within a 0.5s window")
	}
	var nilWriter *WriterInfo
	if nilWriter.Online(now, 20000) {
		t.Fatal("nil writer must be offline")
	}
}

func TestItemSignature(t *testing.T) {
	msg := ConversationItem{Kind: ItemKindMessage, Role: RoleUser, Text: "hi"}
	if got := msg.Signature(); got != "message:user:hi" {
		t.Fatalf("Signature = %q", got)
	}
	tool := ConversationItem{Kind: ItemKindTool, Title: "run"}
	if got := tool.Signature(); got != "" {
		t.Fatalf("non-message signature = %q, want empty", got)
	}
}

func TestCommandResultAssistantText(t *testing.T) {
	res := &CommandResult{OK: true, Payload: json.RawMessage(`{"assistantText":"done"}`)}
	if got := res.AssistantText(); got != "done" {
		t.Fatalf("AssistantText = %q", got)
	}
	empty := &CommandResult{OK: true, Payload: json.RawMessage(`{"other":1}`)}
	if got := empty.AssistantText(); got != "" {
		t.Fatalf("AssistantText = %q, want empty", got)
	}
	var nilRes *CommandResult
	if got := nilRes.AssistantText(); got != "" {
		t.Fatalf("nil AssistantText = %q", got)
	}
}

func TestNewSendUserMessageDefaults(t *testing.T) {
	cmd := NewSendUserMessage("client1", "ws1", "th1", "hello", "")
	if cmd.CommandID == "" {
		t.Fatal("expected generated command id")
	}
	if cmd.Type != CmdSendUserMessage {
		t.Fatalf("Type = %q", cmd.Type)
	}
	args, ok := cmd.Args.(SendUserMessageArgs)
	if !ok {
		t.Fatalf("Args type %T", cmd.Args)
	}
	if args.AccessMode != DefaultAccessMode {
		t.Fatalf("AccessMode = %q, want %q", args.AccessMode, DefaultAccessMode)
	}
}
