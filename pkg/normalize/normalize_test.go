package normalize

import (
	"encoding/json"
	"testing"

	"codexmonitor/pkg/models"
)

func TestItemMessage(t *testing.T) {
	it := Item(json.RawMessage(`{"type":"message","id":"m1","role":"user","text":"hello"}`))
	if it == nil {
		t.Fatal("expected item")
	}
	if it.Kind != models.ItemKindMessage || it.Role != models.RoleUser || it.Text != "hello" {
		t.Fatalf("unexpected item: %+v", it)
	}
}

func TestItemMessageUnexpectedRole(t *testing.T) {
	it := Item(json.RawMessage(`{"type":"message","id":"m1","role":"system","text":"note"}`))
	if it == nil {
		t.Fatal("expected item")
	}
	if it.Role != models.RoleAssistant {
		t.Fatalf("role = %q, want coerced assistant", it.Role)
	}
	if it.Text != "note" {
		t.Fatalf("text = %q", it.Text)
	}
}

func TestItemTool(t *testing.T) {
	raw := json.RawMessage(`{"type":"toolCall","id":"t1","toolType":"edit","title":"apply patch","status":"completed","changes":[{"path":"main.go","status":"modified","additions":3,"deletions":1}]}`)
	it := Item(raw)
	if it == nil {
		t.Fatal("expected item")
	}
	if it.Kind != models.ItemKindTool || it.ToolType != "edit" {
		t.Fatalf("unexpected item: %+v", it)
	}
	if len(it.Changes) != 1 || it.Changes[0].Path != "main.go" || it.Changes[0].Additions != 3 {
		t.Fatalf("unexpected changes: %+v", it.Changes)
	}
}

func TestItemReviewStateDefault(t *testing.T) {
	it := Item(json.RawMessage(`{"type":"review","id":"r1","state":"weird"}`))
	if it == nil {
		t.Fatal("expected item")
	}
	if it.State != models.ReviewStarted {
		t.Fatalf("state = %q, want started", it.State)
	}
}

func TestItemSkipsUnknownAndAdministrative(t *testing.T) {
	for _, raw := range []string{
		`{"type":"rawUser","text":"echo"}`,
		`{"type":"rawAssistant","text":"echo"}`,
		`{"type":"sessionMeta"}`,
		`{"type":"somethingNew"}`,
		`{}`,
	} {
		if it := Item(json.RawMessage(raw)); it != nil {
			t.Fatalf("Item(%s) = %+v, want nil", raw, it)
		}
	}
	if it := Item(json.RawMessage(`not json`)); it != nil {
		t.Fatalf("malformed input yielded %+v", it)
	}
}

func TestItemDefensiveStringification(t *testing.T) {
	it := Item(json.RawMessage(`{"type":"message","id":7,"role":"user","text":{"nested":true}}`))
	if it == nil {
		t.Fatal("expected item")
	}
	if it.ID != "7" {
		t.Fatalf("id = %q", it.ID)
	}
	if it.Text != `{"nested":true}` {
		t.Fatalf("text = %q", it.Text)
	}
}

func TestThread(t *testing.T) {
	raw := json.RawMessage(`{"turns":[
		{"type":"message","id":"m1","role":"user","text":"q"},
		{"type":"sessionMeta"},
		{"type":"message","id":"m2","role":"assistant","text":"a"}
	]}`)
	items := Thread(raw)
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].Text != "q" || items[1].Text != "a" {
		t.Fatalf("unexpected items: %+v", items)
	}
	if got := Thread(nil); got != nil {
		t.Fatalf("Thread(nil) = %+v", got)
	}
	if got := Thread(json.RawMessage(`[1,2]`)); got != nil {
		t.Fatalf("Thread on non-object = %+v", got)
	}
}
