package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"codexmonitor/pkg/models"
)

type memBacking struct {
	data      []byte
	failStore bool
}

func (m *memBacking) Load() ([]byte, error) { return m.data, nil }

func (m *memBacking) Store(d []byte) error {
	if m.failStore {
		return errors.New("store failed")
	}
	m.data = append([]byte(nil), d...)
	return nil
}

func threadEnv(t *testing.T, ts int64, ws, th string, items []models.ConversationItem) *models.Envelope {
	t.Helper()
	payload, err := json.Marshal(models.ThreadPayload{
		WorkspaceID: ws,
		ThreadID:    th,
		Items:       items,
		Raw:         json.RawMessage(`{"turns":[]}`),
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return &models.Envelope{
		Version:   models.EnvelopeVersion,
		Timestamp: ts,
		WriterID:  "r1",
		ScopeKey:  models.ThreadScope(ws, th),
		Payload:   payload,
	}
}

func TestPutThreadCompaction(t *testing.T) {
	c := New(&memBacking{}, Options{})

	items := make([]models.ConversationItem, 200)
	for i := range items {
		items[i] = models.ConversationItem{
			ID:   fmt.Sprintf("i%d", i),
			Kind: models.ItemKindMessage,
			Role: models.RoleUser,
			Text: fmt.Sprintf("msg %d", i),
		}
	}
	items[199].Text = strings.Repeat("x", 5000)

	key := models.ThreadKey("ws1", "th1")
	c.PutThread(key, threadEnv(t, 100, "ws1", "th1", items))

	env := c.Thread(key)
	if env == nil {
		t.Fatal("expected cached envelope")
	}
	p, err := env.ThreadPayload()
	if err != nil {
		t.Fatalf("decode cached payload: %v", err)
	}
	if len(p.Items) != 80 {
		t.Fatalf("got %d items, want 80", len(p.Items))
	}
	if p.Items[0].ID != "i120" {
		t.Fatalf("tail starts at %s, want i120", p.Items[0].ID)
	}
	last := p.Items[79]
	if got := len([]rune(last.Text)); got != 2001 {
		t.Fatalf("truncated text length %d runes, want 2000 plus ellipsis", got)
	}
	if !strings.HasSuffix(last.Text, "…") {
		t.Fatal("truncated text must end with ellipsis")
	}
	if p.Raw != nil {
		t.Fatal("raw record must be dropped on compaction")
	}
}

func TestPutThreadMRUEviction(t *testing.T) {
	c := New(&memBacking{}, Options{})

	for i := 1; i <= 8; i++ {
		ws := fmt.Sprintf("ws%d", i)
		c.PutThread(models.ThreadKey(ws, "th"), threadEnv(t, int64(i), ws, "th", nil))
	}
	// refresh thread 1 so thread 2 becomes the eviction candidate
	c.PutThread(models.ThreadKey("ws1", "th"), threadEnv(t, 100, "ws1", "th", nil))
	c.PutThread(models.ThreadKey("ws9", "th"), threadEnv(t, 101, "ws9", "th", nil))

	if c.Thread(models.ThreadKey("ws2", "th")) != nil {
		t.Fatal("least recently touched thread should be evicted")
	}
	if c.Thread(models.ThreadKey("ws1", "th")) == nil {
		t.Fatal("refreshed thread must survive")
	}
	if c.Thread(models.ThreadKey("ws9", "th")) == nil {
		t.Fatal("newest thread must survive")
	}
}

func TestLoadRoundTrip(t *testing.T) {
	b := &memBacking{}
	c1 := New(b, Options{})
	payload, _ := json.Marshal(models.GlobalPayload{Workspaces: []models.WorkspaceSummary{{ID: "ws1", Name: "demo"}}})
	c1.PutGlobal(&models.Envelope{Version: 1, Timestamp: 10, ScopeKey: models.ScopeGlobal, Payload: payload})

	c2 := New(b, Options{})
	snap := c2.Load()
	if snap == nil {
		t.Fatal("expected persisted snapshot")
	}
	if snap.Global == nil || snap.Global.Timestamp != 10 {
		t.Fatalf("unexpected global: %+v", snap.Global)
	}
}

func TestLoadRejectsExpiredAndUnknown(t *testing.T) {
	old, _ := json.Marshal(Snapshot{V: blobVersion, UpdatedAtMs: time.Now().Add(-15 * 24 * time.Hour).UnixMilli()})
	c := New(&memBacking{data: old}, Options{})
	if c.Load() != nil {
		t.Fatal("expired blob must load as nil")
	}

	wrong, _ := json.Marshal(Snapshot{V: 99, UpdatedAtMs: time.Now().UnixMilli()})
	c = New(&memBacking{data: wrong}, Options{})
	if c.Load() != nil {
		t.Fatal("unknown schema version must load as nil")
	}

	c = New(&memBacking{data: []byte("not json")}, Options{})
	if c.Load() != nil {
		t.Fatal("undecodable blob must load as nil")
	}

	c = New(&memBacking{}, Options{})
	if c.Load() != nil {
		t.Fatal("missing blob must load as nil")
	}
}

func TestSweepRemovesOldThreads(t *testing.T) {
	c := New(&memBacking{}, Options{})

	oldTS := time.Now().Add(-15 * 24 * time.Hour).UnixMilli()
	freshTS := time.Now().UnixMilli()
	c.PutThread(models.ThreadKey("ws1", "old"), threadEnv(t, oldTS, "ws1", "old", nil))
	c.PutThread(models.ThreadKey("ws1", "new"), threadEnv(t, freshTS, "ws1", "new", nil))

	if removed := c.Sweep(); removed != 1 {
		t.Fatalf("Sweep removed %d, want 1", removed)
	}
	if c.Thread(models.ThreadKey("ws1", "old")) != nil {
		t.Fatal("stale thread must be swept")
	}
	if c.Thread(models.ThreadKey("ws1", "new")) == nil {
		t.Fatal("fresh thread must survive the sweep")
	}
}

func TestFailingBackingKeepsSessionState(t *testing.T) {
	c := New(&memBacking{failStore: true}, Options{})
	key := models.ThreadKey("ws1", "th1")
	c.PutThread(key, threadEnv(t, 5, "ws1", "th1", nil))
	if c.Thread(key) == nil {
		t.Fatal("in-memory state must survive a failing backing")
	}
}
