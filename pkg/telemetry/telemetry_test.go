package telemetry

import (
	"errors"
	"fmt"
	"testing"
)

type memBacking struct {
	data    []byte
	failing bool
}

func (m *memBacking) Load() ([]byte, error) { return m.data, nil }

func (m *memBacking) Store(d []byte) error {
	if m.failing {
		return errors.New("store failed")
	}
	m.data = append([]byte(nil), d...)
	return nil
}

func TestPushCapsRing(t *testing.T) {
	l := NewLog(nil, 3)
	for i := 0; i < 5; i++ {
		l.Push(Event{Event: fmt.Sprintf("e%d", i)})
	}
	events := l.ReadAll()
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	if events[0].Event != "e2" || events[2].Event != "e4" {
		t.Fatalf("unexpected ring contents: %+v", events)
	}
}

func TestPushStampsTimestamp(t *testing.T) {
	l := NewLog(nil, 10)
	l.Push(Event{Event: "x"})
	if ts := l.ReadAll()[0].TS; ts == 0 {
		t.Fatal("expected stamped timestamp")
	}
	l.Push(Event{Event: "y", TS: 42})
	if ts := l.ReadAll()[1].TS; ts != 42 {
		t.Fatalf("explicit timestamp overwritten: %d", ts)
	}
}

func TestClear(t *testing.T) {
	l := NewLog(nil, 10)
	l.Push(Event{Event: "x"})
	l.Clear()
	if got := l.ReadAll(); len(got) != 0 {
		t.Fatalf("got %d events after clear", len(got))
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	b := &memBacking{}
	l1 := NewLog(b, 10)
	l1.Push(Event{Event: "boot", WorkspaceID: "ws1"})

	l2 := NewLog(b, 10)
	events := l2.ReadAll()
	if len(events) != 1 || events[0].Event != "boot" || events[0].WorkspaceID != "ws1" {
		t.Fatalf("hydrated events: %+v", events)
	}
}

func TestHydrationRespectsCapacity(t *testing.T) {
	b := &memBacking{}
	l1 := NewLog(b, 10)
	for i := 0; i < 10; i++ {
		l1.Push(Event{Event: fmt.Sprintf("e%d", i)})
	}
	l2 := NewLog(b, 4)
	events := l2.ReadAll()
	if len(events) != 4 {
		t.Fatalf("got %d events, want 4", len(events))
	}
	if events[0].Event != "e6" {
		t.Fatalf("unexpected oldest event: %+v", events[0])
	}
}

func TestNilLogIsSafe(t *testing.T) {
	var l *Log
	l.Push(Event{Event: "x"})
	l.Clear()
	if got := l.ReadAll(); got != nil {
		t.Fatalf("nil log ReadAll = %+v", got)
	}
}

func TestFailingBackingIsSwallowed(t *testing.T) {
	l := NewLog(&memBacking{failing: true}, 10)
	l.Push(Event{Event: "x"})
	if len(l.ReadAll()) != 1 {
		t.Fatal("event must survive a failing backing")
	}
}
