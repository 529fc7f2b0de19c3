package models

import "testing"

func TestParseScope(t *testing.T) {
	cases := []struct {
		key  string
		kind ScopeKind
		ws   string
		th   string
		ok   bool
	}{
		{"global", ScopeKindGlobal, "", "", true},
		{"workspace/ws1", ScopeKindWorkspace, "ws1", "", true},
		{"thread/ws1/th1", ScopeKindThread, "ws1", "th1", true},
		{"thread/ws1/th1/extra", ScopeKindThread, "ws1", "th1/extra", true},
		{"workspace/", "", "", "", false},
		{"workspace/a/b", "", "", "", false},
		{"thread/ws1", "", "", "", false},
		{"thread//th1", "", "", "", false},
		{"thread/ws1/", "", "", "", false},
		{"bogus", "", "", "", false},
		{"", "", "", "", false},
	}
	for _, c := range cases {
		kind, ws, th, ok := ParseScope(c.key)
		if ok != c.ok || kind != c.kind || ws != c.ws || th != c.th {
			t.Fatalf("ParseScope(%q) = (%q, %q, %q, %v), want (%q, %q, %q, %v)",
				c.key, kind, ws, th, ok, c.kind, c.ws, c.th, c.ok)
		}
	}
}

func TestScopeConstructors(t *testing.T) {
	if got := WorkspaceScope("ws1"); got != "workspace/ws1" {
		t.Fatalf("WorkspaceScope = %q", got)
	}
	if got := ThreadScope("ws1", "th1"); got != "thread/ws1/th1" {
		t.Fatalf("ThreadScope = %q", got)
	}
}

func TestThreadKeyRoundTrip(t *testing.T) {
	key := ThreadKey("ws1", "th1")
	if key != "ws1::th1" {
		t.Fatalf("ThreadKey = %q", key)
	}
	ws, th, ok := SplitThreadKey(key)
	if !ok || ws != "ws1" || th != "th1" {
		t.Fatalf("SplitThreadKey(%q) = (%q, %q, %v)", key, ws, th, ok)
	}
	for _, bad := range []string{"", "ws1", "::th1", "ws1::", "ws1:th1"} {
		if _, _, ok := SplitThreadKey(bad); ok {
			t.Fatalf("SplitThreadKey(%q) unexpectedly ok", bad)
		}
	}
}
