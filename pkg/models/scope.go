package models

import "strings"

// Scope keys address the three independently fetched units of remote state:
// the global workspace list, one workspace, or one thread. Scopes form a
// containment hierarchy but carry no foreign keys; a thread scope may refer
// to a workspace that the global snapshot no longer lists.
const (
	ScopeGlobal = "global"

	scopeWorkspacePrefix = "workspace/"
	scopeThreadPrefix    = "thread/"
)

// WorkspaceScope returns the scope key for a workspace.
func WorkspaceScope(workspaceID string) string {
	return scopeWorkspacePrefix + workspaceID
}

// ThreadScope returns the scope key for a thread within a workspace.
func ThreadScope(workspaceID, threadID string) string {
	return scopeThreadPrefix + workspaceID + "/" + threadID
}

// ScopeKind classifies a scope key. Unknown forms yield an empty kind.
type ScopeKind string

const (
	ScopeKindGlobal    ScopeKind = "global"
	ScopeKindWorkspace ScopeKind = "workspace"
	ScopeKindThread    ScopeKind = "thread"
)

// ParseScope splits a scope key into its kind and path segments. For a
// workspace scope the first id is the workspace; for a thread scope the
// second id is the thread.
func ParseScope(key string) (kind ScopeKind, workspaceID, threadID string, ok bool) {
	switch {
	case key == ScopeGlobal:
		return ScopeKindGlobal, "", "", true
	case strings.HasPrefix(key, scopeWorkspacePrefix):
		id := key[len(scopeWorkspacePrefix):]
		if id == "" || strings.Contains(id, "/") {
			return "", "", "", false
		}
		return ScopeKindWorkspace, id, "", true
	case strings.HasPrefix(key, scopeThreadPrefix):
		rest := key[len(scopeThreadPrefix):]
		parts := strings.SplitN(rest, "/", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return "", "", "", false
		}
		return ScopeKindThread, parts[0], parts[1], true
	}
	return "", "", "", false
}

// ThreadKey is the composite key used for per-thread engine state
// (pending commands, overlays, awaiting-reply records).
func ThreadKey(workspaceID, threadID string) string {
	return workspaceID + "::" + threadID
}

// SplitThreadKey reverses ThreadKey. ok is false for malformed keys.
func SplitThreadKey(key string) (workspaceID, threadID string, ok bool) {
	i := strings.Index(key, "::")
	if i <= 0 || i+2 >= len(key) {
		return "", "", false
	}
	return key[:i], key[i+2:], true
}
