// Package normalize converts heterogeneous raw agent-turn records into the
// canonical conversation item shape. It is a pure boundary function: callers
// feed it whatever the runner recorded and get best-effort items back, never
// an error and never a panic.
package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"

	"codexmonitor/pkg/models"
)

// Item normalizes one raw turn record. It returns nil for malformed input,
// unknown types and administrative records (raw user/assistant echoes that a
// typed message record supersedes).
func Item(raw json.RawMessage) *models.ConversationItem {
	var rec map[string]any
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil
	}
	return fromRecord(rec)
}

// Items normalizes a list of raw turn records, skipping the ones that yield
// no item.
func Items(raws []json.RawMessage) []models.ConversationItem {
	var out []models.ConversationItem
	for _, raw := range raws {
		if it := Item(raw); it != nil {
			out = append(out, *it)
		}
	}
	return out
}

// Thread normalizes the opaque raw thread record of a thread payload,
// expected to be `{"turns": [...]}`. A nil or undecodable record yields nil.
func Thread(raw json.RawMessage) []models.ConversationItem {
	if len(raw) == 0 {
		return nil
	}
	var rec struct {
		Turns []json.RawMessage `json:"turns"`
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil
	}
	return Items(rec.Turns)
}

func fromRecord(rec map[string]any) *models.ConversationItem {
	typ, _ := rec["type"].(string)
	id := str(rec["id"])

	switch typ {
	case "message":
		role := str(rec["role"])
		if role != models.RoleUser && role != models.RoleAssistant {
			// tolerate unexpected roles rather than drop the text
			role = models.RoleAssistant
		}
		return &models.ConversationItem{
			ID:   id,
			Kind: models.ItemKindMessage,
			Role: role,
			Text: str(rec["text"]),
		}
	case "reasoning":
		return &models.ConversationItem{
			ID:      id,
			Kind:    models.ItemKindReasoning,
			Summary: str(rec["summary"]),
			Content: str(rec["content"]),
		}
	case "tool", "toolCall":
		it := &models.ConversationItem{
			ID:       id,
			Kind:     models.ItemKindTool,
			ToolType: str(rec["toolType"]),
			Title:    str(rec["title"]),
			Detail:   str(rec["detail"]),
			Status:   str(rec["status"]),
			Output:   str(rec["output"]),
		}
		if changes, ok := rec["changes"].([]any); ok {
			for _, c := range changes {
				cm, ok := c.(map[string]any)
				if !ok {
					continue
				}
				it.Changes = append(it.Changes, models.FileChange{
					Path:      str(cm["path"]),
					Status:    str(cm["status"]),
					Additions: num(cm["additions"]),
					Deletions: num(cm["deletions"]),
				})
			}
		}
		return it
	case "review":
		state := str(rec["state"])
		if state != models.ReviewStarted && state != models.ReviewCompleted {
			state = models.ReviewStarted
		}
		return &models.ConversationItem{
			ID:    id,
			Kind:  models.ItemKindReview,
			State: state,
			Text:  str(rec["text"]),
		}
	}
	// rawUser, rawAssistant, sessionMeta and anything unrecognized yield
	// no item; typed message records carry the same content.
	return nil
}

// str renders an arbitrary decoded JSON value as a string. Scalars are
// stringified directly, composites fall back to their JSON encoding so a
// partially malformed record still surfaces something readable.
func str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	}
}

func num(v any) int64 {
	switch t := v.(type) {
	case float64:
		return int64(t)
	case string:
		n, _ := strconv.ParseInt(t, 10, 64)
		return n
	default:
		return 0
	}
}
