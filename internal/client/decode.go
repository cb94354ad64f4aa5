package client

import (
	"fmt"
	"math"
	"strings"
	"time"

	"smithy/internal/types"
)

// Responses are checked field by field; a wrong-typed field takes its
// default instead of failing the whole response.

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func asString(m map[string]any, key string) string {
	value, _ := m[key].(string)
	return value
}

func asStringPtr(m map[string]any, key string) *string {
	value, ok := m[key].(string)
	if !ok {
		return nil
	}
	return &value
}

func asBool(m map[string]any, key string) bool {
	value, _ := m[key].(bool)
	return value
}

func asInt(m map[string]any, key string) int {
	value, ok := asIntPtr(m, key)
	if !ok {
		return 0
	}
	return *value
}

func asIntPtr(m map[string]any, key string) (*int, bool) {
	value, ok := m[key].(float64)
	if !ok || math.IsNaN(value) || math.IsInf(value, 0) || value != math.Trunc(value) ||
		value < math.MinInt || value >= -float64(math.MinInt) {
		return nil, false
	}
	out := int(value)
	return &out, true
}

func asTime(m map[string]any, key string) time.Time {
	raw := strings.TrimSpace(asString(m, key))
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts
		}
	}
	return time.Time{}
}

func asMap(value any) map[string]any {
	m, _ := value.(map[string]any)
	return m
}

func asList(value any) []any {
	list, _ := value.([]any)
	return list
}

// asStringList accepts plain strings and FastAPI style {"loc", "msg"}
// validation entries.
func asStringList(value any) []string {
	var out []string
	for _, item := range asList(value) {
		switch v := item.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				out = append(out, v)
			}
		case map[string]any:
			msg := asString(v, "msg")
			if msg == "" {
				msg = asString(v, "message")
			}
			if msg == "" {
				continue
			}
			if loc := locString(v["loc"]); loc != "" {
				msg = loc + ": " + msg
			}
			out = append(out, msg)
		}
	}
	return out
}

func locString(value any) string {
	parts := make([]string, 0, 4)
	for _, item := range asList(value) {
		switch v := item.(type) {
		case string:
			parts = append(parts, v)
		case float64:
			parts = append(parts, fmt.Sprintf("%d", int(v)))
		}
	}
	return strings.Join(parts, ".")
}

func parseHealth(raw map[string]any) *types.Health {
	health := &types.Health{
		OK:      asBool(raw, "ok"),
		Version: asString(raw, "version"),
	}
	if !health.OK && asString(raw, "status") == "ok" {
		health.OK = true
	}
	return health
}

func parseDialog(raw map[string]any) *types.Dialog {
	id := strings.TrimSpace(asString(raw, "id"))
	if id == "" {
		return nil
	}
	return &types.Dialog{
		ID:        id,
		Title:     asStringPtr(raw, "title"),
		CreatedAt: asTime(raw, "created_at"),
		UpdatedAt: asTime(raw, "updated_at"),
	}
}

func parseDialogList(raw map[string]any) *types.DialogList {
	out := &types.DialogList{CurrentDialogID: asString(raw, "current_dialog_id")}
	items := asList(raw["items"])
	if items == nil {
		items = asList(raw["dialogs"])
	}
	for _, item := range items {
		if dialog := parseDialog(asMap(item)); dialog != nil {
			out.Items = append(out.Items, dialog)
		}
	}
	return out
}

func parseHistoryEvent(raw map[string]any) (types.HistoryEvent, bool) {
	typ := asString(raw, "type")
	if typ == "" {
		return types.HistoryEvent{}, false
	}
	ev := types.HistoryEvent{
		Type:       types.HistoryEventType(typ),
		Content:    asString(raw, "content"),
		Name:       asString(raw, "name"),
		Args:       raw["args"],
		File:       asString(raw, "file"),
		Diff:       asString(raw, "diff"),
		Checkpoint: asString(raw, "checkpoint"),
		ModelName:  asString(raw, "model_name"),
	}
	if ev.File == "" {
		ev.File = asString(raw, "path")
	}
	if idx, ok := asIntPtr(raw, "idx"); ok {
		ev.Idx = idx
	}
	return ev, true
}

func parseHistoryPage(raw map[string]any) *types.HistoryPage {
	page := &types.HistoryPage{
		DialogID:    asString(raw, "dialog_id"),
		TotalEvents: asInt(raw, "total_events"),
		HasMore:     asBool(raw, "has_more"),
	}
	if idx, ok := asIntPtr(raw, "first_idx"); ok {
		page.FirstIdx = idx
	}
	if idx, ok := asIntPtr(raw, "last_idx"); ok {
		page.LastIdx = idx
	}
	for _, item := range asList(raw["events"]) {
		if ev, ok := parseHistoryEvent(asMap(item)); ok {
			page.Events = append(page.Events, ev)
		}
	}
	return page
}

func parseSessionStatus(raw map[string]any) *types.SessionStatus {
	status := &types.SessionStatus{
		ActiveSession: asString(raw, "active_session"),
		SessionRef:    asString(raw, "session_ref"),
		HasUnapproved: asBool(raw, "has_unapproved"),
	}
	if ts := asTime(raw, "last_approved_at"); !ts.IsZero() {
		status.LastApprovedAt = &ts
	}
	for _, item := range asList(raw["changed_files"]) {
		m := asMap(item)
		path := asString(m, "path")
		if path == "" {
			continue
		}
		status.ChangedFiles = append(status.ChangedFiles, types.ChangedFile{
			Path:      path,
			Status:    asString(m, "status"),
			Additions: asInt(m, "additions"),
			Deletions: asInt(m, "deletions"),
			Diff:      asString(m, "diff"),
		})
	}
	return status
}

func parseApproveResult(raw map[string]any) *types.ApproveResult {
	return &types.ApproveResult{
		ApprovedCommit:  asString(raw, "approved_commit"),
		NewSession:      asString(raw, "new_session"),
		CommitsApproved: asInt(raw, "commits_approved"),
	}
}

func parseResetResult(raw map[string]any) *types.ResetResult {
	return &types.ResetResult{
		ResetTo:    asString(raw, "reset_to"),
		NewSession: asString(raw, "new_session"),
	}
}

func parseRestoreResult(raw map[string]any) *types.RestoreResult {
	return &types.RestoreResult{
		RestoredTo:    asString(raw, "restored_to"),
		NewCheckpoint: asString(raw, "new_checkpoint"),
	}
}

func parseCheckpoints(raw map[string]any) []types.Checkpoint {
	var out []types.Checkpoint
	for _, item := range asList(raw["checkpoints"]) {
		m := asMap(item)
		id := asString(m, "commit_id")
		if id == "" {
			continue
		}
		out = append(out, types.Checkpoint{CommitID: id, Message: asString(m, "message")})
	}
	return out
}

func parseServerConfig(raw map[string]any) *types.ServerConfig {
	cfg := &types.ServerConfig{
		Config:   asMap(raw["config"]),
		Metadata: asMap(raw["metadata"]),
	}
	if cfg.Config == nil {
		cfg.Config = map[string]any{}
	}
	return cfg
}
