package types

type HistoryEventType string

const (
	HistoryEventUser      HistoryEventType = "user"
	HistoryEventChat      HistoryEventType = "chat"
	HistoryEventReasoning HistoryEventType = "reasoning"
	HistoryEventToolCall  HistoryEventType = "tool_call"
	HistoryEventFileEdit  HistoryEventType = "file_edit"
	HistoryEventError     HistoryEventType = "error"
)

// HistoryEvent is one persisted entry of a dialog's event log. Idx is only
// present on indexable entries (user and chat messages).
type HistoryEvent struct {
	Type       HistoryEventType `json:"type"`
	Idx        *int             `json:"idx,omitempty"`
	Content    string           `json:"content,omitempty"`
	Name       string           `json:"name,omitempty"`
	Args       any              `json:"args,omitempty"`
	File       string           `json:"file,omitempty"`
	Diff       string           `json:"diff,omitempty"`
	Checkpoint string           `json:"checkpoint,omitempty"`
	ModelName  string           `json:"model_name,omitempty"`
}

type HistoryPage struct {
	DialogID    string         `json:"dialog_id"`
	Events      []HistoryEvent `json:"events"`
	TotalEvents int            `json:"total_events"`
	HasMore     bool           `json:"has_more"`
	FirstIdx    *int           `json:"first_idx"`
	LastIdx     *int           `json:"last_idx"`
}

func IntPtr(v int) *int {
	return &v
}
