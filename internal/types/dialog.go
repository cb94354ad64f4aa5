package types

import (
	"strings"
	"time"
)

type Dialog struct {
	ID        string    `json:"id"`
	Title     *string   `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const untitledDialog = "New dialog"

// DisplayTitle returns the title or a placeholder for untitled dialogs.
func (d *Dialog) DisplayTitle() string {
	if d == nil || d.Title == nil || strings.TrimSpace(*d.Title) == "" {
		return untitledDialog
	}
	return strings.TrimSpace(*d.Title)
}

func CloneDialog(d *Dialog) *Dialog {
	if d == nil {
		return nil
	}
	out := *d
	if d.Title != nil {
		title := *d.Title
		out.Title = &title
	}
	return &out
}

type DialogList struct {
	Items           []*Dialog `json:"items"`
	CurrentDialogID string    `json:"current_dialog_id"`
}
