package types

// UIState is what the terminal UI restores on the next launch for one
// workspace.
type UIState struct {
	Workspace      string            `json:"workspace"`
	ActiveDialogID string            `json:"active_dialog_id"`
	Drafts         map[string]string `json:"drafts,omitempty"`
	SidebarHidden  bool              `json:"sidebar_hidden"`
}

func (s *UIState) Draft(dialogID string) string {
	if s == nil || s.Drafts == nil {
		return ""
	}
	return s.Drafts[dialogID]
}

func (s *UIState) SetDraft(dialogID, text string) {
	if s == nil {
		return
	}
	if text == "" {
		delete(s.Drafts, dialogID)
		return
	}
	if s.Drafts == nil {
		s.Drafts = map[string]string{}
	}
	s.Drafts[dialogID] = text
}
