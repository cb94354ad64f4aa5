package app

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"smithy/internal/bridge"
	"smithy/internal/sessionops"
	"smithy/internal/types"
	"smithy/internal/view"
)

const slashHelp = "/new [title] · /rename <title> · /delete · /approve [message] · /reset · /restore <checkpoint> · /open <path> · /copy · /reconnect · /quit"

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if m.confirm.IsOpen() {
		m.confirm.HandleKey(msg)
		return nil
	}
	switch m.keys.Action(msg.String()) {
	case types.KeyActionQuit:
		return tea.Quit
	case types.KeyActionStop:
		if v := m.activeView(); v.IsProcessing() {
			return m.runIntent(bridge.StopStream{DialogID: v.DialogID()})
		}
		m.focusOn(focusInput)
		return nil
	case types.KeyActionToggleFocus:
		if m.state.SidebarHidden {
			return nil
		}
		if m.focus == focusInput {
			m.focusOn(focusSidebar)
		} else {
			m.focusOn(focusInput)
		}
		return nil
	case types.KeyActionToggleSidebar:
		m.state.SidebarHidden = !m.state.SidebarHidden
		if m.state.SidebarHidden {
			m.focusOn(focusInput)
		}
		m.resize()
		return nil
	case types.KeyActionNewDialog:
		return m.runIntent(bridge.CreateDialog{})
	case types.KeyActionDeleteDialog:
		m.confirmDelete(m.views.ActiveID())
		return nil
	case types.KeyActionCopyReply:
		return m.copyLastReply()
	case types.KeyActionToggleReasoning:
		m.toggleReasoning()
		return nil
	case types.KeyActionPageUp:
		return m.scroll(-max(1, m.viewport.Height/2))
	case types.KeyActionPageDown:
		return m.scroll(max(1, m.viewport.Height/2))
	}

	if m.focus == focusSidebar {
		return m.handleSidebarKey(msg)
	}
	switch msg.String() {
	case "enter":
		return m.submit()
	case "up":
		return m.scroll(-scrollStep)
	case "down":
		return m.scroll(scrollStep)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Model) handleSidebarKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < len(m.dialogs)-1 {
			m.selected++
		}
	case "enter":
		if m.selected < len(m.dialogs) {
			id := m.dialogs[m.selected].ID
			m.focusOn(focusInput)
			if id != m.views.ActiveID() {
				return m.activate(id, true)
			}
		}
	case "d", "delete":
		if m.selected < len(m.dialogs) {
			m.confirmDelete(m.dialogs[m.selected].ID)
		}
	case "n":
		return m.runIntent(bridge.CreateDialog{})
	}
	return nil
}

func (m *Model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	if m.confirm.IsOpen() {
		return nil
	}
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		return m.scroll(-scrollStep)
	case tea.MouseButtonWheelDown:
		return m.scroll(scrollStep)
	case tea.MouseButtonLeft:
		if msg.Action != tea.MouseActionPress || m.state.SidebarHidden || msg.X >= sidebarWidth {
			return nil
		}
		row := msg.Y - headerLines - 1
		idx := row + sidebarStart(m.selected, m.bodyHeight()-1)
		if row < 0 || idx >= len(m.dialogs) {
			return nil
		}
		m.selected = idx
		if id := m.dialogs[idx].ID; id != m.views.ActiveID() {
			return m.activate(id, true)
		}
	}
	return nil
}

func (m *Model) focusOn(area focusArea) {
	m.focus = area
	if area == focusInput {
		m.input.Focus()
		return
	}
	m.input.Blur()
	if idx := m.dialogIndex(m.views.ActiveID()); idx >= 0 {
		m.selected = idx
	}
}

func (m *Model) submit() tea.Cmd {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return nil
	}
	if strings.HasPrefix(text, "/") {
		m.input.SetValue("")
		return m.runSlash(text)
	}
	v := m.activeView()
	if v == nil {
		v, _ = m.views.Activate("")
	}
	if v.IsProcessing() {
		return m.showError("A reply is still streaming; press esc to stop it")
	}
	if !m.connected {
		return m.showError("Not connected to the server; try /reconnect")
	}
	m.input.SetValue("")
	m.state.SetDraft(v.DialogID(), "")
	v.SetScroll(0, true)
	return m.runIntent(bridge.SendMessage{DialogID: v.DialogID(), Text: text})
}

func (m *Model) runSlash(line string) tea.Cmd {
	name, arg, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	arg = strings.TrimSpace(arg)
	dialogID := m.views.ActiveID()
	switch strings.ToLower(name) {
	case "help":
		return m.showInfo(slashHelp)
	case "new":
		return m.runIntent(bridge.CreateDialog{Title: arg})
	case "rename":
		if dialogID == "" {
			return m.showError("No dialog to rename")
		}
		if arg == "" {
			return m.showError("Usage: /rename <title>")
		}
		return m.runIntent(bridge.RenameDialog{DialogID: dialogID, Title: arg})
	case "delete":
		m.confirmDelete(dialogID)
		return nil
	case "approve":
		return m.runIntent(bridge.Approve{DialogID: dialogID, Message: arg})
	case "reset":
		return m.runIntent(bridge.ResetToApproved{DialogID: dialogID})
	case "restore":
		if arg == "" {
			return m.showError("Usage: /restore <checkpoint>")
		}
		return m.runIntent(bridge.RestoreCheckpoint{DialogID: dialogID, CheckpointID: arg})
	case "open":
		if arg == "" {
			return m.showError("Usage: /open <path>")
		}
		return m.runIntent(bridge.OpenFile{Path: arg})
	case "copy":
		return m.copyLastReply()
	case "reconnect":
		return m.connectCmd()
	case "quit", "exit":
		return tea.Quit
	default:
		return m.showError(fmt.Sprintf("Unknown command /%s; try /help", name))
	}
}

// confirmDelete asks before deleting. The intent is queued from the
// callback and sent when the current update finishes.
func (m *Model) confirmDelete(dialogID string) {
	if dialogID == "" {
		return
	}
	m.confirm.Open(sessionops.Prompt{
		Title:        "Delete dialog",
		Message:      fmt.Sprintf("Delete %q? Its history is removed from the server.", m.dialogTitle(dialogID)),
		ConfirmLabel: "Delete",
		CancelLabel:  "Keep",
	}, func(ok bool) {
		if ok {
			m.pending = append(m.pending, bridge.DeleteDialog{DialogID: dialogID})
		}
	})
}

func (m *Model) copyLastReply() tea.Cmd {
	text := m.activeView().LastAssistantText()
	if strings.TrimSpace(text) == "" {
		return m.showError("Nothing to copy yet")
	}
	copyText := m.copyText
	return func() tea.Msg {
		return copyResultMsg{err: copyText(text)}
	}
}

// toggleReasoning expands or collapses the newest reasoning block.
func (m *Model) toggleReasoning() {
	v := m.activeView()
	if v == nil {
		return
	}
	blocks := v.Blocks()
	for i := len(blocks) - 1; i >= 0; i-- {
		if blocks[i].Role == view.RoleReasoning {
			follow := v.Scroll().Follow
			v.ToggleCollapsed(i)
			v.SetScroll(m.viewport.YOffset, follow)
			m.refreshViewport()
			return
		}
	}
}
