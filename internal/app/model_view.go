package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"smithy/internal/types"
	"smithy/internal/view"
)

var helpActions = []struct {
	action string
	label  string
}{
	{types.KeyActionStop, "stop"},
	{types.KeyActionToggleFocus, "dialogs"},
	{types.KeyActionNewDialog, "new"},
	{types.KeyActionDeleteDialog, "delete"},
	{types.KeyActionCopyReply, "copy"},
	{types.KeyActionToggleReasoning, "reasoning"},
	{types.KeyActionToggleSidebar, "sidebar"},
	{types.KeyActionQuit, "quit"},
}

func helpText(keys *types.Keymap) string {
	parts := []string{"enter send"}
	for _, item := range helpActions {
		if key := keys.Key(item.action); key != "" {
			parts = append(parts, key+" "+item.label)
		}
	}
	return strings.Join(parts, " · ")
}

func (m *Model) View() string {
	if m.width <= 0 || m.height <= 0 {
		return "Loading…"
	}
	body := m.renderBody()
	if m.confirm.IsOpen() {
		body = lipgloss.Place(m.width, m.bodyHeight(), lipgloss.Center, lipgloss.Center, m.confirm.View(m.width))
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		m.renderStatus(),
		m.input.View(),
		helpStyle.Render(truncateToWidth(helpText(m.keys), m.width)),
	)
}

func (m *Model) resize() {
	m.viewport.Width = m.mainWidth()
	m.viewport.Height = m.bodyHeight()
	m.input.Width = max(1, m.width-lipgloss.Width(inputPrompt)-1)
	m.refreshViewport()
}

func (m *Model) bodyHeight() int {
	return max(1, m.height-headerLines-statusLines-inputLines-helpLines)
}

func (m *Model) mainWidth() int {
	if m.state.SidebarHidden {
		return max(1, m.width)
	}
	return max(1, m.width-sidebarWidth-1)
}

func (m *Model) renderHeader() string {
	title := headerStyle.Render("smithy") + dividerStyle.Render(" · ") + m.dialogTitle(m.views.ActiveID())
	return truncateToWidth(title, m.width)
}

func (m *Model) renderBody() string {
	main := m.viewport.View()
	if m.state.SidebarHidden {
		return main
	}
	height := m.bodyHeight()
	entries := sidebarEntries(m.dialogs, m.views.ActiveID(), m.busy)
	sidebar := renderSidebar(entries, m.selected, m.focus == focusSidebar, sidebarWidth, height)
	divider := dividerStyle.Render(strings.TrimSuffix(strings.Repeat("│\n", height), "\n"))
	return lipgloss.JoinHorizontal(lipgloss.Top, sidebar, divider, main)
}

func (m *Model) busy(dialogID string) bool {
	v, ok := m.views.Lookup(dialogID)
	return ok && v.IsProcessing()
}

// renderStatus shows a live toast, otherwise the state of the active
// dialog.
func (m *Model) renderStatus() string {
	if line := m.toast.line(m.width, m.now()); line != "" {
		return line
	}
	return truncateToWidth(m.statusText(m.activeView()), m.width)
}

func (m *Model) statusText(v *view.View) string {
	switch {
	case !m.connected:
		return statusStyle.Render("Disconnected · /reconnect to retry")
	case v == nil:
		return ""
	case v.IsProcessing():
		return activityStyle.Render(m.spinner.View() + " Thinking…")
	case v.LoadingHistory():
		return statusStyle.Render("Loading history…")
	}
	if status := v.Status(); status != nil && status.HasUnapproved {
		files := len(status.ChangedFiles)
		noun := "files"
		if files == 1 {
			noun = "file"
		}
		return unapprovedStyle.Render(fmt.Sprintf("● Unapproved changes in %d %s", files, noun)) +
			statusStyle.Render(" · /approve or /reset")
	}
	if v.HasMore() && m.viewport.AtTop() {
		return statusStyle.Render("Older messages available · scroll up")
	}
	return ""
}

// sidebarStart is the first dialog row shown when rows fit on screen.
func sidebarStart(selected, rows int) int {
	if rows <= 0 || selected < rows {
		return 0
	}
	return selected - rows + 1
}
