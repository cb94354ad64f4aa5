package app

import (
	"strings"

	"smithy/internal/types"
)

// sidebarEntry is one dialog row. Busy marks a dialog with a running
// stream, which may not be the active one.
type sidebarEntry struct {
	ID     string
	Title  string
	Active bool
	Busy   bool
}

func sidebarEntries(dialogs []*types.Dialog, activeID string, busy func(string) bool) []sidebarEntry {
	entries := make([]sidebarEntry, 0, len(dialogs))
	for _, dialog := range dialogs {
		if dialog == nil {
			continue
		}
		entries = append(entries, sidebarEntry{
			ID:     dialog.ID,
			Title:  dialog.DisplayTitle(),
			Active: dialog.ID == activeID,
			Busy:   busy != nil && busy(dialog.ID),
		})
	}
	return entries
}

func renderSidebar(entries []sidebarEntry, selected int, focused bool, width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	header := "Dialogs"
	if focused {
		header = "Dialogs ·"
	}
	lines := []string{headerStyle.Render(padToWidth(truncatePlain(header, width), width))}
	if len(entries) == 0 {
		lines = append(lines, helpStyle.Render(padToWidth(truncatePlain("no dialogs yet", width), width)))
	}

	for i := sidebarStart(selected, height-1); i < len(entries) && len(lines) < height; i++ {
		entry := entries[i]
		marker := "  "
		switch {
		case entry.Busy:
			marker = "● "
		case entry.Active:
			marker = "› "
		}
		text := padToWidth(truncatePlain(marker+entry.Title, width), width)
		switch {
		case focused && i == selected:
			text = selectedStyle.Render(text)
		case entry.Active:
			text = dialogActiveStyle.Render(text)
		case entry.Busy:
			text = dialogBusyStyle.Render(text)
		default:
			text = dialogStyle.Render(text)
		}
		lines = append(lines, text)
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}
