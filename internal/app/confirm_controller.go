package app

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	xansi "github.com/charmbracelet/x/ansi"

	"smithy/internal/sessionops"
)

type confirmChoice int

const (
	confirmChoiceNone confirmChoice = iota
	confirmChoiceConfirm
	confirmChoiceCancel
)

const confirmMaxWidth = 60

// ConfirmController is the modal yes/no dialog. The pending callback gets
// the answer exactly once.
type ConfirmController struct {
	active   bool
	prompt   sessionops.Prompt
	selected int
	pending  func(bool)
}

func NewConfirmController() *ConfirmController {
	return &ConfirmController{}
}

func (c *ConfirmController) IsOpen() bool {
	return c != nil && c.active
}

// Open shows prompt. An already open prompt is answered with cancel first.
func (c *ConfirmController) Open(prompt sessionops.Prompt, pending func(bool)) {
	if c == nil {
		return
	}
	if c.active {
		c.Resolve(false)
	}
	if strings.TrimSpace(prompt.ConfirmLabel) == "" {
		prompt.ConfirmLabel = "Confirm"
	}
	if strings.TrimSpace(prompt.CancelLabel) == "" {
		prompt.CancelLabel = "Cancel"
	}
	c.active = true
	c.prompt = prompt
	c.selected = 0
	c.pending = pending
}

// Resolve closes the dialog and reports the answer.
func (c *ConfirmController) Resolve(confirmed bool) {
	if c == nil || !c.active {
		return
	}
	pending := c.pending
	c.active = false
	c.prompt = sessionops.Prompt{}
	c.selected = 0
	c.pending = nil
	if pending != nil {
		pending(confirmed)
	}
}

func (c *ConfirmController) HandleKey(msg tea.KeyMsg) bool {
	if c == nil || !c.active {
		return false
	}
	switch c.choiceForKey(msg.String()) {
	case confirmChoiceConfirm:
		c.Resolve(true)
	case confirmChoiceCancel:
		c.Resolve(false)
	}
	return true
}

func (c *ConfirmController) choiceForKey(key string) confirmChoice {
	switch key {
	case "esc", "q", "n":
		return confirmChoiceCancel
	case "y":
		return confirmChoiceConfirm
	case "left", "h":
		c.selected = 0
	case "right", "l":
		c.selected = 1
	case "tab":
		c.selected = 1 - c.selected
	case "enter":
		if c.selected == 0 {
			return confirmChoiceConfirm
		}
		return confirmChoiceCancel
	}
	return confirmChoiceNone
}

func (c *ConfirmController) View(maxWidth int) string {
	if c == nil || !c.active {
		return ""
	}
	width := confirmMaxWidth
	if maxWidth > 0 && width > maxWidth-4 {
		width = max(10, maxWidth-4)
	}
	contentWidth := max(1, width-2)
	title := c.prompt.Title
	if strings.TrimSpace(title) == "" {
		title = "Confirm"
	}
	lines := []string{confirmHeaderStyle.Render(" " + padToWidth(truncateToWidth(title, contentWidth), contentWidth) + " ")}

	if message := strings.TrimSpace(c.prompt.Message); message != "" {
		for _, line := range strings.Split(xansi.Hardwrap(message, contentWidth, true), "\n") {
			lines = append(lines, menuDropStyle.Render(" "+padToWidth(truncateToWidth(line, contentWidth), contentWidth)+" "))
		}
	}

	leftWidth := contentWidth / 2
	rightWidth := contentWidth - leftWidth
	confirm := padToWidth(truncateToWidth("["+c.prompt.ConfirmLabel+"]", leftWidth), leftWidth)
	cancel := padToWidth(truncateToWidth("["+c.prompt.CancelLabel+"]", rightWidth), rightWidth)
	if c.selected == 0 {
		confirm = selectedStyle.Render(confirm)
		cancel = menuDropStyle.Render(cancel)
	} else {
		confirm = menuDropStyle.Render(confirm)
		cancel = selectedStyle.Render(cancel)
	}
	lines = append(lines, " "+confirm+cancel+" ")
	return confirmDialogBorderStyle.Render(strings.Join(lines, "\n"))
}
