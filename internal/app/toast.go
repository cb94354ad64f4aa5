package app

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const toastDuration = 4 * time.Second

type toastLevel int

const (
	toastLevelInfo toastLevel = iota
	toastLevelError
)

type toast struct {
	level toastLevel
	text  string
	until time.Time
}

type toastExpiredMsg struct {
	until time.Time
}

func (t *toast) show(level toastLevel, message string, now time.Time) bool {
	message = strings.TrimSpace(message)
	if message == "" {
		return false
	}
	t.level = level
	t.text = message
	t.until = now.Add(toastDuration)
	return true
}

func (t *toast) clear() {
	*t = toast{}
}

func (t *toast) active(now time.Time) bool {
	return strings.TrimSpace(t.text) != "" && now.Before(t.until)
}

func (t *toast) line(width int, now time.Time) string {
	if !t.active(now) || width <= 0 {
		return ""
	}
	text := truncateToWidth(t.text, max(1, width-4))
	style := toastInfoStyle
	if t.level == toastLevelError {
		style = toastErrorStyle
	}
	return lipgloss.PlaceHorizontal(width, lipgloss.Right, style.Render(" "+text+" "))
}
