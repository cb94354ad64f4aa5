package app

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	glamouransi "github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

const defaultMarkdownWidth = 80

// markdownRenderers holds one glamour renderer per wrap width. Building a
// renderer parses the whole style sheet, so they are reused.
type markdownRenderers struct {
	mu      sync.Mutex
	once    sync.Once
	dark    bool
	byWidth map[int]*glamour.TermRenderer
}

var sharedMarkdown = &markdownRenderers{}

// renderMarkdown renders a finished assistant reply. Live blocks are shown
// as plain text since partial markdown renders badly.
func renderMarkdown(input string, width int) string {
	return sharedMarkdown.render(input, width)
}

func (m *markdownRenderers) render(input string, width int) string {
	input = strings.TrimRight(input, "\n")
	if input == "" {
		return ""
	}
	if width <= 0 {
		width = defaultMarkdownWidth
	}
	renderer := m.get(width)
	if renderer == nil {
		return wrapText(input, width)
	}
	out, err := renderer.Render(input)
	if err != nil {
		return wrapText(input, width)
	}
	return strings.Trim(xansi.Hardwrap(strings.TrimRight(out, "\n"), width, true), "\n")
}

func (m *markdownRenderers) get(width int) *glamour.TermRenderer {
	// The terminal is asked once; main queries it before the program
	// starts reading stdin.
	m.once.Do(func() { m.dark = lipgloss.HasDarkBackground() })

	m.mu.Lock()
	defer m.mu.Unlock()
	if r := m.byWidth[width]; r != nil {
		return r
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(markdownStyle(m.dark)),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	if m.byWidth == nil {
		m.byWidth = map[int]*glamour.TermRenderer{}
	}
	m.byWidth[width] = r
	return r
}

func markdownStyle(dark bool) glamouransi.StyleConfig {
	style := styles.LightStyleConfig
	if dark {
		style = styles.DarkStyleConfig
	}
	// Bubble padding comes from lipgloss, not from glamour's document margins.
	style.Document.StylePrimitive.BlockPrefix = ""
	style.Document.StylePrimitive.BlockSuffix = ""
	noMargin := uint(0)
	style.Document.Margin = &noMargin
	faint := true
	quoteColor := "245"
	style.BlockQuote.StylePrimitive.Faint = &faint
	style.BlockQuote.StylePrimitive.Color = &quoteColor
	return style
}
