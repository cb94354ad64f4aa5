package app

import (
	"strings"

	"smithy/internal/view"
)

const (
	collapsedHint      = "ctrl+r to expand"
	toolArgsWidth      = 160
	checkpointShow     = 8
	maxMarkdownEntries = 512
)

// transcriptRenderer caches the rendered transcript of the last view it
// drew. A view's revision changes on every mutation, so dialog, revision
// and width identify the output.
type transcriptRenderer struct {
	dialogID string
	revision int
	width    int
	content  string
	valid    bool

	// Finished replies are re-rendered on every streamed delta otherwise.
	markdown map[markdownKey]string
}

type markdownKey struct {
	width int
	text  string
}

func (r *transcriptRenderer) render(v *view.View, width int) string {
	if v == nil {
		return ""
	}
	if r.valid && r.dialogID == v.DialogID() && r.revision == v.Revision() && r.width == width {
		return r.content
	}
	r.dialogID = v.DialogID()
	r.revision = v.Revision()
	r.width = width
	r.content = renderBlocks(v.Blocks(), width, r.renderMarkdown)
	r.valid = true
	return r.content
}

func (r *transcriptRenderer) invalidate() {
	r.valid = false
}

func (r *transcriptRenderer) renderMarkdown(text string, width int) string {
	key := markdownKey{width: width, text: text}
	if out, ok := r.markdown[key]; ok {
		return out
	}
	if r.markdown == nil || len(r.markdown) >= maxMarkdownEntries {
		r.markdown = map[markdownKey]string{}
	}
	out := renderMarkdown(text, width)
	r.markdown[key] = out
	return out
}

func renderBlocks(blocks []view.Block, width int, markdown func(string, int) string) string {
	if len(blocks) == 0 {
		return helpStyle.Render("No messages yet. Type below and press enter.")
	}
	parts := make([]string, 0, len(blocks))
	for _, block := range blocks {
		if rendered := renderBlock(block, width, markdown); rendered != "" {
			parts = append(parts, rendered)
		}
	}
	return strings.Join(parts, "\n\n")
}

func renderBlock(block view.Block, width int, markdown func(string, int) string) string {
	// Two border cells plus horizontal padding on each side.
	inner := max(10, width-2-2*bubblePaddingH)
	switch block.Role {
	case view.RoleUser:
		out := userBubbleStyle.Width(inner + 2*bubblePaddingH).Render(wrapText(block.Text, inner))
		if block.Checkpoint != "" {
			out += "\n" + chatMetaStyle.Render("checkpoint "+shortCheckpoint(block.Checkpoint))
		}
		return out
	case view.RoleAssistant:
		text := block.Text
		if block.Live {
			text = wrapText(text, inner)
		} else {
			text = markdown(text, inner)
		}
		if strings.TrimSpace(text) == "" {
			return ""
		}
		return agentBubbleStyle.Width(inner + 2*bubblePaddingH).Render(text)
	case view.RoleReasoning:
		return reasoningBubbleStyle.Width(inner + 2*bubblePaddingH).Render(reasoningText(block, inner))
	case view.RoleTool:
		line := "⚙ " + block.Tool
		if args := strings.TrimSpace(block.Text); args != "" {
			line += " " + truncateToWidth(args, toolArgsWidth)
		}
		return toolStyle.Render(wrapText(line, width))
	case view.RoleFileEdit:
		return renderFileEdit(block, width)
	case view.RoleError:
		return inlineErrorStyle.Width(inner + 2*bubblePaddingH).Render(wrapText(block.Text, inner))
	default:
		return wrapText(block.Text, width)
	}
}

func reasoningText(block view.Block, width int) string {
	text := wrapText(strings.TrimSpace(block.Text), width)
	if !block.Collapsed {
		return text
	}
	lines := strings.Split(text, "\n")
	if len(lines) <= reasoningPreview {
		return text
	}
	return strings.Join(lines[:reasoningPreview], "\n") + "\n… " + collapsedHint
}

func renderFileEdit(block view.Block, width int) string {
	header := "✎ " + block.File
	if block.Checkpoint != "" {
		header += " " + chatMetaStyle.Render("@"+shortCheckpoint(block.Checkpoint))
	}
	lines := []string{fileEditStyle.Render(truncateToWidth(header, width))}
	diff := strings.TrimRight(block.Diff, "\n")
	if diff == "" {
		return lines[0]
	}
	for _, line := range strings.Split(diff, "\n") {
		line = truncateToWidth(line, max(1, width-2))
		switch {
		case strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++"):
			line = diffAddStyle.Render(line)
		case strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---"):
			line = diffDelStyle.Render(line)
		default:
			line = chatMetaStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return lines[0] + "\n" + indentBlock(strings.Join(lines[1:], "\n"), 2)
}

func shortCheckpoint(id string) string {
	if len(id) <= checkpointShow {
		return id
	}
	return id[:checkpointShow]
}
