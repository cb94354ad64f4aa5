package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"smithy/internal/bridge"
	"smithy/internal/chat"
	"smithy/internal/client"
)

func (c *cli) chatCommand() *cobra.Command {
	var dialogID string
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Send one message and stream the reply",
		Long:  "Send one message to the agent and print the streamed reply. The message is read from stdin when no argument is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args, " "))
			if text == "" {
				raw, err := io.ReadAll(c.wiring.stdin)
				if err != nil {
					return err
				}
				text = strings.TrimSpace(string(raw))
			}
			if text == "" {
				return errors.New("message is required")
			}
			ctx := cmd.Context()
			api, err := c.client(ctx)
			if err != nil {
				return err
			}
			target, err := resolveDialog(ctx, api, dialogID)
			if err != nil && !errors.Is(err, errNoCurrentDialog) {
				return err
			}
			return c.runChat(ctx, api, target, text)
		},
	}
	cmd.Flags().StringVarP(&dialogID, "dialog", "d", "", "dialog id (defaults to the server's current dialog)")
	return cmd
}

func (c *cli) runChat(ctx context.Context, api commandClient, dialogID, text string) error {
	printer := newStreamPrinter(c.wiring.stdout, c.wiring.isTerminal(c.wiring.stdout))
	dispatcher := chat.NewDispatcher(bridge.SinkFunc(func(_ string, cmd bridge.Command) {
		cmd.Accept(printer)
	}), nil)
	stream := api.StreamChat(ctx, client.NewChatRequest(dialogID, text, nil))
	outcome := dispatcher.Run(ctx, dialogID, stream)
	printer.finish()
	if outcome.DialogID != "" && outcome.DialogID != dialogID {
		fmt.Fprintln(c.wiring.stderr, printer.styles.meta.Render("dialog: "+outcome.DialogID))
	}
	switch {
	case errors.Is(outcome.Err, client.ErrAborted):
		return nil
	case outcome.Err != nil:
		return outcome.Err
	case printer.failure != "":
		return errors.New(printer.failure)
	}
	return nil
}

type printerStyles struct {
	reasoning lipgloss.Style
	tool      lipgloss.Style
	edit      lipgloss.Style
	errorText lipgloss.Style
	meta      lipgloss.Style
}

func newPrinterStyles(color bool) printerStyles {
	if !color {
		plain := lipgloss.NewStyle()
		return printerStyles{reasoning: plain, tool: plain, edit: plain, errorText: plain, meta: plain}
	}
	return printerStyles{
		reasoning: lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true),
		tool:      lipgloss.NewStyle().Foreground(lipgloss.Color("111")),
		edit:      lipgloss.NewStyle().Foreground(lipgloss.Color("150")),
		errorText: lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true),
		meta:      lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
	}
}

// streamPrinter writes view commands to a terminal as plain lines.
// Assistant deltas are written as they arrive.
type streamPrinter struct {
	out     io.Writer
	styles  printerStyles
	midLine bool
	failure string
}

func newStreamPrinter(out io.Writer, color bool) *streamPrinter {
	return &streamPrinter{out: out, styles: newPrinterStyles(color)}
}

func (p *streamPrinter) write(text string) {
	if text == "" {
		return
	}
	fmt.Fprint(p.out, text)
	p.midLine = !strings.HasSuffix(text, "\n")
}

func (p *streamPrinter) line(text string) {
	p.breakLine()
	fmt.Fprintln(p.out, text)
}

func (p *streamPrinter) breakLine() {
	if p.midLine {
		fmt.Fprintln(p.out)
		p.midLine = false
	}
}

func (p *streamPrinter) finish() { p.breakLine() }

func (p *streamPrinter) OnAppendUser(bridge.AppendUser) {}

func (p *streamPrinter) OnStartAssistant(bridge.StartAssistant) { p.breakLine() }

func (p *streamPrinter) OnAppendAssistant(cmd bridge.AppendAssistant) { p.write(cmd.Delta) }

func (p *streamPrinter) OnEndAssistant(bridge.EndAssistant) { p.breakLine() }

func (p *streamPrinter) OnStartReasoning(bridge.StartReasoning) { p.breakLine() }

func (p *streamPrinter) OnAppendReasoning(cmd bridge.AppendReasoning) {
	p.write(p.styles.reasoning.Render(cmd.Delta))
}

func (p *streamPrinter) OnEndReasoning(bridge.EndReasoning) { p.breakLine() }

func (p *streamPrinter) OnShowToolCall(cmd bridge.ShowToolCall) {
	p.line(p.styles.tool.Render("⚙ " + cmd.Name))
}

func (p *streamPrinter) OnShowFileEdit(cmd bridge.ShowFileEdit) {
	p.line(p.styles.edit.Render("✎ " + cmd.File))
}

func (p *streamPrinter) OnStreamError(cmd bridge.StreamError) {
	p.line(p.styles.errorText.Render("error: " + cmd.Message))
}

func (p *streamPrinter) OnShowError(cmd bridge.ShowError) {
	p.failure = cmd.Message
}

func (p *streamPrinter) OnShowInfo(cmd bridge.ShowInfo) {
	p.line(p.styles.meta.Render(cmd.Message))
}

func (p *streamPrinter) OnReplaceHistory(bridge.ReplaceHistory) {}

func (p *streamPrinter) OnPrependHistory(bridge.PrependHistory) {}

func (p *streamPrinter) OnHistoryState(bridge.HistoryState) {}

func (p *streamPrinter) OnSetProcessing(bridge.SetProcessing) {}

func (p *streamPrinter) OnDialogResolved(bridge.DialogResolved) {}

func (p *streamPrinter) OnSessionStatus(bridge.SessionStatus) {}

func (p *streamPrinter) OnDialogsChanged(bridge.DialogsChanged) {}
