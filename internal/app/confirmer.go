package app

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"smithy/internal/sessionops"
)

type confirmRequestMsg struct {
	prompt sessionops.Prompt
	reply  chan bool
}

// programConfirmer asks the running program for a confirmation and blocks
// the calling goroutine until the user answers. It must not be called from
// the update loop.
type programConfirmer struct {
	send func(tea.Msg)
}

func (c programConfirmer) Confirm(ctx context.Context, prompt sessionops.Prompt) (bool, error) {
	reply := make(chan bool, 1)
	c.send(confirmRequestMsg{prompt: prompt, reply: reply})
	select {
	case ok := <-reply:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
