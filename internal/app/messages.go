package app

import (
	tea "github.com/charmbracelet/bubbletea"

	"smithy/internal/bridge"
)

// commandMsg carries a backend command into the update loop.
type commandMsg struct {
	dialogID string
	cmd      bridge.Command
}

type intentDoneMsg struct {
	intent bridge.Intent
	err    error
}

type connectedMsg struct {
	err error
}

type copyResultMsg struct {
	err error
}

// programSink forwards commands to the running program. Send blocks until
// the update loop takes the message, so commands keep their order. It must
// only be used from goroutines other than the update loop.
type programSink struct {
	send func(tea.Msg)
}

func (s programSink) Emit(dialogID string, cmd bridge.Command) {
	if cmd == nil {
		return
	}
	s.send(commandMsg{dialogID: dialogID, cmd: cmd})
}
