// Package bridge defines the messages exchanged between the chat backend and
// the presentation layer. Both directions are closed sets dispatched through
// visitor interfaces, so adding a message breaks every handler until it is
// taught the new case.
package bridge

import "smithy/internal/types"

// Command is a backend to UI message.
type Command interface {
	Accept(h CommandHandler)
	command()
}

type CommandHandler interface {
	OnAppendUser(AppendUser)
	OnStartAssistant(StartAssistant)
	OnAppendAssistant(AppendAssistant)
	OnEndAssistant(EndAssistant)
	OnStartReasoning(StartReasoning)
	OnAppendReasoning(AppendReasoning)
	OnEndReasoning(EndReasoning)
	OnShowToolCall(ShowToolCall)
	OnShowFileEdit(ShowFileEdit)
	OnStreamError(StreamError)
	OnShowError(ShowError)
	OnShowInfo(ShowInfo)
	OnReplaceHistory(ReplaceHistory)
	OnPrependHistory(PrependHistory)
	OnHistoryState(HistoryState)
	OnSetProcessing(SetProcessing)
	OnDialogResolved(DialogResolved)
	OnSessionStatus(SessionStatus)
	OnDialogsChanged(DialogsChanged)
}

type AppendUser struct {
	Content    string
	Checkpoint string
}

type StartAssistant struct{}

type AppendAssistant struct {
	Delta string
}

type EndAssistant struct{}

type StartReasoning struct{}

type AppendReasoning struct {
	Delta string
}

type EndReasoning struct{}

type ShowToolCall struct {
	Name string
	Args any
}

type ShowFileEdit struct {
	File       string
	Diff       string
	Checkpoint string
}

// StreamError is an error event the server sent inside a stream. It is
// rendered in the transcript, unlike ShowError.
type StreamError struct {
	Message string
}

// ShowError is a user-visible failure notice.
type ShowError struct {
	Message string
}

// ShowInfo is a user-visible informational notice.
type ShowInfo struct {
	Message string
}

// ReplaceHistory swaps the transcript for an authoritative history page.
type ReplaceHistory struct {
	Page *types.HistoryPage
}

// PrependHistory adds an older page above the rendered transcript.
type PrependHistory struct {
	Page *types.HistoryPage
}

type HistoryState struct {
	HasMore bool
	Loading bool
}

type SetProcessing struct {
	Processing bool
}

// DialogResolved tells the UI that a stream started without a dialog id now
// belongs to To.
type DialogResolved struct {
	From string
	To   string
}

type SessionStatus struct {
	Status *types.SessionStatus
}

type DialogsChanged struct {
	Dialogs         []*types.Dialog
	CurrentDialogID string
}

func (c AppendUser) Accept(h CommandHandler)      { h.OnAppendUser(c) }
func (c StartAssistant) Accept(h CommandHandler)  { h.OnStartAssistant(c) }
func (c AppendAssistant) Accept(h CommandHandler) { h.OnAppendAssistant(c) }
func (c EndAssistant) Accept(h CommandHandler)    { h.OnEndAssistant(c) }
func (c StartReasoning) Accept(h CommandHandler)  { h.OnStartReasoning(c) }
func (c AppendReasoning) Accept(h CommandHandler) { h.OnAppendReasoning(c) }
func (c EndReasoning) Accept(h CommandHandler)    { h.OnEndReasoning(c) }
func (c ShowToolCall) Accept(h CommandHandler)    { h.OnShowToolCall(c) }
func (c ShowFileEdit) Accept(h CommandHandler)    { h.OnShowFileEdit(c) }
func (c StreamError) Accept(h CommandHandler)     { h.OnStreamError(c) }
func (c ShowError) Accept(h CommandHandler)       { h.OnShowError(c) }
func (c ShowInfo) Accept(h CommandHandler)        { h.OnShowInfo(c) }
func (c ReplaceHistory) Accept(h CommandHandler)  { h.OnReplaceHistory(c) }
func (c PrependHistory) Accept(h CommandHandler)  { h.OnPrependHistory(c) }
func (c HistoryState) Accept(h CommandHandler)    { h.OnHistoryState(c) }
func (c SetProcessing) Accept(h CommandHandler)   { h.OnSetProcessing(c) }
func (c DialogResolved) Accept(h CommandHandler)  { h.OnDialogResolved(c) }
func (c SessionStatus) Accept(h CommandHandler)   { h.OnSessionStatus(c) }
func (c DialogsChanged) Accept(h CommandHandler)  { h.OnDialogsChanged(c) }

func (AppendUser) command()      {}
func (StartAssistant) command()  {}
func (AppendAssistant) command() {}
func (EndAssistant) command()    {}
func (StartReasoning) command()  {}
func (AppendReasoning) command() {}
func (EndReasoning) command()    {}
func (ShowToolCall) command()    {}
func (ShowFileEdit) command()    {}
func (StreamError) command()     {}
func (ShowError) command()       {}
func (ShowInfo) command()        {}
func (ReplaceHistory) command()  {}
func (PrependHistory) command()  {}
func (HistoryState) command()    {}
func (SetProcessing) command()   {}
func (DialogResolved) command()  {}
func (SessionStatus) command()   {}
func (DialogsChanged) command()  {}

// IsNotice reports whether cmd is a user-visible notice rather than
// transcript content.
func IsNotice(cmd Command) bool {
	switch cmd.(type) {
	case ShowError, ShowInfo:
		return true
	default:
		return false
	}
}

// Sink receives commands addressed to a dialog's view. An empty dialog id
// addresses the UI as a whole, or a view whose dialog is not known yet.
type Sink interface {
	Emit(dialogID string, cmd Command)
}

type SinkFunc func(dialogID string, cmd Command)

func (f SinkFunc) Emit(dialogID string, cmd Command) {
	f(dialogID, cmd)
}

// Envelope pairs a command with its destination.
type Envelope struct {
	DialogID string
	Command  Command
}

// Recorder is a Sink that keeps every command in order.
type Recorder struct {
	Envelopes []Envelope
}

func (r *Recorder) Emit(dialogID string, cmd Command) {
	r.Envelopes = append(r.Envelopes, Envelope{DialogID: dialogID, Command: cmd})
}

// Notices returns the ShowError and ShowInfo commands recorded so far.
func (r *Recorder) Notices() []Command {
	var out []Command
	for _, env := range r.Envelopes {
		if IsNotice(env.Command) {
			out = append(out, env.Command)
		}
	}
	return out
}
