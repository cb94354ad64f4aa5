package chat

import (
	"context"
	"errors"
	"strings"

	"smithy/internal/bridge"
	"smithy/internal/client"
	"smithy/internal/editor"
	"smithy/internal/events"
	"smithy/internal/logging"
)

const (
	noResponseMessage = "No response from server"
	cancelledMessage  = "Request cancelled"
)

// EventStream is the iteration contract of client.Stream.
type EventStream interface {
	Next() bool
	Current() events.Event
	Err() error
	Close() error
}

// Reloader replaces a dialog's live transcript with its persisted history.
type Reloader interface {
	ReloadLatest(ctx context.Context, dialogID string) error
}

type ReloaderFunc func(ctx context.Context, dialogID string) error

func (f ReloaderFunc) ReloadLatest(ctx context.Context, dialogID string) error {
	return f(ctx, dialogID)
}

// Outcome summarizes one dispatched stream.
type Outcome struct {
	Events   int
	SawError bool
	DialogID string
	Reloaded bool
	Err      error
}

// Dispatcher turns canonical events into view commands, one command per
// event, and decides what happens when the stream ends.
type Dispatcher struct {
	sink     bridge.Sink
	opener   editor.Opener
	reloader Reloader
	autoOpen bool
	logger   logging.Logger
}

type DispatcherOption func(*Dispatcher)

func WithOpener(opener editor.Opener, autoOpen bool) DispatcherOption {
	return func(d *Dispatcher) {
		if opener != nil {
			d.opener = opener
		}
		d.autoOpen = autoOpen
	}
}

func WithDispatcherLogger(logger logging.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

func NewDispatcher(sink bridge.Sink, reloader Reloader, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		sink:     sink,
		reloader: reloader,
		opener:   editor.Nop(),
		logger:   logging.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run consumes stream until it ends and always closes it. dialogID is the
// view the stream belongs to; it is empty for a message sent before the
// server assigned a dialog.
func (d *Dispatcher) Run(ctx context.Context, dialogID string, stream EventStream) Outcome {
	r := &run{
		ctx:    ctx,
		d:      d,
		target: strings.TrimSpace(dialogID),
		opened: map[string]struct{}{},
	}
	defer stream.Close()
	for stream.Next() {
		ev := stream.Current()
		if ev == nil {
			continue
		}
		r.count++
		ev.Accept(r)
	}
	return r.complete(stream.Err())
}

type run struct {
	ctx      context.Context
	d        *Dispatcher
	target   string
	opened   map[string]struct{}
	count    int
	sawError bool
	doneID   string
}

func (r *run) emit(cmd bridge.Command) {
	r.d.sink.Emit(r.target, cmd)
}

func (r *run) OnUser(ev events.User) {
	r.emit(bridge.AppendUser{Content: ev.Content, Checkpoint: ev.Checkpoint})
}

func (r *run) OnChatStart(events.ChatStart) { r.emit(bridge.StartAssistant{}) }

func (r *run) OnChat(ev events.Chat) { r.emit(bridge.AppendAssistant{Delta: ev.Content}) }

func (r *run) OnChatEnd(events.ChatEnd) { r.emit(bridge.EndAssistant{}) }

func (r *run) OnReasoningStart(events.ReasoningStart) { r.emit(bridge.StartReasoning{}) }

func (r *run) OnReasoning(ev events.Reasoning) { r.emit(bridge.AppendReasoning{Delta: ev.Content}) }

func (r *run) OnReasoningEnd(events.ReasoningEnd) { r.emit(bridge.EndReasoning{}) }

func (r *run) OnToolCall(ev events.ToolCall) {
	r.emit(bridge.ShowToolCall{Name: ev.Name, Args: ev.Args})
}

func (r *run) OnFileEdit(ev events.FileEdit) {
	r.emit(bridge.ShowFileEdit{File: ev.File, Diff: ev.Diff, Checkpoint: ev.Checkpoint})
	if !r.d.autoOpen || strings.TrimSpace(ev.File) == "" {
		return
	}
	if _, ok := r.opened[ev.File]; ok {
		return
	}
	r.opened[ev.File] = struct{}{}
	if err := r.d.opener.Open(r.ctx, ev.File); err != nil {
		r.d.logger.Warn("auto_open_failed", logging.F("file", ev.File), logging.F("error", err))
	}
}

func (r *run) OnError(ev events.Error) {
	r.sawError = true
	r.emit(bridge.StreamError{Message: ev.Error})
}

func (r *run) OnDone(ev events.Done) {
	r.doneID = strings.TrimSpace(ev.DialogID)
}

func (r *run) complete(err error) Outcome {
	out := Outcome{Events: r.count, SawError: r.sawError, DialogID: r.target, Err: err}
	logger := r.d.logger.With(logging.F("dialog_id", r.target))

	if r.doneID != "" && r.doneID != r.target {
		r.emit(bridge.DialogResolved{From: r.target, To: r.doneID})
		r.target = r.doneID
		out.DialogID = r.doneID
	}
	r.emit(bridge.SetProcessing{Processing: false})

	switch {
	case errors.Is(err, client.ErrAborted):
		logger.Info("stream_aborted", logging.F("events", r.count))
		r.emit(bridge.ShowInfo{Message: cancelledMessage})
		return out
	case err != nil:
		logger.Warn("stream_failed", logging.F("events", r.count), logging.F("error", err))
		r.emit(bridge.ShowError{Message: failureMessage(err)})
		return out
	case r.count == 0:
		logger.Warn("stream_empty")
		r.emit(bridge.ShowError{Message: noResponseMessage})
		return out
	case r.sawError:
		return out
	case r.doneID == "":
		return out
	}
	if r.d.reloader == nil {
		return out
	}
	if err := r.d.reloader.ReloadLatest(r.ctx, r.doneID); err != nil {
		logger.Warn("history_reload_failed", logging.F("error", err))
		return out
	}
	out.Reloaded = true
	return out
}

func failureMessage(err error) string {
	if client.AsAPIError(err) != nil {
		return "Connection error: " + describe(err)
	}
	return "Connection error: " + strings.TrimPrefix(err.Error(), client.ErrRequestFailed.Error()+": ")
}
