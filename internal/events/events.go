// Package events defines the canonical stream events produced by the chat
// endpoint and the normalizer that maps raw wire payloads onto them.
package events

type Type string

const (
	TypeUser           Type = "user"
	TypeChatStart      Type = "chat_start"
	TypeChat           Type = "chat"
	TypeChatEnd        Type = "chat_end"
	TypeReasoningStart Type = "reasoning_start"
	TypeReasoning      Type = "reasoning"
	TypeReasoningEnd   Type = "reasoning_end"
	TypeToolCall       Type = "tool_call"
	TypeFileEdit       Type = "file_edit"
	TypeError          Type = "error"
	TypeDone           Type = "done"
)

// Event is one canonical stream event. The set of implementations is closed;
// consumers dispatch through Accept so that a new variant fails to compile
// until every Handler covers it.
type Event interface {
	Type() Type
	Accept(h Handler)
	sealed()
}

// Handler receives exactly one call per event passed to Accept.
type Handler interface {
	OnUser(User)
	OnChatStart(ChatStart)
	OnChat(Chat)
	OnChatEnd(ChatEnd)
	OnReasoningStart(ReasoningStart)
	OnReasoning(Reasoning)
	OnReasoningEnd(ReasoningEnd)
	OnToolCall(ToolCall)
	OnFileEdit(FileEdit)
	OnError(Error)
	OnDone(Done)
}

type User struct {
	Content    string
	Checkpoint string
}

type ChatStart struct{}

type Chat struct {
	Content string
}

type ChatEnd struct{}

type ReasoningStart struct{}

type Reasoning struct {
	Content string
}

type ReasoningEnd struct{}

type ToolCall struct {
	Name string
	Args any
}

type FileEdit struct {
	File       string
	Diff       string
	Checkpoint string
}

type Error struct {
	Error string
}

// Done terminates a stream. DialogID is set when the server assigned or
// confirmed the dialog the stream wrote to.
type Done struct {
	DialogID string
}

func (User) Type() Type           { return TypeUser }
func (ChatStart) Type() Type      { return TypeChatStart }
func (Chat) Type() Type           { return TypeChat }
func (ChatEnd) Type() Type        { return TypeChatEnd }
func (ReasoningStart) Type() Type { return TypeReasoningStart }
func (Reasoning) Type() Type      { return TypeReasoning }
func (ReasoningEnd) Type() Type   { return TypeReasoningEnd }
func (ToolCall) Type() Type       { return TypeToolCall }
func (FileEdit) Type() Type       { return TypeFileEdit }
func (Error) Type() Type          { return TypeError }
func (Done) Type() Type           { return TypeDone }

func (e User) Accept(h Handler)           { h.OnUser(e) }
func (e ChatStart) Accept(h Handler)      { h.OnChatStart(e) }
func (e Chat) Accept(h Handler)           { h.OnChat(e) }
func (e ChatEnd) Accept(h Handler)        { h.OnChatEnd(e) }
func (e ReasoningStart) Accept(h Handler) { h.OnReasoningStart(e) }
func (e Reasoning) Accept(h Handler)      { h.OnReasoning(e) }
func (e ReasoningEnd) Accept(h Handler)   { h.OnReasoningEnd(e) }
func (e ToolCall) Accept(h Handler)       { h.OnToolCall(e) }
func (e FileEdit) Accept(h Handler)       { h.OnFileEdit(e) }
func (e Error) Accept(h Handler)          { h.OnError(e) }
func (e Done) Accept(h Handler)           { h.OnDone(e) }

func (User) sealed()           {}
func (ChatStart) sealed()      {}
func (Chat) sealed()           {}
func (ChatEnd) sealed()        {}
func (ReasoningStart) sealed() {}
func (Reasoning) sealed()      {}
func (ReasoningEnd) sealed()   {}
func (ToolCall) sealed()       {}
func (FileEdit) sealed()       {}
func (Error) sealed()          {}
func (Done) sealed()           {}

// IsDone reports whether ev terminates its stream.
func IsDone(ev Event) bool {
	if ev == nil {
		return false
	}
	return ev.Type() == TypeDone
}
