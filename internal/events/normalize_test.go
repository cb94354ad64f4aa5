package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	var out any
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return out
}

func TestNormalizePatchAliases(t *testing.T) {
	ev := Normalize(decode(t, `{"type":"patch","path":"a.ts","patch":"d","checkpoint":"c1"}`))
	require.Equal(t, FileEdit{File: "a.ts", Diff: "d", Checkpoint: "c1"}, ev)

	ev = Normalize(decode(t, `{"type":"diff","file_path":"b.ts","diff":"d"}`))
	require.Equal(t, FileEdit{File: "b.ts", Diff: "d"}, ev)
}

func TestNormalizeFileAliasPriority(t *testing.T) {
	ev := Normalize(decode(t, `{"type":"file_edit","file_path":"c.ts","path":"b.ts","file":"a.ts"}`))
	require.Equal(t, "a.ts", ev.(FileEdit).File)

	ev = Normalize(decode(t, `{"type":"file_edit","file_path":"c.ts","path":"b.ts"}`))
	require.Equal(t, "b.ts", ev.(FileEdit).File)

	ev = Normalize(decode(t, `{"type":"file_edit","diff":"x","patch":"y"}`))
	require.Equal(t, "x", ev.(FileEdit).Diff)
}

func TestNormalizeNonObjects(t *testing.T) {
	for _, raw := range []any{nil, "chat", 12.5, true, []any{"a"}, map[string]any(nil)} {
		require.Nil(t, Normalize(raw), "input %#v", raw)
	}
}

func TestNormalizeLegacyBareChat(t *testing.T) {
	require.Equal(t, Chat{Content: "hi"}, Normalize(decode(t, `{"content":"hi"}`)))
	require.Equal(t, Chat{Content: "hi"}, Normalize(decode(t, `{"type":"mystery","content":"hi"}`)))
	require.Nil(t, Normalize(decode(t, `{"type":"mystery"}`)))
	require.Nil(t, Normalize(decode(t, `{"content":42}`)))
	require.Nil(t, Normalize(decode(t, `{}`)))
}

func TestNormalizeWrongTypedFieldsDefault(t *testing.T) {
	cases := []struct {
		raw  string
		want Event
	}{
		{`{"type":"chat","content":7}`, Chat{}},
		{`{"type":"reasoning","content":{"a":1}}`, Reasoning{}},
		{`{"type":"user","content":"q","checkpoint":false}`, User{Content: "q"}},
		{`{"type":"tool_call","name":3,"args":{"x":1}}`, ToolCall{Args: map[string]any{"x": float64(1)}}},
		{`{"type":"file_edit","file":[],"diff":1,"checkpoint":2}`, FileEdit{}},
		{`{"type":"error","error":null}`, Error{}},
		{`{"type":"done","dialog_id":99}`, Done{}},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, Normalize(decode(t, tc.raw)), tc.raw)
	}
}

func TestNormalizeVariants(t *testing.T) {
	require.Equal(t, ChatStart{}, Normalize(decode(t, `{"type":"chat_start"}`)))
	require.Equal(t, ChatEnd{}, Normalize(decode(t, `{"type":"chat_end"}`)))
	require.Equal(t, ReasoningStart{}, Normalize(decode(t, `{"type":"reasoning_start"}`)))
	require.Equal(t, ReasoningEnd{}, Normalize(decode(t, `{"type":"reasoning_end"}`)))
	require.Equal(t, ToolCall{Name: "read_file", Args: map[string]any{"path": "x"}},
		Normalize(decode(t, `{"type":"tool_call","tool_name":"read_file","arguments":{"path":"x"}}`)))
	require.Equal(t, Error{Error: "boom"}, Normalize(decode(t, `{"type":"error","message":"boom"}`)))
	require.Equal(t, Done{DialogID: "d1"}, Normalize(decode(t, `{"type":"done","dialog_id":"d1"}`)))
	require.True(t, IsDone(Done{}))
	require.False(t, IsDone(nil))
}

type countingHandler struct {
	calls map[Type]int
}

func (h *countingHandler) hit(t Type)                       { h.calls[t]++ }
func (h *countingHandler) OnUser(User)                      { h.hit(TypeUser) }
func (h *countingHandler) OnChatStart(ChatStart)            { h.hit(TypeChatStart) }
func (h *countingHandler) OnChat(Chat)                      { h.hit(TypeChat) }
func (h *countingHandler) OnChatEnd(ChatEnd)                { h.hit(TypeChatEnd) }
func (h *countingHandler) OnReasoningStart(ReasoningStart)  { h.hit(TypeReasoningStart) }
func (h *countingHandler) OnReasoning(Reasoning)            { h.hit(TypeReasoning) }
func (h *countingHandler) OnReasoningEnd(ReasoningEnd)      { h.hit(TypeReasoningEnd) }
func (h *countingHandler) OnToolCall(ToolCall)              { h.hit(TypeToolCall) }
func (h *countingHandler) OnFileEdit(FileEdit)              { h.hit(TypeFileEdit) }
func (h *countingHandler) OnError(Error)                    { h.hit(TypeError) }
func (h *countingHandler) OnDone(Done)                      { h.hit(TypeDone) }

func TestAcceptDispatchesByVariant(t *testing.T) {
	all := []Event{User{}, ChatStart{}, Chat{}, ChatEnd{}, ReasoningStart{}, Reasoning{},
		ReasoningEnd{}, ToolCall{}, FileEdit{}, Error{}, Done{}}
	h := &countingHandler{calls: map[Type]int{}}
	for _, ev := range all {
		ev.Accept(h)
	}
	require.Len(t, h.calls, len(all))
	for _, ev := range all {
		require.Equal(t, 1, h.calls[ev.Type()], string(ev.Type()))
	}
}
