package sse

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"smithy/internal/events"
)

const sampleStream = "data: {\"type\":\"chat_start\"}\n\n" +
	"data: {\"type\":\"chat\",\"content\":\"héllo ✓\"}\r\n\r\n" +
	": keep-alive comment\n" +
	"event: message\n" +
	"data: {\"type\":\"tool_call\",\n" +
	"data:  \"name\":\"read_file\",\"args\":{\"path\":\"a.go\"}}\n\n" +
	"data: {not json}\n\n" +
	"data: {\"type\":\"patch\",\"path\":\"a.ts\",\"patch\":\"d\",\"checkpoint\":\"c1\"}\n\n" +
	"data: [DONE]\n\n" +
	"data: {\"type\":\"chat_end\"}\n\n" +
	"data: {\"type\":\"done\",\"dialog_id\":\"d1\"}\n\n"

func collect(r *Reader, chunks ...string) []any {
	var out []any
	for _, chunk := range chunks {
		for value := range r.Decode(chunk) {
			out = append(out, value)
		}
	}
	return out
}

func TestDecodeWholeStream(t *testing.T) {
	values := collect(NewReader(), sampleStream)
	require.Len(t, values, 6)
	require.Equal(t, map[string]any{"type": "chat", "content": "héllo ✓"}, values[1])
	require.Equal(t, "read_file", values[2].(map[string]any)["name"])
	require.Equal(t, "done", values[5].(map[string]any)["type"])
}

func TestDecodeEverySplitPoint(t *testing.T) {
	want := collect(NewReader(), sampleStream)
	for i := 0; i <= len(sampleStream); i++ {
		got := collect(NewReader(), sampleStream[:i], sampleStream[i:])
		require.Equal(t, want, got, "split at byte %d", i)
	}
}

func TestDecodeByteByByte(t *testing.T) {
	want := collect(NewReader(), sampleStream)
	chunks := make([]string, 0, len(sampleStream))
	for i := 0; i < len(sampleStream); i++ {
		chunks = append(chunks, sampleStream[i:i+1])
	}
	require.Equal(t, want, collect(NewReader(), chunks...))
}

func TestDecodeKeepsIncompleteLine(t *testing.T) {
	r := NewReader()
	require.Empty(t, collect(r, `data: {"type":"chat","con`))
	require.True(t, r.Buffered())
	got := collect(r, "tent\":\"x\"}\n")
	require.Equal(t, []any{map[string]any{"type": "chat", "content": "x"}}, got)
	r.Reset()
	require.False(t, r.Buffered())
}

func TestProcessStopsAfterDone(t *testing.T) {
	r := NewReader()
	input := "data: {\"type\":\"chat\",\"content\":\"a\"}\n" +
		"data: {\"type\":\"done\",\"dialog_id\":\"d1\"}\n" +
		"data: {\"type\":\"chat\",\"content\":\"late\"}\n"
	var got []events.Event
	for ev := range r.Process(input) {
		got = append(got, ev)
	}
	require.Equal(t, []events.Event{events.Chat{Content: "a"}, events.Done{DialogID: "d1"}}, got)
	require.True(t, r.Buffered(), "frames after done stay buffered")
}

func TestProcessDropsUnknownShapes(t *testing.T) {
	r := NewReader()
	var got []events.Event
	for ev := range r.Process("data: {\"type\":\"ping\"}\ndata: [1,2]\ndata: {\"content\":\"legacy\"}\n") {
		got = append(got, ev)
	}
	require.Equal(t, []events.Event{events.Chat{Content: "legacy"}}, got)
}

func TestMalformedSingleLineFrameDoesNotBlockLaterFrames(t *testing.T) {
	r := NewReader()
	values := collect(r, "data: {bad}\n"+
		"data: {\"type\":\"chat\",\"content\":\"x\"}\n"+
		"data: {\"type\":\"done\",\"dialog_id\":\"d1\"}\n")
	require.Len(t, values, 2)
	require.Equal(t, "done", values[1].(map[string]any)["type"])
	require.False(t, r.Buffered())
}

func TestUndecodableOpenFrameYieldsToCompleteObject(t *testing.T) {
	r := NewReader()
	values := collect(r, "data: not json\n"+
		"data: {\"type\":\"chat\",\"content\":\"x\"}\n")
	require.Equal(t, []any{map[string]any{"type": "chat", "content": "x"}}, values)
	require.False(t, r.Buffered())
}

func TestMultilineFrameStartingWithBracedLine(t *testing.T) {
	values := collect(NewReader(), "data: {\"type\":\"chat\",\"meta\":{\"a\":1}\n"+
		"data: ,\"content\":\"x\"}\n\n")
	require.Equal(t, []any{map[string]any{
		"type": "chat", "meta": map[string]any{"a": float64(1)}, "content": "x",
	}}, values)
}

func TestFlushDecodesLeftovers(t *testing.T) {
	r := NewReader()
	require.Len(t, collect(r, "data: {\"type\":\"chat\",\"content\":\"a\"}\n\ndata: {\"type\":\"done\",\"dialog_id\":\"d1\"}"), 1)
	require.True(t, r.Buffered())
	var got []events.Event
	for ev := range r.Flush() {
		got = append(got, ev)
	}
	require.Equal(t, []events.Event{events.Done{DialogID: "d1"}}, got)
	require.False(t, r.Buffered())

	r = NewReader()
	require.Empty(t, collect(r, "data: {\"type\":\"chat\",\n", "data: \"content\":\"b\"}\n"))
	got = nil
	for ev := range r.Flush() {
		got = append(got, ev)
	}
	require.Equal(t, []events.Event{events.Chat{Content: "b"}}, got)
}

type frame struct {
	payload   map[string]any
	multiline bool
	crlf      bool
	noise     string
}

func (f frame) render() string {
	eol := "\n"
	if f.crlf {
		eol = "\r\n"
	}
	var b strings.Builder
	if f.noise != "" {
		b.WriteString(f.noise + eol)
	}
	data, _ := json.Marshal(f.payload)
	if !f.multiline {
		b.WriteString("data: " + string(data) + eol + eol)
		return b.String()
	}
	keys := make([]string, 0, len(f.payload))
	for key := range f.payload {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	b.WriteString("data: {" + eol)
	for i, key := range keys {
		k, _ := json.Marshal(key)
		v, _ := json.Marshal(f.payload[key])
		sep := ","
		if i == len(keys)-1 {
			sep = ""
		}
		b.WriteString(fmt.Sprintf("data: %s:%s%s%s", k, v, sep, eol))
	}
	b.WriteString("data: }" + eol + eol)
	return b.String()
}

func TestDecodeSplitInvariance(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(rt, "frames")
		var b strings.Builder
		for i := 0; i < n; i++ {
			f := frame{
				payload: map[string]any{
					"type":    rapid.SampledFrom([]string{"chat", "reasoning", "user", "error"}).Draw(rt, "type"),
					"content": rapid.String().Draw(rt, "content"),
				},
				multiline: rapid.Bool().Draw(rt, "multiline"),
				crlf:      rapid.Bool().Draw(rt, "crlf"),
				noise:     rapid.SampledFrom([]string{"", ": ping", "event: message", "id: 7", "data: {broken"}).Draw(rt, "noise"),
			}
			b.WriteString(f.render())
		}
		stream := b.String()
		want := collect(NewReader(), stream)

		cuts := rapid.SliceOfDistinct(rapid.IntRange(0, len(stream)), rapid.ID[int]).Draw(rt, "cuts")
		slices.Sort(cuts)
		chunks := make([]string, 0, len(cuts)+1)
		prev := 0
		for _, cut := range cuts {
			chunks = append(chunks, stream[prev:cut])
			prev = cut
		}
		chunks = append(chunks, stream[prev:])

		got := collect(NewReader(), chunks...)
		if len(want) != len(got) {
			rt.Fatalf("value count differs: whole=%d split=%d", len(want), len(got))
		}
		for i := range want {
			wantJSON, _ := json.Marshal(want[i])
			gotJSON, _ := json.Marshal(got[i])
			if string(wantJSON) != string(gotJSON) {
				rt.Fatalf("value %d differs: %s vs %s", i, wantJSON, gotJSON)
			}
		}
	})
}
