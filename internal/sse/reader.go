// Package sse turns a chunked text/event-stream body into decoded JSON
// payloads and canonical events.
package sse

import (
	"encoding/json"
	"errors"
	"io"
	"iter"
	"strings"

	"smithy/internal/events"
)

const dataPrefix = "data:"

// Reader is an incremental frame parser. It is not safe for concurrent use;
// one Reader serves one stream at a time and must be Reset before reuse.
type Reader struct {
	pending   string
	dataLines []string
}

func NewReader() *Reader {
	return &Reader{}
}

// Reset drops any buffered partial line and unterminated frame.
func (r *Reader) Reset() {
	if r == nil {
		return
	}
	r.pending = ""
	r.dataLines = nil
}

// Buffered reports whether text is held back waiting for more input.
func (r *Reader) Buffered() bool {
	if r == nil {
		return false
	}
	return r.pending != "" || len(r.dataLines) > 0
}

// Decode appends chunk to the buffer and yields every JSON value completed
// by it. Lines are only consumed once terminated, so the output does not
// depend on where chunk boundaries fall. Undecodable frames are skipped.
func (r *Reader) Decode(chunk string) iter.Seq[any] {
	return func(yield func(any) bool) {
		if r == nil {
			return
		}
		r.pending += chunk
		for {
			idx := strings.IndexByte(r.pending, '\n')
			if idx < 0 {
				return
			}
			line := strings.TrimSuffix(r.pending[:idx], "\r")
			r.pending = r.pending[idx+1:]
			value, ok := r.consumeLine(line)
			if !ok {
				continue
			}
			if !yield(value) {
				return
			}
		}
	}
}

// Process is Decode followed by normalization. Payloads without a canonical
// shape are dropped. Iteration stops right after a done event; anything
// still buffered stays in the Reader.
func (r *Reader) Process(chunk string) iter.Seq[events.Event] {
	return func(yield func(events.Event) bool) {
		for value := range r.Decode(chunk) {
			ev := events.Normalize(value)
			if ev == nil {
				continue
			}
			if !yield(ev) {
				return
			}
			if events.IsDone(ev) {
				return
			}
		}
	}
}

func (r *Reader) consumeLine(line string) (any, bool) {
	if line == "" {
		return r.closeFrame()
	}
	if !strings.HasPrefix(line, dataPrefix) {
		return nil, false
	}
	body := strings.TrimPrefix(line[len(dataPrefix):], " ")
	if len(r.dataLines) == 0 {
		if looksLikeObject(body) {
			if value, ok := decodeJSON(body); ok {
				return value, true
			}
			if !validPrefix(body) {
				return nil, false
			}
		}
		r.dataLines = append(r.dataLines, body)
		return nil, false
	}
	if looksLikeObject(body) && json.Valid([]byte(strings.TrimSpace(body))) &&
		!r.frameCanGrow() {
		// Appending to the open frame can never decode; drop it in favor
		// of this one.
		r.dataLines = r.dataLines[:0]
		return decodeJSON(body)
	}
	r.dataLines = append(r.dataLines, body)
	return nil, false
}

// frameCanGrow reports whether more lines could still complete the open
// frame.
func (r *Reader) frameCanGrow() bool {
	partial := strings.Join(r.dataLines, "\n")
	return !json.Valid([]byte(partial)) && validPrefix(partial)
}

func (r *Reader) closeFrame() (any, bool) {
	if len(r.dataLines) == 0 {
		return nil, false
	}
	payload := strings.Join(r.dataLines, "\n")
	r.dataLines = r.dataLines[:0]
	return decodeJSON(payload)
}

// Flush decodes what is left once the body ended: an unterminated last line
// and an open frame that never saw its blank line. The Reader is empty
// afterwards.
func (r *Reader) Flush() iter.Seq[events.Event] {
	return func(yield func(events.Event) bool) {
		if r == nil {
			return
		}
		var values []any
		if line := strings.TrimSuffix(r.pending, "\r"); line != "" {
			r.pending = ""
			if value, ok := r.consumeLine(line); ok {
				values = append(values, value)
			}
		}
		if value, ok := r.closeFrame(); ok {
			values = append(values, value)
		}
		r.Reset()
		for _, value := range values {
			ev := events.Normalize(value)
			if ev == nil {
				continue
			}
			if !yield(ev) || events.IsDone(ev) {
				return
			}
		}
	}
}

func looksLikeObject(body string) bool {
	trimmed := strings.TrimSpace(body)
	return strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}")
}

// validPrefix reports whether text could still grow into a JSON document.
func validPrefix(text string) bool {
	dec := json.NewDecoder(strings.NewReader(text))
	for {
		_, err := dec.Token()
		if err == nil {
			continue
		}
		var syntaxErr *json.SyntaxError
		return errors.Is(err, io.EOF) || !errors.As(err, &syntaxErr)
	}
}

func decodeJSON(payload string) (any, bool) {
	var value any
	if err := json.Unmarshal([]byte(payload), &value); err != nil {
		return nil, false
	}
	return value, true
}
