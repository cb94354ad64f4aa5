package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"smithy/internal/events"
	"smithy/internal/logging"
	"smithy/internal/sse"
)

const streamReadSize = 32 * 1024

// ChatSession issues chat streams one at a time: starting a stream aborts
// the previous one before its request goes out.
type ChatSession struct {
	client *Client
	mu     sync.Mutex
	active *Stream
}

func (c *Client) NewChatSession() *ChatSession {
	return &ChatSession{client: c}
}

// StreamChat aborts any stream still running on this session and returns a
// new one. The request is sent on the first call to Next.
func (s *ChatSession) StreamChat(ctx context.Context, req ChatRequest) *Stream {
	ctx, cancel := context.WithCancelCause(ctx)
	req.Stream = true
	stream := &Stream{
		ctx:     ctx,
		cancel:  cancel,
		session: s,
		client:  s.client,
		req:     req,
		id:      uuid.NewString(),
		reader:  sse.NewReader(),
	}
	s.mu.Lock()
	prev := s.active
	s.active = stream
	s.mu.Unlock()
	if prev != nil {
		prev.cancel(ErrAborted)
	}
	return stream
}

// Cancel aborts the active stream, if any.
func (s *ChatSession) Cancel() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	active := s.active
	s.active = nil
	s.mu.Unlock()
	if active == nil {
		return false
	}
	active.cancel(ErrAborted)
	return true
}

// Active reports whether a stream is currently registered on the session.
func (s *ChatSession) Active() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active != nil
}

func (s *ChatSession) release(stream *Stream) {
	s.mu.Lock()
	if s.active == stream {
		s.active = nil
	}
	s.mu.Unlock()
}

// Stream yields canonical events of one chat completion in arrival order.
// It is consumed by a single goroutine; Cancel on the owning session may be
// called from any goroutine.
type Stream struct {
	ctx     context.Context
	cancel  context.CancelCauseFunc
	session *ChatSession
	client  *Client
	req     ChatRequest
	id      string
	reader  *sse.Reader

	body     io.ReadCloser
	text     io.Reader
	buf      []byte
	queue    []events.Event
	current  events.Event
	err      error
	readErr  error
	started  bool
	finished bool
	sawDone  bool
	flushed  bool
	count    int
	opened   time.Time
}

func (s *Stream) ID() string {
	if s == nil {
		return ""
	}
	return s.id
}

// Next advances to the next event. It returns false once the stream ended;
// Err then tells whether it ended cleanly.
func (s *Stream) Next() bool {
	if s == nil || s.finished {
		return false
	}
	if !s.started {
		s.started = true
		if err := s.open(); err != nil {
			s.finish(err)
			return false
		}
	}
	for len(s.queue) == 0 {
		if s.sawDone {
			s.finish(nil)
			return false
		}
		if s.readErr != nil {
			if !s.flushed && errors.Is(s.readErr, io.EOF) && s.ctx.Err() == nil {
				s.flushed = true
				for ev := range s.reader.Flush() {
					s.queue = append(s.queue, ev)
					if events.IsDone(ev) {
						s.sawDone = true
					}
				}
				continue
			}
			s.finish(s.classify(s.readErr))
			return false
		}
		n, err := s.text.Read(s.buf)
		if n > 0 {
			for ev := range s.reader.Process(string(s.buf[:n])) {
				s.queue = append(s.queue, ev)
				if events.IsDone(ev) {
					s.sawDone = true
					break
				}
			}
		}
		if err != nil {
			s.readErr = err
		}
	}
	s.current = s.queue[0]
	s.queue = s.queue[1:]
	s.count++
	return true
}

func (s *Stream) Current() events.Event {
	if s == nil {
		return nil
	}
	return s.current
}

// Err is nil for a stream that ended at done or EOF, wraps ErrAborted for a
// cancelled stream and ErrRequestFailed for transport failures.
func (s *Stream) Err() error {
	if s == nil {
		return nil
	}
	return s.err
}

// Close releases the response body. It is safe to call more than once.
func (s *Stream) Close() error {
	if s == nil {
		return nil
	}
	if !s.finished {
		s.finish(ErrAborted)
	}
	return nil
}

func (s *Stream) open() error {
	logger := s.logger()
	payload, err := json.Marshal(s.req)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(s.ctx, http.MethodPost, s.client.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("X-Request-ID", s.id)

	s.opened = time.Now()
	logger.Debug("stream_open", logging.F("dialog_id", s.req.DialogID))
	resp, err := s.client.stream.Do(req)
	if err != nil {
		return s.classify(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		apiErr := decodeAPIError(resp)
		logger.Debug("stream_status", logging.F("status", resp.StatusCode))
		return fmt.Errorf("%w: %w", ErrRequestFailed, apiErr)
	}
	s.body = resp.Body
	s.text = transform.NewReader(resp.Body, unicode.UTF8.NewDecoder())
	s.buf = make([]byte, streamReadSize)
	return nil
}

func (s *Stream) classify(err error) error {
	if err == nil {
		return nil
	}
	if s.ctx.Err() != nil {
		cause := context.Cause(s.ctx)
		if errors.Is(cause, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %w", ErrRequestFailed, cause)
		}
		return ErrAborted
	}
	if errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrRequestFailed, err)
}

func (s *Stream) finish(err error) {
	if s.finished {
		return
	}
	s.finished = true
	s.err = err
	s.current = nil
	s.queue = nil
	if s.body != nil {
		_ = s.body.Close()
		s.body = nil
	}
	s.cancel(ErrAborted)
	s.session.release(s)
	s.logger().Debug("stream_close",
		logging.F("events", s.count),
		logging.F("done", s.sawDone),
		logging.F("buffered", s.reader.Buffered()),
		logging.F("dur", time.Since(s.opened)),
		logging.F("error", errString(err)),
	)
}

func (s *Stream) logger() logging.Logger {
	if s.client == nil || !s.client.streamDebug || s.client.logger == nil {
		return logging.Nop()
	}
	return s.client.logger.With(logging.F("stream_id", s.id))
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
