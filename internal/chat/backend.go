package chat

import (
	"context"
	"errors"
	"fmt"

	"smithy/internal/client"
	"smithy/internal/dialogs"
	"smithy/internal/events"
	"smithy/internal/history"
	"smithy/internal/sessionops"
	"smithy/internal/types"
)

// StreamSession issues one chat stream at a time; starting a stream aborts
// the previous one.
type StreamSession interface {
	StreamChat(ctx context.Context, req client.ChatRequest) EventStream
	Cancel() bool
	Active() bool
}

// Backend is everything the chat service needs from the server.
type Backend interface {
	dialogs.API
	history.Fetcher
	sessionops.API
	NewStreamSession() StreamSession
}

var errNoClient = errors.New("server client is not configured")

// ClientBackend resolves the API client on every call, so a client swapped
// after a config change is picked up by the next request.
type ClientBackend struct {
	Client func() *client.Client
}

func (b ClientBackend) current() (*client.Client, error) {
	if b.Client == nil {
		return nil, errNoClient
	}
	c := b.Client()
	if c == nil {
		return nil, errNoClient
	}
	return c, nil
}

func (b ClientBackend) ListDialogs(ctx context.Context) (*types.DialogList, error) {
	c, err := b.current()
	if err != nil {
		return nil, err
	}
	return c.ListDialogs(ctx)
}

func (b ClientBackend) CreateDialog(ctx context.Context, title string) (*types.Dialog, error) {
	c, err := b.current()
	if err != nil {
		return nil, err
	}
	return c.CreateDialog(ctx, title)
}

func (b ClientBackend) SetCurrentDialog(ctx context.Context, id string) error {
	c, err := b.current()
	if err != nil {
		return err
	}
	return c.SetCurrentDialog(ctx, id)
}

func (b ClientBackend) UpdateDialog(ctx context.Context, id, title string) error {
	c, err := b.current()
	if err != nil {
		return err
	}
	return c.UpdateDialog(ctx, id, title)
}

func (b ClientBackend) DeleteDialog(ctx context.Context, id string) error {
	c, err := b.current()
	if err != nil {
		return err
	}
	return c.DeleteDialog(ctx, id)
}

func (b ClientBackend) History(ctx context.Context, id string, limit, before int) (*types.HistoryPage, error) {
	c, err := b.current()
	if err != nil {
		return nil, err
	}
	return c.History(ctx, id, limit, before)
}

func (b ClientBackend) SessionStatus(ctx context.Context, id string) (*types.SessionStatus, error) {
	c, err := b.current()
	if err != nil {
		return nil, err
	}
	return c.SessionStatus(ctx, id)
}

func (b ClientBackend) Approve(ctx context.Context, id, message string) (*types.ApproveResult, error) {
	c, err := b.current()
	if err != nil {
		return nil, err
	}
	return c.Approve(ctx, id, message)
}

func (b ClientBackend) Reset(ctx context.Context, id string) (*types.ResetResult, error) {
	c, err := b.current()
	if err != nil {
		return nil, err
	}
	return c.Reset(ctx, id)
}

func (b ClientBackend) Restore(ctx context.Context, id, checkpointID string) (*types.RestoreResult, error) {
	c, err := b.current()
	if err != nil {
		return nil, err
	}
	return c.Restore(ctx, id, checkpointID)
}

func (b ClientBackend) NewStreamSession() StreamSession {
	c, err := b.current()
	if err != nil {
		return failedSession{err: err}
	}
	return clientSession{session: c.NewChatSession()}
}

type clientSession struct {
	session *client.ChatSession
}

func (s clientSession) StreamChat(ctx context.Context, req client.ChatRequest) EventStream {
	return s.session.StreamChat(ctx, req)
}

func (s clientSession) Cancel() bool { return s.session.Cancel() }

func (s clientSession) Active() bool { return s.session.Active() }

type failedSession struct {
	err error
}

func (s failedSession) StreamChat(context.Context, client.ChatRequest) EventStream {
	return &failedStream{err: s.err}
}

func (failedSession) Cancel() bool { return false }

func (failedSession) Active() bool { return false }

type failedStream struct {
	err error
}

func (*failedStream) Next() bool { return false }

func (*failedStream) Current() events.Event { return nil }

func (s *failedStream) Err() error { return fmt.Errorf("%w: %w", client.ErrRequestFailed, s.err) }

func (*failedStream) Close() error { return nil }
