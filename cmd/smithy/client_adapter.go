package main

import (
	"context"
	"io"

	"smithy/internal/chat"
	"smithy/internal/client"
	"smithy/internal/config"
	"smithy/internal/services"
	"smithy/internal/types"
)

type clientFactory func(ctx context.Context, cfg config.Config) (commandClient, error)

type commandClient interface {
	ListDialogs(ctx context.Context) (*types.DialogList, error)
	GetDialog(ctx context.Context, id string) (*types.Dialog, error)
	CreateDialog(ctx context.Context, title string) (*types.Dialog, error)
	SetCurrentDialog(ctx context.Context, id string) error
	UpdateDialog(ctx context.Context, id, title string) error
	DeleteDialog(ctx context.Context, id string) error
	History(ctx context.Context, id string, limit, before int) (*types.HistoryPage, error)
	SessionStatus(ctx context.Context, id string) (*types.SessionStatus, error)
	Approve(ctx context.Context, id, message string) (*types.ApproveResult, error)
	Reset(ctx context.Context, id string) (*types.ResetResult, error)
	Restore(ctx context.Context, id, checkpointID string) (*types.RestoreResult, error)
	Checkpoints(ctx context.Context, id string) ([]types.Checkpoint, error)
	GetConfig(ctx context.Context) (*types.ServerConfig, error)
	UpdateConfig(ctx context.Context, patch map[string]any) (*types.ServerConfig, error)
	StreamChat(ctx context.Context, req client.ChatRequest) chat.EventStream
}

type clientAdapter struct {
	*client.Client
}

func (c clientAdapter) StreamChat(ctx context.Context, req client.ChatRequest) chat.EventStream {
	return c.NewChatSession().StreamChat(ctx, req)
}

// newServerClient connects to the configured server, starting it when
// autostart is on, and returns a client for it.
func newServerClient(stderr io.Writer) clientFactory {
	return func(ctx context.Context, cfg config.Config) (commandClient, error) {
		container := services.New(cfg, services.WithLogger(stderrLogger(stderr, cfg)))
		if err := container.Connect(ctx); err != nil {
			return nil, err
		}
		return clientAdapter{Client: container.Client()}, nil
	}
}
