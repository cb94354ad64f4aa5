package app

import (
	"context"
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"smithy/internal/bridge"
	"smithy/internal/chat"
	"smithy/internal/config"
	"smithy/internal/editor"
	"smithy/internal/logging"
	"smithy/internal/services"
	"smithy/internal/store"
	"smithy/internal/types"
)

type RunOptions struct {
	Services *services.Container
	// Store persists the active dialog and drafts between launches. It
	// may be nil.
	Store store.UIStateStore
}

// Run starts the terminal UI and blocks until the user quits or ctx ends.
func Run(ctx context.Context, opts RunOptions) error {
	container := opts.Services
	if container == nil {
		return errors.New("services are required")
	}
	cfg := container.Config()
	logger := container.Logger()
	workspace, err := cfg.Workspace()
	if err != nil {
		return err
	}
	state := loadUIState(ctx, opts.Store, workspace, logger)

	var program *tea.Program
	send := func(msg tea.Msg) { program.Send(msg) }

	svc, err := chat.NewService(chat.Options{
		Backend:   container.Backend(),
		Sink:      programSink{send: send},
		Confirmer: programConfirmer{send: send},
		Opener:    newOpener(cfg, workspace, logger),
		AutoOpen:  cfg.AutoOpenFiles(),
		Workspace: workspace,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	model := NewModel(ctx, Options{
		Runner:      svc,
		Connect:     container.Connect,
		State:       state,
		MaxInactive: cfg.MaxInactiveViews(),
		MaxBlocks:   cfg.MaxTranscriptBlocks(),
		Keymap:      cfg.Keymap(),
		Logger:      logger,
	})
	program = tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))

	if err := container.Watch(ctx); err != nil {
		logger.Warn("config_watch_unavailable", logging.F("error", err))
	}
	unsubscribe := container.Subscribe(func(config.Config) {
		send(commandMsg{cmd: bridge.ShowInfo{Message: "Configuration reloaded"}})
	})
	defer unsubscribe()

	_, runErr := program.Run()
	if errors.Is(runErr, tea.ErrProgramKilled) && ctx.Err() != nil {
		runErr = nil
	}
	saveUIState(opts.Store, model.UIState(), logger)
	return runErr
}

func loadUIState(ctx context.Context, st store.UIStateStore, workspace string, logger logging.Logger) *types.UIState {
	state := &types.UIState{Workspace: workspace}
	if st == nil {
		return state
	}
	loaded, err := st.Load(ctx, workspace)
	if err != nil {
		logger.Warn("ui_state_load_failed", logging.F("error", err))
		return state
	}
	if loaded == nil {
		return state
	}
	loaded.Workspace = workspace
	return loaded
}

func saveUIState(st store.UIStateStore, state *types.UIState, logger logging.Logger) {
	if st == nil || state == nil {
		return
	}
	// The run context is usually done by now.
	if err := st.Save(context.Background(), state); err != nil {
		logger.Warn("ui_state_save_failed", logging.F("error", err))
	}
}

func newOpener(cfg config.Config, workspace string, logger logging.Logger) editor.Opener {
	template := strings.TrimSpace(cfg.OpenCommand())
	if template == "" {
		return editor.Nop()
	}
	opener, err := editor.NewCommandOpener(template, workspace, logger)
	if err != nil {
		logger.Warn("open_command_invalid", logging.F("error", err))
		return editor.Nop()
	}
	return opener
}
