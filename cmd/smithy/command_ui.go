package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"smithy/internal/app"
	"smithy/internal/config"
	"smithy/internal/logging"
	"smithy/internal/services"
	"smithy/internal/store"
)

func (c *cli) uiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ui",
		Short: "Open the interactive chat (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runUI(cmd)
		},
	}
}

func (c *cli) runUI(cmd *cobra.Command) error {
	if !c.wiring.isTerminal(c.wiring.stdout) {
		return errors.New("the interactive UI needs a terminal; use `smithy chat` for scripts")
	}
	cfg, path, err := c.config()
	if err != nil {
		return err
	}
	// Reloading from the file would drop flag overrides.
	if c.global.url != "" || c.global.workspace != "" {
		path = ""
	}
	return c.wiring.runUI(cmd.Context(), cfg, path)
}

// runTerminalUI logs to a file since the terminal belongs to the UI.
func runTerminalUI(ctx context.Context, cfg config.Config, configPath string) error {
	logger := logging.Nop()
	if logPath, err := config.UILogPath(); err == nil {
		fileLogger, closer, err := logging.OpenFile(logPath, logging.ParseLevel(cfg.LogLevel()))
		if err == nil {
			defer closer.Close()
			logger = fileLogger
		}
	}

	opts := []services.Option{services.WithLogger(logger)}
	if configPath != "" {
		opts = append(opts, services.WithConfigPath(configPath))
	}
	container := services.New(cfg, opts...)
	defer container.Close()

	stateStore := openStateStore(logger)
	if stateStore != nil {
		defer stateStore.Close()
	}
	return app.Run(ctx, app.RunOptions{Services: container, Store: stateStore})
}

func openStateStore(logger logging.Logger) store.UIStateStore {
	dbPath, err := config.StatePath()
	if err != nil {
		logger.Warn("ui_state_path_unavailable", logging.F("error", err))
		return nil
	}
	fallbackPath, err := config.UIStateFallbackPath()
	if err != nil {
		fallbackPath = ""
	}
	st, err := store.Open(dbPath, fallbackPath)
	if err != nil {
		logger.Warn("ui_state_store_unavailable", logging.F("error", err))
		return nil
	}
	return st
}
