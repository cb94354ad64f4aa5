// Package services wires the long-lived collaborators of a smithy process:
// config, logger, server lifecycle and the current API client.
package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"smithy/internal/chat"
	"smithy/internal/client"
	"smithy/internal/config"
	"smithy/internal/logging"
	"smithy/internal/notify"
	"smithy/internal/server"
	"smithy/internal/watcher"
)

// Container holds no globals; each command builds one. The API client is
// swapped atomically when the config changes, so requests already running
// keep the client they started with.
type Container struct {
	configPath string
	logger     logging.Logger

	mu     sync.RWMutex
	cfg    config.Config
	server *server.Manager

	client   atomic.Pointer[client.Client]
	changes  notify.Emitter[config.Config]
	watchers []*watcher.Watcher

	loadConfig func(path string) (config.Config, error)
}

type Option func(*Container)

func WithLogger(logger logging.Logger) Option {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithConfigPath enables Reload and Watch for the file at path.
func WithConfigPath(path string) Option {
	return func(c *Container) {
		c.configPath = path
	}
}

func New(cfg config.Config, opts ...Option) *Container {
	c := &Container{
		cfg:        cfg,
		logger:     logging.Nop(),
		loadConfig: config.LoadFromPath,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.server = c.newServerManager(cfg)
	c.client.Store(c.newClient(cfg.ServerURL()))
	return c
}

func (c *Container) Logger() logging.Logger { return c.logger }

func (c *Container) Config() config.Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg
}

func (c *Container) Server() *server.Manager {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.server
}

// Client returns the current API client.
func (c *Container) Client() *client.Client {
	return c.client.Load()
}

// Backend exposes the current client to the chat service.
func (c *Container) Backend() chat.ClientBackend {
	return chat.ClientBackend{Client: c.Client}
}

// Connect makes sure a server is reachable, starting one when allowed, and
// points the client at it.
func (c *Container) Connect(ctx context.Context) error {
	url, err := c.Server().Ensure(ctx)
	if err != nil {
		return err
	}
	if current := c.Client(); current == nil || current.BaseURL() != url {
		c.client.Store(c.newClient(url))
		c.logger.Info("server_connected", logging.F("url", url))
	}
	return nil
}

// Reload re-reads the config file and swaps the client and server manager.
func (c *Container) Reload(ctx context.Context) error {
	if c.configPath == "" {
		return errors.New("config path is not set")
	}
	cfg, err := c.loadConfig(c.configPath)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.cfg = cfg
	c.server = c.newServerManager(cfg)
	c.mu.Unlock()
	c.client.Store(c.newClient(cfg.ServerURL()))
	c.logger.Info("config_reloaded", logging.F("path", c.configPath))
	if err := c.Connect(ctx); err != nil {
		c.logger.Warn("reconnect_failed", logging.F("error", err))
	}
	c.changes.Emit(cfg)
	return nil
}

// Subscribe registers fn for config reloads.
func (c *Container) Subscribe(fn func(config.Config)) func() {
	return c.changes.Subscribe(fn)
}

// Watch reloads the config whenever its file changes, until ctx is done.
func (c *Container) Watch(ctx context.Context) error {
	if c.configPath == "" {
		return errors.New("config path is not set")
	}
	w, err := watcher.New(watcher.Config{Path: c.configPath, Logger: c.logger})
	if err != nil {
		return err
	}
	changes, err := w.Start()
	if err != nil {
		_ = w.Stop()
		return err
	}
	c.mu.Lock()
	c.watchers = append(c.watchers, w)
	c.mu.Unlock()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-changes:
				if err := c.Reload(ctx); err != nil {
					c.logger.Warn("config_reload_failed", logging.F("error", err))
				}
			}
		}
	}()
	return nil
}

func (c *Container) Close() error {
	c.mu.Lock()
	watchers := c.watchers
	c.watchers = nil
	c.mu.Unlock()
	var errs []error
	for _, w := range watchers {
		errs = append(errs, w.Stop())
	}
	return errors.Join(errs...)
}

func (c *Container) newClient(url string) *client.Client {
	c.mu.RLock()
	debug := c.cfg.StreamDebugEnabled()
	c.mu.RUnlock()
	return client.New(url,
		client.WithLogger(c.logger),
		client.WithStreamDebug(debug),
	)
}

func (c *Container) newServerManager(cfg config.Config) *server.Manager {
	workspace, err := cfg.Workspace()
	if err != nil {
		c.logger.Warn("workspace_unresolved", logging.F("error", err))
	}
	logPath, err := config.ServerLogPath()
	if err != nil {
		logPath = ""
	}
	return server.NewManager(server.Options{
		Binary:       cfg.ServerBinary(),
		Workspace:    workspace,
		URL:          cfg.ServerURL(),
		LogPath:      logPath,
		Autostart:    cfg.AutostartEnabled(),
		StartTimeout: cfg.StartTimeout(),
		Logger:       c.logger,
	})
}
