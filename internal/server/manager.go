package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"smithy/internal/client"
	"smithy/internal/logging"
	"smithy/internal/types"
)

const (
	defaultStartTimeout = 20 * time.Second
	pollInterval        = 200 * time.Millisecond
	healthTimeout       = 2 * time.Second
)

type Options struct {
	Binary       string
	Workspace    string
	URL          string
	LogPath      string
	Autostart    bool
	StartTimeout time.Duration
	Logger       logging.Logger
}

// Manager owns the lifecycle of the server process for one workspace.
type Manager struct {
	opts   Options
	logger logging.Logger

	health    func(ctx context.Context, url string) error
	alive     func(ctx context.Context, pid int) bool
	start     func(cmd *exec.Cmd) error
	terminate func(ctx context.Context, pid int) error
}

func NewManager(opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	if opts.StartTimeout <= 0 {
		opts.StartTimeout = defaultStartTimeout
	}
	opts.URL = strings.TrimRight(strings.TrimSpace(opts.URL), "/")
	return &Manager{
		opts:      opts,
		logger:    logger,
		health:    checkHealth,
		alive:     pidAlive,
		start:     startDetached,
		terminate: terminatePID,
	}
}

// Discover returns the URL of a running, healthy server. The status file
// wins over the configured URL when both exist.
func (m *Manager) Discover(ctx context.Context) (string, *types.ServerStatus, error) {
	status, err := ReadStatus(m.opts.Workspace)
	if err == nil && status.State == types.ServerStateReady && m.alive(ctx, status.PID) {
		if url := URL(status); url != "" && m.health(ctx, url) == nil {
			return url, status, nil
		}
	}
	if err != nil && !errors.Is(err, ErrServerNotRunning) {
		m.logger.Warn("server_status_unreadable", logging.F("error", err))
	}
	if m.opts.URL != "" && m.health(ctx, m.opts.URL) == nil {
		return m.opts.URL, status, nil
	}
	return "", status, ErrServerNotRunning
}

// Ensure returns the URL of a healthy server, starting one when none runs
// and autostart is enabled.
func (m *Manager) Ensure(ctx context.Context) (string, error) {
	url, _, err := m.Discover(ctx)
	if err == nil {
		return url, nil
	}
	if !m.opts.Autostart {
		return "", err
	}
	if _, err := m.Start(ctx); err != nil {
		return "", err
	}
	return m.WaitReady(ctx)
}

// Start launches the server binary detached from this process.
func (m *Manager) Start(ctx context.Context) (*exec.Cmd, error) {
	binary := strings.TrimSpace(m.opts.Binary)
	if binary == "" {
		return nil, errors.New("server binary is not configured")
	}
	if m.opts.Workspace == "" {
		return nil, errors.New("workspace is not configured")
	}
	cmd := exec.Command(binary, "--workdir", m.opts.Workspace)
	cmd.Dir = m.opts.Workspace
	applyDetachedSysProcAttr(cmd)

	var logWriter io.Writer = io.Discard
	var logFile *os.File
	if m.opts.LogPath != "" {
		if err := os.MkdirAll(filepath.Dir(m.opts.LogPath), 0o700); err == nil {
			if file, err := os.OpenFile(m.opts.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600); err == nil {
				logWriter = file
				logFile = file
			}
		}
	}
	cmd.Stdout = logWriter
	cmd.Stderr = logWriter

	err := m.start(cmd)
	if logFile != nil {
		_ = logFile.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", binary, err)
	}
	m.logger.Info("server_started", logging.F("binary", binary), logging.F("workspace", m.opts.Workspace))
	return cmd, nil
}

// WaitReady polls the status file and health endpoint until the server
// answers or the start timeout passes.
func (m *Manager) WaitReady(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.opts.StartTimeout)
	defer cancel()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var last error
	for {
		status, err := ReadStatus(m.opts.Workspace)
		switch {
		case err != nil:
			last = err
		case status.State == types.ServerStateError:
			if status.Error != "" {
				return "", fmt.Errorf("server failed to start: %s", status.Error)
			}
			return "", errors.New("server failed to start")
		case status.State == types.ServerStateReady:
			if url := URL(status); url != "" {
				if last = m.health(ctx, url); last == nil {
					return url, nil
				}
			}
		}
		select {
		case <-ctx.Done():
			if last == nil {
				last = ctx.Err()
			}
			return "", fmt.Errorf("server did not become ready within %s: %w", m.opts.StartTimeout, last)
		case <-ticker.C:
		}
	}
}

// Stop terminates the server recorded in the status file.
func (m *Manager) Stop(ctx context.Context) error {
	status, err := ReadStatus(m.opts.Workspace)
	if err != nil {
		return err
	}
	if status.PID <= 0 || !m.alive(ctx, status.PID) {
		return ErrServerNotRunning
	}
	if err := m.terminate(ctx, status.PID); err != nil {
		return fmt.Errorf("stop server (pid %d): %w", status.PID, err)
	}
	m.logger.Info("server_stopped", logging.F("pid", status.PID))
	return nil
}

func checkHealth(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	health, err := client.New(url).Health(ctx)
	if err != nil {
		return err
	}
	if !health.OK {
		return errors.New("server reported unhealthy")
	}
	return nil
}

func pidAlive(ctx context.Context, pid int) bool {
	if pid <= 0 {
		return false
	}
	ok, err := process.PidExistsWithContext(ctx, int32(pid))
	return err == nil && ok
}

func terminatePID(ctx context.Context, pid int) error {
	proc, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return err
	}
	return proc.TerminateWithContext(ctx)
}

func startDetached(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
