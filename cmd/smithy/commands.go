package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"smithy/internal/config"
	"smithy/internal/logging"
	"smithy/internal/services"
	"smithy/internal/types"
	"smithy/internal/workspacepaths"
)

// serverControl is the part of the server manager the CLI drives.
type serverControl interface {
	Discover(ctx context.Context) (string, *types.ServerStatus, error)
	Start(ctx context.Context) (*exec.Cmd, error)
	WaitReady(ctx context.Context) (string, error)
	Stop(ctx context.Context) error
}

type commandWiring struct {
	stdout     io.Writer
	stderr     io.Writer
	stdin      io.Reader
	loadConfig func() (config.Config, string, error)
	newClient  clientFactory
	newServer  func(cfg config.Config) serverControl
	runUI      func(ctx context.Context, cfg config.Config, configPath string) error
	isTerminal func(w io.Writer) bool
	version    string
}

func defaultCommandWiring(stdout, stderr io.Writer, stdin io.Reader) commandWiring {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	if stdin == nil {
		stdin = os.Stdin
	}
	return commandWiring{
		stdout:     stdout,
		stderr:     stderr,
		stdin:      stdin,
		loadConfig: loadConfigFile,
		newClient:  newServerClient(stderr),
		newServer: func(cfg config.Config) serverControl {
			return services.New(cfg, services.WithLogger(stderrLogger(stderr, cfg))).Server()
		},
		runUI:      runTerminalUI,
		isTerminal: isTerminal,
		version:    buildVersion(),
	}
}

// globalOptions override config values for one invocation.
type globalOptions struct {
	url       string
	workspace string
}

type cli struct {
	wiring commandWiring
	global globalOptions
}

func newRootCommand(wiring commandWiring) *cobra.Command {
	c := &cli{wiring: wiring}
	root := &cobra.Command{
		Use:           "smithy",
		Short:         "Terminal client for the AgentSmithy coding agent",
		Long:          "smithy talks to a local AgentSmithy server: chat with the agent, manage dialogs, and approve or roll back its changes.",
		Version:       wiring.version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runUI(cmd)
		},
	}
	root.SetOut(wiring.stdout)
	root.SetErr(wiring.stderr)
	root.SetIn(wiring.stdin)
	root.PersistentFlags().StringVar(&c.global.url, "url", "", "server URL (overrides [server] url)")
	root.PersistentFlags().StringVarP(&c.global.workspace, "workspace", "w", "", "workspace directory (overrides [server] workspace)")

	root.AddCommand(
		c.uiCommand(),
		c.chatCommand(),
		c.dialogsCommand(),
		c.historyCommand(),
		c.statusCommand(),
		c.approveCommand(),
		c.resetCommand(),
		c.restoreCommand(),
		c.checkpointsCommand(),
		c.serverCommand(),
		c.configCommand(),
	)
	return root
}

// config loads the config file and applies the global flags.
func (c *cli) config() (config.Config, string, error) {
	cfg, path, err := c.wiring.loadConfig()
	if err != nil {
		return config.Config{}, "", err
	}
	if url := strings.TrimSpace(c.global.url); url != "" {
		cfg.Server.URL = url
	}
	if workspace := strings.TrimSpace(c.global.workspace); workspace != "" {
		cfg.Server.Workspace = workspace
		resolved, err := cfg.Workspace()
		if err != nil {
			return config.Config{}, "", err
		}
		if err := workspacepaths.ValidateDirectory(resolved, nil); err != nil {
			return config.Config{}, "", fmt.Errorf("workspace %s: %w", workspace, err)
		}
		cfg.Server.Workspace = resolved
	}
	return cfg, path, nil
}

func (c *cli) client(ctx context.Context) (commandClient, error) {
	cfg, _, err := c.config()
	if err != nil {
		return nil, err
	}
	return c.wiring.newClient(ctx, cfg)
}

func loadConfigFile() (config.Config, string, error) {
	path, err := config.ConfigPath()
	if err != nil {
		return config.Config{}, "", err
	}
	cfg, err := config.LoadFromPath(path)
	if err != nil {
		return config.Config{}, "", err
	}
	return cfg, path, nil
}

func stderrLogger(stderr io.Writer, cfg config.Config) logging.Logger {
	return logging.New(stderr, logging.ParseLevel(cfg.LogLevel()))
}
