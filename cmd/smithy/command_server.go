package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"smithy/internal/server"
	"smithy/internal/types"
)

func (c *cli) serverCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Control the local AgentSmithy server",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "start",
			Short: "Start the server for the workspace unless one is running",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				control, err := c.server()
				if err != nil {
					return err
				}
				if url, _, err := control.Discover(ctx); err == nil {
					fmt.Fprintf(c.wiring.stdout, "server already running at %s\n", url)
					return nil
				}
				if _, err := control.Start(ctx); err != nil {
					return err
				}
				url, err := control.WaitReady(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.wiring.stdout, "server ready at %s\n", url)
				return nil
			},
		},
		&cobra.Command{
			Use:   "stop",
			Short: "Stop the workspace's server",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				control, err := c.server()
				if err != nil {
					return err
				}
				if err := control.Stop(cmd.Context()); err != nil {
					if errors.Is(err, server.ErrServerNotRunning) {
						fmt.Fprintln(c.wiring.stdout, "server is not running")
						return nil
					}
					return err
				}
				fmt.Fprintln(c.wiring.stdout, "server stopped")
				return nil
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show whether the server is running",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				control, err := c.server()
				if err != nil {
					return err
				}
				url, status, err := control.Discover(cmd.Context())
				out := c.wiring.stdout
				if err != nil {
					state := types.ServerStateStopped
					if status != nil && status.State != "" {
						state = status.State
					}
					fmt.Fprintf(out, "state: %s\n", state)
					if status != nil && status.Error != "" {
						fmt.Fprintf(out, "error: %s\n", status.Error)
					}
					return nil
				}
				fmt.Fprintf(out, "state: %s\n", types.ServerStateReady)
				fmt.Fprintf(out, "url:   %s\n", url)
				if status != nil && status.PID > 0 {
					fmt.Fprintf(out, "pid:   %d\n", status.PID)
				}
				return nil
			},
		},
	)
	return cmd
}

func (c *cli) server() (serverControl, error) {
	cfg, _, err := c.config()
	if err != nil {
		return nil, err
	}
	return c.wiring.newServer(cfg), nil
}
