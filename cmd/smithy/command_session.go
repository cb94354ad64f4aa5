package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"smithy/internal/sessionops"
	"smithy/internal/types"
)

// sessionCommand runs fn against the dialog named by the first argument or
// the server's current dialog.
func (c *cli) sessionCommand(assumeYes *bool, fn func(ctx context.Context, ops *sessionops.Operations, api commandClient, dialogID string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		api, err := c.client(ctx)
		if err != nil {
			return err
		}
		dialogID, err := resolveDialog(ctx, api, firstArg(args))
		if err != nil {
			return err
		}
		yes := assumeYes != nil && *assumeYes
		ops := sessionops.New(api, newPromptConfirmer(c.wiring.stdin, c.wiring.stderr, yes), nil)
		return fn(ctx, ops, api, dialogID)
	}
}

func (c *cli) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status [dialog]",
		Short: "Show unapproved changes of a dialog's session",
		Args:  cobra.MaximumNArgs(1),
		RunE: c.sessionCommand(nil, func(ctx context.Context, ops *sessionops.Operations, _ commandClient, dialogID string) error {
			status, err := ops.Status(ctx, dialogID)
			if err != nil {
				return err
			}
			printSessionStatus(c, dialogID, status)
			return nil
		}),
	}
}

func printSessionStatus(c *cli, dialogID string, status *types.SessionStatus) {
	out := c.wiring.stdout
	fmt.Fprintf(out, "dialog:  %s\n", dialogID)
	if status == nil {
		fmt.Fprintln(out, "session: unknown")
		return
	}
	fmt.Fprintf(out, "session: %s\n", status.ActiveSession)
	if status.LastApprovedAt != nil {
		fmt.Fprintf(out, "approved: %s\n", formatTime(*status.LastApprovedAt))
	}
	if !status.HasUnapproved {
		fmt.Fprintln(out, "no unapproved changes")
		return
	}
	fmt.Fprintf(out, "unapproved changes in %d file(s):\n", len(status.ChangedFiles))
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, file := range status.ChangedFiles {
		fmt.Fprintf(w, "  %s\t%s\t+%d -%d\n", file.Status, file.Path, file.Additions, file.Deletions)
	}
	_ = w.Flush()
}

func (c *cli) approveCommand() *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:   "approve [dialog]",
		Short: "Approve the session's changes",
		Args:  cobra.MaximumNArgs(1),
		RunE: c.sessionCommand(nil, func(ctx context.Context, ops *sessionops.Operations, _ commandClient, dialogID string) error {
			result, err := ops.Approve(ctx, dialogID, message)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.wiring.stdout, "approved %d commit(s) as %s\n", result.CommitsApproved, result.ApprovedCommit)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "approval commit message")
	return cmd
}

func (c *cli) resetCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset [dialog]",
		Short: "Discard unapproved changes",
		Args:  cobra.MaximumNArgs(1),
		RunE: c.sessionCommand(&yes, func(ctx context.Context, ops *sessionops.Operations, _ commandClient, dialogID string) error {
			result, err := ops.ResetToApproved(ctx, dialogID)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.wiring.stdout, "reset to %s\n", result.ResetTo)
			return nil
		}),
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}

func (c *cli) restoreCommand() *cobra.Command {
	var yes bool
	var dialog string
	cmd := &cobra.Command{
		Use:   "restore <checkpoint>",
		Short: "Restore files to a checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			checkpoint := args[0]
			run := c.sessionCommand(&yes, func(ctx context.Context, ops *sessionops.Operations, _ commandClient, dialogID string) error {
				result, err := ops.RestoreCheckpoint(ctx, dialogID, checkpoint)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.wiring.stdout, "restored to %s\n", result.RestoredTo)
				return nil
			})
			return run(cmd, dialogArgs(dialog))
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	cmd.Flags().StringVarP(&dialog, "dialog", "d", "", "dialog id (defaults to the server's current dialog)")
	return cmd
}

func (c *cli) checkpointsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "checkpoints [dialog]",
		Short: "List a dialog's checkpoints",
		Args:  cobra.MaximumNArgs(1),
		RunE: c.sessionCommand(nil, func(ctx context.Context, _ *sessionops.Operations, api commandClient, dialogID string) error {
			checkpoints, err := api.Checkpoints(ctx, dialogID)
			if err != nil {
				return err
			}
			if len(checkpoints) == 0 {
				fmt.Fprintln(c.wiring.stdout, "no checkpoints")
				return nil
			}
			w := tabwriter.NewWriter(c.wiring.stdout, 0, 4, 2, ' ', 0)
			for _, cp := range checkpoints {
				fmt.Fprintf(w, "%s\t%s\n", cp.CommitID, firstLine(cp.Message))
			}
			return w.Flush()
		}),
	}
}

func dialogArgs(dialog string) []string {
	if dialog == "" {
		return nil
	}
	return []string{dialog}
}
