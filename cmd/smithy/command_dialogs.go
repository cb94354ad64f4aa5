package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"smithy/internal/client"
	"smithy/internal/sessionops"
	"smithy/internal/types"
)

const defaultHistoryLimit = 20

func (c *cli) dialogsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "dialogs",
		Aliases: []string{"dialog"},
		Short:   "List and manage dialogs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.listDialogs(cmd)
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:     "list",
			Aliases: []string{"ls"},
			Short:   "List dialogs, newest first",
			Args:    cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.listDialogs(cmd)
			},
		},
		&cobra.Command{
			Use:   "new [title]",
			Short: "Create a dialog and make it current",
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				api, err := c.client(ctx)
				if err != nil {
					return err
				}
				dialog, err := api.CreateDialog(ctx, strings.TrimSpace(strings.Join(args, " ")))
				if err != nil {
					return err
				}
				if err := api.SetCurrentDialog(ctx, dialog.ID); err != nil {
					return err
				}
				fmt.Fprintln(c.wiring.stdout, dialog.ID)
				return nil
			},
		},
		&cobra.Command{
			Use:   "rename <id> <title>",
			Short: "Rename a dialog",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				title := strings.TrimSpace(strings.Join(args[1:], " "))
				if title == "" {
					return errors.New("title is required")
				}
				ctx := cmd.Context()
				api, err := c.client(ctx)
				if err != nil {
					return err
				}
				return api.UpdateDialog(ctx, args[0], title)
			},
		},
		&cobra.Command{
			Use:   "show <id>",
			Short: "Print one dialog's details",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				api, err := c.client(ctx)
				if err != nil {
					return err
				}
				dialog, err := api.GetDialog(ctx, args[0])
				if err != nil {
					if client.IsNotFound(err) {
						return fmt.Errorf("dialog %s not found", args[0])
					}
					return err
				}
				w := tabwriter.NewWriter(c.wiring.stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintf(w, "id:\t%s\n", dialog.ID)
				fmt.Fprintf(w, "title:\t%s\n", dialog.DisplayTitle())
				fmt.Fprintf(w, "created:\t%s\n", formatTime(dialog.CreatedAt))
				fmt.Fprintf(w, "updated:\t%s\n", formatTime(dialog.UpdatedAt))
				return w.Flush()
			},
		},
		c.deleteDialogCommand(),
		&cobra.Command{
			Use:   "use <id>",
			Short: "Make a dialog the server's current dialog",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				api, err := c.client(ctx)
				if err != nil {
					return err
				}
				return api.SetCurrentDialog(ctx, args[0])
			},
		},
	)
	return cmd
}

func (c *cli) deleteDialogCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a dialog and its history",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			confirm := newPromptConfirmer(c.wiring.stdin, c.wiring.stderr, yes)
			ok, err := confirm.Confirm(ctx, sessionops.Prompt{
				Title:   "Delete dialog",
				Message: fmt.Sprintf("delete %s and its history?", args[0]),
			})
			if err != nil {
				return err
			}
			if !ok {
				return sessionops.ErrOperationCancelled
			}
			api, err := c.client(ctx)
			if err != nil {
				return err
			}
			return api.DeleteDialog(ctx, args[0])
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}

func (c *cli) listDialogs(cmd *cobra.Command) error {
	ctx := cmd.Context()
	api, err := c.client(ctx)
	if err != nil {
		return err
	}
	list, err := api.ListDialogs(ctx)
	if err != nil {
		return err
	}
	if list == nil || len(list.Items) == 0 {
		fmt.Fprintln(c.wiring.stdout, "no dialogs")
		return nil
	}
	w := tabwriter.NewWriter(c.wiring.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "\tID\tTITLE\tUPDATED")
	for _, dialog := range list.Items {
		if dialog == nil {
			continue
		}
		marker := ""
		if dialog.ID == list.CurrentDialogID {
			marker = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", marker, dialog.ID, dialog.DisplayTitle(), formatTime(dialog.UpdatedAt))
	}
	return w.Flush()
}

func (c *cli) historyCommand() *cobra.Command {
	var limit int
	var before int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "history [dialog]",
		Short: "Print a page of a dialog's history",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			api, err := c.client(ctx)
			if err != nil {
				return err
			}
			dialogID, err := resolveDialog(ctx, api, firstArg(args))
			if err != nil {
				return err
			}
			page, err := api.History(ctx, dialogID, limit, before)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(c.wiring.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(page)
			}
			printHistory(c, page)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", defaultHistoryLimit, "events per page")
	cmd.Flags().IntVar(&before, "before", 0, "only events before this index (0 for the newest page)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw page as JSON")
	return cmd
}

func printHistory(c *cli, page *types.HistoryPage) {
	out := c.wiring.stdout
	if page == nil || len(page.Events) == 0 {
		fmt.Fprintln(out, "no history")
		return
	}
	if page.HasMore && page.FirstIdx != nil {
		fmt.Fprintf(out, "… older events: --before %d\n", *page.FirstIdx)
	}
	for _, ev := range page.Events {
		switch ev.Type {
		case types.HistoryEventUser:
			fmt.Fprintf(out, "you: %s\n", ev.Content)
		case types.HistoryEventChat:
			fmt.Fprintf(out, "agent: %s\n", ev.Content)
		case types.HistoryEventReasoning:
			fmt.Fprintf(out, "thinking: %s\n", firstLine(ev.Content))
		case types.HistoryEventToolCall:
			fmt.Fprintf(out, "tool: %s\n", ev.Name)
		case types.HistoryEventFileEdit:
			fmt.Fprintf(out, "edit: %s\n", ev.File)
		case types.HistoryEventError:
			fmt.Fprintf(out, "error: %s\n", ev.Content)
		}
	}
}

func firstLine(text string) string {
	line, _, cut := strings.Cut(strings.TrimSpace(text), "\n")
	if cut {
		return line + " …"
	}
	return line
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
