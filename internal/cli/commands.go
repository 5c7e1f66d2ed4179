package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// step changes the workspace; show prints it afterwards
type (
	step func(ctx context.Context, ws *workspace) error
	show func(p *printer, ws *workspace) error
)

// run opens orderNo, applies fn, saves local state and prints the result
func (a *App) run(cmd *cobra.Command, orderNo string, fn step, render show) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	ws, err := a.open(ctx, orderNo)
	if err != nil {
		return err
	}

	stepErr := fn(ctx, ws)
	if err := a.save(ctx, ws); err != nil {
		a.Logger.WithError(err).Warn("Failed to save local state")
	}
	if stepErr != nil {
		return stepErr
	}
	return render(a.printer(), ws)
}

func (a *App) printer() *printer {
	return &printer{w: a.Out, format: a.output}
}

func showSession(p *printer, ws *workspace) error {
	return p.session(ws.session.View())
}

func showAllocation(p *printer, ws *workspace) error {
	view, err := ws.session.Allocation()
	if err != nil {
		return err
	}
	return p.allocation(view)
}

func noop(context.Context, *workspace) error { return nil }

func newOrderCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Show and complete orders",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show ORDER",
		Short: "Show the worksheet, selection and allowed actions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, args[0], noop, showSession)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "complete ORDER",
		Short: "Complete an order whose sets are all done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, args[0], func(ctx context.Context, ws *workspace) error {
				return ws.session.Complete(ctx)
			}, showSession)
		},
	})

	return cmd
}

func newTaskCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Select, execute and undo tasks",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "select ORDER TASK",
		Short: "Make TASK the selected task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, args[0], func(_ context.Context, ws *workspace) error {
				return ws.session.Select(args[1])
			}, showSession)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear ORDER",
		Short: "Drop the selection and any allocation draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, args[0], func(_ context.Context, ws *workspace) error {
				ws.session.ClearSelection()
				return nil
			}, showSession)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "issue ORDER TEXT",
		Short: "Set the issue text sent when the selected task is executed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, args[0], func(_ context.Context, ws *workspace) error {
				return ws.session.SetIssue(args[1])
			}, showSession)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "execute ORDER",
		Short: "Execute the selected task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, args[0], func(ctx context.Context, ws *workspace) error {
				return ws.session.Execute(ctx)
			}, showSession)
		},
	})

	var yes bool
	undoCmd := &cobra.Command{
		Use:   "undo ORDER",
		Short: "Reopen the selected task",
		Long: `Reopen the selected done task. Asks for confirmation unless --yes is given.

The status the task returns to is set by undo_target (EXECUTING or PENDING).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			confirmer := newPromptConfirmer(app.In, app.ErrOut)
			if yes {
				confirmer = alwaysConfirm
			}
			return app.run(cmd, args[0], func(ctx context.Context, ws *workspace) error {
				return ws.session.Undo(ctx, confirmer)
			}, showSession)
		},
	}
	undoCmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	cmd.AddCommand(undoCmd)

	return cmd
}

func newAllocCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alloc",
		Short: "Allocate inventory to the selected task's group",
		Long: `Allocate inventory to every task of the selected task's group.

A draft is opened by 'alloc candidates', edited with 'alloc set' or
'alloc auto', and sent with 'alloc commit'. The draft survives between
commands until it is committed or discarded.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "candidates ORDER",
		Short: "List candidates, opening a draft when none is open",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, args[0], func(ctx context.Context, ws *workspace) error {
				if _, err := ws.session.Allocation(); err == nil {
					return nil
				}
				_, err := ws.session.OpenAllocation(ctx)
				return err
			}, showAllocation)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set ORDER CANDIDATE QTY",
		Short: "Set the quantity taken from one candidate",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid quantity %q: %w", args[2], err)
			}
			return app.run(cmd, args[0], func(_ context.Context, ws *workspace) error {
				_, err := ws.session.SetSelectedQty(args[1], qty)
				return err
			}, showAllocation)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "auto ORDER",
		Short: "Fill the draft first-fit in candidate order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, args[0], func(_ context.Context, ws *workspace) error {
				_, err := ws.session.AutoSelect()
				return err
			}, showAllocation)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "commit ORDER",
		Short: "Assign the draft to the task group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, args[0], func(ctx context.Context, ws *workspace) error {
				return ws.session.CommitAllocation(ctx)
			}, showSession)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "discard ORDER",
		Short: "Drop the draft without assigning anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, args[0], func(_ context.Context, ws *workspace) error {
				return ws.session.DiscardAllocation()
			}, showSession)
		},
	})

	return cmd
}
