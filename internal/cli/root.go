// Package cli implements vasctl, the operator command line for VAS orders.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCommand creates the root command for app
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "vasctl",
		Short: "vasctl - execute VAS tasks and allocate their inventory",
		Long: `vasctl drives the VAS worksheet of an order from the terminal.

The selected task, its issue text and an open allocation draft are kept
per order in a local state file, so each command picks up where the
previous one stopped.

Examples:
  vasctl order show VAS-0001
  vasctl task select VAS-0001 T1
  vasctl task issue VAS-0001 "label torn"
  vasctl task execute VAS-0001
  vasctl alloc candidates VAS-0001
  vasctl alloc auto VAS-0001
  vasctl alloc commit VAS-0001
  vasctl order complete VAS-0001`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !validFormat(app.output) {
				return fmt.Errorf("invalid output format %q: use table, json or yaml", app.output)
			}
			return app.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			app.close()
		},
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.SetOut(app.Out)
	rootCmd.SetErr(app.ErrOut)

	rootCmd.PersistentFlags().StringVar(&app.configPath, "config", "", "Config file (default ~/.vasctl.yaml)")
	rootCmd.PersistentFlags().StringVar(&app.statePath, "state", "", "Local state file (overrides state_file)")
	rootCmd.PersistentFlags().StringVarP(&app.output, "output", "o", FormatTable, "Output format: table, json or yaml")

	rootCmd.AddCommand(newOrderCommand(app))
	rootCmd.AddCommand(newTaskCommand(app))
	rootCmd.AddCommand(newAllocCommand(app))

	return rootCmd
}

// Execute runs vasctl
func Execute() {
	if err := NewRootCommand(NewApp()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
