package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) panelsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "panels",
		Short: "Manage saved panels",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd, args); err != nil {
				return err
			}
			return a.withStore(cmd.Context())
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List saved panel ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ids, err := a.svc.ListPanels(cmd.Context())
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(a.out, id)
			}
			return nil
		},
	}

	var output string
	show := &cobra.Command{
		Use:   "show <panel-id>",
		Short: "Print a saved panel as a panel section",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			frag, err := a.svc.LoadPanel(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.writeOutput(cmd.Context(), output, frag)
		},
	}
	show.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")

	del := &cobra.Command{
		Use:   "delete <panel-id>",
		Short: "Delete a saved panel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.svc.DeletePanel(cmd.Context(), args[0])
		},
	}

	cmd.AddCommand(list, show, del)
	return cmd
}
