package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the credentials of every workspace",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		results := a.mgr.TestConnections(cmd.Context())
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), results)
		}

		out := cmd.OutOrStdout()
		if len(results) == 0 {
			fmt.Fprintln(out, "No workspaces configured")
			return nil
		}
		failed := 0
		for _, r := range results {
			if r.OK {
				okColor.Fprintf(out, "✓ %s", r.Workspace)
				dimColor.Fprintf(out, "  %s on %s\n", r.User, r.Team)
				continue
			}
			failed++
			errColor.Fprintf(out, "✗ %s", r.Workspace)
			dimColor.Fprintf(out, "  %s\n", r.Error)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d workspace(s) failed", failed, len(results))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
