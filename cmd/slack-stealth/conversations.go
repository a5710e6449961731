package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chrisedwards/slack-stealth/internal/channels"
	"github.com/chrisedwards/slack-stealth/internal/slack"
)

var convFlags struct {
	types    string
	archived bool
	include  []string
	exclude  []string
	maxPages int
}

var conversationsCmd = &cobra.Command{
	Use:     "conversations",
	Aliases: []string{"channels"},
	Short:   "List conversations visible to you",
	Long: `List channels, DMs and group DMs of a workspace.

--include and --exclude take glob patterns matched against the channel name
or ID; exclusion wins. The configured exclude list is always applied.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()
		client, err := a.client()
		if err != nil {
			return err
		}

		convs, err := client.ListConversations(cmd.Context(), slack.ListOptions{
			Types:           convFlags.types,
			ExcludeArchived: !convFlags.archived,
			MaxPages:        convFlags.maxPages,
		})
		if err != nil {
			return err
		}
		exclude := append(append([]string{}, a.cfg.Exclude...), convFlags.exclude...)
		convs = channels.FilterConversations(convs, convFlags.include, exclude)

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), convs)
		}
		out := cmd.OutOrStdout()
		for _, c := range convs {
			fmt.Fprintf(out, "%-12s %-16s %s\n", c.ID, dimColor.Sprint(c.Kind()), c.DisplayName())
		}
		dimColor.Fprintf(out, "%d conversation(s)\n", len(convs))
		return nil
	},
}

func init() {
	f := conversationsCmd.Flags()
	f.StringVar(&convFlags.types, "types", slack.TypesAll, "comma-separated conversation types")
	f.BoolVar(&convFlags.archived, "archived", false, "include archived channels")
	f.StringSliceVar(&convFlags.include, "include", nil, "only show conversations matching these globs")
	f.StringSliceVar(&convFlags.exclude, "exclude", nil, "hide conversations matching these globs")
	f.IntVar(&convFlags.maxPages, "max-pages", 0, "stop after this many pages (0 = all)")
	rootCmd.AddCommand(conversationsCmd)
}
