package main

import (
	"github.com/spf13/cobra"

	"github.com/chrisedwards/slack-stealth/internal/unread"
)

var unreadFlags struct {
	noDMs, noChannels, noMentions bool
	maxConversations, maxMessages int
	budget                        int
}

var unreadCmd = &cobra.Command{
	Use:   "unread",
	Short: "Show unread DMs, channels and mentions",
	Long: `Show unread direct messages, channels with new activity and recent
mentions. Without --workspace every configured workspace is checked
concurrently; a workspace that fails is reported without hiding the rest.

Nothing is marked as read.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		opts := unread.DefaultOptions()
		opts.IncludeDMs = !unreadFlags.noDMs
		opts.IncludeChannels = !unreadFlags.noChannels
		opts.IncludeMentions = !unreadFlags.noMentions
		opts.MaxConversations = unreadFlags.maxConversations
		opts.MaxMessagesPerConversation = unreadFlags.maxMessages
		opts.ScanBudget = unreadFlags.budget
		opts.Exclude = a.cfg.Exclude

		recon := unread.NewReconciler(opts,
			unread.WithLocation(a.cfg.Location()),
			unread.WithLogger(logger))
		res := recon.Aggregate(cmd.Context(), a.mgr, wsName)

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), res)
		}
		renderResult(cmd.OutOrStdout(), res)
		return nil
	},
}

func init() {
	def := unread.DefaultOptions()
	f := unreadCmd.Flags()
	f.BoolVar(&unreadFlags.noDMs, "no-dms", false, "skip direct messages")
	f.BoolVar(&unreadFlags.noChannels, "no-channels", false, "skip channels")
	f.BoolVar(&unreadFlags.noMentions, "no-mentions", false, "skip the mentions search")
	f.IntVar(&unreadFlags.maxConversations, "max-conversations", def.MaxConversations, "maximum conversations reported per workspace")
	f.IntVar(&unreadFlags.maxMessages, "max-messages", def.MaxMessagesPerConversation, "messages shown per conversation")
	f.IntVar(&unreadFlags.budget, "scan-budget", def.ScanBudget, "maximum conversations probed per workspace")
	rootCmd.AddCommand(unreadCmd)
}
