package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chrisedwards/slack-stealth/internal/slack"
)

var historyFlags struct {
	limit  int
	oldest string
	latest string
	day    string
	thread string
}

var historyCmd = &cobra.Command{
	Use:   "history <channel>",
	Short: "Show recent messages without marking them read",
	Args:  cobra.ExactArgs(1),
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
		ctx := cmd.Context()
		channel, err := resolveChannel(ctx, client, args[0])
		if err != nil {
			return err
		}

		var msgs []slack.Message
		if historyFlags.thread != "" {
			msgs, err = client.Replies(ctx, channel, historyFlags.thread, historyFlags.limit)
			// Replies are parent first; renderMessages expects newest first.
			for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
				msgs[i], msgs[j] = msgs[j], msgs[i]
			}
		} else {
			opts := slack.HistoryOptions{
				Oldest: historyFlags.oldest,
				Latest: historyFlags.latest,
				Limit:  historyFlags.limit,
			}
			if historyFlags.day != "" {
				start, end, derr := a.cfg.DayBounds(historyFlags.day)
				if derr != nil {
					return derr
				}
				opts.Oldest, opts.Latest = slack.FormatTS(start), slack.FormatTS(end)
			}
			msgs, err = client.History(ctx, channel, opts)
		}
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), msgs)
		}
		authors := make([]string, 0, len(msgs))
		for _, m := range msgs {
			authors = append(authors, m.User)
		}
		if err := client.PrefetchUsers(ctx, authors); err != nil {
			logger.Debug("user prefetch failed", zap.Error(err))
		}
		renderMessages(cmd.OutOrStdout(), client, a.cfg.Location(), msgs)
		return nil
	},
}

var searchFlags struct {
	filter slack.SearchFilter
	count  int
	page   int
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search messages",
	Long: `Search messages with Slack's search syntax. Flags add the usual
modifiers (in:, from:, after:, before:, has:, is:thread) to the query.`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := searchFlags.filter
		f.Query = strings.Join(args, " ")
		query := slack.BuildSearchQuery(f)
		if query == "" {
			return fmt.Errorf("a query or at least one filter flag is required")
		}

		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()
		client, err := a.client()
		if err != nil {
			return err
		}
		res, err := client.Search(cmd.Context(), slack.SearchOptions{
			Query: query,
			Count: searchFlags.count,
			Page:  searchFlags.page,
		})
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), res)
		}

		authors := make([]string, 0, len(res.Messages))
		for _, m := range res.Messages {
			authors = append(authors, m.User)
		}
		if err := client.PrefetchUsers(cmd.Context(), authors); err != nil {
			logger.Debug("user prefetch failed", zap.Error(err))
		}
		out := cmd.OutOrStdout()
		renderMessages(out, client, a.cfg.Location(), res.Messages)
		dimColor.Fprintf(out, "%d result(s), page %d of %d  query: %s\n", res.Total, res.Page, res.Pages, query)
		return nil
	},
}

var postFlags struct {
	thread    string
	broadcast bool
	user      bool
}

var postCmd = &cobra.Command{
	Use:   "post <channel|user> <text>",
	Short: "Post a message",
	Long: `Post a message to a channel, or with --user open a DM with a user ID
and post there. Posting does not mark the conversation read.`,
	Args: cobra.ExactArgs(2),
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
		ctx := cmd.Context()

		var channel string
		if postFlags.user {
			channel, err = client.OpenConversation(ctx, args[0])
		} else {
			channel, err = resolveChannel(ctx, client, args[0])
		}
		if err != nil {
			return err
		}
		msg, err := client.PostMessage(ctx, channel, args[1], slack.PostOptions{
			ThreadTS:  postFlags.thread,
			Broadcast: postFlags.broadcast,
		})
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), msg)
		}
		okColor.Fprintf(cmd.OutOrStdout(), "Posted to %s at %s\n", msg.Channel, msg.TS)
		return nil
	},
}

var reactRemove bool

var reactCmd = &cobra.Command{
	Use:   "react <channel> <ts> <emoji>",
	Short: "Add or remove an emoji reaction",
	Args:  cobra.ExactArgs(3),
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
		ctx := cmd.Context()
		channel, err := resolveChannel(ctx, client, args[0])
		if err != nil {
			return err
		}
		emoji := slack.NormalizeEmoji(args[2])
		if reactRemove {
			err = client.RemoveReaction(ctx, channel, args[1], emoji)
		} else {
			err = client.AddReaction(ctx, channel, args[1], emoji)
		}
		if err != nil {
			return err
		}
		verb := "Added"
		if reactRemove {
			verb = "Removed"
		}
		okColor.Fprintf(cmd.OutOrStdout(), "%s :%s:\n", verb, emoji)
		return nil
	},
}

var markReadCmd = &cobra.Command{
	Use:   "mark-read <channel> [ts]",
	Short: "Move a conversation's read marker",
	Long: `Mark a conversation read up to ts, or up to its newest message when ts
is omitted. This is the only command that changes read state.`,
	Args: cobra.RangeArgs(1, 2),
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
		ctx := cmd.Context()
		channel, err := resolveChannel(ctx, client, args[0])
		if err != nil {
			return err
		}

		ts := ""
		if len(args) == 2 {
			ts = args[1]
			err = client.Mark(ctx, channel, ts)
		} else {
			ts, err = client.MarkLatest(ctx, channel)
		}
		if err != nil {
			return err
		}
		if ts == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "Conversation is empty; nothing to mark")
			return nil
		}
		okColor.Fprintf(cmd.OutOrStdout(), "Marked %s read up to %s\n", channel, ts)
		return nil
	},
}

func init() {
	hf := historyCmd.Flags()
	hf.IntVarP(&historyFlags.limit, "limit", "n", 20, "number of messages")
	hf.StringVar(&historyFlags.oldest, "oldest", "", "only messages after this timestamp")
	hf.StringVar(&historyFlags.latest, "latest", "", "only messages before this timestamp")
	hf.StringVar(&historyFlags.day, "day", "", "only messages from this work day (YYYY-MM-DD, 03:00 to 03:00 local)")
	hf.StringVar(&historyFlags.thread, "thread", "", "show the thread started by this timestamp")

	sf := searchCmd.Flags()
	sf.StringVar(&searchFlags.filter.InChannel, "in", "", "restrict to a channel (ID, name or @user)")
	sf.StringVar(&searchFlags.filter.FromUser, "from", "", "restrict to a sender (user ID or handle)")
	sf.StringVar(&searchFlags.filter.After, "after", "", "messages after this date (YYYY-MM-DD)")
	sf.StringVar(&searchFlags.filter.Before, "before", "", "messages before this date (YYYY-MM-DD)")
	sf.BoolVar(&searchFlags.filter.HasLink, "has-link", false, "only messages with links")
	sf.BoolVar(&searchFlags.filter.HasReaction, "has-reaction", false, "only messages with reactions")
	sf.BoolVar(&searchFlags.filter.IsThread, "thread", false, "only thread messages")
	sf.IntVar(&searchFlags.count, "count", 20, "results per page (max 100)")
	sf.IntVar(&searchFlags.page, "page", 1, "result page")

	pf := postCmd.Flags()
	pf.StringVar(&postFlags.thread, "thread", "", "reply in the thread with this timestamp")
	pf.BoolVar(&postFlags.broadcast, "broadcast", false, "also send a thread reply to the channel")
	pf.BoolVar(&postFlags.user, "user", false, "treat the target as a user ID and post to the DM")

	reactCmd.Flags().BoolVar(&reactRemove, "remove", false, "remove the reaction instead")

	rootCmd.AddCommand(historyCmd, searchCmd, postCmd, reactCmd, markReadCmd)
}
