package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/chrisedwards/slack-stealth/internal/slack"
	"github.com/chrisedwards/slack-stealth/internal/unread"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	nameColor   = color.New(color.FgYellow)
	dimColor    = color.New(color.Faint)
	okColor     = color.New(color.FgGreen)
	errColor    = color.New(color.FgRed, color.Bold)
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printError(w io.Writer, err error) {
	errColor.Fprint(w, "error: ")
	fmt.Fprint(w, err)
	if kind := slack.KindOf(err); kind != "" {
		dimColor.Fprintf(w, " (%s)", kind)
	}
	fmt.Fprintln(w)
}

// formatPatterns formats a list of patterns for display.
func formatPatterns(patterns []string) string {
	if len(patterns) == 0 {
		return "(none)"
	}
	return "[" + strings.Join(patterns, ", ") + "]"
}

func renderResult(w io.Writer, res unread.Result) {
	if res.NeedsAuth {
		fmt.Fprintln(w, res.Synopsis())
		dimColor.Fprintln(w, "Add one with: slack-stealth workspaces add <name> --token xoxc-... --cookie xoxd-...")
		return
	}
	summaries := res.Summaries()
	if res.Aggregate != nil {
		headerColor.Fprintln(w, res.Synopsis())
		fmt.Fprintln(w)
	}
	for i, s := range summaries {
		if i > 0 {
			fmt.Fprintln(w)
		}
		renderSummary(w, s)
	}
}

func renderSummary(w io.Writer, s unread.Summary) {
	headerColor.Fprintf(w, "[%s] ", s.Workspace)
	if s.Error != "" {
		errColor.Fprintln(w, s.Summary)
		return
	}
	fmt.Fprintln(w, s.Summary)

	for _, c := range s.UnreadDMs {
		renderConversation(w, c)
	}
	for _, c := range s.UnreadChannels {
		renderConversation(w, c)
	}
	if len(s.Mentions) > 0 {
		nameColor.Fprintln(w, "  mentions")
		for _, m := range s.Mentions {
			fmt.Fprintf(w, "    %s %s: %s\n", dimColor.Sprint(m.Time), m.User, oneLine(m.Text))
		}
	}
	if s.MentionsOutcome == unread.MentionsFailed {
		dimColor.Fprintf(w, "  mentions unavailable: %s\n", s.MentionsError)
	}
}

func renderConversation(w io.Writer, c unread.ConversationUnread) {
	name := c.Name
	if c.Kind == slack.KindChannel || c.Kind == slack.KindPrivateChannel {
		name = "#" + name
	}
	nameColor.Fprintf(w, "  %s", name)
	dimColor.Fprintf(w, " (%d unread)\n", c.UnreadCount)
	for _, m := range c.Messages {
		prefix := ""
		if m.ThreadTS != "" {
			prefix = "↳ "
		}
		fmt.Fprintf(w, "    %s %s%s: %s\n", dimColor.Sprint(m.Time), prefix, m.User, oneLine(m.Text))
	}
}

// renderMessages prints raw API messages oldest first. msgs must be newest
// first, as history returns them.
func renderMessages(w io.Writer, client *slack.Client, loc *time.Location, msgs []slack.Message) {
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		t := m.Time()
		name, ok := client.CachedUserName(m.User)
		if !ok || name == "" {
			name = m.User
		}
		fmt.Fprintf(w, "%s %s %s: %s\n",
			dimColor.Sprint(t.In(loc).Format("2006-01-02 15:04")),
			dimColor.Sprintf("(%s)", humanize.Time(t)),
			nameColor.Sprint(name),
			oneLine(m.Text))
		if m.IsThreadParent() && *m.ReplyCount > 0 {
			dimColor.Fprintf(w, "    %d repl%s, thread %s\n", *m.ReplyCount, plural(*m.ReplyCount, "y", "ies"), m.TS)
		}
	}
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
