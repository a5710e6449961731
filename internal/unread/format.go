package unread

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/chrisedwards/slack-stealth/internal/slack"
)

const (
	clockLayout   = "15:04"
	mentionLayout = "2006-01-02 15:04"
	maxMPIMNames  = 3
)

var mpimSuffix = regexp.MustCompile(`-\d+$`)

// userLabel names a user from the cache only. Unknown users show a
// shortened ID; a missing author shows "Unknown".
func userLabel(client *slack.Client, id string) string {
	if id == "" {
		return "Unknown"
	}
	if name, ok := client.CachedUserName(id); ok && name != "" {
		return name
	}
	if len(id) > 8 {
		return id[:8] + "..."
	}
	return id + "..."
}

// MPIMName derives a readable label from a group DM name such as
// "mpdm-alice--bob--carol-1". At most three names are listed; the rest are
// summarised as "+N". Returns "" when name is not in that shape.
func MPIMName(name string) string {
	rest, ok := strings.CutPrefix(name, "mpdm-")
	if !ok || rest == "" {
		return ""
	}
	rest = mpimSuffix.ReplaceAllString(rest, "")
	var parts []string
	for _, p := range strings.Split(rest, "--") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	label := strings.Join(parts[:min(len(parts), maxMPIMNames)], ", ")
	if len(parts) > maxMPIMNames {
		label += fmt.Sprintf(" +%d", len(parts)-maxMPIMNames)
	}
	return label
}

// conversationName picks the display label for a conversation in results.
func conversationName(client *slack.Client, conv slack.Conversation) string {
	switch {
	case conv.IsIM && conv.User != "":
		return "@" + userLabel(client, conv.User)
	case conv.IsMPIM:
		if label := MPIMName(conv.Name); label != "" {
			return label
		}
	}
	if conv.Name != "" {
		return conv.Name
	}
	return conv.ID
}

type formatter struct {
	client *slack.Client
	loc    *time.Location
	now    time.Time
}

func (f formatter) age(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.RelTime(t, f.now, "ago", "from now")
}

// messages renders history (newest first) in chronological order. Thread
// reply markers are kept only when withThreads is set.
func (f formatter) messages(msgs []slack.Message, withThreads bool) []FormattedMessage {
	out := make([]FormattedMessage, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		t := m.Time()
		fm := FormattedMessage{
			User: userLabel(f.client, m.User),
			Text: m.Text,
			Time: t.In(f.loc).Format(clockLayout),
			Age:  f.age(t),
			TS:   m.TS,
		}
		if withThreads && m.IsThreadReply() {
			fm.ThreadTS = m.ThreadTS
		}
		out = append(out, fm)
	}
	return out
}

func (f formatter) mention(m slack.Message) Mention {
	t := m.Time()
	return Mention{
		User:      userLabel(f.client, m.User),
		Text:      m.Text,
		Time:      t.In(f.loc).Format(mentionLayout),
		Age:       f.age(t),
		TS:        m.TS,
		ChannelID: m.Channel,
	}
}
