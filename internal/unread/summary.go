package unread

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chrisedwards/slack-stealth/internal/slack"
)

// MentionsOutcome records how the mentions sub-step ended.
type MentionsOutcome string

const (
	MentionsOK      MentionsOutcome = "ok"
	MentionsEmpty   MentionsOutcome = "empty"
	MentionsFailed  MentionsOutcome = "failed"
	MentionsSkipped MentionsOutcome = "skipped"
)

// FormattedMessage is a message ready for display.
type FormattedMessage struct {
	User     string `json:"user"`
	Text     string `json:"text"`
	Time     string `json:"time"`
	Age      string `json:"age"`
	TS       string `json:"ts"`
	ThreadTS string `json:"thread_ts,omitempty"`
}

// ConversationUnread is one conversation with unread activity.
type ConversationUnread struct {
	ChannelID   string                 `json:"channel_id"`
	Name        string                 `json:"name"`
	Kind        slack.ConversationKind `json:"kind"`
	UnreadCount int                    `json:"unread_count"`
	Messages    []FormattedMessage     `json:"messages"`
}

// Mention is an unread message that mentions the current user.
type Mention struct {
	User      string `json:"user"`
	Text      string `json:"text"`
	Time      string `json:"time"`
	Age       string `json:"age"`
	TS        string `json:"ts"`
	ChannelID string `json:"channel_id"`
}

// Totals are the headline counts of a summary.
type Totals struct {
	UnreadDMMessages   int `json:"unread_dm_messages"`
	ChannelsWithUnread int `json:"channels_with_unread"`
	Mentions           int `json:"mentions"`
}

func (t Totals) add(o Totals) Totals {
	return Totals{
		UnreadDMMessages:   t.UnreadDMMessages + o.UnreadDMMessages,
		ChannelsWithUnread: t.ChannelsWithUnread + o.ChannelsWithUnread,
		Mentions:           t.Mentions + o.Mentions,
	}
}

// Summary is the reconciled unread state of one workspace.
type Summary struct {
	Workspace       string               `json:"workspace"`
	Summary         string               `json:"summary"`
	UnreadDMs       []ConversationUnread `json:"unread_dms,omitempty"`
	UnreadChannels  []ConversationUnread `json:"unread_channels,omitempty"`
	Mentions        []Mention            `json:"mentions,omitempty"`
	MentionsOutcome MentionsOutcome      `json:"mentions_outcome,omitempty"`
	MentionsError   string               `json:"mentions_error,omitempty"`
	Totals          Totals               `json:"totals"`
	Error           string               `json:"error,omitempty"`
	ErrorKind       slack.ErrorKind      `json:"error_kind,omitempty"`
}

// HasUnread reports whether any DM or channel is unread. Mentions alone do
// not count.
func (s Summary) HasUnread() bool {
	return s.Totals.UnreadDMMessages > 0 || s.Totals.ChannelsWithUnread > 0
}

// finish computes totals and the synopsis line.
func (s *Summary) finish() {
	s.Totals = Totals{ChannelsWithUnread: len(s.UnreadChannels), Mentions: len(s.Mentions)}
	for _, dm := range s.UnreadDMs {
		s.Totals.UnreadDMMessages += dm.UnreadCount
	}

	var parts []string
	if s.Totals.UnreadDMMessages > 0 {
		parts = append(parts, fmt.Sprintf("%d unread message(s) in %d DM(s)", s.Totals.UnreadDMMessages, len(s.UnreadDMs)))
	}
	if s.Totals.ChannelsWithUnread > 0 {
		parts = append(parts, fmt.Sprintf("%d channel(s) with new messages", s.Totals.ChannelsWithUnread))
	}
	if s.Totals.Mentions > 0 {
		parts = append(parts, fmt.Sprintf("%d recent mention(s)", s.Totals.Mentions))
	}
	if len(parts) == 0 {
		s.Summary = "No unread messages"
		return
	}
	s.Summary = strings.Join(parts, "; ")
}

// failedSummary is the entry reported for a workspace that could not be
// reconciled at all.
func failedSummary(name string, err error) Summary {
	return Summary{
		Workspace: name,
		Summary:   "Error: " + err.Error(),
		Error:     err.Error(),
		ErrorKind: slack.KindOf(err),
	}
}

// Aggregate combines the summaries of several workspaces.
type Aggregate struct {
	Summary              string    `json:"summary"`
	Workspaces           []Summary `json:"workspaces"`
	Totals               Totals    `json:"totals"`
	WorkspacesWithUnread int       `json:"workspaces_with_unread"`
}

func combine(summaries []Summary) *Aggregate {
	agg := &Aggregate{Workspaces: summaries}
	for _, s := range summaries {
		agg.Totals = agg.Totals.add(s.Totals)
		if s.HasUnread() {
			agg.WorkspacesWithUnread++
		}
	}
	total := agg.Totals.UnreadDMMessages + agg.Totals.ChannelsWithUnread
	if total > 0 {
		agg.Summary = fmt.Sprintf("%d unread across %d workspace(s)", total, agg.WorkspacesWithUnread)
	} else {
		agg.Summary = "No unread messages across all workspaces"
	}
	return agg
}

// Result is the answer to an unread query: one workspace's summary, a
// combination of several, or a request to authenticate first.
type Result struct {
	NeedsAuth bool
	Single    *Summary
	Aggregate *Aggregate
}

const noWorkspacesMessage = "No workspaces configured"

// Synopsis returns the one-line description of the result.
func (r Result) Synopsis() string {
	switch {
	case r.Single != nil:
		return r.Single.Summary
	case r.Aggregate != nil:
		return r.Aggregate.Summary
	}
	return noWorkspacesMessage
}

// Totals returns the headline counts of the result.
func (r Result) Totals() Totals {
	switch {
	case r.Single != nil:
		return r.Single.Totals
	case r.Aggregate != nil:
		return r.Aggregate.Totals
	}
	return Totals{}
}

// Summaries returns every per-workspace summary in the result.
func (r Result) Summaries() []Summary {
	switch {
	case r.Single != nil:
		return []Summary{*r.Single}
	case r.Aggregate != nil:
		return r.Aggregate.Workspaces
	}
	return nil
}

// MarshalJSON renders a single summary as itself, an aggregate as the
// combined document, and the unauthenticated case as a stub with
// needs_auth set.
func (r Result) MarshalJSON() ([]byte, error) {
	switch {
	case r.Single != nil:
		return json.Marshal(r.Single)
	case r.Aggregate != nil:
		return json.Marshal(r.Aggregate)
	}
	return json.Marshal(struct {
		Summary   string `json:"summary"`
		NeedsAuth bool   `json:"needs_auth"`
		Totals    Totals `json:"totals"`
	}{noWorkspacesMessage, true, Totals{}})
}
