package slack

import (
	"context"
	"net/url"
	"strconv"
	"strings"
)

// PostOptions controls PostMessage.
type PostOptions struct {
	ThreadTS  string // reply in this thread
	Broadcast bool   // also show a thread reply in the channel
}

// PostMessage sends text to a channel or thread. It does not mark the
// channel as read.
func (c *Client) PostMessage(ctx context.Context, channel, text string, opts PostOptions) (Message, error) {
	params := url.Values{
		"channel": {channel},
		"text":    {text},
	}
	if opts.ThreadTS != "" {
		params.Set("thread_ts", opts.ThreadTS)
		if opts.Broadcast {
			params.Set("reply_broadcast", "true")
		}
	}
	var resp PostMessageResponse
	if err := c.post(ctx, "chat.postMessage", params, &resp); err != nil {
		return Message{}, err
	}
	msg := resp.Message.toMessage()
	if msg.TS == "" {
		msg.TS = resp.TS
	}
	msg.Channel = resp.Channel
	return msg, nil
}

// AddReaction adds an emoji reaction. Surrounding colons are stripped.
func (c *Client) AddReaction(ctx context.Context, channel, ts, emoji string) error {
	return c.post(ctx, "reactions.add", reactionParams(channel, ts, emoji), nil)
}

// RemoveReaction removes an emoji reaction. Surrounding colons are stripped.
func (c *Client) RemoveReaction(ctx context.Context, channel, ts, emoji string) error {
	return c.post(ctx, "reactions.remove", reactionParams(channel, ts, emoji), nil)
}

// NormalizeEmoji strips surrounding colons from an emoji name.
func NormalizeEmoji(emoji string) string {
	return strings.Trim(emoji, ":")
}

func reactionParams(channel, ts, emoji string) url.Values {
	return url.Values{
		"channel":   {channel},
		"timestamp": {ts},
		"name":      {NormalizeEmoji(emoji)},
	}
}

// SearchOptions controls Search.
type SearchOptions struct {
	Query   string
	Sort    string // "timestamp" (default) or "score"
	SortDir string // "desc" (default) or "asc"
	Count   int    // results per page, 1..100, default 20
	Page    int    // 1-based
}

// MaxSearchCount is the largest page size search.messages accepts.
const MaxSearchCount = 100

// Search runs a message search.
func (c *Client) Search(ctx context.Context, opts SearchOptions) (SearchResult, error) {
	sort := opts.Sort
	if sort == "" {
		sort = "timestamp"
	}
	dir := opts.SortDir
	if dir == "" {
		dir = "desc"
	}
	count := opts.Count
	if count <= 0 {
		count = 20
	}
	if count > MaxSearchCount {
		count = MaxSearchCount
	}
	page := opts.Page
	if page <= 0 {
		page = 1
	}
	params := url.Values{
		"query":    {opts.Query},
		"sort":     {sort},
		"sort_dir": {dir},
		"count":    {strconv.Itoa(count)},
		"page":     {strconv.Itoa(page)},
	}
	var resp SearchResponse
	if err := c.get(ctx, "search.messages", params, &resp); err != nil {
		return SearchResult{}, err
	}

	result := SearchResult{
		Total: resp.Messages.Paging.Total,
		Page:  resp.Messages.Paging.Page,
		Pages: resp.Messages.Paging.Pages,
	}
	for _, m := range resp.Messages.Matches {
		msg := m.apiMessage.toMessage()
		msg.Channel = m.Channel.ID
		result.Messages = append(result.Messages, msg)
	}
	if result.Total == 0 {
		result.Total = len(result.Messages)
	}
	if result.Page == 0 {
		result.Page = 1
	}
	if result.Pages == 0 {
		result.Pages = 1
	}
	return result, nil
}

// SearchFilter holds search modifiers appended to a free-text query.
type SearchFilter struct {
	Query       string
	InChannel   string // channel ID, @user or channel name
	FromUser    string // user ID, @handle or handle
	After       string // YYYY-MM-DD
	Before      string // YYYY-MM-DD
	HasLink     bool
	HasReaction bool
	IsThread    bool
}

// BuildSearchQuery renders f into Slack search syntax.
func BuildSearchQuery(f SearchFilter) string {
	parts := []string{}
	if q := strings.TrimSpace(f.Query); q != "" {
		parts = append(parts, q)
	}
	if ch := f.InChannel; ch != "" {
		switch {
		case strings.HasPrefix(ch, "C"), strings.HasPrefix(ch, "G"), strings.HasPrefix(ch, "@"):
			parts = append(parts, "in:"+ch)
		default:
			parts = append(parts, "in:#"+strings.TrimPrefix(ch, "#"))
		}
	}
	if u := f.FromUser; u != "" {
		switch {
		case strings.HasPrefix(u, "U"), strings.HasPrefix(u, "W"):
			parts = append(parts, "from:<@"+u+">")
		case strings.HasPrefix(u, "@"):
			parts = append(parts, "from:"+u)
		default:
			parts = append(parts, "from:@"+u)
		}
	}
	if f.After != "" {
		parts = append(parts, "after:"+f.After)
	}
	if f.Before != "" {
		parts = append(parts, "before:"+f.Before)
	}
	if f.HasLink {
		parts = append(parts, "has:link")
	}
	if f.HasReaction {
		parts = append(parts, "has:reaction")
	}
	if f.IsThread {
		parts = append(parts, "is:thread")
	}
	return strings.Join(parts, " ")
}

// MentionQuery is the search query matching mentions of userID.
func MentionQuery(userID string) string {
	return "<@" + userID + ">"
}
