package slack

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Conversation type filters for ListOptions.Types.
const (
	TypesAll      = "public_channel,private_channel,mpim,im"
	TypesChannels = "public_channel,private_channel"
	TypesDMs      = "im,mpim"
)

// ListOptions controls ListConversations.
type ListOptions struct {
	Types           string // comma-separated; defaults to TypesAll
	ExcludeArchived bool
	Limit           int // page size; defaults to 200
	MaxPages        int // <= 0 walks every page
}

// ListConversations returns every conversation visible to the user, in the
// order Slack returns them. Each page is cached before the next is
// requested; on error the conversations gathered so far are returned along
// with the error.
func (c *Client) ListConversations(ctx context.Context, opts ListOptions) ([]Conversation, error) {
	types := opts.Types
	if types == "" {
		types = TypesAll
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 200
	}

	var out []Conversation
	_, err := walkPages(ctx, opts.MaxPages, func(ctx context.Context, cursor string) (string, error) {
		params := url.Values{
			"types":            {types},
			"exclude_archived": {strconv.FormatBool(opts.ExcludeArchived)},
			"limit":            {strconv.Itoa(limit)},
		}
		if cursor != "" {
			params.Set("cursor", cursor)
		}
		var resp ConversationsListResponse
		if err := c.get(ctx, "conversations.list", params, &resp); err != nil {
			return "", err
		}
		for _, ch := range resp.Channels {
			conv := ch.toConversation()
			c.conversations.Set(conv)
			out = append(out, conv)
		}
		return resp.ResponseMetadata.NextCursor, nil
	})
	return out, err
}

// ConversationInfo fetches a conversation's detail record, which unlike the
// listing carries last_read and unread counts.
func (c *Client) ConversationInfo(ctx context.Context, channel string) (Conversation, error) {
	params := url.Values{
		"channel":             {channel},
		"include_num_members": {"true"},
	}
	var resp ConversationInfoResponse
	if err := c.get(ctx, "conversations.info", params, &resp); err != nil {
		return Conversation{}, err
	}
	conv := resp.Channel.toConversation()
	c.conversations.Set(conv)
	return conv, nil
}

// HistoryOptions bounds a history query. Oldest and Latest are exclusive
// unless Inclusive is set.
type HistoryOptions struct {
	Oldest    string
	Latest    string
	Limit     int // defaults to 100
	Inclusive bool
}

// History returns messages of a conversation, newest first. It does not
// change read state. A zero-sentinel Oldest is dropped rather than sent.
func (c *Client) History(ctx context.Context, channel string, opts HistoryOptions) ([]Message, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	params := url.Values{
		"channel":   {channel},
		"limit":     {strconv.Itoa(limit)},
		"inclusive": {strconv.FormatBool(opts.Inclusive)},
	}
	if oldest, ok := ValidWatermark(opts.Oldest); ok {
		params.Set("oldest", oldest)
	}
	if opts.Latest != "" {
		params.Set("latest", opts.Latest)
	}
	var resp HistoryResponse
	if err := c.get(ctx, "conversations.history", params, &resp); err != nil {
		return nil, err
	}
	return toMessages(resp.Messages), nil
}

// Newest returns the most recent message of a conversation, or false when
// the conversation is empty.
func (c *Client) Newest(ctx context.Context, channel string) (Message, bool, error) {
	msgs, err := c.History(ctx, channel, HistoryOptions{Limit: 1})
	if err != nil || len(msgs) == 0 {
		return Message{}, false, err
	}
	return msgs[0], true, nil
}

// Replies returns a thread, parent first. It does not change read state.
func (c *Client) Replies(ctx context.Context, channel, threadTS string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 100
	}
	params := url.Values{
		"channel": {channel},
		"ts":      {threadTS},
		"limit":   {strconv.Itoa(limit)},
	}
	var resp HistoryResponse
	if err := c.get(ctx, "conversations.replies", params, &resp); err != nil {
		return nil, err
	}
	return toMessages(resp.Messages), nil
}

// OpenConversation opens (or finds) a DM with one user or a group DM with
// several, returning its channel ID.
func (c *Client) OpenConversation(ctx context.Context, users ...string) (string, error) {
	if len(users) == 0 {
		return "", fmt.Errorf("open conversation: no users given")
	}
	params := url.Values{
		"users":     {strings.Join(users, ",")},
		"return_im": {"true"},
	}
	var resp OpenConversationResponse
	if err := c.post(ctx, "conversations.open", params, &resp); err != nil {
		return "", err
	}
	return resp.Channel.ID, nil
}

// Mark moves the read watermark of a conversation to ts. This is the only
// call in the client that changes read state.
func (c *Client) Mark(ctx context.Context, channel, ts string) error {
	params := url.Values{
		"channel": {channel},
		"ts":      {ts},
	}
	if err := c.post(ctx, "conversations.mark", params, nil); err != nil {
		return err
	}
	c.conversations.SetLastRead(channel, ts)
	return nil
}

// MarkLatest marks a conversation read up to its newest message. Returns
// the timestamp marked, or "" when the conversation has no messages. No
// call is made when the known watermark is already at the newest message.
func (c *Client) MarkLatest(ctx context.Context, channel string) (string, error) {
	newest, ok, err := c.Newest(ctx, channel)
	if err != nil {
		return "", fmt.Errorf("get latest message: %w", err)
	}
	if !ok {
		return "", nil
	}
	if wm, known := c.conversations.LastRead(channel); known && !After(newest.TS, wm) {
		return newest.TS, nil
	}
	if err := c.Mark(ctx, channel, newest.TS); err != nil {
		return "", err
	}
	return newest.TS, nil
}

func toMessages(in []apiMessage) []Message {
	out := make([]Message, 0, len(in))
	for _, m := range in {
		out = append(out, m.toMessage())
	}
	return out
}
