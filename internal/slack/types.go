package slack

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ZeroWatermark is the last_read value Slack stores after "Mark as unread".
// It is not a real timestamp and never bounds a history query.
const ZeroWatermark = "0000000000.000000"

// Credentials holds authentication data for Slack API access.
type Credentials struct {
	Token     string // xoxc-... token
	Cookie    string // value of the 'd' session cookie (xoxd-...)
	TeamID    string // Workspace ID (T...), optional
	Workspace string // Workspace name, optional
}

// Equal reports whether both credential pairs carry the same token and cookie.
func (c Credentials) Equal(other Credentials) bool {
	return c.Token == other.Token && c.Cookie == other.Cookie
}

// User is a resolved Slack user profile.
type User struct {
	ID          string
	Name        string
	RealName    string
	DisplayName string
	IsBot       bool
}

// Display returns the best human-readable name: display name, then real name,
// then the account name.
func (u *User) Display() string {
	if u == nil {
		return ""
	}
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if u.RealName != "" {
		return u.RealName
	}
	return u.Name
}

// ConversationKind is a coarse classification of a conversation.
type ConversationKind string

const (
	KindChannel        ConversationKind = "channel"
	KindPrivateChannel ConversationKind = "private_channel"
	KindDM             ConversationKind = "dm"
	KindGroupDM        ConversationKind = "group_dm"
)

// Conversation represents a Slack conversation (channel, DM, or group DM).
// UnreadCount and UnreadCountDisplay are nil when the API omitted them.
type Conversation struct {
	ID                 string
	Name               string
	IsChannel          bool // Public channel
	IsGroup            bool // Private channel (legacy group)
	IsIM               bool // Direct message
	IsMPIM             bool // Multi-party IM
	IsPrivate          bool
	IsArchived         bool
	IsMember           bool
	User               string // Other participant for IMs
	LastRead           string
	UnreadCount        *int
	UnreadCountDisplay *int
}

// Kind classifies the conversation.
func (c Conversation) Kind() ConversationKind {
	switch {
	case c.IsIM:
		return KindDM
	case c.IsMPIM:
		return KindGroupDM
	case c.IsPrivate || c.IsGroup:
		return KindPrivateChannel
	default:
		return KindChannel
	}
}

// DisplayName returns the conversation name, a DM placeholder, or the ID.
func (c Conversation) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	if c.IsIM && c.User != "" {
		return "DM:" + c.User
	}
	return c.ID
}

// Watermark returns the usable last_read token. The zero sentinel and an
// empty value both report false.
func (c Conversation) Watermark() (string, bool) {
	return ValidWatermark(c.LastRead)
}

// ValidWatermark filters out empty and sentinel last_read values.
func ValidWatermark(ts string) (string, bool) {
	if ts == "" || IsZeroWatermark(ts) {
		return "", false
	}
	return ts, true
}

// IsZeroWatermark reports whether ts is the all-zero "marked unread" sentinel.
func IsZeroWatermark(ts string) bool {
	return strings.HasPrefix(ts, "0000000000")
}

// After reports whether timestamp a is strictly newer than b. Slack
// timestamps are fixed-width decimals, so string comparison orders them.
func After(a, b string) bool {
	return a > b
}

// Reaction is an emoji reaction summary on a message.
type Reaction struct {
	Name  string
	Count int
	Users []string
}

// Attachment is the subset of legacy attachment fields worth surfacing.
type Attachment struct {
	Title    string
	Text     string
	Fallback string
}

// Message is a single Slack message.
type Message struct {
	TS          string
	Text        string
	User        string
	ThreadTS    string
	ReplyCount  *int
	Channel     string // set for search results
	Reactions   []Reaction
	Attachments []Attachment
}

// IsThreadReply reports whether the message is a reply inside a thread.
func (m Message) IsThreadReply() bool {
	return m.ThreadTS != "" && m.ThreadTS != m.TS
}

// IsThreadParent reports whether the message starts a thread with replies.
func (m Message) IsThreadParent() bool {
	return m.ThreadTS == m.TS && m.ReplyCount != nil
}

// Time converts the message timestamp to a time.Time. Returns the zero time
// for malformed timestamps.
func (m Message) Time() time.Time {
	return ParseTS(m.TS)
}

// ParseTS converts a Slack "seconds.micros" timestamp to time.Time.
func ParseTS(ts string) time.Time {
	secs, frac, _ := strings.Cut(ts, ".")
	s, err := strconv.ParseInt(secs, 10, 64)
	if err != nil {
		return time.Time{}
	}
	var usec int64
	if frac != "" {
		if len(frac) > 6 {
			frac = frac[:6]
		}
		frac += strings.Repeat("0", 6-len(frac))
		usec, _ = strconv.ParseInt(frac, 10, 64)
	}
	return time.Unix(s, usec*int64(time.Microsecond))
}

// FormatTS renders t as a Slack timestamp with microsecond precision.
func FormatTS(t time.Time) string {
	return fmt.Sprintf("%d.%06d", t.Unix(), t.Nanosecond()/1000)
}

// SearchResult is one page of message search results.
type SearchResult struct {
	Messages []Message
	Total    int
	Page     int
	Pages    int
}

// AuthInfo is the identity behind a set of credentials.
type AuthInfo struct {
	URL    string
	Team   string
	User   string
	TeamID string
	UserID string
}
