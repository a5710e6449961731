package unread

import (
	"testing"
	"time"

	"github.com/chrisedwards/slack-stealth/internal/slack"
)

func TestMPIMName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"three members", "mpdm-alice--bob--carol-1", "alice, bob, carol"},
		{"two members", "mpdm-alice--bob-1", "alice, bob"},
		{"overflow", "mpdm-alice--bob--carol--dave--erin-1", "alice, bob, carol +2"},
		{"no suffix", "mpdm-alice--bob", "alice, bob"},
		{"single", "mpdm-solo-2", "solo"},
		{"not a group dm", "general", ""},
		{"empty body", "mpdm-", ""},
		{"only separators", "mpdm-----3", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MPIMName(tt.in); got != tt.want {
				t.Errorf("MPIMName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func cachedClient(users ...*slack.User) *slack.Client {
	c := slack.NewClient(slack.Credentials{Token: "xoxc-test"})
	for _, u := range users {
		c.Users().Set(u)
	}
	return c
}

func TestUserLabel(t *testing.T) {
	client := cachedClient(&slack.User{ID: "U1", Name: "alice", DisplayName: "Alice"})

	tests := []struct {
		id   string
		want string
	}{
		{"", "Unknown"},
		{"U1", "Alice"},
		{"U0123456789", "U0123456..."},
		{"U42", "U42..."},
	}
	for _, tt := range tests {
		if got := userLabel(client, tt.id); got != tt.want {
			t.Errorf("userLabel(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestConversationName(t *testing.T) {
	client := cachedClient(&slack.User{ID: "U1", DisplayName: "Alice"})

	tests := []struct {
		name string
		conv slack.Conversation
		want string
	}{
		{"cached IM", slack.Conversation{ID: "D1", IsIM: true, User: "U1"}, "@Alice"},
		{"uncached IM", slack.Conversation{ID: "D2", IsIM: true, User: "U0123456789"}, "@U0123456..."},
		{"group DM", slack.Conversation{ID: "G1", IsMPIM: true, Name: "mpdm-a--b-1"}, "a, b"},
		{"odd group DM", slack.Conversation{ID: "G2", IsMPIM: true, Name: "team-chat"}, "team-chat"},
		{"channel", slack.Conversation{ID: "C1", IsChannel: true, Name: "eng"}, "eng"},
		{"nameless", slack.Conversation{ID: "C2"}, "C2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := conversationName(client, tt.conv); got != tt.want {
				t.Errorf("conversationName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatter_Messages(t *testing.T) {
	client := cachedClient(&slack.User{ID: "U1", DisplayName: "Alice"})
	f := formatter{client: client, loc: time.FixedZone("UTC+1", 3600), now: testNow}

	// History arrives newest first.
	msgs := []slack.Message{
		{TS: ts(120), User: "U2", Text: "reply", ThreadTS: ts(100)},
		{TS: ts(60), User: "U1", Text: "hello"},
	}

	got := f.messages(msgs, true)
	if len(got) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(got))
	}
	if got[0].Text != "hello" || got[1].Text != "reply" {
		t.Errorf("messages not chronological: %+v", got)
	}
	if got[0].User != "Alice" || got[1].User != "U2..." {
		t.Errorf("users = %q, %q", got[0].User, got[1].User)
	}
	if got[0].Time != "23:14" {
		t.Errorf("Time = %q, want 23:14 in the configured zone", got[0].Time)
	}
	if got[0].Age != "5 minutes ago" {
		t.Errorf("Age = %q", got[0].Age)
	}
	if got[0].ThreadTS != "" || got[1].ThreadTS != ts(100) {
		t.Errorf("thread markers = %q, %q", got[0].ThreadTS, got[1].ThreadTS)
	}

	flat := f.messages(msgs, false)
	if flat[1].ThreadTS != "" {
		t.Error("thread markers should be dropped when threads are not requested")
	}
}

func TestFormatter_Mention(t *testing.T) {
	f := formatter{client: cachedClient(), loc: time.UTC, now: testNow}
	m := f.mention(slack.Message{TS: ts(0), User: "", Text: "hey", Channel: "C1"})
	if m.Time != "2023-11-14 22:13" {
		t.Errorf("Time = %q", m.Time)
	}
	if m.User != "Unknown" || m.ChannelID != "C1" || m.TS != ts(0) {
		t.Errorf("unexpected mention %+v", m)
	}
}
