package slack

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
)

func TestListConversations_FollowsCursorAndCaches(t *testing.T) {
	var pages atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/conversations.list" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("types") != TypesDMs {
			t.Errorf("types = %q, want %q", q.Get("types"), TypesDMs)
		}
		pages.Add(1)
		switch q.Get("cursor") {
		case "":
			writeJSON(w, map[string]any{
				"ok":                true,
				"channels":          []map[string]any{{"id": "D1", "is_im": true, "user": "U1"}},
				"response_metadata": map[string]any{"next_cursor": "page2"},
			})
		case "page2":
			writeJSON(w, map[string]any{
				"ok":       true,
				"channels": []map[string]any{{"id": "G1", "is_mpim": true, "name": "mpdm-a--b-1"}},
			})
		default:
			t.Errorf("unexpected cursor %q", q.Get("cursor"))
		}
	})

	convs, err := client.ListConversations(context.Background(), ListOptions{Types: TypesDMs})
	if err != nil {
		t.Fatalf("ListConversations() error = %v", err)
	}
	if len(convs) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(convs))
	}
	if pages.Load() != 2 {
		t.Errorf("expected 2 pages, got %d", pages.Load())
	}
	if _, ok := client.Conversations().Get("G1"); !ok {
		t.Error("expected listed conversation to be cached")
	}
}

func TestListConversations_PartialResultsOnError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("cursor") == "" {
			writeJSON(w, map[string]any{
				"ok":                true,
				"channels":          []map[string]any{{"id": "C1", "name": "general", "is_channel": true}},
				"response_metadata": map[string]any{"next_cursor": "more"},
			})
			return
		}
		writeJSON(w, map[string]any{"ok": false, "error": "internal_error"})
	})

	convs, err := client.ListConversations(context.Background(), ListOptions{})
	if err == nil {
		t.Fatal("expected error from second page")
	}
	if len(convs) != 1 || convs[0].ID != "C1" {
		t.Errorf("expected first page kept, got %+v", convs)
	}
}

func TestListConversations_MaxPages(t *testing.T) {
	var pages atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		pages.Add(1)
		writeJSON(w, map[string]any{
			"ok":                true,
			"channels":          []map[string]any{{"id": "C" + r.URL.Query().Get("cursor")}},
			"response_metadata": map[string]any{"next_cursor": "x"},
		})
	})

	convs, err := client.ListConversations(context.Background(), ListOptions{MaxPages: 2})
	if err != nil {
		t.Fatal(err)
	}
	if pages.Load() != 2 || len(convs) != 2 {
		t.Errorf("expected 2 pages and 2 conversations, got %d pages %d conversations", pages.Load(), len(convs))
	}
}

func TestConversationInfo_CachesWatermark(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("channel"); got != "C42" {
			t.Errorf("channel = %q", got)
		}
		writeJSON(w, map[string]any{
			"ok": true,
			"channel": map[string]any{
				"id": "C42", "name": "eng", "is_channel": true,
				"last_read": "1700000000.000100", "unread_count_display": 2,
			},
		})
	})

	conv, err := client.ConversationInfo(context.Background(), "C42")
	if err != nil {
		t.Fatal(err)
	}
	if conv.UnreadCountDisplay == nil || *conv.UnreadCountDisplay != 2 {
		t.Errorf("unexpected count %v", conv.UnreadCountDisplay)
	}
	if ts, ok := client.Conversations().LastRead("C42"); !ok || ts != "1700000000.000100" {
		t.Errorf("cached watermark = (%q, %v)", ts, ok)
	}
}

func TestHistory_NeverSendsZeroWatermark(t *testing.T) {
	tests := []struct {
		name       string
		oldest     string
		wantOldest string
	}{
		{"real watermark is sent", "1700000000.000100", "1700000000.000100"},
		{"sentinel is dropped", ZeroWatermark, ""},
		{"empty is dropped", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotOldest string
			var hasOldest bool
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				q := r.URL.Query()
				gotOldest = q.Get("oldest")
				_, hasOldest = q["oldest"]
				writeJSON(w, map[string]any{
					"ok":       true,
					"messages": []map[string]any{{"ts": "1700000001.000000", "text": "hi", "user": "U1"}},
				})
			})

			msgs, err := client.History(context.Background(), "C1", HistoryOptions{Oldest: tt.oldest, Limit: 10})
			if err != nil {
				t.Fatal(err)
			}
			if len(msgs) != 1 {
				t.Fatalf("expected 1 message, got %d", len(msgs))
			}
			if gotOldest != tt.wantOldest {
				t.Errorf("oldest = %q, want %q", gotOldest, tt.wantOldest)
			}
			if tt.wantOldest == "" && hasOldest {
				t.Error("oldest parameter should be absent")
			}
		})
	}
}

func TestNewest_EmptyConversation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") != "1" {
			t.Errorf("limit = %q, want 1", r.URL.Query().Get("limit"))
		}
		writeJSON(w, map[string]any{"ok": true, "messages": []any{}})
	})

	_, ok, err := client.Newest(context.Background(), "C1")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("expected no newest message")
	}
}

func TestMarkLatest(t *testing.T) {
	var marked string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/conversations.history":
			writeJSON(w, map[string]any{"ok": true, "messages": []map[string]any{{"ts": "1700000009.000000"}}})
		case "/conversations.mark":
			if r.Method != http.MethodPost {
				t.Errorf("mark method = %s, want POST", r.Method)
			}
			_ = r.ParseForm()
			marked = r.PostForm.Get("ts")
			writeJSON(w, map[string]any{"ok": true})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	ts, err := client.MarkLatest(context.Background(), "C1")
	if err != nil {
		t.Fatal(err)
	}
	if ts != "1700000009.000000" || marked != ts {
		t.Errorf("marked %q, returned %q", marked, ts)
	}
	if got, _ := client.Conversations().LastRead("C1"); got != ts {
		t.Errorf("cached watermark = %q, want %q", got, ts)
	}
}

func TestMarkLatest_AlreadyRead(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/conversations.history":
			writeJSON(w, map[string]any{"ok": true, "messages": []map[string]any{{"ts": "1700000009.000000"}}})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})
	client.Conversations().SetLastRead("C1", "1700000009.000000")

	ts, err := client.MarkLatest(context.Background(), "C1")
	if err != nil {
		t.Fatal(err)
	}
	if ts != "1700000009.000000" {
		t.Errorf("returned %q", ts)
	}
}

func TestOpenConversation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if got := r.PostForm.Get("users"); got != "U1,U2" {
			t.Errorf("users = %q", got)
		}
		writeJSON(w, map[string]any{"ok": true, "channel": map[string]any{"id": "G77"}})
	})

	id, err := client.OpenConversation(context.Background(), "U1", "U2")
	if err != nil {
		t.Fatal(err)
	}
	if id != "G77" {
		t.Errorf("id = %q, want G77", id)
	}
	if _, err := client.OpenConversation(context.Background()); err == nil {
		t.Error("expected error with no users")
	}
}
