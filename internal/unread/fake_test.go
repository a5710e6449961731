package unread

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chrisedwards/slack-stealth/internal/slack"
	"github.com/chrisedwards/slack-stealth/internal/slacktest"
)

// ts builds a fixed-width Slack timestamp that sorts by n.
func ts(n int) string {
	return fmt.Sprintf("17000%05d.000100", n)
}

func msg(ts, user, text string) map[string]any {
	return map[string]any{"ts": ts, "user": user, "text": text}
}

type fakeConv struct {
	info     map[string]any
	messages []map[string]any // newest first
	broken   bool             // conversations.info drops the connection
}

// fakeSlack is a small in-memory workspace served over slacktest.
type fakeSlack struct {
	*slacktest.Server

	mu        sync.Mutex
	dms       []string
	chans     []string
	convs     map[string]*fakeConv
	users     map[string]string
	self      string
	matches   []map[string]any
	searchErr string
	listErr   string

	// conversations.info concurrency tracking.
	infoDelay time.Duration
	inflight  int
	peak      int
	infoLog   []string // "start:<id>" and "end:<id>" in arrival order
}

func newFakeSlack(t *testing.T) *fakeSlack {
	t.Helper()
	f := &fakeSlack{
		Server: slacktest.NewServer(),
		convs:  make(map[string]*fakeConv),
		users:  make(map[string]string),
		self:   "USELF",
	}
	t.Cleanup(f.Close)

	f.Handle("conversations.list", f.list)
	f.HandleRaw("conversations.info", f.info)
	f.Handle("conversations.history", f.history)
	f.Handle("users.info", f.usersInfo)
	f.Handle("auth.test", func(url.Values) any {
		return slacktest.OK(map[string]any{"user_id": f.self, "user": "me", "team": "Acme", "team_id": "T1"})
	})
	f.Handle("search.messages", f.search)
	return f
}

// addDM registers a DM-kind conversation (IM or MPIM). info must carry "id".
func (f *fakeSlack) addDM(info map[string]any, msgs ...map[string]any) *fakeConv {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &fakeConv{info: info, messages: msgs}
	id := info["id"].(string)
	f.convs[id] = c
	f.dms = append(f.dms, id)
	return c
}

// addChannel registers a channel-kind conversation. info must carry "id".
func (f *fakeSlack) addChannel(info map[string]any, msgs ...map[string]any) *fakeConv {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &fakeConv{info: info, messages: msgs}
	id := info["id"].(string)
	f.convs[id] = c
	f.chans = append(f.chans, id)
	return c
}

// addHidden registers a conversation that never appears in a listing, such
// as a channel only reachable through search results.
func (f *fakeSlack) addHidden(info map[string]any, msgs ...map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.convs[info["id"].(string)] = &fakeConv{info: info, messages: msgs}
}

func (f *fakeSlack) conv(id string) *fakeConv {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.convs[id]
}

func (f *fakeSlack) list(p url.Values) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != "" {
		return slacktest.Fail(f.listErr)
	}
	ids := f.chans
	if strings.Contains(p.Get("types"), "im") {
		ids = f.dms
	}
	out := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		// Listings never carry read state.
		entry := make(map[string]any)
		for k, v := range f.convs[id].info {
			switch k {
			case "last_read", "unread_count", "unread_count_display":
			default:
				entry[k] = v
			}
		}
		out = append(out, entry)
	}
	return slacktest.OK(map[string]any{"channels": out})
}

func (f *fakeSlack) info(w http.ResponseWriter, r *http.Request) {
	id := r.Form.Get("channel")
	f.mu.Lock()
	f.inflight++
	f.peak = max(f.peak, f.inflight)
	f.infoLog = append(f.infoLog, "start:"+id)
	delay := f.infoDelay
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.inflight--
		f.infoLog = append(f.infoLog, "end:"+id)
		f.mu.Unlock()
	}()
	time.Sleep(delay)

	c := f.conv(id)
	if c == nil {
		slacktest.WriteJSON(w, slacktest.Fail("channel_not_found"))
		return
	}
	if c.broken {
		conn, _, err := w.(http.Hijacker).Hijack()
		if err == nil {
			_ = conn.Close()
		}
		return
	}
	slacktest.WriteJSON(w, slacktest.OK(map[string]any{"channel": c.info}))
}

// setInfo changes a field of a conversation's detail record.
func (f *fakeSlack) setInfo(id, key string, v any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.convs[id].info[key] = v
}

func (f *fakeSlack) history(p url.Values) any {
	c := f.conv(p.Get("channel"))
	if c == nil {
		return slacktest.Fail("channel_not_found")
	}
	oldest := p.Get("oldest")
	limit, _ := strconv.Atoi(p.Get("limit"))
	out := []map[string]any{}
	for _, m := range c.messages {
		if oldest != "" && m["ts"].(string) <= oldest {
			continue
		}
		out = append(out, m)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return slacktest.OK(map[string]any{"messages": out})
}

func (f *fakeSlack) user(id string) map[string]any {
	f.mu.Lock()
	name, ok := f.users[id]
	f.mu.Unlock()
	if !ok {
		name = "user-" + id
	}
	return map[string]any{
		"id":      id,
		"name":    strings.ToLower(name),
		"profile": map[string]any{"display_name": name},
	}
}

func (f *fakeSlack) usersInfo(p url.Values) any {
	if ids := p.Get("users"); ids != "" {
		users := []map[string]any{}
		for _, id := range strings.Split(ids, ",") {
			users = append(users, f.user(id))
		}
		return slacktest.OK(map[string]any{"users": users})
	}
	return slacktest.OK(map[string]any{"user": f.user(p.Get("user"))})
}

func (f *fakeSlack) search(url.Values) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.searchErr != "" {
		return slacktest.Fail(f.searchErr)
	}
	return slacktest.OK(map[string]any{
		"messages": map[string]any{
			"matches": f.matches,
			"paging":  map[string]any{"count": len(f.matches), "total": len(f.matches), "page": 1, "pages": 1},
		},
	})
}

func (f *fakeSlack) client() *slack.Client {
	return slack.NewClient(
		slack.Credentials{Token: "xoxc-test", Cookie: "xoxd-test"},
		slack.WithBaseURL(f.URL),
		slack.WithRateInterval(0),
		slack.WithRetryWait(func(context.Context, time.Duration) error { return nil }),
	)
}

var testNow = time.Date(2023, 11, 14, 22, 20, 0, 0, time.UTC)

func newTestReconciler(opts Options) *Reconciler {
	return NewReconciler(opts, WithLocation(time.UTC), WithClock(func() time.Time { return testNow }))
}

func noMentions() Options {
	opts := DefaultOptions()
	opts.IncludeMentions = false
	return opts
}
