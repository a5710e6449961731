// Package unread reconstructs a workspace's unread state from an API that
// only reports it per conversation. Probing is bounded by a scan budget and
// runs in fixed-width batches so a large workspace costs a predictable
// number of calls.
package unread

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sourcegraph/conc/iter"
	"go.uber.org/zap"

	"github.com/chrisedwards/slack-stealth/internal/channels"
	"github.com/chrisedwards/slack-stealth/internal/slack"
)

// Reconciler computes unread summaries.
type Reconciler struct {
	opts   Options
	filter *channels.Filter
	loc    *time.Location
	log    *zap.Logger
	now    func() time.Time
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLocation sets the timezone used for message clock times.
func WithLocation(loc *time.Location) Option {
	return func(r *Reconciler) {
		if loc != nil {
			r.loc = loc
		}
	}
}

// WithLogger sets the reconciler's logger.
func WithLogger(log *zap.Logger) Option {
	return func(r *Reconciler) {
		if log != nil {
			r.log = log
		}
	}
}

// WithClock replaces time.Now for relative message ages.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		if now != nil {
			r.now = now
		}
	}
}

// NewReconciler creates a Reconciler. Non-positive bounds in opts fall back
// to DefaultOptions.
func NewReconciler(opts Options, ropts ...Option) *Reconciler {
	opts = opts.withDefaults()
	r := &Reconciler{
		opts:   opts,
		filter: channels.NewFilter(nil, opts.Exclude),
		loc:    time.Local,
		log:    zap.NewNop(),
		now:    time.Now,
	}
	for _, o := range ropts {
		o(r)
	}
	return r
}

// Options returns the effective bounds.
func (r *Reconciler) Options() Options {
	return r.opts
}

type phase int

const (
	phaseDMs phase = iota
	phaseChannels
)

// candidate is a probed conversation judged unread.
type candidate struct {
	conv  slack.Conversation
	count int
}

// retained is a candidate together with the history fetched for it.
type retained struct {
	candidate
	messages []slack.Message
}

// Reconcile computes the unread summary of one workspace. Failed probes,
// history fetches and the mentions search are absorbed; only a failed
// conversation listing fails the call.
func (r *Reconciler) Reconcile(ctx context.Context, name string, client *slack.Client) (Summary, error) {
	s := Summary{Workspace: name, MentionsOutcome: MentionsSkipped}
	f := formatter{client: client, loc: r.loc, now: r.now()}
	budget := r.opts.ScanBudget
	slots := r.opts.MaxConversations
	// Watermarks read during this call; mentions trust nothing older.
	seen := make(map[string]string)

	if r.opts.IncludeDMs {
		dms, err := client.ListConversations(ctx, slack.ListOptions{
			Types:    slack.TypesDMs,
			Limit:    r.opts.DMListLimit,
			MaxPages: r.opts.ListPages,
		})
		if err != nil {
			return s, fmt.Errorf("list direct messages: %w", err)
		}
		dms = truncate(dms, min(r.opts.MaxDMsToScan, budget))
		budget -= len(dms)

		kept := r.retain(ctx, client, r.probeAll(ctx, client, dms, phaseDMs, seen), slots)
		slots -= len(kept.all)

		ids := kept.authors
		for _, c := range kept.all {
			if c.conv.IsIM {
				ids = append(ids, c.conv.User)
			}
		}
		r.prefetch(ctx, client, ids)

		for _, c := range kept.withHistory {
			s.UnreadDMs = append(s.UnreadDMs, ConversationUnread{
				ChannelID:   c.conv.ID,
				Name:        conversationName(client, c.conv),
				Kind:        c.conv.Kind(),
				UnreadCount: c.count,
				Messages:    f.messages(c.messages, false),
			})
		}
	}

	if r.opts.IncludeChannels && slots > 0 && budget > 0 {
		chans, err := client.ListConversations(ctx, slack.ListOptions{
			Types:           slack.TypesChannels,
			ExcludeArchived: true,
			Limit:           r.opts.ChannelListLimit,
			MaxPages:        r.opts.ListPages,
		})
		if err != nil {
			return s, fmt.Errorf("list channels: %w", err)
		}
		chans = r.filter.Apply(chans)
		chans = truncate(chans, min(r.opts.MaxChannelsToScan, budget))

		kept := r.retain(ctx, client, r.probeAll(ctx, client, chans, phaseChannels, seen), slots)
		r.prefetch(ctx, client, kept.authors)

		for _, c := range kept.withHistory {
			s.UnreadChannels = append(s.UnreadChannels, ConversationUnread{
				ChannelID:   c.conv.ID,
				Name:        conversationName(client, c.conv),
				Kind:        c.conv.Kind(),
				UnreadCount: c.count,
				Messages:    f.messages(c.messages, true),
			})
		}
	}

	if r.opts.IncludeMentions {
		mentions, err := r.mentions(ctx, client, f, seen)
		switch {
		case err != nil:
			r.log.Warn("mentions search failed", zap.String("workspace", name), zap.Error(err))
			s.MentionsOutcome = MentionsFailed
			s.MentionsError = err.Error()
		case len(mentions) == 0:
			s.MentionsOutcome = MentionsEmpty
		default:
			s.MentionsOutcome = MentionsOK
			s.Mentions = mentions
		}
	}

	s.finish()
	return s, nil
}

func truncate(convs []slack.Conversation, n int) []slack.Conversation {
	if n <= 0 {
		return nil
	}
	if len(convs) > n {
		return convs[:n]
	}
	return convs
}

// probeResult is the outcome of one probe. info is zero when the detail
// fetch failed.
type probeResult struct {
	info slack.Conversation
	cand *candidate
}

// probeAll probes convs in sequential batches of BatchSize. Probes within a
// batch run concurrently. Results keep listing order; failed and read
// conversations are dropped. Every watermark fetched is recorded in seen.
func (r *Reconciler) probeAll(ctx context.Context, client *slack.Client, convs []slack.Conversation, ph phase, seen map[string]string) []candidate {
	mapper := iter.Mapper[slack.Conversation, probeResult]{MaxGoroutines: r.opts.BatchSize}
	var out []candidate
	for start := 0; start < len(convs); start += r.opts.BatchSize {
		batch := convs[start:min(start+r.opts.BatchSize, len(convs))]
		results := mapper.Map(batch, func(conv *slack.Conversation) probeResult {
			return r.probe(ctx, client, *conv, ph)
		})
		for _, res := range results {
			if res.info.ID != "" {
				seen[res.info.ID] = res.info.LastRead
			}
			if res.cand != nil {
				out = append(out, *res.cand)
			}
		}
	}
	return out
}

// probe fetches a conversation's detail record and judges it.
func (r *Reconciler) probe(ctx context.Context, client *slack.Client, conv slack.Conversation, ph phase) probeResult {
	info, err := client.ConversationInfo(ctx, conv.ID)
	if err != nil {
		r.log.Debug("probe failed", zap.String("channel", conv.ID), zap.Error(err))
		return probeResult{}
	}
	return probeResult{info: info, cand: r.verdict(ctx, client, info, ph)}
}

// verdict decides whether a conversation is unread. Server counts win;
// otherwise group DMs (and any channel) fall back to comparing the newest
// message with the watermark.
func (r *Reconciler) verdict(ctx context.Context, client *slack.Client, info slack.Conversation, ph phase) *candidate {
	if n := info.UnreadCountDisplay; n != nil && *n > 0 {
		return &candidate{conv: info, count: *n}
	}
	if n := info.UnreadCount; n != nil && *n > 0 {
		return &candidate{conv: info, count: *n}
	}
	if ph == phaseDMs && !info.IsMPIM {
		return nil
	}

	wm, ok := info.Watermark()
	if !ok {
		return nil
	}
	newest, found, err := client.Newest(ctx, info.ID)
	if err != nil {
		r.log.Debug("newest message fetch failed", zap.String("channel", info.ID), zap.Error(err))
		return nil
	}
	if !found || !slack.After(newest.TS, wm) {
		return nil
	}
	window, err := client.History(ctx, info.ID, slack.HistoryOptions{Oldest: wm, Limit: r.opts.UnreadWindow})
	if err != nil {
		r.log.Debug("unread window fetch failed", zap.String("channel", info.ID), zap.Error(err))
		return nil
	}
	if len(window) == 0 {
		return nil
	}
	return &candidate{conv: info, count: len(window)}
}

type retention struct {
	all         []candidate
	withHistory []retained
	authors     []string
}

// retain ranks candidates by count, keeps the first slots of them and
// fetches their recent history. Conversations whose history is empty or
// cannot be read still consume a slot but are left out of the result.
func (r *Reconciler) retain(ctx context.Context, client *slack.Client, cands []candidate, slots int) retention {
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].count > cands[j].count })
	if slots < 0 {
		slots = 0
	}
	var out retention
	out.all = cands[:min(len(cands), slots)]
	for _, c := range out.all {
		msgs, err := client.History(ctx, c.conv.ID, slack.HistoryOptions{
			Oldest: c.conv.LastRead,
			Limit:  r.opts.MaxMessagesPerConversation,
		})
		if err != nil {
			r.log.Debug("history fetch failed", zap.String("channel", c.conv.ID), zap.Error(err))
			continue
		}
		if len(msgs) == 0 {
			continue
		}
		for _, m := range msgs {
			out.authors = append(out.authors, m.User)
		}
		out.withHistory = append(out.withHistory, retained{candidate: c, messages: msgs})
	}
	return out
}

func (r *Reconciler) prefetch(ctx context.Context, client *slack.Client, ids []string) {
	if err := client.PrefetchUsers(ctx, ids); err != nil {
		r.log.Debug("user prefetch failed", zap.Int("users", len(ids)), zap.Error(err))
	}
}

// mentions finds recent messages that mention the current user and are
// newer than their conversation's watermark.
func (r *Reconciler) mentions(ctx context.Context, client *slack.Client, f formatter, seen map[string]string) ([]Mention, error) {
	auth, err := client.AuthTest(ctx)
	if err != nil {
		return nil, fmt.Errorf("auth.test: %w", err)
	}
	if auth.UserID == "" {
		return nil, fmt.Errorf("auth.test returned no user id")
	}
	res, err := client.Search(ctx, slack.SearchOptions{
		Query:   slack.MentionQuery(auth.UserID),
		Sort:    "timestamp",
		SortDir: "desc",
		Count:   r.opts.MentionSearchCount,
	})
	if err != nil {
		return nil, fmt.Errorf("search mentions: %w", err)
	}

	authors := make([]string, 0, len(res.Messages))
	for _, m := range res.Messages {
		authors = append(authors, m.User)
	}
	r.prefetch(ctx, client, authors)

	watermark := func(channel string) string {
		if ts, ok := seen[channel]; ok {
			return ts
		}
		info, err := client.ConversationInfo(ctx, channel)
		if err != nil {
			r.log.Debug("mention watermark lookup failed", zap.String("channel", channel), zap.Error(err))
		}
		seen[channel] = info.LastRead
		return info.LastRead
	}

	var out []Mention
	for _, m := range res.Messages {
		if m.Channel == "" {
			continue
		}
		wm, ok := slack.ValidWatermark(watermark(m.Channel))
		if !ok || !slack.After(m.TS, wm) {
			continue
		}
		out = append(out, f.mention(m))
		if len(out) >= r.opts.MaxMentions {
			break
		}
	}
	return out, nil
}
