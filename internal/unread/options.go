package unread

// Options bounds one reconciliation. The zero value is not useful; start
// from DefaultOptions.
type Options struct {
	IncludeDMs      bool
	IncludeChannels bool
	IncludeMentions bool

	// MaxMessagesPerConversation is how many recent messages are returned
	// for each unread conversation.
	MaxMessagesPerConversation int
	// MaxConversations caps the conversations kept in the result. DMs are
	// kept first; channels get what is left.
	MaxConversations int
	// ScanBudget caps conversations.info probes across both phases.
	ScanBudget int
	// MaxDMsToScan and MaxChannelsToScan truncate each listing before
	// probing. Listings arrive most recent first.
	MaxDMsToScan      int
	MaxChannelsToScan int
	// BatchSize is the number of probes in flight at once. Batches run
	// one after another.
	BatchSize int

	ListPages        int
	DMListLimit      int
	ChannelListLimit int

	// UnreadWindow caps the messages counted after a watermark when the
	// server gave no unread count. Counts above it are reported as the cap.
	UnreadWindow int

	MentionSearchCount int
	MaxMentions        int

	// Exclude holds channel name globs that are never probed.
	Exclude []string

	// Workers bounds how many workspaces Aggregate reconciles at once.
	Workers int
}

// DefaultOptions returns the standard reconciliation bounds.
func DefaultOptions() Options {
	return Options{
		IncludeDMs:                 true,
		IncludeChannels:            true,
		IncludeMentions:            true,
		MaxMessagesPerConversation: 5,
		MaxConversations:           20,
		ScanBudget:                 80,
		MaxDMsToScan:               30,
		MaxChannelsToScan:          50,
		BatchSize:                  15,
		ListPages:                  2,
		DMListLimit:                100,
		ChannelListLimit:           200,
		UnreadWindow:               10,
		MentionSearchCount:         20,
		MaxMentions:                10,
		Workers:                    4,
	}
}

// withDefaults fills non-positive bounds from DefaultOptions.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	fill := func(v *int, def int) {
		if *v <= 0 {
			*v = def
		}
	}
	fill(&o.MaxMessagesPerConversation, d.MaxMessagesPerConversation)
	fill(&o.MaxConversations, d.MaxConversations)
	fill(&o.ScanBudget, d.ScanBudget)
	fill(&o.MaxDMsToScan, d.MaxDMsToScan)
	fill(&o.MaxChannelsToScan, d.MaxChannelsToScan)
	fill(&o.BatchSize, d.BatchSize)
	fill(&o.ListPages, d.ListPages)
	fill(&o.DMListLimit, d.DMListLimit)
	fill(&o.ChannelListLimit, d.ChannelListLimit)
	fill(&o.UnreadWindow, d.UnreadWindow)
	fill(&o.MentionSearchCount, d.MentionSearchCount)
	fill(&o.MaxMentions, d.MaxMentions)
	fill(&o.Workers, d.Workers)
	return o
}
