package slack

import (
	"sync"
)

// UserCache holds resolved user profiles for the lifetime of a client.
// Thread-safe for concurrent access; entries never expire.
type UserCache struct {
	mu    sync.RWMutex
	users map[string]*User
}

// NewUserCache creates an empty UserCache.
func NewUserCache() *UserCache {
	return &UserCache{
		users: make(map[string]*User),
	}
}

// Get returns a cached user by ID, or nil if not found.
func (c *UserCache) Get(id string) *User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.users[id]
}

// Set adds or updates a user in the cache.
func (c *UserCache) Set(user *User) {
	if user == nil || user.ID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users[user.ID] = user
}

// Missing returns the IDs from ids that are not cached, deduplicated and in
// first-seen order. Empty IDs are skipped.
func (c *UserCache) Missing(ids []string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seen := make(map[string]struct{}, len(ids))
	var missing []string
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := c.users[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

// Len returns the number of cached users.
func (c *UserCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.users)
}

// ConversationCache holds the last known metadata and read watermark per
// conversation. Entries are replaced whenever a conversation is re-fetched.
type ConversationCache struct {
	mu            sync.RWMutex
	conversations map[string]Conversation
	lastRead      map[string]string
}

// NewConversationCache creates an empty ConversationCache.
func NewConversationCache() *ConversationCache {
	return &ConversationCache{
		conversations: make(map[string]Conversation),
		lastRead:      make(map[string]string),
	}
}

// Get returns the cached conversation.
func (c *ConversationCache) Get(id string) (Conversation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	conv, ok := c.conversations[id]
	return conv, ok
}

// Set stores conv and, when present, its watermark.
func (c *ConversationCache) Set(conv Conversation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conversations[conv.ID] = conv
	if conv.LastRead != "" {
		c.lastRead[conv.ID] = conv.LastRead
	}
}

// LastRead returns the cached raw watermark for a conversation.
func (c *ConversationCache) LastRead(id string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ts, ok := c.lastRead[id]
	return ts, ok
}

// SetLastRead records a new watermark.
func (c *ConversationCache) SetLastRead(id, ts string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastRead[id] = ts
	if conv, ok := c.conversations[id]; ok {
		conv.LastRead = ts
		c.conversations[id] = conv
	}
}
