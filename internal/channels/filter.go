// Package channels provides filtering logic for Slack conversation selection
// based on glob patterns.
package channels

import (
	"path/filepath"
	"strings"

	"github.com/chrisedwards/slack-stealth/internal/slack"
)

// Filter applies include/exclude patterns to a list of conversations.
type Filter struct {
	include []string
	exclude []string
}

// NewFilter creates a Filter with the given include and exclude patterns.
func NewFilter(include, exclude []string) *Filter {
	return &Filter{
		include: include,
		exclude: exclude,
	}
}

// Apply filters the given conversations based on include/exclude patterns.
// Returns conversations that match include patterns and don't match exclude
// patterns. A nil Filter keeps everything.
func (f *Filter) Apply(convs []slack.Conversation) []slack.Conversation {
	if f == nil {
		return convs
	}
	return FilterConversations(convs, f.include, f.exclude)
}

// FilterConversations returns the conversations whose name or ID matches an
// include pattern (all, when include is empty) and matches no exclude
// pattern. Exclusion wins over inclusion; input order is preserved.
func FilterConversations(convs []slack.Conversation, include, exclude []string) []slack.Conversation {
	out := make([]slack.Conversation, 0, len(convs))
	for _, conv := range convs {
		if allowed(conv, include, exclude) {
			out = append(out, conv)
		}
	}
	return out
}

func allowed(conv slack.Conversation, include, exclude []string) bool {
	if MatchAny(exclude, conv.Name) || MatchAny(exclude, conv.ID) {
		return false
	}
	if len(include) == 0 {
		return true
	}
	return MatchAny(include, conv.Name) || MatchAny(include, conv.ID)
}

// MatchAny checks if a value matches any pattern in a list.
// Returns true if any pattern matches, false for empty pattern list.
// Short-circuits on first match.
func MatchAny(patterns []string, value string) bool {
	for _, pattern := range patterns {
		if MatchPattern(pattern, value) {
			return true
		}
	}
	return false
}

// MatchPattern matches a value against a glob pattern.
// Supports glob patterns (* matches any sequence, ? matches single character).
// Matching is case-insensitive. Returns false for invalid patterns.
func MatchPattern(pattern, value string) bool {
	matched, err := filepath.Match(pattern, value)
	if err != nil {
		return false
	}
	if matched {
		return true
	}
	lowerPattern := strings.ToLower(pattern)
	lowerValue := strings.ToLower(value)
	matched, _ = filepath.Match(lowerPattern, lowerValue)
	return matched
}
