// Package slack provides a rate-limited, caching client for the Slack web
// API authenticated with browser session credentials (xoxc token + d cookie).
package slack

import (
	"encoding/json"
	"errors"
	"regexp"
	"sort"
	"strings"
)

// ErrTokenNotFound is returned when a payload has no xoxc token in any of
// the shapes Slack is known to use.
var ErrTokenNotFound = errors.New("no xoxc token found")

var tokenPattern = regexp.MustCompile(`xoxc-[a-zA-Z0-9_-]+`)

// LocalToken is a token recovered from the web client's local storage.
type LocalToken struct {
	Token    string
	TeamID   string
	TeamName string
}

// localConfig is the localConfig_v2 document the Slack web client keeps in
// local storage.
type localConfig struct {
	LastActiveTeamID string `json:"lastActiveTeamId"`
	Teams            map[string]struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Token string `json:"token"`
	} `json:"teams"`
}

// ParseLocalConfig extracts the session token from a local-storage value.
// Two shapes are recognised: the localConfig_v2 JSON document (the last
// active team wins, otherwise the first team by ID) and a bare string
// containing an xoxc token. Anything else yields ErrTokenNotFound.
func ParseLocalConfig(raw []byte) (LocalToken, error) {
	text := strings.TrimSpace(string(raw))
	if strings.HasPrefix(text, "{") {
		var cfg localConfig
		if err := json.Unmarshal([]byte(text), &cfg); err == nil {
			if tok, ok := cfg.pick(); ok {
				return tok, nil
			}
			return LocalToken{}, ErrTokenNotFound
		}
	}
	if m := tokenPattern.FindString(text); m != "" {
		return LocalToken{Token: m}, nil
	}
	return LocalToken{}, ErrTokenNotFound
}

func (cfg localConfig) pick() (LocalToken, bool) {
	if team, ok := cfg.Teams[cfg.LastActiveTeamID]; ok && strings.HasPrefix(team.Token, "xoxc-") {
		return LocalToken{Token: team.Token, TeamID: cfg.LastActiveTeamID, TeamName: team.Name}, true
	}
	ids := make([]string, 0, len(cfg.Teams))
	for id := range cfg.Teams {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		team := cfg.Teams[id]
		if strings.HasPrefix(team.Token, "xoxc-") {
			return LocalToken{Token: team.Token, TeamID: id, TeamName: team.Name}, true
		}
	}
	return LocalToken{}, false
}
