package main

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/chrisedwards/slack-stealth/internal/config"
	"github.com/chrisedwards/slack-stealth/internal/slack"
	"github.com/chrisedwards/slack-stealth/internal/workspace"
)

// app bundles what every command needs: the loaded configuration and the
// workspace registry built from it.
type app struct {
	cfg *config.Config
	mgr *workspace.Manager
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, mgr: workspace.New(cfg, workspace.WithLogger(logger))}, nil
}

func (a *app) Close() {
	_ = a.mgr.CloseAll()
}

// client returns the client selected by --workspace.
func (a *app) client() (*slack.Client, error) {
	return a.mgr.Client(wsName)
}

var conversationID = regexp.MustCompile(`^[CDG][A-Z0-9]{6,}$`)

// resolveChannel accepts a conversation ID, "#name" or "name" and returns
// the conversation ID.
func resolveChannel(ctx context.Context, client *slack.Client, arg string) (string, error) {
	if conversationID.MatchString(arg) {
		return arg, nil
	}
	name := strings.TrimPrefix(arg, "#")
	convs, err := client.ListConversations(ctx, slack.ListOptions{ExcludeArchived: true})
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", arg, err)
	}
	for _, c := range convs {
		if strings.EqualFold(c.Name, name) {
			return c.ID, nil
		}
	}
	return "", fmt.Errorf("conversation %q not found", arg)
}
