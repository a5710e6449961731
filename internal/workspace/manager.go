// Package workspace owns one Slack client per configured workspace and keeps
// that set in step with configuration reloads.
package workspace

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chrisedwards/slack-stealth/internal/config"
	"github.com/chrisedwards/slack-stealth/internal/slack"
)

// ClientFactory builds the client for one workspace.
type ClientFactory func(name string, creds slack.Credentials) *slack.Client

// Option configures a Manager.
type Option func(*Manager)

// WithClientFactory replaces the default client constructor.
func WithClientFactory(f ClientFactory) Option {
	return func(m *Manager) {
		if f != nil {
			m.factory = f
		}
	}
}

// WithLogger sets the manager's logger.
func WithLogger(log *zap.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

type entry struct {
	creds  slack.Credentials
	client *slack.Client
}

// Manager is the registry of live workspace clients.
type Manager struct {
	mu          sync.RWMutex
	entries     map[string]*entry
	defaultName string
	factory     ClientFactory
	log         *zap.Logger
}

// Diff describes what a Reload changed. Names are sorted.
type Diff struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
	Updated []string `json:"updated"`
}

// Empty reports whether the reload changed nothing.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Updated) == 0
}

// New creates a Manager with one client per workspace in cfg.
func New(cfg *config.Config, opts ...Option) *Manager {
	m := &Manager{
		entries: make(map[string]*entry),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.factory == nil {
		m.factory = defaultFactory(cfg, m.log)
	}
	m.Reload(cfg)
	return m
}

func defaultFactory(cfg *config.Config, log *zap.Logger) ClientFactory {
	interval := slack.DefaultRateInterval
	if cfg != nil {
		interval = cfg.RateInterval()
	}
	return func(name string, creds slack.Credentials) *slack.Client {
		return slack.NewClient(creds,
			slack.WithRateInterval(interval),
			slack.WithLogger(log.With(zap.String("workspace", name))),
		)
	}
}

func credentialsFor(name string, ws config.Workspace) slack.Credentials {
	return slack.Credentials{Token: ws.Token, Cookie: ws.Cookie, Workspace: name}
}

// Client returns the named workspace's client, or the default client when
// name is empty.
func (m *Manager) Client(name string) (*slack.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		if m.defaultName == "" {
			return nil, &ConfigError{Available: m.namesLocked(), Reason: ErrNoDefault}
		}
		name = m.defaultName
	}
	e, ok := m.entries[name]
	if !ok {
		return nil, &ConfigError{Name: name, Available: m.namesLocked(), Reason: ErrNotFound}
	}
	return e.client, nil
}

// Names returns the configured workspace names, sorted.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.namesLocked()
}

func (m *Manager) namesLocked() []string {
	names := make([]string, 0, len(m.entries))
	for name := range m.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Default returns the default workspace name, or "" when none is set.
func (m *Manager) Default() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultName
}

// Reload brings the registry in line with cfg. Workspaces missing from cfg
// are closed and removed, new ones are created, and those whose credentials
// changed are closed and rebuilt. Untouched workspaces keep their client.
func (m *Manager) Reload(cfg *config.Config) Diff {
	var (
		diff     Diff
		toClose  []*slack.Client
		wanted   = map[string]config.Workspace{}
		newDeflt string
	)
	if cfg != nil {
		for name, ws := range cfg.Workspaces {
			wanted[strings.ToLower(name)] = ws
		}
		newDeflt = strings.ToLower(cfg.DefaultWorkspace)
	}

	m.mu.Lock()
	for name, e := range m.entries {
		if _, ok := wanted[name]; !ok {
			toClose = append(toClose, e.client)
			delete(m.entries, name)
			diff.Removed = append(diff.Removed, name)
		}
	}
	for name, ws := range wanted {
		creds := credentialsFor(name, ws)
		e, ok := m.entries[name]
		switch {
		case !ok:
			m.entries[name] = &entry{creds: creds, client: m.factory(name, creds)}
			diff.Added = append(diff.Added, name)
		case !e.creds.Equal(creds):
			toClose = append(toClose, e.client)
			m.entries[name] = &entry{creds: creds, client: m.factory(name, creds)}
			diff.Updated = append(diff.Updated, name)
		}
	}
	if _, ok := m.entries[newDeflt]; !ok {
		newDeflt = ""
	}
	m.defaultName = newDeflt
	m.mu.Unlock()

	sort.Strings(diff.Added)
	sort.Strings(diff.Removed)
	sort.Strings(diff.Updated)

	if err := closeClients(toClose); err != nil {
		m.log.Warn("closing replaced clients", zap.Error(err))
	}
	if !diff.Empty() {
		m.log.Info("workspaces reloaded",
			zap.Strings("added", diff.Added),
			zap.Strings("removed", diff.Removed),
			zap.Strings("updated", diff.Updated),
		)
	}
	return diff
}

// CloseAll closes every client. Safe to call more than once.
func (m *Manager) CloseAll() error {
	m.mu.RLock()
	clients := make([]*slack.Client, 0, len(m.entries))
	for _, e := range m.entries {
		clients = append(clients, e.client)
	}
	m.mu.RUnlock()
	return closeClients(clients)
}

func closeClients(clients []*slack.Client) error {
	var err error
	for _, c := range clients {
		err = multierr.Append(err, c.Close())
	}
	return err
}

// ConnectionStatus is the outcome of an auth.test against one workspace.
type ConnectionStatus struct {
	Workspace string          `json:"workspace"`
	OK        bool            `json:"ok"`
	Team      string          `json:"team,omitempty"`
	User      string          `json:"user,omitempty"`
	UserID    string          `json:"user_id,omitempty"`
	Error     string          `json:"error,omitempty"`
	ErrorKind slack.ErrorKind `json:"error_kind,omitempty"`
}

// TestConnections runs auth.test against every workspace concurrently.
// Results are sorted by workspace name; failures are reported per entry.
func (m *Manager) TestConnections(ctx context.Context) []ConnectionStatus {
	names := m.Names()
	results := make([]ConnectionStatus, len(names))

	g, ctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			status := ConnectionStatus{Workspace: name}
			client, err := m.Client(name)
			if err == nil {
				var info slack.AuthInfo
				info, err = client.AuthTest(ctx)
				status.Team, status.User, status.UserID = info.Team, info.User, info.UserID
			}
			if err != nil {
				status.Error = err.Error()
				status.ErrorKind = slack.KindOf(err)
			} else {
				status.OK = true
			}
			results[i] = status
			return nil
		})
	}
	_ = g.Wait()
	return results
}
