package main

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"github.com/chrisedwards/slack-stealth/internal/config"
	"github.com/chrisedwards/slack-stealth/internal/slack"
	"github.com/chrisedwards/slack-stealth/internal/slacktest"
)

func init() {
	color.NoColor = true
}

// run executes the root command with args and returns its stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cfgFile, verbose, jsonOutput, wsName = "", false, false, ""
	addFlags.token, addFlags.cookie, addFlags.localConfig = "", "", ""
	addFlags.setDefault, addFlags.noVerify = false, false

	var out bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(config.EnvToken, "")
	t.Setenv(config.EnvCookie, "")
	return filepath.Join(home, "config.yaml")
}

func TestCommands_Registered(t *testing.T) {
	want := []string{"unread", "workspaces", "status", "conversations", "search", "history", "post", "mark-read", "react", "serve", "users"}
	registered := map[string]bool{}
	for _, cmd := range rootCmd.Commands() {
		registered[cmd.Name()] = true
	}
	for _, name := range want {
		if !registered[name] {
			t.Errorf("%s command should be registered with root", name)
		}
	}
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	tests := []struct {
		name      string
		shorthand string
	}{
		{"config", "c"},
		{"verbose", "v"},
		{"workspace", "w"},
		{"json", ""},
	}
	for _, tt := range tests {
		f := rootCmd.PersistentFlags().Lookup(tt.name)
		if f == nil {
			t.Errorf("root command should have --%s persistent flag", tt.name)
			continue
		}
		if f.Shorthand != tt.shorthand {
			t.Errorf("--%s shorthand = %q, want %q", tt.name, f.Shorthand, tt.shorthand)
		}
	}
}

func TestCommandArgs(t *testing.T) {
	tests := []struct {
		name string
		err  bool
		args []string
		run  func([]string) error
	}{
		{"history needs channel", true, nil, func(a []string) error { return historyCmd.Args(historyCmd, a) }},
		{"history one channel", false, []string{"general"}, func(a []string) error { return historyCmd.Args(historyCmd, a) }},
		{"mark-read with ts", false, []string{"general", "1.2"}, func(a []string) error { return markReadCmd.Args(markReadCmd, a) }},
		{"mark-read too many", true, []string{"a", "b", "c"}, func(a []string) error { return markReadCmd.Args(markReadCmd, a) }},
		{"react needs three", true, []string{"a", "b"}, func(a []string) error { return reactCmd.Args(reactCmd, a) }},
		{"post needs text", true, []string{"general"}, func(a []string) error { return postCmd.Args(postCmd, a) }},
		{"unread takes none", true, []string{"x"}, func(a []string) error { return unreadCmd.Args(unreadCmd, a) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run(tt.args)
			if (err != nil) != tt.err {
				t.Errorf("err = %v, want error %v", err, tt.err)
			}
		})
	}
}

func TestSearchCmd_Flags(t *testing.T) {
	for _, name := range []string{"in", "from", "after", "before", "has-link", "has-reaction", "thread", "count", "page"} {
		if searchCmd.Flags().Lookup(name) == nil {
			t.Errorf("search command should have --%s flag", name)
		}
	}
}

func TestFormatPatterns(t *testing.T) {
	tests := []struct {
		in   []string
		want string
	}{
		{nil, "(none)"},
		{[]string{}, "(none)"},
		{[]string{"general"}, "[general]"},
		{[]string{"general", "random", "team-*"}, "[general, random, team-*]"},
	}
	for _, tt := range tests {
		if got := formatPatterns(tt.in); got != tt.want {
			t.Errorf("formatPatterns(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPrintError(t *testing.T) {
	var buf bytes.Buffer
	printError(&buf, &slack.Error{Kind: slack.KindAPI, Endpoint: "auth.test", Code: "invalid_auth"})
	if got := buf.String(); got != "error: slack auth.test: invalid_auth (api_error)\n" {
		t.Errorf("printError() = %q", got)
	}
}

func TestOneLine(t *testing.T) {
	if got := oneLine("hello\n  world\t!"); got != "hello world !" {
		t.Errorf("oneLine() = %q", got)
	}
}

func TestResolveChannel(t *testing.T) {
	srv := slacktest.NewServer()
	defer srv.Close()
	srv.Handle("conversations.list", func(url.Values) any {
		return slacktest.OK(map[string]any{"channels": []map[string]any{
			{"id": "C0GENERAL", "name": "general", "is_channel": true},
		}})
	})
	client := slack.NewClient(slack.Credentials{Token: "xoxc-t"}, slack.WithBaseURL(srv.URL), slack.WithRateInterval(0))
	ctx := context.Background()

	id, err := resolveChannel(ctx, client, "C0123ABCD")
	if err != nil || id != "C0123ABCD" {
		t.Errorf("ID passthrough = %q, %v", id, err)
	}
	if srv.Calls("conversations.list") != 0 {
		t.Error("IDs should not trigger a listing")
	}

	for _, arg := range []string{"#general", "General"} {
		id, err := resolveChannel(ctx, client, arg)
		if err != nil || id != "C0GENERAL" {
			t.Errorf("resolveChannel(%q) = %q, %v", arg, id, err)
		}
	}

	if _, err := resolveChannel(ctx, client, "nope"); err == nil {
		t.Error("expected error for unknown channel")
	}
}

func TestWorkspacesAdd(t *testing.T) {
	path := isolate(t)

	out, err := run(t, "", "workspaces", "add", "Acme", "--token", "xoxc-1", "--cookie", "xoxd-1", "--no-verify", "--config", path)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !strings.Contains(out, `Saved workspace "acme"`) {
		t.Errorf("output = %q", out)
	}

	local := `{"lastActiveTeamId":"T2","teams":{"T2":{"id":"T2","name":"Globex","token":"xoxc-2"}}}`
	if _, err := run(t, local, "workspaces", "add", "globex", "--local-config", "-", "--cookie", "xoxd-2", "--no-verify", "--default", "--config", path); err != nil {
		t.Fatalf("add from local config: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DefaultWorkspace != "globex" {
		t.Errorf("default = %q, want globex", cfg.DefaultWorkspace)
	}
	if cfg.Workspaces["globex"].Token != "xoxc-2" || cfg.Workspaces["acme"].Cookie != "xoxd-1" {
		t.Errorf("workspaces = %+v", cfg.Workspaces)
	}

	out, err = run(t, "", "workspaces", "--config", path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "* globex") || !strings.Contains(out, "  acme") {
		t.Errorf("list output = %q", out)
	}

	if _, err := run(t, "", "workspaces", "remove", "globex", "--config", path); err != nil {
		t.Fatal(err)
	}
	cfg, err = config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DefaultWorkspace != "acme" || len(cfg.Workspaces) != 1 {
		t.Errorf("after remove: default %q, workspaces %v", cfg.DefaultWorkspace, cfg.WorkspaceNames())
	}
}

func TestWorkspacesAdd_RequiresCredentials(t *testing.T) {
	path := isolate(t)
	_, err := run(t, "", "workspaces", "add", "acme", "--token", "xoxc-1", "--no-verify", "--config", path)
	if err == nil {
		t.Fatal("expected error without --cookie")
	}

	_, err = run(t, "not a token", "workspaces", "add", "acme", "--local-config", "-", "--cookie", "c", "--no-verify", "--config", path)
	if !errors.Is(err, slack.ErrTokenNotFound) {
		t.Errorf("err = %v, want ErrTokenNotFound", err)
	}
}

func TestUnread_NoWorkspaces(t *testing.T) {
	isolate(t)
	out, err := run(t, "", "unread")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No workspaces configured") {
		t.Errorf("output = %q", out)
	}

	out, err = run(t, "", "unread", "--json")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"needs_auth": true`) {
		t.Errorf("json output = %q", out)
	}
}

func TestSelectUsers(t *testing.T) {
	users := []*slack.User{
		{ID: "U3", Name: "carol", DisplayName: "Carol"},
		{ID: "U1", Name: "alice", RealName: "Alice Smith"},
		{ID: "B1", Name: "deploybot", IsBot: true},
		{ID: "U2", Name: "bob"},
	}

	tests := []struct {
		name   string
		filter string
		bots   bool
		want   []string
	}{
		{"humans sorted by display name", "", false, []string{"U1", "U2", "U3"}},
		{"bots on request", "", true, []string{"U1", "U2", "U3", "B1"}},
		{"filter matches real name", "smith", false, []string{"U1"}},
		{"filter matches id", "u3", false, []string{"U3"}},
		{"bots still filtered", "bot", true, []string{"B1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ids []string
			for _, u := range selectUsers(users, tt.filter, tt.bots) {
				ids = append(ids, u.ID)
			}
			if strings.Join(ids, ",") != strings.Join(tt.want, ",") {
				t.Errorf("got %v, want %v", ids, tt.want)
			}
		})
	}
}

func TestRenderUsers(t *testing.T) {
	var out bytes.Buffer
	renderUsers(&out, []*slack.User{
		{ID: "U1", Name: "alice", DisplayName: "Alice"},
		{ID: "B1", Name: "deploybot", IsBot: true},
	})
	got := out.String()
	for _, want := range []string{"Alice @alice", "deploybot [bot]", "2 member(s)"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestRenderMessages_ThreadMarker(t *testing.T) {
	three, zero := 3, 0
	msgs := []slack.Message{ // newest first
		{TS: "1700000003.000100", User: "U1", Text: "reply", ThreadTS: "1700000001.000100"},
		{TS: "1700000002.000100", User: "U1", Text: "no replies yet", ThreadTS: "1700000002.000100", ReplyCount: &zero},
		{TS: "1700000001.000100", User: "U1", Text: "parent", ThreadTS: "1700000001.000100", ReplyCount: &three},
	}
	var out bytes.Buffer
	renderMessages(&out, slack.NewClient(slack.Credentials{}), time.UTC, msgs)

	got := out.String()
	if strings.Count(got, "repl") != 2 { // "reply" text plus one marker
		t.Errorf("expected exactly one thread marker:\n%s", got)
	}
	if !strings.Contains(got, "3 replies, thread 1700000001.000100") {
		t.Errorf("missing marker for thread parent:\n%s", got)
	}
}
