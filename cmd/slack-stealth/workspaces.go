package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chrisedwards/slack-stealth/internal/config"
	"github.com/chrisedwards/slack-stealth/internal/slack"
)

var addFlags struct {
	token       string
	cookie      string
	localConfig string
	setDefault  bool
	noVerify    bool
}

var workspacesCmd = &cobra.Command{
	Use:     "workspaces",
	Aliases: []string{"ws"},
	Short:   "List configured workspaces",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		names := cfg.WorkspaceNames()
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"default":    cfg.DefaultWorkspace,
				"workspaces": names,
			})
		}

		out := cmd.OutOrStdout()
		if len(names) == 0 {
			fmt.Fprintln(out, "No workspaces configured")
			return nil
		}
		for _, name := range names {
			if name == cfg.DefaultWorkspace {
				okColor.Fprintf(out, "* %s\n", name)
			} else {
				fmt.Fprintf(out, "  %s\n", name)
			}
		}
		if file := cfg.ConfigFile(); file != "" {
			dimColor.Fprintf(out, "\nconfig: %s\n", file)
		}
		dimColor.Fprintf(out, "exclude: %s\n", formatPatterns(cfg.Exclude))
		return nil
	},
}

var workspacesAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add or update a workspace's credentials",
	Long: `Store the xoxc token and d cookie for a workspace.

The token can be given directly with --token, or read from the web client's
localConfig_v2 value with --local-config (a file path, or - for stdin).
Credentials are checked with auth.test before saving unless --no-verify is
set.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		token := addFlags.token
		if addFlags.localConfig != "" {
			raw, err := readInput(cmd.InOrStdin(), addFlags.localConfig)
			if err != nil {
				return err
			}
			tok, err := slack.ParseLocalConfig(raw)
			if err != nil {
				return fmt.Errorf("read local config: %w", err)
			}
			token = tok.Token
		}
		if token == "" || addFlags.cookie == "" {
			return fmt.Errorf("both a token (--token or --local-config) and --cookie are required")
		}

		cfg, err := loadForEdit()
		if err != nil {
			return err
		}
		name := strings.ToLower(args[0])

		if !addFlags.noVerify {
			client := slack.NewClient(slack.Credentials{Token: token, Cookie: addFlags.cookie, Workspace: name},
				slack.WithLogger(logger), slack.WithRateInterval(cfg.RateInterval()))
			info, err := client.AuthTest(cmd.Context())
			_ = client.Close()
			if err != nil {
				return fmt.Errorf("verify credentials: %w", err)
			}
			dimColor.Fprintf(cmd.ErrOrStderr(), "authenticated as %s on %s\n", info.User, info.Team)
		}

		if err := cfg.AddWorkspace(name, token, addFlags.cookie, addFlags.setDefault); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		path := savePath(cfg)
		if err := cfg.Save(path); err != nil {
			return err
		}
		okColor.Fprintf(cmd.OutOrStdout(), "Saved workspace %q to %s\n", name, path)
		return nil
	},
}

var workspacesRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadForEdit()
		if err != nil {
			return err
		}
		name := strings.ToLower(args[0])
		if _, ok := cfg.Workspaces[name]; !ok {
			return fmt.Errorf("workspace %q is not configured", name)
		}
		delete(cfg.Workspaces, name)
		if cfg.DefaultWorkspace == name {
			cfg.DefaultWorkspace = ""
			if names := cfg.WorkspaceNames(); len(names) > 0 {
				cfg.DefaultWorkspace = names[0]
			}
		}
		path := savePath(cfg)
		if err := cfg.Save(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed workspace %q\n", name)
		return nil
	},
}

var workspacesDefaultCmd = &cobra.Command{
	Use:   "default <name>",
	Short: "Set the default workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadForEdit()
		if err != nil {
			return err
		}
		name := strings.ToLower(args[0])
		if _, ok := cfg.Workspaces[name]; !ok {
			return fmt.Errorf("workspace %q is not configured (available: %s)", name, strings.Join(cfg.WorkspaceNames(), ", "))
		}
		cfg.DefaultWorkspace = name
		if err := cfg.Save(savePath(cfg)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Default workspace is now %q\n", name)
		return nil
	},
}

func init() {
	f := workspacesAddCmd.Flags()
	f.StringVar(&addFlags.token, "token", "", "xoxc session token")
	f.StringVar(&addFlags.cookie, "cookie", "", "xoxd session cookie (the d cookie value)")
	f.StringVar(&addFlags.localConfig, "local-config", "", "file holding the web client's localConfig_v2 value, or - for stdin")
	f.BoolVar(&addFlags.setDefault, "default", false, "make this the default workspace")
	f.BoolVar(&addFlags.noVerify, "no-verify", false, "save without calling auth.test")

	workspacesCmd.AddCommand(workspacesAddCmd, workspacesRemoveCmd, workspacesDefaultCmd)
	rootCmd.AddCommand(workspacesCmd)
}

// savePath picks where a modified configuration is written: the explicit
// --config path, the file it was loaded from, or the default location.
func savePath(cfg *config.Config) string {
	switch {
	case cfgFile != "":
		return cfgFile
	case cfg.ConfigFile() != "":
		return cfg.ConfigFile()
	default:
		return config.DefaultConfigPath()
	}
}

// loadForEdit loads the configuration for modification. A --config path
// that does not exist yet starts from defaults.
func loadForEdit() (*config.Config, error) {
	if cfgFile != "" {
		if _, err := os.Stat(cfgFile); errors.Is(err, fs.ErrNotExist) {
			return &config.Config{
				Timezone:          config.DefaultTimezone,
				RequestsPerMinute: config.DefaultRequestsPerMinute,
			}, nil
		}
	}
	return config.Load(cfgFile)
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}
