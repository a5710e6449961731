package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Version information, injected at build time via ldflags.
var (
	Version   = "dev"
	Build     = "unknown"
	BuildTime = "unknown"
)

var (
	cfgFile    string
	verbose    bool
	jsonOutput bool
	wsName     string

	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "slack-stealth",
	Short: "Read Slack across workspaces without marking anything read",
	Long: `slack-stealth reads Slack through the web API with browser session
credentials (an xoxc token and the d cookie). Reading never moves a
conversation's read marker; only mark-read does.

Several workspaces can be configured at once. Commands act on the default
workspace unless --workspace is given; unread checks every workspace.`,
	Version:       fmt.Sprintf("%s (build %s, %s)", Version, Build, BuildTime),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log, err := newLogger(verbose)
		if err != nil {
			return err
		}
		logger = log
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default ~/.config/slack-stealth/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log API activity to stderr")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
	rootCmd.PersistentFlags().StringVarP(&wsName, "workspace", "w", "", "workspace to use (default: configured default)")
}

// newLogger builds a production logger writing to stderr at Warn, or Debug
// when verbose.
func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stderr"}
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}
