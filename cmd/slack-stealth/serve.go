package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chrisedwards/slack-stealth/internal/config"
	"github.com/chrisedwards/slack-stealth/internal/httpapi"
	"github.com/chrisedwards/slack-stealth/internal/unread"
)

const shutdownTimeout = 5 * time.Second

var (
	serveAddr    string
	serveNoWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve unread summaries and workspace status over HTTP",
	Long: `Serve a small JSON API:

  GET  /healthz
  GET  /v1/workspaces
  GET  /v1/workspaces/status
  GET  /v1/unread?workspace=&include_dms=&include_channels=&include_mentions=
  POST /v1/reload

The config file is watched and workspaces are reloaded when it changes:
new ones are added, removed ones closed, and rotated credentials replaced
without touching the others.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		opts := unread.DefaultOptions()
		opts.Exclude = a.cfg.Exclude
		h := httpapi.NewHandler(a.mgr, opts, loadConfig, logger, unread.WithLocation(a.cfg.Location()))
		srv := &http.Server{
			Addr:              serveAddr,
			Handler:           httpapi.Routes(h),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, ctx := errgroup.WithContext(ctx)
		if path := a.cfg.ConfigFile(); path != "" && !serveNoWatch {
			g.Go(func() error {
				return config.Watch(ctx, path, func(cfg *config.Config) {
					a.mgr.Reload(cfg)
				}, logger)
			})
		}
		g.Go(func() error {
			logger.Info("listening", zap.String("addr", serveAddr), zap.Strings("workspaces", a.mgr.Names()))
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8787", "listen address")
	serveCmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "do not reload when the config file changes")
	rootCmd.AddCommand(serveCmd)
}
