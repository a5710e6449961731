// Package httpapi exposes workspace status and unread summaries over HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/chrisedwards/slack-stealth/internal/config"
	"github.com/chrisedwards/slack-stealth/internal/slack"
	"github.com/chrisedwards/slack-stealth/internal/unread"
	"github.com/chrisedwards/slack-stealth/internal/workspace"
)

// Loader produces a fresh configuration for POST /v1/reload.
type Loader func() (*config.Config, error)

// Handler serves the JSON API over a workspace Manager.
type Handler struct {
	Manager *workspace.Manager
	Options unread.Options
	Recon   []unread.Option
	Load    Loader
	Log     *zap.Logger
}

// NewHandler constructs a Handler. A nil logger is replaced with a no-op one.
func NewHandler(mgr *workspace.Manager, opts unread.Options, load Loader, logger *zap.Logger, recon ...unread.Option) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Manager: mgr,
		Options: opts,
		Recon:   recon,
		Load:    load,
		Log:     logger,
	}
}

// KindInvalidRequest marks a malformed request parameter.
const KindInvalidRequest slack.ErrorKind = "invalid_request"

type errorResponse struct {
	Error string          `json:"error"`
	Kind  slack.ErrorKind `json:"kind"`
}

type workspacesResponse struct {
	Default    string   `json:"default,omitempty"`
	Workspaces []string `json:"workspaces"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// statusFor maps an error kind to an HTTP status. Configuration problems are
// the caller's; everything else is an upstream failure.
func statusFor(kind slack.ErrorKind) int {
	switch kind {
	case slack.KindConfig:
		return http.StatusNotFound
	case "":
		return http.StatusOK
	default:
		return http.StatusBadGateway
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, kind slack.ErrorKind, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind})
}

// ServeHealth handles GET /healthz.
func (h *Handler) ServeHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ServeWorkspaces handles GET /v1/workspaces.
func (h *Handler) ServeWorkspaces(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, workspacesResponse{
		Default:    h.Manager.Default(),
		Workspaces: h.Manager.Names(),
	})
}

// ServeStatus handles GET /v1/workspaces/status by running auth.test
// against every workspace.
func (h *Handler) ServeStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Manager.TestConnections(r.Context()))
}

// ServeUnread handles GET /v1/unread.
//
// Query parameters:
//
//	workspace         restrict to one workspace (default: all)
//	include_dms       bool, default true
//	include_channels  bool, default true
//	include_mentions  bool, default true
//
// A single-workspace failure is reported with 404 (configuration) or 502
// (Slack). Aggregates always answer 200 with per-workspace errors inline.
func (h *Handler) ServeUnread(w http.ResponseWriter, r *http.Request) {
	opts := h.Options
	q := r.URL.Query()
	for key, dst := range map[string]*bool{
		"include_dms":      &opts.IncludeDMs,
		"include_channels": &opts.IncludeChannels,
		"include_mentions": &opts.IncludeMentions,
	} {
		raw := q.Get(key)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, KindInvalidRequest, errors.New("invalid "+key+": "+raw))
			return
		}
		*dst = v
	}

	recon := unread.NewReconciler(opts, append([]unread.Option{unread.WithLogger(h.Log)}, h.Recon...)...)
	res := recon.Aggregate(r.Context(), h.Manager, q.Get("workspace"))

	if res.Single != nil && res.Single.Error != "" {
		writeJSON(w, statusFor(res.Single.ErrorKind), errorResponse{Error: res.Single.Error, Kind: res.Single.ErrorKind})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ServeReload handles POST /v1/reload. The configuration is re-read and
// validated; on success the manager is brought in line and the diff is
// returned.
func (h *Handler) ServeReload(w http.ResponseWriter, r *http.Request) {
	if h.Load == nil {
		h.writeError(w, http.StatusNotImplemented, slack.KindConfig, errors.New("reload not configured"))
		return
	}
	cfg, err := h.Load()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		h.Log.Warn("reload rejected", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, slack.KindConfig, err)
		return
	}
	writeJSON(w, http.StatusOK, h.Manager.Reload(cfg))
}
