package workspace

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chrisedwards/slack-stealth/internal/slack"
)

var (
	// ErrNoDefault means no workspace was named and none is marked default.
	ErrNoDefault = errors.New("no workspace specified and no default configured")
	// ErrNotFound means the named workspace is not configured.
	ErrNotFound = errors.New("workspace not found")
)

// ConfigError reports a workspace lookup that cannot be satisfied. It lists
// the workspaces that are available so the caller can correct the request.
type ConfigError struct {
	Name      string
	Available []string
	Reason    error
}

func (e *ConfigError) Error() string {
	available := "no workspaces configured"
	if len(e.Available) > 0 {
		available = "available: " + strings.Join(e.Available, ", ")
	}
	if errors.Is(e.Reason, ErrNotFound) {
		return fmt.Sprintf("workspace %q not found (%s)", e.Name, available)
	}
	return fmt.Sprintf("%v (%s)", e.Reason, available)
}

func (e *ConfigError) Unwrap() error {
	return e.Reason
}

// ErrorKind classifies lookup failures as configuration errors.
func (e *ConfigError) ErrorKind() slack.ErrorKind {
	return slack.KindConfig
}
