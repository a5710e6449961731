package unread

import (
	"context"

	"github.com/sourcegraph/conc/iter"
	"go.uber.org/zap"

	"github.com/chrisedwards/slack-stealth/internal/workspace"
)

// Aggregate reconciles the named workspace, or every configured workspace
// when name is empty. Workspaces run concurrently and fail independently: a
// workspace that cannot be reconciled contributes an entry carrying its
// error instead of aborting the rest.
func (r *Reconciler) Aggregate(ctx context.Context, mgr *workspace.Manager, name string) Result {
	names := mgr.Names()
	if name != "" {
		names = []string{name}
	}
	if len(names) == 0 {
		return Result{NeedsAuth: true}
	}

	mapper := iter.Mapper[string, Summary]{MaxGoroutines: r.opts.Workers}
	summaries := mapper.Map(names, func(n *string) Summary {
		return r.reconcileWorkspace(ctx, mgr, *n)
	})

	if len(summaries) == 1 {
		return Result{Single: &summaries[0]}
	}
	return Result{Aggregate: combine(summaries)}
}

func (r *Reconciler) reconcileWorkspace(ctx context.Context, mgr *workspace.Manager, name string) Summary {
	client, err := mgr.Client(name)
	if err != nil {
		return failedSummary(name, err)
	}
	s, err := r.Reconcile(ctx, name, client)
	if err != nil {
		r.log.Warn("workspace reconciliation failed", zap.String("workspace", name), zap.Error(err))
		return failedSummary(name, err)
	}
	return s
}
