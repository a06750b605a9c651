package diagnostic

import (
	"context"
	"time"

	"github.com/yourusername/kuco/internal/cache"
	authorizationclient "k8s.io/client-go/kubernetes/typed/authorization/v1"
)

// Report is the outcome of `kuco doctor`
type Report struct {
	Access    []*AccessStatus
	AccessErr error // Set when the access review itself could not run
	Freshness *FreshnessStatus
	CacheErr  error // Set when last_refreshed_at could not be read
}

// Healthy reports whether every permission is granted and the cache is fresh
func (r *Report) Healthy() bool {
	if r.AccessErr != nil || r.CacheErr != nil {
		return false
	}
	for _, a := range r.Access {
		if !a.Allowed {
			return false
		}
	}
	return r.Freshness != nil && !r.Freshness.Stale
}

// Run performs the access review and the freshness check.
// authz may be nil when no cluster connection is available.
func Run(ctx context.Context, authz authorizationclient.AuthorizationV1Interface, store cache.Store, table string, threshold time.Duration) *Report {
	report := &Report{}

	if authz != nil {
		report.Access, report.AccessErr = CheckAccess(ctx, authz, RequiredPermissions)
	}

	report.Freshness, report.CacheErr = CheckFreshness(ctx, store, table, threshold, time.Now())
	return report
}

// RecommendedAction returns the command an operator should run for a failed access check
func RecommendedAction(perm Permission) string {
	switch {
	case perm.Resource == "namespaces":
		return "kubectl auth can-i list namespaces # Stage 1 cannot discover namespaces without it"
	case perm.Resource == "pods" && perm.Subresource == "log":
		return "kubectl auth can-i get pods/log -A # Required for the log view"
	case perm.Resource == "pods" && perm.Verb == "get":
		return "kubectl auth can-i get pods -A # Required to read container names"
	case perm.Resource == "pods":
		return "kubectl auth can-i list pods -A # Required to list pods per namespace"
	default:
		return "kubectl auth can-i " + perm.String()
	}
}

// StaleAction returns the command an operator should run when the cache is stale
func StaleAction(f *FreshnessStatus) string {
	if f == nil || !f.Stale {
		return ""
	}
	if !f.Synced {
		return "kuco sync # Populate the cache before opening the console"
	}
	return "kuco cache clear && kuco sync # Rebuild the cache from the cluster"
}
