// Package sync decides, cheaply, whether the local cache is stale against
// the remote source of truth, and refreshes it wholesale when it is.
package sync

import (
	"context"
	"time"

	"github.com/villagehub/bizdir/internal/domain"
	"github.com/villagehub/bizdir/internal/logger"
	"github.com/villagehub/bizdir/internal/metrics"
	"github.com/villagehub/bizdir/internal/store"
)

// Action describes what a SmartSync call did.
type Action string

const (
	ActionNoChange Action = "no_change"
	ActionFullSync Action = "full_sync"
)

// Result is what SmartSync hands back to the application. FromCache reports
// whether the data came from the local store or a fresh full fetch.
type Result struct {
	Businesses []domain.Business
	Categories []domain.Category
	FromCache  bool
	Action     Action
}

// VersionFetcher is the lightweight remote accessor: one count query plus
// one newest-timestamp query, no payload transfer.
type VersionFetcher interface {
	GetDataVersion(ctx context.Context) (domain.DataVersion, error)
}

// DatasetFetcher is the heavy accessor used only when the cache is stale.
type DatasetFetcher interface {
	FetchBusinesses(ctx context.Context) ([]domain.Business, error)
	FetchCategories(ctx context.Context) ([]domain.Category, error)
}

// Fetcher combines both accessors; remote.Service satisfies it.
type Fetcher interface {
	VersionFetcher
	DatasetFetcher
}

// Reconciler compares version descriptors and orchestrates full
// refetch-and-replace cycles.
type Reconciler struct {
	store  store.Store
	remote Fetcher
	now    func() time.Time
}

// New creates a reconciler over the given local store and remote accessors.
func New(s store.Store, remote Fetcher) *Reconciler {
	return &Reconciler{
		store:  s,
		remote: remote,
		now:    time.Now,
	}
}

// SmartSync runs one read/compare/replace cycle. It never fails: any error
// along the way degrades to whatever the local store currently holds,
// possibly empty. Stale or empty data is preferred over a crash.
//
// Overlapping calls run independent cycles; the store's transactional
// replace is the only protection against a torn read, not against
// redundant work.
func (r *Reconciler) SmartSync(ctx context.Context) Result {
	log := logger.FromContext(ctx)

	remoteVersion, err := r.remote.GetDataVersion(ctx)
	if err != nil {
		log.Warn("Version check failed, serving cached data", "error", err)
		return r.fallback(ctx)
	}

	localVersion, haveLocal := r.localVersion(ctx)

	// First run (no stored descriptor) is treated as stale.
	if haveLocal && localVersion.Matches(remoteVersion) {
		businesses, err := r.store.GetAllBusinesses(ctx)
		if err != nil {
			log.Warn("Cache read failed during sync", "error", err)
			return r.fallback(ctx)
		}
		categories, err := r.store.GetAllCategories(ctx)
		if err != nil {
			log.Warn("Cache read failed during sync", "error", err)
			return r.fallback(ctx)
		}

		log.Debug("Cache is current",
			"record_count", remoteVersion.RecordCount,
			"last_updated", remoteVersion.LastUpdated)
		metrics.SyncsTotal.WithLabelValues(string(ActionNoChange)).Inc()

		return Result{
			Businesses: businesses,
			Categories: categories,
			FromCache:  true,
			Action:     ActionNoChange,
		}
	}

	result, err := r.fullSync(ctx, remoteVersion)
	if err != nil {
		log.Warn("Full sync failed, serving cached data", "error", err)
		return r.fallback(ctx)
	}

	log.Info("Full sync completed",
		"businesses", len(result.Businesses),
		"categories", len(result.Categories),
		"record_count", remoteVersion.RecordCount)
	metrics.SyncsTotal.WithLabelValues(string(ActionFullSync)).Inc()

	return result
}

// fullSync fetches the complete remote dataset, replaces both collections,
// and persists the new version descriptor stamped with the local sync time.
func (r *Reconciler) fullSync(ctx context.Context, remoteVersion domain.DataVersion) (Result, error) {
	businesses, err := r.remote.FetchBusinesses(ctx)
	if err != nil {
		return Result{}, err
	}
	categories, err := r.remote.FetchCategories(ctx)
	if err != nil {
		return Result{}, err
	}

	if err := r.store.ReplaceBusinesses(ctx, businesses); err != nil {
		return Result{}, err
	}
	if err := r.store.ReplaceCategories(ctx, categories); err != nil {
		return Result{}, err
	}

	newVersion := domain.DataVersion{
		RecordCount: remoteVersion.RecordCount,
		LastUpdated: remoteVersion.LastUpdated,
		LastSync:    r.now(),
	}
	if err := r.store.SetMetadata(ctx, store.MetadataKeyDataVersion, newVersion); err != nil {
		return Result{}, err
	}

	return Result{
		Businesses: businesses,
		Categories: categories,
		FromCache:  false,
		Action:     ActionFullSync,
	}, nil
}

// fallback serves whatever the cache holds. Errors here degrade to empty
// results; sync must never surface as an application error.
func (r *Reconciler) fallback(ctx context.Context) Result {
	metrics.SyncFallbacks.Inc()
	metrics.SyncsTotal.WithLabelValues(string(ActionNoChange)).Inc()

	result := Result{
		Businesses: []domain.Business{},
		Categories: []domain.Category{},
		FromCache:  true,
		Action:     ActionNoChange,
	}

	if businesses, err := r.store.GetAllBusinesses(ctx); err == nil {
		result.Businesses = businesses
	}
	if categories, err := r.store.GetAllCategories(ctx); err == nil {
		result.Categories = categories
	}

	return result
}

func (r *Reconciler) localVersion(ctx context.Context) (domain.DataVersion, bool) {
	var v domain.DataVersion
	if err := r.store.GetMetadata(ctx, store.MetadataKeyDataVersion, &v); err != nil {
		return domain.DataVersion{}, false
	}
	return v, true
}
