// Package directory is the application service for the business listing:
// cached reads, search, admin mutations, and the tracking hooks that turn
// user actions into analytics events.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/villagehub/bizdir/internal/aisearch"
	"github.com/villagehub/bizdir/internal/domain"
	"github.com/villagehub/bizdir/internal/logger"
	"github.com/villagehub/bizdir/internal/remote"
	"github.com/villagehub/bizdir/internal/store"
	syncpkg "github.com/villagehub/bizdir/internal/sync"
	"github.com/villagehub/bizdir/internal/track"
)

// Activity receives interaction notifications so the presence heartbeat
// knows the user is active. The presence monitor satisfies it.
type Activity interface {
	Touch()
}

// Service is the directory's application surface. Reads come from the local
// store; mutations go remote-first, then patch the cache so admin edits are
// visible without waiting for the next full sync.
type Service interface {
	Listings(ctx context.Context) syncpkg.Result
	Search(ctx context.Context, query string, categoryID string) ([]domain.Business, error)
	Categories(ctx context.Context) ([]domain.Category, error)

	AISearch(ctx context.Context, query string) (aisearch.Result, error)

	AddBusiness(ctx context.Context, b domain.Business) (domain.Business, error)
	UpdateBusiness(ctx context.Context, b domain.Business) error
	DeleteBusiness(ctx context.Context, id string) error

	SignIn(ctx context.Context, email, accessKey string) (remote.Session, error)
	SignOut(ctx context.Context) error
	IsAdmin(ctx context.Context) (bool, error)

	TrackVisit(ctx context.Context, page string)
	TrackInteraction(ctx context.Context, businessID, action string)
}

type service struct {
	store      store.Store
	reconciler *syncpkg.Reconciler
	remote     remote.Service
	searcher   aisearch.Service
	tracker    *track.Tracker
	activity   Activity
	deviceID   string
}

// NewService wires the directory service.
func NewService(
	s store.Store,
	reconciler *syncpkg.Reconciler,
	remoteSvc remote.Service,
	searcher aisearch.Service,
	tracker *track.Tracker,
	activity Activity,
	deviceID string,
) Service {
	return &service{
		store:      s,
		reconciler: reconciler,
		remote:     remoteSvc,
		searcher:   searcher,
		tracker:    tracker,
		activity:   activity,
		deviceID:   deviceID,
	}
}

// Listings runs a sync cycle and returns the resulting dataset. Never
// fails: a broken network degrades to cached data.
func (s *service) Listings(ctx context.Context) syncpkg.Result {
	return s.reconciler.SmartSync(ctx)
}

// Search filters the cached businesses by category and case-folded
// substring match over name, owner, address and services.
func (s *service) Search(ctx context.Context, query string, categoryID string) ([]domain.Business, error) {
	businesses, err := s.store.GetAllBusinesses(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read cached businesses: %w", err)
	}

	folder := cases.Fold()
	needle := folder.String(strings.TrimSpace(query))

	matched := []domain.Business{}
	for _, b := range businesses {
		if categoryID != "" && b.CategoryID != categoryID {
			continue
		}
		if needle != "" && !matchesQuery(folder, b, needle) {
			continue
		}
		matched = append(matched, b)
	}

	return matched, nil
}

func matchesQuery(folder cases.Caser, b domain.Business, needle string) bool {
	haystacks := []string{b.ShopName, b.OwnerName, b.Address}
	haystacks = append(haystacks, b.Services...)

	for _, h := range haystacks {
		if strings.Contains(folder.String(h), needle) {
			return true
		}
	}
	return false
}

func (s *service) Categories(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.store.GetAllCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read cached categories: %w", err)
	}
	return categories, nil
}

// AISearch answers a natural-language query against the cached snapshot and
// logs the outcome as an analytics event either way.
func (s *service) AISearch(ctx context.Context, query string) (aisearch.Result, error) {
	s.activity.Touch()

	businesses, err := s.store.GetAllBusinesses(ctx)
	if err != nil {
		return aisearch.Result{}, fmt.Errorf("failed to read cached businesses: %w", err)
	}

	result, searchErr := s.searcher.Search(ctx, query, businesses)

	outcome := "ok"
	if searchErr != nil {
		outcome = string(aisearch.CategoryUnknown)
		var aiErr *aisearch.Error
		if errors.As(searchErr, &aiErr) {
			outcome = string(aiErr.Category)
		}
	}
	s.tracker.Enqueue(domain.TableAISearchLogs, map[string]any{
		"query":        query,
		"result_count": len(result.Items),
		"outcome":      outcome,
		"device_id":    s.deviceID,
		"timestamp":    time.Now().UnixMilli(),
	})

	return result, searchErr
}

// AddBusiness creates the record remotely, then patches the cache with the
// returned record so the listing shows it immediately.
func (s *service) AddBusiness(ctx context.Context, b domain.Business) (domain.Business, error) {
	created, err := s.remote.AddBusiness(ctx, b)
	if err != nil {
		return domain.Business{}, err
	}

	if err := s.store.PutBusiness(ctx, created); err != nil {
		// Remote write succeeded; the next full sync repairs the cache.
		logger.FromContext(ctx).Warn("Failed to patch cache after add", "business_id", created.ID, "error", err)
	}

	return created, nil
}

func (s *service) UpdateBusiness(ctx context.Context, b domain.Business) error {
	if err := s.remote.UpdateBusiness(ctx, b); err != nil {
		return err
	}

	if err := s.store.PutBusiness(ctx, b); err != nil {
		logger.FromContext(ctx).Warn("Failed to patch cache after update", "business_id", b.ID, "error", err)
	}
	return nil
}

func (s *service) DeleteBusiness(ctx context.Context, id string) error {
	if err := s.remote.DeleteBusiness(ctx, id); err != nil {
		return err
	}

	if err := s.store.DeleteBusiness(ctx, id); err != nil {
		logger.FromContext(ctx).Warn("Failed to patch cache after delete", "business_id", id, "error", err)
	}
	return nil
}

func (s *service) SignIn(ctx context.Context, email, accessKey string) (remote.Session, error) {
	return s.remote.SignIn(ctx, email, accessKey)
}

func (s *service) SignOut(ctx context.Context) error {
	return s.remote.SignOut(ctx)
}

func (s *service) IsAdmin(ctx context.Context) (bool, error) {
	return s.remote.IsAdmin(ctx)
}

// TrackVisit records a page view. Best-effort; never blocks or fails.
func (s *service) TrackVisit(ctx context.Context, page string) {
	s.activity.Touch()
	s.tracker.Enqueue(domain.TableVisits, map[string]any{
		"page":      page,
		"device_id": s.deviceID,
		"timestamp": time.Now().UnixMilli(),
	})
}

// TrackInteraction records a user acting on a listing.
func (s *service) TrackInteraction(ctx context.Context, businessID, action string) {
	s.activity.Touch()
	s.tracker.Enqueue(domain.TableInteractions, map[string]any{
		"business_id": businessID,
		"action":      action,
		"device_id":   s.deviceID,
		"timestamp":   time.Now().UnixMilli(),
	})
}
