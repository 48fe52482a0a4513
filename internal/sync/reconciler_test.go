package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/villagehub/bizdir/internal/domain"
	"github.com/villagehub/bizdir/internal/store"
)

// fakeStore is an in-memory store.Store for reconciler tests.
type fakeStore struct {
	businesses []domain.Business
	categories []domain.Category
	metadata   map[string][]byte

	replaceBusinessCalls int
	replaceCategoryCalls int
	readErr              error
}

func newFakeStore() *fakeStore {
	return &fakeStore{metadata: map[string][]byte{}}
}

func (f *fakeStore) GetAllBusinesses(ctx context.Context) ([]domain.Business, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return append([]domain.Business{}, f.businesses...), nil
}

func (f *fakeStore) GetAllCategories(ctx context.Context) ([]domain.Category, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return append([]domain.Category{}, f.categories...), nil
}

func (f *fakeStore) ReplaceBusinesses(ctx context.Context, businesses []domain.Business) error {
	f.replaceBusinessCalls++
	f.businesses = append([]domain.Business{}, businesses...)
	return nil
}

func (f *fakeStore) ReplaceCategories(ctx context.Context, categories []domain.Category) error {
	f.replaceCategoryCalls++
	f.categories = append([]domain.Category{}, categories...)
	return nil
}

func (f *fakeStore) PutBusiness(ctx context.Context, b domain.Business) error {
	for i, existing := range f.businesses {
		if existing.ID == b.ID {
			f.businesses[i] = b
			return nil
		}
	}
	f.businesses = append(f.businesses, b)
	return nil
}

func (f *fakeStore) DeleteBusiness(ctx context.Context, id string) error {
	for i, existing := range f.businesses {
		if existing.ID == id {
			f.businesses = append(f.businesses[:i], f.businesses[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeStore) GetMetadata(ctx context.Context, key string, out any) error {
	data, ok := f.metadata[key]
	if !ok {
		return store.ErrMetadataNotFound
	}
	return json.Unmarshal(data, out)
}

func (f *fakeStore) SetMetadata(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.metadata[key] = data
	return nil
}

func (f *fakeStore) Clear(ctx context.Context) error {
	f.businesses = nil
	f.categories = nil
	f.metadata = map[string][]byte{}
	return nil
}

func (f *fakeStore) Close() error { return nil }

// fakeRemote counts accessor calls so tests can assert the heavy fetch only
// runs when the fingerprint says stale.
type fakeRemote struct {
	version    domain.DataVersion
	versionErr error

	businesses []domain.Business
	categories []domain.Category
	fetchErr   error

	versionCalls  int
	businessCalls int
	categoryCalls int
}

func (f *fakeRemote) GetDataVersion(ctx context.Context) (domain.DataVersion, error) {
	f.versionCalls++
	if f.versionErr != nil {
		return domain.DataVersion{}, f.versionErr
	}
	return f.version, nil
}

func (f *fakeRemote) FetchBusinesses(ctx context.Context) ([]domain.Business, error) {
	f.businessCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.businesses, nil
}

func (f *fakeRemote) FetchCategories(ctx context.Context) ([]domain.Category, error) {
	f.categoryCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.categories, nil
}

func seedBusinesses(n int) []domain.Business {
	out := make([]domain.Business, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.Business{ID: fmt.Sprintf("biz-%d", i), ShopName: fmt.Sprintf("Shop %d", i)})
	}
	return out
}

var (
	versionJan1 = domain.DataVersion{RecordCount: 12, LastUpdated: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	versionJan2 = domain.DataVersion{RecordCount: 13, LastUpdated: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)}
)

func TestSmartSync_NoChange(t *testing.T) {
	s := newFakeStore()
	s.businesses = seedBusinesses(5)
	s.categories = []domain.Category{{ID: "cat-1", Name: "Groceries"}}
	require.NoError(t, s.SetMetadata(context.Background(), store.MetadataKeyDataVersion, versionJan1))

	remote := &fakeRemote{version: versionJan1}
	r := New(s, remote)

	result := r.SmartSync(context.Background())

	assert.Equal(t, ActionNoChange, result.Action)
	assert.True(t, result.FromCache)
	assert.Len(t, result.Businesses, 5)
	assert.Len(t, result.Categories, 1)

	// Identical fingerprint means zero heavy fetches and zero replaces.
	assert.Equal(t, 0, remote.businessCalls)
	assert.Equal(t, 0, remote.categoryCalls)
	assert.Equal(t, 0, s.replaceBusinessCalls)
	assert.Equal(t, 0, s.replaceCategoryCalls)
}

func TestSmartSync_StaleTriggersFullSync(t *testing.T) {
	tests := []struct {
		name   string
		local  domain.DataVersion
		remote domain.DataVersion
	}{
		{"count differs", versionJan1, domain.DataVersion{RecordCount: 13, LastUpdated: versionJan1.LastUpdated}},
		{"timestamp differs", versionJan1, domain.DataVersion{RecordCount: 12, LastUpdated: versionJan2.LastUpdated}},
		{"both differ", versionJan1, versionJan2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newFakeStore()
			s.businesses = seedBusinesses(5)
			require.NoError(t, s.SetMetadata(context.Background(), store.MetadataKeyDataVersion, tt.local))

			remote := &fakeRemote{
				version:    tt.remote,
				businesses: seedBusinesses(13),
				categories: []domain.Category{{ID: "cat-1", Name: "Groceries"}},
			}
			r := New(s, remote)

			result := r.SmartSync(context.Background())

			assert.Equal(t, ActionFullSync, result.Action)
			assert.False(t, result.FromCache)
			assert.Len(t, result.Businesses, 13)

			// Exactly one full fetch and one replace per collection.
			assert.Equal(t, 1, remote.businessCalls)
			assert.Equal(t, 1, remote.categoryCalls)
			assert.Equal(t, 1, s.replaceBusinessCalls)
			assert.Equal(t, 1, s.replaceCategoryCalls)

			// The stored descriptor now carries the remote fingerprint.
			var stored domain.DataVersion
			require.NoError(t, s.GetMetadata(context.Background(), store.MetadataKeyDataVersion, &stored))
			assert.Equal(t, tt.remote.RecordCount, stored.RecordCount)
			assert.True(t, stored.LastUpdated.Equal(tt.remote.LastUpdated))
			assert.False(t, stored.LastSync.IsZero())
		})
	}
}

func TestSmartSync_FirstRunIsStale(t *testing.T) {
	s := newFakeStore()
	remote := &fakeRemote{
		version:    versionJan1,
		businesses: seedBusinesses(12),
	}
	r := New(s, remote)

	result := r.SmartSync(context.Background())

	assert.Equal(t, ActionFullSync, result.Action)
	assert.False(t, result.FromCache)
	assert.Len(t, result.Businesses, 12)
}

func TestSmartSync_VersionFetchFailureFallsBack(t *testing.T) {
	s := newFakeStore()
	s.businesses = seedBusinesses(5)

	remote := &fakeRemote{versionErr: errors.New("network down")}
	r := New(s, remote)

	result := r.SmartSync(context.Background())

	assert.Equal(t, ActionNoChange, result.Action)
	assert.True(t, result.FromCache)
	assert.Len(t, result.Businesses, 5)
	assert.Equal(t, 0, remote.businessCalls)
}

func TestSmartSync_FullFetchFailureFallsBack(t *testing.T) {
	s := newFakeStore()
	s.businesses = seedBusinesses(5)
	require.NoError(t, s.SetMetadata(context.Background(), store.MetadataKeyDataVersion, versionJan1))

	remote := &fakeRemote{version: versionJan2, fetchErr: errors.New("timeout")}
	r := New(s, remote)

	result := r.SmartSync(context.Background())

	assert.Equal(t, ActionNoChange, result.Action)
	assert.True(t, result.FromCache)
	assert.Len(t, result.Businesses, 5)
	assert.Equal(t, 0, s.replaceBusinessCalls)
}

func TestSmartSync_FallbackWithEmptyCache(t *testing.T) {
	s := newFakeStore()
	remote := &fakeRemote{versionErr: errors.New("offline")}
	r := New(s, remote)

	result := r.SmartSync(context.Background())

	assert.Equal(t, ActionNoChange, result.Action)
	assert.True(t, result.FromCache)
	assert.Empty(t, result.Businesses)
	assert.Empty(t, result.Categories)
}

func TestSmartSync_SpecScenario(t *testing.T) {
	// local {count:12, 2024-01-01} vs remote {count:13, 2024-01-02}
	s := newFakeStore()
	require.NoError(t, s.SetMetadata(context.Background(), store.MetadataKeyDataVersion, versionJan1))

	remote := &fakeRemote{version: versionJan2, businesses: seedBusinesses(13)}
	r := New(s, remote)

	result := r.SmartSync(context.Background())

	assert.Equal(t, ActionFullSync, result.Action)
	assert.False(t, result.FromCache)
}
