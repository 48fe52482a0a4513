package store

import (
	"context"
	"errors"

	"github.com/villagehub/bizdir/internal/domain"
)

// MetadataKeyDataVersion is the metadata key holding the DataVersion descriptor.
const MetadataKeyDataVersion = "data_version"

// ErrMetadataNotFound is returned by GetMetadata when the key has never been set.
var ErrMetadataNotFound = errors.New("metadata key not found")

// Store is the durable local cache for directory data. Collections are keyed
// by record id; reads return empty results on absence rather than failing.
//
// ReplaceBusinesses and ReplaceCategories are transactional: a concurrent read
// observes either the fully-old or the fully-new set, never a partial mix.
type Store interface {
	GetAllBusinesses(ctx context.Context) ([]domain.Business, error)
	GetAllCategories(ctx context.Context) ([]domain.Category, error)

	ReplaceBusinesses(ctx context.Context, businesses []domain.Business) error
	ReplaceCategories(ctx context.Context, categories []domain.Category) error

	PutBusiness(ctx context.Context, business domain.Business) error
	DeleteBusiness(ctx context.Context, id string) error

	GetMetadata(ctx context.Context, key string, out any) error
	SetMetadata(ctx context.Context, key string, value any) error

	// Clear wipes all collections and metadata. Persistence survives process
	// restart but not an explicit clear.
	Clear(ctx context.Context) error

	Close() error
}
