// Package remote defines the client interface to the hosted directory
// service, the source of truth for all business and category records.
package remote

import (
	"context"

	"github.com/villagehub/bizdir/internal/domain"
)

// Session is the authenticated admin session returned by SignIn.
type Session struct {
	Token string `json:"token"`
	Email string `json:"email"`
	Admin bool   `json:"admin"`
}

// Service is the remote source of truth. GetDataVersion is the lightweight
// accessor (count query plus newest-timestamp query, no payload transfer);
// FetchBusinesses/FetchCategories are the heavy accessors used on full sync.
//
// Mutation errors are propagated to the caller and surfaced to the user;
// read errors are handled by the sync reconciler's cache fallback.
type Service interface {
	GetDataVersion(ctx context.Context) (domain.DataVersion, error)
	FetchBusinesses(ctx context.Context) ([]domain.Business, error)
	FetchCategories(ctx context.Context) ([]domain.Category, error)

	AddBusiness(ctx context.Context, b domain.Business) (domain.Business, error)
	UpdateBusiness(ctx context.Context, b domain.Business) error
	DeleteBusiness(ctx context.Context, id string) error

	SignIn(ctx context.Context, email, accessKey string) (Session, error)
	SignOut(ctx context.Context) error
	IsAdmin(ctx context.Context) (bool, error)
}
