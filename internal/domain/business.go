package domain

import "time"

// Business represents a single business listing in the village directory.
// The remote service owns these records; cached copies are disposable and
// rebuildable at any time from a full sync.
type Business struct {
	ID             string   `json:"id"`
	CategoryID     string   `json:"category_id" validate:"required"`
	ShopName       string   `json:"shop_name" validate:"required,max=120"`
	OwnerName      string   `json:"owner_name" validate:"required,max=120"`
	ContactNumber  string   `json:"contact_number" validate:"required,max=20"`
	Address        string   `json:"address,omitempty" validate:"max=300"`
	Hours          string   `json:"hours,omitempty" validate:"max=120"`
	Services       []string `json:"services,omitempty"`
	HomeDelivery   bool     `json:"home_delivery,omitempty"`
	PaymentOptions []string `json:"payment_options,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Category groups businesses for browsing.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name" validate:"required,max=80"`
	Icon string `json:"icon,omitempty"`
}

// CachedBusiness wraps a business with local-only bookkeeping. The wrapper is
// written wholesale on every full sync and stripped before records are handed
// back to callers.
type CachedBusiness struct {
	Business
	SyncedAt time.Time `json:"synced_at"`
}
