// Package postgres implements the remote directory service directly against
// a PostgreSQL database, for self-hosted deployments that skip the hosted
// REST surface.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/villagehub/bizdir/internal/domain"
	"github.com/villagehub/bizdir/internal/remote"
)

type service struct {
	db *pgxpool.Pool

	mu      sync.RWMutex
	session remote.Session
}

// NewService creates a Postgres-backed remote directory service.
func NewService(db *pgxpool.Pool) remote.Service {
	return &service{db: db}
}

// GetDataVersion runs the two cheap fingerprint queries: a row count and the
// newest updated_at. No payload is transferred.
func (s *service) GetDataVersion(ctx context.Context) (domain.DataVersion, error) {
	var v domain.DataVersion
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(MAX(updated_at), 'epoch'::timestamptz)
		FROM businesses
	`).Scan(&v.RecordCount, &v.LastUpdated)
	if err != nil {
		return domain.DataVersion{}, fmt.Errorf("%w: %v", domain.ErrRemote, err)
	}
	return v, nil
}

func (s *service) FetchBusinesses(ctx context.Context) ([]domain.Business, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, category_id, shop_name, owner_name, contact_number,
		       address, hours, services, home_delivery, payment_options,
		       created_at, updated_at
		FROM businesses
		ORDER BY shop_name
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRemote, err)
	}
	defer rows.Close()

	var businesses []domain.Business
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, err
		}
		businesses = append(businesses, b)
	}

	return businesses, rows.Err()
}

func (s *service) FetchCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name, icon FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRemote, err)
	}
	defer rows.Close()

	var categories []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Icon); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}

	return categories, rows.Err()
}

// AddBusiness inserts a record. The write path always stamps updated_at so
// the version fingerprint reflects every mutation.
func (s *service) AddBusiness(ctx context.Context, b domain.Business) (domain.Business, error) {
	if err := s.requireAdmin(); err != nil {
		return domain.Business{}, err
	}

	services, paymentOptions, err := marshalLists(b)
	if err != nil {
		return domain.Business{}, err
	}

	err = s.db.QueryRow(ctx, `
		INSERT INTO businesses (category_id, shop_name, owner_name, contact_number,
		                        address, hours, services, home_delivery, payment_options,
		                        created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`, b.CategoryID, b.ShopName, b.OwnerName, b.ContactNumber,
		b.Address, b.Hours, services, b.HomeDelivery, paymentOptions,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return domain.Business{}, fmt.Errorf("failed to insert business: %w", err)
	}

	return b, nil
}

func (s *service) UpdateBusiness(ctx context.Context, b domain.Business) error {
	if err := s.requireAdmin(); err != nil {
		return err
	}

	services, paymentOptions, err := marshalLists(b)
	if err != nil {
		return err
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE businesses
		SET category_id = $2, shop_name = $3, owner_name = $4, contact_number = $5,
		    address = $6, hours = $7, services = $8, home_delivery = $9,
		    payment_options = $10, updated_at = NOW()
		WHERE id = $1
	`, b.ID, b.CategoryID, b.ShopName, b.OwnerName, b.ContactNumber,
		b.Address, b.Hours, services, b.HomeDelivery, paymentOptions)
	if err != nil {
		return fmt.Errorf("failed to update business %s: %w", b.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: business %s", domain.ErrNotFound, b.ID)
	}

	return nil
}

func (s *service) DeleteBusiness(ctx context.Context, id string) error {
	if err := s.requireAdmin(); err != nil {
		return err
	}

	tag, err := s.db.Exec(ctx, `DELETE FROM businesses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete business %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: business %s", domain.ErrNotFound, id)
	}

	return nil
}

// SignIn verifies admin credentials against the admins table. Auth design is
// delegated to the deployment; this only checks membership.
func (s *service) SignIn(ctx context.Context, email, accessKey string) (remote.Session, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM admins WHERE email = $1 AND access_key = $2)
	`, email, accessKey).Scan(&exists)
	if err != nil {
		return remote.Session{}, fmt.Errorf("%w: %v", domain.ErrRemote, err)
	}
	if !exists {
		return remote.Session{}, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
	}

	session := remote.Session{
		Token: uuid.NewString(),
		Email: email,
		Admin: true,
	}

	s.mu.Lock()
	s.session = session
	s.mu.Unlock()

	return session, nil
}

func (s *service) SignOut(ctx context.Context) error {
	s.mu.Lock()
	s.session = remote.Session{}
	s.mu.Unlock()
	return nil
}

func (s *service) IsAdmin(ctx context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Admin, nil
}

func (s *service) requireAdmin() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.session.Admin {
		return fmt.Errorf("%w: admin session required", domain.ErrUnauthorized)
	}
	return nil
}

func scanBusiness(row pgx.Row) (domain.Business, error) {
	var b domain.Business
	var services, paymentOptions []byte

	err := row.Scan(&b.ID, &b.CategoryID, &b.ShopName, &b.OwnerName, &b.ContactNumber,
		&b.Address, &b.Hours, &services, &b.HomeDelivery, &paymentOptions,
		&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return domain.Business{}, fmt.Errorf("failed to scan business: %w", err)
	}

	if err := json.Unmarshal(services, &b.Services); err != nil {
		return domain.Business{}, fmt.Errorf("failed to decode services for %s: %w", b.ID, err)
	}
	if err := json.Unmarshal(paymentOptions, &b.PaymentOptions); err != nil {
		return domain.Business{}, fmt.Errorf("failed to decode payment options for %s: %w", b.ID, err)
	}

	return b, nil
}

func marshalLists(b domain.Business) (services, paymentOptions []byte, err error) {
	if b.Services == nil {
		b.Services = []string{}
	}
	if b.PaymentOptions == nil {
		b.PaymentOptions = []string{}
	}

	services, err = json.Marshal(b.Services)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode services: %w", err)
	}
	paymentOptions, err = json.Marshal(b.PaymentOptions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode payment options: %w", err)
	}
	return services, paymentOptions, nil
}
