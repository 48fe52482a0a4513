package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/villagehub/bizdir/internal/domain"
)

// SQLiteStore persists the directory cache in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if necessary) the cache database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache tables: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) initTables() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS businesses (
			id TEXT PRIMARY KEY,
			category_id TEXT NOT NULL,
			shop_name TEXT NOT NULL,
			owner_name TEXT NOT NULL,
			contact_number TEXT NOT NULL,
			address TEXT NOT NULL DEFAULT '',
			hours TEXT NOT NULL DEFAULT '',
			services TEXT NOT NULL DEFAULT '[]',
			home_delivery INTEGER NOT NULL DEFAULT 0,
			payment_options TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL DEFAULT '',
			updated_at TEXT NOT NULL DEFAULT '',
			synced_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_businesses_category ON businesses(category_id);

		CREATE TABLE IF NOT EXISTS categories (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			icon TEXT NOT NULL DEFAULT '',
			synced_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)

	return err
}

// GetAllBusinesses returns every cached business. The local synced_at
// bookkeeping column is stripped before records are handed back.
func (s *SQLiteStore) GetAllBusinesses(ctx context.Context) ([]domain.Business, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, category_id, shop_name, owner_name, contact_number,
		       address, hours, services, home_delivery, payment_options,
		       created_at, updated_at
		FROM businesses
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query businesses: %w", err)
	}
	defer rows.Close()

	businesses := []domain.Business{}
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, err
		}
		businesses = append(businesses, b)
	}

	return businesses, rows.Err()
}

// GetAllCategories returns every cached category.
func (s *SQLiteStore) GetAllCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, icon FROM categories`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := []domain.Category{}
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Icon); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}

	return categories, rows.Err()
}

// ReplaceBusinesses clears the collection and repopulates it in one
// transaction, so a sync that legitimately shrank the dataset leaves no
// stale record behind.
func (s *SQLiteStore) ReplaceBusinesses(ctx context.Context, businesses []domain.Business) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM businesses`); err != nil {
			return fmt.Errorf("failed to clear businesses: %w", err)
		}

		syncedAt := time.Now().UTC().Format(time.RFC3339)
		for _, b := range businesses {
			if err := insertBusiness(ctx, tx, b, syncedAt); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplaceCategories clears and repopulates the category collection.
func (s *SQLiteStore) ReplaceCategories(ctx context.Context, categories []domain.Category) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM categories`); err != nil {
			return fmt.Errorf("failed to clear categories: %w", err)
		}

		syncedAt := time.Now().UTC().Format(time.RFC3339)
		for _, c := range categories {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO categories (id, name, icon, synced_at)
				VALUES (?, ?, ?, ?)
			`, c.ID, c.Name, c.Icon, syncedAt)
			if err != nil {
				return fmt.Errorf("failed to insert category %s: %w", c.ID, err)
			}
		}
		return nil
	})
}

// PutBusiness upserts a single record, used right after a confirmed remote
// mutation so the cache reflects admin edits without waiting for a full sync.
func (s *SQLiteStore) PutBusiness(ctx context.Context, b domain.Business) error {
	services, paymentOptions, err := marshalLists(b)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO businesses (id, category_id, shop_name, owner_name, contact_number,
		                        address, hours, services, home_delivery, payment_options,
		                        created_at, updated_at, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			category_id = excluded.category_id,
			shop_name = excluded.shop_name,
			owner_name = excluded.owner_name,
			contact_number = excluded.contact_number,
			address = excluded.address,
			hours = excluded.hours,
			services = excluded.services,
			home_delivery = excluded.home_delivery,
			payment_options = excluded.payment_options,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			synced_at = excluded.synced_at
	`, b.ID, b.CategoryID, b.ShopName, b.OwnerName, b.ContactNumber,
		b.Address, b.Hours, services, boolToInt(b.HomeDelivery), paymentOptions,
		formatTime(b.CreatedAt), formatTime(b.UpdatedAt), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to upsert business %s: %w", b.ID, err)
	}

	return nil
}

// DeleteBusiness removes a single record from the cache.
func (s *SQLiteStore) DeleteBusiness(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM businesses WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete business %s: %w", id, err)
	}
	return nil
}

// GetMetadata unmarshals the stored value for key into out.
func (s *SQLiteStore) GetMetadata(ctx context.Context, key string, out any) error {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return ErrMetadataNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read metadata %s: %w", key, err)
	}

	if err := json.Unmarshal([]byte(value), out); err != nil {
		return fmt.Errorf("failed to decode metadata %s: %w", key, err)
	}
	return nil
}

// SetMetadata stores value under key as JSON.
func (s *SQLiteStore) SetMetadata(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode metadata %s: %w", key, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, string(data))
	if err != nil {
		return fmt.Errorf("failed to write metadata %s: %w", key, err)
	}
	return nil
}

// Clear wipes every collection and all metadata.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"businesses", "categories", "metadata"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		return nil
	})
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func insertBusiness(ctx context.Context, tx *sql.Tx, b domain.Business, syncedAt string) error {
	services, paymentOptions, err := marshalLists(b)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO businesses (id, category_id, shop_name, owner_name, contact_number,
		                        address, hours, services, home_delivery, payment_options,
		                        created_at, updated_at, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, b.ID, b.CategoryID, b.ShopName, b.OwnerName, b.ContactNumber,
		b.Address, b.Hours, services, boolToInt(b.HomeDelivery), paymentOptions,
		formatTime(b.CreatedAt), formatTime(b.UpdatedAt), syncedAt)
	if err != nil {
		return fmt.Errorf("failed to insert business %s: %w", b.ID, err)
	}
	return nil
}

type businessScanner interface {
	Scan(dest ...any) error
}

func scanBusiness(row businessScanner) (domain.Business, error) {
	var b domain.Business
	var services, paymentOptions string
	var homeDelivery int
	var createdAt, updatedAt string

	err := row.Scan(&b.ID, &b.CategoryID, &b.ShopName, &b.OwnerName, &b.ContactNumber,
		&b.Address, &b.Hours, &services, &homeDelivery, &paymentOptions,
		&createdAt, &updatedAt)
	if err != nil {
		return domain.Business{}, fmt.Errorf("failed to scan business: %w", err)
	}

	if err := json.Unmarshal([]byte(services), &b.Services); err != nil {
		return domain.Business{}, fmt.Errorf("failed to decode services for %s: %w", b.ID, err)
	}
	if err := json.Unmarshal([]byte(paymentOptions), &b.PaymentOptions); err != nil {
		return domain.Business{}, fmt.Errorf("failed to decode payment options for %s: %w", b.ID, err)
	}

	b.HomeDelivery = homeDelivery != 0
	b.CreatedAt = parseTime(createdAt)
	b.UpdatedAt = parseTime(updatedAt)

	return b, nil
}

func marshalLists(b domain.Business) (services, paymentOptions string, err error) {
	sj, err := json.Marshal(emptyIfNil(b.Services))
	if err != nil {
		return "", "", fmt.Errorf("failed to encode services for %s: %w", b.ID, err)
	}
	pj, err := json.Marshal(emptyIfNil(b.PaymentOptions))
	if err != nil {
		return "", "", fmt.Errorf("failed to encode payment options for %s: %w", b.ID, err)
	}
	return string(sj), string(pj), nil
}

func emptyIfNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
