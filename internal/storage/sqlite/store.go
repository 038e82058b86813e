// Package sqlite implements the tenant directory on SQLite, for deployments
// where the provisioning service writes tenant records into a shared file
// database rather than serving a lookup API.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/hzplatform/storefront-gateway/internal/tenant"
)

// Store is a SQLite implementation of tenant.Directory.
type Store struct {
	db *sql.DB
}

var _ tenant.Directory = (*Store)(nil)

// New opens (and if necessary initializes) the tenant database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS tenants (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			subdomain TEXT NOT NULL,
			subdomain_alias TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'active',
			password_protected INTEGER NOT NULL DEFAULT 0,
			password_hash TEXT NOT NULL DEFAULT '',
			rate_tier TEXT NOT NULL DEFAULT 'free'
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_tenants_subdomain ON tenants(subdomain)`,
		`CREATE TABLE IF NOT EXISTS custom_hostnames (
			hostname TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			verified INTEGER NOT NULL DEFAULT 0,
			FOREIGN KEY (tenant_id) REFERENCES tenants(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_custom_hostnames_tenant ON custom_hostnames(tenant_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

const tenantColumns = `id, name, description, subdomain, subdomain_alias, status, password_protected, password_hash, rate_tier`

func (s *Store) LookupByCustomHostname(ctx context.Context, hostname string) (*tenant.Record, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT t.`+strings.ReplaceAll(tenantColumns, ", ", ", t.")+`
		FROM tenants t
		JOIN custom_hostnames h ON h.tenant_id = t.id
		WHERE h.hostname = ? AND h.verified = 1`,
		strings.ToLower(hostname),
	)
	return s.scanRecord(ctx, row)
}

func (s *Store) LookupBySubdomain(ctx context.Context, label string) (*tenant.Record, bool, error) {
	label = strings.ToLower(label)
	row := s.db.QueryRowContext(ctx, `
		SELECT `+tenantColumns+`
		FROM tenants
		WHERE subdomain = ? OR (subdomain_alias != '' AND subdomain_alias = ?)`,
		label, label,
	)
	return s.scanRecord(ctx, row)
}

func (s *Store) LookupByID(ctx context.Context, id string) (*tenant.Record, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+tenantColumns+`
		FROM tenants
		WHERE id = ?`,
		id,
	)
	return s.scanRecord(ctx, row)
}

// UpsertTenant inserts or replaces a record, used by provisioning tooling
// and tests.
func (s *Store) UpsertTenant(ctx context.Context, rec *tenant.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var protected int
	if rec.PasswordProtected {
		protected = 1
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO tenants (`+tenantColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Name, rec.Description,
		strings.ToLower(rec.Subdomain), strings.ToLower(rec.SubdomainAlias),
		string(rec.Status), protected, rec.PasswordHash, string(rec.RateTier),
	); err != nil {
		return fmt.Errorf("failed to upsert tenant: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM custom_hostnames WHERE tenant_id = ?`, rec.ID); err != nil {
		return fmt.Errorf("failed to clear custom hostnames: %w", err)
	}
	for _, h := range rec.CustomHostnames {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO custom_hostnames (hostname, tenant_id, verified)
			VALUES (?, ?, 1)`,
			strings.ToLower(h), rec.ID,
		); err != nil {
			return fmt.Errorf("failed to insert custom hostname %s: %w", h, err)
		}
	}

	return tx.Commit()
}

// SetStatus flips a tenant's lifecycle state.
func (s *Store) SetStatus(ctx context.Context, id string, status tenant.Status) error {
	_, err := s.db.ExecContext(ctx, `UPDATE tenants SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update tenant status: %w", err)
	}
	return nil
}

func (s *Store) scanRecord(ctx context.Context, row *sql.Row) (*tenant.Record, bool, error) {
	var rec tenant.Record
	var protected int
	var status, tier string
	err := row.Scan(
		&rec.ID, &rec.Name, &rec.Description,
		&rec.Subdomain, &rec.SubdomainAlias,
		&status, &protected, &rec.PasswordHash, &tier,
	)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to scan tenant: %w", err)
	}
	rec.Status = tenant.Status(status)
	rec.RateTier = tenant.RateTier(tier)
	rec.PasswordProtected = protected == 1

	rows, err := s.db.QueryContext(ctx, `
		SELECT hostname FROM custom_hostnames WHERE tenant_id = ? AND verified = 1`,
		rec.ID,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to query custom hostnames: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, false, fmt.Errorf("failed to scan hostname: %w", err)
		}
		rec.CustomHostnames = append(rec.CustomHostnames, h)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	return &rec, true, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
