package tenant

import (
	"context"
	"strings"
	"sync"

	"github.com/hzplatform/storefront-gateway/internal/config"
)

// Directory is the tenant lookup collaborator. Implementations must treat
// hostnames case-insensitively and return found=false rather than an error
// for unknown names.
type Directory interface {
	// LookupByCustomHostname matches a verified external domain.
	LookupByCustomHostname(ctx context.Context, hostname string) (*Record, bool, error)
	// LookupBySubdomain matches a generated subdomain label or its alias.
	LookupBySubdomain(ctx context.Context, label string) (*Record, bool, error)
	LookupByID(ctx context.Context, id string) (*Record, bool, error)
}

// MemoryDirectory is a config-seeded in-memory Directory used for local
// development and tests.
type MemoryDirectory struct {
	mu          sync.RWMutex
	byID        map[string]*Record
	byHostname  map[string]*Record
	bySubdomain map[string]*Record
}

// NewMemoryDirectory creates an empty in-memory directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		byID:        make(map[string]*Record),
		byHostname:  make(map[string]*Record),
		bySubdomain: make(map[string]*Record),
	}
}

// LoadDirectory builds an in-memory directory from configuration.
func LoadDirectory(configs []config.TenantConfig) *MemoryDirectory {
	d := NewMemoryDirectory()
	for _, cfg := range configs {
		status := Status(cfg.Status)
		if cfg.Status == "" {
			status = StatusActive
		}
		tier := RateTier(cfg.RateTier)
		if cfg.RateTier == "" {
			tier = TierFree
		}
		d.Put(&Record{
			ID:                cfg.ID,
			Name:              cfg.Name,
			Description:       cfg.Description,
			Subdomain:         cfg.Subdomain,
			SubdomainAlias:    cfg.SubdomainAlias,
			CustomHostnames:   cfg.CustomHostnames,
			Status:            status,
			PasswordProtected: cfg.PasswordProtected,
			PasswordHash:      cfg.PasswordHash,
			RateTier:          tier,
		})
	}
	return d
}

// Put inserts or replaces a record and reindexes its hostnames.
func (d *MemoryDirectory) Put(rec *Record) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if old, ok := d.byID[rec.ID]; ok {
		delete(d.bySubdomain, strings.ToLower(old.Subdomain))
		delete(d.bySubdomain, strings.ToLower(old.SubdomainAlias))
		for _, h := range old.CustomHostnames {
			delete(d.byHostname, strings.ToLower(h))
		}
	}

	d.byID[rec.ID] = rec
	d.bySubdomain[strings.ToLower(rec.Subdomain)] = rec
	if rec.SubdomainAlias != "" {
		d.bySubdomain[strings.ToLower(rec.SubdomainAlias)] = rec
	}
	for _, h := range rec.CustomHostnames {
		d.byHostname[strings.ToLower(h)] = rec
	}
}

// SetStatus flips a record's lifecycle state in place.
func (d *MemoryDirectory) SetStatus(id string, status Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if rec, ok := d.byID[id]; ok {
		rec.Status = status
	}
}

func (d *MemoryDirectory) LookupByCustomHostname(ctx context.Context, hostname string) (*Record, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if rec, ok := d.byHostname[strings.ToLower(hostname)]; ok {
		return snapshot(rec), true, nil
	}
	return nil, false, nil
}

func (d *MemoryDirectory) LookupBySubdomain(ctx context.Context, label string) (*Record, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if rec, ok := d.bySubdomain[strings.ToLower(label)]; ok {
		return snapshot(rec), true, nil
	}
	return nil, false, nil
}

func (d *MemoryDirectory) LookupByID(ctx context.Context, id string) (*Record, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if rec, ok := d.byID[id]; ok {
		return snapshot(rec), true, nil
	}
	return nil, false, nil
}

// snapshot copies a record so callers and cache entries never alias the
// directory's mutable state.
func snapshot(rec *Record) *Record {
	cp := *rec
	cp.CustomHostnames = append([]string(nil), rec.CustomHostnames...)
	return &cp
}
