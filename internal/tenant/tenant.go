package tenant

import "context"

// Status is the lifecycle state of a storefront. The gateway only ever flips
// a record between active and inactive; deletion belongs to the provisioning
// service.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// RateTier maps to the per-minute admission quota a tenant's subscription
// entitles it to. Billing produces the tier; the gateway only reads it.
type RateTier string

const (
	TierFree       RateTier = "free"
	TierBeginning  RateTier = "beginning"
	TierPro        RateTier = "pro"
	TierEnterprise RateTier = "enterprise"
)

// Record identifies one deployed storefront.
type Record struct {
	ID          string
	Name        string
	Description string
	// Subdomain is the generated platform subdomain label, without the
	// platform root suffix.
	Subdomain string
	// SubdomainAlias is an optional merchant-chosen short label that also
	// resolves under the platform root.
	SubdomainAlias string
	// CustomHostnames are verified external domains. A hostname appears in
	// at most one active record's set at any time.
	CustomHostnames   []string
	Status            Status
	PasswordProtected bool
	PasswordHash      string
	RateTier          RateTier
}

// Active reports whether the record may serve traffic.
func (r *Record) Active() bool {
	return r.Status == StatusActive
}

// PrimaryHostname is the generated subdomain joined with the platform root.
func (r *Record) PrimaryHostname(rootDomain string) string {
	return r.Subdomain + "." + rootDomain
}

// contextKey is the type for tenant context keys
type contextKey struct{}

// WithRecord returns a context carrying the resolved tenant for downstream
// pipeline stages.
func WithRecord(ctx context.Context, rec *Record) context.Context {
	return context.WithValue(ctx, contextKey{}, rec)
}

// FromContext retrieves the resolved tenant from context.
// Returns nil if resolution has not run or did not match.
func FromContext(ctx context.Context) *Record {
	if rec, ok := ctx.Value(contextKey{}).(*Record); ok {
		return rec
	}
	return nil
}
