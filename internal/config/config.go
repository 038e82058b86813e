package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Platform PlatformConfig `koanf:"platform"`
	Security SecurityConfig `koanf:"security"`
	Cache    CacheConfig    `koanf:"cache"`
	Redis    RedisConfig    `koanf:"redis"`
	Storage  StorageConfig  `koanf:"storage"`
	Tenants  []TenantConfig `koanf:"tenants"`
}

type ServerConfig struct {
	Port           int           `koanf:"port"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

// PlatformConfig describes the hosting platform itself rather than any
// single tenant.
type PlatformConfig struct {
	// RootDomain is the reserved platform suffix; "shoe-store.hzcommerce.app"
	// resolves tenant "shoe-store" when RootDomain is "hzcommerce.app".
	RootDomain string `koanf:"root_domain"`
	// Environment is "production" or "development". Development enables
	// direct subdomain matching and the ?store= query override.
	Environment string `koanf:"environment"`
	// CanonicalScheme is used when deriving canonical URL headers.
	CanonicalScheme string `koanf:"canonical_scheme"`
}

type SecurityConfig struct {
	// OriginSecret signs the X-Hz-Internal edge header.
	OriginSecret string `koanf:"origin_secret"`
	// InternalToken is the shared secret for X-Internal-Token endpoints.
	InternalToken string `koanf:"internal_token"`
	// SessionSecret signs storefront unlock cookies.
	SessionSecret string `koanf:"session_secret"`
	// EnforceOriginTrust controls whether a missing X-Hz-Internal header is
	// rejected. Defaults to true; disabling it is logged at startup.
	EnforceOriginTrust bool `koanf:"enforce_origin_trust"`
	// SharedCacheTTL and StaleGrace feed the Cache-Control header emitted
	// for CDN-verified data endpoints, in seconds.
	SharedCacheTTL int `koanf:"shared_cache_ttl"`
	StaleGrace     int `koanf:"stale_grace"`
}

type CacheConfig struct {
	// TTL bounds how long a hostname resolution may be served without a
	// directory re-check.
	TTL time.Duration `koanf:"ttl"`
	// Size is the hard entry cap; the oldest entry is evicted on overflow.
	Size int `koanf:"size"`
}

type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type StorageConfig struct {
	Type   string       `koanf:"type"` // sqlite, memory
	SQLite SQLiteConfig `koanf:"sqlite"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// TenantConfig seeds the in-memory tenant directory. Production deployments
// use the SQLite directory instead and leave this empty.
type TenantConfig struct {
	ID                string   `koanf:"id"`
	Name              string   `koanf:"name"`
	Description       string   `koanf:"description"`
	Subdomain         string   `koanf:"subdomain"`
	SubdomainAlias    string   `koanf:"subdomain_alias"`
	CustomHostnames   []string `koanf:"custom_hostnames"`
	Status            string   `koanf:"status"`
	PasswordProtected bool     `koanf:"password_protected"`
	PasswordHash      string   `koanf:"password_hash"`
	RateTier          string   `koanf:"rate_tier"`
}

// IsProduction reports whether the gateway runs with production semantics
// (no debug host overrides, origin trust required when enforced).
func (c *Config) IsProduction() bool {
	return c.Platform.Environment == "production"
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Try to load from the config file first
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		// File not found is OK, we'll use env vars
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	// Load environment variables (can override file config)
	if err := k.Load(env.Provider("HZ_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "HZ_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	// Default values
	defaults := map[string]interface{}{
		"server.port":                   8080,
		"server.request_timeout":        "30s",
		"platform.environment":          "production",
		"platform.canonical_scheme":     "https",
		"security.enforce_origin_trust": true,
		"security.shared_cache_ttl":     60,
		"security.stale_grace":          300,
		"cache.ttl":                     "60s",
		"cache.size":                    1000,
		"storage.type":                  "memory",
	}
	for key, val := range defaults {
		if !k.Exists(key) {
			k.Set(key, val)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	// Substitute environment variables in secrets so config files can carry
	// ${VAR} placeholders instead of literal values.
	cfg.Security.OriginSecret = substituteEnvVars(cfg.Security.OriginSecret)
	cfg.Security.InternalToken = substituteEnvVars(cfg.Security.InternalToken)
	cfg.Security.SessionSecret = substituteEnvVars(cfg.Security.SessionSecret)
	cfg.Redis.Password = substituteEnvVars(cfg.Redis.Password)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Platform.RootDomain == "" {
		return fmt.Errorf("platform.root_domain is required")
	}
	if c.IsProduction() {
		if c.Security.OriginSecret == "" {
			return fmt.Errorf("security.origin_secret is required in production")
		}
		if c.Security.SessionSecret == "" {
			return fmt.Errorf("security.session_secret is required in production")
		}
	}
	switch c.Storage.Type {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("unknown storage.type %q", c.Storage.Type)
	}
	return nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
