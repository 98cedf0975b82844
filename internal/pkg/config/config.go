package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	AuditStoreRedis  = "redis"
	AuditStoreMemory = "memory"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET, required"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	SessionTTL time.Duration `env:"SESSION_TTL, default=24h"`

	Mongo MongoConfig
	Redis RedisConfig
	Audit AuditConfig
	Seed  SeedConfig

	DispatcherWorkers int `env:"DISPATCHER_WORKERS, default=4"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=storefront"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

type AuditConfig struct {
	Store    string `env:"AUDIT_STORE,    default=redis"`
	Capacity int    `env:"AUDIT_CAPACITY, default=100"`
}

// SeedConfig names the accounts created at startup when missing.
// SEED_OWNERS has the form "name:password,name2:password2".
type SeedConfig struct {
	RootUsername     string            `env:"ROOT_USERNAME,      default=root"`
	RootEmail        string            `env:"ROOT_EMAIL,         default=root@storefront.local"`
	RootPassword     string            `env:"ROOT_PASSWORD"`
	Owners           map[string]string `env:"SEED_OWNERS"`
	OwnerEmailDomain string            `env:"SEED_OWNER_DOMAIN,  default=storefront.local"`
}

// IsDevelopment reports whether human-friendly console logging applies.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadFrom(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadFrom reads configuration from lookuper and validates it.
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Audit.Store {
	case AuditStoreRedis, AuditStoreMemory:
	default:
		return fmt.Errorf("AUDIT_STORE must be %q or %q, got %q", AuditStoreRedis, AuditStoreMemory, c.Audit.Store)
	}
	if c.Audit.Capacity <= 0 {
		return fmt.Errorf("AUDIT_CAPACITY must be positive, got %d", c.Audit.Capacity)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	return nil
}
