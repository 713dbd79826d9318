package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

const (
	defaultListen      = "127.0.0.1:8080"
	defaultTimezone    = "Asia/Taipei"
	defaultRefreshCron = "@every 1m"
	defaultLogLevel    = "info"
	defaultMongoDB     = "dinoevent"
	defaultDataFile    = "data"
	defaultPassphrase  = "0814"
)

type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// Key names the serialized collection in the memory, file and redis backends.
	Key string `yaml:"key"`
}

type RateLimitConfig struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

type Config struct {
	Listen string `yaml:"listen"`
	// PublicURL is the externally reachable base, used in QR codes.
	PublicURL string `yaml:"public_url"`

	Backend string      `yaml:"backend"`
	Mongo   MongoConfig `yaml:"mongo"`
	Redis   RedisConfig `yaml:"redis"`
	// DataDir is where the "file" backend keeps the collection.
	DataDir string `yaml:"data_dir"`
	// SeedExample writes the example event into an empty blob store.
	SeedExample bool `yaml:"seed_example"`

	// AdminPassphrase or AdminPassphraseHash (bcrypt) unlocks admin mode.
	// The hash wins when both are set.
	AdminPassphrase     string        `yaml:"admin_passphrase,omitempty"`
	AdminPassphraseHash string        `yaml:"admin_passphrase_hash,omitempty"`
	JWTSecret           string        `yaml:"jwt_secret"`
	SessionTTL          time.Duration `yaml:"session_ttl"`

	StoreTimeout time.Duration `yaml:"store_timeout"`
	Timezone     string        `yaml:"timezone"`
	RefreshCron  string        `yaml:"refresh"`
	LogLevel     string        `yaml:"log_level"`
	CORSOrigins  []string      `yaml:"cors_origins"`

	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("read random secret: %v", err))
	}
	return hex.EncodeToString(b)
}

// DefaultConfig returns the first-run configuration with a fresh JWT secret.
func DefaultConfig() *Config {
	c := &Config{
		Backend:         BackendFile,
		SeedExample:     true,
		AdminPassphrase: defaultPassphrase,
		JWTSecret:       randomSecret(),
	}
	c.Normalize()
	return c
}

// Normalize fills in zero values.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if c.Backend == "" {
		c.Backend = BackendFile
	}
	if c.Mongo.Database == "" {
		c.Mongo.Database = defaultMongoDB
	}
	if c.Redis.Key == "" {
		c.Redis.Key = "quick_event_data"
	}
	if c.DataDir == "" {
		c.DataDir = defaultDataFile
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = 30 * 24 * time.Hour
	}
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = 5 * time.Second
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.RateLimit.PerSecond <= 0 {
		c.RateLimit.PerSecond = 2
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 10
	}
	if c.CORSOrigins == nil {
		c.CORSOrigins = []string{"*"}
	}
}

// Validate reports settings that would fail at startup.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory, BackendFile:
	case BackendRedis:
		if c.Redis.Addr == "" {
			return errors.New("backend redis needs redis.addr")
		}
	case BackendMongo:
		if c.Mongo.URI == "" {
			return errors.New("backend mongo needs mongo.uri")
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.AdminPassphrase == "" && c.AdminPassphraseHash == "" {
		return errors.New("admin_passphrase or admin_passphrase_hash is required")
	}
	if c.JWTSecret == "" {
		return errors.New("jwt_secret is required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// ApplyEnv overrides file settings from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Listen, "LISTEN")
	set(&c.PublicURL, "PUBLIC_URL")
	set(&c.Backend, "BACKEND")
	set(&c.Mongo.URI, "MONGO_URI")
	set(&c.Mongo.Database, "MONGO_DB")
	set(&c.Redis.Addr, "REDIS_ADDR")
	set(&c.Redis.Password, "REDIS_PASSWORD")
	set(&c.DataDir, "DATA_DIR")
	set(&c.AdminPassphrase, "ADMIN_PASSPHRASE")
	set(&c.AdminPassphraseHash, "ADMIN_PASSPHRASE_HASH")
	set(&c.JWTSecret, "JWT_SECRET")
	set(&c.Timezone, "TIMEZONE")
	set(&c.LogLevel, "LOG_LEVEL")
	if v := getenv("CORS_ORIGINS"); v != "" {
		c.CORSOrigins = strings.Split(v, ",")
	}
	c.Normalize()
}

// Load reads the YAML file at path, writing a default one on first run,
// then applies .env and environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg, err := loadFile(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return nil, fmt.Errorf("write default config: %w", err)
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()
	return &cfg, nil
}

// Save writes cfg atomically with 0600 permissions, since it holds the
// passphrase and signing secret.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".dinoevent-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
