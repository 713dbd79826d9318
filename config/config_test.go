package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWritesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := loadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Backend != BackendFile || cfg.Timezone != "Asia/Taipei" || cfg.StoreTimeout != 5*time.Second {
		t.Fatalf("defaults: %+v", cfg)
	}
	if len(cfg.JWTSecret) != 64 {
		t.Errorf("jwt secret length = %d", len(cfg.JWTSecret))
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("config perms = %o", perm)
	}

	again, err := loadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if again.JWTSecret != cfg.JWTSecret {
		t.Error("secret should persist across loads")
	}
}

func TestLoadPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "backend: mongo\nmongo:\n  uri: mongodb://db:27017\nstore_timeout: 2s\nadmin_passphrase: rawr\njwt_secret: s\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Backend != BackendMongo || cfg.Mongo.Database != "dinoevent" || cfg.StoreTimeout != 2*time.Second {
		t.Fatalf("loaded: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := DefaultConfig()
	env := map[string]string{
		"BACKEND":      "Redis",
		"REDIS_ADDR":   "localhost:6379",
		"TIMEZONE":     "UTC",
		"CORS_ORIGINS": "https://a.example,https://b.example",
	}
	cfg.ApplyEnv(func(k string) string { return env[k] })

	if cfg.Backend != BackendRedis || cfg.Redis.Addr != "localhost:6379" || cfg.Timezone != "UTC" {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Errorf("cors origins = %v", cfg.CORSOrigins)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"unknown backend": func(c *Config) { c.Backend = "sqlite" },
		"redis no addr":   func(c *Config) { c.Backend = BackendRedis },
		"mongo no uri":    func(c *Config) { c.Backend = BackendMongo },
		"no passphrase":   func(c *Config) { c.AdminPassphrase = "" },
		"bad timezone":    func(c *Config) { c.Timezone = "Mars/Olympus" },
	}
	for name, mutate := range cases {
		cfg := DefaultConfig()
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
