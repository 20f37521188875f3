package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Env      string
	Server   ServerConfig
	Database DatabaseConfig
	R2       R2Config
	Jobs     JobsConfig
	UserSync UserSyncConfig
}

// ServerConfig holds HTTP-related configuration.
type ServerConfig struct {
	Port           string
	GatewayToken   string
	AllowedOrigins []string
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	AutoMigrate  bool
}

// R2Config holds Cloudflare R2 credentials for proof image uploads.
// Uploads are disabled when Bucket is empty.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	CDNBaseURL      string
}

// Enabled reports whether proof image uploads can be stored.
func (c R2Config) Enabled() bool {
	return c.Bucket != "" && c.AccountID != ""
}

// JobsConfig holds background job intervals.
type JobsConfig struct {
	DeadlineSweepInterval time.Duration
}

// UserSyncConfig points at the auth service's profile change feed.
// The worker is disabled when URL is empty.
type UserSyncConfig struct {
	URL          string
	EndpointPath string
	ServiceToken string
	Interval     time.Duration
}

// Load reads .env (if present) and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	cfg := &Config{
		Env: strings.ToLower(getEnv("ENV", "development")),
		Server: ServerConfig{
			Port:           getEnv("PORT", "5200"),
			GatewayToken:   getEnv("GATEWAY_SERVICE_TOKEN", ""),
			AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		},
		Database: DatabaseConfig{
			URL:          getEnv("DATABASE_URL", ""),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 25),
			AutoMigrate:  getEnvBool("DB_AUTO_MIGRATE", true),
		},
		R2: R2Config{
			AccountID:       getEnv("CLOUDFLARE_ACCOUNT_ID", ""),
			AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
			AccessKeySecret: getEnv("R2_ACCESS_KEY_SECRET", ""),
			Bucket:          getEnv("R2_BUCKET_NAME", ""),
			CDNBaseURL:      getEnv("CDN_BASE_URL", ""),
		},
		Jobs: JobsConfig{
			DeadlineSweepInterval: getEnvDuration("DEADLINE_SWEEP_INTERVAL", time.Minute),
		},
		UserSync: UserSyncConfig{
			URL:          getEnv("SYNC_SERVICE_URL", ""),
			EndpointPath: getEnv("SYNC_SERVICE_PATH", "/api/v1/public/profiles"),
			ServiceToken: getEnv("SYNC_SERVICE_TOKEN", ""),
			Interval:     getEnvDuration("USER_SYNC_INTERVAL", time.Minute),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsDevelopment reports whether verbose logging and auto-migration defaults apply.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.Server.GatewayToken == "" {
		return fmt.Errorf("GATEWAY_SERVICE_TOKEN environment variable not set")
	}
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL environment variable not set")
	}
	if c.Jobs.DeadlineSweepInterval <= 0 {
		return fmt.Errorf("DEADLINE_SWEEP_INTERVAL must be positive")
	}
	if c.UserSync.URL != "" && c.UserSync.Interval <= 0 {
		return fmt.Errorf("USER_SYNC_INTERVAL must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s") or plain seconds ("90").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
