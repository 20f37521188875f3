package config

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("GATEWAY_SERVICE_TOKEN", "secret")
	t.Setenv("DATABASE_URL", "postgres://localhost/bizquits")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != "5200" {
		t.Errorf("Expected default port 5200, got %s", cfg.Server.Port)
	}
	if cfg.Jobs.DeadlineSweepInterval != time.Minute {
		t.Errorf("Expected 1m sweep interval, got %s", cfg.Jobs.DeadlineSweepInterval)
	}
	if !cfg.Database.AutoMigrate {
		t.Error("Expected auto-migrate enabled by default")
	}
	if cfg.R2.Enabled() {
		t.Error("Expected R2 disabled without bucket")
	}
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("DEADLINE_SWEEP_INTERVAL", "90")
	t.Setenv("DB_AUTO_MIGRATE", "false")
	t.Setenv("R2_BUCKET_NAME", "proofs")
	t.Setenv("CLOUDFLARE_ACCOUNT_ID", "acct")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != "9000" {
		t.Errorf("Expected port 9000, got %s", cfg.Server.Port)
	}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("Unexpected origins: %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Jobs.DeadlineSweepInterval != 90*time.Second {
		t.Errorf("Expected 90s, got %s", cfg.Jobs.DeadlineSweepInterval)
	}
	if cfg.Database.AutoMigrate {
		t.Error("Expected auto-migrate disabled")
	}
	if !cfg.R2.Enabled() {
		t.Error("Expected R2 enabled")
	}
}

func TestLoad_MissingToken(t *testing.T) {
	t.Setenv("GATEWAY_SERVICE_TOKEN", "")
	t.Setenv("DATABASE_URL", "postgres://localhost/bizquits")

	if _, err := Load(); err == nil {
		t.Fatal("Expected error when gateway token is missing")
	}
}
