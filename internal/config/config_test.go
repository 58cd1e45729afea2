package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Loyalty: LoyaltyConfig{
			MaxSlots:  5,
			PaidTitle: "Платный кальян",
			FreeTitle: "Бесплатный кальян",
		},
		Database: DatabaseConfig{
			Path: "loyalty.db",
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "zero max slots",
			mutate:  func(c *Config) { c.Loyalty.MaxSlots = 0 },
			wantErr: true,
		},
		{
			name:    "negative max slots",
			mutate:  func(c *Config) { c.Loyalty.MaxSlots = -1 },
			wantErr: true,
		},
		{
			name:    "empty paid title",
			mutate:  func(c *Config) { c.Loyalty.PaidTitle = "" },
			wantErr: true,
		},
		{
			name:    "empty free title",
			mutate:  func(c *Config) { c.Loyalty.FreeTitle = "" },
			wantErr: true,
		},
		{
			name:    "equal titles",
			mutate:  func(c *Config) { c.Loyalty.FreeTitle = c.Loyalty.PaidTitle },
			wantErr: true,
		},
		{
			name:    "empty database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: true,
		},
		{
			name:    "token without webhook",
			mutate:  func(c *Config) { c.Telegram.Token = "123:abc" },
			wantErr: true,
		},
		{
			name: "token with webhook",
			mutate: func(c *Config) {
				c.Telegram.Token = "123:abc"
				c.Telegram.WebhookURL = "https://example.com/webhook"
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsAdmin(t *testing.T) {
	cfg := validConfig()
	cfg.AdminIDs = []int64{111, 222}

	if !cfg.IsAdmin(111) {
		t.Errorf("Expected 111 to be admin")
	}

	if cfg.IsAdmin(333) {
		t.Errorf("Expected 333 not to be admin")
	}

	// Пустой список - администраторов нет
	cfg.AdminIDs = nil
	if cfg.IsAdmin(111) {
		t.Errorf("Expected no admins with empty list")
	}
}

func TestLoad_Defaults(t *testing.T) {
	// Сбрасываем переменные, влияющие на дефолты
	for _, key := range []string{"TELEGRAM_TOKEN", "WEBHOOK_URL", "PORT", "MAX_SLOTS", "PAID_TITLE", "FREE_TITLE", "DB_FILE", "SHEETS_TIMEOUT", "ADMIN_IDS", "RATE_LIMIT"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", cfg.Server.Port)
	}

	if cfg.Loyalty.MaxSlots != 5 {
		t.Errorf("Expected default max slots 5, got %d", cfg.Loyalty.MaxSlots)
	}

	if cfg.Loyalty.FreeTitle != "Бесплатный кальян" {
		t.Errorf("Expected default free title, got %s", cfg.Loyalty.FreeTitle)
	}

	if cfg.Database.Path != "loyalty.db" {
		t.Errorf("Expected default database path, got %s", cfg.Database.Path)
	}

	if cfg.Sheets.Timeout != 2*time.Second {
		t.Errorf("Expected default sheets timeout 2s, got %v", cfg.Sheets.Timeout)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "")
	t.Setenv("MAX_SLOTS", "7")
	t.Setenv("DB_FILE", "test.db")
	t.Setenv("ADMIN_IDS", "111,222")
	t.Setenv("SHEETS_TIMEOUT", "5s")
	t.Setenv("PAID_TITLE", "")
	t.Setenv("FREE_TITLE", "")
	t.Setenv("RATE_LIMIT", "")
	t.Setenv("PORT", "")
	t.Setenv("WEBHOOK_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Loyalty.MaxSlots != 7 {
		t.Errorf("Expected max slots 7, got %d", cfg.Loyalty.MaxSlots)
	}

	if cfg.Database.Path != "test.db" {
		t.Errorf("Expected database path test.db, got %s", cfg.Database.Path)
	}

	if cfg.Sheets.Timeout != 5*time.Second {
		t.Errorf("Expected sheets timeout 5s, got %v", cfg.Sheets.Timeout)
	}

	if len(cfg.AdminIDs) != 2 || cfg.AdminIDs[0] != 111 || cfg.AdminIDs[1] != 222 {
		t.Errorf("Expected admin IDs [111 222], got %v", cfg.AdminIDs)
	}
}
