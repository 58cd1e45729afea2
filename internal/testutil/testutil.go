package testutil

import (
	"context"
	"testing"
	"time"

	"hookah_loyalty_bot/internal/config"
	"hookah_loyalty_bot/internal/storage/models"
	"hookah_loyalty_bot/internal/storage/sqlite"
	"hookah_loyalty_bot/pkg/logger"
)

// SetupTestDB создает in-memory SQLite базу данных для тестов
func SetupTestDB(t *testing.T) *sqlite.SQLiteStorage {
	t.Helper()

	storage, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	t.Cleanup(func() {
		storage.Close()
	})

	return storage
}

// SetupTestLogger создает тестовый логгер
func SetupTestLogger() *logger.Logger {
	return logger.New(logger.LevelDebug)
}

// SetupTestConfig создает конфигурацию с дефолтными правилами лояльности
func SetupTestConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:           "8080",
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			IdleTimeout:    120 * time.Second,
			AllowedOrigins: []string{"*"},
			RateLimit:      1000,
		},
		Database: config.DatabaseConfig{
			Path:        ":memory:",
			ConnTimeout: 5 * time.Second,
		},
		Loyalty: config.LoyaltyConfig{
			MaxSlots:  5,
			PaidTitle: "Платный кальян",
			FreeTitle: "Бесплатный кальян",
		},
		Sheets: config.SheetsConfig{
			Timeout: 2 * time.Second,
		},
		AdminIDs: []int64{999},
	}
}

// TestContext создает контекст для тестов
func TestContext() context.Context {
	return context.Background()
}

// CreateTestUser создает пользователя в хранилище
func CreateTestUser(t *testing.T, storage *sqlite.SQLiteStorage, tgID int64) *models.User {
	t.Helper()

	user, err := storage.GetOrCreateUser(TestContext(), tgID)
	if err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	return user
}
