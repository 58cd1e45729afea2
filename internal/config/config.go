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

// Config содержит всю конфигурацию приложения
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Loyalty  LoyaltyConfig  `json:"loyalty"`
	Sheets   SheetsConfig   `json:"sheets"`
	AdminIDs []int64        `json:"admin_ids"`
}

// TelegramConfig содержит настройки Telegram бота
type TelegramConfig struct {
	Token      string `json:"token"`
	WebhookURL string `json:"webhook_url"`
	WebAppURL  string `json:"webapp_url"`
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port           string        `json:"port"`
	ReadTimeout    time.Duration `json:"read_timeout"`
	WriteTimeout   time.Duration `json:"write_timeout"`
	IdleTimeout    time.Duration `json:"idle_timeout"`
	AllowedOrigins []string      `json:"allowed_origins"`
	RateLimit      int           `json:"rate_limit"` // запросов в минуту с одного клиента
}

// DatabaseConfig содержит настройки базы данных
type DatabaseConfig struct {
	Path        string        `json:"path"`
	ConnTimeout time.Duration `json:"conn_timeout"`
}

// LoyaltyConfig содержит правила программы лояльности
type LoyaltyConfig struct {
	MaxSlots  int    `json:"max_slots"`
	PaidTitle string `json:"paid_title"`
	FreeTitle string `json:"free_title"`
}

// SheetsConfig содержит настройки зеркалирования в Google Таблицу
type SheetsConfig struct {
	AppsScriptURL string        `json:"apps_script_url"`
	Timeout       time.Duration `json:"timeout"`
}

// Load загружает конфигурацию из .env файла и переменных окружения
func Load() (*Config, error) {
	// .env не обязателен: в продакшене переменные приходят из окружения
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	cfg := &Config{
		Telegram: TelegramConfig{
			Token:      os.Getenv("TELEGRAM_TOKEN"),
			WebhookURL: os.Getenv("WEBHOOK_URL"),
			WebAppURL:  getEnv("WEBAPP_URL", ""),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),
			RateLimit:      getEnvAsInt("RATE_LIMIT", 100),
		},
		Database: DatabaseConfig{
			Path:        getEnv("DB_FILE", "loyalty.db"),
			ConnTimeout: getEnvAsDuration("DB_CONN_TIMEOUT", 5*time.Second),
		},
		Loyalty: LoyaltyConfig{
			MaxSlots:  getEnvAsInt("MAX_SLOTS", 5),
			PaidTitle: getEnv("PAID_TITLE", "Платный кальян"),
			FreeTitle: getEnv("FREE_TITLE", "Бесплатный кальян"),
		},
		Sheets: SheetsConfig{
			AppsScriptURL: os.Getenv("SHEETS_URL"),
			Timeout:       getEnvAsDuration("SHEETS_TIMEOUT", 2*time.Second),
		},
		AdminIDs: getEnvAsInt64List("ADMIN_IDS"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	if c.Loyalty.MaxSlots <= 0 {
		return fmt.Errorf("MAX_SLOTS must be positive")
	}
	if c.Loyalty.PaidTitle == "" {
		return fmt.Errorf("PAID_TITLE must not be empty")
	}
	if c.Loyalty.FreeTitle == "" {
		return fmt.Errorf("FREE_TITLE must not be empty")
	}
	if c.Loyalty.PaidTitle == c.Loyalty.FreeTitle {
		return fmt.Errorf("PAID_TITLE and FREE_TITLE must differ")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("DB_FILE must not be empty")
	}
	if c.Server.RateLimit <= 0 {
		return fmt.Errorf("RATE_LIMIT must be positive")
	}
	// Токен бота не обязателен: REST API работает и без бота,
	// эндпоинты бота в этом случае возвращают ошибку внешней системы
	if c.Telegram.Token != "" && c.Telegram.WebhookURL == "" {
		return fmt.Errorf("WEBHOOK_URL is required when TELEGRAM_TOKEN is set")
	}

	return nil
}

// IsAdmin проверяет, входит ли Telegram ID в список администраторов
func (c *Config) IsAdmin(tgID int64) bool {
	for _, id := range c.AdminIDs {
		if id == tgID {
			return true
		}
	}
	return false
}

// getEnv получает переменную окружения или возвращает значение по умолчанию
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvAsInt получает переменную окружения как число
func getEnvAsInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvAsDuration получает переменную окружения как duration
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// getEnvAsList получает переменную окружения как список строк через запятую
func getEnvAsList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	var out []string
	for _, part := range strings.Split(v, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

// getEnvAsInt64List получает переменную окружения как список int64 через запятую
func getEnvAsInt64List(key string) []int64 {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}

	var out []int64
	for _, part := range strings.Split(v, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			log.Printf("Warning: invalid admin ID %q in %s, skipping", part, key)
			continue
		}
		out = append(out, id)
	}
	return out
}
