package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"hookah_loyalty_bot/internal/bot"
	botservice "hookah_loyalty_bot/internal/bot/service"
	"hookah_loyalty_bot/internal/config"
	"hookah_loyalty_bot/internal/loyalty"
	"hookah_loyalty_bot/internal/server"
	"hookah_loyalty_bot/internal/sheets"
	"hookah_loyalty_bot/internal/storage/sqlite"
	"hookah_loyalty_bot/pkg/logger"

	tgbot "github.com/go-telegram/bot"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("Starting hookah loyalty backend...")

	// Загружаем конфигурацию
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализируем логгер
	appLogger := logger.New(logger.LevelInfo)
	appLogger.Info("Configuration loaded successfully")

	// Инициализируем хранилище
	storage, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer func() {
		if err := storage.Close(); err != nil {
			log.Printf("Error closing storage: %v", err)
		}
	}()

	appLogger.Info("Storage initialized successfully")

	// Создаем бота. Без токена сервис работает как чистый REST API
	var telegramBot *tgbot.Bot
	if cfg.Telegram.Token != "" {
		telegramBot, err = tgbot.New(cfg.Telegram.Token)
		if err != nil {
			log.Fatalf("Failed to create Telegram bot: %v", err)
		}

		if err := setupWebhook(telegramBot, cfg.Telegram.WebhookURL); err != nil {
			log.Fatalf("Failed to setup webhook: %v", err)
		}

		appLogger.Info("Telegram bot created, webhook configured")
	} else {
		appLogger.Warn("TELEGRAM_TOKEN is empty, bot endpoints disabled")
	}

	// Создаем зеркало Google Таблицы (nil при пустом SHEETS_URL)
	var mirror loyalty.Mirror
	if client := sheets.New(cfg.Sheets.AppsScriptURL, cfg.Sheets.Timeout, appLogger); client != nil {
		mirror = client
		appLogger.Info("Spreadsheet mirroring enabled")
	} else {
		appLogger.Warn("SHEETS_URL is empty, spreadsheet mirroring disabled")
	}

	// Создаем сервисы
	loyaltyService := loyalty.NewService(storage, cfg, appLogger, mirror)
	botService := botservice.NewService(telegramBot, storage, cfg)

	var updateDispatcher *bot.Dispatcher
	if telegramBot != nil {
		updateDispatcher = bot.NewDispatcher(botService)
	}

	// Создаем HTTP сервер
	srv := server.New(cfg, appLogger, storage, loyaltyService, botService, updateDispatcher, telegramBot)

	// Настраиваем graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		appLogger.Info("Shutdown signal received, starting graceful shutdown...")
		cancel()
	}()

	// Стартуем сервер
	appLogger.Info("Starting HTTP server on port " + cfg.Server.Port)
	if err := srv.Start(ctx); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}

	appLogger.Info("Server stopped gracefully")
}

// setupWebhook настраивает webhook для Telegram бота
func setupWebhook(b *tgbot.Bot, webhookURL string) error {
	ctx := context.Background()

	// Удаляем существующий webhook
	if _, err := b.DeleteWebhook(ctx, &tgbot.DeleteWebhookParams{}); err != nil {
		log.Printf("Warning: failed to delete existing webhook: %v", err)
	}

	params := &tgbot.SetWebhookParams{
		URL: webhookURL,
	}

	if _, err := b.SetWebhook(ctx, params); err != nil {
		return err
	}

	log.Printf("Webhook set to %s", webhookURL)
	return nil
}
