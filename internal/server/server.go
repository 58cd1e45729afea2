package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"hookah_loyalty_bot/internal/bot"
	botservice "hookah_loyalty_bot/internal/bot/service"
	"hookah_loyalty_bot/internal/config"
	"hookah_loyalty_bot/internal/loyalty"
	"hookah_loyalty_bot/internal/middleware"
	"hookah_loyalty_bot/internal/storage"
	"hookah_loyalty_bot/pkg/logger"

	tgbot "github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server представляет HTTP сервер с middleware
type Server struct {
	httpServer    *http.Server
	config        *config.Config
	logger        *logger.Logger
	loyalty       *loyalty.Service
	botService    *botservice.Service
	dispatcher    *bot.Dispatcher
	telegramBot   *tgbot.Bot
	rateLimiter   *middleware.RateLimiter
	healthChecker *HealthChecker
}

// New создает новый HTTP сервер
func New(
	cfg *config.Config,
	log *logger.Logger,
	st storage.Storage,
	loyaltyService *loyalty.Service,
	botService *botservice.Service,
	dispatcher *bot.Dispatcher,
	telegramBot *tgbot.Bot,
) *Server {
	server := &Server{
		config:        cfg,
		logger:        log,
		loyalty:       loyaltyService,
		botService:    botService,
		dispatcher:    dispatcher,
		telegramBot:   telegramBot,
		rateLimiter:   middleware.NewRateLimiter(cfg.Server.RateLimit, time.Minute, log),
		healthChecker: NewHealthChecker(st, "1.0.0"),
	}

	server.httpServer = &http.Server{
		Addr:           ":" + cfg.Server.Port,
		Handler:        server.setupRoutes(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	return server
}

// setupRoutes настраивает маршруты с middleware
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	// API мини-приложения
	mux.HandleFunc("POST /api/stocks/{tg_id}", s.handleUpdateStocks)
	mux.HandleFunc("GET /api/stocks/{tg_id}", s.handleGetStocks)
	mux.HandleFunc("GET /api/main/{tg_id}", s.handleProfile)
	mux.HandleFunc("POST /api/register", s.handleRegister)

	// Админские маршруты: фронтенд исторически дергает их и GET, и POST
	mux.HandleFunc("/redeem/{tg_id}", s.handleRedeem)
	mux.HandleFunc("/use_free/{tg_id}", s.handleUseFree)

	// Интеграции
	mux.HandleFunc("POST /send_webapp_button/{chat_id}", s.handleSendWebAppButton)
	mux.HandleFunc("POST /webhook", s.handleWebhook)

	// Служебные маршруты
	mux.HandleFunc("GET /health", s.healthChecker.HealthHandler)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s.applyMiddleware(mux)
}

// applyMiddleware применяет middleware в правильном порядке
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	// Применяем middleware в обратном порядке (последний применяется первым)

	// 4. Основной обработчик
	h := handler

	// 3. Prometheus метрики
	h = middleware.PrometheusMiddleware(h)

	// 2. Rate limiting
	h = middleware.RateLimitMiddleware(s.rateLimiter)(h)

	// 1. CORS и request id (применяются первыми)
	h = middleware.CORSMiddleware(s.config.Server.AllowedOrigins)(h)
	h = middleware.RequestIDMiddleware(h)

	return h
}

// handleWebhook обрабатывает Telegram webhook
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if s.dispatcher == nil || s.telegramBot == nil {
		http.Error(w, "Bot is not configured", http.StatusServiceUnavailable)
		return
	}

	var update tgmodels.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		s.logger.Error("Failed to decode Telegram update",
			logger.Error(err),
		)
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	// Обрабатываем обновление через dispatcher
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	s.dispatcher.HandleUpdate(ctx, s.telegramBot, &update)

	s.logger.Info("Webhook processed successfully",
		logger.Int64("update_id", update.ID),
		logger.Int64("processing_time_ms", time.Since(start).Milliseconds()),
	)

	w.WriteHeader(http.StatusOK)
}

// Start запускает сервер
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server",
		logger.String("addr", s.httpServer.Addr),
	)

	// Запускаем сервер в отдельной горутине
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server failed to start: %w", err)
		}
	}()

	// Ждем завершения контекста или ошибки
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown корректно завершает работу сервера
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if s.rateLimiter != nil {
		s.rateLimiter.Close()
	}

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("Error during server shutdown",
			logger.Error(err),
		)
		return err
	}

	s.logger.Info("HTTP server shut down successfully")
	return nil
}

// Handler возвращает полный обработчик сервера. Используется в тестах
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
