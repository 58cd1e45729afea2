package service

import (
	"context"
	"log"

	"hookah_loyalty_bot/internal/bot/keyboard"
	"hookah_loyalty_bot/internal/config"
	"hookah_loyalty_bot/internal/storage"
	apperrors "hookah_loyalty_bot/pkg/errors"
	"hookah_loyalty_bot/pkg/metrics"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
)

// Service представляет основной сервис Telegram бота
type Service struct {
	bot     *bot.Bot
	storage storage.Storage
	config  *config.Config
}

// NewService создает новый экземпляр сервиса бота
func NewService(b *bot.Bot, st storage.Storage, cfg *config.Config) *Service {
	return &Service{
		bot:     b,
		storage: st,
		config:  cfg,
	}
}

// SendMessage отправляет сообщение пользователю
func (s *Service) SendMessage(ctx context.Context, chatID int64, text string, replyMarkup tgmodels.ReplyMarkup) error {
	if s.bot == nil {
		return apperrors.ErrTelegramAPI.WithContext("бот не настроен")
	}

	params := &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: replyMarkup,
	}

	_, err := s.bot.SendMessage(ctx, params)
	if err != nil {
		metrics.RecordBotMessage("failed")
		return apperrors.ErrTelegramAPI.WithError(err)
	}

	metrics.RecordBotMessage("ok")
	return nil
}

// SendSimpleMessage отправляет простое текстовое сообщение
func (s *Service) SendSimpleMessage(ctx context.Context, chatID int64, text string) error {
	return s.SendMessage(ctx, chatID, text, nil)
}

// SendError отправляет сообщение об ошибке пользователю
func (s *Service) SendError(ctx context.Context, chatID int64, message string) {
	if err := s.SendSimpleMessage(ctx, chatID, message); err != nil {
		log.Printf("Failed to send error message to %d: %v", chatID, err)
	}
}

// SendWebAppButton отправляет приветствие с кнопкой мини-приложения
func (s *Service) SendWebAppButton(ctx context.Context, chatID int64) error {
	if s.config.Telegram.WebAppURL == "" {
		return apperrors.ErrTelegramAPI.WithContext("WEBAPP_URL не настроен")
	}

	message := "Добро пожаловать! Откройте приложение, чтобы следить за своими кальянами и бонусами."
	return s.SendMessage(ctx, chatID, message, keyboard.CreateWebAppKeyboard(s.config.Telegram.WebAppURL))
}

// PingStorage проверяет доступность базы данных для команды /status
func (s *Service) PingStorage(ctx context.Context) error {
	return s.storage.Ping(ctx)
}
