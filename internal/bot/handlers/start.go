package handlers

import (
	"context"
	"log"

	botservice "hookah_loyalty_bot/internal/bot/service"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// StartHandler обрабатывает команду /start
type StartHandler struct {
	service *botservice.Service
}

// NewStartHandler создает новый обработчик команды /start
func NewStartHandler(service *botservice.Service) *StartHandler {
	return &StartHandler{service: service}
}

// Handle обрабатывает команду /start: приветствует гостя и отправляет
// кнопку мини-приложения
func (h *StartHandler) Handle(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID

	if err := h.service.SendWebAppButton(ctx, chatID); err != nil {
		log.Printf("Failed to send webapp button to %d: %v", chatID, err)
		h.service.SendError(ctx, chatID, "Не удалось открыть приложение. Попробуйте позже.")
	}
}
