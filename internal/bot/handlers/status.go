package handlers

import (
	"context"
	"log"
	"time"

	botservice "hookah_loyalty_bot/internal/bot/service"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// StatusHandler обрабатывает команду /status
type StatusHandler struct {
	service *botservice.Service
}

// NewStatusHandler создает новый обработчик команды /status
func NewStatusHandler(service *botservice.Service) *StatusHandler {
	return &StatusHandler{service: service}
}

// Handle обрабатывает команду /status: проверяет базу данных и
// отвечает кратким отчетом
func (h *StatusHandler) Handle(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var statusText string
	if err := h.service.PingStorage(pingCtx); err != nil {
		log.Printf("Storage ping failed for status command: %v", err)
		statusText = "Статус системы:\n\nБаза данных: недоступна\nБот: работает"
	} else {
		statusText = "Статус системы:\n\nБаза данных: работает\nБот: работает\nВремя: " +
			time.Now().Format("2006-01-02 15:04:05")
	}

	if err := h.service.SendSimpleMessage(ctx, chatID, statusText); err != nil {
		log.Printf("Failed to send status message to %d: %v", chatID, err)
	}
}
