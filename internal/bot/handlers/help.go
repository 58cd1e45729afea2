package handlers

import (
	"context"
	"log"

	botservice "hookah_loyalty_bot/internal/bot/service"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// HelpHandler обрабатывает команду /help
type HelpHandler struct {
	service *botservice.Service
}

// NewHelpHandler создает новый обработчик команды /help
func NewHelpHandler(service *botservice.Service) *HelpHandler {
	return &HelpHandler{service: service}
}

// Handle обрабатывает команду /help
func (h *HelpHandler) Handle(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID

	helpText := `Доступные команды:

/start - Открыть приложение лояльности
/help - Показать эту справку
/status - Проверить статус сервиса

В приложении видно, сколько кальянов осталось до бесплатного.
Вопросы - к администратору заведения.`

	if err := h.service.SendSimpleMessage(ctx, chatID, helpText); err != nil {
		log.Printf("Failed to send help message to %d: %v", chatID, err)
	}
}
