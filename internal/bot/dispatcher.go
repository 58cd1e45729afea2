package bot

import (
	"context"
	"log"
	"strings"

	"hookah_loyalty_bot/internal/bot/handlers"
	"hookah_loyalty_bot/internal/bot/service"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Dispatcher управляет обработкой входящих обновлений от Telegram
type Dispatcher struct {
	startHandler   *handlers.StartHandler
	helpHandler    *handlers.HelpHandler
	statusHandler  *handlers.StatusHandler
	defaultHandler *handlers.DefaultHandler
}

// NewDispatcher создает новый диспетчер обновлений
func NewDispatcher(service *service.Service) *Dispatcher {
	return &Dispatcher{
		startHandler:   handlers.NewStartHandler(service),
		helpHandler:    handlers.NewHelpHandler(service),
		statusHandler:  handlers.NewStatusHandler(service),
		defaultHandler: handlers.NewDefaultHandler(service),
	}
}

// HandleUpdate обрабатывает входящее обновление от Telegram
func (d *Dispatcher) HandleUpdate(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
	if update.Message == nil {
		log.Printf("Received unsupported update type: id=%d", update.ID)
		return
	}

	log.Printf("Received message from %d: %s", update.Message.Chat.ID, update.Message.Text)

	command := update.Message.Text
	if i := strings.Index(command, "@"); i > 0 {
		command = command[:i]
	}

	switch {
	case strings.HasPrefix(command, "/start"):
		d.startHandler.Handle(ctx, bot, update)
	case strings.HasPrefix(command, "/help"):
		d.helpHandler.Handle(ctx, bot, update)
	case strings.HasPrefix(command, "/status"):
		d.statusHandler.Handle(ctx, bot, update)
	default:
		d.defaultHandler.Handle(ctx, bot, update)
	}
}
