package bot

import (
	"testing"

	"hookah_loyalty_bot/internal/bot/service"
	"hookah_loyalty_bot/internal/testutil"

	"github.com/go-telegram/bot/models"
)

func setupDispatcher(t *testing.T) *Dispatcher {
	t.Helper()

	storage := testutil.SetupTestDB(t)
	botService := service.NewService(nil, storage, testutil.SetupTestConfig())
	return NewDispatcher(botService)
}

func TestHandleUpdate_NilMessage(t *testing.T) {
	dispatcher := setupDispatcher(t)

	// Обновление без сообщения не должно приводить к панике
	dispatcher.HandleUpdate(testutil.TestContext(), nil, &models.Update{ID: 1})
}

func TestHandleUpdate_Commands(t *testing.T) {
	dispatcher := setupDispatcher(t)
	ctx := testutil.TestContext()

	// Бот не настроен: обработчики отрабатывают ветку ошибки отправки
	// без паники для всех команд, включая адресованные по имени бота
	commands := []string{"/start", "/help", "/status", "/start@loyalty_bot", "привет"}
	for _, text := range commands {
		update := &models.Update{
			ID: 1,
			Message: &models.Message{
				Text: text,
				Chat: models.Chat{ID: 12345},
			},
		}
		dispatcher.HandleUpdate(ctx, nil, update)
	}
}
