package storage

import (
	"context"

	"hookah_loyalty_bot/internal/storage/models"
)

// UserRepository определяет интерфейс для работы с пользователями
type UserRepository interface {
	// GetOrCreateUser возвращает пользователя по Telegram ID, создавая
	// запись с пустым профилем при первом обращении
	GetOrCreateUser(ctx context.Context, tgID int64) (*models.User, error)
	// GetUserByTelegramID возвращает пользователя без создания;
	// (nil, nil) если пользователь не найден
	GetUserByTelegramID(ctx context.Context, tgID int64) (*models.User, error)
	// GetUserByPhone возвращает пользователя с указанным телефоном;
	// (nil, nil) если такого нет
	GetUserByPhone(ctx context.Context, phone string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUserProfile(ctx context.Context, user *models.User) error
}

// StockRepository определяет интерфейс для работы со слотами лояльности
type StockRepository interface {
	// GetPendingStocks возвращает незаполненные слоты пользователя, новые первыми
	GetPendingStocks(ctx context.Context, userID int64) ([]*models.Stock, error)
	CountCompletedStocks(ctx context.Context, userID int64) (int, error)
	CountCompletedStocksByTitle(ctx context.Context, userID int64, title string) (int, error)
	// CompleteAllPending помечает все незаполненные слоты пользователя
	// заполненными и возвращает количество измененных записей
	CompleteAllPending(ctx context.Context, userID int64) (int64, error)
	AddStock(ctx context.Context, userID int64, title string, completed bool) (*models.Stock, error)
	// RolloverPending в одной транзакции записывает закрывающий цикл
	// оплаченный слот заполненным, помечает все незаполненные слоты
	// заполненными и добавляет незаполненный слот-награду. Либо происходит
	// все, либо ничего. Возвращает итоговое число заполненных слотов
	RolloverPending(ctx context.Context, userID int64, paidTitle, freeTitle string) (int64, *models.Stock, error)
	// UseFreeStock удаляет один заполненный слот с указанным названием;
	// false если такого слота нет
	UseFreeStock(ctx context.Context, userID int64, title string) (bool, error)
}

// Storage объединяет все репозитории в единый интерфейс
type Storage interface {
	UserRepository
	StockRepository
	Close() error
	Ping(ctx context.Context) error
}
