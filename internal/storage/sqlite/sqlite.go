package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"hookah_loyalty_bot/internal/storage/models"
	"hookah_loyalty_bot/pkg/metrics"

	_ "modernc.org/sqlite"
)

// ErrPhoneConflict возвращается, когда телефон уже занят другим пользователем.
// Отдельная sentinel-ошибка, чтобы вызывающий код мог отличить гонку
// по уникальному индексу от прочих ошибок базы.
var ErrPhoneConflict = errors.New("phone number already in use")

// SQLiteStorage реализует интерфейс Storage для SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// New создает новое подключение к SQLite базе данных
func New(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Настройка подключения
	db.SetMaxOpenConns(1) // SQLite поддерживает только одно write-подключение
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	storage := &SQLiteStorage{db: db}

	if err := storage.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return storage, nil
}

// migrate выполняет миграции базы данных
func (s *SQLiteStorage) migrate() error {
	// Включаем WAL mode для лучшей конкурентности
	if _, err := s.db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return fmt.Errorf("failed to set WAL mode: %w", err)
	}

	// Включаем foreign keys
	if _, err := s.db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tg_id INTEGER UNIQUE NOT NULL,
			username TEXT NOT NULL DEFAULT '',
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS stocks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			title TEXT NOT NULL,
			completed INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_users_tg_id ON users(tg_id)`,
		// Пустой телефон не уникален: пользователи создаются без профиля
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_phone ON users(phone) WHERE phone != ''`,
		`CREATE INDEX IF NOT EXISTS idx_stocks_user_completed ON stocks(user_id, completed)`,
		`CREATE INDEX IF NOT EXISTS idx_stocks_completed ON stocks(completed)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute migration query: %w", err)
		}
	}

	return nil
}

// Close закрывает подключение к базе данных
func (s *SQLiteStorage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping проверяет подключение к базе данных
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// isUniqueViolation проверяет, является ли ошибка нарушением уникального индекса
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

const userColumns = `id, tg_id, username, first_name, last_name, phone, is_active, created_at, updated_at`

// scanUser читает пользователя из строки результата
func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID, &user.TgID, &user.Username, &user.FirstName, &user.LastName,
		&user.Phone, &user.IsActive, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetOrCreateUser возвращает пользователя по Telegram ID, создавая его при необходимости
func (s *SQLiteStorage) GetOrCreateUser(ctx context.Context, tgID int64) (*models.User, error) {
	// INSERT OR IGNORE закрывает гонку между параллельными первыми запросами
	query := `INSERT OR IGNORE INTO users (tg_id) VALUES (?)`
	result, err := s.db.ExecContext(ctx, query, tgID)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if inserted, err := result.RowsAffected(); err == nil && inserted > 0 {
		metrics.UsersCreated.Inc()
	}

	user, err := s.GetUserByTelegramID(ctx, tgID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %d not found after insert", tgID)
	}

	return user, nil
}

// GetUserByTelegramID получает пользователя по Telegram ID без создания
func (s *SQLiteStorage) GetUserByTelegramID(ctx context.Context, tgID int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE tg_id = ?`

	user, err := scanUser(s.db.QueryRowContext(ctx, query, tgID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// GetUserByPhone получает пользователя по номеру телефона
func (s *SQLiteStorage) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE phone = ? AND phone != ''`

	user, err := scanUser(s.db.QueryRowContext(ctx, query, phone))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by phone: %w", err)
	}

	return user, nil
}

// CreateUser создает пользователя с заполненным профилем
func (s *SQLiteStorage) CreateUser(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (tg_id, username, first_name, last_name, phone)
			  VALUES (?, ?, ?, ?, ?)`

	result, err := s.db.ExecContext(ctx, query,
		user.TgID, user.Username, user.FirstName, user.LastName, user.Phone)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrPhoneConflict
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get user ID: %w", err)
	}

	user.ID = id
	user.IsActive = true
	return nil
}

// UpdateUserProfile перезаписывает поля профиля существующего пользователя
func (s *SQLiteStorage) UpdateUserProfile(ctx context.Context, user *models.User) error {
	query := `UPDATE users SET username = ?, first_name = ?, last_name = ?, phone = ?,
			  updated_at = CURRENT_TIMESTAMP WHERE tg_id = ?`

	result, err := s.db.ExecContext(ctx, query,
		user.Username, user.FirstName, user.LastName, user.Phone, user.TgID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrPhoneConflict
		}
		return fmt.Errorf("failed to update user profile: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("user %d not found", user.TgID)
	}

	return nil
}

// GetPendingStocks получает незаполненные слоты пользователя, новые первыми
func (s *SQLiteStorage) GetPendingStocks(ctx context.Context, userID int64) ([]*models.Stock, error) {
	query := `SELECT id, user_id, title, completed, created_at, updated_at
			  FROM stocks WHERE user_id = ? AND completed = 0
			  ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending stocks: %w", err)
	}
	defer rows.Close()

	var stocks []*models.Stock
	for rows.Next() {
		stock := &models.Stock{}
		err := rows.Scan(
			&stock.ID, &stock.UserID, &stock.Title, &stock.Completed,
			&stock.CreatedAt, &stock.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stock: %w", err)
		}
		stocks = append(stocks, stock)
	}

	return stocks, rows.Err()
}

// CountCompletedStocks считает заполненные слоты пользователя
func (s *SQLiteStorage) CountCompletedStocks(ctx context.Context, userID int64) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM stocks WHERE user_id = ? AND completed = 1`

	err := s.db.QueryRowContext(ctx, query, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count completed stocks: %w", err)
	}

	return count, nil
}

// CountCompletedStocksByTitle считает заполненные слоты c указанным названием
func (s *SQLiteStorage) CountCompletedStocksByTitle(ctx context.Context, userID int64, title string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM stocks WHERE user_id = ? AND completed = 1 AND title = ?`

	err := s.db.QueryRowContext(ctx, query, userID, title).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count completed stocks by title: %w", err)
	}

	return count, nil
}

// CompleteAllPending помечает все незаполненные слоты пользователя заполненными
func (s *SQLiteStorage) CompleteAllPending(ctx context.Context, userID int64) (int64, error) {
	query := `UPDATE stocks SET completed = 1, updated_at = CURRENT_TIMESTAMP
			  WHERE user_id = ? AND completed = 0`

	result, err := s.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to complete pending stocks: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rowsAffected, nil
}

// AddStock добавляет новый слот пользователю
func (s *SQLiteStorage) AddStock(ctx context.Context, userID int64, title string, completed bool) (*models.Stock, error) {
	query := `INSERT INTO stocks (user_id, title, completed) VALUES (?, ?, ?)`

	result, err := s.db.ExecContext(ctx, query, userID, title, completed)
	if err != nil {
		return nil, fmt.Errorf("failed to add stock: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get stock ID: %w", err)
	}

	now := time.Now()
	return &models.Stock{
		ID:        id,
		UserID:    userID,
		Title:     title,
		Completed: completed,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// RolloverPending завершает цикл лояльности: записывает закрывающий цикл
// оплаченный слот сразу заполненным, помечает все незаполненные слоты
// заполненными и добавляет незаполненный слот-награду. Выполняется в одной
// транзакции, чтобы ошибка хранилища не оставила кассу в промежуточном
// состоянии. Возвращает итоговое число заполненных слотов и награду
func (s *SQLiteStorage) RolloverPending(ctx context.Context, userID int64, paidTitle, freeTitle string) (int64, *models.Stock, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO stocks (user_id, title, completed) VALUES (?, ?, 1)`, userID, paidTitle); err != nil {
		return 0, nil, fmt.Errorf("failed to add closing paid stock: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE stocks SET completed = 1, updated_at = CURRENT_TIMESTAMP
		 WHERE user_id = ? AND completed = 0`, userID)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to complete pending stocks: %w", err)
	}

	flushed, err := result.RowsAffected()
	if err != nil {
		return 0, nil, fmt.Errorf("failed to get affected rows: %w", err)
	}

	insert, err := tx.ExecContext(ctx,
		`INSERT INTO stocks (user_id, title, completed) VALUES (?, ?, 0)`, userID, freeTitle)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to add reward stock: %w", err)
	}

	id, err := insert.LastInsertId()
	if err != nil {
		return 0, nil, fmt.Errorf("failed to get stock ID: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, nil, fmt.Errorf("failed to commit rollover: %w", err)
	}

	now := time.Now()
	stock := &models.Stock{
		ID:        id,
		UserID:    userID,
		Title:     freeTitle,
		Completed: false,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// Закрывающий слот тоже заполнен
	return flushed + 1, stock, nil
}

// UseFreeStock удаляет один заполненный слот с указанным названием
func (s *SQLiteStorage) UseFreeStock(ctx context.Context, userID int64, title string) (bool, error) {
	query := `DELETE FROM stocks WHERE id IN (
				SELECT id FROM stocks
				WHERE user_id = ? AND completed = 1 AND title = ?
				ORDER BY created_at, id LIMIT 1
			  )`

	result, err := s.db.ExecContext(ctx, query, userID, title)
	if err != nil {
		return false, fmt.Errorf("failed to use free stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rowsAffected > 0, nil
}
