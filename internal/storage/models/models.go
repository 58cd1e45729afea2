package models

import "time"

// User представляет гостя заведения, идентифицированного по Telegram ID
type User struct {
	ID        int64     `json:"id" db:"id"`
	TgID      int64     `json:"tg_id" db:"tg_id"`
	Username  string    `json:"username" db:"username"`
	FirstName string    `json:"first_name" db:"first_name"`
	LastName  string    `json:"last_name" db:"last_name"`
	Phone     string    `json:"phone" db:"phone"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// HasProfile проверяет, заполнен ли профиль пользователя
func (u *User) HasProfile() bool {
	return u.Phone != ""
}

// Stock представляет один слот программы лояльности
type Stock struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Title     string    `json:"title" db:"title"`
	Completed bool      `json:"completed" db:"completed"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsPending проверяет, не заполнен ли еще слот
func (s *Stock) IsPending() bool {
	return !s.Completed
}
