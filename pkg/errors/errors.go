package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError представляет ошибку приложения с кодом и контекстом
type AppError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Err     error       `json:"-"`
	Context interface{} `json:"context,omitempty"`
}

// Error реализует интерфейс error
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap позволяет использовать errors.Is и errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is сравнивает ошибки по коду, чтобы предопределенные ошибки
// оставались сопоставимыми после WithError/WithContext
func (e *AppError) Is(target error) bool {
	var appErr *AppError
	if errors.As(target, &appErr) {
		return e.Code == appErr.Code && e.Message == appErr.Message
	}
	return false
}

// WithContext добавляет контекст к ошибке
func (e *AppError) WithContext(ctx interface{}) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Context: ctx,
	}
}

// WithError добавляет underlying ошибку
func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
		Context: e.Context,
	}
}

// HTTPStatus возвращает HTTP статус-код для ошибки
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeConflict:
		return http.StatusConflict
	case CodeNotFound:
		return http.StatusNotFound
	case CodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Коды ошибок. Ошибки внешних систем (таблица, Telegram) никогда
// не возвращаются клиенту, только логируются.
const (
	CodeInvalidInput = "INVALID_INPUT"
	CodeConflict     = "CONFLICT"
	CodeNotFound     = "NOT_FOUND"
	CodeForbidden    = "FORBIDDEN"
	CodeStorage      = "STORAGE"
	CodeUpstream     = "UPSTREAM"
)

// Предопределенные ошибки
var (
	// Ошибки валидации
	ErrInvalidTelegramID = &AppError{
		Code:    CodeInvalidInput,
		Message: "некорректный Telegram ID",
	}

	ErrInvalidPhoneNumber = &AppError{
		Code:    CodeInvalidInput,
		Message: "некорректный номер телефона",
	}

	ErrMissingAction = &AppError{
		Code:    CodeInvalidInput,
		Message: "запрос должен содержать incrementSlot или filledSlots",
	}

	// Ошибки бизнес-логики
	ErrPhoneAlreadyUsed = &AppError{
		Code:    CodeConflict,
		Message: "номер телефона уже используется другим аккаунтом",
	}

	ErrUserNotFound = &AppError{
		Code:    CodeNotFound,
		Message: "пользователь не найден",
	}

	ErrNoFreeReward = &AppError{
		Code:    CodeNotFound,
		Message: "у пользователя нет бесплатного кальяна",
	}

	// Ошибки доступа
	ErrNotAdmin = &AppError{
		Code:    CodeForbidden,
		Message: "недостаточно прав",
	}

	// Системные ошибки
	ErrStorage = &AppError{
		Code:    CodeStorage,
		Message: "ошибка базы данных",
	}

	ErrSheetsDelivery = &AppError{
		Code:    CodeUpstream,
		Message: "не удалось записать событие в таблицу",
	}

	ErrTelegramAPI = &AppError{
		Code:    CodeUpstream,
		Message: "ошибка Telegram API",
	}
)

// New создает новую ошибку приложения
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap оборачивает обычную ошибку в AppError
func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// AsAppError извлекает AppError из цепочки ошибок
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	ok := errors.As(err, &appErr)
	return appErr, ok
}
