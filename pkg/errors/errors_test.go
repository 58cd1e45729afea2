package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_Is(t *testing.T) {
	// Контекст и обернутая ошибка не меняют идентичность
	err := ErrPhoneAlreadyUsed.WithContext(map[string]interface{}{"tg_id": int64(1)})
	if !stderrors.Is(err, ErrPhoneAlreadyUsed) {
		t.Errorf("Expected errors.Is to match after WithContext")
	}

	wrapped := fmt.Errorf("register failed: %w", ErrUserNotFound.WithError(stderrors.New("no rows")))
	if !stderrors.Is(wrapped, ErrUserNotFound) {
		t.Errorf("Expected errors.Is to match through wrapping")
	}

	if stderrors.Is(ErrUserNotFound, ErrNoFreeReward) {
		t.Errorf("Expected different errors not to match")
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := stderrors.New("disk is full")
	err := ErrStorage.WithError(cause)

	if !stderrors.Is(err, cause) {
		t.Errorf("Expected cause to be reachable through Unwrap")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{ErrInvalidTelegramID, http.StatusBadRequest},
		{ErrPhoneAlreadyUsed, http.StatusConflict},
		{ErrUserNotFound, http.StatusNotFound},
		{ErrNoFreeReward, http.StatusNotFound},
		{ErrNotAdmin, http.StatusForbidden},
		{ErrStorage, http.StatusInternalServerError},
		{ErrTelegramAPI, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := tt.err.HTTPStatus(); got != tt.want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", tt.err.Code, got, tt.want)
		}
	}
}

func TestAsAppError(t *testing.T) {
	appErr, ok := AsAppError(fmt.Errorf("wrapped: %w", ErrNotAdmin))
	if !ok {
		t.Fatalf("Expected AsAppError to find AppError")
	}

	if appErr.Code != CodeForbidden {
		t.Errorf("Expected FORBIDDEN code, got %s", appErr.Code)
	}

	if _, ok := AsAppError(stderrors.New("plain error")); ok {
		t.Errorf("Expected plain error not to be AppError")
	}
}
