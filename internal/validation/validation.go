package validation

import (
	"strconv"
	"strings"

	"hookah_loyalty_bot/pkg/errors"
)

// ValidateTelegramID валидирует Telegram ID из строки пути
func ValidateTelegramID(idStr string) (int64, error) {
	if idStr == "" {
		return 0, errors.ErrInvalidTelegramID.WithContext("Telegram ID не может быть пустым")
	}

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return 0, errors.ErrInvalidTelegramID.WithError(err).WithContext(map[string]interface{}{
			"input": idStr,
		})
	}

	if id <= 0 {
		return 0, errors.ErrInvalidTelegramID.WithContext(map[string]interface{}{
			"input":  idStr,
			"reason": "Telegram ID должен быть положительным числом",
		})
	}

	return id, nil
}

// NormalizePhone приводит номер телефона к хранимому виду и валидирует его.
// Пустой номер допустим: профиль можно зарегистрировать без телефона.
func NormalizePhone(phone string) (string, error) {
	trimmed := strings.TrimSpace(phone)
	if trimmed == "" {
		return "", nil
	}

	if len(trimmed) < 5 {
		return "", errors.ErrInvalidPhoneNumber.WithContext(map[string]interface{}{
			"phone":  phone,
			"reason": "номер слишком короткий (минимум 5 символов)",
		})
	}

	// Допускаем только цифры и типографику номера
	digits := strings.NewReplacer("+", "", "-", "", " ", "", "(", "", ")", "").Replace(trimmed)
	if digits == "" || !isDigits(digits) {
		return "", errors.ErrInvalidPhoneNumber.WithContext(map[string]interface{}{
			"phone":  phone,
			"reason": "номер содержит недопустимые символы",
		})
	}

	return trimmed, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ValidateName валидирует имя или фамилию пользователя
func ValidateName(name string) error {
	if len(name) > 128 {
		return errors.New(errors.CodeInvalidInput, "имя слишком длинное (максимум 128 символов)")
	}
	return nil
}

// ValidateUsername валидирует Telegram username
func ValidateUsername(username string) error {
	if len(username) > 64 {
		return errors.New(errors.CodeInvalidInput, "username слишком длинный (максимум 64 символа)")
	}
	return nil
}
