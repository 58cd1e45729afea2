package server

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	apperrors "hookah_loyalty_bot/pkg/errors"
	"hookah_loyalty_bot/pkg/metrics"
)

// ErrorResponse единый конверт ошибок для всех эндпоинтов
type ErrorResponse struct {
	Error     string `json:"error"`
	Detail    string `json:"detail,omitempty"`
	Timestamp string `json:"timestamp"`
}

// SuccessResponse ответ эндпоинтов, возвращающих только сообщение
type SuccessResponse struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// writeJSON сериализует ответ с указанным статусом
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Заголовки уже ушли, остается только залогировать
		log.Printf("failed to encode response: %v", err)
	}
}

// writeMessage отвечает успешным сообщением
func writeMessage(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, SuccessResponse{
		Message:   message,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// writeError переводит ошибку приложения в HTTP ответ.
// Внутренние ошибки не раскрывают деталей клиенту
func writeError(w http.ResponseWriter, err error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		appErr = apperrors.ErrStorage.WithError(err)
	}

	metrics.RecordError("http", appErr.Code)

	resp := ErrorResponse{
		Error:     appErr.Message,
		Timestamp: time.Now().Format(time.RFC3339),
	}

	switch appErr.Code {
	case apperrors.CodeStorage, apperrors.CodeUpstream:
		resp.Error = "внутренняя ошибка сервера"
	default:
		if detail, ok := appErr.Context.(string); ok {
			resp.Detail = detail
		} else if m, ok := appErr.Context.(map[string]interface{}); ok {
			if reason, ok := m["reason"].(string); ok {
				resp.Detail = reason
			}
		}
	}

	writeJSON(w, appErr.HTTPStatus(), resp)
}
