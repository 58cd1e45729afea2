package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"hookah_loyalty_bot/internal/loyalty"
	"hookah_loyalty_bot/internal/storage/models"
	"hookah_loyalty_bot/internal/validation"
	apperrors "hookah_loyalty_bot/pkg/errors"
	"hookah_loyalty_bot/pkg/logger"
)

// mutationTimeout ограничивает операции записи. Контекст запроса
// не используется напрямую: отключившийся клиент не должен оборвать
// последовательность проверка-запись на середине
const mutationTimeout = 10 * time.Second

// RegisterPayload тело запроса регистрации профиля
type RegisterPayload struct {
	TgID      int64  `json:"tg_id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	Username  string `json:"username"`
}

// RegisterResponse ответ на регистрацию профиля
type RegisterResponse struct {
	Success bool         `json:"success"`
	User    *models.User `json:"user"`
}

// mutationContext отвязывает мутацию от отмены клиентского запроса
func mutationContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(r.Context()), mutationTimeout)
}

// pathTelegramID извлекает и валидирует Telegram ID из пути запроса
func pathTelegramID(r *http.Request, name string) (int64, error) {
	return validation.ValidateTelegramID(r.PathValue(name))
}

// handleUpdateStocks обрабатывает POST /api/stocks/{tg_id}:
// начисление слота или отметку заполненных
func (s *Server) handleUpdateStocks(w http.ResponseWriter, r *http.Request) {
	tgID, err := pathTelegramID(r, "tg_id")
	if err != nil {
		writeError(w, err)
		return
	}

	var req loyalty.AccrualRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ErrMissingAction.WithError(err).WithContext("некорректное тело запроса"))
		return
	}

	ctx, cancel := mutationContext(r)
	defer cancel()

	summary, err := s.loyalty.Accrue(ctx, tgID, req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// handleGetStocks обрабатывает GET /api/stocks/{tg_id}: текущая сводка.
// Неизвестный пользователь создается, это поведение мини-приложения
func (s *Server) handleGetStocks(w http.ResponseWriter, r *http.Request) {
	tgID, err := pathTelegramID(r, "tg_id")
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := mutationContext(r)
	defer cancel()

	summary, err := s.loyalty.Summary(ctx, tgID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// handleProfile обрабатывает GET /api/main/{tg_id}: профиль и счетчик
// заполненных слотов. Пользователь не создается; для неизвестного ID
// возвращается registered=false
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	tgID, err := pathTelegramID(r, "tg_id")
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), mutationTimeout)
	defer cancel()

	profile, err := s.loyalty.Profile(ctx, tgID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// handleRegister обрабатывает POST /api/register
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var payload RegisterPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apperrors.New(apperrors.CodeInvalidInput, "некорректное тело запроса").WithError(err))
		return
	}

	ctx, cancel := mutationContext(r)
	defer cancel()

	user, err := s.loyalty.Register(ctx, payload.TgID, payload.FirstName, payload.LastName, payload.Phone, payload.Username)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, RegisterResponse{
		Success: true,
		User:    user,
	})
}

// adminTelegramID проверяет заголовок X-Telegram-ID по списку администраторов
func (s *Server) adminTelegramID(r *http.Request) (int64, error) {
	header := r.Header.Get("X-Telegram-ID")
	adminID, err := strconv.ParseInt(header, 10, 64)
	if err != nil || !s.config.IsAdmin(adminID) {
		return 0, apperrors.ErrNotAdmin
	}
	return adminID, nil
}

// handleRedeem обрабатывает /redeem/{tg_id}: администратор начисляет
// гостю один слот
func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	adminID, err := s.adminTelegramID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	guestTgID, err := pathTelegramID(r, "tg_id")
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := mutationContext(r)
	defer cancel()

	if _, err := s.loyalty.GrantSlot(ctx, guestTgID); err != nil {
		writeError(w, err)
		return
	}

	s.logger.Info("Admin granted slot",
		logger.Int64("admin_id", adminID),
		logger.Int64("guest_tg_id", guestTgID),
	)

	writeMessage(w, fmt.Sprintf("Слот добавлен пользователю %d", guestTgID))
}

// handleUseFree обрабатывает /use_free/{tg_id}: администратор списывает
// у гостя один бесплатный кальян
func (s *Server) handleUseFree(w http.ResponseWriter, r *http.Request) {
	adminID, err := s.adminTelegramID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	guestTgID, err := pathTelegramID(r, "tg_id")
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := mutationContext(r)
	defer cancel()

	remaining, err := s.loyalty.RedeemFreeReward(ctx, guestTgID)
	if err != nil {
		writeError(w, err)
		return
	}

	s.logger.Info("Admin redeemed free reward",
		logger.Int64("admin_id", adminID),
		logger.Int64("guest_tg_id", guestTgID),
	)

	writeMessage(w, fmt.Sprintf("Бесплатный кальян списан, осталось: %d", remaining))
}

// handleSendWebAppButton обрабатывает POST /send_webapp_button/{chat_id}:
// отправляет в чат кнопку мини-приложения. Используется внешними
// интеграциями; сам бот отправляет кнопку напрямую из обработчика /start
func (s *Server) handleSendWebAppButton(w http.ResponseWriter, r *http.Request) {
	chatID, err := pathTelegramID(r, "chat_id")
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), mutationTimeout)
	defer cancel()

	if err := s.botService.SendWebAppButton(ctx, chatID); err != nil {
		s.logger.Error("Failed to send webapp button",
			logger.Int64("chat_id", chatID),
			logger.Error(err),
		)
		writeError(w, err)
		return
	}

	writeMessage(w, "Кнопка отправлена")
}
