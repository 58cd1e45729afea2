package loyalty

import (
	"context"
	"errors"
	"strconv"

	"hookah_loyalty_bot/internal/config"
	"hookah_loyalty_bot/internal/storage"
	"hookah_loyalty_bot/internal/storage/models"
	"hookah_loyalty_bot/internal/storage/sqlite"
	"hookah_loyalty_bot/internal/validation"
	apperrors "hookah_loyalty_bot/pkg/errors"
	"hookah_loyalty_bot/pkg/logger"
	"hookah_loyalty_bot/pkg/metrics"
)

// MirrorEvent описывает событие начисления для зеркалирования в таблицу
type MirrorEvent struct {
	TgID     int64  `json:"tg_id"`
	Username string `json:"username"`
	Action   string `json:"action"`
	Value    string `json:"value"`
}

// Mirror принимает события начислений. Доставка best-effort:
// реализация не должна блокировать вызывающий код
type Mirror interface {
	Notify(event MirrorEvent)
}

// Summary описывает текущее состояние кассы лояльности пользователя.
// Total и Available намеренно равны: оба означают количество
// незаполненных слотов, дублирование сохранено для совместимости
// с клиентом мини-приложения
type Summary struct {
	Stocks    []*models.Stock `json:"stocks"`
	Total     int             `json:"total"`
	Completed int             `json:"completed"`
	Available int             `json:"available"`
}

// AccrualRequest описывает действие клиента над слотами.
// Указатели различают отсутствующее поле и нулевое значение
type AccrualRequest struct {
	IncrementSlot *bool `json:"incrementSlot"`
	FilledSlots   *int  `json:"filledSlots"`
}

// Service реализует бизнес-логику программы лояльности
type Service struct {
	storage storage.Storage
	cfg     *config.Config
	log     *logger.FieldLogger
	mirror  Mirror
	locks   *userLocks
}

// NewService создает сервис лояльности. mirror может быть nil,
// тогда события начислений никуда не отправляются
func NewService(st storage.Storage, cfg *config.Config, log *logger.Logger, mirror Mirror) *Service {
	return &Service{
		storage: st,
		cfg:     cfg,
		log:     log.WithFields(logger.String("component", "loyalty")),
		mirror:  mirror,
		locks:   newUserLocks(),
	}
}

// Accrue применяет действие клиента к слотам пользователя.
// При одновременной передаче incrementSlot и filledSlots выполняется
// ветка инкремента; отсутствие обоих полей — ошибка клиента
func (s *Service) Accrue(ctx context.Context, tgID int64, req AccrualRequest) (*Summary, error) {
	switch {
	case req.IncrementSlot != nil && *req.IncrementSlot:
		return s.Increment(ctx, tgID)
	case req.FilledSlots != nil:
		return s.SetFilled(ctx, tgID, *req.FilledSlots)
	default:
		return nil, apperrors.ErrMissingAction
	}
}

// Increment начисляет пользователю один оплаченный слот. Начисление,
// доводящее кассу до лимита, завершает цикл: оно записывается сразу
// заполненным, все незаполненные слоты помечаются заполненными и
// начисляется незаполненный слот-награда, который пользователь отмечает
// отдельно, как и оплаченные
func (s *Service) Increment(ctx context.Context, tgID int64) (*Summary, error) {
	unlock := s.locks.Lock(tgID)
	defer unlock()

	user, err := s.storage.GetOrCreateUser(ctx, tgID)
	if err != nil {
		return nil, s.storageError("increment", tgID, err)
	}

	pending, err := s.storage.GetPendingStocks(ctx, user.ID)
	if err != nil {
		return nil, s.storageError("increment", tgID, err)
	}

	if len(pending)+1 >= s.cfg.Loyalty.MaxSlots {
		completed, _, err := s.storage.RolloverPending(ctx, user.ID, s.cfg.Loyalty.PaidTitle, s.cfg.Loyalty.FreeTitle)
		if err != nil {
			return nil, s.storageError("increment", tgID, err)
		}

		metrics.RecordSlotAccrued("free")
		s.log.Info("Cycle completed, free reward granted",
			logger.Int64("tg_id", tgID),
			logger.Int64("flushed", completed),
		)
	} else {
		if _, err := s.storage.AddStock(ctx, user.ID, s.cfg.Loyalty.PaidTitle, false); err != nil {
			return nil, s.storageError("increment", tgID, err)
		}

		metrics.RecordSlotAccrued("paid")
		s.log.Info("Paid slot accrued",
			logger.Int64("tg_id", tgID),
			logger.Int("pending", len(pending)+1),
		)
	}

	s.notifyMirror(user, "incrementSlot", "")

	return s.summary(ctx, user.ID)
}

// SetFilled помечает все незаполненные слоты пользователя заполненными.
// Значение filledSlots от клиента принимается, но игнорируется:
// источник истины — текущее состояние кассы, а не число из запроса
func (s *Service) SetFilled(ctx context.Context, tgID int64, filledSlots int) (*Summary, error) {
	unlock := s.locks.Lock(tgID)
	defer unlock()

	user, err := s.storage.GetOrCreateUser(ctx, tgID)
	if err != nil {
		return nil, s.storageError("set_filled", tgID, err)
	}

	affected, err := s.storage.CompleteAllPending(ctx, user.ID)
	if err != nil {
		return nil, s.storageError("set_filled", tgID, err)
	}

	metrics.SlotsFilled.Add(float64(affected))
	s.log.Info("Pending slots marked filled",
		logger.Int64("tg_id", tgID),
		logger.Int64("affected", affected),
	)

	s.notifyMirror(user, "setFilled", strconv.Itoa(filledSlots))

	return s.summary(ctx, user.ID)
}

// Summary возвращает текущее состояние кассы, создавая пользователя
// при первом обращении
func (s *Service) Summary(ctx context.Context, tgID int64) (*Summary, error) {
	user, err := s.storage.GetOrCreateUser(ctx, tgID)
	if err != nil {
		return nil, s.storageError("summary", tgID, err)
	}

	return s.summary(ctx, user.ID)
}

// ProfileInfo описывает профиль пользователя для мини-приложения
type ProfileInfo struct {
	Registered      bool         `json:"registered"`
	CompletedStocks int          `json:"completedStocks"`
	User            *models.User `json:"user,omitempty"`
}

// Profile возвращает профиль и счетчик заполненных слотов.
// Пользователь при этом не создается: для неизвестного ID
// возвращается registered=false, а не ошибка
func (s *Service) Profile(ctx context.Context, tgID int64) (*ProfileInfo, error) {
	user, err := s.storage.GetUserByTelegramID(ctx, tgID)
	if err != nil {
		return nil, s.storageError("profile", tgID, err)
	}

	if user == nil {
		return &ProfileInfo{Registered: false, CompletedStocks: 0}, nil
	}

	completed, err := s.storage.CountCompletedStocks(ctx, user.ID)
	if err != nil {
		return nil, s.storageError("profile", tgID, err)
	}

	return &ProfileInfo{
		Registered:      true,
		CompletedStocks: completed,
		User:            user,
	}, nil
}

// Register идемпотентно создает или обновляет профиль пользователя.
// Телефон, если указан, должен быть свободен: занятый другим аккаунтом
// номер — конфликт, и ничего не изменяется
func (s *Service) Register(ctx context.Context, tgID int64, firstName, lastName, phone, username string) (*models.User, error) {
	if tgID <= 0 {
		return nil, apperrors.ErrInvalidTelegramID
	}
	if err := validation.ValidateName(firstName); err != nil {
		return nil, err
	}
	if err := validation.ValidateName(lastName); err != nil {
		return nil, err
	}
	if err := validation.ValidateUsername(username); err != nil {
		return nil, err
	}

	normalizedPhone, err := validation.NormalizePhone(phone)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(tgID)
	defer unlock()

	self, err := s.storage.GetUserByTelegramID(ctx, tgID)
	if err != nil {
		return nil, s.storageError("register", tgID, err)
	}

	if normalizedPhone != "" {
		owner, err := s.storage.GetUserByPhone(ctx, normalizedPhone)
		if err != nil {
			return nil, s.storageError("register", tgID, err)
		}
		if owner != nil && (self == nil || owner.ID != self.ID) {
			metrics.RegistrationConflicts.Inc()
			return nil, apperrors.ErrPhoneAlreadyUsed.WithContext(map[string]interface{}{
				"tg_id": tgID,
			})
		}
	}

	if self == nil {
		self = &models.User{
			TgID:      tgID,
			Username:  username,
			FirstName: firstName,
			LastName:  lastName,
			Phone:     normalizedPhone,
		}
		err = s.storage.CreateUser(ctx, self)
	} else {
		self.Username = username
		self.FirstName = firstName
		self.LastName = lastName
		self.Phone = normalizedPhone
		err = s.storage.UpdateUserProfile(ctx, self)
	}

	if err != nil {
		// Гонка с параллельной регистрацией того же номера: уникальный
		// индекс сработал после нашей проверки. Для клиента это тот же
		// конфликт, что и обнаруженный заранее
		if errors.Is(err, sqlite.ErrPhoneConflict) {
			metrics.RegistrationConflicts.Inc()
			return nil, apperrors.ErrPhoneAlreadyUsed.WithError(err)
		}
		return nil, s.storageError("register", tgID, err)
	}

	metrics.UserRegistrations.Inc()
	s.log.Info("User profile registered",
		logger.Int64("tg_id", tgID),
		logger.String("username", username),
	)

	return self, nil
}

// GrantSlot начисляет гостю один слот. Используется администратором
// на кассе вместо физической печати на карте
func (s *Service) GrantSlot(ctx context.Context, guestTgID int64) (*Summary, error) {
	return s.Increment(ctx, guestTgID)
}

// RedeemFreeReward списывает один заполненный слот-награду гостя.
// Возвращает количество оставшихся наград. Для гостя без наград — ошибка
func (s *Service) RedeemFreeReward(ctx context.Context, guestTgID int64) (int, error) {
	unlock := s.locks.Lock(guestTgID)
	defer unlock()

	user, err := s.storage.GetUserByTelegramID(ctx, guestTgID)
	if err != nil {
		return 0, s.storageError("redeem", guestTgID, err)
	}
	if user == nil {
		return 0, apperrors.ErrUserNotFound
	}

	used, err := s.storage.UseFreeStock(ctx, user.ID, s.cfg.Loyalty.FreeTitle)
	if err != nil {
		return 0, s.storageError("redeem", guestTgID, err)
	}
	if !used {
		return 0, apperrors.ErrNoFreeReward
	}

	metrics.FreeRewardsRedeemed.Inc()

	remaining, err := s.storage.CountCompletedStocksByTitle(ctx, user.ID, s.cfg.Loyalty.FreeTitle)
	if err != nil {
		return 0, s.storageError("redeem", guestTgID, err)
	}

	s.log.Info("Free reward redeemed",
		logger.Int64("tg_id", guestTgID),
		logger.Int("remaining", remaining),
	)

	return remaining, nil
}

// summary собирает сводку по уже известному внутреннему ID пользователя
func (s *Service) summary(ctx context.Context, userID int64) (*Summary, error) {
	pending, err := s.storage.GetPendingStocks(ctx, userID)
	if err != nil {
		return nil, apperrors.ErrStorage.WithError(err)
	}

	completed, err := s.storage.CountCompletedStocks(ctx, userID)
	if err != nil {
		return nil, apperrors.ErrStorage.WithError(err)
	}

	if pending == nil {
		pending = []*models.Stock{}
	}

	return &Summary{
		Stocks:    pending,
		Total:     len(pending),
		Completed: completed,
		Available: len(pending),
	}, nil
}

// notifyMirror отправляет событие начисления в таблицу, если зеркало настроено
func (s *Service) notifyMirror(user *models.User, action, value string) {
	if s.mirror == nil {
		return
	}

	s.mirror.Notify(MirrorEvent{
		TgID:     user.TgID,
		Username: user.Username,
		Action:   action,
		Value:    value,
	})
}

// storageError логирует ошибку хранилища и возвращает ее клиентское представление
func (s *Service) storageError(op string, tgID int64, err error) error {
	metrics.RecordDatabaseOperation(op, "error")
	s.log.Error("Storage operation failed",
		logger.String("operation", op),
		logger.Int64("tg_id", tgID),
		logger.Error(err),
	)
	return apperrors.ErrStorage.WithError(err)
}
