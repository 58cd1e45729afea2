package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики сервиса лояльности
var (
	// Метрики слотов
	SlotsAccrued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loyalty_slots_accrued_total",
			Help: "Общее количество начисленных слотов",
		},
		[]string{"kind"}, // paid, free
	)

	SlotsFilled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loyalty_slots_filled_total",
			Help: "Общее количество слотов, отмеченных заполненными",
		},
	)

	FreeRewardsRedeemed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loyalty_free_rewards_redeemed_total",
			Help: "Общее количество списанных бесплатных кальянов",
		},
	)

	// Метрики пользователей
	UsersCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loyalty_users_created_total",
			Help: "Общее количество созданных пользователей",
		},
	)

	UserRegistrations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loyalty_user_registrations_total",
			Help: "Общее количество регистраций профилей",
		},
	)

	RegistrationConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loyalty_registration_conflicts_total",
			Help: "Общее количество конфликтов по номеру телефона",
		},
	)

	// Метрики внешних систем
	SheetsEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loyalty_sheets_events_total",
			Help: "Общее количество событий, отправленных в таблицу",
		},
		[]string{"status"}, // ok, failed
	)

	BotMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loyalty_bot_messages_total",
			Help: "Общее количество сообщений, отправленных ботом",
		},
		[]string{"status"},
	)

	// Метрики базы данных
	DatabaseOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loyalty_database_operations_total",
			Help: "Общее количество операций с базой данных",
		},
		[]string{"operation", "status"},
	)

	// Метрики ошибок
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loyalty_errors_total",
			Help: "Общее количество ошибок",
		},
		[]string{"component", "code"},
	)

	// Метрики HTTP сервера
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loyalty_http_requests_total",
			Help: "Общее количество HTTP запросов",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "loyalty_http_request_duration_seconds",
			Help:    "Время обработки HTTP запросов в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Метрики производительности
	MemoryUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "loyalty_memory_usage_bytes",
			Help: "Использование памяти в байтах",
		},
	)

	GoroutinesCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "loyalty_goroutines_count",
			Help: "Количество активных горутин",
		},
	)
)

// RecordSlotAccrued записывает метрику начисления слота
func RecordSlotAccrued(kind string) {
	SlotsAccrued.WithLabelValues(kind).Inc()
}

// RecordSheetsEvent записывает метрику отправки события в таблицу
func RecordSheetsEvent(status string) {
	SheetsEvents.WithLabelValues(status).Inc()
}

// RecordBotMessage записывает метрику отправки сообщения ботом
func RecordBotMessage(status string) {
	BotMessages.WithLabelValues(status).Inc()
}

// RecordDatabaseOperation записывает метрику операции с БД
func RecordDatabaseOperation(operation, status string) {
	DatabaseOperations.WithLabelValues(operation, status).Inc()
}

// RecordError записывает метрику ошибки
func RecordError(component, code string) {
	ErrorsTotal.WithLabelValues(component, code).Inc()
}

// RecordHTTPRequest записывает метрику HTTP запроса
func RecordHTTPRequest(method, endpoint, status string) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
}
