package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"hookah_loyalty_bot/internal/loyalty"
	"hookah_loyalty_bot/pkg/logger"
	"hookah_loyalty_bot/pkg/metrics"
)

// payload описывает строку, которую Apps Script дописывает в таблицу
type payload struct {
	TgID      int64  `json:"tg_id"`
	Username  string `json:"username"`
	Timestamp string `json:"timestamp"`
	Action    string `json:"action"`
	Value     string `json:"value"`
}

// Client отправляет события начислений в Google Таблицу через Apps Script.
// Доставка best-effort: ошибки логируются и никогда не доходят до гостя
type Client struct {
	url     string
	timeout time.Duration
	client  *http.Client
	log     *logger.FieldLogger
}

// New создает клиент зеркалирования. При пустом URL возвращает nil:
// сервис лояльности трактует nil-зеркало как выключенное
func New(url string, timeout time.Duration, log *logger.Logger) *Client {
	if url == "" {
		return nil
	}

	return &Client{
		url:     url,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
		log:     log.WithFields(logger.String("component", "sheets")),
	}
}

// Notify отправляет событие в таблицу в отдельной горутине.
// Контекст запроса не используется: отключение клиента не должно
// отменять запись уже выполненной мутации
func (c *Client) Notify(event loyalty.MirrorEvent) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()

		if err := c.send(ctx, event); err != nil {
			metrics.RecordSheetsEvent("failed")
			c.log.Warn("Failed to mirror event to spreadsheet",
				logger.Int64("tg_id", event.TgID),
				logger.String("action", event.Action),
				logger.Error(err),
			)
			return
		}

		metrics.RecordSheetsEvent("ok")
	}()
}

// send выполняет один POST к Apps Script
func (c *Client) send(ctx context.Context, event loyalty.MirrorEvent) error {
	body, err := json.Marshal(payload{
		TgID:      event.TgID,
		Username:  event.Username,
		Timestamp: time.Now().Format(time.RFC3339),
		Action:    event.Action,
		Value:     event.Value,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post event: %w", err)
	}
	defer resp.Body.Close()

	// Apps Script отвечает редиректом на страницу результата,
	// поэтому успехом считаем любой не-серверный статус
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("apps script returned status %d", resp.StatusCode)
	}

	return nil
}
