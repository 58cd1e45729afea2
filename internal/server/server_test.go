package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	botservice "hookah_loyalty_bot/internal/bot/service"
	"hookah_loyalty_bot/internal/loyalty"
	"hookah_loyalty_bot/internal/testutil"
)

func setupTestServer(t *testing.T) *Server {
	t.Helper()

	storage := testutil.SetupTestDB(t)
	cfg := testutil.SetupTestConfig()
	log := testutil.SetupTestLogger()

	loyaltyService := loyalty.NewService(storage, cfg, log, nil)
	botService := botservice.NewService(nil, storage, cfg)

	srv := New(cfg, log, storage, loyaltyService, botService, nil, nil)
	t.Cleanup(func() {
		srv.rateLimiter.Close()
	})

	return srv
}

func doJSON(t *testing.T, srv *Server, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reqBody bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&reqBody).Encode(body); err != nil {
			t.Fatalf("Failed to encode request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &reqBody)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeSummary(t *testing.T, rec *httptest.ResponseRecorder) *loyalty.Summary {
	t.Helper()

	var summary loyalty.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("Failed to decode summary: %v (body: %s)", err, rec.Body.String())
	}
	return &summary
}

func TestHealthEndpoint(t *testing.T) {
	srv := setupTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/health", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var health HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("Failed to decode health response: %v", err)
	}

	if health.Status != "healthy" {
		t.Errorf("Expected healthy status, got %s", health.Status)
	}

	if health.Checks["database"] != "healthy" {
		t.Errorf("Expected healthy database check, got %s", health.Checks["database"])
	}
}

func TestUpdateStocks_Increment(t *testing.T) {
	srv := setupTestServer(t)

	increment := true
	rec := doJSON(t, srv, http.MethodPost, "/api/stocks/12345",
		loyalty.AccrualRequest{IncrementSlot: &increment}, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	summary := decodeSummary(t, rec)
	if summary.Total != 1 || summary.Available != 1 {
		t.Errorf("Expected 1 pending slot, got %+v", summary)
	}
}

func TestUpdateStocks_InvalidID(t *testing.T) {
	srv := setupTestServer(t)

	increment := true
	rec := doJSON(t, srv, http.MethodPost, "/api/stocks/abc",
		loyalty.AccrualRequest{IncrementSlot: &increment}, nil)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", rec.Code)
	}

	var envelope ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("Failed to decode error envelope: %v", err)
	}

	if envelope.Error == "" {
		t.Errorf("Expected non-empty error message")
	}

	if envelope.Timestamp == "" {
		t.Errorf("Expected timestamp in error envelope")
	}
}

func TestUpdateStocks_MissingAction(t *testing.T) {
	srv := setupTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/stocks/12345", map[string]interface{}{}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestGetStocks_CreatesUser(t *testing.T) {
	srv := setupTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/stocks/12345", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	summary := decodeSummary(t, rec)
	if summary.Stocks == nil || summary.Total != 0 {
		t.Errorf("Expected empty summary with non-nil stocks, got %s", rec.Body.String())
	}

	// После запроса сводки профиль существует
	rec = doJSON(t, srv, http.MethodGet, "/api/main/12345", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var profile loyalty.ProfileInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &profile); err != nil {
		t.Fatalf("Failed to decode profile: %v", err)
	}

	if !profile.Registered {
		t.Errorf("Expected user to exist after summary request")
	}
}

func TestProfile_UnknownUser(t *testing.T) {
	srv := setupTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/main/404", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var profile loyalty.ProfileInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &profile); err != nil {
		t.Fatalf("Failed to decode profile: %v", err)
	}

	if profile.Registered {
		t.Errorf("Expected registered=false for unknown user")
	}
}

func TestRegister_FlowAndConflict(t *testing.T) {
	srv := setupTestServer(t)

	payload := RegisterPayload{
		TgID:      111,
		FirstName: "Анна",
		Phone:     "+79001112233",
		Username:  "anna",
	}

	rec := doJSON(t, srv, http.MethodPost, "/api/register", payload, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var resp RegisterResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode register response: %v", err)
	}

	if !resp.Success || resp.User == nil || resp.User.Phone != "+79001112233" {
		t.Errorf("Unexpected register response: %s", rec.Body.String())
	}

	// Другой пользователь с тем же телефоном получает конфликт
	payload.TgID = 222
	payload.Username = "boris"

	rec = doJSON(t, srv, http.MethodPost, "/api/register", payload, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("Expected status 409, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestRedeem_RequiresAdmin(t *testing.T) {
	srv := setupTestServer(t)

	// Без заголовка
	rec := doJSON(t, srv, http.MethodPost, "/redeem/12345", nil, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("Expected status 403 without header, got %d", rec.Code)
	}

	// С заголовком не-администратора
	rec = doJSON(t, srv, http.MethodPost, "/redeem/12345", nil, map[string]string{"X-Telegram-ID": "12345"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("Expected status 403 for non-admin, got %d", rec.Code)
	}
}

func TestRedeem_GrantsSlot(t *testing.T) {
	srv := setupTestServer(t)
	adminHeader := map[string]string{"X-Telegram-ID": "999"}

	rec := doJSON(t, srv, http.MethodPost, "/redeem/12345", nil, adminHeader)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/stocks/12345", nil, nil)
	summary := decodeSummary(t, rec)
	if summary.Total != 1 {
		t.Errorf("Expected 1 pending slot after admin grant, got %d", summary.Total)
	}
}

func TestUseFree_FullCycle(t *testing.T) {
	srv := setupTestServer(t)
	adminHeader := map[string]string{"X-Telegram-ID": "999"}

	// Без награды списывать нечего
	rec := doJSON(t, srv, http.MethodPost, "/use_free/12345", nil, adminHeader)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404 without reward, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	// Пять начислений дают незаполненную награду
	increment := true
	for i := 0; i < 5; i++ {
		rec = doJSON(t, srv, http.MethodPost, "/api/stocks/12345",
			loyalty.AccrualRequest{IncrementSlot: &increment}, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("Failed increment %d: status %d", i+1, rec.Code)
		}
	}

	// Гость отмечает награду заполненной
	filled := 0
	rec = doJSON(t, srv, http.MethodPost, "/api/stocks/12345",
		loyalty.AccrualRequest{FilledSlots: &filled}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Failed to fill slots: status %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodPost, "/use_free/12345", nil, adminHeader)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var resp SuccessResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if resp.Message != fmt.Sprintf("Бесплатный кальян списан, осталось: %d", 0) {
		t.Errorf("Unexpected message: %s", resp.Message)
	}
}

func TestWebhook_NotConfigured(t *testing.T) {
	srv := setupTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/webhook", map[string]interface{}{"update_id": 1}, nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected status 503 without bot, got %d", rec.Code)
	}
}

func TestSendWebAppButton_BotNotConfigured(t *testing.T) {
	srv := setupTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/send_webapp_button/12345", nil, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500 without bot, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	// Детали внешних ошибок не раскрываются клиенту
	var envelope ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("Failed to decode error envelope: %v", err)
	}

	if envelope.Error != "внутренняя ошибка сервера" {
		t.Errorf("Expected generic error message, got %s", envelope.Error)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := setupTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/register", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204 for preflight, got %d", rec.Code)
	}

	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Errorf("Expected CORS headers on preflight response")
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv := setupTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/health", nil, nil)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Errorf("Expected X-Request-ID header on response")
	}

	// Клиентский идентификатор сохраняется
	rec = doJSON(t, srv, http.MethodGet, "/health", nil, map[string]string{"X-Request-ID": "test-id"})
	if got := rec.Header().Get("X-Request-ID"); got != "test-id" {
		t.Errorf("Expected client request ID to be kept, got %s", got)
	}
}
