package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hookah_loyalty_bot/internal/loyalty"
	"hookah_loyalty_bot/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.LevelDebug)
}

func TestNew_EmptyURL(t *testing.T) {
	// Пустой URL выключает зеркалирование
	if client := New("", 2*time.Second, testLogger()); client != nil {
		t.Errorf("Expected nil client for empty URL")
	}
}

func TestSend_DeliversPayload(t *testing.T) {
	received := make(chan payload, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p payload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Errorf("Failed to decode payload: %v", err)
		}
		received <- p
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(server.URL, 2*time.Second, testLogger())
	if client == nil {
		t.Fatalf("Expected client to be created")
	}

	event := loyalty.MirrorEvent{
		TgID:     12345,
		Username: "anna",
		Action:   "incrementSlot",
		Value:    "",
	}

	if err := client.send(context.Background(), event); err != nil {
		t.Fatalf("Failed to send event: %v", err)
	}

	select {
	case p := <-received:
		if p.TgID != 12345 || p.Username != "anna" || p.Action != "incrementSlot" {
			t.Errorf("Unexpected payload: %+v", p)
		}
		if p.Timestamp == "" {
			t.Errorf("Expected timestamp in payload")
		}
	case <-time.After(time.Second):
		t.Fatalf("Payload was not delivered")
	}
}

func TestSend_RedirectIsSuccess(t *testing.T) {
	// Apps Script отвечает редиректом, это не ошибка доставки
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusFound)
	}))
	defer server.Close()

	client := New(server.URL, 2*time.Second, testLogger())
	err := client.send(context.Background(), loyalty.MirrorEvent{TgID: 1, Action: "setFilled"})
	if err != nil {
		t.Errorf("Expected redirect to be treated as success, got %v", err)
	}
}

func TestSend_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(server.URL, 2*time.Second, testLogger())
	err := client.send(context.Background(), loyalty.MirrorEvent{TgID: 1, Action: "incrementSlot"})
	if err == nil {
		t.Errorf("Expected error for server error response")
	}
}

func TestNotify_DoesNotBlock(t *testing.T) {
	done := make(chan struct{}, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		done <- struct{}{}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(server.URL, 2*time.Second, testLogger())

	// Notify возвращается сразу, доставка идет в фоне
	client.Notify(loyalty.MirrorEvent{TgID: 12345, Action: "incrementSlot"})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Event was not delivered in background")
	}
}
