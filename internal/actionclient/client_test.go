package actionclient

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/bigkaa/goartstore/deposit-module/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// TestNew_EmptyURL проверяет отказ без URL.
func TestNew_EmptyURL(t *testing.T) {
	if _, err := New("", "", time.Second, testLogger()); err == nil {
		t.Error("ожидалась ошибка для пустого URL")
	}
}

// TestNew_MissingCACert проверяет ошибку при отсутствующем CA-сертификате.
func TestNew_MissingCACert(t *testing.T) {
	if _, err := New("https://example.org", "/nonexistent/ca.pem", time.Second, testLogger()); err == nil {
		t.Error("ожидалась ошибка для отсутствующего CA-сертификата")
	}
}

// TestHandleAction_Success проверяет формат запроса.
func TestHandleAction_Success(t *testing.T) {
	var got service.ActionRequest
	var requestID, contentType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("ожидался POST, получен %s", r.Method)
		}
		requestID = r.Header.Get("X-Request-ID")
		contentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("некорректный JSON: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c, err := New(srv.URL+"/", "", 5*time.Second, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	req := service.ActionRequest{
		ActionID:  "archive",
		Filenames: []string{"a.csv", "b.zip"},
		SessionID: "s-1",
		DepositID: "dep-1",
	}
	if err := c.HandleAction(context.Background(), req); err != nil {
		t.Fatalf("HandleAction: %v", err)
	}

	if got.ActionID != "archive" || len(got.Filenames) != 2 || got.DepositID != "dep-1" {
		t.Errorf("неожиданный запрос: %+v", got)
	}
	if requestID == "" {
		t.Error("X-Request-ID не передан")
	}
	if contentType != "application/json" {
		t.Errorf("Content-Type = %q", contentType)
	}
}

// TestHandleAction_Non2xx проверяет, что ответ вне 2xx — ошибка с телом ответа.
func TestHandleAction_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte("deposit is locked\n"))
	}))
	defer srv.Close()

	c, _ := New(srv.URL, "", 5*time.Second, testLogger())
	err := c.HandleAction(context.Background(), service.ActionRequest{ActionID: "delete"})
	if err == nil {
		t.Fatal("ожидалась ошибка")
	}
	if !strings.Contains(err.Error(), "409") || !strings.Contains(err.Error(), "deposit is locked") {
		t.Errorf("сообщение не содержит статус и тело: %v", err)
	}
}

// TestHandleAction_ContextCancelled проверяет отмену через контекст.
func TestHandleAction_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, _ := New(srv.URL, "", 5*time.Second, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.HandleAction(ctx, service.ActionRequest{ActionID: "archive"}); err == nil {
		t.Error("ожидалась ошибка отменённого контекста")
	}
}

// Проверка на этапе компиляции
var _ service.ActionHandler = (*Client)(nil)
