package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/goartstore/deposit-module/internal/config"
)

type pingRoutes struct{}

func (pingRoutes) Routes(r chi.Router) {
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("pong"))
	})
}

func testConfig() *config.Config {
	return &config.Config{
		Port:            0,
		HTTPReadTimeout: time.Second,
		HTTPIdleTimeout: time.Second,
		ShutdownTimeout: time.Second,
	}
}

func TestNew_RoutesAndMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var order []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	srv := New(testConfig(), logger, pingRoutes{}, mw("first"), mw("second"))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "pong" {
		t.Fatalf("Ожидался 200 pong, получено %d %q", rec.Code, rec.Body.String())
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("Неверный порядок middleware: %v", order)
	}
}

func TestNew_TLSConfig(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := testConfig()
	cfg.TLSCert = "/etc/tls/tls.crt"
	cfg.TLSKey = "/etc/tls/tls.key"

	srv := New(cfg, logger, pingRoutes{})
	if srv.httpServer.TLSConfig == nil {
		t.Fatal("TLSConfig должен быть задан при наличии сертификата")
	}
}

func TestRunContext_GracefulShutdown(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(testConfig(), logger, pingRoutes{})

	var shutdownCalled atomic.Bool
	srv.OnShutdown(func() { shutdownCalled.Store(true) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.RunContext(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Неожиданная ошибка: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Сервер не остановился")
	}

	// RegisterOnShutdown вызывает функции в отдельной горутине
	deadline := time.Now().Add(time.Second)
	for !shutdownCalled.Load() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if !shutdownCalled.Load() {
		t.Error("Функция OnShutdown не вызвана")
	}
}
