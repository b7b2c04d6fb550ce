// Пакет actionclient — HTTP-клиент внешнего обработчика групповых действий.
// Запрос {action_id, filenames, session_id, deposit_id} отправляется POST-ом
// на DM_ACTION_URL. Любой ответ вне 2xx — ошибка действия.
package actionclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/goartstore/deposit-module/internal/service"
)

// maxErrorBody — сколько байт тела ошибки попадает в сообщение.
const maxErrorBody = 512

// Client — HTTP-клиент обработчика действий. Реализует service.ActionHandler.
type Client struct {
	httpClient *http.Client
	actionURL  string
	logger     *slog.Logger
}

// New создаёт клиент обработчика действий.
// caCertPath — путь к CA-сертификату для TLS (пустая строка — стандартный пул).
// timeout — таймаут одного запроса (DM_ACTION_TIMEOUT).
func New(actionURL, caCertPath string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	if actionURL == "" {
		return nil, fmt.Errorf("не задан URL обработчика действий")
	}

	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
	}

	if caCertPath != "" {
		tlsConfig, err := buildTLSConfig(caCertPath)
		if err != nil {
			return nil, fmt.Errorf("загрузка CA-сертификата обработчика действий: %w", err)
		}
		transport.TLSClientConfig = tlsConfig
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		actionURL: strings.TrimRight(actionURL, "/"),
		logger:    logger.With(slog.String("component", "action_client")),
	}, nil
}

// HandleAction отправляет запрос действия внешнему обработчику.
func (c *Client) HandleAction(ctx context.Context, req service.ActionRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("сериализация запроса действия: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.actionURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("создание запроса действия: %w", err)
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)

	resp, err := c.httpClient.Do(httpReq) //nolint:gosec // URL из конфигурации
	if err != nil {
		return fmt.Errorf("запрос к обработчику действий: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn("Обработчик действий отклонил запрос",
			slog.String("request_id", requestID),
			slog.String("action", req.ActionID),
			slog.Int("status", resp.StatusCode),
		)
		return fmt.Errorf("обработчик действий вернул %d: %s",
			resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	c.logger.Debug("Действие принято обработчиком",
		slog.String("request_id", requestID),
		slog.String("action", req.ActionID),
		slog.Int("files", len(req.Filenames)),
	)
	return nil
}

// buildTLSConfig создаёт TLS-конфигурацию с кастомным CA-сертификатом.
func buildTLSConfig(caCertPath string) (*tls.Config, error) {
	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, fmt.Errorf("чтение CA-сертификата: %w", err)
	}

	caCertPool, err := x509.SystemCertPool()
	if err != nil {
		caCertPool = x509.NewCertPool()
	}
	caCertPool.AppendCertsFromPEM(caCert)

	return &tls.Config{
		RootCAs:    caCertPool,
		MinVersion: tls.VersionTLS12,
	}, nil
}
