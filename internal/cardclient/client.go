// Пакет cardclient — HTTP-клиент сервиса маршрутных карт.
// Поддерживает TLS с кастомным CA (QC_CARD_SERVICE_CA_PATH).
// Операции: Search (GET /api/cards/search?number=NNNNNN).
package cardclient

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// CardInfo — сведения о маршрутной карте из внешнего сервиса.
type CardInfo struct {
	Number      string `json:"number"`
	ProductName string `json:"product_name,omitempty"`
	Alloy       string `json:"alloy,omitempty"`
	OrderNumber string `json:"order_number,omitempty"`
	IssuedAt    string `json:"issued_at,omitempty"`
}

// Client — HTTP-клиент сервиса маршрутных карт.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// New создаёт клиент сервиса маршрутных карт.
// caCertPath — путь к CA-сертификату для TLS (пустая строка — стандартный пул).
func New(baseURL, caCertPath string, logger *slog.Logger) (*Client, error) {
	httpClient := &http.Client{Timeout: 10 * time.Second}

	if caCertPath != "" {
		tlsConfig, err := buildTLSConfig(caCertPath)
		if err != nil {
			return nil, fmt.Errorf("загрузка CA-сертификата сервиса карт: %w", err)
		}
		httpClient.Transport = &http.Transport{
			TLSClientConfig: tlsConfig,
		}
		logger.Info("CA-сертификат сервиса карт добавлен в пул доверия",
			slog.String("ca_cert", caCertPath),
		)
	}

	return &Client{
		baseURL:    normalizeURL(baseURL),
		httpClient: httpClient,
		logger:     logger.With(slog.String("component", "card_client")),
	}, nil
}

// buildTLSConfig создаёт TLS-конфигурацию с кастомным CA.
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
		RootCAs: caCertPool,
	}, nil
}

// Search ищет маршрутную карту по номеру.
// GET /api/cards/search?number=NNNNNN.
// Возвращает (nil, nil), если карта не найдена (ответ 404).
func (c *Client) Search(ctx context.Context, number string) (*CardInfo, error) {
	reqURL := c.baseURL + "/api/cards/search?number=" + url.QueryEscape(number)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("создание запроса Search: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("запрос Search к %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("сервис карт %s вернул статус %d: %s", c.baseURL, resp.StatusCode, string(body))
	}

	var info CardInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("декодирование ответа сервиса карт: %w", err)
	}

	return &info, nil
}

// normalizeURL убирает trailing slash из URL.
func normalizeURL(rawURL string) string {
	return strings.TrimRight(rawURL, "/")
}
