package cardclient

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// setupMockCardService создаёт mock HTTP-сервер маршрутных карт.
func setupMockCardService(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

// TestClient_Search проверяет Search (GET /api/cards/search).
func TestClient_Search(t *testing.T) {
	server := setupMockCardService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/cards/search" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if r.URL.Query().Get("number") != "123456" {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(CardInfo{
			Number:      "123456",
			ProductName: "Корпус насоса",
			Alloy:       "АК7ч",
			OrderNumber: "З-2026-041",
		})
	})

	client, err := New(server.URL, "", testLogger())
	if err != nil {
		t.Fatal(err)
	}

	info, err := client.Search(context.Background(), "123456")
	if err != nil {
		t.Fatalf("Ошибка Search: %v", err)
	}
	if info == nil {
		t.Fatal("ожидался info != nil")
	}
	if info.Number != "123456" {
		t.Errorf("ожидался Number=123456, получен %s", info.Number)
	}
	if info.ProductName != "Корпус насоса" {
		t.Errorf("ожидался ProductName=Корпус насоса, получен %s", info.ProductName)
	}
}

// TestClient_Search_NotFound проверяет ответ 404 — карта не найдена.
func TestClient_Search_NotFound(t *testing.T) {
	server := setupMockCardService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	client, err := New(server.URL, "", testLogger())
	if err != nil {
		t.Fatal(err)
	}

	info, err := client.Search(context.Background(), "000000")
	if err != nil {
		t.Fatalf("Ошибка Search: %v", err)
	}
	if info != nil {
		t.Errorf("ожидался nil для ненайденной карты, получен %+v", info)
	}
}

// TestClient_Search_Error проверяет обработку ошибок сервиса.
func TestClient_Search_Error(t *testing.T) {
	server := setupMockCardService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("service unavailable"))
	})

	client, err := New(server.URL, "", testLogger())
	if err != nil {
		t.Fatal(err)
	}

	_, err = client.Search(context.Background(), "123456")
	if err == nil {
		t.Fatal("ожидалась ошибка, получен nil")
	}
}

// TestClient_Search_Unreachable проверяет обработку недоступного сервиса.
func TestClient_Search_Unreachable(t *testing.T) {
	client, err := New("http://localhost:1", "", testLogger())
	if err != nil {
		t.Fatal(err)
	}

	_, err = client.Search(context.Background(), "123456")
	if err == nil {
		t.Fatal("ожидалась ошибка, получен nil")
	}
}

// TestNormalizeURL проверяет normalizeURL.
func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"https://cards.zavod.lan", "https://cards.zavod.lan"},
		{"https://cards.zavod.lan/", "https://cards.zavod.lan"},
		{"http://localhost:9010///", "http://localhost:9010"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := normalizeURL(tt.input)
			if result != tt.expected {
				t.Errorf("ожидалось %q, получено %q", tt.expected, result)
			}
		})
	}
}
