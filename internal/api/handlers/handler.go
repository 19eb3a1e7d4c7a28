// handler.go — основной обработчик HTTP API QC Module.
// Объединяет доменные обработчики и делегирует запросы в сервисный слой.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/foundry-qc/qc-module/internal/api/errors"
	"github.com/bigkaa/foundry-qc/qc-module/internal/service"
)

// APIHandler — основной обработчик API QC Module.
type APIHandler struct {
	health      *HealthHandler
	shifts      *service.ShiftService
	controls    *service.ControlService
	metrics     *service.MetricsService
	controllers *service.ControllerService
	defects     *service.DefectService
	logger      *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	shifts *service.ShiftService,
	controls *service.ControlService,
	metrics *service.MetricsService,
	controllers *service.ControllerService,
	defects *service.DefectService,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:      health,
		shifts:      shifts,
		controls:    controls,
		metrics:     metrics,
		controllers: controllers,
		defects:     defects,
		logger:      logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// idParam извлекает числовой path-параметр.
// При некорректном значении пишет 400 и возвращает ok=false.
func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		apierrors.ValidationError(w, "Некорректный идентификатор: "+raw)
		return 0, false
	}
	return id, true
}

// queryInt извлекает числовой query-параметр или значение по умолчанию.
func queryInt(r *http.Request, name string, defaultVal int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return defaultVal
	}
	return n
}

// paginationDefaults нормализует параметры пагинации запроса.
func paginationDefaults(r *http.Request) (limit, offset int) {
	limit = queryInt(r, "limit", 100)
	if limit < 1 {
		limit = 1
	}
	if limit > 1000 {
		limit = 1000
	}
	offset = queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// writeServiceError преобразует ошибку сервисного слоя в HTTP-ответ.
// internalMsg — сообщение для 500, не раскрывающее деталей.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, err error, internalMsg string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		apierrors.ValidationErrorDetails(w, "Ошибка валидации входных данных", verr)
	case errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, err.Error())
	case errors.Is(err, service.ErrDuplicateShift), errors.Is(err, service.ErrConflict):
		apierrors.Conflict(w, err.Error())
	case errors.Is(err, service.ErrDuplicateCard):
		apierrors.DuplicateCard(w, err.Error())
	case errors.Is(err, service.ErrInvalidState):
		apierrors.InvalidState(w, err.Error())
	case errors.Is(err, service.ErrCardServiceUnavailable):
		apierrors.CardServiceUnavailable(w, err.Error())
	default:
		h.logger.Error(internalMsg, slog.String("error", err.Error()))
		apierrors.InternalError(w, internalMsg)
	}
}
