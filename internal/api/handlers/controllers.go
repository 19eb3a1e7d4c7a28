// controllers.go — обработчики справочника контролёров ОТК.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	apierrors "github.com/bigkaa/foundry-qc/qc-module/internal/api/errors"
	"github.com/bigkaa/foundry-qc/qc-module/internal/domain/model"
)

// controllerResponse — представление контролёра в API.
type controllerResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
}

// mapController преобразует модель контролёра в API-представление.
func mapController(c *model.Controller) controllerResponse {
	return controllerResponse{
		ID:        c.ID,
		Name:      c.Name,
		IsActive:  c.IsActive,
		CreatedAt: c.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// ListControllers — GET /api/v1/controllers.
// active_only=true — только активные контролёры.
func (h *APIHandler) ListControllers(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active_only") == "true"

	list, err := h.controllers.List(r.Context(), activeOnly)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка получения списка контролёров")
		return
	}

	items := make([]controllerResponse, len(list))
	for i, c := range list {
		items[i] = mapController(c)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// createControllerRequest — тело POST /api/v1/controllers.
type createControllerRequest struct {
	Name string `json:"name"`
}

// CreateController — POST /api/v1/controllers.
func (h *APIHandler) CreateController(w http.ResponseWriter, r *http.Request) {
	var req createControllerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	c, err := h.controllers.Create(r.Context(), req.Name)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка добавления контролёра")
		return
	}
	writeJSON(w, http.StatusCreated, mapController(c))
}

// DeactivateController — DELETE /api/v1/controllers/{id}.
// Мягкое удаление: имя остаётся в исторических записях смен.
func (h *APIHandler) DeactivateController(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.controllers.Deactivate(r.Context(), id); err != nil {
		h.writeServiceError(w, err, "Ошибка деактивации контролёра")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ActivateController — POST /api/v1/controllers/{id}/activate.
// Восстанавливает контролёра в справочнике.
func (h *APIHandler) ActivateController(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.controllers.Activate(r.Context(), id); err != nil {
		h.writeServiceError(w, err, "Ошибка активации контролёра")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
