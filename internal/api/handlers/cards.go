// cards.go — обработчик поиска маршрутных карт во внешнем сервисе.
package handlers

import (
	"net/http"

	apierrors "github.com/bigkaa/foundry-qc/qc-module/internal/api/errors"
)

// SearchCard — GET /api/v1/cards/search?number=NNNNNN.
// Ищет маршрутную карту во внешнем сервисе литейного производства.
// Карта не найдена — 404. Сервис недоступен или не настроен — 502.
func (h *APIHandler) SearchCard(w http.ResponseWriter, r *http.Request) {
	number := r.URL.Query().Get("number")
	if number == "" {
		apierrors.ValidationError(w, "Параметр number обязателен")
		return
	}

	info, err := h.controls.SearchCard(r.Context(), number)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка поиска маршрутной карты")
		return
	}
	if info == nil {
		apierrors.NotFound(w, "Маршрутная карта "+number+" не найдена")
		return
	}

	writeJSON(w, http.StatusOK, info)
}
