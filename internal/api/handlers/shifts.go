// shifts.go — обработчики /api/v1/shifts endpoints.
// Открытие, закрытие, удаление смен, списки, показатели качества.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	apierrors "github.com/bigkaa/foundry-qc/qc-module/internal/api/errors"
	"github.com/bigkaa/foundry-qc/qc-module/internal/domain/model"
	"github.com/bigkaa/foundry-qc/qc-module/internal/service"
)

// shiftResponse — представление смены в API.
type shiftResponse struct {
	ID          int64    `json:"id"`
	Date        string   `json:"date"`
	Number      int      `json:"number"`
	Supervisor  string   `json:"supervisor"`
	Controllers []string `json:"controllers"`
	Status      string   `json:"status"`
	StartedAt   string   `json:"started_at"`
	EndedAt     *string  `json:"ended_at,omitempty"`
}

// mapShift преобразует модель смены в API-представление.
func mapShift(s *model.Shift) shiftResponse {
	resp := shiftResponse{
		ID:          s.ID,
		Date:        s.Date.Format("2006-01-02"),
		Number:      s.Number,
		Supervisor:  s.Supervisor,
		Controllers: s.Controllers,
		Status:      s.Status,
		StartedAt:   s.StartedAt.UTC().Format(time.RFC3339),
	}
	if resp.Controllers == nil {
		resp.Controllers = []string{}
	}
	if s.EndedAt != nil {
		ended := s.EndedAt.UTC().Format(time.RFC3339)
		resp.EndedAt = &ended
	}
	return resp
}

// createShiftRequest — тело POST /api/v1/shifts.
type createShiftRequest struct {
	Date        string   `json:"date"`
	Number      int      `json:"number"`
	Supervisor  string   `json:"supervisor"`
	Controllers []string `json:"controllers"`
}

// CreateShift — POST /api/v1/shifts.
// Открывает новую смену. Дата по умолчанию — текущая дата цеха.
func (h *APIHandler) CreateShift(w http.ResponseWriter, r *http.Request) {
	var req createShiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	in := service.CreateShiftInput{
		Number:      req.Number,
		Supervisor:  req.Supervisor,
		Controllers: req.Controllers,
	}
	if req.Date != "" {
		date, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			apierrors.ValidationError(w, "Некорректная дата, ожидается формат YYYY-MM-DD: "+req.Date)
			return
		}
		in.Date = date
	}

	shift, err := h.shifts.Create(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка открытия смены")
		return
	}

	writeJSON(w, http.StatusCreated, mapShift(shift))
}

// ValidateShift — POST /api/v1/shifts/validate.
// Предварительная проверка параметров смены без открытия,
// включая наличие уже открытой смены на ту же пару (дата, номер).
func (h *APIHandler) ValidateShift(w http.ResponseWriter, r *http.Request) {
	var req createShiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	in := service.CreateShiftInput{
		Number:      req.Number,
		Supervisor:  req.Supervisor,
		Controllers: req.Controllers,
	}
	if req.Date != "" {
		date, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			apierrors.ValidationError(w, "Некорректная дата, ожидается формат YYYY-MM-DD: "+req.Date)
			return
		}
		in.Date = date
	}

	warnings, err := h.shifts.Validate(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка валидации смены")
		return
	}

	if warnings == nil {
		warnings = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":    true,
		"warnings": warnings,
	})
}

// AutoCloseShifts — POST /api/v1/shifts/auto-close.
// Вручную запускает закрытие просроченных смен. Идемпотентна.
func (h *APIHandler) AutoCloseShifts(w http.ResponseWriter, r *http.Request) {
	closed, err := h.shifts.AutoCloseStale(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "Ошибка автозакрытия смен")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"closed": closed})
}

// shiftListResponse — ответ списка смен.
type shiftListResponse struct {
	Items  []shiftResponse `json:"items"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// ListShifts — GET /api/v1/shifts.
// Без параметров — пагинированный список, новые первыми.
// С date_from/date_to — выборка за период, опционально по статусу.
func (h *APIHandler) ListShifts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var shifts []*model.Shift
	var err error
	limit, offset := paginationDefaults(r)

	if q.Get("date_from") != "" || q.Get("date_to") != "" {
		from, perr := time.Parse("2006-01-02", q.Get("date_from"))
		if perr != nil {
			apierrors.ValidationError(w, "Некорректная date_from, ожидается формат YYYY-MM-DD")
			return
		}
		to, perr := time.Parse("2006-01-02", q.Get("date_to"))
		if perr != nil {
			apierrors.ValidationError(w, "Некорректная date_to, ожидается формат YYYY-MM-DD")
			return
		}
		var status *string
		if s := q.Get("status"); s != "" {
			status = &s
		}
		shifts, err = h.shifts.ListByDateRange(r.Context(), from, to, status)
	} else {
		shifts, err = h.shifts.List(r.Context(), limit, offset)
	}
	if err != nil {
		h.writeServiceError(w, err, "Ошибка получения списка смен")
		return
	}

	items := make([]shiftResponse, len(shifts))
	for i, s := range shifts {
		items[i] = mapShift(s)
	}
	writeJSON(w, http.StatusOK, shiftListResponse{Items: items, Limit: limit, Offset: offset})
}

// GetActiveShift — GET /api/v1/shifts/active.
// Возвращает текущую активную смену или 404.
// Параметр date ограничивает поиск конкретной датой.
func (h *APIHandler) GetActiveShift(w http.ResponseWriter, r *http.Request) {
	var date *time.Time
	if raw := r.URL.Query().Get("date"); raw != "" {
		d, err := time.Parse("2006-01-02", raw)
		if err != nil {
			apierrors.ValidationError(w, "Некорректная date, ожидается формат YYYY-MM-DD")
			return
		}
		date = &d
	}

	shift, err := h.shifts.GetActive(r.Context(), date)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка получения активной смены")
		return
	}
	writeJSON(w, http.StatusOK, mapShift(shift))
}

// GetShift — GET /api/v1/shifts/{id}.
func (h *APIHandler) GetShift(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	shift, err := h.shifts.GetByID(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка получения смены")
		return
	}
	writeJSON(w, http.StatusOK, mapShift(shift))
}

// CloseShift — POST /api/v1/shifts/{id}/close.
// Закрывает активную смену. Повторное закрытие — 409.
func (h *APIHandler) CloseShift(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	shift, err := h.shifts.Close(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка закрытия смены")
		return
	}
	writeJSON(w, http.StatusOK, mapShift(shift))
}

// DeleteShift — DELETE /api/v1/shifts/{id}.
// Удаляет смену вместе с записями контроля и дефектами.
func (h *APIHandler) DeleteShift(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.shifts.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, err, "Ошибка удаления смены")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetShiftStatistics — GET /api/v1/shifts/{id}/statistics.
// Показатели качества смены и разбивка дефектов по типам.
func (h *APIHandler) GetShiftStatistics(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	stats, err := h.metrics.ShiftStatistics(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка расчёта показателей смены")
		return
	}

	defectTotals := make([]defectTotalResponse, len(stats.DefectTotals))
	for i, dt := range stats.DefectTotals {
		defectTotals[i] = defectTotalResponse{
			Category: dt.CategoryName,
			Defect:   dt.DefectName,
			Total:    dt.Total,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"shift":         mapShift(stats.Shift),
		"metrics":       stats.Metrics,
		"defect_totals": defectTotals,
	})
}

// defectTotalResponse — сумма дефектов одного типа за смену в API.
type defectTotalResponse struct {
	Category string `json:"category"`
	Defect   string `json:"defect"`
	Total    int    `json:"total"`
}
