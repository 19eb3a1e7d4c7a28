// controls.go — обработчики записей контроля качества.
// Сохранение и предварительная валидация записей, записи смены.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	apierrors "github.com/bigkaa/foundry-qc/qc-module/internal/api/errors"
	"github.com/bigkaa/foundry-qc/qc-module/internal/domain/model"
	"github.com/bigkaa/foundry-qc/qc-module/internal/repository"
	"github.com/bigkaa/foundry-qc/qc-module/internal/service"
)

// controlRecordRequest — тело POST /api/v1/records и /api/v1/records/validate.
// Defects — количество по идентификаторам типов дефектов.
type controlRecordRequest struct {
	ShiftID       int64         `json:"shift_id"`
	CardNumber    string        `json:"card_number"`
	TotalCast     int           `json:"total_cast"`
	TotalAccepted int           `json:"total_accepted"`
	Defects       map[int64]int `json:"defects"`
	Controller    string        `json:"controller"`
	Notes         string        `json:"notes"`
}

// toInput преобразует запрос в параметры сервисного слоя.
func (req *controlRecordRequest) toInput() service.SaveControlInput {
	return service.SaveControlInput{
		ShiftID:       req.ShiftID,
		CardNumber:    req.CardNumber,
		TotalCast:     req.TotalCast,
		TotalAccepted: req.TotalAccepted,
		Defects:       req.Defects,
		Controller:    req.Controller,
		Notes:         req.Notes,
	}
}

// controlRecordResponse — представление записи контроля в API.
type controlRecordResponse struct {
	ID            int64                  `json:"id"`
	ShiftID       int64                  `json:"shift_id"`
	CardNumber    string                 `json:"card_number"`
	TotalCast     int                    `json:"total_cast"`
	TotalAccepted int                    `json:"total_accepted"`
	Controller    string                 `json:"controller"`
	Notes         string                 `json:"notes,omitempty"`
	CreatedAt     string                 `json:"created_at"`
	Defects       []recordDefectResponse `json:"defects"`
}

// recordDefectResponse — дефект записи с названиями из справочника.
type recordDefectResponse struct {
	Category string `json:"category"`
	Defect   string `json:"defect"`
	Quantity int    `json:"quantity"`
}

// mapControlRecord преобразует запись контроля в API-представление.
func mapControlRecord(rec *model.ControlRecord, defects []model.RecordDefect) controlRecordResponse {
	resp := controlRecordResponse{
		ID:            rec.ID,
		ShiftID:       rec.ShiftID,
		CardNumber:    rec.CardNumber,
		TotalCast:     rec.TotalCast,
		TotalAccepted: rec.TotalAccepted,
		Controller:    rec.Controller,
		Notes:         rec.Notes,
		CreatedAt:     rec.CreatedAt.UTC().Format(time.RFC3339),
		Defects:       make([]recordDefectResponse, len(defects)),
	}
	for i, d := range defects {
		resp.Defects[i] = recordDefectResponse{
			Category: d.CategoryName,
			Defect:   d.DefectName,
			Quantity: d.Quantity,
		}
	}
	return resp
}

// CreateControlRecord — POST /api/v1/records.
// Валидирует и сохраняет запись контроля с дефектами в одной транзакции.
// Предупреждения валидации возвращаются в ответе, не блокируя сохранение.
func (h *APIHandler) CreateControlRecord(w http.ResponseWriter, r *http.Request) {
	var req controlRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	result, err := h.controls.Save(r.Context(), req.toInput())
	if err != nil {
		h.writeServiceError(w, err, "Ошибка сохранения записи контроля")
		return
	}

	warnings := result.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"record":   mapControlRecord(result.Record, nil),
		"warnings": warnings,
	})
}

// ValidateControlRecord — POST /api/v1/records/validate.
// Предварительная валидация без сохранения: ошибки полей и предупреждения.
func (h *APIHandler) ValidateControlRecord(w http.ResponseWriter, r *http.Request) {
	var req controlRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	warnings, err := h.controls.Validate(r.Context(), req.toInput())
	if err != nil {
		h.writeServiceError(w, err, "Ошибка валидации записи контроля")
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

// CalculateMetrics — POST /api/v1/records/calculate.
// Предварительный расчёт показателей качества по введённым данным,
// без сохранения. Использует ту же формулу, что и статистика смены.
func (h *APIHandler) CalculateMetrics(w http.ResponseWriter, r *http.Request) {
	var req controlRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	totalDefects := 0
	for _, qty := range req.Defects {
		if qty > 0 {
			totalDefects += qty
		}
	}

	metrics := service.ComputeMetrics(repository.ShiftTotals{
		Records:       1,
		TotalCast:     req.TotalCast,
		TotalAccepted: req.TotalAccepted,
		TotalDefects:  totalDefects,
	})
	writeJSON(w, http.StatusOK, map[string]any{"metrics": metrics})
}

// CheckCardDuplicate — GET /api/v1/records/check-duplicate.
// Проверяет перед вводом, была ли карта уже обработана.
// Параметры: card_number, shift_id.
func (h *APIHandler) CheckCardDuplicate(w http.ResponseWriter, r *http.Request) {
	cardNumber := r.URL.Query().Get("card_number")
	if cardNumber == "" {
		apierrors.ValidationError(w, "Параметр card_number обязателен")
		return
	}
	shiftID, err := strconv.ParseInt(r.URL.Query().Get("shift_id"), 10, 64)
	if err != nil || shiftID < 1 {
		apierrors.ValidationError(w, "Параметр shift_id обязателен и должен быть положительным числом")
		return
	}

	dup, err := h.controls.CheckDuplicate(r.Context(), cardNumber, shiftID)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка проверки дубликата карты")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"duplicate": dup})
}

// ListShiftRecords — GET /api/v1/shifts/{id}/records.
// Записи контроля смены с дефектами, новые первыми.
func (h *APIHandler) ListShiftRecords(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	records, defects, err := h.controls.RecordsByShift(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка получения записей смены")
		return
	}

	items := make([]controlRecordResponse, len(records))
	for i, rec := range records {
		items[i] = mapControlRecord(rec, defects[rec.ID])
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}
