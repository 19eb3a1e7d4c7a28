// defects.go — обработчики справочника дефектов.
package handlers

import (
	"encoding/json"
	"net/http"

	apierrors "github.com/bigkaa/foundry-qc/qc-module/internal/api/errors"
	"github.com/bigkaa/foundry-qc/qc-module/internal/domain/model"
)

// defectTypeResponse — тип дефекта в API.
type defectTypeResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	IsActive  bool   `json:"is_active"`
	SortOrder int    `json:"sort_order"`
}

// defectCategoryResponse — категория с типами дефектов.
type defectCategoryResponse struct {
	ID    int64                `json:"id"`
	Name  string               `json:"name"`
	Types []defectTypeResponse `json:"types"`
}

// mapDefectGroup преобразует группу справочника в API-представление.
func mapDefectGroup(g *model.DefectCategoryGroup) defectCategoryResponse {
	resp := defectCategoryResponse{
		ID:    g.Category.ID,
		Name:  g.Category.Name,
		Types: make([]defectTypeResponse, len(g.Types)),
	}
	for i, t := range g.Types {
		resp.Types[i] = defectTypeResponse{
			ID:        t.ID,
			Name:      t.Name,
			IsActive:  t.IsActive,
			SortOrder: t.SortOrder,
		}
	}
	return resp
}

// ListDefectTypes — GET /api/v1/defect-types.
// Справочник дефектов по категориям. include_inactive=true — вместе с отключёнными.
func (h *APIHandler) ListDefectTypes(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("include_inactive") != "true"

	groups, err := h.defects.Reference(r.Context(), activeOnly)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка получения справочника дефектов")
		return
	}

	items := make([]defectCategoryResponse, len(groups))
	for i, g := range groups {
		items[i] = mapDefectGroup(g)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// createDefectCategoryRequest — тело POST /api/v1/defect-categories.
type createDefectCategoryRequest struct {
	Name      string `json:"name"`
	SortOrder int    `json:"sort_order"`
}

// CreateDefectCategory — POST /api/v1/defect-categories.
func (h *APIHandler) CreateDefectCategory(w http.ResponseWriter, r *http.Request) {
	var req createDefectCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	c, err := h.defects.CreateCategory(r.Context(), req.Name, req.SortOrder)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка добавления категории дефектов")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":         c.ID,
		"name":       c.Name,
		"sort_order": c.SortOrder,
	})
}

// createDefectTypeRequest — тело POST /api/v1/defect-types.
type createDefectTypeRequest struct {
	CategoryID int64  `json:"category_id"`
	Name       string `json:"name"`
	SortOrder  int    `json:"sort_order"`
}

// CreateDefectType — POST /api/v1/defect-types.
func (h *APIHandler) CreateDefectType(w http.ResponseWriter, r *http.Request) {
	var req createDefectTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	t, err := h.defects.CreateType(r.Context(), req.CategoryID, req.Name, req.SortOrder)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка добавления типа дефекта")
		return
	}

	writeJSON(w, http.StatusCreated, defectTypeResponse{
		ID:        t.ID,
		Name:      t.Name,
		IsActive:  t.IsActive,
		SortOrder: t.SortOrder,
	})
}

// setDefectTypeActiveRequest — тело PATCH /api/v1/defect-types/{id}.
type setDefectTypeActiveRequest struct {
	IsActive bool `json:"is_active"`
}

// SetDefectTypeActive — PATCH /api/v1/defect-types/{id}.
// Включает или отключает тип дефекта. Отключённый тип не принимается
// в новых записях, но остаётся в истории.
func (h *APIHandler) SetDefectTypeActive(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	var req setDefectTypeActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	if err := h.defects.SetTypeActive(r.Context(), id, req.IsActive); err != nil {
		h.writeServiceError(w, err, "Ошибка изменения статуса типа дефекта")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
