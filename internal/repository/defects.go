package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/bigkaa/foundry-qc/qc-module/internal/domain/model"
)

// DefectRepository — интерфейс для справочника дефектов
// (таблицы defect_categories и defect_types).
type DefectRepository interface {
	// ListGrouped возвращает категории с их типами дефектов.
	// activeOnly — только активные типы.
	ListGrouped(ctx context.Context, activeOnly bool) ([]*model.DefectCategoryGroup, error)
	// ExistingTypeIDs возвращает множество идентификаторов активных
	// типов дефектов среди перечисленных.
	ExistingTypeIDs(ctx context.Context, ids []int64) (map[int64]bool, error)
	// CreateCategory добавляет категорию дефектов.
	CreateCategory(ctx context.Context, c *model.DefectCategory) error
	// CreateType добавляет тип дефекта в категорию.
	CreateType(ctx context.Context, t *model.DefectType) error
	// SetTypeActive меняет признак активности типа дефекта.
	SetTypeActive(ctx context.Context, id int64, active bool) error
}

// defectRepo — реализация DefectRepository.
type defectRepo struct {
	db DBTX
}

// NewDefectRepository создаёт репозиторий справочника дефектов.
func NewDefectRepository(db DBTX) DefectRepository {
	return &defectRepo{db: db}
}

func (r *defectRepo) ListGrouped(ctx context.Context, activeOnly bool) ([]*model.DefectCategoryGroup, error) {
	query := `
		SELECT dc.id, dc.name, dc.sort_order,
			dt.id, dt.category_id, dt.name, dt.is_active, dt.sort_order, dt.created_at
		FROM defect_categories dc
		LEFT JOIN defect_types dt ON dt.category_id = dc.id`
	if activeOnly {
		query += ` AND dt.is_active`
	}
	query += `
		ORDER BY dc.sort_order, dc.id, dt.sort_order, dt.id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения справочника дефектов: %w", err)
	}
	defer rows.Close()

	var result []*model.DefectCategoryGroup
	var current *model.DefectCategoryGroup
	for rows.Next() {
		var cat model.DefectCategory
		var tID, tCatID *int64
		var tName *string
		var tActive *bool
		var tSort *int
		var tCreated *time.Time
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.SortOrder,
			&tID, &tCatID, &tName, &tActive, &tSort, &tCreated); err != nil {
			return nil, fmt.Errorf("ошибка сканирования справочника дефектов: %w", err)
		}
		if current == nil || current.Category.ID != cat.ID {
			current = &model.DefectCategoryGroup{Category: cat}
			result = append(result, current)
		}
		if tID != nil {
			current.Types = append(current.Types, model.DefectType{
				ID:         *tID,
				CategoryID: *tCatID,
				Name:       *tName,
				IsActive:   *tActive,
				SortOrder:  *tSort,
				CreatedAt:  *tCreated,
			})
		}
	}
	return result, rows.Err()
}

func (r *defectRepo) ExistingTypeIDs(ctx context.Context, ids []int64) (map[int64]bool, error) {
	query := `
		SELECT id
		FROM defect_types
		WHERE is_active AND id = ANY($1)`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("ошибка проверки типов дефектов: %w", err)
	}
	defer rows.Close()

	result := make(map[int64]bool, len(ids))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ошибка сканирования типа дефекта: %w", err)
		}
		result[id] = true
	}
	return result, rows.Err()
}

func (r *defectRepo) CreateCategory(ctx context.Context, c *model.DefectCategory) error {
	query := `
		INSERT INTO defect_categories (name, sort_order)
		VALUES ($1, $2)
		RETURNING id`

	if err := r.db.QueryRow(ctx, query, c.Name, c.SortOrder).Scan(&c.ID); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: категория %q уже существует", ErrConflict, c.Name)
		}
		return fmt.Errorf("ошибка создания категории дефектов: %w", err)
	}
	return nil
}

func (r *defectRepo) CreateType(ctx context.Context, t *model.DefectType) error {
	query := `
		INSERT INTO defect_types (category_id, name, is_active, sort_order)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query, t.CategoryID, t.Name, t.IsActive, t.SortOrder).
		Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: тип дефекта %q уже существует", ErrConflict, t.Name)
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: категория %d", ErrForeignKey, t.CategoryID)
		}
		return fmt.Errorf("ошибка создания типа дефекта: %w", err)
	}
	return nil
}

func (r *defectRepo) SetTypeActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE defect_types SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("ошибка изменения статуса типа дефекта: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
