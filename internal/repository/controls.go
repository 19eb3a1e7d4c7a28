package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/foundry-qc/qc-module/internal/domain/model"
)

// ShiftTotals — суммарные показатели смены по записям контроля.
type ShiftTotals struct {
	// Records — количество записей контроля
	Records int
	// TotalCast — всего отлито за смену
	TotalCast int
	// TotalAccepted — всего принято за смену
	TotalAccepted int
	// TotalDefects — всего дефектов за смену
	TotalDefects int
}

// ControlRepository — интерфейс для таблиц control_records и defect_entries.
type ControlRepository interface {
	// Create сохраняет запись контроля (без дефектов).
	Create(ctx context.Context, rec *model.ControlRecord) error
	// AddDefects сохраняет дефекты записи. Нулевые количества пропускаются.
	AddDefects(ctx context.Context, recordID int64, defects map[int64]int) error
	// GetByID возвращает запись контроля по идентификатору.
	GetByID(ctx context.Context, id int64) (*model.ControlRecord, error)
	// ListByShift возвращает записи смены, новые первыми.
	ListByShift(ctx context.Context, shiftID int64) ([]*model.ControlRecord, error)
	// DefectsByRecord возвращает дефекты записи с названиями из справочника.
	DefectsByRecord(ctx context.Context, recordID int64) ([]model.RecordDefect, error)
	// ExistsCard проверяет, была ли карта уже обработана.
	// shiftID == nil — поиск по всем сменам, иначе — внутри одной смены.
	ExistsCard(ctx context.Context, cardNumber string, shiftID *int64) (bool, error)
	// Totals возвращает суммарные показатели смены.
	Totals(ctx context.Context, shiftID int64) (*ShiftTotals, error)
	// DefectTotals возвращает суммы дефектов смены по типам,
	// по убыванию количества.
	DefectTotals(ctx context.Context, shiftID int64) ([]model.DefectTotal, error)
	// CountDefectEntries возвращает общее число строк дефектов
	// (используется в тестах каскадного удаления).
	CountDefectEntries(ctx context.Context) (int, error)
}

// controlRepo — реализация ControlRepository.
type controlRepo struct {
	db DBTX
}

// NewControlRepository создаёт репозиторий записей контроля.
func NewControlRepository(db DBTX) ControlRepository {
	return &controlRepo{db: db}
}

func (r *controlRepo) Create(ctx context.Context, rec *model.ControlRecord) error {
	query := `
		INSERT INTO control_records (shift_id, card_number, total_cast, total_accepted, controller, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		rec.ShiftID, rec.CardNumber, rec.TotalCast, rec.TotalAccepted, rec.Controller, rec.Notes,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: смена %d", ErrForeignKey, rec.ShiftID)
		}
		return fmt.Errorf("ошибка создания записи контроля: %w", err)
	}
	return nil
}

func (r *controlRepo) AddDefects(ctx context.Context, recordID int64, defects map[int64]int) error {
	query := `
		INSERT INTO defect_entries (control_record_id, defect_type_id, quantity)
		VALUES ($1, $2, $3)`

	for typeID, qty := range defects {
		if qty <= 0 {
			continue
		}
		if _, err := r.db.Exec(ctx, query, recordID, typeID, qty); err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("%w: тип дефекта %d", ErrForeignKey, typeID)
			}
			return fmt.Errorf("ошибка сохранения дефекта: %w", err)
		}
	}
	return nil
}

func (r *controlRepo) GetByID(ctx context.Context, id int64) (*model.ControlRecord, error) {
	query := `
		SELECT id, shift_id, card_number, total_cast, total_accepted, controller, notes, created_at
		FROM control_records
		WHERE id = $1`

	rec := &model.ControlRecord{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&rec.ID, &rec.ShiftID, &rec.CardNumber, &rec.TotalCast, &rec.TotalAccepted,
		&rec.Controller, &rec.Notes, &rec.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения записи контроля: %w", err)
	}
	return rec, nil
}

func (r *controlRepo) ListByShift(ctx context.Context, shiftID int64) ([]*model.ControlRecord, error) {
	query := `
		SELECT id, shift_id, card_number, total_cast, total_accepted, controller, notes, created_at
		FROM control_records
		WHERE shift_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, shiftID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения записей смены: %w", err)
	}
	defer rows.Close()

	var result []*model.ControlRecord
	for rows.Next() {
		rec := &model.ControlRecord{}
		if err := rows.Scan(
			&rec.ID, &rec.ShiftID, &rec.CardNumber, &rec.TotalCast, &rec.TotalAccepted,
			&rec.Controller, &rec.Notes, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи контроля: %w", err)
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

func (r *controlRepo) DefectsByRecord(ctx context.Context, recordID int64) ([]model.RecordDefect, error) {
	query := `
		SELECT de.id, de.quantity, dt.name, dc.name
		FROM defect_entries de
		JOIN defect_types dt ON dt.id = de.defect_type_id
		JOIN defect_categories dc ON dc.id = dt.category_id
		WHERE de.control_record_id = $1
		ORDER BY dc.sort_order, dt.sort_order`

	rows, err := r.db.Query(ctx, query, recordID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения дефектов записи: %w", err)
	}
	defer rows.Close()

	var result []model.RecordDefect
	for rows.Next() {
		var d model.RecordDefect
		if err := rows.Scan(&d.ID, &d.Quantity, &d.DefectName, &d.CategoryName); err != nil {
			return nil, fmt.Errorf("ошибка сканирования дефекта: %w", err)
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

func (r *controlRepo) ExistsCard(ctx context.Context, cardNumber string, shiftID *int64) (bool, error) {
	query := `SELECT COUNT(*) FROM control_records WHERE card_number = $1`
	args := []any{cardNumber}
	if shiftID != nil {
		query += ` AND shift_id = $2`
		args = append(args, *shiftID)
	}

	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("ошибка проверки маршрутной карты: %w", err)
	}
	return count > 0, nil
}

func (r *controlRepo) Totals(ctx context.Context, shiftID int64) (*ShiftTotals, error) {
	query := `
		SELECT COUNT(*),
			COALESCE(SUM(total_cast), 0),
			COALESCE(SUM(total_accepted), 0),
			COALESCE((
				SELECT SUM(de.quantity)
				FROM defect_entries de
				JOIN control_records cr ON cr.id = de.control_record_id
				WHERE cr.shift_id = $1
			), 0)
		FROM control_records
		WHERE shift_id = $1`

	t := &ShiftTotals{}
	err := r.db.QueryRow(ctx, query, shiftID).Scan(
		&t.Records, &t.TotalCast, &t.TotalAccepted, &t.TotalDefects,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчёта показателей смены: %w", err)
	}
	return t, nil
}

func (r *controlRepo) DefectTotals(ctx context.Context, shiftID int64) ([]model.DefectTotal, error) {
	query := `
		SELECT dc.name, dt.name, SUM(de.quantity)
		FROM defect_entries de
		JOIN control_records cr ON cr.id = de.control_record_id
		JOIN defect_types dt ON dt.id = de.defect_type_id
		JOIN defect_categories dc ON dc.id = dt.category_id
		WHERE cr.shift_id = $1
		GROUP BY dc.name, dt.name
		ORDER BY SUM(de.quantity) DESC`

	rows, err := r.db.Query(ctx, query, shiftID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения сумм дефектов: %w", err)
	}
	defer rows.Close()

	var result []model.DefectTotal
	for rows.Next() {
		var d model.DefectTotal
		if err := rows.Scan(&d.CategoryName, &d.DefectName, &d.Total); err != nil {
			return nil, fmt.Errorf("ошибка сканирования суммы дефектов: %w", err)
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

func (r *controlRepo) CountDefectEntries(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM defect_entries`).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта дефектов: %w", err)
	}
	return count, nil
}
