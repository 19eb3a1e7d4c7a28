package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/foundry-qc/qc-module/internal/domain/model"
)

// ShiftRepository — интерфейс CRUD для таблицы shifts.
type ShiftRepository interface {
	// Create открывает новую смену со статусом active.
	Create(ctx context.Context, s *model.Shift) error
	// GetByID возвращает смену по идентификатору.
	GetByID(ctx context.Context, id int64) (*model.Shift, error)
	// FindActiveByKey возвращает активную смену по паре (дата, номер)
	// или ErrNotFound.
	FindActiveByKey(ctx context.Context, date time.Time, number int) (*model.Shift, error)
	// GetActive возвращает последнюю открытую смену, опционально
	// ограниченную датой, или ErrNotFound.
	GetActive(ctx context.Context, date *time.Time) (*model.Shift, error)
	// ListActive возвращает все активные смены (для сметания просроченных).
	ListActive(ctx context.Context) ([]*model.Shift, error)
	// List возвращает смены, отсортированные по дате и номеру по убыванию.
	List(ctx context.Context, limit, offset int) ([]*model.Shift, error)
	// ListByDateRange возвращает смены за период, опционально по статусу.
	ListByDateRange(ctx context.Context, from, to time.Time, status *string) ([]*model.Shift, error)
	// Close закрывает смену с указанным временем окончания.
	Close(ctx context.Context, id int64, endedAt time.Time) error
	// Delete удаляет смену. Записи контроля и дефекты удаляются каскадно.
	Delete(ctx context.Context, id int64) error
}

// shiftRepo — реализация ShiftRepository.
type shiftRepo struct {
	db DBTX
}

// NewShiftRepository создаёт репозиторий смен.
func NewShiftRepository(db DBTX) ShiftRepository {
	return &shiftRepo{db: db}
}

// shiftColumns — список колонок для SELECT смены.
const shiftColumns = `id, shift_date, shift_number, supervisor, controllers, status, started_at, ended_at`

func scanShift(row pgx.Row) (*model.Shift, error) {
	s := &model.Shift{}
	err := row.Scan(&s.ID, &s.Date, &s.Number, &s.Supervisor, &s.Controllers,
		&s.Status, &s.StartedAt, &s.EndedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *shiftRepo) Create(ctx context.Context, s *model.Shift) error {
	query := `
		INSERT INTO shifts (shift_date, shift_number, supervisor, controllers, status, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		s.Date, s.Number, s.Supervisor, s.Controllers, s.Status, s.StartedAt,
	).Scan(&s.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: активная смена %d на %s уже открыта",
				ErrConflict, s.Number, s.Date.Format("2006-01-02"))
		}
		return fmt.Errorf("ошибка создания смены: %w", err)
	}
	return nil
}

func (r *shiftRepo) GetByID(ctx context.Context, id int64) (*model.Shift, error) {
	query := `SELECT ` + shiftColumns + ` FROM shifts WHERE id = $1`

	s, err := scanShift(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения смены: %w", err)
	}
	return s, nil
}

func (r *shiftRepo) FindActiveByKey(ctx context.Context, date time.Time, number int) (*model.Shift, error) {
	query := `
		SELECT ` + shiftColumns + `
		FROM shifts
		WHERE shift_date = $1 AND shift_number = $2 AND status = 'active'`

	s, err := scanShift(r.db.QueryRow(ctx, query, date, number))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка поиска активной смены: %w", err)
	}
	return s, nil
}

func (r *shiftRepo) GetActive(ctx context.Context, date *time.Time) (*model.Shift, error) {
	query := `
		SELECT ` + shiftColumns + `
		FROM shifts
		WHERE status = 'active'`
	var args []any
	if date != nil {
		query += ` AND shift_date = $1`
		args = append(args, *date)
	}
	query += `
		ORDER BY started_at DESC
		LIMIT 1`

	s, err := scanShift(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения активной смены: %w", err)
	}
	return s, nil
}

func (r *shiftRepo) ListActive(ctx context.Context) ([]*model.Shift, error) {
	query := `
		SELECT ` + shiftColumns + `
		FROM shifts
		WHERE status = 'active'
		ORDER BY shift_date, shift_number`

	return r.queryShifts(ctx, query)
}

func (r *shiftRepo) List(ctx context.Context, limit, offset int) ([]*model.Shift, error) {
	query := `
		SELECT ` + shiftColumns + `
		FROM shifts
		ORDER BY shift_date DESC, shift_number DESC
		LIMIT $1 OFFSET $2`

	return r.queryShifts(ctx, query, limit, offset)
}

func (r *shiftRepo) ListByDateRange(ctx context.Context, from, to time.Time, status *string) ([]*model.Shift, error) {
	query := `
		SELECT ` + shiftColumns + `
		FROM shifts
		WHERE shift_date >= $1 AND shift_date <= $2`
	args := []any{from, to}
	if status != nil {
		query += ` AND status = $3`
		args = append(args, *status)
	}
	query += `
		ORDER BY shift_date DESC, shift_number DESC`

	return r.queryShifts(ctx, query, args...)
}

func (r *shiftRepo) queryShifts(ctx context.Context, query string, args ...any) ([]*model.Shift, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка смен: %w", err)
	}
	defer rows.Close()

	var result []*model.Shift
	for rows.Next() {
		s := &model.Shift{}
		if err := rows.Scan(&s.ID, &s.Date, &s.Number, &s.Supervisor, &s.Controllers,
			&s.Status, &s.StartedAt, &s.EndedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования смены: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func (r *shiftRepo) Close(ctx context.Context, id int64, endedAt time.Time) error {
	query := `
		UPDATE shifts
		SET status = 'closed', ended_at = $2
		WHERE id = $1 AND status = 'active'`

	tag, err := r.db.Exec(ctx, query, id, endedAt)
	if err != nil {
		return fmt.Errorf("ошибка закрытия смены: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *shiftRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM shifts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления смены: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
