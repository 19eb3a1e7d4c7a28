package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/foundry-qc/qc-module/internal/domain/model"
)

// ControllerRepository — интерфейс CRUD для таблицы controllers.
type ControllerRepository interface {
	// Create добавляет нового контролёра.
	Create(ctx context.Context, c *model.Controller) error
	// GetByID возвращает контролёра по идентификатору.
	GetByID(ctx context.Context, id int64) (*model.Controller, error)
	// GetByName возвращает контролёра по имени.
	GetByName(ctx context.Context, name string) (*model.Controller, error)
	// List возвращает контролёров, activeOnly — только активных.
	List(ctx context.Context, activeOnly bool) ([]*model.Controller, error)
	// SetActive меняет признак активности (мягкое удаление/восстановление).
	SetActive(ctx context.Context, id int64, active bool) error
	// CountActiveByNames возвращает количество активных контролёров
	// среди перечисленных имён.
	CountActiveByNames(ctx context.Context, names []string) (int, error)
}

// controllerRepo — реализация ControllerRepository.
type controllerRepo struct {
	db DBTX
}

// NewControllerRepository создаёт репозиторий контролёров.
func NewControllerRepository(db DBTX) ControllerRepository {
	return &controllerRepo{db: db}
}

func (r *controllerRepo) Create(ctx context.Context, c *model.Controller) error {
	query := `
		INSERT INTO controllers (name, is_active)
		VALUES ($1, $2)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query, c.Name, c.IsActive).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: контролёр %q уже существует", ErrConflict, c.Name)
		}
		return fmt.Errorf("ошибка создания контролёра: %w", err)
	}
	return nil
}

func (r *controllerRepo) GetByID(ctx context.Context, id int64) (*model.Controller, error) {
	query := `
		SELECT id, name, is_active, created_at
		FROM controllers
		WHERE id = $1`

	c := &model.Controller{}
	err := r.db.QueryRow(ctx, query, id).Scan(&c.ID, &c.Name, &c.IsActive, &c.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения контролёра: %w", err)
	}
	return c, nil
}

func (r *controllerRepo) GetByName(ctx context.Context, name string) (*model.Controller, error) {
	query := `
		SELECT id, name, is_active, created_at
		FROM controllers
		WHERE name = $1`

	c := &model.Controller{}
	err := r.db.QueryRow(ctx, query, name).Scan(&c.ID, &c.Name, &c.IsActive, &c.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения контролёра: %w", err)
	}
	return c, nil
}

func (r *controllerRepo) List(ctx context.Context, activeOnly bool) ([]*model.Controller, error) {
	query := `
		SELECT id, name, is_active, created_at
		FROM controllers`
	if activeOnly {
		query += `
		WHERE is_active`
	}
	query += `
		ORDER BY name`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка контролёров: %w", err)
	}
	defer rows.Close()

	var result []*model.Controller
	for rows.Next() {
		c := &model.Controller{}
		if err := rows.Scan(&c.ID, &c.Name, &c.IsActive, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования контролёра: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (r *controllerRepo) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE controllers SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("ошибка изменения статуса контролёра: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *controllerRepo) CountActiveByNames(ctx context.Context, names []string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM controllers
		WHERE is_active AND name = ANY($1)`

	var count int
	if err := r.db.QueryRow(ctx, query, names).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта контролёров: %w", err)
	}
	return count, nil
}
