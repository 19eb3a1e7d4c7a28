// defects.go — сервис справочника дефектов.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bigkaa/foundry-qc/qc-module/internal/domain/model"
	"github.com/bigkaa/foundry-qc/qc-module/internal/repository"
)

// DefectService — сервис справочника дефектов.
type DefectService struct {
	repo   repository.DefectRepository
	logger *slog.Logger
}

// NewDefectService создаёт сервис справочника дефектов.
func NewDefectService(repo repository.DefectRepository, logger *slog.Logger) *DefectService {
	return &DefectService{
		repo:   repo,
		logger: logger.With(slog.String("component", "defect_service")),
	}
}

// Reference возвращает справочник дефектов, сгруппированный по категориям.
func (s *DefectService) Reference(ctx context.Context, activeOnly bool) ([]*model.DefectCategoryGroup, error) {
	groups, err := s.repo.ListGrouped(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("справочник дефектов: %w", err)
	}
	return groups, nil
}

// CreateCategory добавляет категорию дефектов.
func (s *DefectService) CreateCategory(ctx context.Context, name string, sortOrder int) (*model.DefectCategory, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		verr := &ValidationError{}
		verr.addField("name", "название категории не может быть пустым")
		return nil, verr
	}

	c := &model.DefectCategory{
		Name:      name,
		SortOrder: sortOrder,
	}
	if err := s.repo.CreateCategory(ctx, c); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%w: категория %q", ErrConflict, name)
		}
		return nil, fmt.Errorf("создание категории дефектов: %w", err)
	}

	s.logger.Info("Категория дефектов добавлена",
		slog.Int64("category_id", c.ID),
		slog.String("name", name),
	)
	return c, nil
}

// CreateType добавляет тип дефекта в категорию.
func (s *DefectService) CreateType(ctx context.Context, categoryID int64, name string, sortOrder int) (*model.DefectType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		verr := &ValidationError{}
		verr.addField("name", "название типа дефекта не может быть пустым")
		return nil, verr
	}

	t := &model.DefectType{
		CategoryID: categoryID,
		Name:       name,
		IsActive:   true,
		SortOrder:  sortOrder,
	}
	if err := s.repo.CreateType(ctx, t); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return nil, fmt.Errorf("%w: тип дефекта %q", ErrConflict, name)
		case errors.Is(err, repository.ErrForeignKey):
			return nil, fmt.Errorf("%w: категория %d", ErrNotFound, categoryID)
		}
		return nil, fmt.Errorf("создание типа дефекта: %w", err)
	}

	s.logger.Info("Тип дефекта добавлен",
		slog.Int64("defect_type_id", t.ID),
		slog.Int64("category_id", categoryID),
		slog.String("name", name),
	)
	return t, nil
}

// SetTypeActive включает или отключает тип дефекта.
// Отключённый тип не принимается в новых записях, но остаётся в истории.
func (s *DefectService) SetTypeActive(ctx context.Context, id int64, active bool) error {
	if err := s.repo.SetTypeActive(ctx, id, active); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("изменение статуса типа дефекта: %w", err)
	}
	s.logger.Info("Статус типа дефекта изменён",
		slog.Int64("defect_type_id", id),
		slog.Bool("is_active", active),
	)
	return nil
}
