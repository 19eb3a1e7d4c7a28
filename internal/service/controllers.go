// controllers.go — сервис справочника контролёров ОТК.
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

// ControllerService — сервис справочника контролёров.
type ControllerService struct {
	repo   repository.ControllerRepository
	logger *slog.Logger
}

// NewControllerService создаёт сервис контролёров.
func NewControllerService(repo repository.ControllerRepository, logger *slog.Logger) *ControllerService {
	return &ControllerService{
		repo:   repo,
		logger: logger.With(slog.String("component", "controller_service")),
	}
}

// Create добавляет контролёра в справочник.
func (s *ControllerService) Create(ctx context.Context, name string) (*model.Controller, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		verr := &ValidationError{}
		verr.addField("name", "имя контролёра не может быть пустым")
		return nil, verr
	}

	c := &model.Controller{Name: name, IsActive: true}
	if err := s.repo.Create(ctx, c); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%w: контролёр %q", ErrConflict, name)
		}
		return nil, fmt.Errorf("создание контролёра: %w", err)
	}

	s.logger.Info("Контролёр добавлен",
		slog.Int64("controller_id", c.ID),
		slog.String("name", name),
	)
	return c, nil
}

// List возвращает контролёров справочника.
func (s *ControllerService) List(ctx context.Context, activeOnly bool) ([]*model.Controller, error) {
	list, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("список контролёров: %w", err)
	}
	return list, nil
}

// Deactivate выполняет мягкое удаление контролёра.
// Имя остаётся в исторических записях смен.
func (s *ControllerService) Deactivate(ctx context.Context, id int64) error {
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("деактивация контролёра: %w", err)
	}
	s.logger.Info("Контролёр деактивирован", slog.Int64("controller_id", id))
	return nil
}

// Activate восстанавливает контролёра в справочнике.
func (s *ControllerService) Activate(ctx context.Context, id int64) error {
	if err := s.repo.SetActive(ctx, id, true); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("активация контролёра: %w", err)
	}
	s.logger.Info("Контролёр активирован", slog.Int64("controller_id", id))
	return nil
}
