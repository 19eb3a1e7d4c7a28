// shifts.go — сервис управления сменами ОТК.
// Открытие, закрытие, автозакрытие просроченных смен, списки.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bigkaa/foundry-qc/qc-module/internal/config"
	"github.com/bigkaa/foundry-qc/qc-module/internal/domain/model"
	"github.com/bigkaa/foundry-qc/qc-module/internal/repository"
)

// DefaultSupervisor — старший смены по умолчанию.
const DefaultSupervisor = "Контролеры"

// ShiftService — сервис управления сменами.
type ShiftService struct {
	shiftRepo      repository.ShiftRepository
	controllerRepo repository.ControllerRepository
	cfg            *config.Config
	logger         *slog.Logger

	// now вынесено в поле для подмены времени в тестах
	now func() time.Time
}

// NewShiftService создаёт сервис смен.
func NewShiftService(
	shiftRepo repository.ShiftRepository,
	controllerRepo repository.ControllerRepository,
	cfg *config.Config,
	logger *slog.Logger,
) *ShiftService {
	return &ShiftService{
		shiftRepo:      shiftRepo,
		controllerRepo: controllerRepo,
		cfg:            cfg,
		logger:         logger.With(slog.String("component", "shift_service")),
		now:            time.Now,
	}
}

// CreateShiftInput — параметры открытия смены.
type CreateShiftInput struct {
	// Date — дата смены. Нулевое значение — текущая дата цеха.
	Date time.Time
	// Number — номер смены (1 или 2).
	Number int
	// Supervisor — старший смены. Пустая строка — DefaultSupervisor.
	Supervisor string
	// Controllers — имена контролёров смены.
	Controllers []string
}

// validateInput проверяет параметры открытия смены и нормализует дату
// и старшего смены. Инфраструктурные ошибки возвращаются отдельно.
func (s *ShiftService) validateInput(ctx context.Context, in CreateShiftInput) (time.Time, string, *ValidationError, error) {
	verr := &ValidationError{}

	if _, ok := model.ShiftWindows[in.Number]; !ok {
		verr.addField("shift_number", fmt.Sprintf("недопустимый номер смены %d, допустимые: 1, 2", in.Number))
	}

	now := s.now().In(s.cfg.Location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	date := in.Date
	if date.IsZero() {
		date = today
	} else {
		date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	}

	// Смену можно открыть заранее, но не дальше завтрашнего дня
	if date.After(today.AddDate(0, 0, 1)) {
		verr.addField("date", "дата смены не может быть позже завтрашнего дня")
	}

	supervisor := in.Supervisor
	if supervisor == "" {
		supervisor = DefaultSupervisor
	}

	// Контролёры сверяются со справочником: хотя бы один должен быть
	// известным и активным, остальные неизвестные — предупреждение
	if len(in.Controllers) == 0 {
		verr.addField("controllers", "не указан ни один контролёр")
	} else {
		known, err := s.controllerRepo.CountActiveByNames(ctx, in.Controllers)
		if err != nil {
			return date, supervisor, nil, fmt.Errorf("проверка контролёров: %w", err)
		}
		switch {
		case known == 0:
			verr.addField("controllers", "ни один из контролёров не найден в справочнике")
		case known < len(in.Controllers):
			verr.addWarning(fmt.Sprintf("в справочнике найдено %d из %d контролёров", known, len(in.Controllers)))
		}
	}

	return date, supervisor, verr, nil
}

// Validate проверяет параметры открытия смены без сохранения.
// Дополнительно сообщает о уже открытой смене на ту же пару (дата, номер).
// Возвращает предупреждения либо ValidationError.
func (s *ShiftService) Validate(ctx context.Context, in CreateShiftInput) ([]string, error) {
	date, _, verr, err := s.validateInput(ctx, in)
	if err != nil {
		return nil, err
	}

	if !verr.hasErrors() {
		if _, findErr := s.shiftRepo.FindActiveByKey(ctx, date, in.Number); findErr == nil {
			verr.addField("shift_number",
				fmt.Sprintf("смена %d на %s уже открыта", in.Number, date.Format("2006-01-02")))
		} else if !errors.Is(findErr, repository.ErrNotFound) {
			return nil, fmt.Errorf("проверка активной смены: %w", findErr)
		}
	}

	if verr.hasErrors() {
		return nil, verr
	}
	return verr.Warnings, nil
}

// Create открывает новую смену.
// Не более одной активной смены на пару (дата, номер).
func (s *ShiftService) Create(ctx context.Context, in CreateShiftInput) (*model.Shift, error) {
	date, supervisor, verr, err := s.validateInput(ctx, in)
	if err != nil {
		return nil, err
	}
	if verr.hasErrors() {
		return nil, verr
	}

	shift := &model.Shift{
		Date:        date,
		Number:      in.Number,
		Supervisor:  supervisor,
		Controllers: in.Controllers,
		Status:      model.ShiftStatusActive,
		StartedAt:   s.now().UTC(),
	}

	if err := s.shiftRepo.Create(ctx, shift); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%w: смена %d на %s", ErrDuplicateShift, in.Number, date.Format("2006-01-02"))
		}
		return nil, fmt.Errorf("открытие смены: %w", err)
	}

	s.logger.Info("Смена открыта",
		slog.Int64("shift_id", shift.ID),
		slog.String("date", date.Format("2006-01-02")),
		slog.Int("number", in.Number),
		slog.String("supervisor", supervisor),
	)

	return shift, nil
}

// GetByID возвращает смену по идентификатору.
func (s *ShiftService) GetByID(ctx context.Context, id int64) (*model.Shift, error) {
	shift, err := s.shiftRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение смены: %w", err)
	}
	return shift, nil
}

// GetActive возвращает текущую активную смену или ErrNotFound.
// date != nil ограничивает поиск конкретной датой.
// Если включено автозакрытие, просроченные смены сперва закрываются.
func (s *ShiftService) GetActive(ctx context.Context, date *time.Time) (*model.Shift, error) {
	if s.cfg.AutoCloseShifts {
		if _, err := s.AutoCloseStale(ctx); err != nil {
			return nil, err
		}
	}

	shift, err := s.shiftRepo.GetActive(ctx, date)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение активной смены: %w", err)
	}
	return shift, nil
}

// Close закрывает смену вручную.
func (s *ShiftService) Close(ctx context.Context, id int64) (*model.Shift, error) {
	shift, err := s.shiftRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение смены: %w", err)
	}
	if shift.Status != model.ShiftStatusActive {
		return nil, fmt.Errorf("%w: смена %d уже закрыта", ErrInvalidState, id)
	}

	endedAt := s.now().UTC()
	if err := s.shiftRepo.Close(ctx, id, endedAt); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: смена %d уже закрыта", ErrInvalidState, id)
		}
		return nil, fmt.Errorf("закрытие смены: %w", err)
	}

	shift.Status = model.ShiftStatusClosed
	shift.EndedAt = &endedAt

	s.logger.Info("Смена закрыта",
		slog.Int64("shift_id", id),
		slog.String("ended_at", endedAt.Format(time.RFC3339)),
	)

	return shift, nil
}

// AutoCloseStale закрывает активные смены, чьё номинальное окно истекло.
// Временем окончания выставляется номинальный конец окна, а не момент вызова,
// поэтому операция идемпотентна. Возвращает количество закрытых смен.
func (s *ShiftService) AutoCloseStale(ctx context.Context) (int, error) {
	active, err := s.shiftRepo.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("список активных смен: %w", err)
	}

	now := s.now().In(s.cfg.Location)
	closed := 0
	for _, shift := range active {
		end := shift.NominalEnd(s.cfg.Location)
		if !now.After(end) {
			continue
		}
		if err := s.shiftRepo.Close(ctx, shift.ID, end.UTC()); err != nil {
			// Смену могли закрыть параллельно, это не ошибка
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return closed, fmt.Errorf("автозакрытие смены %d: %w", shift.ID, err)
		}
		closed++
		s.logger.Info("Смена закрыта автоматически по истечении окна",
			slog.Int64("shift_id", shift.ID),
			slog.String("date", shift.Date.Format("2006-01-02")),
			slog.Int("number", shift.Number),
			slog.String("nominal_end", end.Format(time.RFC3339)),
		)
	}
	return closed, nil
}

// List возвращает смены с пагинацией, новые первыми.
func (s *ShiftService) List(ctx context.Context, limit, offset int) ([]*model.Shift, error) {
	if s.cfg.AutoCloseShifts {
		if _, err := s.AutoCloseStale(ctx); err != nil {
			return nil, err
		}
	}
	shifts, err := s.shiftRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("список смен: %w", err)
	}
	return shifts, nil
}

// ListByDateRange возвращает смены за период, опционально по статусу.
func (s *ShiftService) ListByDateRange(ctx context.Context, from, to time.Time, status *string) ([]*model.Shift, error) {
	if status != nil && *status != model.ShiftStatusActive && *status != model.ShiftStatusClosed {
		verr := &ValidationError{}
		verr.addField("status", fmt.Sprintf("недопустимый статус %q, допустимые: active, closed", *status))
		return nil, verr
	}
	if to.Before(from) {
		verr := &ValidationError{}
		verr.addField("date_to", "дата окончания раньше даты начала")
		return nil, verr
	}
	shifts, err := s.shiftRepo.ListByDateRange(ctx, from, to, status)
	if err != nil {
		return nil, fmt.Errorf("список смен за период: %w", err)
	}
	return shifts, nil
}

// Delete удаляет смену вместе с записями контроля и дефектами.
func (s *ShiftService) Delete(ctx context.Context, id int64) error {
	if err := s.shiftRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("удаление смены: %w", err)
	}
	s.logger.Info("Смена удалена", slog.Int64("shift_id", id))
	return nil
}
