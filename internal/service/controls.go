// controls.go — сервис записей контроля качества.
// Валидация, сохранение записи с дефектами в транзакции,
// проверка дубликатов маршрутных карт, поиск карт во внешнем сервисе.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/foundry-qc/qc-module/internal/cardclient"
	"github.com/bigkaa/foundry-qc/qc-module/internal/config"
	"github.com/bigkaa/foundry-qc/qc-module/internal/domain/model"
	"github.com/bigkaa/foundry-qc/qc-module/internal/repository"
)

// cardNumberRe — формат номера маршрутной карты: ровно 6 цифр.
var cardNumberRe = regexp.MustCompile(`^\d{6}$`)

// Пороги предупреждений по уровню брака, в процентах.
const (
	rejectRateWarnThreshold = 30.0
	rejectRateHighThreshold = 50.0
)

// ControlService — сервис записей контроля.
type ControlService struct {
	ctrlRepo   repository.ControlRepository
	shiftRepo  repository.ShiftRepository
	defectRepo repository.DefectRepository
	txRunner   *repository.TxRunner
	cardClient *cardclient.Client
	cfg        *config.Config
	logger     *slog.Logger
}

// NewControlService создаёт сервис записей контроля.
// cardClient может быть nil — тогда поиск карт отключён.
func NewControlService(
	ctrlRepo repository.ControlRepository,
	shiftRepo repository.ShiftRepository,
	defectRepo repository.DefectRepository,
	txRunner *repository.TxRunner,
	cardClient *cardclient.Client,
	cfg *config.Config,
	logger *slog.Logger,
) *ControlService {
	return &ControlService{
		ctrlRepo:   ctrlRepo,
		shiftRepo:  shiftRepo,
		defectRepo: defectRepo,
		txRunner:   txRunner,
		cardClient: cardClient,
		cfg:        cfg,
		logger:     logger.With(slog.String("component", "control_service")),
	}
}

// SaveControlInput — параметры сохранения записи контроля.
type SaveControlInput struct {
	// ShiftID — смена, к которой относится запись.
	ShiftID int64
	// CardNumber — номер маршрутной карты (6 цифр).
	CardNumber string
	// TotalCast — отлито деталей.
	TotalCast int
	// TotalAccepted — принято деталей.
	TotalAccepted int
	// Defects — количество дефектов по идентификаторам типов.
	Defects map[int64]int
	// Controller — контролёр, выполнивший проверку.
	Controller string
	// Notes — примечания.
	Notes string
}

// SaveControlResult — результат сохранения записи контроля.
type SaveControlResult struct {
	// Record — сохранённая запись.
	Record *model.ControlRecord
	// Warnings — предупреждения валидации, не блокировавшие сохранение.
	Warnings []string
}

// Validate проверяет входные данные записи контроля без сохранения.
// Возвращает предупреждения и *ValidationError с блокирующими ошибками.
func (s *ControlService) Validate(ctx context.Context, in SaveControlInput) ([]string, error) {
	verr := &ValidationError{}

	s.validateCounts(in, verr)

	// Типы дефектов сверяются со справочником
	if len(in.Defects) > 0 {
		ids := make([]int64, 0, len(in.Defects))
		for id, qty := range in.Defects {
			if qty < 0 {
				verr.addField("defects", fmt.Sprintf("отрицательное количество для типа дефекта %d", id))
			}
			if qty > 0 {
				ids = append(ids, id)
			}
		}
		if len(ids) > 0 {
			existing, err := s.defectRepo.ExistingTypeIDs(ctx, ids)
			if err != nil {
				return nil, fmt.Errorf("проверка типов дефектов: %w", err)
			}
			for _, id := range ids {
				if !existing[id] {
					verr.addField("defects", fmt.Sprintf("неизвестный или отключённый тип дефекта %d", id))
				}
			}
		}
	}

	if verr.hasErrors() {
		return verr.Warnings, verr
	}
	return verr.Warnings, nil
}

// validateCounts проверяет номер карты, счётчики и сверку дефектов.
// Чистая функция над входными данными, ошибки и предупреждения копятся в verr.
func (s *ControlService) validateCounts(in SaveControlInput, verr *ValidationError) {
	if !cardNumberRe.MatchString(in.CardNumber) {
		verr.addField("card_number", "номер маршрутной карты должен состоять ровно из 6 цифр")
	}
	if in.Controller == "" {
		verr.addField("controller", "контролёр не указан")
	}

	if in.TotalCast <= 0 {
		verr.addField("total_cast", "количество отлитых деталей должно быть положительным")
	}
	if in.TotalAccepted < 0 {
		verr.addField("total_accepted", "количество принятых деталей не может быть отрицательным")
	}
	if in.TotalCast > 0 && in.TotalAccepted > in.TotalCast {
		verr.addField("total_accepted", "принято больше, чем отлито")
	}

	if in.TotalCast > s.cfg.MaxCastCount {
		verr.addWarning(fmt.Sprintf("отлито %d деталей — больше порога %d, проверьте ввод", in.TotalCast, s.cfg.MaxCastCount))
	}

	totalDefects := 0
	for _, qty := range in.Defects {
		if qty > 0 {
			totalDefects += qty
		}
	}
	if totalDefects > s.cfg.MaxDefectCount {
		verr.addWarning(fmt.Sprintf("сумма дефектов %d — больше порога %d, проверьте ввод", totalDefects, s.cfg.MaxDefectCount))
	}

	// Сверка: сумма дефектов и (отлито - принято)
	if in.TotalCast > 0 && in.TotalAccepted >= 0 && in.TotalAccepted <= in.TotalCast {
		rejected := in.TotalCast - in.TotalAccepted
		if totalDefects != rejected {
			msg := fmt.Sprintf("сумма дефектов (%d) не совпадает с количеством забракованных (%d)", totalDefects, rejected)
			if s.cfg.StrictDefectReconciliation {
				verr.addField("defects", msg)
			} else {
				verr.addWarning(msg)
			}
		}

		rejectRate := float64(rejected) / float64(in.TotalCast) * 100
		switch {
		case rejectRate > rejectRateHighThreshold:
			verr.addWarning(fmt.Sprintf("уровень брака %.1f%% — критически высокий", rejectRate))
		case rejectRate > rejectRateWarnThreshold:
			verr.addWarning(fmt.Sprintf("уровень брака %.1f%% — выше обычного", rejectRate))
		}
	}
}

// Save валидирует и сохраняет запись контроля вместе с дефектами.
// Запись и дефекты сохраняются в одной транзакции.
func (s *ControlService) Save(ctx context.Context, in SaveControlInput) (*SaveControlResult, error) {
	// Смена должна существовать и быть активной
	shift, err := s.shiftRepo.GetByID(ctx, in.ShiftID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: смена %d", ErrNotFound, in.ShiftID)
		}
		return nil, fmt.Errorf("получение смены: %w", err)
	}
	if shift.Status != model.ShiftStatusActive {
		return nil, fmt.Errorf("%w: смена %d закрыта, приём записей остановлен", ErrInvalidState, in.ShiftID)
	}

	warnings, err := s.Validate(ctx, in)
	if err != nil {
		return nil, err
	}

	// Проверка дубликата карты по настроенной области
	dup, err := s.CheckDuplicate(ctx, in.CardNumber, in.ShiftID)
	if err != nil {
		return nil, err
	}
	if dup {
		return nil, fmt.Errorf("%w: карта %s", ErrDuplicateCard, in.CardNumber)
	}

	rec := &model.ControlRecord{
		ShiftID:       in.ShiftID,
		CardNumber:    in.CardNumber,
		TotalCast:     in.TotalCast,
		TotalAccepted: in.TotalAccepted,
		Controller:    in.Controller,
		Notes:         in.Notes,
	}

	err = s.txRunner.RunInTx(ctx, func(tx pgx.Tx) error {
		txRepo := repository.NewControlRepository(tx)
		if err := txRepo.Create(ctx, rec); err != nil {
			return err
		}
		return txRepo.AddDefects(ctx, rec.ID, in.Defects)
	})
	if err != nil {
		if errors.Is(err, repository.ErrForeignKey) {
			verr := &ValidationError{}
			verr.addField("defects", "ссылка на несуществующий тип дефекта")
			return nil, verr
		}
		return nil, fmt.Errorf("сохранение записи контроля: %w", err)
	}

	s.logger.Info("Запись контроля сохранена",
		slog.Int64("record_id", rec.ID),
		slog.Int64("shift_id", in.ShiftID),
		slog.String("card_number", in.CardNumber),
		slog.Int("total_cast", in.TotalCast),
		slog.Int("total_accepted", in.TotalAccepted),
		slog.Int("warnings", len(warnings)),
	)

	return &SaveControlResult{Record: rec, Warnings: warnings}, nil
}

// CheckDuplicate проверяет, была ли карта уже обработана.
// Область проверки задаётся QC_CARD_DUPLICATE_SCOPE.
func (s *ControlService) CheckDuplicate(ctx context.Context, cardNumber string, shiftID int64) (bool, error) {
	var scope *int64
	if s.cfg.CardDuplicateScope == config.CardScopeShift {
		scope = &shiftID
	}
	exists, err := s.ctrlRepo.ExistsCard(ctx, cardNumber, scope)
	if err != nil {
		return false, fmt.Errorf("проверка дубликата карты: %w", err)
	}
	return exists, nil
}

// SearchCard ищет маршрутную карту во внешнем сервисе.
// Возвращает (nil, nil), если карта не найдена.
func (s *ControlService) SearchCard(ctx context.Context, number string) (*cardclient.CardInfo, error) {
	if !cardNumberRe.MatchString(number) {
		verr := &ValidationError{}
		verr.addField("number", "номер маршрутной карты должен состоять ровно из 6 цифр")
		return nil, verr
	}
	if s.cardClient == nil {
		return nil, fmt.Errorf("%w: сервис не настроен", ErrCardServiceUnavailable)
	}

	info, err := s.cardClient.Search(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCardServiceUnavailable, err) //nolint:errorlint // намеренный двойной wrap
	}
	return info, nil
}

// RecordsByShift возвращает записи контроля смены с дефектами.
func (s *ControlService) RecordsByShift(ctx context.Context, shiftID int64) ([]*model.ControlRecord, map[int64][]model.RecordDefect, error) {
	if _, err := s.shiftRepo.GetByID(ctx, shiftID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: смена %d", ErrNotFound, shiftID)
		}
		return nil, nil, fmt.Errorf("получение смены: %w", err)
	}

	records, err := s.ctrlRepo.ListByShift(ctx, shiftID)
	if err != nil {
		return nil, nil, fmt.Errorf("записи смены: %w", err)
	}

	defects := make(map[int64][]model.RecordDefect, len(records))
	for _, rec := range records {
		d, err := s.ctrlRepo.DefectsByRecord(ctx, rec.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("дефекты записи %d: %w", rec.ID, err)
		}
		if len(d) > 0 {
			defects[rec.ID] = d
		}
	}
	return records, defects, nil
}
