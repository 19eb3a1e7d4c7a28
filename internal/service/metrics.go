// metrics.go — сервис показателей качества смены.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/bigkaa/foundry-qc/qc-module/internal/domain/model"
	"github.com/bigkaa/foundry-qc/qc-module/internal/repository"
)

// ShiftMetrics — расчётные показатели качества смены.
type ShiftMetrics struct {
	// Records — количество записей контроля
	Records int `json:"records"`
	// TotalCast — всего отлито
	TotalCast int `json:"total_cast"`
	// TotalAccepted — всего принято
	TotalAccepted int `json:"total_accepted"`
	// TotalDefects — всего дефектов
	TotalDefects int `json:"total_defects"`
	// QualityRate — доля принятых, % (2 знака)
	QualityRate float64 `json:"quality_rate"`
	// RejectRate — доля забракованных, % (2 знака)
	RejectRate float64 `json:"reject_rate"`
}

// ShiftStatistics — показатели смены с разбивкой дефектов по типам.
type ShiftStatistics struct {
	Shift        *model.Shift        `json:"shift"`
	Metrics      ShiftMetrics        `json:"metrics"`
	DefectTotals []model.DefectTotal `json:"defect_totals"`
}

// ComputeMetrics рассчитывает показатели качества по суммам смены.
// Уровень брака считается по сумме дефектов, а не по разности
// отлито-принято: при несовпадении сверки эти числа различаются.
// При нулевом количестве отлитых деталей проценты равны нулю.
func ComputeMetrics(totals repository.ShiftTotals) ShiftMetrics {
	m := ShiftMetrics{
		Records:       totals.Records,
		TotalCast:     totals.TotalCast,
		TotalAccepted: totals.TotalAccepted,
		TotalDefects:  totals.TotalDefects,
	}
	if totals.TotalCast > 0 {
		m.QualityRate = round2(float64(totals.TotalAccepted) / float64(totals.TotalCast) * 100)
		m.RejectRate = round2(float64(totals.TotalDefects) / float64(totals.TotalCast) * 100)
	}
	return m
}

// round2 округляет до 2 знаков после запятой.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// MetricsService — сервис расчёта показателей качества.
type MetricsService struct {
	shiftRepo repository.ShiftRepository
	ctrlRepo  repository.ControlRepository
	logger    *slog.Logger
}

// NewMetricsService создаёт сервис показателей.
func NewMetricsService(
	shiftRepo repository.ShiftRepository,
	ctrlRepo repository.ControlRepository,
	logger *slog.Logger,
) *MetricsService {
	return &MetricsService{
		shiftRepo: shiftRepo,
		ctrlRepo:  ctrlRepo,
		logger:    logger.With(slog.String("component", "metrics_service")),
	}
}

// ShiftStatistics возвращает показатели смены и разбивку дефектов по типам.
func (s *MetricsService) ShiftStatistics(ctx context.Context, shiftID int64) (*ShiftStatistics, error) {
	shift, err := s.shiftRepo.GetByID(ctx, shiftID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: смена %d", ErrNotFound, shiftID)
		}
		return nil, fmt.Errorf("получение смены: %w", err)
	}

	totals, err := s.ctrlRepo.Totals(ctx, shiftID)
	if err != nil {
		return nil, fmt.Errorf("показатели смены: %w", err)
	}

	defectTotals, err := s.ctrlRepo.DefectTotals(ctx, shiftID)
	if err != nil {
		return nil, fmt.Errorf("суммы дефектов смены: %w", err)
	}

	return &ShiftStatistics{
		Shift:        shift,
		Metrics:      ComputeMetrics(*totals),
		DefectTotals: defectTotals,
	}, nil
}
