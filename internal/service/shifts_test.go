package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/bigkaa/foundry-qc/qc-module/internal/config"
	"github.com/bigkaa/foundry-qc/qc-module/internal/domain/model"
	"github.com/bigkaa/foundry-qc/qc-module/internal/repository"
)

// fakeShiftRepo — хранилище смен в памяти для проверки автозакрытия.
type fakeShiftRepo struct {
	shifts map[int64]*model.Shift
}

func (f *fakeShiftRepo) Create(_ context.Context, s *model.Shift) error {
	s.ID = int64(len(f.shifts) + 1)
	f.shifts[s.ID] = s
	return nil
}

func (f *fakeShiftRepo) GetByID(_ context.Context, id int64) (*model.Shift, error) {
	s, ok := f.shifts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return s, nil
}

func (f *fakeShiftRepo) FindActiveByKey(_ context.Context, _ time.Time, _ int) (*model.Shift, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeShiftRepo) GetActive(_ context.Context, _ *time.Time) (*model.Shift, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeShiftRepo) ListActive(_ context.Context) ([]*model.Shift, error) {
	var active []*model.Shift
	for _, s := range f.shifts {
		if s.Status == model.ShiftStatusActive {
			active = append(active, s)
		}
	}
	return active, nil
}

func (f *fakeShiftRepo) List(_ context.Context, _, _ int) ([]*model.Shift, error) {
	return nil, nil
}

func (f *fakeShiftRepo) ListByDateRange(_ context.Context, _, _ time.Time, _ *string) ([]*model.Shift, error) {
	return nil, nil
}

func (f *fakeShiftRepo) Close(_ context.Context, id int64, endedAt time.Time) error {
	s, ok := f.shifts[id]
	if !ok || s.Status != model.ShiftStatusActive {
		return repository.ErrNotFound
	}
	s.Status = model.ShiftStatusClosed
	s.EndedAt = &endedAt
	return nil
}

func (f *fakeShiftRepo) Delete(_ context.Context, id int64) error {
	if _, ok := f.shifts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.shifts, id)
	return nil
}

// testShiftService создаёт сервис смен для проверки валидации.
// Репозитории не нужны: до них ошибочный ввод не доходит.
func testShiftService(now time.Time) *ShiftService {
	cfg := &config.Config{Location: time.UTC}
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	svc := NewShiftService(nil, nil, cfg, logger)
	svc.now = func() time.Time { return now }
	return svc
}

func TestShiftCreate_InvalidNumber(t *testing.T) {
	svc := testShiftService(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))

	_, err := svc.Create(context.Background(), CreateShiftInput{Number: 3})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("Create() с номером 3 вернул %v, ожидали ErrValidation", err)
	}

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Create() вернул %T, ожидали *ValidationError", err)
	}
	found := false
	for _, f := range verr.Fields {
		if f.Field == "shift_number" {
			found = true
		}
	}
	if !found {
		t.Errorf("Fields = %+v, ожидали ошибку по shift_number", verr.Fields)
	}
}

func TestShiftCreate_NoControllers(t *testing.T) {
	svc := testShiftService(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))

	_, err := svc.Create(context.Background(), CreateShiftInput{Number: 1})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("Create() без контролёров вернул %v, ожидали ErrValidation", err)
	}
}

func TestShiftCreate_DateTooFar(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc := testShiftService(now)

	tests := []struct {
		name    string
		date    time.Time
		wantErr bool
	}{
		{"послезавтра — ошибка", now.AddDate(0, 0, 2), true},
		{"через неделю — ошибка", now.AddDate(0, 0, 7), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), CreateShiftInput{
				Number: 1,
				Date:   tt.date,
			})
			if tt.wantErr && !errors.Is(err, ErrValidation) {
				t.Errorf("Create(%s) вернул %v, ожидали ErrValidation", tt.date.Format("2006-01-02"), err)
			}
		})
	}
}

func TestAutoCloseStale_Idempotent(t *testing.T) {
	// 10 марта, 20:00 местного времени: дневная смена (окно до 19:00)
	// просрочена, ночная — ещё нет.
	now := time.Date(2026, 3, 10, 20, 0, 0, 0, time.UTC)
	repo := &fakeShiftRepo{shifts: map[int64]*model.Shift{}}
	svc := testShiftService(now)
	svc.shiftRepo = repo

	ctx := context.Background()
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	day := &model.Shift{Date: date, Number: 1, Status: model.ShiftStatusActive}
	night := &model.Shift{Date: date, Number: 2, Status: model.ShiftStatusActive}
	_ = repo.Create(ctx, day)
	_ = repo.Create(ctx, night)

	closed, err := svc.AutoCloseStale(ctx)
	if err != nil {
		t.Fatalf("AutoCloseStale() ошибка: %v", err)
	}
	if closed != 1 {
		t.Fatalf("AutoCloseStale() закрыл %d смен, ожидали 1", closed)
	}
	if day.Status != model.ShiftStatusClosed {
		t.Error("Дневная смена не закрыта")
	}
	if night.Status != model.ShiftStatusActive {
		t.Error("Ночная смена закрыта раньше окончания окна")
	}

	// Временем окончания выставляется номинальный конец окна
	wantEnd := time.Date(2026, 3, 10, 19, 0, 0, 0, time.UTC)
	if day.EndedAt == nil || !day.EndedAt.Equal(wantEnd) {
		t.Errorf("EndedAt = %v, ожидали %v", day.EndedAt, wantEnd)
	}

	// Повторный запуск ничего не закрывает
	closed, err = svc.AutoCloseStale(ctx)
	if err != nil {
		t.Fatalf("Повторный AutoCloseStale() ошибка: %v", err)
	}
	if closed != 0 {
		t.Errorf("Повторный AutoCloseStale() закрыл %d смен, ожидали 0", closed)
	}
}
