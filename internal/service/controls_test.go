// controls_test.go — unit-тесты валидации записей контроля.
package service

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/bigkaa/foundry-qc/qc-module/internal/config"
)

// testControlService создаёт сервис для проверки чистой валидации,
// без подключения к БД.
func testControlService(cfg *config.Config) *ControlService {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return &ControlService{
		cfg:    cfg,
		logger: logger,
	}
}

func defaultTestConfig() *config.Config {
	return &config.Config{
		MaxCastCount:   10000,
		MaxDefectCount: 10000,
	}
}

// TestValidateCounts_CardNumber проверяет формат номера маршрутной карты.
func TestValidateCounts_CardNumber(t *testing.T) {
	svc := testControlService(defaultTestConfig())

	tests := []struct {
		number string
		valid  bool
	}{
		{"123456", true},
		{"000001", true},
		{"12345", false},
		{"1234567", false},
		{"12345a", false},
		{"", false},
		{" 123456", false},
	}

	for _, tt := range tests {
		t.Run(tt.number, func(t *testing.T) {
			verr := &ValidationError{}
			svc.validateCounts(SaveControlInput{
				CardNumber:    tt.number,
				Controller:    "Петрова",
				TotalCast:     10,
				TotalAccepted: 10,
			}, verr)

			hasCardError := false
			for _, f := range verr.Fields {
				if f.Field == "card_number" {
					hasCardError = true
				}
			}
			if tt.valid && hasCardError {
				t.Errorf("номер %q отвергнут, должен быть принят", tt.number)
			}
			if !tt.valid && !hasCardError {
				t.Errorf("номер %q принят, должен быть отвергнут", tt.number)
			}
		})
	}
}

// TestValidateCounts_Counts проверяет ограничения на счётчики.
func TestValidateCounts_Counts(t *testing.T) {
	svc := testControlService(defaultTestConfig())

	tests := []struct {
		name      string
		cast      int
		accepted  int
		wantField string
	}{
		{"отлито ноль", 0, 0, "total_cast"},
		{"отлито отрицательное", -5, 0, "total_cast"},
		{"принято отрицательное", 10, -1, "total_accepted"},
		{"принято больше отлитого", 10, 11, "total_accepted"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verr := &ValidationError{}
			svc.validateCounts(SaveControlInput{
				CardNumber:    "123456",
				Controller:    "Петрова",
				TotalCast:     tt.cast,
				TotalAccepted: tt.accepted,
			}, verr)

			found := false
			for _, f := range verr.Fields {
				if f.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("ожидалась ошибка поля %s, получено: %+v", tt.wantField, verr.Fields)
			}
		})
	}
}

// TestValidateCounts_Reconciliation проверяет сверку суммы дефектов
// в мягком и жёстком режимах.
func TestValidateCounts_Reconciliation(t *testing.T) {
	in := SaveControlInput{
		CardNumber:    "123456",
		Controller:    "Петрова",
		TotalCast:     100,
		TotalAccepted: 90,
		Defects:       map[int64]int{1: 5}, // забраковано 10, дефектов 5
	}

	// Мягкий режим: расхождение — предупреждение
	svc := testControlService(defaultTestConfig())
	verr := &ValidationError{}
	svc.validateCounts(in, verr)
	if verr.hasErrors() {
		t.Errorf("мягкий режим: получены ошибки %+v", verr.Fields)
	}
	if len(verr.Warnings) == 0 {
		t.Error("мягкий режим: ожидалось предупреждение о расхождении")
	}

	// Жёсткий режим: расхождение — ошибка
	strictCfg := defaultTestConfig()
	strictCfg.StrictDefectReconciliation = true
	strictSvc := testControlService(strictCfg)
	strictVerr := &ValidationError{}
	strictSvc.validateCounts(in, strictVerr)
	if !strictVerr.hasErrors() {
		t.Error("жёсткий режим: ожидалась ошибка о расхождении")
	}

	// Совпадение сумм проходит без замечаний в обоих режимах
	in.Defects = map[int64]int{1: 10}
	okVerr := &ValidationError{}
	strictSvc.validateCounts(in, okVerr)
	if okVerr.hasErrors() {
		t.Errorf("совпадающие суммы: получены ошибки %+v", okVerr.Fields)
	}
}

// TestValidateCounts_RejectRateWarnings проверяет предупреждения
// о высоком уровне брака.
func TestValidateCounts_RejectRateWarnings(t *testing.T) {
	svc := testControlService(defaultTestConfig())

	tests := []struct {
		name     string
		accepted int
		substr   string
	}{
		{"умеренный брак без предупреждения", 80, ""},
		{"брак выше 30%", 60, "выше обычного"},
		{"брак выше 50%", 40, "критически высокий"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verr := &ValidationError{}
			rejected := 100 - tt.accepted
			svc.validateCounts(SaveControlInput{
				CardNumber:    "123456",
				Controller:    "Петрова",
				TotalCast:     100,
				TotalAccepted: tt.accepted,
				Defects:       map[int64]int{1: rejected},
			}, verr)

			found := ""
			for _, w := range verr.Warnings {
				if strings.Contains(w, "брака") {
					found = w
				}
			}
			if tt.substr == "" {
				if found != "" {
					t.Errorf("не ожидалось предупреждение, получено: %q", found)
				}
				return
			}
			if !strings.Contains(found, tt.substr) {
				t.Errorf("ожидалось предупреждение с %q, получено: %q", tt.substr, found)
			}
		})
	}
}

// TestValidateCounts_Thresholds проверяет пороги предупреждений по количествам.
func TestValidateCounts_Thresholds(t *testing.T) {
	svc := testControlService(defaultTestConfig())

	verr := &ValidationError{}
	svc.validateCounts(SaveControlInput{
		CardNumber:    "123456",
		Controller:    "Петрова",
		TotalCast:     15000,
		TotalAccepted: 15000,
	}, verr)

	if verr.hasErrors() {
		t.Errorf("большой тираж — не ошибка: %+v", verr.Fields)
	}
	found := false
	for _, w := range verr.Warnings {
		if strings.Contains(w, "порога") {
			found = true
		}
	}
	if !found {
		t.Errorf("ожидалось предупреждение о превышении порога, получено: %v", verr.Warnings)
	}
}

// TestValidationError_Is проверяет сопоставление с ErrValidation.
func TestValidationError_Is(t *testing.T) {
	verr := &ValidationError{}
	verr.addField("card_number", "тест")

	var err error = verr
	if !errors.Is(err, ErrValidation) {
		t.Error("ValidationError не сопоставляется с ErrValidation")
	}
	if !strings.Contains(err.Error(), "card_number") {
		t.Errorf("Error() = %q, ожидалось имя поля", err.Error())
	}
}
