package model

import (
	"testing"
	"time"
)

// TestNominalEnd проверяет расчёт номинального окончания смены.
func TestNominalEnd(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		t.Fatalf("Загрузка часового пояса: %v", err)
	}
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		number   int
		expected time.Time
	}{
		{
			name:     "дневная смена заканчивается в 19:00 того же дня",
			number:   1,
			expected: time.Date(2026, 3, 10, 19, 0, 0, 0, loc),
		},
		{
			name:     "ночная смена заканчивается в 07:00 следующего дня",
			number:   2,
			expected: time.Date(2026, 3, 11, 7, 0, 0, 0, loc),
		},
		{
			name:     "неизвестный номер — конец суток даты смены",
			number:   9,
			expected: time.Date(2026, 3, 10, 23, 59, 59, 0, loc),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Shift{Date: date, Number: tt.number}
			got := s.NominalEnd(loc)
			if !got.Equal(tt.expected) {
				t.Errorf("NominalEnd() = %v, ожидалось %v", got, tt.expected)
			}
		})
	}
}

// TestNominalEnd_Staleness проверяет определение просроченности смены.
func TestNominalEnd_Staleness(t *testing.T) {
	loc := time.UTC
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	day := &Shift{Date: date, Number: 1}
	night := &Shift{Date: date, Number: 2}

	// В 18:00 дневная смена ещё в окне
	at18 := time.Date(2026, 3, 10, 18, 0, 0, 0, loc)
	if at18.After(day.NominalEnd(loc)) {
		t.Error("Дневная смена просрочена в 18:00, не должна быть")
	}

	// В 20:00 дневная смена просрочена, ночная — нет
	at20 := time.Date(2026, 3, 10, 20, 0, 0, 0, loc)
	if !at20.After(day.NominalEnd(loc)) {
		t.Error("Дневная смена не просрочена в 20:00, должна быть")
	}
	if at20.After(night.NominalEnd(loc)) {
		t.Error("Ночная смена просрочена в 20:00, не должна быть")
	}

	// Наутро следующего дня в 08:00 ночная смена просрочена
	next8 := time.Date(2026, 3, 11, 8, 0, 0, 0, loc)
	if !next8.After(night.NominalEnd(loc)) {
		t.Error("Ночная смена не просрочена в 08:00 следующего дня, должна быть")
	}
}
