package model

import "time"

// Статусы смены.
const (
	// ShiftStatusActive — смена открыта, приём записей контроля разрешён.
	ShiftStatusActive = "active"
	// ShiftStatusClosed — смена закрыта. Закрытая смена неизменяема.
	ShiftStatusClosed = "closed"
)

// ShiftWindow — номинальное временное окно смены.
type ShiftWindow struct {
	// StartHour — час начала смены (локальное время цеха)
	StartHour int
	// EndHour — час окончания смены
	EndHour int
	// EndsNextDay — окончание приходится на следующие сутки (ночная смена)
	EndsNextDay bool
}

// ShiftWindows — окна смен цеха по номеру смены.
// Смена 1 — дневная (07:00–19:00), смена 2 — ночная (19:00–07:00).
var ShiftWindows = map[int]ShiftWindow{
	1: {StartHour: 7, EndHour: 19},
	2: {StartHour: 19, EndHour: 7, EndsNextDay: true},
}

// Shift — рабочая смена ОТК.
// Хранится в таблице shifts.
type Shift struct {
	// ID — идентификатор смены
	ID int64
	// Date — дата смены (день, к которому смена относится)
	Date time.Time
	// Number — номер смены (1 или 2, см. ShiftWindows)
	Number int
	// Supervisor — старший смены
	Supervisor string
	// Controllers — имена контролёров смены
	Controllers []string
	// Status — статус (active, closed)
	Status string
	// StartedAt — фактическое время открытия
	StartedAt time.Time
	// EndedAt — время закрытия (nil, пока смена активна)
	EndedAt *time.Time
}

// NominalEnd возвращает номинальное время окончания смены в локации loc.
// Для ночной смены окончание приходится на следующие сутки.
func (s *Shift) NominalEnd(loc *time.Location) time.Time {
	w, ok := ShiftWindows[s.Number]
	if !ok {
		// Неизвестный номер — считаем концом суток даты смены.
		return time.Date(s.Date.Year(), s.Date.Month(), s.Date.Day(), 23, 59, 59, 0, loc)
	}
	end := time.Date(s.Date.Year(), s.Date.Month(), s.Date.Day(), w.EndHour, 0, 0, 0, loc)
	if w.EndsNextDay {
		end = end.AddDate(0, 0, 1)
	}
	return end
}
