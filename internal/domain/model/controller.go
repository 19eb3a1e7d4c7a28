package model

import "time"

// Controller — контролёр ОТК, допущенный к проведению контроля.
// Хранится в таблице controllers.
type Controller struct {
	// ID — идентификатор записи
	ID int64
	// Name — ФИО контролёра (уникально)
	Name string
	// IsActive — признак активности. Контролёры не удаляются,
	// а деактивируются, чтобы сохранить ссылки в исторических сменах.
	IsActive bool
	// CreatedAt — время создания записи
	CreatedAt time.Time
}
