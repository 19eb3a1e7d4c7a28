package model

import "time"

// ControlRecord — запись контроля качества по одной маршрутной карте.
// Принадлежит смене; при удалении смены удаляется каскадно вместе с дефектами.
// Хранится в таблице control_records.
type ControlRecord struct {
	// ID — идентификатор записи
	ID int64
	// ShiftID — смена, в которой проведён контроль
	ShiftID int64
	// CardNumber — номер маршрутной карты (6 цифр)
	CardNumber string
	// TotalCast — всего отлито деталей
	TotalCast int
	// TotalAccepted — всего принято деталей
	TotalAccepted int
	// Controller — имя контролёра, проводившего контроль
	Controller string
	// Notes — примечания (опционально)
	Notes string
	// CreatedAt — время создания записи
	CreatedAt time.Time
}

// DefectEntry — количество дефектов одного типа в записи контроля.
// Создаётся в одной транзакции с родительской записью, удаляется каскадно.
// Хранится в таблице defect_entries.
type DefectEntry struct {
	// ID — идентификатор записи
	ID int64
	// ControlRecordID — родительская запись контроля
	ControlRecordID int64
	// DefectTypeID — тип дефекта из справочника
	DefectTypeID int64
	// Quantity — количество дефектных деталей (> 0)
	Quantity int
}

// RecordDefect — дефект записи контроля с названиями из справочника.
// Результат join для отображения.
type RecordDefect struct {
	// ID — идентификатор defect_entry
	ID int64
	// Quantity — количество
	Quantity int
	// DefectName — название типа дефекта
	DefectName string
	// CategoryName — название категории дефекта
	CategoryName string
}

// DefectTotal — суммарное количество дефектов одного типа за смену.
type DefectTotal struct {
	// CategoryName — категория дефекта
	CategoryName string
	// DefectName — тип дефекта
	DefectName string
	// Total — суммарное количество за смену
	Total int
}
