package model

import "time"

// DefectCategory — категория дефектов (второй сорт, доработка, окончательный брак).
// Справочные данные, заполняются миграцией, меняются редко.
// Хранится в таблице defect_categories.
type DefectCategory struct {
	// ID — идентификатор категории
	ID int64
	// Name — название категории (уникально)
	Name string
	// Description — описание (опционально)
	Description string
	// SortOrder — порядок сортировки при отображении
	SortOrder int
	// CreatedAt — время создания записи
	CreatedAt time.Time
}

// DefectType — тип дефекта внутри категории.
// Хранится в таблице defect_types, уникален в паре (категория, название).
type DefectType struct {
	// ID — идентификатор типа
	ID int64
	// CategoryID — категория дефекта
	CategoryID int64
	// Name — название типа
	Name string
	// Description — описание (опционально)
	Description string
	// IsActive — признак активности (неактивные не предлагаются в форме)
	IsActive bool
	// SortOrder — порядок сортировки при отображении
	SortOrder int
	// CreatedAt — время создания записи
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time
}

// DefectCategoryGroup — категория со списком её типов.
// Используется для формы ввода записи контроля.
type DefectCategoryGroup struct {
	// Category — категория дефектов
	Category DefectCategory
	// Types — типы дефектов категории
	Types []DefectType
}
