// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound — ресурс не найден.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrConflict — конфликт (дублирующийся ресурс).
	ErrConflict = errors.New("конфликт — ресурс уже существует")
	// ErrDuplicateShift — активная смена с такой парой (дата, номер) уже открыта.
	ErrDuplicateShift = errors.New("активная смена с такими датой и номером уже открыта")
	// ErrDuplicateCard — маршрутная карта уже обработана.
	ErrDuplicateCard = errors.New("маршрутная карта уже обработана")
	// ErrInvalidState — операция недопустима в текущем состоянии ресурса.
	ErrInvalidState = errors.New("операция недопустима в текущем состоянии")
	// ErrCardServiceUnavailable — сервис маршрутных карт недоступен.
	ErrCardServiceUnavailable = errors.New("сервис маршрутных карт недоступен")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
)

// FieldError — ошибка валидации отдельного поля.
type FieldError struct {
	// Field — имя поля в запросе.
	Field string `json:"field"`
	// Message — описание ошибки.
	Message string `json:"message"`
}

// ValidationError — совокупность ошибок валидации записи контроля.
// Warnings — предупреждения, не блокирующие сохранение.
type ValidationError struct {
	Fields   []FieldError `json:"fields"`
	Warnings []string     `json:"warnings,omitempty"`
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "ошибка валидации: " + strings.Join(msgs, "; ")
}

// Unwrap позволяет сопоставлять ValidationError с ErrValidation через errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// addField добавляет ошибку поля.
func (e *ValidationError) addField(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// addWarning добавляет предупреждение.
func (e *ValidationError) addWarning(message string) {
	e.Warnings = append(e.Warnings, message)
}

// hasErrors сообщает, есть ли блокирующие ошибки.
func (e *ValidationError) hasErrors() bool {
	return len(e.Fields) > 0
}
