package models

import "errors"

// Таксономия ошибок ядра диспетчеризации. Слои выше оборачивают их через %w,
// транспорт сопоставляет с кодами ответа через errors.Is.
var (
	// ErrValidation - некорректный ввод, отклонён на границе без изменения состояния
	ErrValidation = errors.New("validation error")
	// ErrInvalidTransition - недопустимый переход статуса
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrConflict - провал compare-and-swap по версии, нужно перечитать и повторить
	ErrConflict = errors.New("version conflict")
	// ErrStaleUpdate - устаревшая точка местоположения, игнорируется
	ErrStaleUpdate = errors.New("stale location update")
	// ErrNotFound - неизвестный идентификатор сущности
	ErrNotFound = errors.New("not found")
	// ErrForbidden - роль участника не допускает операцию
	ErrForbidden = errors.New("forbidden")
)
