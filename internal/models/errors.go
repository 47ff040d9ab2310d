package models

import "errors"

var (
	// ErrUnauthorized операция требует прав администратора.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrAlreadyProcessed платёж уже в конечном статусе.
	ErrAlreadyProcessed = errors.New("already processed")
	// ErrNotFound запись не найдена.
	ErrNotFound = errors.New("not found")
	// ErrInvariantViolation запрос нарушает инвариант модели.
	ErrInvariantViolation = errors.New("invariant violation")
	// ErrAlreadyExists запись с таким уникальным ключом уже есть.
	ErrAlreadyExists = errors.New("already exists")
)
