package service

import "errors"

// Ошибки уровня сервиса; обработчики HTTP мапят их на статус-коды.
var (
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)
