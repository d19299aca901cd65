package models

const (
	// DefaultCredentialTTL время жизни учетных данных в хранилище
	DefaultCredentialTTL = 24 * 60 * 60 // 24 часа в секундах

	// RateLimitRequests количество запросов в окне
	RateLimitRequests = 20

	// RateLimitWindow окно ограничения частоты запросов
	RateLimitWindow = 60 // 1 минута в секундах
)
