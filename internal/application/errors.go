package app

import "errors"

var (
	// ErrClassifierNotConfigured сервис собран без классификатора.
	ErrClassifierNotConfigured = errors.New("classifier is not configured")
	// ErrNoPredictions в запросе на отчёт нет ни одной пары метка/уверенность.
	ErrNoPredictions = errors.New("no predictions supplied")
)
