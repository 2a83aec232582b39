package entity

import "errors"

var (
	// ErrUnsupportedImage загруженный файл не JPEG, PNG или WebP.
	ErrUnsupportedImage = errors.New("unsupported image format")
	// ErrEmptyImage пустое тело загрузки.
	ErrEmptyImage = errors.New("empty image")
	// ErrQualityRejected фото не прошло проверку качества.
	ErrQualityRejected = errors.New("image rejected by quality gate")
	// ErrUnknownLabel метки нет в справочнике болезней.
	ErrUnknownLabel = errors.New("unknown disease label")
	// ErrScoreCount число выходов модели не совпадает с числом меток.
	ErrScoreCount = errors.New("score count does not match label count")
	// ErrDuplicateLabel метка встречается в запросе дважды.
	ErrDuplicateLabel = errors.New("duplicate disease label")
	// ErrInvalidConfidence уверенность вне диапазона 0..1.
	ErrInvalidConfidence = errors.New("confidence out of range")
)
