package port

import (
	"context"
	"image"
)

// LeafClassifier интерфейс классификатора болезней листа
type LeafClassifier interface {
	// Classify возвращает вероятность для каждой метки в порядке выходов модели
	Classify(ctx context.Context, img image.Image) ([]float32, error)

	// Close освобождает ресурсы модели
	Close() error
}

// ImageDecoder интерфейс декодера загруженных фото
type ImageDecoder interface {
	// Decode разбирает байты изображения и возвращает формат
	Decode(data []byte) (image.Image, string, error)
}

// QualityGate интерфейс проверки качества фото
type QualityGate interface {
	// Check возвращает ошибку, если фото непригодно для анализа
	Check(ctx context.Context, img image.Image) error
}
