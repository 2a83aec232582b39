//go:build !gocv
// +build !gocv

package vision

import (
	"context"
	"image"
	"log/slog"

	"agroscan/internal/infrastructure/classifier"
)

// GoCVClassifier заглушка (без OpenCV).
type GoCVClassifier struct{}

// NewGoCVClassifier возвращает ошибку, если сборка без тега gocv.
func NewGoCVClassifier(cfg classifier.Config, logger *slog.Logger) (*GoCVClassifier, error) {
	_ = cfg
	_ = logger
	return nil, ErrNotEnabled
}

// Classify возвращает ошибку, если сборка без тега gocv.
func (c *GoCVClassifier) Classify(ctx context.Context, img image.Image) ([]float32, error) {
	_ = ctx
	_ = img
	return nil, ErrNotEnabled
}

// Close ничего не делает.
func (c *GoCVClassifier) Close() error {
	return nil
}

// QualityGate заглушка (без OpenCV).
type QualityGate struct{}

// NewQualityGate возвращает ошибку, если сборка без тега gocv.
func NewQualityGate(t QualityThresholds) (*QualityGate, error) {
	_ = t
	return nil, ErrNotEnabled
}

// Check возвращает ошибку, если сборка без тега gocv.
func (g *QualityGate) Check(ctx context.Context, img image.Image) error {
	_ = ctx
	_ = img
	return ErrNotEnabled
}
