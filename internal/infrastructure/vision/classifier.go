//go:build gocv
// +build gocv

package vision

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"agroscan/internal/domain/port"
	"agroscan/internal/infrastructure/classifier"
	"agroscan/internal/infrastructure/preprocess"
)

// GoCVClassifier запускает ту же ONNX-модель через модуль dnn OpenCV.
type GoCVClassifier struct {
	cfg classifier.Config
	mu  sync.Mutex
	net gocv.Net
	ok  bool
}

// NewGoCVClassifier загружает модель через gocv.ReadNetFromONNX.
func NewGoCVClassifier(cfg classifier.Config, logger *slog.Logger) (*GoCVClassifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Layout == "" {
		cfg.Layout = preprocess.LayoutNHWC
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load ONNX model: %s", cfg.ModelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendOpenCV)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	logger.Info("gocv classifier ready", slog.String("model", cfg.ModelPath), slog.Int("classes", cfg.ClassCount))

	return &GoCVClassifier{cfg: cfg, net: net, ok: true}, nil
}

// Classify готовит тензор так же, как ONNX Runtime, и выполняет прямой проход.
func (c *GoCVClassifier) Classify(ctx context.Context, img image.Image) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := preprocess.Tensor(img, c.cfg.InputSize, c.cfg.Layout)
	if err != nil {
		return nil, fmt.Errorf("prepare input: %w", err)
	}

	blob, err := gocv.NewMatWithSizesFromBytes(intShape(c.cfg.Layout.Shape(c.cfg.InputSize)), gocv.MatTypeCV32F, float32Bytes(data))
	if err != nil {
		return nil, fmt.Errorf("build input blob: %w", err)
	}
	defer blob.Close()

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.ok {
		return nil, classifier.ErrClosed
	}

	c.net.SetInput(blob, "")
	out := c.net.Forward("")
	defer out.Close()

	raw, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}
	if len(raw) != c.cfg.ClassCount {
		return nil, fmt.Errorf("model returned %d scores, expected %d", len(raw), c.cfg.ClassCount)
	}

	scores := make([]float32, len(raw))
	copy(scores, raw)
	if c.cfg.Sigmoid {
		classifier.ApplySigmoid(scores)
	}

	return scores, nil
}

// Close освобождает сеть.
func (c *GoCVClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.ok {
		return nil
	}
	c.ok = false
	if err := c.net.Close(); err != nil {
		return fmt.Errorf("close gocv net: %w", err)
	}
	return nil
}

var _ port.LeafClassifier = (*GoCVClassifier)(nil)
