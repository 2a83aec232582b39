//go:build gocv
// +build gocv

package vision

import (
	"context"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"agroscan/internal/domain/port"
)

// QualityGate отсеивает фото, на которых модель не сможет ничего разглядеть.
type QualityGate struct {
	t QualityThresholds
}

// NewQualityGate создаёт проверку качества с заданными порогами.
func NewQualityGate(t QualityThresholds) (*QualityGate, error) {
	return &QualityGate{t: t}, nil
}

// Check проверяет размер, резкость, экспозицию и блики.
func (g *QualityGate) Check(ctx context.Context, img image.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return fmt.Errorf("convert image: %w", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return fmt.Errorf("empty image")
	}

	if mat.Cols() < g.t.MinImageSide || mat.Rows() < g.t.MinImageSide {
		return fmt.Errorf("image is too small (%dx%d)", mat.Cols(), mat.Rows())
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(gray, &edges, 80, 160)
	if r := ratioOfMask(edges); r < g.t.MinSharpnessEdgeRatio {
		return fmt.Errorf("image is blurry (edge_ratio=%.4f)", r)
	}

	bright := gocv.NewMat()
	defer bright.Close()
	gocv.Threshold(gray, &bright, 250, 255, gocv.ThresholdBinary)
	if r := ratioOfMask(bright); r > g.t.MaxOverexposedRatio {
		return fmt.Errorf("overexposed image (ratio=%.4f)", r)
	}

	dark := gocv.NewMat()
	defer dark.Close()
	gocv.Threshold(gray, &dark, 20, 255, gocv.ThresholdBinaryInv)
	if r := ratioOfMask(dark); r > g.t.MaxUnderexposedRatio {
		return fmt.Errorf("underexposed image (ratio=%.4f)", r)
	}

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(mat, &hsv, gocv.ColorBGRToHSV)
	channels := gocv.Split(hsv)
	for i := range channels {
		defer channels[i].Close()
	}
	if len(channels) < 3 {
		return fmt.Errorf("invalid hsv channels")
	}

	// Блик: почти нет цвета и почти максимальная яркость.
	lowSat := gocv.NewMat()
	defer lowSat.Close()
	gocv.Threshold(channels[1], &lowSat, 40, 255, gocv.ThresholdBinaryInv)

	highVal := gocv.NewMat()
	defer highVal.Close()
	gocv.Threshold(channels[2], &highVal, 245, 255, gocv.ThresholdBinary)

	glare := gocv.NewMat()
	defer glare.Close()
	gocv.BitwiseAnd(lowSat, highVal, &glare)
	if r := ratioOfMask(glare); r > g.t.MaxGlareRatio {
		return fmt.Errorf("too much glare (ratio=%.4f)", r)
	}

	return nil
}

func ratioOfMask(mask gocv.Mat) float64 {
	total := mask.Cols() * mask.Rows()
	if total <= 0 {
		return 0
	}
	return float64(gocv.CountNonZero(mask)) / float64(total)
}

var _ port.QualityGate = (*QualityGate)(nil)
