package vision

import (
	"encoding/binary"
	"errors"
	"math"
)

// ErrNotEnabled сборка без тега gocv.
var ErrNotEnabled = errors.New("gocv build tag is not enabled")

// QualityThresholds пороги проверки качества фото листа.
type QualityThresholds struct {
	MinImageSide          int     // минимальная сторона в пикселях
	MinSharpnessEdgeRatio float64 // доля граней Canny; меньше значит размыто
	MaxOverexposedRatio   float64 // доля пересвеченных пикселей
	MaxUnderexposedRatio  float64 // доля тёмных пикселей
	MaxGlareRatio         float64 // доля бликов (низкая насыщенность + высокая яркость)
}

// DefaultQualityThresholds возвращает пороги по умолчанию.
func DefaultQualityThresholds() QualityThresholds {
	return QualityThresholds{
		MinImageSide:          200,
		MinSharpnessEdgeRatio: 0.008,
		MaxOverexposedRatio:   0.35,
		MaxUnderexposedRatio:  0.45,
		MaxGlareRatio:         0.08,
	}
}

// float32Bytes раскладывает значения тензора в байты для cv::Mat (little endian).
func float32Bytes(data []float32) []byte {
	buf := make([]byte, 4*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// intShape переводит форму тензора в размеры cv::Mat.
func intShape(shape []int64) []int {
	sizes := make([]int, len(shape))
	for i, d := range shape {
		sizes[i] = int(d)
	}
	return sizes
}
