package preprocess

import (
	"image"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// DefaultInputSize сторона квадратного входа модели.
const DefaultInputSize = 300

// Layout порядок осей тензора.
type Layout string

const (
	// LayoutNHWC пакет, высота, ширина, канал (экспорт из Keras).
	LayoutNHWC Layout = "nhwc"
	// LayoutNCHW пакет, канал, высота, ширина.
	LayoutNCHW Layout = "nchw"
)

// ParseLayout разбирает имя раскладки, по умолчанию NHWC.
func ParseLayout(s string) (Layout, error) {
	switch Layout(s) {
	case "", LayoutNHWC:
		return LayoutNHWC, nil
	case LayoutNCHW:
		return LayoutNCHW, nil
	default:
		return "", errors.Errorf("unknown tensor layout %q", s)
	}
}

// Shape форма тензора для одной RGB-картинки.
func (l Layout) Shape(size int) []int64 {
	s := int64(size)
	if l == LayoutNCHW {
		return []int64{1, 3, s, s}
	}
	return []int64{1, s, s, 3}
}

// TensorLen число float32 в тензоре одной картинки.
func TensorLen(size int) int {
	return size * size * 3
}

// Fill масштабирует img до size×size и пишет RGB в диапазоне 0..255 в dst.
// Нормализация выполняется внутри графа модели, альфа-канал отбрасывается.
func Fill(img image.Image, size int, layout Layout, dst []float32) error {
	if img == nil {
		return errors.New("nil image")
	}
	if size <= 0 {
		return errors.Errorf("invalid input size %d", size)
	}
	if len(dst) < TensorLen(size) {
		return errors.Errorf("destination tensor only holds %d floats, needs %d", len(dst), TensorLen(size))
	}

	resized := resize.Resize(uint(size), uint(size), img, resize.Bicubic)
	bounds := resized.Bounds()
	channelSize := size * size

	i := 0
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			rf, gf, bf := float32(r>>8), float32(g>>8), float32(b>>8)
			if layout == LayoutNCHW {
				dst[i] = rf
				dst[channelSize+i] = gf
				dst[2*channelSize+i] = bf
			} else {
				dst[3*i] = rf
				dst[3*i+1] = gf
				dst[3*i+2] = bf
			}
			i++
		}
	}

	return nil
}

// Tensor выделяет буфер и заполняет его из img.
func Tensor(img image.Image, size int, layout Layout) ([]float32, error) {
	dst := make([]float32, TensorLen(size))
	if err := Fill(img, size, layout, dst); err != nil {
		return nil, err
	}
	return dst, nil
}
