// Package preprocess декодирует загруженные фото листьев и готовит из них входной тензор модели.
package preprocess

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"

	"github.com/chai2010/webp"
	"github.com/pkg/errors"

	"agroscan/internal/domain/entity"
)

// Поддерживаемые форматы.
const (
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
	FormatWebP = "webp"
)

// MaxPixels ограничивает площадь картинки до декодирования.
const MaxPixels = 40_000_000

// Decoder декодирует JPEG, PNG и WebP.
type Decoder struct{}

// Decode определяет формат по содержимому и декодирует картинку.
// Ошибки оборачивают entity.ErrEmptyImage или entity.ErrUnsupportedImage.
func (Decoder) Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", entity.ErrEmptyImage
	}

	format := DetectFormat(data)
	if format == "" {
		return nil, "", errors.Wrapf(entity.ErrUnsupportedImage, "content type %q", http.DetectContentType(data))
	}
	if err := checkDimensions(format, data); err != nil {
		return nil, format, err
	}
	r := bytes.NewReader(data)

	var (
		img image.Image
		err error
	)
	switch format {
	case FormatJPEG:
		img, err = jpeg.Decode(r)
	case FormatPNG:
		img, err = png.Decode(r)
	case FormatWebP:
		img, err = webp.Decode(r)
	}
	if err != nil {
		return nil, format, errors.Wrapf(entity.ErrUnsupportedImage, "decode %s: %v", format, err)
	}

	return img, format, nil
}

// checkDimensions читает только заголовок и отклоняет картинки больше MaxPixels.
func checkDimensions(format string, data []byte) error {
	r := bytes.NewReader(data)

	var (
		cfg image.Config
		err error
	)
	switch format {
	case FormatJPEG:
		cfg, err = jpeg.DecodeConfig(r)
	case FormatPNG:
		cfg, err = png.DecodeConfig(r)
	case FormatWebP:
		cfg, err = webp.DecodeConfig(r)
	}
	if err != nil {
		return errors.Wrapf(entity.ErrUnsupportedImage, "read %s header: %v", format, err)
	}

	if cfg.Width <= 0 || cfg.Height <= 0 {
		return errors.Wrapf(entity.ErrUnsupportedImage, "invalid size %dx%d", cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return errors.Wrapf(entity.ErrUnsupportedImage, "image is %dx%d, limit is %d pixels", cfg.Width, cfg.Height, MaxPixels)
	}
	return nil
}

// DetectFormat возвращает формат картинки или пустую строку.
func DetectFormat(data []byte) string {
	switch http.DetectContentType(data) {
	case "image/jpeg":
		return FormatJPEG
	case "image/png":
		return FormatPNG
	case "image/webp":
		return FormatWebP
	default:
		return ""
	}
}

// ContentType возвращает MIME-тип формата.
func ContentType(format string) string {
	return "image/" + format
}
