package preprocess

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/chai2010/webp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agroscan/internal/domain/entity"
)

func solidImage(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestDecoder_Formats(t *testing.T) {
	src := solidImage(40, 30, color.RGBA{R: 10, G: 200, B: 30, A: 255})

	var pngBuf, jpegBuf, webpBuf bytes.Buffer
	require.NoError(t, png.Encode(&pngBuf, src))
	require.NoError(t, jpeg.Encode(&jpegBuf, src, nil))
	require.NoError(t, webp.Encode(&webpBuf, src, &webp.Options{Lossless: true}))

	tests := []struct {
		name   string
		data   []byte
		format string
	}{
		{"png", pngBuf.Bytes(), FormatPNG},
		{"jpeg", jpegBuf.Bytes(), FormatJPEG},
		{"webp", webpBuf.Bytes(), FormatWebP},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, format, err := Decoder{}.Decode(tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.format, format)
			assert.Equal(t, 40, img.Bounds().Dx())
			assert.Equal(t, 30, img.Bounds().Dy())
		})
	}
}

func TestDecoder_Rejects(t *testing.T) {
	_, _, err := Decoder{}.Decode(nil)
	require.ErrorIs(t, err, entity.ErrEmptyImage)

	_, _, err = Decoder{}.Decode([]byte("GIF89a not really a gif"))
	require.ErrorIs(t, err, entity.ErrUnsupportedImage)

	_, _, err = Decoder{}.Decode([]byte("plain text"))
	require.ErrorIs(t, err, entity.ErrUnsupportedImage)

	// Правильная сигнатура PNG, но битое содержимое.
	_, _, err = Decoder{}.Decode([]byte("\x89PNG\r\n\x1a\n broken"))
	require.ErrorIs(t, err, entity.ErrUnsupportedImage)
}

// pngWithSize кодирует маленький PNG и переписывает размеры в IHDR.
func pngWithSize(t *testing.T, w, h uint32) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solidImage(2, 2, color.White)))
	data := buf.Bytes()

	// Сигнатура 8 байт, затем длина и тип чанка IHDR, затем ширина и высота.
	binary.BigEndian.PutUint32(data[16:20], w)
	binary.BigEndian.PutUint32(data[20:24], h)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return data
}

func TestDecoder_RejectsHugeImage(t *testing.T) {
	_, format, err := Decoder{}.Decode(pngWithSize(t, 10000, 10000))
	require.ErrorIs(t, err, entity.ErrUnsupportedImage)
	assert.Equal(t, FormatPNG, format)
	assert.Contains(t, err.Error(), "10000x10000")

	// Размер на границе проходит проверку заголовка.
	require.NoError(t, checkDimensions(FormatPNG, pngWithSize(t, 8000, 5000)))
	require.ErrorIs(t, checkDimensions(FormatPNG, pngWithSize(t, 8000, 5001)), entity.ErrUnsupportedImage)
}

func TestParseLayout(t *testing.T) {
	l, err := ParseLayout("")
	require.NoError(t, err)
	require.Equal(t, LayoutNHWC, l)

	l, err = ParseLayout("nchw")
	require.NoError(t, err)
	require.Equal(t, LayoutNCHW, l)

	_, err = ParseLayout("chw")
	require.Error(t, err)

	require.Equal(t, []int64{1, 300, 300, 3}, LayoutNHWC.Shape(300))
	require.Equal(t, []int64{1, 3, 300, 300}, LayoutNCHW.Shape(300))
}

func TestFill_NHWC(t *testing.T) {
	img := solidImage(64, 48, color.RGBA{R: 255, G: 128, B: 0, A: 255})

	data, err := Tensor(img, 8, LayoutNHWC)
	require.NoError(t, err)
	require.Len(t, data, 8*8*3)

	for i := 0; i < 8*8; i++ {
		assert.InDelta(t, 255, data[3*i], 1)
		assert.InDelta(t, 128, data[3*i+1], 1)
		assert.InDelta(t, 0, data[3*i+2], 1)
	}
}

func TestFill_NCHW(t *testing.T) {
	img := solidImage(10, 10, color.RGBA{R: 255, G: 128, B: 0, A: 255})

	data, err := Tensor(img, 4, LayoutNCHW)
	require.NoError(t, err)

	channel := 4 * 4
	for i := 0; i < channel; i++ {
		assert.InDelta(t, 255, data[i], 1)
		assert.InDelta(t, 128, data[channel+i], 1)
		assert.InDelta(t, 0, data[2*channel+i], 1)
	}
}

func TestFill_OffsetBounds(t *testing.T) {
	base := solidImage(20, 20, color.RGBA{G: 255, A: 255}).(*image.RGBA)
	sub := base.SubImage(image.Rect(5, 5, 15, 15))

	data, err := Tensor(sub, 2, LayoutNHWC)
	require.NoError(t, err)
	assert.InDelta(t, 255, data[1], 1)
}

func TestFill_Errors(t *testing.T) {
	img := solidImage(4, 4, color.White)

	require.Error(t, Fill(img, 4, LayoutNHWC, make([]float32, 10)))
	require.Error(t, Fill(img, 0, LayoutNHWC, make([]float32, 10)))
	require.Error(t, Fill(nil, 4, LayoutNHWC, make([]float32, 48)))
}
