package ocr

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreprocessInvalidImage(t *testing.T) {
	assert.Nil(t, Preprocess(nil))
	assert.Nil(t, Preprocess([]byte("not an image")))
}

func TestPreprocessBinarizes(t *testing.T) {
	// light background with a dark band, like faxed text
	src := image.NewNRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			c := color.NRGBA{230, 230, 230, 255}
			if y >= 12 && y < 20 {
				c = color.NRGBA{40, 40, 40, 255}
			}
			src.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	out := Preprocess(buf.Bytes())
	require.NotNil(t, out)

	decoded, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 32, decoded.Bounds().Dx())

	// every pixel must be pure black or pure white after thresholding
	for y := 2; y < 30; y++ {
		for x := 2; x < 30; x++ {
			r, g, b, _ := decoded.At(x, y).RGBA()
			v := r >> 8
			assert.Contains(t, []uint32{0, 255}, v)
			assert.Equal(t, r, g)
			assert.Equal(t, g, b)
		}
	}
}
