package ocr

import (
	"bytes"
	"image"
	"sort"

	"github.com/disintegration/imaging"
)

const binarizeThreshold = 150

// Preprocess produces a contrast-enhanced, binarized copy of an image to
// give the OCR provider a second chance on faint or noisy faxes. It
// returns nil on any decoding or encoding failure; preprocessing is a
// best-effort step and the caller proceeds with the original bytes.
func Preprocess(data []byte) []byte {
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil
	}

	// Grayscale and contrast boost, then a median filter to knock out
	// fax speckle before thresholding.
	img := imaging.Grayscale(src)
	img = imaging.AdjustContrast(img, 30)
	img = medianFilter(img)
	img = binarize(img, binarizeThreshold)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil
	}
	return buf.Bytes()
}

// medianFilter applies a 3x3 median over the red channel. The input is
// already grayscale so a single channel carries the luminance.
func medianFilter(src *image.NRGBA) *image.NRGBA {
	bounds := src.Bounds()
	dst := imaging.Clone(src)
	w, h := bounds.Dx(), bounds.Dy()
	window := make([]uint8, 0, 9)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			window = window[:0]
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					i := (y+dy)*src.Stride + (x+dx)*4
					window = append(window, src.Pix[i])
				}
			}
			sort.Slice(window, func(a, b int) bool { return window[a] < window[b] })
			m := window[4]
			i := y*dst.Stride + x*4
			dst.Pix[i] = m
			dst.Pix[i+1] = m
			dst.Pix[i+2] = m
		}
	}
	return dst
}

func binarize(src *image.NRGBA, threshold uint8) *image.NRGBA {
	dst := imaging.Clone(src)
	for i := 0; i < len(dst.Pix); i += 4 {
		var v uint8
		if dst.Pix[i] > threshold {
			v = 255
		}
		dst.Pix[i] = v
		dst.Pix[i+1] = v
		dst.Pix[i+2] = v
		dst.Pix[i+3] = 255
	}
	return dst
}
