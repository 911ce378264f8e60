// Package testutil provides synthetic sketch images for tests.
package testutil

import (
	"bytes"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// WhiteWithDiagonal returns a white canvas with a single black diagonal line
// from the top-left toward the bottom-right corner. The line is two pixels
// wide so it survives JPEG compression in step outputs.
func WhiteWithDiagonal(width, height int) image.Image {
	img := imaging.New(width, height, color.White)
	for i := 0; i < width && i < height; i++ {
		img.Set(i, i, color.Black)
		if i+1 < width {
			img.Set(i+1, i, color.Black)
		}
	}
	return img
}

// Solid returns a uniformly filled canvas.
func Solid(width, height int, c color.Color) image.Image {
	return imaging.New(width, height, c)
}

// EncodePNG compresses img losslessly for use as pipeline input bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
