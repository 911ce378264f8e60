package pipeline

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"strings"
	"testing"

	"github.com/jewelcraft/sketchprep/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// diagonalPNG returns a 100×100 white sketch with a black diagonal line.
func diagonalPNG(t *testing.T) []byte {
	t.Helper()
	data, err := testutil.EncodePNG(testutil.WhiteWithDiagonal(100, 100))
	require.NoError(t, err)
	return data
}

// decodeStepImage decodes a step's JPEG data URL back into an image.
func decodeStepImage(t *testing.T, dataURL string) image.Image {
	t.Helper()
	require.True(t, strings.HasPrefix(dataURL, "data:image/jpeg;base64,"))

	payload, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURL, "data:image/jpeg;base64,"))
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(payload))
	require.NoError(t, err)
	return img
}

// grayStats counts dark (<128 luminance) pixels and the total pixel count.
func grayStats(img image.Image) (dark, total int) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			if g.Y < 128 {
				dark++
			}
			total++
		}
	}
	return dark, total
}

func TestRun_StepCountAndOrder(t *testing.T) {
	steps, err := Run(diagonalPNG(t))
	require.NoError(t, err)
	require.Len(t, steps, StepCount)

	names := make([]string, len(steps))
	for i, st := range steps {
		names[i] = st.Name
		assert.NotEmpty(t, st.Description, "step %q has no description", st.Name)
		assert.True(t, strings.HasPrefix(st.Image, "data:image/jpeg;base64,"),
			"step %q image is not a JPEG data URL", st.Name)
		assert.Greater(t, len(st.Image), len("data:image/jpeg;base64,"),
			"step %q image payload is empty", st.Name)
	}
	assert.Equal(t, StepNames(), names)
}

func TestRun_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty bytes", data: nil},
		{name: "truncated PNG header", data: []byte{0x89, 0x50, 0x4e, 0x47}},
		{name: "plain text", data: []byte("not an image at all")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			steps, err := Run(tt.data)
			require.ErrorIs(t, err, ErrDecode)
			assert.Nil(t, steps)
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	data := diagonalPNG(t)

	first, err := Run(data)
	require.NoError(t, err)
	second, err := Run(data)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRun_DiagonalScenario(t *testing.T) {
	steps, err := Run(diagonalPNG(t))
	require.NoError(t, err)
	require.Len(t, steps, StepCount)

	// The final cleanup must keep a majority-white raster with a visible
	// dark diagonal.
	final := steps[5]
	require.Equal(t, nameFinal, final.Name)
	assert.Contains(t, final.Description, "no inversion needed")

	dark, total := grayStats(decodeStepImage(t, final.Image))
	assert.Greater(t, dark, 20, "diagonal line missing from final step")
	assert.Less(t, float64(dark)/float64(total), 0.3, "final step is not majority white")

	// Alt C extracts a thin edge line on a white background.
	altC := steps[8]
	require.Equal(t, nameAltCanny, altC.Name)

	dark, total = grayStats(decodeStepImage(t, altC.Image))
	assert.Greater(t, dark, 10, "edge line missing from Alt C")
	assert.Less(t, float64(dark)/float64(total), 0.3, "Alt C is not majority white")
}

func TestRunStream_MatchesRun(t *testing.T) {
	data := diagonalPNG(t)

	collected, err := Run(data)
	require.NoError(t, err)

	var streamed []Step
	err = RunStream(data, func(s Step) error {
		streamed = append(streamed, s)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, collected, streamed)
}

func TestRunStream_EmitErrorAborts(t *testing.T) {
	sentinel := errors.New("client went away")

	emitted := 0
	err := RunStream(diagonalPNG(t), func(Step) error {
		emitted++
		if emitted == 3 {
			return sentinel
		}
		return nil
	})

	require.ErrorIs(t, err, sentinel)
	assert.Equal(t, 3, emitted)
}

func TestCorrectPolarity(t *testing.T) {
	t.Run("all-white raster stays untouched", func(t *testing.T) {
		white := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 0, 0, 0), 10, 10, gocv.MatTypeCV8UC1)
		defer white.Close()

		out, inverted := correctPolarity(white)
		defer out.Close()

		assert.False(t, inverted)
		assert.Equal(t, uint8(255), out.GetUCharAt(5, 5))
	})

	t.Run("all-black raster is inverted", func(t *testing.T) {
		black := gocv.Zeros(10, 10, gocv.MatTypeCV8UC1)
		defer black.Close()

		out, inverted := correctPolarity(black)
		defer out.Close()

		assert.True(t, inverted)
		assert.Equal(t, uint8(255), out.GetUCharAt(5, 5))
	})
}

func TestFinalCleanupDescription(t *testing.T) {
	assert.Contains(t, finalCleanupDescription(false), "no inversion needed")
	assert.Contains(t, finalCleanupDescription(true), "inverted — detected dark background")
}

func TestProcessor_Delegates(t *testing.T) {
	p := NewProcessor()

	steps, err := p.Run(diagonalPNG(t))
	require.NoError(t, err)
	assert.Len(t, steps, StepCount)

	_, err = p.Run(nil)
	assert.ErrorIs(t, err, ErrDecode)
}
