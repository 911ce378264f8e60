package pipeline

import (
	"bytes"
	"encoding/base64"
	"image/jpeg"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestEncodeMat_SingleChannel(t *testing.T) {
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(200, 0, 0, 0), 8, 8, gocv.MatTypeCV8UC1)
	defer m.Close()

	s, err := encodeMat(m)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(s, "data:image/jpeg;base64,"))

	payload, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(s, "data:image/jpeg;base64,"))
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())
	assert.Equal(t, 8, img.Bounds().Dy())
}

func TestEncodeMat_ThreeChannel(t *testing.T) {
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(10, 20, 30, 0), 4, 4, gocv.MatTypeCV8UC3)
	defer m.Close()

	s, err := encodeMat(m)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(s, "data:image/jpeg;base64,"))
	assert.Greater(t, len(s), len("data:image/jpeg;base64,"))
}
