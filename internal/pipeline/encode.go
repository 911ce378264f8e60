package pipeline

import (
	"encoding/base64"
	"fmt"

	"gocv.io/x/gocv"
)

const dataURLPrefix = "data:image/jpeg;base64,"

// encodeMat widens a raster back to three channels and wraps it as a JPEG
// data URL at codec-default quality. Widening keeps single-channel step
// outputs rendering identically to the color original in the viewer grid.
func encodeMat(m gocv.Mat) (string, error) {
	bgr := gocv.NewMat()
	defer bgr.Close()
	if m.Channels() == 1 {
		gocv.CvtColor(m, &bgr, gocv.ColorGrayToBGR)
	} else {
		m.CopyTo(&bgr)
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, bgr)
	if err != nil {
		return "", fmt.Errorf("encode step image: %w", err)
	}
	defer buf.Close()

	return dataURLPrefix + base64.StdEncoding.EncodeToString(buf.GetBytes()), nil
}
