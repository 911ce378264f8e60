// Package pipeline implements the fixed sketch preprocessing pipeline:
// grayscale, bilateral denoise, CLAHE, adaptive threshold, morphological
// close, polarity correction and median blur, plus three alternative
// renderings computed from intermediate stages.
//
// Every invocation is an independent, deterministic transform from encoded
// image bytes to an ordered list of labeled step images. Nothing is shared
// or cached between runs.
package pipeline

import (
	"errors"
	"image"

	"gocv.io/x/gocv"
)

// Filter parameters, hand-tuned against real pencil sketches. The polarity
// ratio and the Alt B scale/offset are empirical constants with no
// derivation; they are kept verbatim so output stays comparable across
// pipeline variants.
const (
	bilateralDiameter = 9
	bilateralSigma    = 75
	claheClipLimit    = 3.0
	claheTileSize     = 8
	threshMaxValue    = 255
	threshBlockSize   = 21
	threshOffset      = 10
	closeKernelSize   = 2
	polarityMidpoint  = 127
	minWhiteRatio     = 0.5
	medianKernelSize  = 3

	altThreshBlockSize = 31
	altThreshOffset    = 6
	altScaleAlpha      = 1.3
	altScaleBeta       = 40
	cannyLowThreshold  = 30
	cannyHighThreshold = 100
)

// ErrDecode is returned when the input bytes are not a recognizable image
// format. The message text travels verbatim to the viewer.
//
//nolint:staticcheck // ST1005: error text is part of the output contract
var ErrDecode = errors.New("Failed to decode image")

// Run executes the full pipeline on encoded image bytes and returns exactly
// StepCount labeled steps in fixed order. On a decode failure it returns
// ErrDecode and no steps; there are no partial results.
func Run(imgData []byte) ([]Step, error) {
	steps := make([]Step, 0, StepCount)
	err := RunStream(imgData, func(s Step) error {
		steps = append(steps, s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return steps, nil
}

// RunStream executes the same pipeline as Run but hands each step to emit as
// soon as it is produced, which lets transports stream intermediate results.
// An error from emit aborts the run and is returned unchanged.
func RunStream(imgData []byte, emit func(Step) error) error {
	original, err := gocv.IMDecode(imgData, gocv.IMReadColor)
	if err != nil {
		return ErrDecode
	}
	if original.Empty() {
		original.Close()
		return ErrDecode
	}
	defer original.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(original, &gray, gocv.ColorBGRToGray)
	if err := emitStep(emit, nameGrayscale, descGrayscale, gray); err != nil {
		return err
	}

	bilateral := gocv.NewMat()
	defer bilateral.Close()
	gocv.BilateralFilter(gray, &bilateral, bilateralDiameter, bilateralSigma, bilateralSigma)
	if err := emitStep(emit, nameBilateral, descBilateral, bilateral); err != nil {
		return err
	}

	enhanced := gocv.NewMat()
	defer enhanced.Close()
	clahe := gocv.NewCLAHEWithParams(claheClipLimit, image.Pt(claheTileSize, claheTileSize))
	clahe.Apply(bilateral, &enhanced)
	_ = clahe.Close()
	if err := emitStep(emit, nameCLAHE, descCLAHE, enhanced); err != nil {
		return err
	}

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.AdaptiveThreshold(enhanced, &thresh, threshMaxValue,
		gocv.AdaptiveThresholdGaussian, gocv.ThresholdBinary, threshBlockSize, threshOffset)
	if err := emitStep(emit, nameThreshold, descThreshold, thresh); err != nil {
		return err
	}

	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(closeKernelSize, closeKernelSize))
	closed := gocv.NewMat()
	defer closed.Close()
	gocv.MorphologyEx(thresh, &closed, gocv.MorphClose, kernel)
	kernel.Close()
	if err := emitStep(emit, nameClose, descClose, closed); err != nil {
		return err
	}

	corrected, inverted := correctPolarity(closed)
	defer corrected.Close()
	cleaned := gocv.NewMat()
	defer cleaned.Close()
	gocv.MedianBlur(corrected, &cleaned, medianKernelSize)
	if err := emitStep(emit, nameFinal, finalCleanupDescription(inverted), cleaned); err != nil {
		return err
	}

	// Alternative renderings, each computed from an intermediate stage above.
	altLight := gocv.NewMat()
	defer altLight.Close()
	gocv.AdaptiveThreshold(enhanced, &altLight, threshMaxValue,
		gocv.AdaptiveThresholdGaussian, gocv.ThresholdBinary, altThreshBlockSize, altThreshOffset)
	if err := emitStep(emit, nameAltLight, descAltLight, altLight); err != nil {
		return err
	}

	altBright := gocv.NewMat()
	defer altBright.Close()
	enhanced.ConvertToWithParams(&altBright, gocv.MatTypeCV8U, altScaleAlpha, altScaleBeta)
	if err := emitStep(emit, nameAltCLAHE, descAltCLAHE, altBright); err != nil {
		return err
	}

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(bilateral, &edges, cannyLowThreshold, cannyHighThreshold)
	edgesInv := gocv.NewMat()
	defer edgesInv.Close()
	gocv.BitwiseNot(edges, &edgesInv)
	return emitStep(emit, nameAltCanny, descAltCanny, edgesInv)
}

func emitStep(emit func(Step) error, name, description string, m gocv.Mat) error {
	img, err := encodeMat(m)
	if err != nil {
		return err
	}
	return emit(Step{Name: name, Description: description, Image: img})
}

// correctPolarity returns a copy of m flipped to dark-on-light when the
// majority of pixels sit below the midpoint, plus whether a flip happened.
// A majority-dark binarized sketch means the threshold produced inverted
// polarity (light strokes on dark paper).
func correctPolarity(m gocv.Mat) (gocv.Mat, bool) {
	out := gocv.NewMat()
	if whiteRatio(m) < minWhiteRatio {
		gocv.BitwiseNot(m, &out)
		return out, true
	}
	m.CopyTo(&out)
	return out, false
}

// whiteRatio is the fraction of pixels strictly above the 127 midpoint.
func whiteRatio(m gocv.Mat) float64 {
	total := m.Rows() * m.Cols()
	if total == 0 {
		return 0
	}
	bin := gocv.NewMat()
	defer bin.Close()
	gocv.Threshold(m, &bin, polarityMidpoint, threshMaxValue, gocv.ThresholdBinary)
	return float64(gocv.CountNonZero(bin)) / float64(total)
}

// Processor is a stateless handle over the package-level pipeline functions,
// satisfying the server's processor interface.
type Processor struct{}

// NewProcessor returns a pipeline processor.
func NewProcessor() *Processor { return &Processor{} }

// Run implements the server-facing pipeline interface.
func (*Processor) Run(imgData []byte) ([]Step, error) { return Run(imgData) }

// RunStream implements the server-facing streaming pipeline interface.
func (*Processor) RunStream(imgData []byte, emit func(Step) error) error {
	return RunStream(imgData, emit)
}
