package pipeline

// Step is one labeled stage of the preprocessing pipeline. Image holds the
// stage output as a base64 JPEG data URL ready for an <img> tag.
type Step struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// StepCount is the number of labeled steps a successful run produces:
// six main stages plus three alternative renderings.
const StepCount = 9

// Step names and descriptions are literal constants carried over from the
// tuning sessions that produced the parameters. They are part of the output
// contract: the viewer shows them verbatim and downstream comparisons key on
// them, so they must not be reworded or computed.
const (
	nameGrayscale = "① Grayscale"
	descGrayscale = "Convert to single-channel grayscale. Removes color noise, reduces data for processing."

	nameBilateral = "② Bilateral Filter"
	descBilateral = "Denoise while preserving edges. d=9, σColor=75, σSpace=75. Smooths paper texture without blurring pencil lines."

	nameCLAHE = "③ CLAHE"
	descCLAHE = "Contrast Limited Adaptive Histogram Equalization. clipLimit=3.0, grid=8×8. Makes faint pencil strokes visible without blowing out highlights."

	nameThreshold = "④ Adaptive Threshold"
	descThreshold = "Gaussian adaptive threshold. blockSize=21, C=10. Separates lines from background even with uneven lighting. Paper → white, lines → black."

	nameClose = "⑤ Morphological Close"
	descClose = "Close operation with 2×2 ellipse kernel. Fills tiny gaps in pencil lines without thickening them too much."

	nameFinal = "⑥ Final Cleanup"

	nameAltLight = "Alt A: Light Touch"
	descAltLight = "Less aggressive threshold (blockSize=31, C=6). Preserves more subtle shading and detail at the cost of some background noise."

	nameAltCLAHE = "Alt B: CLAHE Only (No Threshold)"
	descAltCLAHE = "Just contrast enhancement + brightness boost (α=1.3, β=40). Preserves all tonal information — pencil pressure, shading, soft edges. Least destructive."

	nameAltCanny = "Alt C: Canny Edge Detection"
	descAltCanny = "Canny edges (low=30, high=100). Extracts clean line art. Very clean but loses all shading and pencil weight information."
)

const (
	invertNoteInverted = " (inverted — detected dark background)"
	invertNoteNone     = " (no inversion needed)"
)

// finalCleanupDescription documents the last stage, including whether the
// polarity check flipped the raster.
func finalCleanupDescription(inverted bool) string {
	note := invertNoteNone
	if inverted {
		note = invertNoteInverted
	}
	return "Median blur (3px) to remove speckles" + note + ". Clean dark lines on white background, ready for Gemini."
}

// StepNames returns the step labels in emission order.
func StepNames() []string {
	return []string{
		nameGrayscale,
		nameBilateral,
		nameCLAHE,
		nameThreshold,
		nameClose,
		nameFinal,
		nameAltLight,
		nameAltCLAHE,
		nameAltCanny,
	}
}
