package capture

import "gocv.io/x/gocv"

// Horizontal flip code for gocv.Flip.
const flipHorizontal = 1

// ToInference writes the mirrored RGB view of a captured BGR frame into dst.
// Conversion and flip preserve the frame dimensions.
func ToInference(frame gocv.Mat, dst *gocv.Mat) {
	rgb := gocv.NewMat()
	defer rgb.Close()

	gocv.CvtColor(frame, &rgb, gocv.ColorBGRToRGB)
	gocv.Flip(rgb, dst, flipHorizontal)
}

// FromInference converts an RGB inference view back to the BGR capture
// encoding, writing the result into dst.
func FromInference(rgb gocv.Mat, dst *gocv.Mat) {
	gocv.CvtColor(rgb, dst, gocv.ColorRGBToBGR)
}
