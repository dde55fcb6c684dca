// Package overlay draws hand landmarks and their skeleton onto frames.
package overlay

import (
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"

	"github.com/ayusman/handpose/internal/detector"
)

// DrawingSpec is the style of one overlay element.
// Color is given in RGB; gocv takes care of the BGR channel order.
type DrawingSpec struct {
	Color        color.RGBA
	Thickness    int
	CircleRadius int
}

// DefaultLandmarkSpec is the style used for landmark points.
func DefaultLandmarkSpec() DrawingSpec {
	return DrawingSpec{Color: color.RGBA{R: 76, G: 22, B: 121, A: 255}, Thickness: 2, CircleRadius: 4}
}

// DefaultConnectionSpec is the style used for skeleton edges.
func DefaultConnectionSpec() DrawingSpec {
	return DrawingSpec{Color: color.RGBA{R: 250, G: 44, B: 250, A: 255}, Thickness: 2, CircleRadius: 2}
}

// borderColor outlines every landmark point.
var borderColor = color.RGBA{R: 224, G: 224, B: 224, A: 255}

// Renderer draws landmark sets with a fixed pair of styles.
type Renderer struct {
	landmark   DrawingSpec
	connection DrawingSpec
}

// NewRenderer creates a Renderer drawing points with landmark and edges
// with connection.
func NewRenderer(landmark, connection DrawingSpec) *Renderer {
	return &Renderer{
		landmark:   landmark,
		connection: connection,
	}
}

// Draw renders every hand onto frame in place. Edges are drawn first so that
// points stay visible on top. Points outside the frame are skipped, as is
// every edge touching one. Drawing no hands leaves the frame untouched.
func (r *Renderer) Draw(frame *gocv.Mat, hands []detector.HandLandmarks) {
	if frame == nil || frame.Empty() || len(hands) == 0 {
		return
	}

	width, height := frame.Cols(), frame.Rows()
	for i := range hands {
		r.drawHand(frame, &hands[i], width, height)
	}
}

func (r *Renderer) drawHand(frame *gocv.Mat, hand *detector.HandLandmarks, width, height int) {
	var pixels [detector.NumLandmarks]image.Point
	var visible [detector.NumLandmarks]bool

	for i, p := range hand.Points {
		pixels[i], visible[i] = ToPixel(p, width, height)
	}

	for _, c := range detector.HandConnections {
		if visible[c.From] && visible[c.To] {
			gocv.Line(frame, pixels[c.From], pixels[c.To], r.connection.Color, r.connection.Thickness)
		}
	}

	border := max(r.landmark.CircleRadius+1, int(float64(r.landmark.CircleRadius)*1.2))
	for i, pt := range pixels {
		if !visible[i] {
			continue
		}
		gocv.Circle(frame, pt, border, borderColor, r.landmark.Thickness)
		gocv.Circle(frame, pt, r.landmark.CircleRadius, r.landmark.Color, r.landmark.Thickness)
	}
}

// ToPixel maps a normalized landmark to pixel coordinates. It reports false
// when the point lies outside the unit square.
func ToPixel(p detector.Point3D, width, height int) (image.Point, bool) {
	if !inUnitRange(p.X) || !inUnitRange(p.Y) {
		return image.Point{}, false
	}

	x := min(int(math.Floor(p.X*float64(width))), width-1)
	y := min(int(math.Floor(p.Y*float64(height))), height-1)
	return image.Point{X: max(x, 0), Y: max(y, 0)}, true
}

const unitTolerance = 1e-9

func inUnitRange(v float64) bool {
	return v > -unitTolerance && v < 1+unitTolerance
}
