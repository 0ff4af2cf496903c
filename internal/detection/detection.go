package detection

import (
	"context"
	"strings"
)

// Box is an axis-aligned rectangle in the pixel space of the submitted image.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Scale divides every coordinate by factor, mapping a box found on a
// downscaled copy back onto the original image.
func (b Box) Scale(factor float64) Box {
	if factor <= 0 || factor == 1 {
		return b
	}
	return Box{X: b.X / factor, Y: b.Y / factor, Width: b.Width / factor, Height: b.Height / factor}
}

// CenterX returns the horizontal midpoint.
func (b Box) CenterX() float64 { return b.X + b.Width/2 }

// CenterY returns the vertical midpoint.
func (b Box) CenterY() float64 { return b.Y + b.Height/2 }

// Detection is one labelled result.
type Detection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
}

// Detector locates objects in an encoded image.
type Detector interface {
	Detect(ctx context.Context, image []byte) ([]Detection, error)
}

// DetectorFunc adapts a function to Detector.
type DetectorFunc func(ctx context.Context, image []byte) ([]Detection, error)

// Detect calls f.
func (f DetectorFunc) Detect(ctx context.Context, image []byte) ([]Detection, error) {
	return f(ctx, image)
}

// Best returns the highest-confidence detection whose label matches label
// (case-insensitively) and whose confidence is strictly above minConfidence.
// Ties keep the earlier detection.
func Best(detections []Detection, label string, minConfidence float64) (Detection, bool) {
	var (
		best  Detection
		found bool
	)
	for _, d := range detections {
		if !strings.EqualFold(strings.TrimSpace(d.Label), label) {
			continue
		}
		if d.Confidence <= minConfidence {
			continue
		}
		if d.Box.Width <= 0 || d.Box.Height <= 0 {
			continue
		}
		if !found || d.Confidence > best.Confidence {
			best = d
			found = true
		}
	}
	return best, found
}
