package crop

import (
	"image"
	"math"

	"photodock/internal/config"
	"photodock/internal/detection"
)

// Kind selects the crop geometry.
type Kind string

const (
	KindPassport Kind = config.ProfilePassport
	KindSquare   Kind = config.ProfileSquare
)

// Profile describes the output canvas and the crop rules.
type Profile struct {
	Kind   Kind
	Width  int
	Height int
	// TargetHeadRatio is the share of crop height the subject should fill.
	TargetHeadRatio float64
	// MinHeadRatio and MaxHeadRatio bound the accepted fill after clamping.
	MinHeadRatio float64
	MaxHeadRatio float64
	// SquareMargin multiplies subject height when sizing square crops.
	SquareMargin float64
	// FallbackFill is the share of the limiting dimension used by the centered fallback.
	FallbackFill float64
}

// Passport returns a fixed-aspect profile producing width×height output.
func Passport(width, height int) Profile {
	return Profile{
		Kind:            KindPassport,
		Width:           width,
		Height:          height,
		TargetHeadRatio: 0.75,
		MinHeadRatio:    0.711,
		MaxHeadRatio:    0.8,
		SquareMargin:    1.4,
		FallbackFill:    0.9,
	}
}

// Square returns a square profile with a generous margin around the subject.
func Square(side int) Profile {
	p := Passport(side, side)
	p.Kind = KindSquare
	return p
}

// ProfileFromConfig builds the profile named by kind, sized width×height,
// with thresholds taken from cfg. Square profiles use the smaller of width
// and height as their side.
func ProfileFromConfig(cfg config.Crop, kind string, width, height int) Profile {
	if width <= 0 {
		width = cfg.Width
	}
	if height <= 0 {
		height = cfg.Height
	}
	var p Profile
	if Kind(kind) == KindSquare {
		p = Square(min(width, height))
	} else {
		p = Passport(width, height)
	}
	if cfg.TargetHeadRatio > 0 {
		p.TargetHeadRatio = cfg.TargetHeadRatio
	}
	if cfg.MinHeadRatio > 0 {
		p.MinHeadRatio = cfg.MinHeadRatio
	}
	if cfg.MaxHeadRatio > 0 {
		p.MaxHeadRatio = cfg.MaxHeadRatio
	}
	if cfg.SquareMargin > 0 {
		p.SquareMargin = cfg.SquareMargin
	}
	if cfg.FallbackFill > 0 {
		p.FallbackFill = cfg.FallbackFill
	}
	return p
}

// Aspect returns width divided by height.
func (p Profile) Aspect() float64 {
	if p.Height <= 0 {
		return 1
	}
	return float64(p.Width) / float64(p.Height)
}

// Region is a crop rectangle in source pixel space.
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Rect converts the region to an image.Rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Within reports whether r lies inside a w×h image.
func (r Region) Within(w, h int) bool {
	return r.X >= 0 && r.Y >= 0 && r.Width > 0 && r.Height > 0 && r.X+r.Width <= w && r.Y+r.Height <= h
}

// Aspect returns width divided by height.
func (r Region) Aspect() float64 {
	if r.Height == 0 {
		return 0
	}
	return float64(r.Width) / float64(r.Height)
}

// PlanPassport sizes a fixed-aspect crop so box fills the target share of its
// height, centers it on box, and clamps it into a w×h image. It returns the
// clamped region, the share of crop height the box still covers, and whether
// that share lies inside the accepted band.
func PlanPassport(box detection.Box, w, h int, p Profile) (Region, float64, bool) {
	target := p.TargetHeadRatio
	if target <= 0 {
		target = 0.75
	}
	cropH := box.Height / target
	cropW := cropH * p.Aspect()
	region := fit(box.CenterX(), box.CenterY(), cropW, cropH, w, h, p.Aspect())
	ratio := HeadRatio(box, region)
	const eps = 1e-9
	ok := ratio >= p.MinHeadRatio-eps && ratio <= p.MaxHeadRatio+eps
	return region, ratio, ok
}

// PlanSquare sizes a square crop whose side is the larger of box width and
// box height times the profile margin, centered on box and shrunk as needed
// to fit a w×h image.
func PlanSquare(box detection.Box, w, h int, p Profile) Region {
	margin := p.SquareMargin
	if margin <= 0 {
		margin = 1.4
	}
	side := math.Max(box.Width, box.Height*margin)
	return fit(box.CenterX(), box.CenterY(), side, side, w, h, 1)
}

// Fallback returns a crop centered on a w×h image covering the profile's
// fallback share of the limiting dimension at the profile's aspect ratio.
func Fallback(w, h int, p Profile) Region {
	fill := p.FallbackFill
	if fill <= 0 || fill > 1 {
		fill = 0.9
	}
	aspect := p.Aspect()
	var cropW, cropH float64
	if float64(w)/float64(h) > aspect {
		cropH = float64(h) * fill
		cropW = cropH * aspect
	} else {
		cropW = float64(w) * fill
		cropH = cropW / aspect
	}
	return fit(float64(w)/2, float64(h)/2, cropW, cropH, w, h, aspect)
}

// HeadRatio returns the share of region height covered by the part of box
// visible inside region.
func HeadRatio(box detection.Box, region Region) float64 {
	if region.Height <= 0 {
		return 0
	}
	top := math.Max(box.Y, float64(region.Y))
	bottom := math.Min(box.Y+box.Height, float64(region.Y+region.Height))
	visible := bottom - top
	if visible <= 0 {
		return 0
	}
	return visible / float64(region.Height)
}

// AspectTolerance is the largest relative deviation of a region's aspect
// from its profile that a crop may have.
const AspectTolerance = 0.01

// MatchesAspect reports whether r is within AspectTolerance of aspect.
func (r Region) MatchesAspect(aspect float64) bool {
	return r.Height > 0 && aspect > 0 && aspectError(r.Width, r.Height, aspect) <= AspectTolerance
}

// fit converts a floating crop centered on (cx, cy) into an integer region of
// the given aspect inside a w×h image. Oversized crops shrink about their
// center; crops crossing an edge shift back inside.
func fit(cx, cy, cropW, cropH float64, w, h int, aspect float64) Region {
	if scale := math.Min(float64(w)/cropW, float64(h)/cropH); scale < 1 {
		cropH *= scale
	}
	rw, rh := wholePixels(cropH, w, h, aspect)
	x := clampInt(int(math.Round(cx-float64(rw)/2)), 0, w-rw)
	y := clampInt(int(math.Round(cy-float64(rh)/2)), 0, h-rh)
	return Region{X: x, Y: y, Width: rw, Height: rh}
}

// wholePixels picks integer dimensions no taller than cropH for the aspect.
// Rounding can push small regions off the aspect, so heights are tried from
// the tallest down: the first within half the tolerance wins, otherwise the
// closest one seen.
func wholePixels(cropH float64, w, h int, aspect float64) (int, int) {
	bestW, bestH, bestErr := 1, 1, math.Inf(1)
	for rh := clampInt(int(math.Round(cropH)), 1, h); rh >= 1; rh-- {
		rw := max(int(math.Round(float64(rh)*aspect)), 1)
		if rw > w {
			continue
		}
		e := aspectError(rw, rh, aspect)
		if e <= AspectTolerance/2 {
			return rw, rh
		}
		if e < bestErr {
			bestW, bestH, bestErr = rw, rh, e
		}
	}
	return bestW, bestH
}

func aspectError(w, h int, aspect float64) float64 {
	return math.Abs(float64(w)/float64(h)-aspect) / aspect
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
