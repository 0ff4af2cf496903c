package crop

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"log/slog"
	"math"
	"strings"

	"golang.org/x/image/draw"

	"photodock/internal/config"
	"photodock/internal/detection"
	"photodock/internal/logging"
	"photodock/internal/media"
	"photodock/internal/services"
	"photodock/internal/textutil"
)

// Fallback reasons recorded on Result.
const (
	ReasonGravityCenter        = "gravity_center"
	ReasonDetectionDisabled    = "detection_disabled"
	ReasonDetectionUnavailable = "detection_unavailable"
	ReasonNoSubject            = "no_subject"
	ReasonHeadRatio            = "head_ratio_out_of_band"
)

const detectionJPEGQuality = 85

// Cropper computes and renders crops. The zero value crops to the centered
// fallback only; set Detector for subject-aware crops.
type Cropper struct {
	Detector        detection.Detector
	MaxDetectionDim int
	MinConfidence   float64
	Label           string
	JPEGQuality     int
	Logger          *slog.Logger
}

// NewFromConfig builds a Cropper from configuration. A nil detector disables
// subject detection.
func NewFromConfig(cfg config.Crop, detector detection.Detector, logger *slog.Logger) *Cropper {
	return &Cropper{
		Detector:        detector,
		MaxDetectionDim: cfg.MaxDetectionDim,
		MinConfidence:   cfg.MinConfidence,
		Label:           cfg.DetectionLabel,
		JPEGQuality:     cfg.JPEGQuality,
		Logger:          logging.NewComponentLogger(logger, "crop"),
	}
}

// Plan is the outcome of locating the subject and sizing the crop.
type Plan struct {
	Region Region
	// Subject is the detection box in source pixel space, when one qualified.
	Subject   *detection.Box
	HeadRatio float64
	Fallback  bool
	Reason    string
}

// Result is a rendered crop.
type Result struct {
	Plan
	Image       image.Image
	Content     []byte
	ContentType string
	Filename    string
}

// Crop decodes item, plans a crop for profile, and renders it. gravity
// "center" skips detection. The only error is services.ErrImageLoad.
func (c *Cropper) Crop(ctx context.Context, item media.Item, profile Profile, gravity string) (Result, error) {
	img, format, err := Decode(item.Content)
	if err != nil {
		return Result{}, err
	}
	plan := c.Plan(ctx, img, profile, gravity)
	if !plan.Region.MatchesAspect(profile.Aspect()) {
		b := img.Bounds()
		return Result{}, services.Wrap(services.ErrImageLoad, "crop", "plan", fmt.Sprintf("%s: %dx%d image is too small for a %dx%d crop", item.Filename, b.Dx(), b.Dy(), profile.Width, profile.Height), nil)
	}
	if plan.Fallback {
		logger := logging.WithContext(ctx, c.logger())
		logger.Debug("crop fell back to centered region",
			logging.String(logging.FieldFilename, item.Filename),
			logging.String("reason", plan.Reason),
			logging.Float64("head_ratio", plan.HeadRatio),
		)
	}

	out := Render(img, plan.Region, profile)
	content, contentType, err := c.encode(out, format)
	if err != nil {
		return Result{}, services.Wrap(services.ErrImageLoad, "crop", "encode", item.Filename, err)
	}
	return Result{
		Plan:        plan,
		Image:       out,
		Content:     content,
		ContentType: contentType,
		Filename:    renameFor(item.Filename, contentType),
	}, nil
}

// Plan locates the subject in img and sizes a crop for profile. It never
// fails; every problem degrades to the centered fallback.
func (c *Cropper) Plan(ctx context.Context, img image.Image, profile Profile, gravity string) Plan {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	fallback := func(reason string, ratio float64) Plan {
		return Plan{Region: Fallback(w, h, profile), HeadRatio: ratio, Fallback: true, Reason: reason}
	}

	if strings.EqualFold(strings.TrimSpace(gravity), config.GravityCenter) {
		return fallback(ReasonGravityCenter, 0)
	}
	if c == nil || c.Detector == nil {
		return fallback(ReasonDetectionDisabled, 0)
	}

	box, ok, err := c.locate(ctx, img)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, c.logger()), "subject detection failed; using centered crop", "detection_unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check detection.url and that the detection service is running"),
			logging.String(logging.FieldImpact, "photo cropped without subject positioning"),
		)
		return fallback(ReasonDetectionUnavailable, 0)
	}
	if !ok {
		return fallback(ReasonNoSubject, 0)
	}

	switch profile.Kind {
	case KindSquare:
		region := PlanSquare(box, w, h, profile)
		return Plan{Region: region, Subject: &box, HeadRatio: HeadRatio(box, region)}
	default:
		region, ratio, accepted := PlanPassport(box, w, h, profile)
		if !accepted {
			p := fallback(ReasonHeadRatio, ratio)
			p.Subject = &box
			return p
		}
		return Plan{Region: region, Subject: &box, HeadRatio: ratio}
	}
}

// locate runs detection on a downscaled copy and maps the best box back to
// source pixels.
func (c *Cropper) locate(ctx context.Context, img image.Image) (detection.Box, bool, error) {
	small, scale := downscale(img, c.maxDetectionDim())
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, small, &jpeg.Options{Quality: detectionJPEGQuality}); err != nil {
		return detection.Box{}, false, fmt.Errorf("encode detection copy: %w", err)
	}
	dets, err := c.Detector.Detect(ctx, buf.Bytes())
	if err != nil {
		return detection.Box{}, false, err
	}
	best, ok := detection.Best(dets, c.label(), c.minConfidence())
	if !ok {
		return detection.Box{}, false, nil
	}
	return best.Box.Scale(scale), true, nil
}

// downscale shrinks img so neither side exceeds maxDim, preserving aspect.
// It returns the copy and the factor applied (1 when untouched).
func downscale(img image.Image, maxDim int) (image.Image, float64) {
	b := img.Bounds()
	longest := max(b.Dx(), b.Dy())
	if maxDim <= 0 || longest <= maxDim {
		return img, 1
	}
	scale := float64(maxDim) / float64(longest)
	dw := max(1, int(math.Round(float64(b.Dx())*scale)))
	dh := max(1, int(math.Round(float64(b.Dy())*scale)))
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst, float64(dw) / float64(b.Dx())
}

// Render draws region of the full-resolution img into a transparent canvas
// of the profile's output size.
func Render(img image.Image, region Region, profile Profile) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, profile.Width, profile.Height))
	src := region.Rect().Add(img.Bounds().Min)
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, src, draw.Over, nil)
	return dst
}

func (c *Cropper) encode(img image.Image, format string) ([]byte, string, error) {
	var buf bytes.Buffer
	if format == "jpeg" {
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: c.jpegQuality()}); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), media.ContentTypeJPEG, nil
	}
	if err := png.Encode(&buf, img); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), media.ContentTypePNG, nil
}

// renameFor swaps the extension of name when the encoded format changed.
func renameFor(name, contentType string) string {
	if media.ContentType(name) == contentType && textutil.Extension(name) != "" {
		return name
	}
	return textutil.StripExtension(name) + media.ExtensionFor(contentType)
}

func (c *Cropper) logger() *slog.Logger {
	if c == nil || c.Logger == nil {
		return logging.NewNop()
	}
	return c.Logger
}

func (c *Cropper) maxDetectionDim() int {
	if c.MaxDetectionDim <= 0 {
		return 1024
	}
	return c.MaxDetectionDim
}

func (c *Cropper) minConfidence() float64 {
	if c.MinConfidence <= 0 {
		return 0.5
	}
	return c.MinConfidence
}

func (c *Cropper) label() string {
	if strings.TrimSpace(c.Label) == "" {
		return "person"
	}
	return c.Label
}

func (c *Cropper) jpegQuality() int {
	if c.JPEGQuality <= 0 || c.JPEGQuality > 100 {
		return 92
	}
	return c.JPEGQuality
}
