package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"photodock/internal/config"
	"photodock/internal/crop"
	"photodock/internal/detection"
	"photodock/internal/media"
)

type cropView struct {
	Input     string  `json:"input"`
	Output    string  `json:"output"`
	Profile   string  `json:"profile"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	RegionX   int     `json:"region_x"`
	RegionY   int     `json:"region_y"`
	RegionW   int     `json:"region_width"`
	RegionH   int     `json:"region_height"`
	HeadRatio float64 `json:"head_ratio"`
	Fallback  bool    `json:"fallback"`
	Reason    string  `json:"reason,omitempty"`
}

func newCropCommand(ctx *commandContext) *cobra.Command {
	var output string
	var profile string
	var gravity string
	var width int
	var height int

	cmd := &cobra.Command{
		Use:   "crop PHOTO",
		Short: "Crop a single photo locally with the configured face-aware profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}

			input := args[0]
			if !media.IsSupported(input) {
				return fmt.Errorf("unsupported image type %q (want jpg, jpeg, png or webp)", filepath.Ext(input))
			}
			content, err := os.ReadFile(input)
			if err != nil {
				return fmt.Errorf("read photo: %w", err)
			}

			kind := cfg.Crop.Profile
			if p := strings.ToLower(strings.TrimSpace(profile)); p != "" {
				if p != config.ProfilePassport && p != config.ProfileSquare {
					return fmt.Errorf("invalid --profile %q (want passport or square)", profile)
				}
				kind = p
			}
			grav := cfg.Crop.Gravity
			if g := strings.ToLower(strings.TrimSpace(gravity)); g != "" {
				if g != config.GravityFace && g != config.GravityCenter {
					return fmt.Errorf("invalid --gravity %q (want face or center)", gravity)
				}
				grav = g
			}
			w, h := cfg.Crop.Width, cfg.Crop.Height
			if width > 0 {
				w = width
			}
			if height > 0 {
				h = height
			}

			cropper := crop.NewFromConfig(cfg.Crop, detection.NewFromConfig(cfg), logger)
			prof := crop.ProfileFromConfig(cfg.Crop, kind, w, h)
			res, err := cropper.Crop(cmd.Context(), media.NewItem(filepath.Base(input), content), prof, grav)
			if err != nil {
				return err
			}

			target := strings.TrimSpace(output)
			if target == "" {
				target = defaultCropOutput(input, res.Filename)
			}
			if err := os.WriteFile(target, res.Content, 0o644); err != nil {
				return fmt.Errorf("write crop: %w", err)
			}

			view := cropView{
				Input:     input,
				Output:    target,
				Profile:   string(prof.Kind),
				Width:     prof.Width,
				Height:    prof.Height,
				RegionX:   res.Region.X,
				RegionY:   res.Region.Y,
				RegionW:   res.Region.Width,
				RegionH:   res.Region.Height,
				HeadRatio: res.HeadRatio,
				Fallback:  res.Fallback,
				Reason:    res.Reason,
			}
			return ctx.emit(cmd, view, view.print)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path (default: NAME-crop.EXT next to the input)")
	cmd.Flags().StringVar(&profile, "profile", "", "Crop profile: passport or square (default from config)")
	cmd.Flags().StringVar(&gravity, "gravity", "", "Crop gravity: face or center (default from config)")
	cmd.Flags().IntVar(&width, "width", 0, "Output width (default from config)")
	cmd.Flags().IntVar(&height, "height", 0, "Output height (default from config)")
	return cmd
}

func (v cropView) print(out io.Writer) {
	pairs := [][2]string{
		{"Output", v.Output},
		{"Size", fmt.Sprintf("%dx%d (%s)", v.Width, v.Height, v.Profile)},
		{"Region", fmt.Sprintf("%dx%d at %d,%d", v.RegionW, v.RegionH, v.RegionX, v.RegionY)},
		{"Fallback", yesNo(v.Fallback)},
	}
	if v.HeadRatio > 0 {
		pairs = append(pairs, [2]string{"Head ratio", fmt.Sprintf("%.3f", v.HeadRatio)})
	}
	if v.Reason != "" {
		pairs = append(pairs, [2]string{"Reason", v.Reason})
	}
	fmt.Fprintln(out, renderKeyValues(pairs))
}

// defaultCropOutput places the crop beside input, keeping the extension the
// encoder chose.
func defaultCropOutput(input, encodedName string) string {
	ext := filepath.Ext(encodedName)
	if ext == "" {
		ext = filepath.Ext(input)
	}
	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(filepath.Dir(input), stem+"-crop"+ext)
}
