package assets

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"photodock/internal/config"
	"photodock/internal/media"
	"photodock/internal/textutil"
)

// TransformOptions records how a photo was prepared before upload.
type TransformOptions struct {
	RemoveBackground bool
	AutoCrop         bool
	CropWidth        int
	CropHeight       int
	CropGravity      string
	CropProfile      string
}

// Metadata flattens the options into object metadata.
func (o TransformOptions) Metadata() map[string]string {
	meta := map[string]string{
		"remove-background": strconv.FormatBool(o.RemoveBackground),
		"auto-crop":         strconv.FormatBool(o.AutoCrop),
	}
	if o.AutoCrop {
		meta["crop-width"] = strconv.Itoa(o.CropWidth)
		meta["crop-height"] = strconv.Itoa(o.CropHeight)
		if o.CropGravity != "" {
			meta["crop-gravity"] = o.CropGravity
		}
		if o.CropProfile != "" {
			meta["crop-profile"] = o.CropProfile
		}
	}
	return meta
}

// UploadRequest is one photo to store.
type UploadRequest struct {
	Content     []byte
	ContentType string
	// Filename is the original item name; only its base name is used for the key.
	Filename string
	// Destination is a folder-like hint grouping uploads (e.g. "photos/class-5").
	Destination string
	RecordID    string
	RunID       string
	Transform   TransformOptions
}

// Metadata returns the object metadata stored with the upload.
func (r UploadRequest) Metadata() map[string]string {
	meta := r.Transform.Metadata()
	if r.RecordID != "" {
		meta["record-id"] = r.RecordID
	}
	if r.RunID != "" {
		meta["run-id"] = r.RunID
	}
	if r.Filename != "" {
		meta["original-filename"] = url.QueryEscape(textutil.BaseName(r.Filename))
	}
	return meta
}

// Asset identifies a stored photo.
type Asset struct {
	URL      string
	PublicID string
	Size     int64
}

// Store persists photos.
type Store interface {
	Upload(ctx context.Context, req UploadRequest) (Asset, error)
	Delete(ctx context.Context, publicID string) error
}

// ObjectKey builds a collision-free key:
//
//	{destination}/{record id | unmatched/{run id}}/{token}-{suffix}{ext}
func ObjectKey(req UploadRequest) string {
	dest := cleanPrefix(req.Destination)
	if dest == "" {
		dest = "photos"
	}
	owner := "unmatched"
	if req.RecordID != "" {
		owner = textutil.KeyToken(req.RecordID)
	} else if req.RunID != "" {
		owner = path.Join(owner, textutil.KeyToken(req.RunID))
	}
	base := textutil.BaseName(req.Filename)
	stem := textutil.KeyToken(textutil.StripExtension(base))
	ext := media.ExtensionFor(req.ContentType)
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return path.Join(dest, owner, fmt.Sprintf("%s-%s%s", stem, suffix, ext))
}

func cleanPrefix(p string) string {
	p = strings.Trim(strings.ReplaceAll(strings.TrimSpace(p), `\`, "/"), "/")
	if p == "" {
		return ""
	}
	parts := strings.Split(path.Clean(p), "/")
	kept := parts[:0]
	for _, part := range parts {
		if part == "" || part == "." || part == ".." {
			continue
		}
		kept = append(kept, textutil.PathSegment(part))
	}
	return strings.Join(kept, "/")
}

// NewFromConfig returns the configured asset store.
func NewFromConfig(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Assets.Driver {
	case config.AssetDriverS3:
		return NewS3Store(ctx, cfg.Assets)
	case config.AssetDriverLocal, "":
		return NewLocalStore(cfg.Assets.LocalDir, cfg.Assets.PublicBaseURL)
	default:
		return nil, fmt.Errorf("assets: unsupported driver %q", cfg.Assets.Driver)
	}
}
