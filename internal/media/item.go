package media

import (
	"photodock/internal/textutil"
)

const (
	ContentTypeJPEG = "image/jpeg"
	ContentTypePNG  = "image/png"
	ContentTypeWebP = "image/webp"
)

// Item is one photo pulled from an archive or file selection. Items are never
// persisted; they live for the duration of a run.
type Item struct {
	// Filename is the original, path-qualified name from the source.
	Filename    string
	Content     []byte
	ContentType string
}

// NewItem builds an Item with its content type classified from the filename.
func NewItem(filename string, content []byte) Item {
	return Item{Filename: filename, Content: content, ContentType: ContentType(filename)}
}

// Size reports the content length in bytes.
func (i Item) Size() int { return len(i.Content) }

var supported = map[string]string{
	"jpg":  ContentTypeJPEG,
	"jpeg": ContentTypeJPEG,
	"png":  ContentTypePNG,
	"webp": ContentTypeWebP,
}

// IsSupported reports whether name carries one of the accepted image
// extensions (jpg, jpeg, png, webp), case-insensitively.
func IsSupported(name string) bool {
	_, ok := supported[textutil.Extension(name)]
	return ok
}

// ContentType classifies name by extension, defaulting to JPEG when the
// extension is missing or unrecognized.
func ContentType(name string) string {
	if ct, ok := supported[textutil.Extension(name)]; ok {
		return ct
	}
	return ContentTypeJPEG
}

// ExtensionFor returns the canonical file extension, with dot, for a content type.
func ExtensionFor(contentType string) string {
	switch contentType {
	case ContentTypePNG:
		return ".png"
	case ContentTypeWebP:
		return ".webp"
	default:
		return ".jpg"
	}
}
