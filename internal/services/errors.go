package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrArchive              = errors.New("archive error")
	ErrImageLoad            = errors.New("image load error")
	ErrDetectionUnavailable = errors.New("detection unavailable")
	ErrUpload               = errors.New("upload error")
	ErrRecordWrite          = errors.New("record write error")
	ErrValidation           = errors.New("validation error")
	ErrConfiguration        = errors.New("configuration error")
	ErrNotFound             = errors.New("not found")
	ErrTimeout              = errors.New("timeout")
	ErrTransient            = errors.New("transient failure")
)

// Wrap builds an error message that includes phase context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, phase, operation, message string, err error) error {
	detail := buildDetail(phase, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns a stable short label for the marker carried by err. Outcomes and
// run reports persist this label so failures can be grouped without parsing
// messages.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrArchive):
		return "archive"
	case errors.Is(err, ErrImageLoad):
		return "image_load"
	case errors.Is(err, ErrDetectionUnavailable):
		return "detection_unavailable"
	case errors.Is(err, ErrUpload):
		return "upload"
	case errors.Is(err, ErrRecordWrite):
		return "record_write"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "transient"
	}
}

// IsFatal reports whether err should abort a whole ingest run rather than a
// single item.
func IsFatal(err error) bool {
	return errors.Is(err, ErrArchive) || errors.Is(err, ErrConfiguration)
}

func buildDetail(phase, operation, message string) string {
	parts := make([]string, 0, 3)
	if phase = strings.TrimSpace(phase); phase != "" {
		parts = append(parts, phase)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
