// Package detection talks to the object-detection service used by the
// face-aware cropper.
//
// The service accepts an encoded image and answers with labelled bounding
// boxes in the pixel space of the submitted image. HTTPClient throttles
// requests with a token bucket so large runs do not flood the service, and
// reports transport failures and 5xx answers as
// services.ErrDetectionUnavailable; callers are expected to degrade rather
// than fail when they see it.
package detection
