package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"photodock/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrUpload, "upload", "put object", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrUpload) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"upload", "put object", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected placeholder detail, got %q", err.Error())
	}
}

func TestKindMapping(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{services.Wrap(services.ErrArchive, "extract", "open", "", nil), "archive"},
		{services.Wrap(services.ErrImageLoad, "crop", "decode", "", nil), "image_load"},
		{services.Wrap(services.ErrDetectionUnavailable, "crop", "detect", "", nil), "detection_unavailable"},
		{services.Wrap(services.ErrRecordWrite, "upload", "link", "", nil), "record_write"},
		{fmt.Errorf("wrapped: %w", context.DeadlineExceeded), "timeout"},
		{context.Canceled, "canceled"},
		{errors.New("plain"), "transient"},
	}
	for _, tc := range cases {
		if got := services.Kind(tc.err); got != tc.want {
			t.Fatalf("Kind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestIsFatal(t *testing.T) {
	if !services.IsFatal(services.Wrap(services.ErrArchive, "extract", "open", "", nil)) {
		t.Fatal("expected archive errors to be fatal")
	}
	if services.IsFatal(services.Wrap(services.ErrUpload, "upload", "put", "", nil)) {
		t.Fatal("expected upload errors to be per-item")
	}
}
