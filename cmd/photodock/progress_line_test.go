package main

import (
	"bytes"
	"strings"
	"testing"

	"photodock/internal/progress"
)

func TestProgressLineEndsOnFinalSnapshot(t *testing.T) {
	var buf bytes.Buffer
	line := startProgressLine(&buf)
	obs := line.Observer()
	for i := int64(1); i <= 200; i++ {
		obs.Observe(progress.Snapshot{Phase: progress.PhaseUpload, UploadTotal: 200, Uploaded: i, UploadPercent: float64(i) / 2})
	}
	obs.Observe(progress.Snapshot{Phase: progress.PhaseDone, UploadTotal: 200, Uploaded: 200, UploadPercent: 100})
	line.Stop()

	out := strings.TrimRight(buf.String(), "\n ")
	frames := strings.Split(out, "\r")
	final := frames[len(frames)-1]
	if !strings.HasPrefix(final, "[done] 100.0% 200/200") {
		t.Fatalf("expected the line to end on the done snapshot, got %q", final)
	}
}
