package logging

import "testing"

func TestNewProgressSamplerDefaultsStep(t *testing.T) {
	for _, step := range []float64{0, -1} {
		if s := NewProgressSampler(step); s.step != 5 || s.bucket != -1 {
			t.Fatalf("NewProgressSampler(%v) = step %v bucket %d", step, s.step, s.bucket)
		}
	}
	if s := NewProgressSampler(10); s.step != 10 {
		t.Fatalf("expected custom step, got %v", s.step)
	}
}

func TestProgressSamplerNilLogsEverything(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(50, "upload") {
		t.Fatal("nil sampler should log")
	}
}

func TestProgressSamplerPhaseChanges(t *testing.T) {
	s := NewProgressSampler(5)
	if !s.ShouldLog(0, " extract ") {
		t.Fatal("first update of a phase should log")
	}
	if s.phase != "extract" {
		t.Fatalf("phase = %q, want trimmed extract", s.phase)
	}
	if s.ShouldLog(0, "extract") {
		t.Fatal("repeated update should not log")
	}
	if !s.ShouldLog(0, "upload") {
		t.Fatal("new phase should log")
	}
	if !s.ShouldLog(10, "upload") {
		t.Fatal("bucket tracking should restart with the phase")
	}
}

func TestProgressSamplerBuckets(t *testing.T) {
	s := NewProgressSampler(5)
	steps := []struct {
		percent float64
		want    bool
	}{
		{0, true},
		{3, false},
		{5, true},
		{7, false},
		{10, true},
		{100, true},
		{105, false},
	}
	for _, step := range steps {
		if got := s.ShouldLog(step.percent, "upload"); got != step.want {
			t.Fatalf("ShouldLog(%v) = %v, want %v", step.percent, got, step.want)
		}
	}
}

func TestProgressSamplerUnknownTotal(t *testing.T) {
	s := NewProgressSampler(5)
	if !s.ShouldLog(-1, "extract") {
		t.Fatal("phase start should log without a percent")
	}
	if s.ShouldLog(-1, "extract") {
		t.Fatal("unknown percent should not log within a phase")
	}
}
