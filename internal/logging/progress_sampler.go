package logging

import (
	"math"
	"strings"
)

// ProgressSampler decides which progress updates reach the log: the first
// update of each phase, then one per percentage step crossed. It is not safe
// for concurrent use; progress observers are called serially.
type ProgressSampler struct {
	step   float64
	phase  string
	bucket int
}

// NewProgressSampler returns a sampler logging every step percent (5 when
// step is not positive).
func NewProgressSampler(step float64) *ProgressSampler {
	if step <= 0 {
		step = 5
	}
	return &ProgressSampler{step: step, bucket: -1}
}

// ShouldLog reports whether an update at percent within phase should be
// logged. A negative percent means the total is unknown; such updates only
// log on a phase change. A nil sampler logs everything.
func (s *ProgressSampler) ShouldLog(percent float64, phase string) bool {
	if s == nil {
		return true
	}
	phase = strings.TrimSpace(phase)
	phaseChanged := phase != "" && phase != s.phase
	if phaseChanged {
		s.phase = phase
		s.bucket = -1
	}
	if percent < 0 {
		return phaseChanged
	}
	b := int(math.Min(percent, 100) / s.step)
	if b <= s.bucket {
		return phaseChanged
	}
	s.bucket = b
	return true
}
