package progress

import (
	"log/slog"
	"sync"

	"photodock/internal/logging"
)

// ChannelObserver forwards snapshots to a buffered channel without blocking
// the pipeline; snapshots are dropped while the buffer is full. The most
// recent dropped snapshot stays available through Pending.
type ChannelObserver struct {
	mu      sync.Mutex
	ch      chan Snapshot
	closed  bool
	pending *Snapshot
}

// NewChannelObserver creates an observer with the given buffer (minimum 1).
func NewChannelObserver(buffer int) *ChannelObserver {
	if buffer < 1 {
		buffer = 1
	}
	return &ChannelObserver{ch: make(chan Snapshot, buffer)}
}

// C returns the receive side of the channel.
func (o *ChannelObserver) C() <-chan Snapshot {
	return o.ch
}

// Observe implements Observer.
func (o *ChannelObserver) Observe(s Snapshot) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	select {
	case o.ch <- s:
		o.pending = nil
	default:
		o.pending = &s
	}
}

// Pending returns the latest snapshot if it was dropped instead of sent.
// Consumers call it after draining C to catch up on the final state.
func (o *ChannelObserver) Pending() (Snapshot, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.pending == nil {
		return Snapshot{}, false
	}
	return *o.pending, true
}

// Close closes the channel; later snapshots are discarded.
func (o *ChannelObserver) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	close(o.ch)
}

// LogObserver writes sampled progress lines: one per phase change and one per
// percentage bucket crossed.
type LogObserver struct {
	logger  *slog.Logger
	sampler *logging.ProgressSampler
}

// NewLogObserver logs through logger using bucket-sized percent steps.
func NewLogObserver(logger *slog.Logger, bucket float64) *LogObserver {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &LogObserver{
		logger:  logging.NewComponentLogger(logger, "progress"),
		sampler: logging.NewProgressSampler(bucket),
	}
}

// Observe implements Observer.
func (o *LogObserver) Observe(s Snapshot) {
	pct := s.Percent
	if s.Phase == PhaseUpload || s.Phase == PhaseDone {
		pct = s.UploadPercent
	}
	if !o.sampler.ShouldLog(pct, string(s.Phase)) {
		return
	}
	o.logger.Info("ingest progress",
		logging.String(logging.FieldRunID, s.RunID),
		logging.String(logging.FieldPhase, string(s.Phase)),
		logging.Float64("percent", roundPercent(pct)),
		logging.Int64("processed", s.Processed),
		logging.Int64("total", s.Total),
		logging.Int64("matched", s.Matched),
		logging.Int64("unmatched", s.Unmatched),
		logging.Int64("uploaded", s.Uploaded),
		logging.Int64("failed", s.Failed),
	)
}

func roundPercent(p float64) float64 {
	return float64(int(p*10+0.5)) / 10
}
