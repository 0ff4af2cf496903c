package progress

import (
	"sync"
	"sync/atomic"
	"time"
)

// Phase names the pipeline stage a snapshot was taken in.
type Phase string

const (
	PhaseExtract Phase = "extract"
	PhaseMatch   Phase = "match"
	PhaseUpload  Phase = "upload"
	PhaseDone    Phase = "done"
)

// Snapshot is a consistent copy of a run's counters.
type Snapshot struct {
	RunID         string
	Phase         Phase
	Total         int64
	Processed     int64
	Matched       int64
	Unmatched     int64
	UploadTotal   int64
	Uploaded      int64
	Failed        int64
	Linked        int64
	LinkFailed    int64
	CropFallbacks int64
	Percent       float64
	UploadPercent float64
	Elapsed       time.Duration
}

// Observer receives snapshots. Calls are serialized by the Reporter.
type Observer interface {
	Observe(Snapshot)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Snapshot)

// Observe calls f(s).
func (f ObserverFunc) Observe(s Snapshot) {
	if f != nil {
		f(s)
	}
}

// Reporter holds the monotonic counters for one run. Increment methods are
// safe for concurrent use.
type Reporter struct {
	runID   string
	started time.Time
	now     func() time.Time

	phase atomic.Value

	total         atomic.Int64
	processed     atomic.Int64
	matched       atomic.Int64
	unmatched     atomic.Int64
	uploadTotal   atomic.Int64
	uploaded      atomic.Int64
	failed        atomic.Int64
	linked        atomic.Int64
	linkFailed    atomic.Int64
	cropFallbacks atomic.Int64

	mu        sync.Mutex
	observers []Observer
}

// NewReporter starts a reporter for runID.
func NewReporter(runID string, observers ...Observer) *Reporter {
	r := &Reporter{runID: runID, started: time.Now(), now: time.Now}
	r.phase.Store(PhaseExtract)
	for _, obs := range observers {
		if obs != nil {
			r.observers = append(r.observers, obs)
		}
	}
	return r
}

// AddObserver registers obs for subsequent publishes.
func (r *Reporter) AddObserver(obs Observer) {
	if r == nil || obs == nil {
		return
	}
	r.mu.Lock()
	r.observers = append(r.observers, obs)
	r.mu.Unlock()
}

// RunID returns the run identifier.
func (r *Reporter) RunID() string {
	if r == nil {
		return ""
	}
	return r.runID
}

// SetPhase records the current phase and publishes.
func (r *Reporter) SetPhase(phase Phase) {
	if r == nil {
		return
	}
	r.phase.Store(phase)
	r.Publish()
}

// AddTotal grows the number of items the run expects to process.
func (r *Reporter) AddTotal(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.total.Add(int64(n))
}

// AddUploadTotal grows the number of items queued for upload.
func (r *Reporter) AddUploadTotal(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.uploadTotal.Add(int64(n))
}

// AddBatch counts a matched extraction batch and publishes.
func (r *Reporter) AddBatch(matched, unmatched int) {
	if r == nil {
		return
	}
	if matched > 0 {
		r.matched.Add(int64(matched))
		r.processed.Add(int64(matched))
	}
	if unmatched > 0 {
		r.unmatched.Add(int64(unmatched))
		r.processed.Add(int64(unmatched))
	}
	r.Publish()
}

// Uploaded counts one successful upload.
func (r *Reporter) Uploaded() { r.incr(&r.uploaded) }

// Failed counts one item that failed before or during upload.
func (r *Reporter) Failed() { r.incr(&r.failed) }

// Linked counts one successful record write-back.
func (r *Reporter) Linked() { r.incr(&r.linked) }

// LinkFailed counts one failed record write-back.
func (r *Reporter) LinkFailed() { r.incr(&r.linkFailed) }

// CropFallback counts one crop that used the centered fallback.
func (r *Reporter) CropFallback() { r.incr(&r.cropFallbacks) }

func (r *Reporter) incr(counter *atomic.Int64) {
	if r == nil {
		return
	}
	counter.Add(1)
}

// Percent returns processed/total as a percentage; 0 when total is unknown.
func (r *Reporter) Percent() float64 {
	if r == nil {
		return 0
	}
	return percent(r.processed.Load(), r.total.Load())
}

// UploadPercent returns finished uploads over queued uploads as a percentage.
func (r *Reporter) UploadPercent() float64 {
	if r == nil {
		return 0
	}
	return percent(r.uploaded.Load()+r.failed.Load(), r.uploadTotal.Load())
}

// Snapshot returns the current counters.
func (r *Reporter) Snapshot() Snapshot {
	if r == nil {
		return Snapshot{}
	}
	phase, _ := r.phase.Load().(Phase)
	s := Snapshot{
		RunID:         r.runID,
		Phase:         phase,
		Total:         r.total.Load(),
		Processed:     r.processed.Load(),
		Matched:       r.matched.Load(),
		Unmatched:     r.unmatched.Load(),
		UploadTotal:   r.uploadTotal.Load(),
		Uploaded:      r.uploaded.Load(),
		Failed:        r.failed.Load(),
		Linked:        r.linked.Load(),
		LinkFailed:    r.linkFailed.Load(),
		CropFallbacks: r.cropFallbacks.Load(),
		Elapsed:       r.now().Sub(r.started),
	}
	s.Percent = percent(s.Processed, s.Total)
	s.UploadPercent = percent(s.Uploaded+s.Failed, s.UploadTotal)
	return s
}

// Publish pushes the current snapshot to every observer.
func (r *Reporter) Publish() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.observers) == 0 {
		return
	}
	snap := r.Snapshot()
	for _, obs := range r.observers {
		obs.Observe(snap)
	}
}

func percent(done, total int64) float64 {
	if total <= 0 {
		return 0
	}
	p := float64(done) / float64(total) * 100
	if p > 100 {
		return 100
	}
	return p
}
