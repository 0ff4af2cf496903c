package ingest

import (
	"time"

	"photodock/internal/progress"
	"photodock/internal/upload"
)

// Run statuses reported by Report.Status.
const (
	StatusOK      = "ok"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// Failure is one item that did not end up uploaded and linked. URL and
// PublicID are set when the asset exists but was not linked.
type Failure struct {
	Filename string `json:"filename"`
	RecordID string `json:"record_id,omitempty"`
	Kind     string `json:"kind"`
	Message  string `json:"message"`
	URL      string `json:"url,omitempty"`
	PublicID string `json:"public_id,omitempty"`
}

// Report is the final account of a run.
type Report struct {
	RunID         string        `json:"run_id"`
	Source        string        `json:"source"`
	Destination   string        `json:"destination,omitempty"`
	FastMode      bool          `json:"fast_mode"`
	StartedAt     time.Time     `json:"started_at"`
	FinishedAt    time.Time     `json:"finished_at"`
	Elapsed       time.Duration `json:"elapsed_ns"`
	IndexSize     int           `json:"index_size"`
	IndexOmitted  int           `json:"index_omitted"`
	IndexShadowed []string      `json:"index_shadowed,omitempty"`
	Total         int           `json:"total"`
	Processed     int           `json:"processed"`
	Matched       int           `json:"matched"`
	Unmatched     int           `json:"unmatched"`
	Uploaded      int           `json:"uploaded"`
	Failed        int           `json:"failed"`
	Linked        int           `json:"linked"`
	LinkFailed    int           `json:"link_failed"`
	CropFallbacks int           `json:"crop_fallbacks"`
	Batches       int           `json:"upload_batches"`
	Throughput    float64       `json:"items_per_second"`
	Error         string        `json:"error,omitempty"`
	Failures      []Failure     `json:"failures"`

	Outcomes []upload.Outcome `json:"-"`
}

// Status summarizes the run: failed when it aborted, partial when any item
// failed, ok otherwise.
func (r *Report) Status() string {
	switch {
	case r.Error != "":
		return StatusFailed
	case len(r.Failures) > 0:
		return StatusPartial
	default:
		return StatusOK
	}
}

// Unlinked returns failures whose asset was uploaded but not linked.
func (r *Report) Unlinked() []Failure {
	var out []Failure
	for _, f := range r.Failures {
		if f.PublicID != "" {
			out = append(out, f)
		}
	}
	return out
}

func (r *Report) addUpload(res upload.Result) {
	r.Outcomes = res.Outcomes
	r.Uploaded = res.Uploaded
	r.Failed = res.Failed
	r.Linked = res.Linked
	r.LinkFailed = res.LinkFailed
	r.Batches = res.Batches
	r.Throughput = res.Throughput
	for _, o := range res.Outcomes {
		if o.Err == nil {
			continue
		}
		f := Failure{
			Filename: o.Filename,
			RecordID: o.RecordID,
			Kind:     o.Kind(),
			Message:  o.Err.Error(),
		}
		if o.Success {
			f.URL = o.URL
			f.PublicID = o.PublicID
		}
		r.Failures = append(r.Failures, f)
	}
}

func (r *Report) finish(snap progress.Snapshot, err error) {
	r.FinishedAt = time.Now()
	r.Elapsed = r.FinishedAt.Sub(r.StartedAt)
	r.Total = int(snap.Total)
	r.Processed = int(snap.Processed)
	r.Matched = int(snap.Matched)
	r.Unmatched = int(snap.Unmatched)
	r.CropFallbacks = int(snap.CropFallbacks)
	if err != nil {
		r.Error = err.Error()
	}
	if r.Failures == nil {
		r.Failures = []Failure{}
	}
}
