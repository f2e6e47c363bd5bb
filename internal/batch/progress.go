package batch

import (
	"sync"
	"time"
)

// Phase indicates the current stage of a batch.
type Phase string

const (
	PhaseStarting  Phase = "starting"
	PhaseRendering Phase = "rendering"
	PhaseWriting   Phase = "writing"
	PhaseComplete  Phase = "complete"
	PhaseFailed    Phase = "failed"
	PhaseCancelled Phase = "cancelled"
)

// Done reports whether the phase is terminal.
func (p Phase) Done() bool {
	return p == PhaseComplete || p == PhaseFailed || p == PhaseCancelled
}

// Progress is the state of a batch at one point in time.
type Progress struct {
	BatchID   string        `json:"batchId"`
	Phase     Phase         `json:"phase"`
	TotalRows int           `json:"totalRows"`
	Rendered  int           `json:"rendered"`
	Failed    int           `json:"failed"`
	Written   int           `json:"written"`
	Error     string        `json:"error,omitempty"` // set when Phase is PhaseFailed
	Elapsed   time.Duration `json:"elapsed"`
}

// Percent returns row progress as a percentage (0-100).
func (p Progress) Percent() int {
	if p.TotalRows <= 0 {
		return 0
	}
	done := p.Rendered + p.Failed
	if p.Phase == PhaseWriting {
		done = p.Written
	}
	return (done * 100) / p.TotalRows
}

// ProgressFunc receives progress updates. Calls are serialized.
type ProgressFunc func(Progress)

// reporter accumulates counters from concurrent workers and forwards
// snapshots to a ProgressFunc.
type reporter struct {
	mu      sync.Mutex
	fn      ProgressFunc
	state   Progress
	started time.Time
}

func newReporter(id string, total int, fn ProgressFunc) *reporter {
	return &reporter{
		fn:      fn,
		state:   Progress{BatchID: id, TotalRows: total},
		started: time.Now(),
	}
}

func (r *reporter) update(change func(*Progress)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	change(&r.state)
	r.state.Elapsed = time.Since(r.started)
	if r.fn != nil {
		r.fn(r.state)
	}
}

func (r *reporter) phase(p Phase) {
	r.update(func(s *Progress) { s.Phase = p })
}

func (r *reporter) fail(err error) {
	r.update(func(s *Progress) {
		s.Phase = PhaseFailed
		if isCancellation(err) {
			s.Phase = PhaseCancelled
		}
		s.Error = err.Error()
	})
}

func (r *reporter) snapshot() Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}
