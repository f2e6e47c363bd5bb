package web

import (
	"context"
	"net/http"
	"sync"

	"github.com/JonMunkholm/credgen/internal/batch"
	"github.com/JonMunkholm/credgen/internal/core"
	"github.com/JonMunkholm/credgen/internal/logging"
)

// BatchStatus is the state of the most recent batch started by the server.
type BatchStatus struct {
	Running    bool                `json:"running"`
	Progress   batch.Progress      `json:"progress"`
	Percent    int                 `json:"percent"`
	OutputDir  string              `json:"outputDir,omitempty"`
	Files      []string            `json:"files,omitempty"`
	FailedRows []batch.FailedRow   `json:"failedRows,omitempty"`
	Limiter    batch.LimiterStatus `json:"limiter"`
}

// batchTracker keeps the status of the latest batch.
type batchTracker struct {
	mu     sync.Mutex
	status BatchStatus
}

func (t *batchTracker) start(dir string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = BatchStatus{Running: true, OutputDir: dir, Progress: batch.Progress{Phase: batch.PhaseStarting}}
}

func (t *batchTracker) progress(p batch.Progress) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.Progress = p
	t.status.Percent = p.Percent()
}

func (t *batchTracker) finish(res *batch.Result, files []string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.Running = false
	t.status.Files = files
	if res != nil {
		t.status.FailedRows = res.FailedRows
	}
	// Refusals happen before the first progress update.
	if err != nil && !t.status.Progress.Phase.Done() {
		t.status.Progress.Phase = batch.PhaseFailed
		t.status.Progress.Error = err.Error()
	}
}

func (t *batchTracker) get() BatchStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	st := t.status
	st.Files = append([]string(nil), t.status.Files...)
	st.FailedRows = append([]batch.FailedRow(nil), t.status.FailedRows...)
	return st
}

// handleGenerate starts a batch over the current session and writes the
// credentials into the output directory. The batch runs in the background
// and is observed through /api/batch/status; ?wait=1 blocks until it ends
// and returns the final status.
//
// Validation runs before a slot is taken so a refused batch answers with
// the full error set.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	snap := s.session.Snapshot()
	if err := core.Validate(snap).Err(); err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	if err := s.limiter.Acquire(r.Context()); err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	logger := logging.FromContext(r.Context())
	opts := s.batchOpts
	opts.Progress = s.batches.progress
	orch := batch.New(s.engine, opts)

	// The batch outlives the request unless the caller waits for it.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), requestTimeout(opts.Timeout))
	s.batches.start(s.outputDir)

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer cancel()
		defer s.limiter.Release()

		res, files, err := orch.Export(ctx, snap, s.outputDir)
		s.batches.finish(res, files, err)
		if err != nil {
			logger.Error("batch failed", "error", err, "output_dir", s.outputDir)
			return
		}
		logger.Info("batch complete",
			"batch_id", res.BatchID,
			"files", len(files),
			"failed_rows", len(res.FailedRows),
			"duration_ms", res.Duration.Milliseconds(),
		)
	}()

	if !parseBoolParam(r, "wait") {
		writeJSON(w, http.StatusAccepted, s.batchStatus())
		return
	}

	select {
	case <-done:
	case <-r.Context().Done():
		cancel()
		<-done
	}
	st := s.batchStatus()
	if st.Progress.Phase != batch.PhaseComplete {
		writeJSON(w, http.StatusInternalServerError, st)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleBatchStatus reports the latest batch and the limiter state.
func (s *Server) handleBatchStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.batchStatus())
}

func (s *Server) batchStatus() BatchStatus {
	st := s.batches.get()
	st.Limiter = s.limiter.Status()
	return st
}
