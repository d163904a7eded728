package enhance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/1kuna/JPS-Prospect-Aggregate-sub003/internal/model"
	"github.com/1kuna/JPS-Prospect-Aggregate-sub003/internal/store"
	"github.com/1kuna/JPS-Prospect-Aggregate-sub003/pkg/jobqueue"
)

// StartOptions controls one iterative run.
type StartOptions struct {
	Kind         model.EnhancementKind
	SkipExisting bool
	UserID       string
}

// Iterative processes eligible prospects one at a time on a single background
// worker, persisting after each record so progress is visible in real time.
// Only one run may be active per process; a second Start is rejected.
//
// When a job queue client is configured, Start first offers the run to the
// external queue and, if accepted, monitors it instead of processing
// in-process. Queue failures degrade silently to in-process processing.
type Iterative struct {
	engine *Engine
	store  store.Store
	jobs   jobqueue.Client
	log    *zap.Logger

	graceTimeout time.Duration
	pollInterval time.Duration

	mu       sync.Mutex
	progress model.Progress
	cancel   context.CancelFunc
	done     chan struct{}
}

// IterOption configures an Iterative processor.
type IterOption func(*Iterative)

// WithJobQueue routes accepted runs through an external job queue.
func WithJobQueue(c jobqueue.Client) IterOption {
	return func(it *Iterative) { it.jobs = c }
}

// WithGraceTimeout bounds how long Stop waits for the worker to exit.
func WithGraceTimeout(d time.Duration) IterOption {
	return func(it *Iterative) { it.graceTimeout = d }
}

// WithPollInterval sets the external-job polling cadence.
func WithPollInterval(d time.Duration) IterOption {
	return func(it *Iterative) { it.pollInterval = d }
}

func NewIterative(engine *Engine, st store.Store, opts ...IterOption) *Iterative {
	it := &Iterative{
		engine:       engine,
		store:        st,
		log:          zap.L().Named("iterative"),
		graceTimeout: 5 * time.Second,
		pollInterval: 2 * time.Second,
		progress:     model.Progress{Status: model.JobIdle},
	}
	for _, opt := range opts {
		opt(it)
	}
	return it
}

// Start begins a run for the given kind. It returns an error without spawning
// a worker when a run is already active or the eligibility count fails.
func (it *Iterative) Start(ctx context.Context, opts StartOptions) (model.Progress, error) {
	if opts.Kind == "" {
		opts.Kind = model.KindAll
	}

	it.mu.Lock()
	defer it.mu.Unlock()

	if it.progress.Status == model.JobProcessing || it.progress.Status == model.JobQueued {
		return model.Progress{}, eris.New("an enhancement run is already active")
	}

	filter := store.EligibilityFilter{Kind: opts.Kind, SkipExisting: opts.SkipExisting}
	total, err := it.store.CountEligible(ctx, filter)
	if err != nil {
		return model.Progress{}, eris.Wrap(err, "iterative: count eligible")
	}

	now := time.Now().UTC()
	it.progress = model.Progress{
		Status:      model.JobProcessing,
		CurrentType: opts.Kind,
		Total:       total,
		StartedAt:   &now,
	}

	// The worker outlives the caller's request context.
	runCtx, cancel := context.WithCancel(context.Background())
	it.cancel = cancel
	it.done = make(chan struct{})

	if jobID, ok := it.submitExternal(ctx, filter, opts.Kind); ok {
		it.progress.Status = model.JobQueued
		it.progress.JobID = jobID
		go it.monitor(runCtx, jobID, opts.Kind, now)
		return it.snapshotLocked(), nil
	}

	go it.run(runCtx, opts, now)
	return it.snapshotLocked(), nil
}

// Stop signals cancellation and waits briefly for the worker to exit, then
// reports stopped regardless. An in-flight model call is allowed to finish;
// the worker observes the signal at the next loop boundary.
func (it *Iterative) Stop() model.Progress {
	it.mu.Lock()
	if it.cancel == nil || it.progress.Status.Terminal() || it.progress.Status == model.JobIdle {
		snap := it.snapshotLocked()
		it.mu.Unlock()
		return snap
	}
	cancel := it.cancel
	done := it.done
	it.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(it.graceTimeout):
		it.log.Warn("worker did not exit within grace timeout")
	}

	it.mu.Lock()
	defer it.mu.Unlock()
	if !it.progress.Status.Terminal() {
		it.progress.Status = model.JobStopped
	}
	return it.snapshotLocked()
}

// GetProgress returns a copy of the current progress; readers never alias
// the processor's internal state.
func (it *Iterative) GetProgress() model.Progress {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.snapshotLocked()
}

// run is the worker loop. It repeatedly selects the next eligible prospect,
// enhances it, and persists immediately. The loop ends when no unvisited
// eligible prospect remains or cancellation is observed. A run summary is
// written at exit regardless of outcome.
func (it *Iterative) run(ctx context.Context, opts StartOptions, started time.Time) {
	status := model.JobCompleted
	message := ""

	defer func() {
		if r := recover(); r != nil {
			status = model.JobError
			message = fmt.Sprintf("worker panic: %v", r)
			it.log.Error("iterative worker panicked", zap.Any("panic", r))
		}
		it.finish(opts.Kind, status, message, started)
	}()

	// Records that fail stay eligible only until the claim flips them to
	// failed; records this run already handled without changing their
	// eligibility (re-standardization no-ops) are tracked here so the
	// selection loop always terminates.
	seen := make(map[string]struct{})

	for {
		if ctx.Err() != nil {
			status = model.JobStopped
			return
		}

		filter := store.EligibilityFilter{
			Kind:         opts.Kind,
			SkipExisting: opts.SkipExisting,
			Limit:        len(seen) + 1,
		}
		candidates, err := it.store.ListEligible(ctx, filter)
		if err != nil {
			status = model.JobError
			message = err.Error()
			return
		}

		var next *model.Prospect
		for i := range candidates {
			if _, dup := seen[candidates[i].ID]; !dup {
				next = &candidates[i]
				break
			}
		}
		if next == nil {
			return
		}
		seen[next.ID] = struct{}{}
		it.setCurrent(next.ID)

		res, err := it.engine.ProcessOne(ctx, next.ID, opts.Kind, false, opts.UserID)
		switch {
		case ctx.Err() != nil:
			status = model.JobStopped
			return
		case err != nil:
			it.addError(fmt.Sprintf("%s: %s", next.ID, err.Error()))
			it.log.Warn("prospect enhancement failed",
				zap.String("prospect_id", next.ID), zap.Error(err))
		case res.Any():
			it.log.Debug("prospect enhanced",
				zap.String("prospect_id", next.ID),
				zap.String("kind", string(opts.Kind)))
		}
		it.incProcessed()
	}
}

// submitExternal offers the run to the job queue. Any failure is logged and
// reported as not-accepted so the caller degrades to in-process processing.
func (it *Iterative) submitExternal(ctx context.Context, filter store.EligibilityFilter, kind model.EnhancementKind) (string, bool) {
	if it.jobs == nil {
		return "", false
	}
	eligible, err := it.store.ListEligible(ctx, filter)
	if err != nil || len(eligible) == 0 {
		return "", false
	}
	ids := make([]string, len(eligible))
	for i, p := range eligible {
		ids[i] = p.ID
	}
	jobID, err := it.jobs.Submit(ctx, ids, string(kind))
	if err != nil {
		it.log.Warn("job queue unavailable, processing in-process", zap.Error(err))
		return "", false
	}
	return jobID, true
}

// monitor polls the external job until it reaches a terminal state or the
// run is canceled.
func (it *Iterative) monitor(ctx context.Context, jobID string, kind model.EnhancementKind, started time.Time) {
	status := model.JobCompleted
	message := ""
	defer func() {
		it.finish(kind, status, message, started)
	}()

	ticker := time.NewTicker(it.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			status = model.JobStopped
			return
		case <-ticker.C:
		}

		js, err := it.jobs.Status(ctx, jobID)
		if err != nil {
			status = model.JobError
			message = err.Error()
			return
		}

		it.mu.Lock()
		it.progress.Processed = js.Processed
		if js.Total > 0 {
			it.progress.Total = js.Total
		}
		it.mu.Unlock()

		if js.Done() {
			if js.State != "completed" {
				status = model.JobError
				message = "external job ended in state " + js.State
			}
			return
		}
	}
}

// finish publishes the terminal status and writes the immutable run summary.
func (it *Iterative) finish(kind model.EnhancementKind, status model.JobStatus, message string, started time.Time) {
	it.mu.Lock()
	// Stop may have force-reported stopped already; keep the first terminal
	// status observed by readers.
	if !it.progress.Status.Terminal() {
		it.progress.Status = status
	} else {
		status = it.progress.Status
	}
	it.progress.CurrentRecord = ""
	processed := it.progress.Processed
	done := it.done
	it.cancel = nil
	it.mu.Unlock()

	summary := &model.RunSummary{
		Kind:       kind,
		Status:     status,
		Processed:  processed,
		DurationMS: time.Since(started).Milliseconds(),
		Message:    message,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := it.store.InsertRunSummary(ctx, summary); err != nil {
		it.log.Warn("failed to persist run summary", zap.Error(err))
	}

	it.log.Info("iterative run finished",
		zap.String("kind", string(kind)),
		zap.String("status", string(status)),
		zap.Int("processed", processed))

	if done != nil {
		close(done)
	}
}

func (it *Iterative) setCurrent(id string) {
	it.mu.Lock()
	it.progress.CurrentRecord = id
	it.mu.Unlock()
}

func (it *Iterative) incProcessed() {
	it.mu.Lock()
	it.progress.Processed++
	it.mu.Unlock()
}

func (it *Iterative) addError(msg string) {
	it.mu.Lock()
	it.progress.Errors = append(it.progress.Errors, msg)
	it.mu.Unlock()
}

func (it *Iterative) snapshotLocked() model.Progress {
	snap := it.progress
	if len(it.progress.Errors) > 0 {
		snap.Errors = append([]string(nil), it.progress.Errors...)
	}
	return snap
}
