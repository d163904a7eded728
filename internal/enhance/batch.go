package enhance

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/1kuna/JPS-Prospect-Aggregate-sub003/internal/model"
	"github.com/1kuna/JPS-Prospect-Aggregate-sub003/internal/store"
)

// BatchOptions controls one synchronous batch run.
type BatchOptions struct {
	Kind model.EnhancementKind

	// ChunkSize bounds how many prospects are taken per chunk.
	ChunkSize int

	// CheckpointEvery logs a progress checkpoint after this many successes.
	CheckpointEvery int

	Force  bool
	UserID string
}

const (
	defaultChunkSize  = 50
	defaultCheckpoint = 100
)

// Batch runs one enhancement kind over a fixed list of prospects,
// synchronously in the caller's goroutine. Per-record failures, including
// panics, are contained and logged; they never reduce the count contributed
// by other records and never escape Run.
type Batch struct {
	engine *Engine
	store  store.Store
	log    *zap.Logger
}

func NewBatch(engine *Engine, st store.Store) *Batch {
	return &Batch{engine: engine, store: st, log: zap.L().Named("batch")}
}

// Run processes the given prospects in fixed-size chunks and returns the
// number successfully enhanced. A run summary is persisted at the end
// regardless of outcome.
func (b *Batch) Run(ctx context.Context, ids []string, opts BatchOptions) int {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = defaultChunkSize
	}
	if opts.CheckpointEvery <= 0 {
		opts.CheckpointEvery = defaultCheckpoint
	}
	if opts.Kind == "" {
		opts.Kind = model.KindAll
	}

	start := time.Now()
	succeeded := 0
	failed := 0

	for begin := 0; begin < len(ids); begin += opts.ChunkSize {
		end := begin + opts.ChunkSize
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[begin:end]

		for _, id := range chunk {
			if ctx.Err() != nil {
				b.finish(ctx, opts.Kind, model.JobStopped, succeeded, start, "canceled")
				return succeeded
			}
			if b.runOne(ctx, id, opts) {
				succeeded++
				if succeeded%opts.CheckpointEvery == 0 {
					b.log.Info("batch checkpoint",
						zap.Int("succeeded", succeeded),
						zap.Int("failed", failed),
						zap.Int("total", len(ids)))
				}
			} else {
				failed++
			}
		}
	}

	status := model.JobCompleted
	msg := ""
	if failed > 0 {
		msg = fmt.Sprintf("%d of %d records failed", failed, len(ids))
	}
	b.finish(ctx, opts.Kind, status, succeeded, start, msg)
	return succeeded
}

// runOne enhances a single prospect, absorbing any panic or error.
func (b *Batch) runOne(ctx context.Context, id string, opts BatchOptions) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			b.log.Error("panic while enhancing prospect",
				zap.String("prospect_id", id),
				zap.Any("panic", r))
			if err := b.store.ClearInProgress(context.WithoutCancel(ctx), id, model.EnhancementFailed); err != nil {
				b.log.Warn("failed to mark prospect failed after panic",
					zap.String("prospect_id", id), zap.Error(err))
			}
		}
	}()

	res, err := b.engine.ProcessOne(ctx, id, opts.Kind, opts.Force, opts.UserID)
	if err != nil {
		b.log.Warn("prospect enhancement failed",
			zap.String("prospect_id", id),
			zap.String("kind", string(opts.Kind)),
			zap.Error(err))
		return false
	}
	return res.Any()
}

func (b *Batch) finish(ctx context.Context, kind model.EnhancementKind, status model.JobStatus, processed int, start time.Time, msg string) {
	summary := &model.RunSummary{
		Kind:       kind,
		Status:     status,
		Processed:  processed,
		DurationMS: time.Since(start).Milliseconds(),
		Message:    msg,
	}
	if err := b.store.InsertRunSummary(context.WithoutCancel(ctx), summary); err != nil {
		b.log.Warn("failed to persist run summary", zap.Error(err))
	}
	b.log.Info("batch run finished",
		zap.String("kind", string(kind)),
		zap.String("status", string(status)),
		zap.Int("processed", processed),
		zap.Duration("duration", time.Since(start)))
}
