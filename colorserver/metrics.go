// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package colorserver

import (
	"context"
	"time"
)

// Operation and stage labels reported to StageMetricsRecorder
const (
	MetricsOpBatchSet = "batch_set"
	MetricsOpDelete   = "delete"
	MetricsOpList     = "list"

	MetricsStageTotal    = "total"
	MetricsStageValidate = "validate"
	MetricsStageStore    = "store"
)

// StageTiming is one observed stage of a service call
type StageTiming struct {
	Operation string
	Stage     string
	Elapsed   time.Duration
	Documents int
	Failed    bool
}

// StageMetricsRecorder receives stage timings, e.g. to feed a histogram
type StageMetricsRecorder interface {
	ObserveStage(ctx context.Context, timing StageTiming)
}

type StageMetricsRecorderFunc func(ctx context.Context, timing StageTiming)

func (f StageMetricsRecorderFunc) ObserveStage(ctx context.Context, timing StageTiming) {
	f(ctx, timing)
}

// opTimer times the stages of one call. A nil timer observes nothing.
type opTimer struct {
	svc   *DocumentService
	op    string
	begin time.Time
	mark  time.Time
}

// startOp returns nil unless a recorder or stage logging is configured
func (s *DocumentService) startOp(op string) *opTimer {
	if s.config.StageMetrics == nil && !s.config.LogStageTimings {
		return nil
	}
	now := time.Now()
	return &opTimer{svc: s, op: op, begin: now, mark: now}
}

// stage reports the time since the previous stage ended
func (t *opTimer) stage(ctx context.Context, stage string, docs int, err error) {
	if t == nil {
		return
	}
	now := time.Now()
	t.emit(ctx, StageTiming{Operation: t.op, Stage: stage, Elapsed: now.Sub(t.mark), Documents: docs, Failed: err != nil})
	t.mark = now
}

// done reports the whole call as the total stage
func (t *opTimer) done(ctx context.Context, docs int, err error) {
	if t == nil {
		return
	}
	t.emit(ctx, StageTiming{Operation: t.op, Stage: MetricsStageTotal, Elapsed: time.Since(t.begin), Documents: docs, Failed: err != nil})
}

func (t *opTimer) emit(ctx context.Context, timing StageTiming) {
	cfg := t.svc.config
	if cfg.StageMetrics != nil {
		cfg.StageMetrics.ObserveStage(ctx, timing)
	}
	if cfg.LogStageTimings {
		t.svc.logger.Debug("Stage timing",
			"op", timing.Operation, "stage", timing.Stage,
			"elapsed", timing.Elapsed, "documents", timing.Documents, "failed", timing.Failed)
	}
}
