// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package colorsync

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// flushPlan is the remote work derived from the queue and the current records
type flushPlan struct {
	ops        []Operation // queue snapshot, settled on success
	upserts    []Record
	deletes    []uuid.UUID
	generation uint64
}

// buildPlanLocked resolves queued upserts against the current local records.
// An upsert whose record is no longer local is dropped from the push.
func (e *Engine) buildPlanLocked(ops []Operation) flushPlan {
	plan := flushPlan{ops: ops, generation: e.generation}
	for _, op := range ops {
		switch op.Kind {
		case OpUpsert:
			if idx := indexOfRecord(e.records, op.ID); idx >= 0 {
				plan.upserts = append(plan.upserts, e.records[idx])
			}
		case OpDelete:
			plan.deletes = append(plan.deletes, op.ID)
		}
	}
	return plan
}

// requestFlushLocked starts a flush unless offline, stopped or one is already outstanding
func (e *Engine) requestFlushLocked() {
	if !e.online || e.stopped {
		return
	}
	if e.syncing {
		e.flushAgain = true
		return
	}

	ops, err := e.queue.Drain(e.localCtx())
	if err != nil {
		e.logger.Error("Failed to read pending queue for flush", "error", err)
		return
	}
	if len(ops) == 0 {
		return
	}

	plan := e.buildPlanLocked(ops)
	e.syncing = true
	e.flushAgain = false
	for _, r := range plan.upserts {
		e.inFlight[r.ID] = true
	}
	e.logger.Debug("Flushing pending operations",
		"upserts", len(plan.upserts), "deletes", len(plan.deletes), "generation", plan.generation)

	ctx := e.baseCtx
	var cancel context.CancelFunc = func() {}
	if e.config.RemoteTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, e.config.RemoteTimeout)
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer cancel()
		pushed, err := e.runPlan(ctx, plan)
		e.completeFlush(plan, pushed, err)
	}()
}

// runPlan issues one batched push, then one delete per queued delete.
// The first failure aborts the flush; pushed reports whether the push was committed.
func (e *Engine) runPlan(ctx context.Context, plan flushPlan) (pushed bool, err error) {
	if len(plan.upserts) > 0 {
		if err := e.remote.Push(ctx, plan.upserts); err != nil {
			return false, err
		}
		pushed = true
	}
	for _, id := range plan.deletes {
		if err := e.remote.DeleteRemote(ctx, id); err != nil {
			return pushed, err
		}
	}
	return pushed, nil
}

// pushedOps returns the queued upserts covered by a committed push
func (plan flushPlan) pushedOps() []Operation {
	pushed := make(map[uuid.UUID]bool, len(plan.upserts))
	for _, r := range plan.upserts {
		pushed[r.ID] = true
	}
	var ops []Operation
	for _, op := range plan.ops {
		if op.Kind == OpUpsert && pushed[op.ID] {
			ops = append(ops, op)
		}
	}
	return ops
}

func (e *Engine) completeFlush(plan flushPlan, pushed bool, flushErr error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.syncing = false
	clear(e.inFlight)
	ctx := e.localCtx()

	switch {
	case flushErr == nil:
		var err error
		if e.generation == plan.generation {
			err = e.queue.Clear(ctx)
		} else {
			err = e.queue.Settle(ctx, plan.ops)
		}
		if err != nil {
			e.logger.Error("Failed to settle pending queue after flush", "error", err)
		}
		e.lastErr = nil
		e.failures = 0
		e.logger.Debug("Flush succeeded",
			"upserts", len(plan.upserts), "deletes", len(plan.deletes), "stale", e.generation != plan.generation)
	case !e.online || e.stopped:
		// expected once connectivity is gone; everything not pushed is still queued
		e.settlePushedLocked(ctx, plan, pushed)
		e.logger.Debug("Flush failed after going offline", "error", flushErr)
	default:
		e.settlePushedLocked(ctx, plan, pushed)
		e.lastErr = flushErr
		e.failures++
		e.logger.Warn("Flush failed; operations stay queued", "error", flushErr, "failures", e.failures)
		e.scheduleRetryLocked()
	}

	if e.flushAgain {
		e.flushAgain = false
		e.requestFlushLocked()
	}
	e.notify()
}

// settlePushedLocked drops the upserts a committed push already stored remotely,
// so a later local delete of those records is queued as a remote delete.
func (e *Engine) settlePushedLocked(ctx context.Context, plan flushPlan, pushed bool) {
	if !pushed {
		return
	}
	if err := e.queue.Settle(ctx, plan.pushedOps()); err != nil {
		e.logger.Error("Failed to settle pushed upserts", "error", err)
	}
}

// scheduleRetryLocked arms one retry, doubling the delay per consecutive failure
func (e *Engine) scheduleRetryLocked() {
	if e.config.BackoffMin <= 0 || e.retry != nil {
		return
	}
	delay := e.config.BackoffMin
	for i := 1; i < e.failures && i < 30; i++ {
		delay *= 2
		if e.config.BackoffMax > 0 && delay >= e.config.BackoffMax {
			break
		}
	}
	if e.config.BackoffMax > 0 && delay > e.config.BackoffMax {
		delay = e.config.BackoffMax
	}

	e.retry = time.AfterFunc(delay, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.retry = nil
		if !e.online || e.stopped || e.syncing {
			return
		}
		e.logger.Debug("Retrying flush", "failures", e.failures)
		e.requestFlushLocked()
		e.notify()
	})
}

func (e *Engine) stopRetryLocked() {
	if e.retry != nil {
		e.retry.Stop()
		e.retry = nil
	}
}
