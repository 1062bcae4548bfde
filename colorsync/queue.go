// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package colorsync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
)

// OpKind is the pending operation type
type OpKind string

const (
	OpUpsert OpKind = "upsert"
	OpDelete OpKind = "delete"
)

// Operation is a deferred remote mutation
type Operation struct {
	Kind       OpKind    `json:"op"`
	ID         uuid.UUID `json:"id"`
	Record     *Record   `json:"record,omitempty"` // nil for OpDelete
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// UpsertOp creates an upsert operation for r
func UpsertOp(r Record, at time.Time) Operation {
	rec := r
	return Operation{Kind: OpUpsert, ID: r.ID, Record: &rec, EnqueuedAt: at.UTC()}
}

// DeleteOp creates a delete operation for id
func DeleteOp(id uuid.UUID, at time.Time) Operation {
	return Operation{Kind: OpDelete, ID: id, EnqueuedAt: at.UTC()}
}

func (op Operation) sameAs(other Operation) bool {
	return op.Kind == other.Kind && op.ID == other.ID && op.EnqueuedAt.Equal(other.EnqueuedAt)
}

// PendingQueue stores unsynced operations, coalesced to one entry per identity,
// in the same BlobStore as the records.
type PendingQueue struct {
	blobs  BlobStore
	logger *slog.Logger
}

// NewPendingQueue creates a queue persisted in blobs
func NewPendingQueue(blobs BlobStore, logger *slog.Logger) *PendingQueue {
	if logger == nil {
		logger = slog.Default()
	}
	return &PendingQueue{blobs: blobs, logger: logger}
}

// Enqueue persists ops; an op replaces any queued entry for the same identity
func (q *PendingQueue) Enqueue(ctx context.Context, ops ...Operation) error {
	if len(ops) == 0 {
		return nil
	}
	current, err := q.load(ctx)
	if err != nil {
		return err
	}
	for _, op := range ops {
		current = removeOp(current, op.ID)
		current = append(current, op)
	}
	return q.save(ctx, current)
}

// Drain returns all queued operations ordered by enqueue time without removing them
func (q *PendingQueue) Drain(ctx context.Context) ([]Operation, error) {
	return q.load(ctx)
}

// Find returns the queued entry for id, if any
func (q *PendingQueue) Find(ctx context.Context, id uuid.UUID) (Operation, bool, error) {
	ops, err := q.load(ctx)
	if err != nil {
		return Operation{}, false, err
	}
	for _, op := range ops {
		if op.ID == id {
			return op, true, nil
		}
	}
	return Operation{}, false, nil
}

// Remove drops the entry for id
func (q *PendingQueue) Remove(ctx context.Context, id uuid.UUID) error {
	ops, err := q.load(ctx)
	if err != nil {
		return err
	}
	return q.save(ctx, removeOp(ops, id))
}

// Settle removes the entries that are still identical to the flushed ones.
// Entries replaced after the flush started are kept.
func (q *PendingQueue) Settle(ctx context.Context, flushed []Operation) error {
	ops, err := q.load(ctx)
	if err != nil {
		return err
	}
	kept := ops[:0]
	for _, op := range ops {
		settled := false
		for _, f := range flushed {
			if op.sameAs(f) {
				settled = true
				break
			}
		}
		if !settled {
			kept = append(kept, op)
		}
	}
	return q.save(ctx, kept)
}

// Clear removes all queued operations
func (q *PendingQueue) Clear(ctx context.Context) error {
	if err := q.blobs.Delete(ctx, KeyPendingRecords); err != nil {
		return fmt.Errorf("failed to clear pending queue: %w", err)
	}
	return nil
}

// IsEmpty reports whether nothing is queued
func (q *PendingQueue) IsEmpty(ctx context.Context) (bool, error) {
	n, err := q.Len(ctx)
	return n == 0, err
}

// Len returns the number of queued operations
func (q *PendingQueue) Len(ctx context.Context) (int, error) {
	ops, err := q.load(ctx)
	if err != nil {
		return 0, err
	}
	return len(ops), nil
}

func (q *PendingQueue) load(ctx context.Context) ([]Operation, error) {
	data, ok, err := q.blobs.Get(ctx, KeyPendingRecords)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending queue: %w", err)
	}
	if !ok || len(data) == 0 {
		return []Operation{}, nil
	}
	var ops []Operation
	if err := json.Unmarshal(data, &ops); err != nil {
		q.logger.Warn("Discarding undecodable pending queue blob",
			"key", KeyPendingRecords, "error", &SyncError{Kind: KindCorrupt, Op: "load", Err: err})
		return []Operation{}, nil
	}
	valid := ops[:0]
	for _, op := range ops {
		if op.Kind == OpUpsert && op.Record == nil {
			q.logger.Warn("Dropping upsert without record", "id", op.ID)
			continue
		}
		valid = append(valid, op)
	}
	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].EnqueuedAt.Before(valid[j].EnqueuedAt)
	})
	return valid, nil
}

func (q *PendingQueue) save(ctx context.Context, ops []Operation) error {
	if len(ops) == 0 {
		return q.Clear(ctx)
	}
	data, err := json.Marshal(ops)
	if err != nil {
		return fmt.Errorf("failed to marshal pending queue: %w", err)
	}
	if err := q.blobs.Put(ctx, KeyPendingRecords, data); err != nil {
		return fmt.Errorf("failed to save pending queue: %w", err)
	}
	return nil
}

func removeOp(ops []Operation, id uuid.UUID) []Operation {
	out := ops[:0]
	for _, op := range ops {
		if op.ID != id {
			out = append(out, op)
		}
	}
	return out
}
