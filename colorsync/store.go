// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package colorsync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// Fixed keys in the blob store
const (
	KeyCurrentRecords = "current_records"
	KeyPendingRecords = "pending_sync_records"
)

// BlobStore is a durable key-value byte store
type BlobStore interface {
	// Get returns the value for key; ok is false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// RecordStore persists the full current set of records as one blob.
// It has no locking of its own; the Engine serializes access.
type RecordStore struct {
	blobs  BlobStore
	logger *slog.Logger
}

// NewRecordStore creates a record store on top of blobs
func NewRecordStore(blobs BlobStore, logger *slog.Logger) *RecordStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordStore{blobs: blobs, logger: logger}
}

// Save replaces the persisted set with records
func (s *RecordStore) Save(ctx context.Context, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}
	if err := s.blobs.Put(ctx, KeyCurrentRecords, data); err != nil {
		return fmt.Errorf("failed to save records: %w", err)
	}
	return nil
}

// Load returns the persisted set. A missing or undecodable blob yields an
// empty slice; only backend failures are returned as errors.
func (s *RecordStore) Load(ctx context.Context) ([]Record, error) {
	data, ok, err := s.blobs.Get(ctx, KeyCurrentRecords)
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}
	if !ok || len(data) == 0 {
		return []Record{}, nil
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		s.logger.Warn("Discarding undecodable records blob",
			"key", KeyCurrentRecords, "error", &SyncError{Kind: KindCorrupt, Op: "load", Err: err})
		return []Record{}, nil
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}
