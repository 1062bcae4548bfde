// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package colorserver

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// APIVersion is reported by the status endpoint
const APIVersion = "v1"

// ServiceConfig holds configuration for the document service
type ServiceConfig struct {
	AppName     string   // Application name reported by /v1/status
	Collections []string // Collections allowed for sync (required)

	MaxBatchSize    int // Maximum documents in a single batch (0 = unlimited)
	MaxPayloadBytes int // Maximum JSON data size per document in bytes (0 = unlimited)

	StageMetrics    StageMetricsRecorder // Optional per-stage timing sink
	LogStageTimings bool                 // Log stage timings at DEBUG
}

// DefaultServiceConfig returns the configuration used by the Colors app
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		AppName:         "colorsync-server",
		Collections:     []string{DefaultCollection},
		MaxBatchSize:    500,
		MaxPayloadBytes: 64 * 1024,
	}
}

// DocumentService validates requests and applies them to a DocumentStore
type DocumentService struct {
	store       DocumentStore
	logger      *slog.Logger
	config      *ServiceConfig
	collections map[string]bool

	mu     sync.RWMutex
	closed bool
}

// NewDocumentService creates a new document service on top of store
func NewDocumentService(store DocumentStore, config *ServiceConfig, logger *slog.Logger) *DocumentService {
	if config == nil {
		config = DefaultServiceConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &DocumentService{
		store:       store,
		logger:      logger,
		config:      config,
		collections: make(map[string]bool),
	}
	for _, c := range config.Collections {
		s.collections[c] = true
		logger.Debug("Registered collection", "collection", c)
	}
	return s
}

// Close marks the service closed; it does NOT close the underlying store
func (s *DocumentService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.logger.Debug("Document service shutdown complete")
	return nil
}

func (s *DocumentService) checkClosed() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrServiceClosed
	}
	return nil
}

// IsCollectionRegistered checks if a collection is allowed
func (s *DocumentService) IsCollectionRegistered(collection string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collections[collection]
}

// BatchSet atomically writes all documents of req
func (s *DocumentService) BatchSet(ctx context.Context, userID, collection string, req *BatchSetRequest) (*BatchSetResponse, error) {
	if err := s.checkClosed(); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("%w: missing request", ErrBadPayload)
	}
	timer := s.startOp(MetricsOpBatchSet)
	count := len(req.Documents)

	err := s.validateCollection(collection)
	if err == nil {
		err = s.validateBatch(req)
	}
	timer.stage(ctx, MetricsStageValidate, count, err)
	if err != nil {
		timer.done(ctx, count, err)
		return nil, err
	}

	committedAt, err := s.store.BatchSet(ctx, userID, collection, req.Documents)
	timer.stage(ctx, MetricsStageStore, count, err)
	timer.done(ctx, count, err)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Committed batch",
		"user_id", userID, "collection", collection, "count", count)
	return &BatchSetResponse{Committed: count, CommittedAt: committedAt}, nil
}

// Delete removes one document; an absent document yields Deleted=false and no error
func (s *DocumentService) Delete(ctx context.Context, userID, collection, id string) (*DeleteResponse, error) {
	if err := s.checkClosed(); err != nil {
		return nil, err
	}
	if err := s.validateCollection(collection); err != nil {
		return nil, err
	}
	if !isValidDocumentID(id) {
		return nil, ErrBadPayload
	}

	timer := s.startOp(MetricsOpDelete)
	existed, err := s.store.Delete(ctx, userID, collection, id)
	timer.done(ctx, 1, err)
	if err != nil {
		return nil, err
	}
	if !existed {
		s.logger.Debug("Delete of absent document", "user_id", userID, "collection", collection, "id", id)
	}
	return &DeleteResponse{ID: id, Deleted: existed}, nil
}

// List returns all documents of a collection for userID
func (s *DocumentService) List(ctx context.Context, userID, collection string) (*ListResponse, error) {
	if err := s.checkClosed(); err != nil {
		return nil, err
	}
	if err := s.validateCollection(collection); err != nil {
		return nil, err
	}

	timer := s.startOp(MetricsOpList)
	docs, err := s.store.List(ctx, userID, collection)
	timer.done(ctx, len(docs), err)
	if err != nil {
		return nil, err
	}
	return &ListResponse{Collection: collection, Documents: docs}, nil
}

// Status reports service health
func (s *DocumentService) Status() StatusResponse {
	status := "healthy"
	if s.checkClosed() != nil {
		status = "closed"
	}
	s.mu.RLock()
	collections := make([]string, 0, len(s.collections))
	for c := range s.collections {
		collections = append(collections, c)
	}
	s.mu.RUnlock()
	sort.Strings(collections)
	return StatusResponse{
		Status:      status,
		Version:     APIVersion,
		AppName:     s.config.AppName,
		Backend:     s.store.Backend(),
		Collections: collections,
	}
}
