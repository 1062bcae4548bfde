// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package colorserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Validation error sentinels for HTTP status mapping
var (
	ErrBadPayload             = errors.New("bad_payload")
	ErrUnregisteredCollection = errors.New("unregistered_collection")
	ErrBatchTooLarge          = errors.New("batch_too_large")
	ErrServiceClosed          = errors.New("document service has been closed")
)

const maxDocumentIDLength = 128

// validateCollection checks the name and that it is registered
func (s *DocumentService) validateCollection(collection string) error {
	if !isValidCollectionName(collection) {
		return fmt.Errorf("%w: invalid collection name %q", ErrBadPayload, collection)
	}
	if !s.IsCollectionRegistered(collection) {
		return fmt.Errorf("%w: %s", ErrUnregisteredCollection, collection)
	}
	return nil
}

// validateBatch validates a batch set request as a whole
func (s *DocumentService) validateBatch(req *BatchSetRequest) error {
	if len(req.Documents) == 0 {
		return fmt.Errorf("%w: batch has no documents", ErrBadPayload)
	}
	if s.config.MaxBatchSize > 0 && len(req.Documents) > s.config.MaxBatchSize {
		return fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, len(req.Documents), s.config.MaxBatchSize)
	}
	seen := make(map[string]bool, len(req.Documents))
	for i := range req.Documents {
		d := &req.Documents[i]
		d.ID = strings.TrimSpace(d.ID)
		if err := s.validateDocument(d); err != nil {
			return err
		}
		if seen[d.ID] {
			return fmt.Errorf("%w: duplicate document id %s", ErrBadPayload, d.ID)
		}
		seen[d.ID] = true
	}
	return nil
}

func (s *DocumentService) validateDocument(d *Document) error {
	if !isValidDocumentID(d.ID) {
		return fmt.Errorf("%w: invalid document id %q", ErrBadPayload, d.ID)
	}
	if len(d.Data) == 0 {
		return fmt.Errorf("%w: data required for document %s", ErrBadPayload, d.ID)
	}
	var obj map[string]any
	if err := json.Unmarshal(d.Data, &obj); err != nil || obj == nil {
		return fmt.Errorf("%w: data of document %s must be a JSON object", ErrBadPayload, d.ID)
	}
	if s.config.MaxPayloadBytes > 0 && len(d.Data) > s.config.MaxPayloadBytes {
		return fmt.Errorf("%w: payload too large: %d > %d", ErrBadPayload, len(d.Data), s.config.MaxPayloadBytes)
	}
	return nil
}

// isValidCollectionName checks if name matches ^[A-Za-z0-9_]+$
func isValidCollectionName(name string) bool {
	if len(name) == 0 || len(name) > 64 {
		return false
	}
	for _, r := range name {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_') {
			return false
		}
	}
	return true
}

// isValidDocumentID allows any printable id without path separators
func isValidDocumentID(id string) bool {
	if len(id) == 0 || len(id) > maxDocumentIDLength {
		return false
	}
	for _, r := range id {
		if r == '/' || r < 0x21 || r == 0x7f {
			return false
		}
	}
	return true
}
