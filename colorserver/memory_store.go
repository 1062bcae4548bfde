// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package colorserver

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// MemoryDocumentStore keeps documents in process memory
type MemoryDocumentStore struct {
	mu   sync.RWMutex
	docs map[string]map[string]Document // "user/collection" -> id -> doc
	now  func() time.Time
}

// NewMemoryDocumentStore creates an empty memory store
func NewMemoryDocumentStore() *MemoryDocumentStore {
	return &MemoryDocumentStore{
		docs: make(map[string]map[string]Document),
		now:  time.Now,
	}
}

func memoryKey(userID, collection string) string {
	return userID + "/" + collection
}

func (m *MemoryDocumentStore) BatchSet(_ context.Context, userID, collection string, docs []Document) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := memoryKey(userID, collection)
	coll, ok := m.docs[key]
	if !ok {
		coll = make(map[string]Document)
		m.docs[key] = coll
	}
	committedAt := m.now().UTC()
	for _, d := range docs {
		data := make(json.RawMessage, len(d.Data))
		copy(data, d.Data)
		coll[d.ID] = Document{ID: d.ID, Data: data, UpdatedAt: committedAt}
	}
	return committedAt, nil
}

func (m *MemoryDocumentStore) Delete(_ context.Context, userID, collection, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	coll, ok := m.docs[memoryKey(userID, collection)]
	if !ok {
		return false, nil
	}
	_, existed := coll[id]
	delete(coll, id)
	return existed, nil
}

func (m *MemoryDocumentStore) List(_ context.Context, userID, collection string) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	coll := m.docs[memoryKey(userID, collection)]
	out := make([]Document, 0, len(coll))
	for _, d := range coll {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryDocumentStore) Backend() string { return BackendMemory }
