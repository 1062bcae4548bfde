// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package connectivity

import (
	"context"
	"sync"
)

// Manual is a Monitor whose state is set explicitly by the caller
type Manual struct {
	hub    hub
	mu     sync.Mutex
	online bool
}

// NewManual creates a Manual monitor starting in the given state
func NewManual(online bool) *Manual {
	return &Manual{online: online}
}

// SetOnline changes the state and notifies the observer if it differs
func (m *Manual) SetOnline(online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.online = online
	m.hub.publish(online)
}

// Online reports the current state
func (m *Manual) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

func (m *Manual) Watch(ctx context.Context) (<-chan bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, err := m.hub.subscribe(ctx)
	if err != nil {
		return nil, err
	}
	m.hub.publish(m.online)
	return ch, nil
}
