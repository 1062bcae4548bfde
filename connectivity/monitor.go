// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

// Package connectivity publishes network reachability transitions to a single observer.
package connectivity

import (
	"context"
	"errors"
	"sync"
)

// ErrAlreadyWatched is returned when Watch is called while another observer is active
var ErrAlreadyWatched = errors.New("connectivity monitor already has an observer")

// Monitor pushes connectivity state to one observer.
//
// The returned channel delivers the current state first, then every transition in
// order with consecutive duplicates suppressed. It is closed when ctx ends, after
// which Watch may be called again.
type Monitor interface {
	Watch(ctx context.Context) (<-chan bool, error)
}

// hub fans published states out to the active observer without blocking publishers
type hub struct {
	mu         sync.Mutex
	watching   bool
	hasCurrent bool
	current    bool
	pending    []bool
	wake       chan struct{}
}

func (h *hub) subscribe(ctx context.Context) (<-chan bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.watching {
		return nil, ErrAlreadyWatched
	}
	h.watching = true
	h.hasCurrent = false
	h.pending = nil
	h.wake = make(chan struct{}, 1)

	out := make(chan bool)
	go h.run(ctx, out, h.wake)
	return out, nil
}

// publish queues online for delivery unless it repeats the last published state
func (h *hub) publish(online bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.watching {
		return
	}
	if h.hasCurrent && h.current == online {
		return
	}
	h.hasCurrent = true
	h.current = online
	h.pending = append(h.pending, online)
	select {
	case h.wake <- struct{}{}:
	default:
	}
}

func (h *hub) run(ctx context.Context, out chan<- bool, wake <-chan struct{}) {
	defer func() {
		h.mu.Lock()
		h.watching = false
		h.pending = nil
		h.mu.Unlock()
		close(out)
	}()

	for {
		h.mu.Lock()
		batch := h.pending
		h.pending = nil
		h.mu.Unlock()

		for _, state := range batch {
			select {
			case out <- state:
			case <-ctx.Done():
				return
			}
		}

		select {
		case <-wake:
		case <-ctx.Done():
			return
		}
	}
}
