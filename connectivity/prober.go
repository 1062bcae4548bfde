// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package connectivity

import (
	"context"
	"log/slog"
	"net"
	"time"
)

const (
	DefaultProbeInterval = 5 * time.Second
	DefaultProbeTimeout  = 2 * time.Second
)

// Prober reports the network online while a TCP dial to Address succeeds.
// The first probe runs as soon as Watch is called.
type Prober struct {
	Address  string        // host:port of the remote store
	Interval time.Duration // time between probes
	Timeout  time.Duration // dial timeout per probe

	hub    hub
	logger *slog.Logger
	dial   func(ctx context.Context, network, address string) (net.Conn, error)
}

// NewProber creates a Prober with default interval and timeout
func NewProber(address string, logger *slog.Logger) *Prober {
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{
		Address:  address,
		Interval: DefaultProbeInterval,
		Timeout:  DefaultProbeTimeout,
		logger:   logger,
	}
}

func (p *Prober) Watch(ctx context.Context) (<-chan bool, error) {
	ch, err := p.hub.subscribe(ctx)
	if err != nil {
		return nil, err
	}
	go p.loop(ctx)
	return ch, nil
}

func (p *Prober) loop(ctx context.Context) {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		p.hub.publish(p.probe(ctx))
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func (p *Prober) probe(ctx context.Context) bool {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	dial := p.dial
	if dial == nil {
		d := &net.Dialer{}
		dial = d.DialContext
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	conn, err := dial(ctx, "tcp", p.Address)
	if err != nil {
		if p.logger != nil {
			p.logger.Debug("Connectivity probe failed", "address", p.Address, "error", err)
		}
		return false
	}
	_ = conn.Close()
	return true
}
