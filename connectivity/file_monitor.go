// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package connectivity

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

const (
	StateFileOnline  = "online"
	StateFileOffline = "offline"
)

// FileMonitor reads connectivity from a state file so another process can flip it.
// The file holds "online" or "offline"; a missing file means offline.
type FileMonitor struct {
	Path string

	hub    hub
	logger *slog.Logger
}

// NewFileMonitor creates a monitor for the state file at path
func NewFileMonitor(path string, logger *slog.Logger) *FileMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileMonitor{Path: filepath.Clean(path), logger: logger}
}

// Watch watches the parent directory of Path, which must exist
func (f *FileMonitor) Watch(ctx context.Context) (<-chan bool, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(f.Path)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch directory %s: %w", filepath.Dir(f.Path), err)
	}

	ch, err := f.hub.subscribe(ctx)
	if err != nil {
		_ = watcher.Close()
		return nil, err
	}
	f.hub.publish(f.read())
	go f.processEvents(ctx, watcher)
	return ch, nil
}

func (f *FileMonitor) processEvents(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != f.Path {
				continue
			}
			f.hub.publish(f.read())

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			f.logger.Warn("Connectivity file watcher error", "path", f.Path, "error", err)
		}
	}
}

func (f *FileMonitor) read() bool {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			f.logger.Warn("Failed to read connectivity state file", "path", f.Path, "error", err)
		}
		return false
	}
	return strings.EqualFold(strings.TrimSpace(string(data)), StateFileOnline)
}

// WriteStateFile atomically replaces the state file at path
func WriteStateFile(path string, online bool) error {
	state := StateFileOffline
	if online {
		state = StateFileOnline
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".connectivity-*")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(state + "\n"); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}
