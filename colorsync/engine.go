// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package colorsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mobiletoly/go-colorsync/connectivity"
)

// Config holds the Engine configuration
type Config struct {
	RemoteTimeout time.Duration // per-flush deadline for remote calls (0 = none)
	BackoffMin    time.Duration // first automatic retry delay after a failed flush (0 = no automatic retry)
	BackoffMax    time.Duration // retry delay cap (0 = uncapped)
	Logger        *slog.Logger
}

// DefaultConfig returns the default engine configuration
func DefaultConfig() *Config {
	return &Config{
		RemoteTimeout: 30 * time.Second,
		BackoffMin:    time.Second,
		BackoffMax:    60 * time.Second,
	}
}

var errEngineStarted = errors.New("engine already started")

// Engine is the sync coordinator. It owns the local records, the pending queue and
// the observable status. All local writes, queue access and remote call initiation
// happen under mu; remote calls themselves run on a separate goroutine.
type Engine struct {
	mu      sync.Mutex
	config  *Config
	logger  *slog.Logger
	store   *RecordStore
	queue   *PendingQueue
	remote  RemoteClient
	monitor connectivity.Monitor
	now     func() time.Time
	color   func() string

	records    []Record
	online     bool
	syncing    bool
	flushAgain bool               // a mutation arrived while syncing
	generation uint64             // bumped on every local mutation
	inFlight   map[uuid.UUID]bool // identities whose upsert is being pushed
	lastErr    error
	failures   int
	retry      *time.Timer

	updates chan struct{}
	baseCtx context.Context
	cancel  context.CancelFunc
	started bool
	stopped bool
	wg      sync.WaitGroup
}

// NewEngine creates an engine over blobs and loads the persisted records.
// The engine stays offline until Start subscribes to monitor.
func NewEngine(ctx context.Context, blobs BlobStore, remote RemoteClient, monitor connectivity.Monitor, config *Config) (*Engine, error) {
	if blobs == nil {
		return nil, fmt.Errorf("blob store cannot be nil")
	}
	if remote == nil {
		return nil, fmt.Errorf("remote client cannot be nil")
	}
	if monitor == nil {
		return nil, fmt.Errorf("connectivity monitor cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		config:   config,
		logger:   logger,
		store:    NewRecordStore(blobs, logger),
		queue:    NewPendingQueue(blobs, logger),
		remote:   remote,
		monitor:  monitor,
		now:      time.Now,
		color:    RandomHexColor,
		inFlight: make(map[uuid.UUID]bool),
		updates:  make(chan struct{}, 1),
		baseCtx:  context.Background(),
	}

	records, err := e.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	e.records = records

	pending, err := e.queue.Len(ctx)
	if err != nil {
		return nil, err
	}
	logger.Debug("Engine loaded local state", "records", len(records), "pending", pending)
	return e, nil
}

// Start subscribes to the connectivity monitor; transitions are handled until Stop or ctx ends
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return errEngineStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	states, err := e.monitor.Watch(runCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to watch connectivity: %w", err)
	}
	e.started = true
	e.baseCtx = runCtx
	e.cancel = cancel

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		for online := range states {
			e.setOnline(online)
		}
	}()
	return nil
}

// Stop ends the connectivity subscription and waits for an in-flight flush.
// Unsynced operations stay persisted for the next run.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	e.stopRetryLocked()
	if e.cancel != nil {
		e.cancel()
	}
	e.mu.Unlock()

	e.wg.Wait()
}

// Generate creates a record with a random color, saves it and schedules its sync
func (e *Engine) Generate(ctx context.Context) (Record, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec := NewRecord(e.color(), e.now())
	if err := e.addLocked(ctx, rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Add saves an externally built record and schedules its sync
func (e *Engine) Add(ctx context.Context, rec Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if indexOfRecord(e.records, rec.ID) >= 0 {
		return fmt.Errorf("record %s already exists", rec.ID)
	}
	return e.addLocked(ctx, rec)
}

func (e *Engine) addLocked(ctx context.Context, rec Record) error {
	records := make([]Record, 0, len(e.records)+1)
	records = append(records, rec)
	records = append(records, e.records...)
	if err := e.store.Save(ctx, records); err != nil {
		return err
	}
	prev := e.records
	e.records = records

	if err := e.queue.Enqueue(ctx, UpsertOp(rec, e.now())); err != nil {
		e.restoreLocked(ctx, prev)
		return err
	}
	e.generation++
	e.logger.Debug("Record created", "id", rec.ID, "hex", rec.HexCode, "online", e.online)
	e.requestFlushLocked()
	e.notify()
	return nil
}

// Delete removes a record locally and schedules the remote delete.
// If the record was never synced and is not being pushed, no remote call is ever made for it.
func (e *Engine) Delete(ctx context.Context, id uuid.UUID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := indexOfRecord(e.records, id)
	if idx < 0 {
		return fmt.Errorf("failed to delete %s: %w", id, ErrRecordNotFound)
	}
	records := make([]Record, 0, len(e.records)-1)
	records = append(records, e.records[:idx]...)
	records = append(records, e.records[idx+1:]...)
	if err := e.store.Save(ctx, records); err != nil {
		return err
	}
	prev := e.records
	e.records = records

	queued, found, err := e.queue.Find(ctx, id)
	if err != nil {
		e.restoreLocked(ctx, prev)
		return err
	}
	if found && queued.Kind == OpUpsert && !e.inFlight[id] {
		err = e.queue.Remove(ctx, id)
		e.logger.Debug("Dropped unsynced create", "id", id)
	} else {
		err = e.queue.Enqueue(ctx, DeleteOp(id, e.now()))
	}
	if err != nil {
		e.restoreLocked(ctx, prev)
		return err
	}
	e.generation++
	e.requestFlushLocked()
	e.notify()
	return nil
}

// SyncNow flushes the pending queue immediately if online
func (e *Engine) SyncNow() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.online {
		return unreachable("sync", errors.New("offline"))
	}
	e.stopRetryLocked()
	e.requestFlushLocked()
	e.notify()
	return nil
}

// Records returns the current records, newest first
func (e *Engine) Records() []Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneRecords(e.records)
}

// IsOnline reports the last connectivity state received from the monitor
func (e *Engine) IsOnline() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.online
}

// LastError returns the failure of the last flush, or nil after a successful one
func (e *Engine) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Status returns the current connectivity and sync state, with the failure reason in StateError
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.statusLocked()
}

// PendingCount returns the number of queued operations
func (e *Engine) PendingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pendingLocked()
}

// Snapshot returns a consistent copy of the records, status, last error and pending count
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		Records:   cloneRecords(e.records),
		Status:    e.statusLocked(),
		LastError: e.lastErr,
		Pending:   e.pendingLocked(),
	}
}

// Updates signals observable state changes. Signals are coalesced; read Snapshot after each one.
func (e *Engine) Updates() <-chan struct{} {
	return e.updates
}

func (e *Engine) statusLocked() Status {
	switch {
	case !e.online:
		return Status{State: StateOffline}
	case e.syncing:
		return Status{State: StateSyncing}
	case e.lastErr != nil:
		return Status{State: StateError, Reason: e.lastErr.Error()}
	default:
		return Status{State: StateIdle}
	}
}

func (e *Engine) pendingLocked() int {
	n, err := e.queue.Len(e.localCtx())
	if err != nil {
		e.logger.Error("Failed to read pending queue", "error", err)
		return 0
	}
	return n
}

func (e *Engine) setOnline(online bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.online == online {
		return
	}
	e.online = online
	e.logger.Info("Connectivity changed", "online", online)
	if online {
		e.failures = 0
		e.requestFlushLocked()
	} else {
		e.stopRetryLocked()
	}
	e.notify()
}

// localCtx is used for local storage I/O, which must not be cut short by Stop
// restoreLocked rolls the records back after the queue write for a mutation failed,
// keeping every local change paired with its queued operation.
func (e *Engine) restoreLocked(ctx context.Context, prev []Record) {
	e.records = prev
	if err := e.store.Save(ctx, prev); err != nil {
		e.logger.Error("Failed to restore records after queue write failure", "error", err)
	}
}

func (e *Engine) localCtx() context.Context {
	return context.WithoutCancel(e.baseCtx)
}

func (e *Engine) notify() {
	select {
	case e.updates <- struct{}{}:
	default:
	}
}
