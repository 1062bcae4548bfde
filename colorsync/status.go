// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package colorsync

// State is the connectivity/sync state owned by the Engine
type State int

const (
	StateOffline State = iota
	StateIdle          // online, nothing in flight
	StateSyncing       // online, a flush is outstanding
	StateError         // online, last flush failed
)

func (s State) String() string {
	switch s {
	case StateOffline:
		return "offline"
	case StateIdle:
		return "online_idle"
	case StateSyncing:
		return "online_syncing"
	case StateError:
		return "online_error"
	default:
		return "unknown"
	}
}

// Status is a read-only view of the Engine state
type Status struct {
	State  State
	Reason string // set for StateError
}

func (s Status) Online() bool { return s.State != StateOffline }

func (s Status) String() string {
	if s.State == StateError && s.Reason != "" {
		return s.State.String() + "(" + s.Reason + ")"
	}
	return s.State.String()
}

// Snapshot is a consistent copy of everything the presentation layer observes
type Snapshot struct {
	Records   []Record
	Status    Status
	LastError error
	Pending   int
}
