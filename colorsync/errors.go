// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package colorsync

import (
	"errors"
	"fmt"
)

// ErrorKind classifies sync failures
type ErrorKind int

const (
	KindUnreachable    ErrorKind = iota + 1 // no connectivity at call time
	KindRemoteRejected                      // remote store returned an error
	KindCorrupt                             // local blob could not be decoded
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnreachable:
		return "unreachable"
	case KindRemoteRejected:
		return "remote_rejected"
	case KindCorrupt:
		return "corrupt"
	default:
		return "unknown"
	}
}

// SyncError is returned by remote operations and reported via Engine.LastError
type SyncError struct {
	Kind ErrorKind
	Op   string // "push", "delete", "load", ...
	Err  error
}

// Kind-only sentinels for errors.Is
var (
	ErrUnreachable    = &SyncError{Kind: KindUnreachable}
	ErrRemoteRejected = &SyncError{Kind: KindRemoteRejected}
	ErrCorrupt        = &SyncError{Kind: KindCorrupt}
)

// ErrRecordNotFound is returned by Engine.Delete for an unknown identity
var ErrRecordNotFound = errors.New("record not found")

func (e *SyncError) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return e.Op + " " + e.Kind.String()
	default:
		return e.Kind.String()
	}
}

func (e *SyncError) Unwrap() error { return e.Err }

// Is matches any SyncError of the same kind
func (e *SyncError) Is(target error) bool {
	var t *SyncError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func unreachable(op string, err error) error {
	return &SyncError{Kind: KindUnreachable, Op: op, Err: err}
}

func rejected(op string, err error) error {
	return &SyncError{Kind: KindRemoteRejected, Op: op, Err: err}
}
