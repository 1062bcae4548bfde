// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

// Package auth carries the authenticated caller through request contexts.
package auth

import (
	"context"
)

// Identity is the caller established by token validation
type Identity struct {
	UserID   string // JWT 'sub'; documents are partitioned by it
	DeviceID string // JWT 'did'; informational only
}

type identityKey struct{}

// WithIdentity returns a context carrying id
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the caller identity. ok is false when the request was not
// authenticated or the identity has no user.
func FromContext(ctx context.Context) (id Identity, ok bool) {
	id, ok = ctx.Value(identityKey{}).(Identity)
	return id, ok && id.UserID != ""
}

// UserID is a shortcut for FromContext(ctx).UserID
func UserID(ctx context.Context) (string, bool) {
	id, ok := FromContext(ctx)
	return id.UserID, ok
}
