// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package colorserver

import (
	"context"
	"time"
)

// DocumentStore is the persistence backend behind DocumentService.
// Documents are scoped per user; (userID, collection, id) is the key.
type DocumentStore interface {
	// BatchSet writes all docs atomically; either every document is stored or none.
	// An existing document with the same id is overwritten (last commit wins).
	BatchSet(ctx context.Context, userID, collection string, docs []Document) (committedAt time.Time, err error)

	// Delete removes one document. Deleting an absent document is not an error.
	Delete(ctx context.Context, userID, collection, id string) (existed bool, err error)

	// List returns all documents of a collection ordered by id
	List(ctx context.Context, userID, collection string) ([]Document, error)

	// Backend names the implementation for status reporting
	Backend() string
}
