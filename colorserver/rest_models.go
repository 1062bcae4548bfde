// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package colorserver

import (
	"encoding/json"
	"time"
)

// REST/JSON models for HTTP API requests and responses

// Document is one stored document addressed by collection + id
type Document struct {
	ID        string          `json:"id"`                   // Document identity (client UUID as string)
	Data      json.RawMessage `json:"data"`                 // JSON object
	UpdatedAt time.Time       `json:"updated_at,omitempty"` // Set by the server on commit
}

// BatchSetRequest is an atomic multi-document set
type BatchSetRequest struct {
	Documents []Document `json:"documents"`
}

// BatchSetResponse is returned once the whole batch is committed
type BatchSetResponse struct {
	Committed   int       `json:"committed"`
	CommittedAt time.Time `json:"committed_at"`
}

// DeleteResponse reports whether a document existed; deleting an absent one is not an error
type DeleteResponse struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// ListResponse lists documents of a collection
type ListResponse struct {
	Collection string     `json:"collection"`
	Documents  []Document `json:"documents"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// StatusResponse represents service status response
type StatusResponse struct {
	Status      string   `json:"status"` // healthy, closed
	Version     string   `json:"version"`
	AppName     string   `json:"app_name"`
	Backend     string   `json:"backend"`
	Collections []string `json:"collections"`
}
