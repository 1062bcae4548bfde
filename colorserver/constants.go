// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package colorserver

// DefaultCollection is the collection used by the Colors app
const DefaultCollection = "colorCards"

// Error codes for ErrorResponse.Error
const (
	CodeMethodNotAllowed       = "method_not_allowed"
	CodeAuthenticationFailed   = "authentication_failed"
	CodeInvalidRequest         = "invalid_request"
	CodeBadPayload             = "bad_payload"
	CodeUnregisteredCollection = "unregistered_collection"
	CodeBatchTooLarge          = "batch_too_large"
	CodeBatchFailed            = "batch_failed"
	CodeDeleteFailed           = "delete_failed"
	CodeListFailed             = "list_failed"
	CodeServiceClosed          = "service_closed"
)

// Backend names reported by /v1/status
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)
