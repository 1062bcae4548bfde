// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package colorserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mobiletoly/go-colorsync/internal/auth"
)

// maxRequestBodyBytes caps batch request bodies
const maxRequestBodyBytes = 8 << 20

// HTTPHandlers provides HTTP handlers for the document API
type HTTPHandlers struct {
	service *DocumentService
	logger  *slog.Logger
}

// NewHTTPHandlers creates a new instance of document handlers
func NewHTTPHandlers(service *DocumentService, logger *slog.Logger) *HTTPHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPHandlers{
		service: service,
		logger:  logger,
	}
}

// Register mounts all routes on mux. Document routes are wrapped with authMiddleware
// when it is not nil; /v1/status is always public.
func (h *HTTPHandlers) Register(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	wrap := func(f http.HandlerFunc) http.Handler {
		if authMiddleware == nil {
			return f
		}
		return authMiddleware(f)
	}
	mux.Handle("/v1/collections/{collection}/batch", wrap(h.HandleBatchSet))
	mux.Handle("/v1/collections/{collection}/documents/{id}", wrap(h.HandleDelete))
	mux.Handle("/v1/collections/{collection}/documents", wrap(h.HandleList))
	mux.HandleFunc("/v1/status", h.HandleStatus)
}

// HandleBatchSet atomically writes a batch of documents
func (h *HTTPHandlers) HandleBatchSet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "Only POST method is allowed")
		return
	}

	userID, ok := auth.UserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, CodeAuthenticationFailed, "user identity required")
		return
	}

	var req BatchSetRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, CodeInvalidRequest, "Failed to parse batch request")
		return
	}

	collection := r.PathValue("collection")
	response, err := h.service.BatchSet(r.Context(), userID, collection, &req)
	if err != nil {
		h.writeServiceError(w, err, CodeBatchFailed, "Failed to commit batch", "user_id", userID, "collection", collection)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err = json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Failed to encode batch response", "error", err, "user_id", userID)
	}
}

// HandleDelete removes one document. Deleting an absent document is not an error.
func (h *HTTPHandlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		h.writeError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "Only DELETE method is allowed")
		return
	}

	userID, ok := auth.UserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, CodeAuthenticationFailed, "user identity required")
		return
	}

	collection := r.PathValue("collection")
	id := r.PathValue("id")
	response, err := h.service.Delete(r.Context(), userID, collection, id)
	if err != nil {
		h.writeServiceError(w, err, CodeDeleteFailed, "Failed to delete document", "user_id", userID, "id", id)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err = json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Failed to encode delete response", "error", err, "user_id", userID)
	}
}

// HandleList returns every document of a collection
func (h *HTTPHandlers) HandleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "Only GET method is allowed")
		return
	}

	userID, ok := auth.UserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, CodeAuthenticationFailed, "user identity required")
		return
	}

	collection := r.PathValue("collection")
	response, err := h.service.List(r.Context(), userID, collection)
	if err != nil {
		h.writeServiceError(w, err, CodeListFailed, "Failed to list documents", "user_id", userID, "collection", collection)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err = json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Failed to encode list response", "error", err, "user_id", userID)
	}
}

// HandleStatus reports service health
func (h *HTTPHandlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "Only GET method is allowed")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.service.Status())
}

// writeServiceError maps service errors to HTTP status codes
func (h *HTTPHandlers) writeServiceError(w http.ResponseWriter, err error, fallbackCode, fallbackMessage string, logArgs ...any) {
	switch {
	case errors.Is(err, ErrBatchTooLarge):
		h.writeError(w, http.StatusRequestEntityTooLarge, CodeBatchTooLarge, err.Error())
	case errors.Is(err, ErrUnregisteredCollection):
		h.writeError(w, http.StatusBadRequest, CodeUnregisteredCollection, err.Error())
	case errors.Is(err, ErrBadPayload):
		h.writeError(w, http.StatusBadRequest, CodeBadPayload, err.Error())
	case errors.Is(err, ErrServiceClosed):
		h.writeError(w, http.StatusServiceUnavailable, CodeServiceClosed, err.Error())
	default:
		h.logger.Error(fallbackMessage, append([]any{"error", err}, logArgs...)...)
		h.writeError(w, http.StatusInternalServerError, fallbackCode, fallbackMessage)
	}
}

// writeError writes a standardized error response
func (h *HTTPHandlers) writeError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	writeErrorResponse(w, statusCode, errorCode, message)
}

func writeErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errorCode,
		Message: message,
	})
}
