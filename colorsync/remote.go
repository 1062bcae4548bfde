// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package colorsync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mobiletoly/go-colorsync/colorserver"
)

// RemoteClient is the contract of the remote document store.
//
// Push is all-or-nothing and keyed by identity. DeleteRemote treats an absent
// document as success. Failures are *SyncError of kind unreachable or remote_rejected.
type RemoteClient interface {
	Push(ctx context.Context, records []Record) error
	DeleteRemote(ctx context.Context, id uuid.UUID) error
}

// colorData is the document body stored for a record
type colorData struct {
	HexCode   string    `json:"hexCode"`
	Timestamp time.Time `json:"timestamp"`
}

// HTTPRemote talks to the colorserver HTTP API
type HTTPRemote struct {
	BaseURL    string                                    // e.g. http://localhost:8080
	Collection string                                    // defaults to colorserver.DefaultCollection
	Token      func(ctx context.Context) (string, error) // bearer token source
	HTTP       *http.Client

	logger *slog.Logger
}

// NewHTTPRemote creates a remote client for baseURL
func NewHTTPRemote(baseURL string, token func(ctx context.Context) (string, error), logger *slog.Logger) *HTTPRemote {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPRemote{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Collection: colorserver.DefaultCollection,
		Token:      token,
		HTTP:       &http.Client{},
		logger:     logger,
	}
}

func (c *HTTPRemote) Push(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	req := colorserver.BatchSetRequest{Documents: make([]colorserver.Document, 0, len(records))}
	for _, r := range records {
		data, err := json.Marshal(colorData{HexCode: r.HexCode, Timestamp: r.Timestamp.UTC()})
		if err != nil {
			return fmt.Errorf("failed to marshal record %s: %w", r.ID, err)
		}
		req.Documents = append(req.Documents, colorserver.Document{ID: r.ID.String(), Data: data})
	}
	body, err := json.Marshal(&req)
	if err != nil {
		return fmt.Errorf("failed to marshal batch request: %w", err)
	}

	path := fmt.Sprintf("/v1/collections/%s/batch", url.PathEscape(c.collection()))
	resp, err := c.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return classifyTransportError("push", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return rejected("push", responseError(resp))
	}
	var batchResp colorserver.BatchSetResponse
	if err := json.NewDecoder(resp.Body).Decode(&batchResp); err != nil {
		return rejected("push", fmt.Errorf("failed to decode batch response: %w", err))
	}
	if batchResp.Committed != len(records) {
		return rejected("push", fmt.Errorf("server committed %d of %d documents", batchResp.Committed, len(records)))
	}
	c.logger.Debug("Pushed records", "count", len(records), "committed_at", batchResp.CommittedAt)
	return nil
}

func (c *HTTPRemote) DeleteRemote(ctx context.Context, id uuid.UUID) error {
	path := fmt.Sprintf("/v1/collections/%s/documents/%s", url.PathEscape(c.collection()), id)
	resp, err := c.do(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return classifyTransportError("delete", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	default:
		return rejected("delete", responseError(resp))
	}
}

func (c *HTTPRemote) collection() string {
	if c.Collection == "" {
		return colorserver.DefaultCollection
	}
	return c.Collection
}

// do sends one request. Token failures are reported as rejections, not transport errors.
func (c *HTTPRemote) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	if c.Token != nil {
		token, err := c.Token(ctx)
		if err != nil {
			return nil, &tokenError{err: err}
		}
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	return client.Do(httpReq)
}

type tokenError struct{ err error }

func (e *tokenError) Error() string { return "failed to get JWT token: " + e.err.Error() }
func (e *tokenError) Unwrap() error { return e.err }

// classifyTransportError maps errors that happened before any HTTP response
func classifyTransportError(op string, err error) error {
	var te *tokenError
	if errors.As(err, &te) {
		return rejected(op, err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return unreachable(op, err)
	}
	return rejected(op, err)
}

// responseError extracts the server message from a non-success response
func responseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var errResp colorserver.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return fmt.Errorf("server returned status %d: %s: %s", resp.StatusCode, errResp.Error, errResp.Message)
	}
	return fmt.Errorf("server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}
