// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package colorsync

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Record is one generated color card
type Record struct {
	ID        uuid.UUID `json:"id"`        // Client-generated, never reused
	HexCode   string    `json:"hexCode"`   // Six uppercase hex digits, e.g. "A1B2C3"
	Timestamp time.Time `json:"timestamp"` // Creation time, used for ordering
}

// NewRecord creates a record with a fresh random identity
func NewRecord(hexCode string, ts time.Time) Record {
	return Record{
		ID:        uuid.New(),
		HexCode:   strings.ToUpper(hexCode),
		Timestamp: ts.UTC(),
	}
}

// RandomHexColor returns a random color as six uppercase hex digits
func RandomHexColor() string {
	return fmt.Sprintf("%02X%02X%02X", rand.IntN(256), rand.IntN(256), rand.IntN(256))
}

// Validate checks identity and payload shape
func (r Record) Validate() error {
	if r.ID == uuid.Nil {
		return fmt.Errorf("record id must not be nil")
	}
	if !isValidHexCode(r.HexCode) {
		return fmt.Errorf("invalid hex code %q", r.HexCode)
	}
	return nil
}

// isValidHexCode checks if code matches ^[0-9A-F]{6}$
func isValidHexCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if !((r >= '0' && r <= '9') || (r >= 'A' && r <= 'F')) {
			return false
		}
	}
	return true
}

func cloneRecords(records []Record) []Record {
	out := make([]Record, len(records))
	copy(out, records)
	return out
}

func indexOfRecord(records []Record, id uuid.UUID) int {
	for i := range records {
		if records[i].ID == id {
			return i
		}
	}
	return -1
}
