// Package identity derives destination point identifiers from source keys.
//
// Every sync mode uses the same name-based derivation so that a source record
// maps to the identical destination point across full, incremental and webhook
// runs, and across process restarts. Re-syncing therefore always updates a
// point instead of duplicating it.
package identity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// pointNamespace is the fixed namespace for name-based point id derivation.
// Changing it re-keys every destination point, so it is a constant for the
// lifetime of an installation.
var pointNamespace = uuid.MustParse("7f1bdbe8-6b4c-4b0a-9c75-3f52f0a2a9d1")

// ErrEmptyKey indicates the source key column was null or blank.
var ErrEmptyKey = errors.New("source key is empty")

// PointID derives a deterministic destination point id from a source key.
// The key is trimmed first; an empty key returns ErrEmptyKey so the caller can
// decide between failing the record and falling back to a synthetic id.
func PointID(key string) (string, error) {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return "", ErrEmptyKey
	}
	return uuid.NewSHA1(pointNamespace, []byte(trimmed)).String(), nil
}

// FallbackPointID builds a synthetic point id for a record without a usable
// source key. It is derived from the current time and the record's position,
// so it is NOT idempotent: every run produces a fresh point. Callers must
// surface this to operators.
func FallbackPointID(now time.Time, batchIndex, position int) string {
	name := fmt.Sprintf("fallback:%d:%d:%d", now.UnixNano(), batchIndex, position)
	return uuid.NewSHA1(pointNamespace, []byte(name)).String()
}

// Validate checks that an id satisfies the vector store's id-format constraint
// (a canonical UUID). A non-conforming id must never reach the store.
func Validate(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("point id %q is not a valid UUID: %w", id, err)
	}
	return nil
}
