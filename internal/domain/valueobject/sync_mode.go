package valueobject

import "fmt"

// SyncMode represents how a sync job selects source records.
type SyncMode string

// Sync mode constants.
const (
	SyncModeFull        SyncMode = "full"
	SyncModeIncremental SyncMode = "incremental"
	SyncModeWebhook     SyncMode = "webhook"
)

// validSyncModes contains all valid sync modes.
var validSyncModes = map[SyncMode]bool{
	SyncModeFull:        true,
	SyncModeIncremental: true,
	SyncModeWebhook:     true,
}

// NewSyncMode creates a new SyncMode with validation.
func NewSyncMode(mode string) (SyncMode, error) {
	m := SyncMode(mode)
	if !validSyncModes[m] {
		return "", fmt.Errorf("invalid sync mode: %s", mode)
	}
	return m, nil
}

// String returns the string representation of the mode.
func (m SyncMode) String() string {
	return string(m)
}

// AllSyncModes returns all valid sync modes.
func AllSyncModes() []SyncMode {
	modes := make([]SyncMode, 0, len(validSyncModes))
	for mode := range validSyncModes {
		modes = append(modes, mode)
	}
	return modes
}
