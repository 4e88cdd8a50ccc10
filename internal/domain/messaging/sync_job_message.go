package messaging

import (
	"errors"
	"fmt"
	"time"

	"vectorsync/internal/domain/valueobject"

	"github.com/google/uuid"
)

// MaxWebhookCodes bounds the code list accepted on a webhook dispatch.
const MaxWebhookCodes = 500

// SyncJobMessage is the work descriptor published to the dispatch queue.
// Full/incremental dispatches carry no codes; webhook dispatches carry the
// explicit key list (1..500 entries).
type SyncJobMessage struct {
	MessageID    string               `json:"message_id"`
	JobID        uuid.UUID            `json:"job_id"`
	DatasourceID uuid.UUID            `json:"datasource_id"`
	Mode         valueobject.SyncMode `json:"mode"`
	Codes        []string             `json:"codes,omitempty"`
	Timestamp    time.Time            `json:"timestamp"`
}

// NewSyncJobMessage builds a dispatch message with a fresh message id.
func NewSyncJobMessage(jobID, datasourceID uuid.UUID, mode valueobject.SyncMode, codes []string) SyncJobMessage {
	return SyncJobMessage{
		MessageID:    uuid.New().String(),
		JobID:        jobID,
		DatasourceID: datasourceID,
		Mode:         mode,
		Codes:        codes,
		Timestamp:    time.Now(),
	}
}

// Validate checks the message for structural problems before dispatch or processing.
func (m SyncJobMessage) Validate() error {
	if m.MessageID == "" {
		return errors.New("message ID cannot be empty")
	}
	if m.JobID == uuid.Nil {
		return errors.New("job ID cannot be nil")
	}
	if m.DatasourceID == uuid.Nil {
		return errors.New("datasource ID cannot be nil")
	}
	if _, err := valueobject.NewSyncMode(m.Mode.String()); err != nil {
		return err
	}
	if m.Mode == valueobject.SyncModeWebhook {
		if len(m.Codes) == 0 {
			return errors.New("webhook dispatch requires at least one code")
		}
		if len(m.Codes) > MaxWebhookCodes {
			return fmt.Errorf("webhook dispatch accepts at most %d codes, got %d", MaxWebhookCodes, len(m.Codes))
		}
	}
	return nil
}
