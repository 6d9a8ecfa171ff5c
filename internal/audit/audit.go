package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/claudyio484/lastbite-backend/internal/store"
)

// Recorder persists audit rows; *store.Store satisfies it.
type Recorder interface {
	InsertAuditRow(ctx context.Context, row store.AuditRow) error
}

type Logger struct {
	recorder Recorder
}

func NewLogger(recorder Recorder) *Logger {
	return &Logger{recorder: recorder}
}

type Entry struct {
	TenantID   uuid.UUID
	UserID     *uuid.UUID
	Action     string
	EntityType string
	EntityID   *uuid.UUID
	RequestID  string
	Metadata   map[string]any
}

func (l *Logger) Log(ctx context.Context, entry Entry) error {
	metadata := []byte("{}")
	if len(entry.Metadata) > 0 {
		encoded, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		metadata = encoded
	}

	row := store.AuditRow{
		TenantID:   entry.TenantID,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		Metadata:   metadata,
	}
	if entry.UserID != nil {
		row.UserID = entry.UserID
	}
	if entry.EntityID != nil {
		row.EntityID = entry.EntityID
	}
	if entry.RequestID != "" {
		row.RequestID = &entry.RequestID
	}

	if err := l.recorder.InsertAuditRow(ctx, row); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}
