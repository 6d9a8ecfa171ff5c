package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type AuditRow struct {
	TenantID   uuid.UUID
	UserID     *uuid.UUID
	Action     string
	EntityType string
	EntityID   *uuid.UUID
	RequestID  *string
	Metadata   []byte
}

func (s *Store) InsertAuditRow(ctx context.Context, row AuditRow) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_logs (tenant_id, user_id, action, entity_type, entity_id, request_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, row.TenantID, row.UserID, row.Action, row.EntityType, row.EntityID, row.RequestID, row.Metadata)
	if err != nil {
		return fmt.Errorf("insert audit row: %w", err)
	}
	return nil
}
