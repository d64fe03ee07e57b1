package service

import (
	"context"
	"fmt"

	"github.com/athlink/sponsorledger/internal/models"
	"github.com/google/uuid"
)

// AuditService writes immutable audit trail entries.
type AuditService struct {
	store AuditStore
}

func NewAuditService(store AuditStore) *AuditService {
	return &AuditService{store: store}
}

// Write stores a single immutable audit record.
func (s *AuditService) Write(ctx context.Context, entityType string, entityID uuid.UUID, actorID *uuid.UUID, action, prevState, nextState string) error {
	entry := &models.AuditEntry{
		EntityType: entityType,
		EntityID:   entityID,
		ActorID:    actorID,
		Action:     action,
		PrevState:  prevState,
		NextState:  nextState,
	}
	if err := s.store.InsertAudit(ctx, entry); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}
