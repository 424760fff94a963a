package usecase

import (
	"context"
	"errors"
	"log"
	"time"

	"talentr/internal/domain/onboarding"
)

// AuditEmitter appends entries to the activity log. Writes happen after
// the operation they describe has committed, and a write failure is
// logged rather than returned: the audit trail must never block or roll
// back the operation it records.
type AuditEmitter struct {
	Repo  AuditRepository
	Clock func() time.Time
}

func NewAuditEmitter(repo AuditRepository) *AuditEmitter {
	return &AuditEmitter{Repo: repo, Clock: time.Now}
}

func (e *AuditEmitter) Emit(ctx context.Context, entry onboarding.AuditEntry) {
	if err := e.emit(ctx, entry); err != nil {
		log.Printf("audit append failed: action=%s target=%s/%s: %v",
			entry.Action, entry.TargetType, entry.TargetID, err)
	}
}

func (e *AuditEmitter) emit(ctx context.Context, entry onboarding.AuditEntry) error {
	if e == nil || e.Repo == nil {
		return errors.New("audit repository required")
	}
	if entry.Action == "" || entry.TargetType == "" || entry.TargetID == "" {
		return errors.New("audit entry missing required fields")
	}
	if entry.ActorType == "" {
		entry.ActorType = "system"
	}
	if entry.Details == nil {
		entry.Details = map[string]any{}
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = e.now().UTC()
	} else {
		entry.CreatedAt = entry.CreatedAt.UTC()
	}
	_, err := e.Repo.Append(ctx, entry)
	return err
}

func (e *AuditEmitter) EmitLeadTransition(ctx context.Context, actor Actor, action onboarding.AuditAction, leadID string, details map[string]any) {
	e.Emit(ctx, onboarding.AuditEntry{
		ActorType:  actor.Type,
		ActorID:    actor.ID,
		Action:     action,
		TargetType: "lead",
		TargetID:   leadID,
		Details:    details,
	})
}

func (e *AuditEmitter) EmitGigTransition(ctx context.Context, actor Actor, action onboarding.AuditAction, gigID string, details map[string]any) {
	e.Emit(ctx, onboarding.AuditEntry{
		ActorType:  actor.Type,
		ActorID:    actor.ID,
		Action:     action,
		TargetType: "gig",
		TargetID:   gigID,
		Details:    details,
	})
}

func (e *AuditEmitter) now() time.Time {
	if e == nil || e.Clock == nil {
		return time.Now()
	}
	return e.Clock()
}
