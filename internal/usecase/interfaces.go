package usecase

import (
	"context"
	"time"

	"talentr/internal/domain/onboarding"
)

// LeadRepository persists pending leads. All Mark* methods are
// conditional transitions: they apply only when the lead is still in an
// eligible status and report applied=false otherwise. That single
// primitive is the per-lead mutual exclusion the confirmation engine
// relies on.
type LeadRepository interface {
	Create(ctx context.Context, lead onboarding.PendingLead) (onboarding.PendingLead, error)
	GetByID(ctx context.Context, id string) (onboarding.PendingLead, error)
	GetByToken(ctx context.Context, token string) (onboarding.PendingLead, error)
	List(ctx context.Context, filter LeadListFilter) ([]onboarding.PendingLead, string, error)

	// StampInvite writes a fresh confirmation token and expiry and moves
	// the lead to invited. Applies from any status except confirmed.
	StampInvite(ctx context.Context, id, token string, expiresAt, now time.Time) (bool, error)
	// MarkViewed applies from pending or invited.
	MarkViewed(ctx context.Context, id string, now time.Time) (bool, error)
	// MarkExpired applies from pending, invited or viewed.
	MarkExpired(ctx context.Context, id string) (bool, error)
	// MarkDeclined applies from pending, invited or viewed.
	MarkDeclined(ctx context.Context, id, reason string) (bool, error)
	// MarkConfirmed applies from pending, invited or viewed and records
	// the converted vendor id.
	MarkConfirmed(ctx context.Context, id, vendorID string) (bool, error)
}

// VendorRepository persists vendors. Create is idempotent per lead: a
// second create for the same lead returns the existing row with
// created=false instead of inserting a duplicate.
type VendorRepository interface {
	Create(ctx context.Context, vendor onboarding.Vendor) (onboarding.Vendor, bool, error)
	GetByID(ctx context.Context, id string) (onboarding.Vendor, error)
	GetByLeadID(ctx context.Context, leadID string) (onboarding.Vendor, error)
	GetByEditToken(ctx context.Context, editToken string) (onboarding.Vendor, error)
	UpdateProfile(ctx context.Context, id string, profile onboarding.Profile) (onboarding.Vendor, error)
}

type GigRepository interface {
	Create(ctx context.Context, gig onboarding.Gig) (onboarding.Gig, error)
	GetByID(ctx context.Context, id string) (onboarding.Gig, error)
	// LinkVendor applies only while the gig is in a draft status.
	LinkVendor(ctx context.Context, gigID, vendorID string) (bool, error)
}

type AuditRepository interface {
	Append(ctx context.Context, entry onboarding.AuditEntry) (onboarding.AuditEntry, error)
}

// AuditLog is the read side of the activity trail.
type AuditLog interface {
	ListByTarget(ctx context.Context, targetType, targetID string) ([]onboarding.AuditEntry, error)
}

// TokenIssuer mints the bearer credentials carried in invite links and
// vendor dashboard magic links.
type TokenIssuer interface {
	IssueConfirmation() (credential string, expiresAt time.Time, err error)
	IssueEdit() (credential string, err error)
}

type InviteMessage struct {
	LeadID    string
	Name      string
	Email     string
	WhatsApp  string
	Link      string
	ExpiresAt time.Time
}

type ConfirmationMessage struct {
	VendorID string
	Name     string
	Email    string
	Link     string
}

/// Notifier is fire-and-forget: failures are logged by the caller, never
// propagated to the operation's success path.
type Notifier interface {
	SendInvite(ctx context.Context, msg InviteMessage) error
	SendConfirmation(ctx context.Context, msg ConfirmationMessage) error
}

// Lifecycle starts and signals the optional invite-lifecycle workflow.
// Every call is best-effort; confirmation correctness never depends on
// the worker running.
type Lifecycle interface {
	StartInvite(ctx context.Context, lead onboarding.PendingLead) error
	SignalViewed(ctx context.Context, leadID string) error
	SignalClosed(ctx context.Context, leadID, outcome string) error
}

type LeadListFilter struct {
	Status   string
	City     string
	Category string
	Limit    int
	Cursor   string
}

type Actor struct {
	Type string
	ID   string
}
