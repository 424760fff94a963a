package onboarding

import (
	"errors"
	"strings"
	"time"
)

type LeadStatus string

const (
	StatusPending   LeadStatus = "pending"
	StatusInvited   LeadStatus = "invited"
	StatusViewed    LeadStatus = "viewed"
	StatusConfirmed LeadStatus = "confirmed"
	StatusDeclined  LeadStatus = "declined"
	StatusExpired   LeadStatus = "expired"
)

// Terminal reports whether no further confirmation transition is possible
// from s. Declined leads can still be re-invited, which issues a fresh
// token rather than resurrecting the old one.
func (s LeadStatus) Terminal() bool {
	switch s {
	case StatusConfirmed, StatusDeclined, StatusExpired:
		return true
	}
	return false
}

type GigStatus string

const (
	GigDraft               GigStatus = "draft"
	GigDraftProfileMissing GigStatus = "draft_profile_missing"
	GigPendingReview       GigStatus = "pending_review"
	GigPublished           GigStatus = "published"
	GigUnlisted            GigStatus = "unlisted"
	GigArchived            GigStatus = "archived"
)

// Draft reports whether the gig has not yet left the pre-moderation
// stage. Only draft gigs may be linked to a vendor.
func (s GigStatus) Draft() bool {
	return s == GigDraft || s == GigDraftProfileMissing
}

type AuditAction string

const (
	AuditLeadCreated   AuditAction = "lead.created"
	AuditLeadInvited   AuditAction = "lead.invited"
	AuditLeadViewed    AuditAction = "lead.viewed"
	AuditLeadConfirmed AuditAction = "lead.confirmed"
	AuditLeadDeclined  AuditAction = "lead.declined"
	AuditLeadExpired   AuditAction = "lead.expired"
	AuditGigCreated    AuditAction = "gig.created"
	AuditGigLinked     AuditAction = "gig.linked"
	AuditVendorUpdated AuditAction = "vendor.updated"
)

// Profile holds the descriptive fields shared by a pending lead and the
// vendor it becomes. Confirmation copies the profile onto the vendor; it
// is not a reference back to the lead.
type Profile struct {
	Name          string
	Category      string
	City          string
	Phone         string
	WhatsApp      string
	Email         string
	PriceFrom     int
	PortfolioURLs []string
	Tags          []string
}

// Merge returns p with every non-zero field of overrides applied on top.
// Absent override fields keep the stored value.
func (p Profile) Merge(overrides Profile) Profile {
	out := p
	if strings.TrimSpace(overrides.Name) != "" {
		out.Name = overrides.Name
	}
	if strings.TrimSpace(overrides.Category) != "" {
		out.Category = overrides.Category
	}
	if strings.TrimSpace(overrides.City) != "" {
		out.City = overrides.City
	}
	if strings.TrimSpace(overrides.Phone) != "" {
		out.Phone = overrides.Phone
	}
	if strings.TrimSpace(overrides.WhatsApp) != "" {
		out.WhatsApp = overrides.WhatsApp
	}
	if strings.TrimSpace(overrides.Email) != "" {
		out.Email = overrides.Email
	}
	if overrides.PriceFrom > 0 {
		out.PriceFrom = overrides.PriceFrom
	}
	if len(overrides.PortfolioURLs) > 0 {
		out.PortfolioURLs = overrides.PortfolioURLs
	}
	if len(overrides.Tags) > 0 {
		out.Tags = overrides.Tags
	}
	return out
}

type PendingLead struct {
	ID                    string
	Profile               Profile
	ConfirmationToken     string
	ConfirmationExpiresAt time.Time
	Status                LeadStatus
	ConvertedVendorID     string
	DeclineReason         string
	DraftGigID            string
	// OutreachStatus is the campaign-contact axis owned by invitation
	// dispatch. The confirmation engine never reads or writes it.
	OutreachStatus string
	InvitedAt      *time.Time
	ViewedAt       *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Expired reports whether the confirmation token is past its deadline at
// the given instant. A lead without a token cannot expire.
func (l PendingLead) Expired(now time.Time) bool {
	if l.ConfirmationToken == "" || l.ConfirmationExpiresAt.IsZero() {
		return false
	}
	return now.After(l.ConfirmationExpiresAt)
}

type Vendor struct {
	ID         string
	Profile    Profile
	EditToken  string
	UserID     string
	LeadID     string
	IsActive   bool
	IsVerified bool
	IsArchived bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Gig struct {
	ID              string
	VendorID        string
	Title           string
	Description     string
	PriceFrom       int
	Status          GigStatus
	WizardCompleted bool
	InviteTokenRef  string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type AuditEntry struct {
	ID         string
	ActorType  string
	ActorID    string
	Action     AuditAction
	TargetType string
	TargetID   string
	Details    map[string]any
	CreatedAt  time.Time
}

const (
	PermLeadRead   = "leads:read"
	PermLeadWrite  = "leads:write"
	PermLeadInvite = "leads:invite"
	PermGigWrite   = "gigs:write"
)

type Principal struct {
	Subject string
	Scopes  []string
	Roles   []string
}

type Authorizer interface {
	Require(principal Principal, permission string) error
}

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpired          = errors.New("token expired")
	ErrAlreadyConfirmed = errors.New("lead already confirmed")
	ErrAlreadyDeclined  = errors.New("lead already declined")
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrUnavailable      = errors.New("store unavailable")
)
