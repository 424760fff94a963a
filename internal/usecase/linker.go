package usecase

import (
	"context"
	"strings"
	"time"

	"talentr/internal/domain/onboarding"
)

// ListingService attaches draft gigs to vendors. Linking runs after a
// successful confirmation and is best-effort relative to it: a link
// failure is surfaced as a warning, never as a rollback of the vendor.
type ListingService struct {
	Gigs    GigRepository
	Vendors VendorRepository
	Audit   *AuditEmitter
	Clock   func() time.Time
}

func NewListingService(gigs GigRepository, vendors VendorRepository, audit *AuditEmitter) *ListingService {
	return &ListingService{
		Gigs:    gigs,
		Vendors: vendors,
		Audit:   audit,
		Clock:   time.Now,
	}
}

type CreateGigInput struct {
	Title          string
	Description    string
	PriceFrom      int
	InviteTokenRef string
	VendorID       string
	Actor          Actor
}

// CreateDraftGig records a listing created by the wizard. The gig may
// predate its owning vendor account, in which case it is keyed by the
// invite token reference and linked at confirmation time.
func (s *ListingService) CreateDraftGig(ctx context.Context, input CreateGigInput) (onboarding.Gig, error) {
	if strings.TrimSpace(input.Title) == "" {
		return onboarding.Gig{}, onboarding.ErrInvalidArgument
	}
	status := onboarding.GigDraft
	if input.VendorID == "" {
		status = onboarding.GigDraftProfileMissing
	}
	gig, err := s.Gigs.Create(ctx, onboarding.Gig{
		VendorID:       input.VendorID,
		Title:          input.Title,
		Description:    input.Description,
		PriceFrom:      input.PriceFrom,
		Status:         status,
		InviteTokenRef: input.InviteTokenRef,
	})
	if err != nil {
		return onboarding.Gig{}, err
	}
	s.Audit.EmitGigTransition(ctx, input.Actor, onboarding.AuditGigCreated, gig.ID, map[string]any{
		"title":  gig.Title,
		"status": string(gig.Status),
	})
	return gig, nil
}

func (s *ListingService) GetGig(ctx context.Context, id string) (onboarding.Gig, error) {
	return s.Gigs.GetByID(ctx, id)
}

// LinkGig sets the gig's owner and advances it to pending_review. The
// gig must still be in a draft status; a gig that already left drafting
// is a precondition violation reported as a conflict.
func (s *ListingService) LinkGig(ctx context.Context, gigID, vendorID string, actor Actor) error {
	if gigID == "" || vendorID == "" {
		return onboarding.ErrInvalidArgument
	}
	if _, err := s.Vendors.GetByID(ctx, vendorID); err != nil {
		return err
	}
	applied, err := s.Gigs.LinkVendor(ctx, gigID, vendorID)
	if err != nil {
		return err
	}
	if !applied {
		gig, err := s.Gigs.GetByID(ctx, gigID)
		if err != nil {
			return err
		}
		if gig.VendorID == vendorID && gig.Status == onboarding.GigPendingReview {
			// Replay of an earlier successful link.
			return nil
		}
		return onboarding.ErrConflict
	}
	s.Audit.EmitGigTransition(ctx, actor, onboarding.AuditGigLinked, gigID, map[string]any{
		"vendor_id": vendorID,
	})
	return nil
}
