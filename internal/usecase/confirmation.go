package usecase

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"talentr/internal/domain/onboarding"
)

// ConfirmationService drives the lead confirmation state machine:
//
//	pending  --(invite)-->  invited
//	invited  --(resolve)--> viewed
//	pending|invited|viewed --(expiry at read time)--> expired
//	pending|invited|viewed --(confirm)--> confirmed   [creates Vendor]
//	pending|invited|viewed --(decline)--> declined
//
// confirmed, declined and expired are terminal. All state changes go
// through the store's conditional transitions, so two concurrent calls
// on the same token converge instead of double-writing.
type ConfirmationService struct {
	Leads     LeadRepository
	Vendors   VendorRepository
	Audit     *AuditEmitter
	Tokens    TokenIssuer
	Notifier  Notifier
	Lifecycle Lifecycle
	Clock     func() time.Time
	// PublicBaseURL is the storefront origin embedded in invite and
	// dashboard links, e.g. https://talentr.example.
	PublicBaseURL string
}

func NewConfirmationService(leads LeadRepository, vendors VendorRepository, audit *AuditEmitter, tokens TokenIssuer) *ConfirmationService {
	return &ConfirmationService{
		Leads:   leads,
		Vendors: vendors,
		Audit:   audit,
		Tokens:  tokens,
		Clock:   time.Now,
	}
}

type CreateLeadInput struct {
	Profile    onboarding.Profile
	DraftGigID string
	Actor      Actor
}

type ConfirmResult struct {
	LeadID     string
	VendorID   string
	EditToken  string
	DraftGigID string
	// Created is false when the call was an idempotent replay of an
	// earlier confirmation.
	Created bool
}

func (s *ConfirmationService) CreateLead(ctx context.Context, input CreateLeadInput) (onboarding.PendingLead, error) {
	if strings.TrimSpace(input.Profile.Name) == "" {
		return onboarding.PendingLead{}, onboarding.ErrInvalidArgument
	}
	lead, err := s.Leads.Create(ctx, onboarding.PendingLead{
		Profile:    input.Profile,
		Status:     onboarding.StatusPending,
		DraftGigID: input.DraftGigID,
	})
	if err != nil {
		return onboarding.PendingLead{}, err
	}
	s.Audit.EmitLeadTransition(ctx, input.Actor, onboarding.AuditLeadCreated, lead.ID, map[string]any{
		"name":     lead.Profile.Name,
		"category": lead.Profile.Category,
		"city":     lead.Profile.City,
	})
	return lead, nil
}

func (s *ConfirmationService) GetLead(ctx context.Context, id string) (onboarding.PendingLead, error) {
	return s.Leads.GetByID(ctx, id)
}

func (s *ConfirmationService) ListLeads(ctx context.Context, filter LeadListFilter) ([]onboarding.PendingLead, string, error) {
	return s.Leads.List(ctx, filter)
}

// Invite stamps a fresh confirmation token on the lead and dispatches
// the invitation out-of-band. Re-inviting a declined or expired lead is
// allowed and issues a new token; the previous one is overwritten and
// therefore dead. Only confirmed leads cannot be re-invited.
func (s *ConfirmationService) Invite(ctx context.Context, leadID string, actor Actor) (onboarding.PendingLead, error) {
	lead, err := s.Leads.GetByID(ctx, leadID)
	if err != nil {
		return onboarding.PendingLead{}, err
	}
	if lead.Status == onboarding.StatusConfirmed {
		return onboarding.PendingLead{}, onboarding.ErrAlreadyConfirmed
	}
	cred, expiresAt, err := s.Tokens.IssueConfirmation()
	if err != nil {
		return onboarding.PendingLead{}, err
	}
	applied, err := s.Leads.StampInvite(ctx, leadID, cred, expiresAt, s.now())
	if err != nil {
		return onboarding.PendingLead{}, err
	}
	if !applied {
		// Lost a race against a concurrent confirmation.
		return onboarding.PendingLead{}, onboarding.ErrAlreadyConfirmed
	}
	lead, err = s.Leads.GetByID(ctx, leadID)
	if err != nil {
		return onboarding.PendingLead{}, err
	}
	s.Audit.EmitLeadTransition(ctx, actor, onboarding.AuditLeadInvited, lead.ID, map[string]any{
		"expires_at": expiresAt.Format(time.RFC3339),
	})
	s.dispatchInvite(lead)
	if s.Lifecycle != nil {
		if err := s.Lifecycle.StartInvite(ctx, lead); err != nil {
			log.Printf("start invite lifecycle failed: lead=%s: %v", lead.ID, err)
		}
	}
	return lead, nil
}

// Resolve looks up a confirmation token for the profile-completion page.
// Expiry is detected lazily at read time; the first successful resolution
// of a pending or invited lead advances it to viewed. Terminal leads are
// returned read-only.
func (s *ConfirmationService) Resolve(ctx context.Context, tokenValue string) (onboarding.PendingLead, error) {
	lead, err := s.leadByToken(ctx, tokenValue)
	if err != nil {
		return onboarding.PendingLead{}, err
	}
	if lead.Status.Terminal() {
		if lead.Status == onboarding.StatusExpired {
			return onboarding.PendingLead{}, onboarding.ErrExpired
		}
		return lead, nil
	}
	if lead.Expired(s.now()) {
		s.lazyExpire(ctx, lead)
		return onboarding.PendingLead{}, onboarding.ErrExpired
	}
	applied, err := s.Leads.MarkViewed(ctx, lead.ID, s.now())
	if err != nil {
		return onboarding.PendingLead{}, err
	}
	if applied {
		s.Audit.EmitLeadTransition(ctx, Actor{Type: "lead", ID: lead.ID}, onboarding.AuditLeadViewed, lead.ID, nil)
		if s.Lifecycle != nil {
			if err := s.Lifecycle.SignalViewed(ctx, lead.ID); err != nil {
				log.Printf("signal viewed failed: lead=%s: %v", lead.ID, err)
			}
		}
	}
	return s.Leads.GetByID(ctx, lead.ID)
}

// Confirm provisions a vendor from the lead. The operation is idempotent:
// confirming an already-confirmed lead returns the original vendor id and
// edit token, with the replay's overrides ignored. Under a concurrent
// double-submit the vendor row's per-lead uniqueness makes one caller the
// creator; the other adopts the same vendor.
func (s *ConfirmationService) Confirm(ctx context.Context, tokenValue string, overrides onboarding.Profile) (ConfirmResult, error) {
	lead, err := s.leadByToken(ctx, tokenValue)
	if err != nil {
		return ConfirmResult{}, err
	}
	if lead.Status == onboarding.StatusConfirmed {
		return s.replayResult(ctx, lead)
	}
	if lead.Status == onboarding.StatusDeclined {
		return ConfirmResult{}, onboarding.ErrAlreadyDeclined
	}
	if lead.Status == onboarding.StatusExpired {
		return ConfirmResult{}, onboarding.ErrExpired
	}
	if lead.Expired(s.now()) {
		s.lazyExpire(ctx, lead)
		return ConfirmResult{}, onboarding.ErrExpired
	}

	vendor, created, err := s.vendorForLead(ctx, lead, overrides)
	if err != nil {
		return ConfirmResult{}, err
	}

	applied, err := s.Leads.MarkConfirmed(ctx, lead.ID, vendor.ID)
	if err != nil {
		return ConfirmResult{}, err
	}
	if !applied {
		// The transition was taken by someone else; converge on the
		// stored outcome.
		current, err := s.Leads.GetByID(ctx, lead.ID)
		if err != nil {
			return ConfirmResult{}, err
		}
		switch current.Status {
		case onboarding.StatusConfirmed:
			return s.replayResult(ctx, current)
		case onboarding.StatusDeclined:
			return ConfirmResult{}, onboarding.ErrAlreadyDeclined
		default:
			return ConfirmResult{}, onboarding.ErrConflict
		}
	}

	// The CAS winner emits exactly one audit entry and one dashboard
	// message, whether it created the vendor or adopted one left behind
	// by an earlier attempt.
	s.Audit.EmitLeadTransition(ctx, Actor{Type: "lead", ID: lead.ID}, onboarding.AuditLeadConfirmed, lead.ID, map[string]any{
		"vendor_id": vendor.ID,
	})
	s.dispatchConfirmation(vendor)
	if s.Lifecycle != nil {
		if err := s.Lifecycle.SignalClosed(ctx, lead.ID, "confirmed"); err != nil {
			log.Printf("signal confirmed failed: lead=%s: %v", lead.ID, err)
		}
	}
	return ConfirmResult{
		LeadID:     lead.ID,
		VendorID:   vendor.ID,
		EditToken:  vendor.EditToken,
		DraftGigID: lead.DraftGigID,
		Created:    created,
	}, nil
}

// Decline marks the lead declined. Declining twice is a no-op Ack, not an
// error.
func (s *ConfirmationService) Decline(ctx context.Context, tokenValue, reason string) error {
	lead, err := s.leadByToken(ctx, tokenValue)
	if err != nil {
		return err
	}
	switch lead.Status {
	case onboarding.StatusDeclined:
		return nil
	case onboarding.StatusConfirmed:
		return onboarding.ErrAlreadyConfirmed
	case onboarding.StatusExpired:
		return onboarding.ErrExpired
	}
	if lead.Expired(s.now()) {
		s.lazyExpire(ctx, lead)
		return onboarding.ErrExpired
	}
	applied, err := s.Leads.MarkDeclined(ctx, lead.ID, reason)
	if err != nil {
		return err
	}
	if !applied {
		current, err := s.Leads.GetByID(ctx, lead.ID)
		if err != nil {
			return err
		}
		if current.Status == onboarding.StatusDeclined {
			return nil
		}
		if current.Status == onboarding.StatusConfirmed {
			return onboarding.ErrAlreadyConfirmed
		}
		return onboarding.ErrConflict
	}
	s.Audit.EmitLeadTransition(ctx, Actor{Type: "lead", ID: lead.ID}, onboarding.AuditLeadDeclined, lead.ID, map[string]any{
		"reason": reason,
	})
	if s.Lifecycle != nil {
		if err := s.Lifecycle.SignalClosed(ctx, lead.ID, "declined"); err != nil {
			log.Printf("signal declined failed: lead=%s: %v", lead.ID, err)
		}
	}
	return nil
}

// Remind re-sends the invitation message for a still-open lead without
// rotating its token. The lifecycle worker calls this partway through
// the confirmation window.
func (s *ConfirmationService) Remind(ctx context.Context, leadID string) error {
	lead, err := s.Leads.GetByID(ctx, leadID)
	if err != nil {
		return err
	}
	if lead.Status.Terminal() {
		return onboarding.ErrConflict
	}
	if lead.ConfirmationToken == "" {
		return onboarding.ErrConflict
	}
	if lead.Expired(s.now()) {
		s.lazyExpire(ctx, lead)
		return onboarding.ErrExpired
	}
	s.dispatchInvite(lead)
	return nil
}

// ExpireLead is the sweep entry point used by the lifecycle worker. It is
// a read-path optimization only; Resolve and Confirm detect expiry on
// their own.
func (s *ConfirmationService) ExpireLead(ctx context.Context, leadID string) (bool, error) {
	lead, err := s.Leads.GetByID(ctx, leadID)
	if err != nil {
		return false, err
	}
	if lead.Status.Terminal() || !lead.Expired(s.now()) {
		return false, nil
	}
	applied, err := s.Leads.MarkExpired(ctx, lead.ID)
	if err != nil {
		return false, err
	}
	if applied {
		s.Audit.EmitLeadTransition(ctx, Actor{Type: "system"}, onboarding.AuditLeadExpired, lead.ID, nil)
	}
	return applied, nil
}

// vendorForLead adopts the vendor row a previous attempt may have left
// behind; only on a miss does it issue an edit token and insert. The
// per-lead conflict clause on the insert still covers a vendor appearing
// between the read and the write.
func (s *ConfirmationService) vendorForLead(ctx context.Context, lead onboarding.PendingLead, overrides onboarding.Profile) (onboarding.Vendor, bool, error) {
	existing, err := s.Vendors.GetByLeadID(ctx, lead.ID)
	if err == nil {
		return existing, false, nil
	}
	if err != onboarding.ErrNotFound {
		return onboarding.Vendor{}, false, err
	}
	editToken, err := s.Tokens.IssueEdit()
	if err != nil {
		return onboarding.Vendor{}, false, err
	}
	return s.Vendors.Create(ctx, onboarding.Vendor{
		Profile:   lead.Profile.Merge(overrides),
		EditToken: editToken,
		LeadID:    lead.ID,
		IsActive:  true,
	})
}

func (s *ConfirmationService) replayResult(ctx context.Context, lead onboarding.PendingLead) (ConfirmResult, error) {
	vendorID := lead.ConvertedVendorID
	if vendorID == "" {
		// Confirmed without a vendor id should be unreachable; repair
		// through the per-lead vendor row if it exists.
		vendor, err := s.Vendors.GetByLeadID(ctx, lead.ID)
		if err != nil {
			return ConfirmResult{}, err
		}
		vendorID = vendor.ID
	}
	vendor, err := s.Vendors.GetByID(ctx, vendorID)
	if err != nil {
		return ConfirmResult{}, err
	}
	return ConfirmResult{
		LeadID:     lead.ID,
		VendorID:   vendor.ID,
		EditToken:  vendor.EditToken,
		DraftGigID: lead.DraftGigID,
		Created:    false,
	}, nil
}

func (s *ConfirmationService) leadByToken(ctx context.Context, tokenValue string) (onboarding.PendingLead, error) {
	tokenValue = strings.TrimSpace(tokenValue)
	if tokenValue == "" {
		return onboarding.PendingLead{}, onboarding.ErrInvalidToken
	}
	lead, err := s.Leads.GetByToken(ctx, tokenValue)
	if err == onboarding.ErrNotFound {
		return onboarding.PendingLead{}, onboarding.ErrInvalidToken
	}
	if err != nil {
		return onboarding.PendingLead{}, err
	}
	return lead, nil
}

func (s *ConfirmationService) lazyExpire(ctx context.Context, lead onboarding.PendingLead) {
	applied, err := s.Leads.MarkExpired(ctx, lead.ID)
	if err != nil {
		log.Printf("mark expired failed: lead=%s: %v", lead.ID, err)
		return
	}
	if applied {
		s.Audit.EmitLeadTransition(ctx, Actor{Type: "system"}, onboarding.AuditLeadExpired, lead.ID, nil)
	}
}

func (s *ConfirmationService) dispatchInvite(lead onboarding.PendingLead) {
	if s.Notifier == nil {
		return
	}
	msg := InviteMessage{
		LeadID:    lead.ID,
		Name:      lead.Profile.Name,
		Email:     lead.Profile.Email,
		WhatsApp:  lead.Profile.WhatsApp,
		Link:      s.inviteLink(lead),
		ExpiresAt: lead.ConfirmationExpiresAt,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Notifier.SendInvite(ctx, msg); err != nil {
			log.Printf("invite notification failed: lead=%s: %v", msg.LeadID, err)
		}
	}()
}

func (s *ConfirmationService) dispatchConfirmation(vendor onboarding.Vendor) {
	if s.Notifier == nil {
		return
	}
	msg := ConfirmationMessage{
		VendorID: vendor.ID,
		Name:     vendor.Profile.Name,
		Email:    vendor.Profile.Email,
		Link:     s.dashboardLink(vendor),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Notifier.SendConfirmation(ctx, msg); err != nil {
			log.Printf("confirmation notification failed: vendor=%s: %v", msg.VendorID, err)
		}
	}()
}

func (s *ConfirmationService) inviteLink(lead onboarding.PendingLead) string {
	base := strings.TrimRight(s.PublicBaseURL, "/")
	link := fmt.Sprintf("%s/onboarding?invite=%s", base, url.QueryEscape(lead.ConfirmationToken))
	if lead.DraftGigID != "" {
		link += "&gigId=" + url.QueryEscape(lead.DraftGigID)
	}
	return link
}

func (s *ConfirmationService) dashboardLink(vendor onboarding.Vendor) string {
	base := strings.TrimRight(s.PublicBaseURL, "/")
	return fmt.Sprintf("%s/vendor/edit/%s", base, url.PathEscape(vendor.EditToken))
}

func (s *ConfirmationService) now() time.Time {
	if s == nil || s.Clock == nil {
		return time.Now()
	}
	return s.Clock()
}
