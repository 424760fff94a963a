package usecase

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"talentr/internal/domain/onboarding"
)

// fakeLeadRepo implements the conditional-transition contract in memory.
// All transitions run under one mutex so concurrent service calls observe
// the same compare-and-swap semantics a real store provides per row.
type fakeLeadRepo struct {
	mu    sync.Mutex
	leads map[string]onboarding.PendingLead
	seq   int
}

func newFakeLeadRepo() *fakeLeadRepo {
	return &fakeLeadRepo{leads: make(map[string]onboarding.PendingLead)}
}

func (r *fakeLeadRepo) Create(_ context.Context, lead onboarding.PendingLead) (onboarding.PendingLead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	lead.ID = "lead-" + strconv.Itoa(r.seq)
	if lead.Status == "" {
		lead.Status = onboarding.StatusPending
	}
	lead.CreatedAt = time.Now().UTC()
	lead.UpdatedAt = lead.CreatedAt
	r.leads[lead.ID] = lead
	return lead, nil
}

func (r *fakeLeadRepo) GetByID(_ context.Context, id string) (onboarding.PendingLead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lead, ok := r.leads[id]
	if !ok {
		return onboarding.PendingLead{}, onboarding.ErrNotFound
	}
	return lead, nil
}

func (r *fakeLeadRepo) GetByToken(_ context.Context, token string) (onboarding.PendingLead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, lead := range r.leads {
		if lead.ConfirmationToken == token {
			return lead, nil
		}
	}
	return onboarding.PendingLead{}, onboarding.ErrNotFound
}

func (r *fakeLeadRepo) List(_ context.Context, filter LeadListFilter) ([]onboarding.PendingLead, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []onboarding.PendingLead
	for _, lead := range r.leads {
		if filter.Status != "" && string(lead.Status) != filter.Status {
			continue
		}
		out = append(out, lead)
	}
	return out, "", nil
}

func (r *fakeLeadRepo) StampInvite(_ context.Context, id, token string, expiresAt, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lead, ok := r.leads[id]
	if !ok || lead.Status == onboarding.StatusConfirmed {
		return false, nil
	}
	lead.ConfirmationToken = token
	lead.ConfirmationExpiresAt = expiresAt
	lead.Status = onboarding.StatusInvited
	lead.InvitedAt = &now
	r.leads[id] = lead
	return true, nil
}

func (r *fakeLeadRepo) MarkViewed(_ context.Context, id string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lead, ok := r.leads[id]
	if !ok {
		return false, nil
	}
	if lead.Status != onboarding.StatusPending && lead.Status != onboarding.StatusInvited {
		return false, nil
	}
	lead.Status = onboarding.StatusViewed
	lead.ViewedAt = &now
	r.leads[id] = lead
	return true, nil
}

func (r *fakeLeadRepo) MarkExpired(_ context.Context, id string) (bool, error) {
	return r.transition(id, onboarding.StatusExpired, func(lead *onboarding.PendingLead) {})
}

func (r *fakeLeadRepo) MarkDeclined(_ context.Context, id, reason string) (bool, error) {
	return r.transition(id, onboarding.StatusDeclined, func(lead *onboarding.PendingLead) {
		lead.DeclineReason = reason
	})
}

func (r *fakeLeadRepo) MarkConfirmed(_ context.Context, id, vendorID string) (bool, error) {
	return r.transition(id, onboarding.StatusConfirmed, func(lead *onboarding.PendingLead) {
		lead.ConvertedVendorID = vendorID
	})
}

func (r *fakeLeadRepo) transition(id string, to onboarding.LeadStatus, apply func(*onboarding.PendingLead)) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lead, ok := r.leads[id]
	if !ok || lead.Status.Terminal() {
		return false, nil
	}
	lead.Status = to
	apply(&lead)
	r.leads[id] = lead
	return true, nil
}

// fakeVendorRepo enforces the per-lead uniqueness the postgres repo gets
// from its partial unique index.
type fakeVendorRepo struct {
	mu      sync.Mutex
	vendors map[string]onboarding.Vendor
	byLead  map[string]string
	seq     int
	// createErr, when set, fails the next Create call.
	createErr error
}

func newFakeVendorRepo() *fakeVendorRepo {
	return &fakeVendorRepo{
		vendors: make(map[string]onboarding.Vendor),
		byLead:  make(map[string]string),
	}
}

func (r *fakeVendorRepo) Create(_ context.Context, vendor onboarding.Vendor) (onboarding.Vendor, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		err := r.createErr
		r.createErr = nil
		return onboarding.Vendor{}, false, err
	}
	if vendor.LeadID != "" {
		if existingID, ok := r.byLead[vendor.LeadID]; ok {
			return r.vendors[existingID], false, nil
		}
	}
	r.seq++
	vendor.ID = "vendor-" + strconv.Itoa(r.seq)
	vendor.CreatedAt = time.Now().UTC()
	r.vendors[vendor.ID] = vendor
	if vendor.LeadID != "" {
		r.byLead[vendor.LeadID] = vendor.ID
	}
	return vendor, true, nil
}

func (r *fakeVendorRepo) GetByID(_ context.Context, id string) (onboarding.Vendor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	vendor, ok := r.vendors[id]
	if !ok {
		return onboarding.Vendor{}, onboarding.ErrNotFound
	}
	return vendor, nil
}

func (r *fakeVendorRepo) GetByLeadID(_ context.Context, leadID string) (onboarding.Vendor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byLead[leadID]
	if !ok {
		return onboarding.Vendor{}, onboarding.ErrNotFound
	}
	return r.vendors[id], nil
}

func (r *fakeVendorRepo) GetByEditToken(_ context.Context, editToken string) (onboarding.Vendor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, vendor := range r.vendors {
		if vendor.EditToken == editToken {
			return vendor, nil
		}
	}
	return onboarding.Vendor{}, onboarding.ErrNotFound
}

func (r *fakeVendorRepo) UpdateProfile(_ context.Context, id string, profile onboarding.Profile) (onboarding.Vendor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	vendor, ok := r.vendors[id]
	if !ok {
		return onboarding.Vendor{}, onboarding.ErrNotFound
	}
	vendor.Profile = profile
	r.vendors[id] = vendor
	return vendor, nil
}

func (r *fakeVendorRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.vendors)
}

type fakeGigRepo struct {
	mu   sync.Mutex
	gigs map[string]onboarding.Gig
	seq  int
}

func newFakeGigRepo() *fakeGigRepo {
	return &fakeGigRepo{gigs: make(map[string]onboarding.Gig)}
}

func (r *fakeGigRepo) Create(_ context.Context, gig onboarding.Gig) (onboarding.Gig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	gig.ID = "gig-" + strconv.Itoa(r.seq)
	if gig.Status == "" {
		gig.Status = onboarding.GigDraft
	}
	r.gigs[gig.ID] = gig
	return gig, nil
}

func (r *fakeGigRepo) GetByID(_ context.Context, id string) (onboarding.Gig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	gig, ok := r.gigs[id]
	if !ok {
		return onboarding.Gig{}, onboarding.ErrNotFound
	}
	return gig, nil
}

func (r *fakeGigRepo) LinkVendor(_ context.Context, gigID, vendorID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	gig, ok := r.gigs[gigID]
	if !ok || !gig.Status.Draft() {
		return false, nil
	}
	gig.VendorID = vendorID
	gig.Status = onboarding.GigPendingReview
	gig.WizardCompleted = true
	r.gigs[gigID] = gig
	return true, nil
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []onboarding.AuditEntry
	fail    bool
}

func (r *fakeAuditRepo) Append(_ context.Context, entry onboarding.AuditEntry) (onboarding.AuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return onboarding.AuditEntry{}, onboarding.ErrUnavailable
	}
	entry.ID = "audit-" + strconv.Itoa(len(r.entries)+1)
	r.entries = append(r.entries, entry)
	return entry, nil
}

func (r *fakeAuditRepo) countAction(action onboarding.AuditAction) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, entry := range r.entries {
		if entry.Action == action {
			n++
		}
	}
	return n
}

// fakeNotifier records dispatched messages. Buffered channels let
// tests wait for the fire-and-forget goroutine without racing it.
type fakeNotifier struct {
	invites       chan InviteMessage
	confirmations chan ConfirmationMessage
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{
		invites:       make(chan InviteMessage, 16),
		confirmations: make(chan ConfirmationMessage, 16),
	}
}

func (f *fakeNotifier) SendInvite(_ context.Context, msg InviteMessage) error {
	f.invites <- msg
	return nil
}

func (f *fakeNotifier) SendConfirmation(_ context.Context, msg ConfirmationMessage) error {
	f.confirmations <- msg
	return nil
}

func (f *fakeNotifier) waitConfirmation(t *testing.T) ConfirmationMessage {
	t.Helper()
	select {
	case msg := <-f.confirmations:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatalf("confirmation message never dispatched")
		return ConfirmationMessage{}
	}
}

// fakeIssuer hands out deterministic tokens.
type fakeIssuer struct {
	mu         sync.Mutex
	seq        int
	editIssued int
	ttl        time.Duration
	now        func() time.Time
}

func (f *fakeIssuer) IssueConfirmation() (string, time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	ttl := f.ttl
	if ttl == 0 {
		ttl = 72 * time.Hour
	}
	return fmt.Sprintf("confirm-token-%d", f.seq), f.now().Add(ttl), nil
}

func (f *fakeIssuer) IssueEdit() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	f.editIssued++
	return fmt.Sprintf("edit-token-%d", f.seq), nil
}

func (f *fakeIssuer) editCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.editIssued
}

type env struct {
	leads   *fakeLeadRepo
	vendors *fakeVendorRepo
	gigs    *fakeGigRepo
	audit   *fakeAuditRepo
	issuer  *fakeIssuer
	svc     *ConfirmationService
	listing *ListingService
	now     time.Time
}

func newEnv() *env {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	leads := newFakeLeadRepo()
	vendors := newFakeVendorRepo()
	gigs := newFakeGigRepo()
	audit := &fakeAuditRepo{}
	emitter := NewAuditEmitter(audit)
	emitter.Clock = func() time.Time { return now }
	issuer := &fakeIssuer{now: func() time.Time { return now }}
	svc := NewConfirmationService(leads, vendors, emitter, issuer)
	svc.Clock = func() time.Time { return now }
	svc.PublicBaseURL = "https://talentr.example"
	listing := NewListingService(gigs, vendors, emitter)
	return &env{leads: leads, vendors: vendors, gigs: gigs, audit: audit, issuer: issuer, svc: svc, listing: listing, now: now}
}

// seedLead creates a lead already carrying a valid confirmation token.
func (e *env) seedLead(profile onboarding.Profile) onboarding.PendingLead {
	lead, err := e.leads.Create(context.Background(), onboarding.PendingLead{
		Profile:               profile,
		Status:                onboarding.StatusPending,
		ConfirmationToken:     "tok-" + profile.Name,
		ConfirmationExpiresAt: e.now.Add(72 * time.Hour),
	})
	if err != nil {
		panic(err)
	}
	return lead
}
