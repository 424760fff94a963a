package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"talentr/internal/domain/onboarding"
)

func TestConfirmCreatesVendorFromLeadProfile(t *testing.T) {
	e := newEnv()
	lead := e.seedLead(onboarding.Profile{Name: "Dana", Category: "photography"})

	result, err := e.svc.Confirm(context.Background(), lead.ConfirmationToken, onboarding.Profile{Phone: "050-1"})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !result.Created {
		t.Fatalf("expected first confirm to create")
	}
	if result.VendorID == "" || result.EditToken == "" {
		t.Fatalf("missing vendor credentials: %+v", result)
	}

	vendor, err := e.vendors.GetByID(context.Background(), result.VendorID)
	if err != nil {
		t.Fatalf("get vendor: %v", err)
	}
	if vendor.Profile.Name != "Dana" || vendor.Profile.Phone != "050-1" {
		t.Fatalf("profile merge wrong: %+v", vendor.Profile)
	}
	if !vendor.IsActive {
		t.Fatalf("vendor should start active")
	}

	stored, _ := e.leads.GetByID(context.Background(), lead.ID)
	if stored.Status != onboarding.StatusConfirmed {
		t.Fatalf("lead status = %s", stored.Status)
	}
	if stored.ConvertedVendorID != result.VendorID {
		t.Fatalf("converted_vendor_id = %q, want %q", stored.ConvertedVendorID, result.VendorID)
	}
	if e.audit.countAction(onboarding.AuditLeadConfirmed) != 1 {
		t.Fatalf("expected one confirmed audit entry")
	}
}

func TestConfirmReplayReturnsOriginalVendor(t *testing.T) {
	e := newEnv()
	lead := e.seedLead(onboarding.Profile{Name: "Dana", Phone: "050-0"})

	first, err := e.svc.Confirm(context.Background(), lead.ConfirmationToken, onboarding.Profile{Phone: "050-1"})
	if err != nil {
		t.Fatalf("first confirm: %v", err)
	}
	second, err := e.svc.Confirm(context.Background(), lead.ConfirmationToken, onboarding.Profile{Phone: "999-9", Name: "Mallory"})
	if err != nil {
		t.Fatalf("replay confirm: %v", err)
	}
	if second.VendorID != first.VendorID || second.EditToken != first.EditToken {
		t.Fatalf("replay diverged: first=%+v second=%+v", first, second)
	}
	if second.Created {
		t.Fatalf("replay must not report created")
	}
	if e.vendors.count() != 1 {
		t.Fatalf("expected exactly one vendor, got %d", e.vendors.count())
	}

	// Replay overrides are discarded, not merged.
	vendor, _ := e.vendors.GetByID(context.Background(), first.VendorID)
	if vendor.Profile.Phone != "050-1" || vendor.Profile.Name != "Dana" {
		t.Fatalf("replay overwrote profile: %+v", vendor.Profile)
	}
	if e.audit.countAction(onboarding.AuditLeadConfirmed) != 1 {
		t.Fatalf("replay must not re-audit")
	}
}

func TestConfirmConcurrentDoubleSubmit(t *testing.T) {
	e := newEnv()
	notifier := newFakeNotifier()
	e.svc.Notifier = notifier
	lead := e.seedLead(onboarding.Profile{Name: "Dana"})

	const callers = 8
	results := make([]ConfirmResult, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = e.svc.Confirm(context.Background(), lead.ConfirmationToken, onboarding.Profile{})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d: %v", i, err)
		}
	}
	for i := 1; i < callers; i++ {
		if results[i].VendorID != results[0].VendorID {
			t.Fatalf("divergent vendor ids: %q vs %q", results[i].VendorID, results[0].VendorID)
		}
		if results[i].EditToken != results[0].EditToken {
			t.Fatalf("divergent edit tokens")
		}
	}
	if e.vendors.count() != 1 {
		t.Fatalf("expected exactly one vendor, got %d", e.vendors.count())
	}
	// Whichever caller won the status transition audits and notifies,
	// even when a different caller inserted the vendor row.
	if got := e.audit.countAction(onboarding.AuditLeadConfirmed); got != 1 {
		t.Fatalf("confirmed audit entries = %d, want 1", got)
	}
	msg := notifier.waitConfirmation(t)
	if msg.VendorID != results[0].VendorID {
		t.Fatalf("notified vendor = %s, want %s", msg.VendorID, results[0].VendorID)
	}
	select {
	case <-notifier.confirmations:
		t.Fatal("second confirmation message dispatched")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestConfirmExpiredToken(t *testing.T) {
	e := newEnv()
	lead := e.seedLead(onboarding.Profile{Name: "Dana"})
	e.svc.Clock = func() time.Time { return e.now.Add(100 * time.Hour) }

	_, err := e.svc.Confirm(context.Background(), lead.ConfirmationToken, onboarding.Profile{})
	if err != onboarding.ErrExpired {
		t.Fatalf("err = %v, want ErrExpired", err)
	}
	if e.vendors.count() != 0 {
		t.Fatalf("expired confirm must not create a vendor")
	}
	stored, _ := e.leads.GetByID(context.Background(), lead.ID)
	if stored.Status != onboarding.StatusExpired {
		t.Fatalf("lazy expiry not applied: %s", stored.Status)
	}
}

func TestConfirmUnknownToken(t *testing.T) {
	e := newEnv()
	if _, err := e.svc.Confirm(context.Background(), "no-such-token", onboarding.Profile{}); err != onboarding.ErrInvalidToken {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
	if _, err := e.svc.Confirm(context.Background(), "  ", onboarding.Profile{}); err != onboarding.ErrInvalidToken {
		t.Fatalf("blank token err = %v, want ErrInvalidToken", err)
	}
}

func TestConfirmAdoptsOrphanedVendor(t *testing.T) {
	// A previous attempt created the vendor but failed before flipping
	// the lead status. Re-entry must adopt that vendor, not duplicate it.
	e := newEnv()
	notifier := newFakeNotifier()
	e.svc.Notifier = notifier
	lead := e.seedLead(onboarding.Profile{Name: "Dana"})
	orphan, created, err := e.vendors.Create(context.Background(), onboarding.Vendor{
		Profile:   lead.Profile,
		EditToken: "edit-orphan",
		LeadID:    lead.ID,
		IsActive:  true,
	})
	if err != nil || !created {
		t.Fatalf("seed orphan: %v", err)
	}

	result, err := e.svc.Confirm(context.Background(), lead.ConfirmationToken, onboarding.Profile{})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if result.VendorID != orphan.ID || result.EditToken != "edit-orphan" {
		t.Fatalf("expected orphan adoption, got %+v", result)
	}
	if got := e.issuer.editCount(); got != 0 {
		t.Fatalf("edit tokens issued = %d, want 0", got)
	}
	if e.vendors.count() != 1 {
		t.Fatalf("expected one vendor, got %d", e.vendors.count())
	}
	stored, _ := e.leads.GetByID(context.Background(), lead.ID)
	if stored.Status != onboarding.StatusConfirmed || stored.ConvertedVendorID != orphan.ID {
		t.Fatalf("status repair failed: %+v", stored)
	}
	// The repairing call is the one that completed the confirmation, so
	// it owns the audit entry and the dashboard message.
	if got := e.audit.countAction(onboarding.AuditLeadConfirmed); got != 1 {
		t.Fatalf("confirmed audit entries = %d, want 1", got)
	}
	msg := notifier.waitConfirmation(t)
	if msg.VendorID != orphan.ID || msg.Link == "" {
		t.Fatalf("unexpected confirmation message: %+v", msg)
	}
}

func TestConfirmDeclinedLead(t *testing.T) {
	e := newEnv()
	lead := e.seedLead(onboarding.Profile{Name: "Dana"})
	if err := e.svc.Decline(context.Background(), lead.ConfirmationToken, "not interested"); err != nil {
		t.Fatalf("decline: %v", err)
	}
	if _, err := e.svc.Confirm(context.Background(), lead.ConfirmationToken, onboarding.Profile{}); err != onboarding.ErrAlreadyDeclined {
		t.Fatalf("err = %v, want ErrAlreadyDeclined", err)
	}
}

func TestResolveFirstViewTracking(t *testing.T) {
	e := newEnv()
	lead := e.seedLead(onboarding.Profile{Name: "Dana"})

	resolved, err := e.svc.Resolve(context.Background(), lead.ConfirmationToken)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Status != onboarding.StatusViewed {
		t.Fatalf("status = %s, want viewed", resolved.Status)
	}
	if resolved.ViewedAt == nil {
		t.Fatalf("viewed_at not set")
	}

	// Any number of later resolves leaves the status alone.
	for i := 0; i < 3; i++ {
		again, err := e.svc.Resolve(context.Background(), lead.ConfirmationToken)
		if err != nil {
			t.Fatalf("resolve %d: %v", i, err)
		}
		if again.Status != onboarding.StatusViewed {
			t.Fatalf("resolve %d mutated status to %s", i, again.Status)
		}
	}
	if e.audit.countAction(onboarding.AuditLeadViewed) != 1 {
		t.Fatalf("expected a single viewed audit entry")
	}
}

func TestResolveExpiredLazily(t *testing.T) {
	e := newEnv()
	lead := e.seedLead(onboarding.Profile{Name: "Dana"})
	e.svc.Clock = func() time.Time { return e.now.Add(100 * time.Hour) }

	if _, err := e.svc.Resolve(context.Background(), lead.ConfirmationToken); err != onboarding.ErrExpired {
		t.Fatalf("err = %v, want ErrExpired", err)
	}
	stored, _ := e.leads.GetByID(context.Background(), lead.ID)
	if stored.Status != onboarding.StatusExpired {
		t.Fatalf("status = %s, want expired", stored.Status)
	}
	// Second read stays expired without another transition.
	if _, err := e.svc.Resolve(context.Background(), lead.ConfirmationToken); err != onboarding.ErrExpired {
		t.Fatalf("second resolve err = %v", err)
	}
	if e.audit.countAction(onboarding.AuditLeadExpired) != 1 {
		t.Fatalf("expected one expired audit entry")
	}
}

func TestResolveConfirmedLeadIsReadOnly(t *testing.T) {
	e := newEnv()
	lead := e.seedLead(onboarding.Profile{Name: "Dana"})
	if _, err := e.svc.Confirm(context.Background(), lead.ConfirmationToken, onboarding.Profile{}); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	// Even past the token deadline, a confirmed lead never flips to
	// expired on read.
	e.svc.Clock = func() time.Time { return e.now.Add(100 * time.Hour) }
	resolved, err := e.svc.Resolve(context.Background(), lead.ConfirmationToken)
	if err != nil {
		t.Fatalf("resolve confirmed: %v", err)
	}
	if resolved.Status != onboarding.StatusConfirmed {
		t.Fatalf("status = %s, want confirmed", resolved.Status)
	}
}

func TestDeclineIdempotent(t *testing.T) {
	e := newEnv()
	lead := e.seedLead(onboarding.Profile{Name: "Dana"})

	if err := e.svc.Decline(context.Background(), lead.ConfirmationToken, "busy"); err != nil {
		t.Fatalf("decline: %v", err)
	}
	if err := e.svc.Decline(context.Background(), lead.ConfirmationToken, "busy again"); err != nil {
		t.Fatalf("second decline must be a no-op, got %v", err)
	}
	stored, _ := e.leads.GetByID(context.Background(), lead.ID)
	if stored.DeclineReason != "busy" {
		t.Fatalf("second decline overwrote reason: %q", stored.DeclineReason)
	}
	if e.audit.countAction(onboarding.AuditLeadDeclined) != 1 {
		t.Fatalf("expected one declined audit entry")
	}
}

func TestDeclineConfirmedLead(t *testing.T) {
	e := newEnv()
	lead := e.seedLead(onboarding.Profile{Name: "Dana"})
	if _, err := e.svc.Confirm(context.Background(), lead.ConfirmationToken, onboarding.Profile{}); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if err := e.svc.Decline(context.Background(), lead.ConfirmationToken, "too late"); err != onboarding.ErrAlreadyConfirmed {
		t.Fatalf("err = %v, want ErrAlreadyConfirmed", err)
	}
}

func TestInviteStampsFreshToken(t *testing.T) {
	e := newEnv()
	created, err := e.svc.CreateLead(context.Background(), CreateLeadInput{
		Profile: onboarding.Profile{Name: "Dana"},
		Actor:   Actor{Type: "admin", ID: "ops-1"},
	})
	if err != nil {
		t.Fatalf("create lead: %v", err)
	}

	invited, err := e.svc.Invite(context.Background(), created.ID, Actor{Type: "admin", ID: "ops-1"})
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if invited.Status != onboarding.StatusInvited {
		t.Fatalf("status = %s, want invited", invited.Status)
	}
	if invited.ConfirmationToken == "" || invited.ConfirmationExpiresAt.IsZero() {
		t.Fatalf("token not stamped: %+v", invited)
	}
	if invited.InvitedAt == nil {
		t.Fatalf("invited_at not set")
	}
}

func TestReinviteDeclinedLeadIssuesNewToken(t *testing.T) {
	e := newEnv()
	lead := e.seedLead(onboarding.Profile{Name: "Dana"})
	oldToken := lead.ConfirmationToken
	if err := e.svc.Decline(context.Background(), oldToken, "maybe later"); err != nil {
		t.Fatalf("decline: %v", err)
	}

	invited, err := e.svc.Invite(context.Background(), lead.ID, Actor{Type: "admin", ID: "ops-1"})
	if err != nil {
		t.Fatalf("re-invite: %v", err)
	}
	if invited.Status != onboarding.StatusInvited {
		t.Fatalf("status = %s, want invited", invited.Status)
	}
	if invited.ConfirmationToken == oldToken {
		t.Fatalf("re-invite must issue a new token")
	}
	// The old token is dead.
	if _, err := e.svc.Resolve(context.Background(), oldToken); err != onboarding.ErrInvalidToken {
		t.Fatalf("old token err = %v, want ErrInvalidToken", err)
	}
}

func TestInviteConfirmedLeadFails(t *testing.T) {
	e := newEnv()
	lead := e.seedLead(onboarding.Profile{Name: "Dana"})
	if _, err := e.svc.Confirm(context.Background(), lead.ConfirmationToken, onboarding.Profile{}); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := e.svc.Invite(context.Background(), lead.ID, Actor{Type: "admin"}); err != onboarding.ErrAlreadyConfirmed {
		t.Fatalf("err = %v, want ErrAlreadyConfirmed", err)
	}
}

func TestCreateLeadRequiresName(t *testing.T) {
	e := newEnv()
	if _, err := e.svc.CreateLead(context.Background(), CreateLeadInput{}); err != onboarding.ErrInvalidArgument {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestExpireLeadSweep(t *testing.T) {
	e := newEnv()
	lead := e.seedLead(onboarding.Profile{Name: "Dana"})
	e.svc.Clock = func() time.Time { return e.now.Add(100 * time.Hour) }

	applied, err := e.svc.ExpireLead(context.Background(), lead.ID)
	if err != nil || !applied {
		t.Fatalf("sweep: applied=%v err=%v", applied, err)
	}
	// Sweep of a confirmed or still-valid lead does nothing.
	applied, err = e.svc.ExpireLead(context.Background(), lead.ID)
	if err != nil || applied {
		t.Fatalf("second sweep: applied=%v err=%v", applied, err)
	}
}

func TestAuditFailureDoesNotPropagate(t *testing.T) {
	e := newEnv()
	e.audit.fail = true
	lead := e.seedLead(onboarding.Profile{Name: "Dana"})

	result, err := e.svc.Confirm(context.Background(), lead.ConfirmationToken, onboarding.Profile{})
	if err != nil {
		t.Fatalf("confirm must succeed despite audit failure: %v", err)
	}
	if result.VendorID == "" {
		t.Fatalf("missing vendor id")
	}
}

func TestRemindOpenLead(t *testing.T) {
	e := newEnv()
	lead := e.seedLead(onboarding.Profile{Name: "Dana"})

	if err := e.svc.Remind(context.Background(), lead.ID); err != nil {
		t.Fatalf("remind: %v", err)
	}
}

func TestRemindExpiredLead(t *testing.T) {
	e := newEnv()
	lead := e.seedLead(onboarding.Profile{Name: "Dana"})
	e.svc.Clock = func() time.Time { return e.now.Add(100 * time.Hour) }

	if err := e.svc.Remind(context.Background(), lead.ID); err != onboarding.ErrExpired {
		t.Fatalf("err = %v, want ErrExpired", err)
	}
	got, _ := e.leads.GetByID(context.Background(), lead.ID)
	if got.Status != onboarding.StatusExpired {
		t.Fatalf("status = %s, want expired", got.Status)
	}
}

func TestRemindTerminalLead(t *testing.T) {
	e := newEnv()
	lead := e.seedLead(onboarding.Profile{Name: "Dana"})
	if err := e.svc.Decline(context.Background(), lead.ConfirmationToken, "busy"); err != nil {
		t.Fatalf("decline: %v", err)
	}
	if err := e.svc.Remind(context.Background(), lead.ID); err != onboarding.ErrConflict {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}
