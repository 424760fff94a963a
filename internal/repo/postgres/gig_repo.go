package postgres

import (
	"context"
	"fmt"

	"talentr/internal/domain/onboarding"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type GigRepo struct {
	Pool *pgxpool.Pool
}

func NewGigRepo(pool *pgxpool.Pool) *GigRepo {
	return &GigRepo{Pool: pool}
}

const gigColumns = `id, vendor_id, title, description, price_from, status, wizard_completed, invite_token_ref, created_at, updated_at`

func (r *GigRepo) Create(ctx context.Context, gig onboarding.Gig) (onboarding.Gig, error) {
	if r == nil || r.Pool == nil {
		return onboarding.Gig{}, fmt.Errorf("db not configured")
	}
	query := `
INSERT INTO gigs (vendor_id, title, description, price_from, status, wizard_completed, invite_token_ref)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, created_at, updated_at`
	row := r.Pool.QueryRow(ctx, query,
		nullable(gig.VendorID),
		gig.Title,
		gig.Description,
		gig.PriceFrom,
		string(gig.Status),
		gig.WizardCompleted,
		nullable(gig.InviteTokenRef),
	)
	if err := row.Scan(&gig.ID, &gig.CreatedAt, &gig.UpdatedAt); err != nil {
		return onboarding.Gig{}, err
	}
	return gig, nil
}

func (r *GigRepo) GetByID(ctx context.Context, id string) (onboarding.Gig, error) {
	if r == nil || r.Pool == nil {
		return onboarding.Gig{}, fmt.Errorf("db not configured")
	}
	query := `SELECT ` + gigColumns + ` FROM gigs WHERE id = $1`
	return scanGig(r.Pool.QueryRow(ctx, query, id))
}

// LinkVendor attaches a vendor to a draft gig and promotes it for
// review. Gigs past draft never move.
func (r *GigRepo) LinkVendor(ctx context.Context, gigID, vendorID string) (bool, error) {
	if r == nil || r.Pool == nil {
		return false, fmt.Errorf("db not configured")
	}
	query := `
UPDATE gigs
SET vendor_id = $2, status = 'pending_review', wizard_completed = true, updated_at = now()
WHERE id = $1 AND status IN ('draft','draft_profile_missing')`
	tag, err := r.Pool.Exec(ctx, query, gigID, vendorID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func scanGig(row pgx.Row) (onboarding.Gig, error) {
	var gig onboarding.Gig
	var status string
	var vendorID *string
	var tokenRef *string
	if err := row.Scan(
		&gig.ID,
		&vendorID,
		&gig.Title,
		&gig.Description,
		&gig.PriceFrom,
		&status,
		&gig.WizardCompleted,
		&tokenRef,
		&gig.CreatedAt,
		&gig.UpdatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return onboarding.Gig{}, onboarding.ErrNotFound
		}
		return onboarding.Gig{}, err
	}
	gig.Status = onboarding.GigStatus(status)
	if vendorID != nil {
		gig.VendorID = *vendorID
	}
	if tokenRef != nil {
		gig.InviteTokenRef = *tokenRef
	}
	return gig, nil
}
