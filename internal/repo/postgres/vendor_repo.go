package postgres

import (
	"context"
	"fmt"

	"talentr/internal/domain/onboarding"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type VendorRepo struct {
	Pool *pgxpool.Pool
}

func NewVendorRepo(pool *pgxpool.Pool) *VendorRepo {
	return &VendorRepo{Pool: pool}
}

const vendorColumns = `id, name, category, city, phone, whatsapp, email, price_from, portfolio_urls, tags,
edit_token, user_id, lead_id, is_active, is_verified, is_archived, created_at, updated_at`

// Create inserts a vendor keyed by its source lead. A second insert for
// the same lead returns the existing row with created=false, which is
// how two concurrent confirmations converge on one vendor.
func (r *VendorRepo) Create(ctx context.Context, vendor onboarding.Vendor) (onboarding.Vendor, bool, error) {
	if r == nil || r.Pool == nil {
		return onboarding.Vendor{}, false, fmt.Errorf("db not configured")
	}
	query := `
INSERT INTO vendors (name, category, city, phone, whatsapp, email, price_from, portfolio_urls, tags,
	edit_token, user_id, lead_id, is_active, is_verified, is_archived)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
ON CONFLICT (lead_id) WHERE lead_id IS NOT NULL DO NOTHING
RETURNING id, created_at, updated_at`
	row := r.Pool.QueryRow(ctx, query,
		vendor.Profile.Name,
		vendor.Profile.Category,
		vendor.Profile.City,
		vendor.Profile.Phone,
		vendor.Profile.WhatsApp,
		vendor.Profile.Email,
		vendor.Profile.PriceFrom,
		vendor.Profile.PortfolioURLs,
		vendor.Profile.Tags,
		vendor.EditToken,
		nullable(vendor.UserID),
		nullable(vendor.LeadID),
		vendor.IsActive,
		vendor.IsVerified,
		vendor.IsArchived,
	)
	err := row.Scan(&vendor.ID, &vendor.CreatedAt, &vendor.UpdatedAt)
	if err == pgx.ErrNoRows {
		existing, err := r.GetByLeadID(ctx, vendor.LeadID)
		return existing, false, err
	}
	if err != nil {
		return onboarding.Vendor{}, false, err
	}
	return vendor, true, nil
}

func (r *VendorRepo) GetByID(ctx context.Context, id string) (onboarding.Vendor, error) {
	if r == nil || r.Pool == nil {
		return onboarding.Vendor{}, fmt.Errorf("db not configured")
	}
	query := `SELECT ` + vendorColumns + ` FROM vendors WHERE id = $1`
	return scanVendor(r.Pool.QueryRow(ctx, query, id))
}

func (r *VendorRepo) GetByLeadID(ctx context.Context, leadID string) (onboarding.Vendor, error) {
	if r == nil || r.Pool == nil {
		return onboarding.Vendor{}, fmt.Errorf("db not configured")
	}
	query := `SELECT ` + vendorColumns + ` FROM vendors WHERE lead_id = $1`
	return scanVendor(r.Pool.QueryRow(ctx, query, leadID))
}

func (r *VendorRepo) GetByEditToken(ctx context.Context, editToken string) (onboarding.Vendor, error) {
	if r == nil || r.Pool == nil {
		return onboarding.Vendor{}, fmt.Errorf("db not configured")
	}
	query := `SELECT ` + vendorColumns + ` FROM vendors WHERE edit_token = $1`
	return scanVendor(r.Pool.QueryRow(ctx, query, editToken))
}

func (r *VendorRepo) UpdateProfile(ctx context.Context, id string, profile onboarding.Profile) (onboarding.Vendor, error) {
	if r == nil || r.Pool == nil {
		return onboarding.Vendor{}, fmt.Errorf("db not configured")
	}
	query := `
UPDATE vendors
SET name = $2, category = $3, city = $4, phone = $5, whatsapp = $6, email = $7,
	price_from = $8, portfolio_urls = $9, tags = $10, updated_at = now()
WHERE id = $1
RETURNING ` + vendorColumns
	row := r.Pool.QueryRow(ctx, query, id,
		profile.Name,
		profile.Category,
		profile.City,
		profile.Phone,
		profile.WhatsApp,
		profile.Email,
		profile.PriceFrom,
		profile.PortfolioURLs,
		profile.Tags,
	)
	return scanVendor(row)
}

func scanVendor(row pgx.Row) (onboarding.Vendor, error) {
	var vendor onboarding.Vendor
	var userID *string
	var leadID *string
	if err := row.Scan(
		&vendor.ID,
		&vendor.Profile.Name,
		&vendor.Profile.Category,
		&vendor.Profile.City,
		&vendor.Profile.Phone,
		&vendor.Profile.WhatsApp,
		&vendor.Profile.Email,
		&vendor.Profile.PriceFrom,
		&vendor.Profile.PortfolioURLs,
		&vendor.Profile.Tags,
		&vendor.EditToken,
		&userID,
		&leadID,
		&vendor.IsActive,
		&vendor.IsVerified,
		&vendor.IsArchived,
		&vendor.CreatedAt,
		&vendor.UpdatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return onboarding.Vendor{}, onboarding.ErrNotFound
		}
		return onboarding.Vendor{}, err
	}
	if userID != nil {
		vendor.UserID = *userID
	}
	if leadID != nil {
		vendor.LeadID = *leadID
	}
	return vendor, nil
}
