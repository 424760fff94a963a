package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"talentr/internal/domain/onboarding"
	"talentr/internal/usecase"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Non-terminal statuses eligible for each conditional transition. The
// WHERE clause is the per-lead mutual exclusion: of two concurrent
// writers, exactly one matches a row.
const (
	viewableStatuses  = "('pending','invited')"
	openStatuses      = "('pending','invited','viewed')"
	reInvitableClause = "status <> 'confirmed'"
)

type LeadRepo struct {
	Pool *pgxpool.Pool
}

func NewLeadRepo(pool *pgxpool.Pool) *LeadRepo {
	return &LeadRepo{Pool: pool}
}

const leadColumns = `id, name, category, city, phone, whatsapp, email, price_from, portfolio_urls, tags,
confirmation_token, confirmation_expires_at, status, converted_vendor_id, decline_reason,
draft_gig_id, outreach_status, invited_at, viewed_at, created_at, updated_at`

func (r *LeadRepo) Create(ctx context.Context, lead onboarding.PendingLead) (onboarding.PendingLead, error) {
	if r == nil || r.Pool == nil {
		return onboarding.PendingLead{}, fmt.Errorf("db not configured")
	}
	status := lead.Status
	if status == "" {
		status = onboarding.StatusPending
	}
	query := `
INSERT INTO pending_leads (name, category, city, phone, whatsapp, email, price_from, portfolio_urls, tags,
	confirmation_token, confirmation_expires_at, status, draft_gig_id, outreach_status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
RETURNING id, created_at, updated_at`
	row := r.Pool.QueryRow(ctx, query,
		lead.Profile.Name,
		lead.Profile.Category,
		lead.Profile.City,
		lead.Profile.Phone,
		lead.Profile.WhatsApp,
		lead.Profile.Email,
		lead.Profile.PriceFrom,
		lead.Profile.PortfolioURLs,
		lead.Profile.Tags,
		nullable(lead.ConfirmationToken),
		nullableTime(lead.ConfirmationExpiresAt),
		string(status),
		nullable(lead.DraftGigID),
		lead.OutreachStatus,
	)
	if err := row.Scan(&lead.ID, &lead.CreatedAt, &lead.UpdatedAt); err != nil {
		return onboarding.PendingLead{}, err
	}
	lead.Status = status
	return lead, nil
}

func (r *LeadRepo) GetByID(ctx context.Context, id string) (onboarding.PendingLead, error) {
	if r == nil || r.Pool == nil {
		return onboarding.PendingLead{}, fmt.Errorf("db not configured")
	}
	query := `SELECT ` + leadColumns + ` FROM pending_leads WHERE id = $1`
	return scanLead(r.Pool.QueryRow(ctx, query, id))
}

func (r *LeadRepo) GetByToken(ctx context.Context, tokenValue string) (onboarding.PendingLead, error) {
	if r == nil || r.Pool == nil {
		return onboarding.PendingLead{}, fmt.Errorf("db not configured")
	}
	query := `SELECT ` + leadColumns + ` FROM pending_leads WHERE confirmation_token = $1`
	return scanLead(r.Pool.QueryRow(ctx, query, tokenValue))
}

func (r *LeadRepo) List(ctx context.Context, filter usecase.LeadListFilter) ([]onboarding.PendingLead, string, error) {
	if r == nil || r.Pool == nil {
		return nil, "", fmt.Errorf("db not configured")
	}
	limit := normalizeLimit(filter.Limit)
	args := []any{}
	where := []string{"true"}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.City != "" {
		args = append(args, filter.City)
		where = append(where, fmt.Sprintf("city = $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.Cursor != "" {
		cursorTime, cursorID, err := decodeCursor(filter.Cursor)
		if err != nil {
			return nil, "", onboarding.ErrInvalidArgument
		}
		args = append(args, cursorTime, cursorID)
		where = append(where, fmt.Sprintf("(created_at, id) < ($%d, $%d)", len(args)-1, len(args)))
	}
	query := fmt.Sprintf(`
SELECT `+leadColumns+`
FROM pending_leads
WHERE %s
ORDER BY created_at DESC, id DESC
LIMIT %d`, strings.Join(where, " AND "), limit+1)
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	leads := make([]onboarding.PendingLead, 0, limit)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, "", err
		}
		leads = append(leads, lead)
	}
	if rows.Err() != nil {
		return nil, "", rows.Err()
	}
	if len(leads) > limit {
		last := leads[limit-1]
		return leads[:limit], encodeCursor(last.CreatedAt, last.ID), nil
	}
	return leads, "", nil
}

func (r *LeadRepo) StampInvite(ctx context.Context, id, tokenValue string, expiresAt, now time.Time) (bool, error) {
	query := `
UPDATE pending_leads
SET confirmation_token = $2, confirmation_expires_at = $3, status = 'invited',
	invited_at = $4, decline_reason = NULL, updated_at = now()
WHERE id = $1 AND ` + reInvitableClause
	return r.exec(ctx, query, id, tokenValue, expiresAt, now)
}

func (r *LeadRepo) MarkViewed(ctx context.Context, id string, now time.Time) (bool, error) {
	query := `
UPDATE pending_leads
SET status = 'viewed', viewed_at = $2, updated_at = now()
WHERE id = $1 AND status IN ` + viewableStatuses
	return r.exec(ctx, query, id, now)
}

func (r *LeadRepo) MarkExpired(ctx context.Context, id string) (bool, error) {
	query := `
UPDATE pending_leads
SET status = 'expired', updated_at = now()
WHERE id = $1 AND status IN ` + openStatuses
	return r.exec(ctx, query, id)
}

func (r *LeadRepo) MarkDeclined(ctx context.Context, id, reason string) (bool, error) {
	query := `
UPDATE pending_leads
SET status = 'declined', decline_reason = $2, updated_at = now()
WHERE id = $1 AND status IN ` + openStatuses
	return r.exec(ctx, query, id, reason)
}

func (r *LeadRepo) MarkConfirmed(ctx context.Context, id, vendorID string) (bool, error) {
	query := `
UPDATE pending_leads
SET status = 'confirmed', converted_vendor_id = $2, updated_at = now()
WHERE id = $1 AND status IN ` + openStatuses
	return r.exec(ctx, query, id, vendorID)
}

func (r *LeadRepo) exec(ctx context.Context, query string, args ...any) (bool, error) {
	if r == nil || r.Pool == nil {
		return false, fmt.Errorf("db not configured")
	}
	tag, err := r.Pool.Exec(ctx, query, args...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func scanLead(row pgx.Row) (onboarding.PendingLead, error) {
	var lead onboarding.PendingLead
	var status string
	var confirmationToken *string
	var expiresAt *time.Time
	var convertedVendorID *string
	var declineReason *string
	var draftGigID *string
	if err := row.Scan(
		&lead.ID,
		&lead.Profile.Name,
		&lead.Profile.Category,
		&lead.Profile.City,
		&lead.Profile.Phone,
		&lead.Profile.WhatsApp,
		&lead.Profile.Email,
		&lead.Profile.PriceFrom,
		&lead.Profile.PortfolioURLs,
		&lead.Profile.Tags,
		&confirmationToken,
		&expiresAt,
		&status,
		&convertedVendorID,
		&declineReason,
		&draftGigID,
		&lead.OutreachStatus,
		&lead.InvitedAt,
		&lead.ViewedAt,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return onboarding.PendingLead{}, onboarding.ErrNotFound
		}
		return onboarding.PendingLead{}, err
	}
	lead.Status = onboarding.LeadStatus(status)
	if confirmationToken != nil {
		lead.ConfirmationToken = *confirmationToken
	}
	if expiresAt != nil {
		lead.ConfirmationExpiresAt = *expiresAt
	}
	if convertedVendorID != nil {
		lead.ConvertedVendorID = *convertedVendorID
	}
	if declineReason != nil {
		lead.DeclineReason = *declineReason
	}
	if draftGigID != nil {
		lead.DraftGigID = *draftGigID
	}
	return lead, nil
}

func nullable(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func nullableTime(value time.Time) *time.Time {
	if value.IsZero() {
		return nil
	}
	return &value
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 200 {
		return 200
	}
	return limit
}

func encodeCursor(createdAt time.Time, id string) string {
	return createdAt.UTC().Format(time.RFC3339Nano) + "|" + id
}

func decodeCursor(cursor string) (time.Time, string, error) {
	parts := strings.SplitN(cursor, "|", 2)
	if len(parts) != 2 {
		return time.Time{}, "", fmt.Errorf("invalid cursor")
	}
	parsed, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return time.Time{}, "", err
	}
	if parts[1] == "" {
		return time.Time{}, "", fmt.Errorf("invalid cursor")
	}
	return parsed, parts[1], nil
}
