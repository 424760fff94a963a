package usecase

import (
	"context"
	"strings"
	"time"

	"talentr/internal/domain/onboarding"
)

// VendorService serves the edit-token surface: the non-expiring
// credential handed out at confirmation lets a vendor read and update
// its own profile without an account.
type VendorService struct {
	Vendors VendorRepository
	Audit   *AuditEmitter
	Clock   func() time.Time
}

func NewVendorService(vendors VendorRepository, audit *AuditEmitter) *VendorService {
	return &VendorService{
		Vendors: vendors,
		Audit:   audit,
		Clock:   time.Now,
	}
}

func (s *VendorService) GetByEditToken(ctx context.Context, editToken string) (onboarding.Vendor, error) {
	editToken = strings.TrimSpace(editToken)
	if editToken == "" {
		return onboarding.Vendor{}, onboarding.ErrInvalidToken
	}
	vendor, err := s.Vendors.GetByEditToken(ctx, editToken)
	if err == onboarding.ErrNotFound {
		return onboarding.Vendor{}, onboarding.ErrInvalidToken
	}
	if err != nil {
		return onboarding.Vendor{}, err
	}
	if vendor.IsArchived {
		return onboarding.Vendor{}, onboarding.ErrInvalidToken
	}
	return vendor, nil
}

// UpdateByEditToken merges the submitted fields over the stored profile.
// Absent fields keep their stored value.
func (s *VendorService) UpdateByEditToken(ctx context.Context, editToken string, overrides onboarding.Profile) (onboarding.Vendor, error) {
	vendor, err := s.GetByEditToken(ctx, editToken)
	if err != nil {
		return onboarding.Vendor{}, err
	}
	updated, err := s.Vendors.UpdateProfile(ctx, vendor.ID, vendor.Profile.Merge(overrides))
	if err != nil {
		return onboarding.Vendor{}, err
	}
	s.Audit.Emit(ctx, onboarding.AuditEntry{
		ActorType:  "vendor",
		ActorID:    vendor.ID,
		Action:     onboarding.AuditVendorUpdated,
		TargetType: "vendor",
		TargetID:   vendor.ID,
	})
	return updated, nil
}
