package common

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"talentr/internal/domain/onboarding"
	"talentr/internal/http/auth"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	principalKey = "principal"
	requestIDKey = "request_id"
)

type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type ProfileResponse struct {
	Name          string   `json:"name"`
	Category      string   `json:"category,omitempty"`
	City          string   `json:"city,omitempty"`
	Phone         string   `json:"phone,omitempty"`
	WhatsApp      string   `json:"whatsapp,omitempty"`
	Email         string   `json:"email,omitempty"`
	PriceFrom     int      `json:"price_from,omitempty"`
	PortfolioURLs []string `json:"portfolio_urls,omitempty"`
	Tags          []string `json:"tags,omitempty"`
}

type LeadResponse struct {
	ID                string          `json:"id"`
	Profile           ProfileResponse `json:"profile"`
	Status            string          `json:"status"`
	OutreachStatus    string          `json:"outreach_status,omitempty"`
	ConvertedVendorID string          `json:"converted_vendor_id,omitempty"`
	DeclineReason     string          `json:"decline_reason,omitempty"`
	DraftGigID        string          `json:"draft_gig_id,omitempty"`
	ExpiresAt         *string         `json:"expires_at,omitempty"`
	InvitedAt         *string         `json:"invited_at,omitempty"`
	ViewedAt          *string         `json:"viewed_at,omitempty"`
	CreatedAt         string          `json:"created_at"`
}

type VendorResponse struct {
	ID         string          `json:"id"`
	Profile    ProfileResponse `json:"profile"`
	IsActive   bool            `json:"is_active"`
	IsVerified bool            `json:"is_verified"`
	CreatedAt  string          `json:"created_at"`
}

type GigResponse struct {
	ID              string `json:"id"`
	VendorID        string `json:"vendor_id,omitempty"`
	Title           string `json:"title"`
	Description     string `json:"description,omitempty"`
	PriceFrom       int    `json:"price_from,omitempty"`
	Status          string `json:"status"`
	WizardCompleted bool   `json:"wizard_completed"`
	CreatedAt       string `json:"created_at"`
}

type Authenticator interface {
	Authenticate(*gin.Context) (onboarding.Principal, error)
}

func AuthMiddleware(authenticator Authenticator, authorizer onboarding.Authorizer, permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authenticator == nil || authorizer == nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Code: "INTERNAL", Message: "auth misconfigured"})
			return
		}
		principal, err := authenticator.Authenticate(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Code: "UNAUTHORIZED", Message: "authentication failed"})
			return
		}
		if err := authorizer.Require(principal, permission); err != nil {
			if authz, ok := auth.IsAuthzError(err); ok {
				c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Code: authz.Code, Message: "forbidden"})
				return
			}
			WriteError(c, err)
			c.Abort()
			return
		}
		c.Set(principalKey, principal)
		if requestID := strings.TrimSpace(c.GetHeader("X-Request-ID")); requestID != "" {
			c.Set(requestIDKey, requestID)
		}
		c.Next()
	}
}

func PrincipalFromContext(c *gin.Context) (onboarding.Principal, bool) {
	value, ok := c.Get(principalKey)
	if !ok {
		WriteErrorCode(c, http.StatusInternalServerError, "INTERNAL", "principal missing")
		return onboarding.Principal{}, false
	}
	principal, ok := value.(onboarding.Principal)
	if !ok {
		WriteErrorCode(c, http.StatusInternalServerError, "INTERNAL", "principal invalid")
		return onboarding.Principal{}, false
	}
	return principal, true
}

func RequestID(c *gin.Context) string {
	if value, ok := c.Get(requestIDKey); ok {
		if requestID, ok := value.(string); ok {
			return strings.TrimSpace(requestID)
		}
	}
	return strings.TrimSpace(c.GetHeader("X-Request-ID"))
}

func ParseUUIDParam(c *gin.Context, name string) (string, bool) {
	value := strings.TrimSpace(c.Param(name))
	if value == "" {
		WriteErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", name+" is required")
		return "", false
	}
	if _, err := uuid.Parse(value); err != nil {
		WriteErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", name+" must be a UUID")
		return "", false
	}
	return value, true
}

func ToProfileResponse(profile onboarding.Profile) ProfileResponse {
	return ProfileResponse{
		Name:          profile.Name,
		Category:      profile.Category,
		City:          profile.City,
		Phone:         profile.Phone,
		WhatsApp:      profile.WhatsApp,
		Email:         profile.Email,
		PriceFrom:     profile.PriceFrom,
		PortfolioURLs: profile.PortfolioURLs,
		Tags:          profile.Tags,
	}
}

func ToLeadResponse(lead onboarding.PendingLead) LeadResponse {
	resp := LeadResponse{
		ID:                lead.ID,
		Profile:           ToProfileResponse(lead.Profile),
		Status:            string(lead.Status),
		OutreachStatus:    lead.OutreachStatus,
		ConvertedVendorID: lead.ConvertedVendorID,
		DeclineReason:     lead.DeclineReason,
		DraftGigID:        lead.DraftGigID,
		CreatedAt:         lead.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if !lead.ConfirmationExpiresAt.IsZero() {
		formatted := lead.ConfirmationExpiresAt.UTC().Format(time.RFC3339Nano)
		resp.ExpiresAt = &formatted
	}
	if lead.InvitedAt != nil {
		formatted := lead.InvitedAt.UTC().Format(time.RFC3339Nano)
		resp.InvitedAt = &formatted
	}
	if lead.ViewedAt != nil {
		formatted := lead.ViewedAt.UTC().Format(time.RFC3339Nano)
		resp.ViewedAt = &formatted
	}
	return resp
}

func ToVendorResponse(vendor onboarding.Vendor) VendorResponse {
	return VendorResponse{
		ID:         vendor.ID,
		Profile:    ToProfileResponse(vendor.Profile),
		IsActive:   vendor.IsActive,
		IsVerified: vendor.IsVerified,
		CreatedAt:  vendor.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func ToGigResponse(gig onboarding.Gig) GigResponse {
	return GigResponse{
		ID:              gig.ID,
		VendorID:        gig.VendorID,
		Title:           gig.Title,
		Description:     gig.Description,
		PriceFrom:       gig.PriceFrom,
		Status:          string(gig.Status),
		WizardCompleted: gig.WizardCompleted,
		CreatedAt:       gig.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func WriteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, onboarding.ErrInvalidToken):
		WriteErrorCode(c, http.StatusNotFound, "INVALID_TOKEN", "unknown or revoked token")
	case errors.Is(err, onboarding.ErrExpired):
		WriteErrorCode(c, http.StatusGone, "EXPIRED", "confirmation window has passed")
	case errors.Is(err, onboarding.ErrAlreadyConfirmed):
		WriteErrorCode(c, http.StatusConflict, "ALREADY_CONFIRMED", "lead already confirmed")
	case errors.Is(err, onboarding.ErrAlreadyDeclined):
		WriteErrorCode(c, http.StatusConflict, "ALREADY_DECLINED", "lead already declined")
	case errors.Is(err, onboarding.ErrUnauthorized):
		WriteErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
	case errors.Is(err, onboarding.ErrForbidden):
		WriteErrorCode(c, http.StatusForbidden, "FORBIDDEN", "forbidden")
	case errors.Is(err, onboarding.ErrNotFound):
		WriteErrorCode(c, http.StatusNotFound, "NOT_FOUND", "not found")
	case errors.Is(err, onboarding.ErrConflict):
		WriteErrorCode(c, http.StatusConflict, "CONFLICT", "conflict")
	case errors.Is(err, onboarding.ErrInvalidArgument):
		WriteErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid argument")
	case errors.Is(err, onboarding.ErrUnavailable):
		WriteErrorCode(c, http.StatusServiceUnavailable, "UNAVAILABLE", "temporarily unavailable")
	default:
		WriteErrorCode(c, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}

func WriteErrorCode(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Code: code, Message: message})
}
