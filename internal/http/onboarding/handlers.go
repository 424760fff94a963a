// Package onboarding serves the public token-addressed routes: the page
// a lead lands on from the invitation link, and the confirm and decline
// actions behind it. Callers hold a capability token; there is no login.
package onboarding

import (
	"net/http"
	"strings"

	domain "talentr/internal/domain/onboarding"
	"talentr/internal/http/common"
	"talentr/internal/usecase"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Confirmations *usecase.ConfirmationService
	Listings      *usecase.ListingService
	PublicBaseURL string
}

func NewHandler(confirmations *usecase.ConfirmationService, listings *usecase.ListingService, publicBaseURL string) *Handler {
	return &Handler{
		Confirmations: confirmations,
		Listings:      listings,
		PublicBaseURL: publicBaseURL,
	}
}

type profileRequest struct {
	Name          string   `json:"name"`
	Category      string   `json:"category"`
	City          string   `json:"city"`
	Phone         string   `json:"phone"`
	WhatsApp      string   `json:"whatsapp"`
	Email         string   `json:"email"`
	PriceFrom     int      `json:"price_from"`
	PortfolioURLs []string `json:"portfolio_urls"`
	Tags          []string `json:"tags"`
}

func (r profileRequest) toProfile() domain.Profile {
	return domain.Profile{
		Name:          r.Name,
		Category:      r.Category,
		City:          r.City,
		Phone:         r.Phone,
		WhatsApp:      r.WhatsApp,
		Email:         r.Email,
		PriceFrom:     r.PriceFrom,
		PortfolioURLs: r.PortfolioURLs,
		Tags:          r.Tags,
	}
}

// HandleResolve returns the prefill view for the invitation page. The
// first resolve of a live token moves the lead to viewed.
func (h *Handler) HandleResolve(c *gin.Context) {
	lead, err := h.Confirmations.Resolve(c.Request.Context(), c.Param("token"))
	if err != nil {
		common.WriteError(c, err)
		return
	}
	resp := gin.H{
		"lead": gin.H{
			"profile":    common.ToProfileResponse(lead.Profile),
			"status":     string(lead.Status),
			"expires_at": lead.ConfirmationExpiresAt.UTC(),
		},
	}
	if lead.DraftGigID != "" {
		if gig, err := h.Listings.GetGig(c.Request.Context(), lead.DraftGigID); err == nil {
			resp["draft_gig"] = common.ToGigResponse(gig)
		}
	}
	c.JSON(http.StatusOK, resp)
}

// HandleConfirm provisions the vendor account. Replays return the same
// vendor and edit token with 200. A draft gig that fails to link does
// not fail the confirmation; the response carries a warning instead.
func (h *Handler) HandleConfirm(c *gin.Context) {
	var req struct {
		profileRequest
		GigID string `json:"gig_id"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			common.WriteErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
			return
		}
	}
	result, err := h.Confirmations.Confirm(c.Request.Context(), c.Param("token"), req.toProfile())
	if err != nil {
		common.WriteError(c, err)
		return
	}

	payload := gin.H{
		"vendor_id":  result.VendorID,
		"edit_token": result.EditToken,
		"dashboard":  h.dashboardLink(result.EditToken),
		"created":    result.Created,
	}
	// The wizard may carry the draft gig id through the client; the one
	// stored on the lead wins when both are present.
	gigID := result.DraftGigID
	if gigID == "" {
		gigID = strings.TrimSpace(req.GigID)
	}
	if gigID != "" {
		actor := usecase.Actor{Type: "lead", ID: result.LeadID}
		if err := h.Listings.LinkGig(c.Request.Context(), gigID, result.VendorID, actor); err != nil {
			payload["link_warning"] = "draft gig could not be linked; it stays editable from the dashboard"
		} else {
			payload["gig_id"] = gigID
		}
	}
	c.JSON(http.StatusOK, payload)
}

func (h *Handler) HandleDecline(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			common.WriteErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
			return
		}
	}
	if err := h.Confirmations.Decline(c.Request.Context(), c.Param("token"), strings.TrimSpace(req.Reason)); err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "declined"})
}

func (h *Handler) dashboardLink(editToken string) string {
	base := strings.TrimRight(h.PublicBaseURL, "/")
	return base + "/vendor/edit/" + editToken
}
