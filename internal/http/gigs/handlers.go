package gigs

import (
	"net/http"

	"talentr/internal/http/common"
	"talentr/internal/usecase"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Service *usecase.ListingService
}

func NewHandler(service *usecase.ListingService) *Handler {
	return &Handler{Service: service}
}

// HandleCreateGig records a draft listing from the wizard. A gig
// created before its vendor exists starts in draft_profile_missing and
// is linked when the invite is confirmed.
func (h *Handler) HandleCreateGig(c *gin.Context) {
	principal, ok := common.PrincipalFromContext(c)
	if !ok {
		return
	}
	var req struct {
		Title          string `json:"title"`
		Description    string `json:"description"`
		PriceFrom      int    `json:"price_from"`
		VendorID       string `json:"vendor_id"`
		InviteTokenRef string `json:"invite_token_ref"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	gig, err := h.Service.CreateDraftGig(c.Request.Context(), usecase.CreateGigInput{
		Title:          req.Title,
		Description:    req.Description,
		PriceFrom:      req.PriceFrom,
		VendorID:       req.VendorID,
		InviteTokenRef: req.InviteTokenRef,
		Actor:          usecase.Actor{Type: "user", ID: principal.Subject},
	})
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"gig": common.ToGigResponse(gig)})
}

func (h *Handler) HandleGetGig(c *gin.Context) {
	gigID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	gig, err := h.Service.GetGig(c.Request.Context(), gigID)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"gig": common.ToGigResponse(gig)})
}
