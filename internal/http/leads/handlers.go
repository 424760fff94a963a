// Package leads serves the operator-facing lead pipeline: sourcing
// entries, inviting them, and inspecting their progress.
package leads

import (
	"net/http"
	"strconv"
	"strings"

	domain "talentr/internal/domain/onboarding"
	"talentr/internal/http/common"
	"talentr/internal/usecase"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Service *usecase.ConfirmationService
	Audit   usecase.AuditLog
}

func NewHandler(service *usecase.ConfirmationService, audit usecase.AuditLog) *Handler {
	return &Handler{Service: service, Audit: audit}
}

type listResponse struct {
	Items      []common.LeadResponse `json:"items"`
	NextCursor string                `json:"next_cursor,omitempty"`
}

func (h *Handler) HandleCreateLead(c *gin.Context) {
	principal, ok := common.PrincipalFromContext(c)
	if !ok {
		return
	}
	var req struct {
		Name          string   `json:"name"`
		Category      string   `json:"category"`
		City          string   `json:"city"`
		Phone         string   `json:"phone"`
		WhatsApp      string   `json:"whatsapp"`
		Email         string   `json:"email"`
		PriceFrom     int      `json:"price_from"`
		PortfolioURLs []string `json:"portfolio_urls"`
		Tags          []string `json:"tags"`
		DraftGigID    string   `json:"draft_gig_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	lead, err := h.Service.CreateLead(c.Request.Context(), usecase.CreateLeadInput{
		Profile: domain.Profile{
			Name:          req.Name,
			Category:      req.Category,
			City:          req.City,
			Phone:         req.Phone,
			WhatsApp:      req.WhatsApp,
			Email:         req.Email,
			PriceFrom:     req.PriceFrom,
			PortfolioURLs: req.PortfolioURLs,
			Tags:          req.Tags,
		},
		DraftGigID: req.DraftGigID,
		Actor:      usecase.Actor{Type: "user", ID: principal.Subject},
	})
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"lead": common.ToLeadResponse(lead)})
}

func (h *Handler) HandleGetLead(c *gin.Context) {
	leadID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	lead, err := h.Service.GetLead(c.Request.Context(), leadID)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lead": common.ToLeadResponse(lead)})
}

func (h *Handler) HandleListLeads(c *gin.Context) {
	filter := usecase.LeadListFilter{
		Status:   strings.TrimSpace(c.Query("status")),
		City:     strings.TrimSpace(c.Query("city")),
		Category: strings.TrimSpace(c.Query("category")),
		Cursor:   strings.TrimSpace(c.Query("cursor")),
	}
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil {
			filter.Limit = limit
		}
	}
	leads, next, err := h.Service.ListLeads(c.Request.Context(), filter)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	resp := listResponse{Items: make([]common.LeadResponse, 0, len(leads)), NextCursor: next}
	for _, lead := range leads {
		resp.Items = append(resp.Items, common.ToLeadResponse(lead))
	}
	c.JSON(http.StatusOK, resp)
}

// HandleInvite stamps a fresh confirmation token on the lead and queues
// the outreach message. Re-inviting declined or expired leads is
// allowed; the previous token stops working.
func (h *Handler) HandleInvite(c *gin.Context) {
	principal, ok := common.PrincipalFromContext(c)
	if !ok {
		return
	}
	leadID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	lead, err := h.Service.Invite(c.Request.Context(), leadID, usecase.Actor{Type: "user", ID: principal.Subject})
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lead": common.ToLeadResponse(lead)})
}

// HandleRemind re-sends the invitation without rotating the token. Used
// by the lifecycle worker partway through the confirmation window.
func (h *Handler) HandleRemind(c *gin.Context) {
	leadID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.Service.Remind(c.Request.Context(), leadID); err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

// HandleExpire closes out a lead whose confirmation window has passed.
// A lead that is already terminal or still inside its window reports
// expired=false.
func (h *Handler) HandleExpire(c *gin.Context) {
	leadID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	applied, err := h.Service.ExpireLead(c.Request.Context(), leadID)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"expired": applied})
}

func (h *Handler) HandleLeadActivity(c *gin.Context) {
	leadID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	if h.Audit == nil {
		c.JSON(http.StatusOK, gin.H{"items": []any{}})
		return
	}
	entries, err := h.Audit.ListByTarget(c.Request.Context(), "lead", leadID)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	items := make([]gin.H, 0, len(entries))
	for _, entry := range entries {
		items = append(items, gin.H{
			"id":         entry.ID,
			"actor_type": entry.ActorType,
			"actor_id":   entry.ActorID,
			"action":     string(entry.Action),
			"details":    entry.Details,
			"created_at": entry.CreatedAt.UTC(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
