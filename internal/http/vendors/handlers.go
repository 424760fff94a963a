// Package vendors serves the edit-token surface. The token in the URL
// is the credential; routes here carry no principal headers.
package vendors

import (
	"net/http"

	domain "talentr/internal/domain/onboarding"
	"talentr/internal/http/common"
	"talentr/internal/usecase"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Service *usecase.VendorService
}

func NewHandler(service *usecase.VendorService) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) HandleGet(c *gin.Context) {
	vendor, err := h.Service.GetByEditToken(c.Request.Context(), c.Param("editToken"))
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vendor": common.ToVendorResponse(vendor)})
}

func (h *Handler) HandleUpdate(c *gin.Context) {
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
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	vendor, err := h.Service.UpdateByEditToken(c.Request.Context(), c.Param("editToken"), domain.Profile{
		Name:          req.Name,
		Category:      req.Category,
		City:          req.City,
		Phone:         req.Phone,
		WhatsApp:      req.WhatsApp,
		Email:         req.Email,
		PriceFrom:     req.PriceFrom,
		PortfolioURLs: req.PortfolioURLs,
		Tags:          req.Tags,
	})
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vendor": common.ToVendorResponse(vendor)})
}
