package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"logimatch/internal/api/middleware"
	"logimatch/internal/api/response"
	"logimatch/internal/model"
	"logimatch/internal/service"
)

type PremiumHandler struct {
	premium         *service.PremiumService
	paymentTestMode bool
}

type applyPremiumRequest struct {
	ListingID   string `json:"listing_id" binding:"required"`
	ListingType string `json:"listing_type" binding:"required"`
	Package     string `json:"package" binding:"required"`
}

type premiumStatusResponse struct {
	Active  bool                       `json:"active"`
	History []model.PremiumApplication `json:"history,omitempty"`
}

func NewPremiumHandler(premium *service.PremiumService, paymentTestMode bool) *PremiumHandler {
	return &PremiumHandler{premium: premium, paymentTestMode: paymentTestMode}
}

func RegisterPremiumRoutes(group *gin.RouterGroup, handler *PremiumHandler, optionalAuth, auth gin.HandlerFunc) {
	if handler == nil || handler.premium == nil {
		return
	}

	premium := group.Group("/premium")
	premium.POST("/applications", auth, handler.Apply)
	premium.GET("/applications/me", auth, handler.MyApplications)
	premium.GET("/:type/:id", optionalAuth, handler.Status)
}

func (h *PremiumHandler) Apply(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	if !h.paymentTestMode {
		response.Fail(c, http.StatusServiceUnavailable, response.ErrPaymentUnavailable, messagePaymentUnavailable)
		return
	}

	var req applyPremiumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidRequest, "invalid request")
		return
	}
	listingType, ok := model.ParseListingType(req.ListingType)
	if !ok {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidListingType, "invalid listing type")
		return
	}

	application, err := h.premium.Apply(
		c.Request.Context(),
		session,
		model.ListingRef{ID: req.ListingID, Type: listingType},
		req.Package,
	)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, application)
}

func (h *PremiumHandler) MyApplications(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	items, err := h.premium.ApplicationsByUser(c.Request.Context(), session.UserID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, items)
}

// Status reports whether a listing is premium. The application history is
// only included for administrators and the listing's owner.
func (h *PremiumHandler) Status(c *gin.Context) {
	ref, ok := listingRefFromParams(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	active, err := h.premium.IsActive(ctx, ref)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	out := premiumStatusResponse{Active: active}

	session := middleware.GetSession(c)
	showHistory := session.IsAdmin()
	if !showHistory && session.Authenticated() {
		showHistory, err = h.premium.IsOwner(ctx, session.UserID, ref)
		if err != nil {
			handleServiceError(c, err)
			return
		}
	}
	if showHistory {
		out.History, err = h.premium.HistoryFor(ctx, ref)
		if err != nil {
			handleServiceError(c, err)
			return
		}
	}
	response.Success(c, out)
}
