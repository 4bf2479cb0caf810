package v1

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"logimatch/internal/api/response"
	"logimatch/internal/model"
	"logimatch/internal/service"
)

type PassHandler struct {
	passes          *service.ViewingPassService
	paymentTestMode bool
}

type purchasePassRequest struct {
	Package string `json:"package" binding:"required"`
}

type extendPassRequest struct {
	Months int `json:"months"`
}

type passResponse struct {
	Pass          *model.ViewingPass `json:"pass"`
	RemainingDays int                `json:"remaining_days"`
	ExpiryWarning bool               `json:"expiry_warning"`
	Expired       bool               `json:"expired"`
}

func NewPassHandler(passes *service.ViewingPassService, paymentTestMode bool) *PassHandler {
	return &PassHandler{passes: passes, paymentTestMode: paymentTestMode}
}

func RegisterPassRoutes(group *gin.RouterGroup, handler *PassHandler, auth gin.HandlerFunc) {
	if handler == nil || handler.passes == nil {
		return
	}

	group.GET("/packages", handler.Packages)

	passes := group.Group("/passes")
	passes.Use(auth)
	passes.GET("/me", handler.Me)
	passes.GET("/me/history", handler.History)
	passes.GET("/me/stats", handler.Stats)
	passes.GET("/me/recent", handler.Recent)
	passes.POST("/purchase", handler.Purchase)
	passes.POST("/:id/extend", handler.Extend)
}

func (h *PassHandler) Packages(c *gin.Context) {
	response.Success(c, gin.H{
		"passes":  service.PassPackages(),
		"premium": service.PremiumPackages(),
		"extension": gin.H{
			"months":              service.DefaultExtensionMonths,
			"price_before_expiry": service.ExtensionPrice(true),
			"price_after_expiry":  service.ExtensionPrice(false),
		},
	})
}

func (h *PassHandler) Me(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	pass, err := h.passes.GetLedger(c.Request.Context(), session.UserID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, h.present(pass))
}

func (h *PassHandler) Purchase(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	if !h.paymentTestMode {
		response.Fail(c, http.StatusServiceUnavailable, response.ErrPaymentUnavailable, messagePaymentUnavailable)
		return
	}

	var req purchasePassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidRequest, "invalid request")
		return
	}

	pass, err := h.passes.Purchase(c.Request.Context(), session.UserID, req.Package)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, h.present(pass))
}

// Extend adds months to a ledger. Users may only extend their own ledger.
func (h *PassHandler) Extend(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	if !h.paymentTestMode {
		response.Fail(c, http.StatusServiceUnavailable, response.ErrPaymentUnavailable, messagePaymentUnavailable)
		return
	}

	req := extendPassRequest{Months: service.DefaultExtensionMonths}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidRequest, "invalid request")
			return
		}
	}

	passID := strings.TrimSpace(c.Param("id"))
	if !session.IsAdmin() {
		own, err := h.passes.GetLedger(c.Request.Context(), session.UserID)
		if err != nil {
			handleServiceError(c, err)
			return
		}
		if own == nil || own.ID != passID {
			handleServiceError(c, service.ErrPassNotFound)
			return
		}
	}

	pass, err := h.passes.Extend(c.Request.Context(), passID, req.Months)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, h.present(pass))
}

func (h *PassHandler) History(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	items, err := h.passes.UsageHistory(c.Request.Context(), session.UserID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, items)
}

func (h *PassHandler) Stats(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	stats, err := h.passes.UsageStatistics(c.Request.Context(), session.UserID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, stats)
}

func (h *PassHandler) Recent(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	limit := parseIntOrDefault(c.Query("limit"), service.DefaultRecentViewedLimit)
	items, err := h.passes.RecentViewed(c.Request.Context(), session.UserID, limit)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, items)
}

func (h *PassHandler) present(pass *model.ViewingPass) passResponse {
	if pass == nil {
		return passResponse{}
	}
	return passResponse{
		Pass:          pass,
		RemainingDays: h.passes.RemainingDays(pass),
		ExpiryWarning: h.passes.ShouldWarnExpiry(pass),
		Expired:       h.passes.IsExpired(pass),
	}
}
