package api

import (
	"crypto/rsa"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"logimatch/internal/api/middleware"
	v1 "logimatch/internal/api/v1"
	"logimatch/internal/service"
	"logimatch/internal/sse"
)

type Deps struct {
	PublicKey       *rsa.PublicKey
	Passes          *service.ViewingPassService
	Catalog         *service.ListingCatalog
	Ranking         *service.RankingService
	Premium         *service.PremiumService
	Reveal          *service.RevealPolicy
	Notifications   *service.NotificationService
	Favorites       *service.FavoriteService
	SSEHub          *sse.Hub
	RevealLimiter   *middleware.RateLimiter
	PaymentTestMode bool
	PageSize        int
	Logger          *zap.Logger
}

// RegisterV1Routes mounts the public API under /api/v1.
func RegisterV1Routes(router gin.IRouter, deps Deps) *gin.RouterGroup {
	auth := middleware.JWTAuth(deps.PublicKey)
	optionalAuth := middleware.OptionalAuth(deps.PublicKey)

	apiV1 := router.Group("/api/v1")
	v1.RegisterPassRoutes(apiV1, v1.NewPassHandler(deps.Passes, deps.PaymentTestMode), auth)
	v1.RegisterListingRoutes(apiV1, v1.NewListingHandler(v1.ListingDeps{
		Catalog:  deps.Catalog,
		Ranking:  deps.Ranking,
		Premium:  deps.Premium,
		Reveal:   deps.Reveal,
		Passes:   deps.Passes,
		PageSize: deps.PageSize,
		Logger:   deps.Logger,
	}), optionalAuth, auth, middleware.RateLimitPerUser(deps.RevealLimiter))
	v1.RegisterPremiumRoutes(apiV1, v1.NewPremiumHandler(deps.Premium, deps.PaymentTestMode), optionalAuth, auth)
	v1.RegisterFavoriteRoutes(apiV1, v1.NewFavoriteHandler(deps.Favorites, deps.Catalog, deps.Passes, deps.Logger), auth)
	v1.RegisterNotificationRoutes(apiV1, v1.NewNotificationHandler(deps.Notifications), auth)
	v1.RegisterSSERoutes(apiV1, v1.NewSSEHandler(deps.SSEHub, deps.PublicKey))
	return apiV1
}
