package v1

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"logimatch/internal/api/response"
	"logimatch/internal/model"
	"logimatch/internal/service"
)

type FavoriteHandler struct {
	favorites *service.FavoriteService
	catalog   *service.ListingCatalog
	passes    *service.ViewingPassService
	logger    *zap.Logger
}

type favoriteItemResponse struct {
	Favorite model.Favorite       `json:"favorite"`
	Listing  *service.ListingView `json:"listing,omitempty"`
}

type favoriteStateResponse struct {
	Favorite bool `json:"favorite"`
}

func NewFavoriteHandler(
	favorites *service.FavoriteService,
	catalog *service.ListingCatalog,
	passes *service.ViewingPassService,
	logger *zap.Logger,
) *FavoriteHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FavoriteHandler{favorites: favorites, catalog: catalog, passes: passes, logger: logger}
}

func RegisterFavoriteRoutes(group *gin.RouterGroup, handler *FavoriteHandler, auth gin.HandlerFunc) {
	if handler == nil || handler.favorites == nil {
		return
	}

	favorites := group.Group("/favorites")
	favorites.Use(auth)
	favorites.GET("", handler.List)
	favorites.GET("/:type/:id", handler.State)
	favorites.POST("/:type/:id", handler.Toggle)
}

// List returns the caller's favorites with each listing masked the same way
// search results are. Listings that are no longer approved come back without
// a listing body so the bookmark can still be removed.
func (h *FavoriteHandler) List(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	favorites, err := h.favorites.List(ctx, session.UserID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	var pass *model.ViewingPass
	if h.passes != nil && !session.IsAdmin() {
		if pass, err = h.passes.GetLedger(ctx, session.UserID); err != nil {
			h.logger.Warn("load viewing pass for masking failed",
				zap.String("user_id", session.UserID),
				zap.Error(err),
			)
			pass = nil
		}
	}

	items := make([]favoriteItemResponse, 0, len(favorites))
	for _, favorite := range favorites {
		item := favoriteItemResponse{Favorite: favorite}
		listing, err := h.catalog.Find(ctx, favorite.Ref())
		switch {
		case errors.Is(err, service.ErrListingNotFound):
		case err != nil:
			handleServiceError(c, err)
			return
		default:
			view := service.PresentListing(*listing, favorite.ItemType, session, pass)
			item.Listing = &view
		}
		items = append(items, item)
	}
	response.Success(c, items)
}

func (h *FavoriteHandler) State(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	ref, ok := listingRefFromParams(c)
	if !ok {
		return
	}

	favorite, err := h.favorites.IsFavorite(c.Request.Context(), session.UserID, ref)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, favoriteStateResponse{Favorite: favorite})
}

func (h *FavoriteHandler) Toggle(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	ref, ok := listingRefFromParams(c)
	if !ok {
		return
	}

	favorite, err := h.favorites.Toggle(c.Request.Context(), session.UserID, ref)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, favoriteStateResponse{Favorite: favorite})
}
