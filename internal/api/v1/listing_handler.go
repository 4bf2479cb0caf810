package v1

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"logimatch/internal/api/middleware"
	"logimatch/internal/api/response"
	"logimatch/internal/model"
	"logimatch/internal/service"
)

type ListingHandler struct {
	catalog  *service.ListingCatalog
	ranking  *service.RankingService
	premium  *service.PremiumService
	reveal   *service.RevealPolicy
	passes   *service.ViewingPassService
	pageSize int
	logger   *zap.Logger
}

type ListingDeps struct {
	Catalog  *service.ListingCatalog
	Ranking  *service.RankingService
	Premium  *service.PremiumService
	Reveal   *service.RevealPolicy
	Passes   *service.ViewingPassService
	PageSize int
	Logger   *zap.Logger
}

type rankedListingsResponse struct {
	Premium    []service.ListingView `json:"premium"`
	Regular    []service.ListingView `json:"regular"`
	TotalPages int                   `json:"total_pages"`
}

type revealResponse struct {
	Result  service.RevealResult `json:"result"`
	Listing *service.ListingView `json:"listing,omitempty"`
}

func NewListingHandler(deps ListingDeps) *ListingHandler {
	if deps.PageSize <= 0 {
		deps.PageSize = service.DefaultPageSize
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	return &ListingHandler{
		catalog:  deps.Catalog,
		ranking:  deps.Ranking,
		premium:  deps.Premium,
		reveal:   deps.Reveal,
		passes:   deps.Passes,
		pageSize: deps.PageSize,
		logger:   deps.Logger,
	}
}

func RegisterListingRoutes(
	group *gin.RouterGroup,
	handler *ListingHandler,
	optionalAuth gin.HandlerFunc,
	auth gin.HandlerFunc,
	revealLimit gin.HandlerFunc,
) {
	if handler == nil || handler.catalog == nil {
		return
	}

	listings := group.Group("/listings")
	listings.Use(optionalAuth)
	listings.GET("/compare", handler.Compare)
	listings.GET("/:type", handler.List)
	listings.GET("/:type/:id", handler.Detail)
	listings.GET("/:type/:id/access", handler.Access)
	listings.POST("/:type/:id/reveal", auth, revealLimit, handler.Reveal)
}

// List filters, ranks and masks one page of approved listings.
func (h *ListingHandler) List(c *gin.Context) {
	listingType, ok := model.ParseListingType(c.Param("type"))
	if !ok {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidListingType, "invalid listing type")
		return
	}

	ctx := c.Request.Context()
	listings, err := h.catalog.List(ctx, listingType)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	filtered := service.FilterListings(listings, searchFilterFromQuery(c))
	page := parseIntOrDefault(c.Query("page"), 1)
	pageSize := parseIntOrDefault(c.Query("page_size"), h.pageSize)

	ranked, err := h.ranking.RankPage(ctx, filtered, listingType, page, pageSize)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	session := middleware.GetSession(c)
	pass := h.ledgerFor(ctx, session)
	response.Paginated(c, rankedListingsResponse{
		Premium:    service.PresentListings(ranked.Premium, listingType, session, pass),
		Regular:    service.PresentListings(ranked.Regular, listingType, session, pass),
		TotalPages: ranked.TotalPages,
	}, ranked.Page, ranked.PageSize, int64(ranked.Total))
}

func (h *ListingHandler) Detail(c *gin.Context) {
	ref, ok := listingRefFromParams(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	listing, err := h.catalog.Find(ctx, ref)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if h.premium != nil {
		active, err := h.premium.IsActive(ctx, ref)
		if err != nil {
			handleServiceError(c, err)
			return
		}
		listing.IsPremium = active
	}

	session := middleware.GetSession(c)
	response.Success(c, service.PresentListing(*listing, ref.Type, session, h.ledgerFor(ctx, session)))
}

func (h *ListingHandler) Access(c *gin.Context) {
	ref, ok := listingRefFromParams(c)
	if !ok {
		return
	}

	decision, err := h.reveal.CheckAccess(c.Request.Context(), middleware.GetSession(c), ref)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, decision)
}

// Reveal spends one view after the user confirmed. The listing is returned
// unmasked only when the reveal succeeded.
func (h *ListingHandler) Reveal(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	ref, ok := listingRefFromParams(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	listing, err := h.catalog.Find(ctx, ref)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	result, err := h.reveal.ConfirmReveal(ctx, session, *listing, ref.Type)
	if err != nil {
		h.logger.Warn("confirm reveal failed",
			zap.String("user_id", session.UserID),
			zap.String("listing_id", ref.ID),
			zap.String("listing_type", string(ref.Type)),
			zap.Error(err),
		)
		handleServiceError(c, err)
		return
	}

	out := revealResponse{Result: result}
	if result.Success {
		view := service.PresentListing(*listing, ref.Type, session, h.ledgerFor(ctx, session))
		out.Listing = &view
	}
	response.Success(c, out)
}

func (h *ListingHandler) Compare(c *gin.Context) {
	a, okA := parseListingRef(c.Query("a"))
	b, okB := parseListingRef(c.Query("b"))
	if !okA || !okB {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidRequest, "a and b must be type:id")
		return
	}

	allowed, err := h.passes.CanCompare(c.Request.Context(), middleware.GetSession(c), a, b)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"allowed": allowed})
}

// ledgerFor loads the caller's ledger for masking decisions. A lookup failure
// degrades to masked output.
func (h *ListingHandler) ledgerFor(ctx context.Context, session *model.Session) *model.ViewingPass {
	if !session.Authenticated() || session.IsAdmin() || h.passes == nil {
		return nil
	}

	pass, err := h.passes.GetLedger(ctx, session.UserID)
	if err != nil {
		h.logger.Warn("load viewing pass for masking failed",
			zap.String("user_id", session.UserID),
			zap.Error(err),
		)
		return nil
	}
	return pass
}

// searchFilterFromQuery reads q, region, product, storage and the area and
// pallet filters. A bucket (area=100-500) wins over min_/max_ bounds;
// malformed values are ignored.
func searchFilterFromQuery(c *gin.Context) service.SearchFilter {
	return service.SearchFilter{
		Keyword:      c.Query("q"),
		Regions:      listFromQuery(c, "region"),
		ProductTypes: listFromQuery(c, "product"),
		StorageTypes: listFromQuery(c, "storage"),
		Area:         rangeFromQuery(c, "area"),
		Pallets:      rangeFromQuery(c, "pallets"),
	}
}

func listFromQuery(c *gin.Context, key string) []string {
	var values []string
	for _, raw := range c.QueryArray(key) {
		for _, value := range strings.Split(raw, ",") {
			if value = strings.TrimSpace(value); value != "" {
				values = append(values, value)
			}
		}
	}
	return values
}

func rangeFromQuery(c *gin.Context, key string) service.Range {
	if bucket, ok := service.ParseRangeBucket(c.Query(key)); ok {
		return bucket
	}

	var r service.Range
	if value, err := strconv.ParseFloat(strings.TrimSpace(c.Query("min_"+key)), 64); err == nil {
		r.Min = &value
	}
	if value, err := strconv.ParseFloat(strings.TrimSpace(c.Query("max_"+key)), 64); err == nil {
		r.Max = &value
	}
	return r
}
