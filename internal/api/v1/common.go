package v1

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"logimatch/internal/api/middleware"
	"logimatch/internal/api/response"
	"logimatch/internal/model"
	"logimatch/internal/service"
)

const messagePaymentUnavailable = "payment gateway not configured"

func parseIntOrDefault(raw string, def int) int {
	if strings.TrimSpace(raw) == "" {
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return def
	}
	return value
}

func requireSession(c *gin.Context) (*model.Session, bool) {
	session := middleware.GetSession(c)
	if session == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return nil, false
	}
	return session, true
}

func listingRefFromParams(c *gin.Context) (model.ListingRef, bool) {
	listingType, ok := model.ParseListingType(c.Param("type"))
	if !ok {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidListingType, "invalid listing type")
		return model.ListingRef{}, false
	}

	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidRequest, "invalid listing id")
		return model.ListingRef{}, false
	}
	return model.ListingRef{ID: id, Type: listingType}, true
}

// parseListingRef accepts "type:id".
func parseListingRef(raw string) (model.ListingRef, bool) {
	rawType, id, found := strings.Cut(strings.TrimSpace(raw), ":")
	if !found || strings.TrimSpace(id) == "" {
		return model.ListingRef{}, false
	}
	listingType, ok := model.ParseListingType(rawType)
	if !ok {
		return model.ListingRef{}, false
	}
	return model.ListingRef{ID: strings.TrimSpace(id), Type: listingType}, true
}

func handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
	case errors.Is(err, service.ErrPassNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrPassNotFound, "viewing pass not found")
	case errors.Is(err, service.ErrInvalidPackage):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPackage, "invalid package")
	case errors.Is(err, service.ErrInvalidExtension):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidExtension, "invalid extension months")
	case errors.Is(err, service.ErrListingNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrListingNotFound, "listing not found")
	case errors.Is(err, service.ErrInvalidListingType):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidListingType, "invalid listing type")
	case errors.Is(err, service.ErrNotListingOwner):
		response.Fail(c, http.StatusForbidden, response.ErrNotListingOwner, "listing is not owned by the caller")
	case errors.Is(err, service.ErrNotificationNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotificationNotFound, "notification not found")
	default:
		_ = c.Error(err)
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
	}
}
