package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"logimatch/internal/model"
	"logimatch/internal/repository"
)

// FavoriteService keeps each user's bookmarked listings.
type FavoriteService struct {
	favorites *repository.Collection[model.Favorite]
	listings  *ListingCatalog
	logger    *zap.Logger

	now func() time.Time
}

func NewFavoriteService(store repository.Store, listings *ListingCatalog, logger *zap.Logger) *FavoriteService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &FavoriteService{
		favorites: repository.NewCollection[model.Favorite](store, repository.CollectionFavorites),
		listings:  listings,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Toggle bookmarks ref, or removes the bookmark when the user already has
// one, and reports whether ref is a favorite afterwards. Only approved
// listings can be added; a bookmark whose listing is gone can still be removed.
func (s *FavoriteService) Toggle(ctx context.Context, userID string, ref model.ListingRef) (bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false, ErrUnauthenticated
	}
	if !ref.Type.Valid() {
		return false, ErrInvalidListingType
	}

	current, err := s.IsFavorite(ctx, userID, ref)
	if err != nil {
		return false, err
	}
	if !current && s.listings != nil {
		if _, err := s.listings.Find(ctx, ref); err != nil {
			return false, err
		}
	}

	var added bool
	err = s.favorites.Mutate(ctx, func(items []model.Favorite) ([]model.Favorite, bool, error) {
		if idx := findFavorite(items, userID, ref); idx >= 0 {
			added = false
			return append(items[:idx], items[idx+1:]...), true, nil
		}

		added = true
		return append(items, model.Favorite{
			UserID:   userID,
			ItemID:   ref.ID,
			ItemType: ref.Type,
			AddedAt:  s.now(),
		}), true, nil
	})
	if err != nil {
		s.logger.Warn("toggle favorite failed",
			zap.String("user_id", userID),
			zap.String("listing_id", ref.ID),
			zap.String("listing_type", string(ref.Type)),
			zap.Error(err),
		)
		return false, err
	}
	return added, nil
}

func (s *FavoriteService) IsFavorite(ctx context.Context, userID string, ref model.ListingRef) (bool, error) {
	items, _, err := s.favorites.Load(ctx)
	if err != nil {
		return false, err
	}
	return findFavorite(items, strings.TrimSpace(userID), ref) >= 0, nil
}

// List returns the user's favorites, most recently added first.
func (s *FavoriteService) List(ctx context.Context, userID string) ([]model.Favorite, error) {
	items, _, err := s.favorites.Load(ctx)
	if err != nil {
		return nil, err
	}

	userID = strings.TrimSpace(userID)
	out := make([]model.Favorite, 0)
	for _, item := range items {
		if item.UserID == userID {
			out = append(out, item)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AddedAt.After(out[j].AddedAt)
	})
	return out, nil
}

func findFavorite(items []model.Favorite, userID string, ref model.ListingRef) int {
	if userID == "" {
		return -1
	}
	for i := range items {
		if items[i].UserID == userID && items[i].ItemID == ref.ID && items[i].ItemType == ref.Type {
			return i
		}
	}
	return -1
}
