package service

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"logimatch/internal/model"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type RankedPage struct {
	Premium    []model.Listing `json:"premium"`
	Regular    []model.Listing `json:"regular"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	Total      int             `json:"total"`
	TotalPages int             `json:"total_pages"`
}

// RankingService orders listings for search pages: active premium listings
// first, by their newest application, then everything else by recency.
type RankingService struct {
	premium *PremiumService
	logger  *zap.Logger
}

func NewRankingService(premium *PremiumService, logger *zap.Logger) *RankingService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RankingService{premium: premium, logger: logger}
}

func (s *RankingService) RankListings(ctx context.Context, listings []model.Listing, listingType model.ListingType) ([]model.Listing, error) {
	premium, regular, err := s.partition(ctx, listings, listingType)
	if err != nil {
		return nil, err
	}
	return append(premium, regular...), nil
}

// RankPage returns every active premium listing together with one page of
// the regular listings. Premium listings are never paginated.
func (s *RankingService) RankPage(
	ctx context.Context,
	listings []model.Listing,
	listingType model.ListingType,
	page int,
	pageSize int,
) (RankedPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	premium, regular, err := s.partition(ctx, listings, listingType)
	if err != nil {
		return RankedPage{}, err
	}

	total := len(regular)
	start := total
	if page-1 <= total/pageSize {
		start = min((page-1)*pageSize, total)
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	return RankedPage{
		Premium:    premium,
		Regular:    regular[start:end],
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: (total + pageSize - 1) / pageSize,
	}, nil
}

func (s *RankingService) partition(
	ctx context.Context,
	listings []model.Listing,
	listingType model.ListingType,
) ([]model.Listing, []model.Listing, error) {
	if !listingType.Valid() {
		return nil, nil, ErrInvalidListingType
	}

	active, err := s.premium.ActiveSet(ctx, listingType)
	if err != nil {
		return nil, nil, err
	}
	latest, err := s.premium.LatestApplications(ctx, listingType)
	if err != nil {
		return nil, nil, err
	}

	premium, regular := rankListings(listings, active, latest)
	return premium, regular, nil
}

func rankListings(
	listings []model.Listing,
	active map[string]bool,
	latestApplication map[string]time.Time,
) ([]model.Listing, []model.Listing) {
	premium := make([]model.Listing, 0)
	regular := make([]model.Listing, 0, len(listings))
	for _, listing := range listings {
		listing.IsPremium = active[listing.ID]
		if listing.IsPremium {
			premium = append(premium, listing)
		} else {
			regular = append(regular, listing)
		}
	}

	sort.SliceStable(premium, func(i, j int) bool {
		a, aHas := latestApplication[premium[i].ID]
		b, bHas := latestApplication[premium[j].ID]
		switch {
		case aHas && bHas && !a.Equal(b):
			return a.After(b)
		case aHas != bHas:
			return aHas
		default:
			return recencyKey(premium[i]) > recencyKey(premium[j])
		}
	})
	sort.SliceStable(regular, func(i, j int) bool {
		return recencyKey(regular[i]) > recencyKey(regular[j])
	})

	return premium, regular
}

// recencyKey falls back from the approval time to the submission time, then
// to a millisecond timestamp embedded as the last dash-separated part of the
// id, then to a numeric id.
func recencyKey(listing model.Listing) int64 {
	if listing.ApprovedAt != nil && !listing.ApprovedAt.IsZero() {
		return listing.ApprovedAt.UnixMilli()
	}
	if listing.SubmittedAt != nil && !listing.SubmittedAt.IsZero() {
		return listing.SubmittedAt.UnixMilli()
	}

	id := strings.TrimSpace(listing.ID)
	if idx := strings.LastIndex(id, "-"); idx >= 0 {
		id = id[idx+1:]
	}
	value, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0
	}
	return value
}
