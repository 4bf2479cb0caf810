package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"logimatch/internal/model"
	"logimatch/internal/repository"
)

var (
	ErrInvalidListingType = errors.New("invalid listing type")
	ErrListingNotFound    = errors.New("listing not found")
)

// rawListing keeps every field of a listing record as stored, so that the
// premium patch leaves fields this service does not model untouched.
type rawListing map[string]json.RawMessage

// ListingCatalog reads approved listings and patches their premium mirror
// fields. Registration and approval own everything else on the record.
type ListingCatalog struct {
	store  repository.Store
	logger *zap.Logger
}

type SearchFilter struct {
	Keyword      string
	Regions      []string
	ProductTypes []string
	StorageTypes []string
	Area         Range
	Pallets      Range
}

// Range bounds a numeric listing attribute. Nil bounds are open; a listing
// without the attribute never matches a bounded range.
type Range struct {
	Min          *float64
	Max          *float64
	MinExclusive bool
}

func (r Range) bounded() bool {
	return r.Min != nil || r.Max != nil
}

func (r Range) contains(value *model.Measure) bool {
	if !r.bounded() {
		return true
	}
	if value == nil {
		return false
	}

	v := float64(*value)
	if r.Min != nil {
		if r.MinExclusive && v <= *r.Min {
			return false
		}
		if !r.MinExclusive && v < *r.Min {
			return false
		}
	}
	return r.Max == nil || v <= *r.Max
}

// ParseRangeBucket reads the search page buckets: "100-500" is above 100 up
// to 500, "2000+" is above 2000 and a bucket starting at 0 has no lower bound.
func ParseRangeBucket(bucket string) (Range, bool) {
	bucket = strings.TrimSpace(bucket)
	if lower, ok := strings.CutSuffix(bucket, "+"); ok {
		minValue, err := strconv.ParseFloat(lower, 64)
		if err != nil {
			return Range{}, false
		}
		return Range{Min: &minValue, MinExclusive: true}, true
	}

	lower, upper, ok := strings.Cut(bucket, "-")
	if !ok {
		return Range{}, false
	}
	minValue, err := strconv.ParseFloat(lower, 64)
	if err != nil {
		return Range{}, false
	}
	maxValue, err := strconv.ParseFloat(upper, 64)
	if err != nil || maxValue < minValue {
		return Range{}, false
	}
	if minValue <= 0 {
		return Range{Max: &maxValue}, true
	}
	return Range{Min: &minValue, Max: &maxValue, MinExclusive: true}, true
}

func NewListingCatalog(store repository.Store, logger *zap.Logger) *ListingCatalog {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ListingCatalog{store: store, logger: logger}
}

func (c *ListingCatalog) List(ctx context.Context, listingType model.ListingType) ([]model.Listing, error) {
	raw, err := c.loadRaw(ctx, listingType)
	if err != nil {
		return nil, err
	}

	out := make([]model.Listing, 0, len(raw))
	for _, item := range raw {
		listing, err := decodeListing(item)
		if err != nil {
			c.logger.Warn("skip undecodable listing",
				zap.String("listing_type", string(listingType)),
				zap.String("listing_id", rawListingID(item)),
				zap.Error(err),
			)
			continue
		}
		out = append(out, listing)
	}
	return out, nil
}

func (c *ListingCatalog) Find(ctx context.Context, ref model.ListingRef) (*model.Listing, error) {
	raw, err := c.loadRaw(ctx, ref.Type)
	if err != nil {
		return nil, err
	}

	for _, item := range raw {
		if rawListingID(item) != ref.ID {
			continue
		}
		listing, err := decodeListing(item)
		if err != nil {
			return nil, fmt.Errorf("decode listing %s: %w", ref, err)
		}
		return &listing, nil
	}
	return nil, ErrListingNotFound
}

// PatchPremium mirrors a premium window onto the listing record. A listing
// that no longer exists is skipped.
func (c *ListingCatalog) PatchPremium(ctx context.Context, ref model.ListingRef, isPremium bool, endDate *time.Time) error {
	if !ref.Type.Valid() {
		return ErrInvalidListingType
	}

	flag, err := json.Marshal(isPremium)
	if err != nil {
		return err
	}
	end, err := json.Marshal(endDate)
	if err != nil {
		return err
	}

	listings := repository.NewCollection[rawListing](c.store, repository.ListingCollection(ref.Type))
	return listings.Mutate(ctx, func(items []rawListing) ([]rawListing, bool, error) {
		for _, item := range items {
			if rawListingID(item) != ref.ID {
				continue
			}
			item["isPremium"] = flag
			item["premiumEndDate"] = end
			return items, true, nil
		}

		c.logger.Debug("premium patch skipped for missing listing",
			zap.String("listing_id", ref.ID),
			zap.String("listing_type", string(ref.Type)),
		)
		return items, false, nil
	})
}

func (c *ListingCatalog) loadRaw(ctx context.Context, listingType model.ListingType) ([]rawListing, error) {
	if !listingType.Valid() {
		return nil, ErrInvalidListingType
	}

	items, _, err := repository.NewCollection[rawListing](c.store, repository.ListingCollection(listingType)).Load(ctx)
	return items, err
}

// FilterListings applies the search page filters. The keyword never matches
// the company name, which stays hidden until a listing is revealed.
func FilterListings(listings []model.Listing, filter SearchFilter) []model.Listing {
	keyword := strings.ToLower(strings.TrimSpace(filter.Keyword))
	regions := nonEmpty(filter.Regions)
	productTypes := nonEmpty(filter.ProductTypes)
	storageTypes := nonEmpty(filter.StorageTypes)

	out := make([]model.Listing, 0, len(listings))
	for _, listing := range listings {
		if keyword != "" && !matchesKeyword(listing, keyword) {
			continue
		}
		if len(regions) > 0 && !slices.Contains(regions, listing.Location) {
			continue
		}
		if len(productTypes) > 0 && !slices.ContainsFunc(listing.Products, func(product string) bool {
			return slices.Contains(productTypes, product)
		}) {
			continue
		}
		if len(storageTypes) > 0 && !slices.ContainsFunc(storageTypes, func(storage string) bool {
			return strings.Contains(string(listing.Temperature), storage)
		}) {
			continue
		}
		if !filter.Area.contains(listing.Area()) || !filter.Pallets.contains(listing.PalletCount) {
			continue
		}
		out = append(out, listing)
	}
	return out
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			out = append(out, value)
		}
	}
	return out
}

func matchesKeyword(listing model.Listing, keyword string) bool {
	for _, field := range []string{listing.Location, listing.City, listing.Dong} {
		if strings.Contains(strings.ToLower(field), keyword) {
			return true
		}
	}
	for _, product := range listing.Products {
		if strings.Contains(strings.ToLower(product), keyword) {
			return true
		}
	}
	return false
}

func decodeListing(item rawListing) (model.Listing, error) {
	normalized := make(rawListing, len(item))
	for key, value := range item {
		normalized[key] = value
	}
	// Older records carry numeric ids.
	if id, err := json.Marshal(rawListingID(item)); err == nil {
		normalized["id"] = id
	}

	buf, err := json.Marshal(normalized)
	if err != nil {
		return model.Listing{}, err
	}

	var listing model.Listing
	if err := json.Unmarshal(buf, &listing); err != nil {
		return model.Listing{}, err
	}
	return listing, nil
}

func rawListingID(item rawListing) string {
	raw := bytes.TrimSpace(item["id"])
	if len(raw) == 0 {
		return ""
	}

	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id
	}
	return string(raw)
}
