package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"logimatch/internal/model"
	"logimatch/internal/repository"
	"logimatch/internal/repository/memory"
)

func TestListingCatalog_ListNormalizesNumericIDs(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	seedListings(t, store, repository.CollectionApprovedCustomers, []map[string]any{
		{"id": 1709251200000, "companyName": "바다식품", "location": "부산"},
		{"id": "C-2", "companyName": "산들유통", "location": "대구"},
	})
	catalog := NewListingCatalog(store, nil)

	listings, err := catalog.List(context.Background(), model.ListingTypeCustomer)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got := listingIDs(listings); !equalIDs(got, []string{"1709251200000", "C-2"}) {
		t.Fatalf("expected string ids, got %v", got)
	}

	found, err := catalog.Find(context.Background(), model.ListingRef{ID: "1709251200000", Type: model.ListingTypeCustomer})
	if err != nil || found.CompanyName != "바다식품" {
		t.Fatalf("expected to find numeric id listing, got %+v, %v", found, err)
	}
}

func TestListingCatalog_FindErrors(t *testing.T) {
	t.Parallel()

	catalog := NewListingCatalog(memory.NewStore(), nil)
	if _, err := catalog.Find(context.Background(), warehouseRef("W1")); !errors.Is(err, ErrListingNotFound) {
		t.Fatalf("expected ErrListingNotFound, got %v", err)
	}
	if _, err := catalog.List(context.Background(), "factory"); !errors.Is(err, ErrInvalidListingType) {
		t.Fatalf("expected ErrInvalidListingType, got %v", err)
	}
}

func TestListingCatalog_PatchPremium(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	seedWarehouses(t, store)
	catalog := NewListingCatalog(store, nil)
	ctx := context.Background()

	end := date(2024, time.May, 1)
	if err := catalog.PatchPremium(ctx, warehouseRef("W2"), true, &end); err != nil {
		t.Fatalf("PatchPremium: %v", err)
	}

	listing, err := catalog.Find(ctx, warehouseRef("W2"))
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if !listing.IsPremium || listing.PremiumEndDate == nil || !listing.PremiumEndDate.Equal(end) {
		t.Fatalf("expected premium mirror set, got %+v", listing)
	}
	if string(loadRawWarehouse(t, store, "W1")["palletCount"]) != "120" {
		t.Fatal("expected other listings untouched")
	}

	if err := catalog.PatchPremium(ctx, warehouseRef("W2"), false, nil); err != nil {
		t.Fatalf("PatchPremium clear: %v", err)
	}
	listing, _ = catalog.Find(ctx, warehouseRef("W2"))
	if listing.IsPremium || listing.PremiumEndDate != nil {
		t.Fatalf("expected premium mirror cleared, got %+v", listing)
	}

	if err := catalog.PatchPremium(ctx, warehouseRef("W404"), true, &end); err != nil {
		t.Fatalf("expected missing listing to be skipped, got %v", err)
	}
}

func TestFilterListings(t *testing.T) {
	t.Parallel()

	listings := []model.Listing{
		{ID: "1", CompanyName: "서울냉장", Location: "서울", City: "강남구", Products: []string{"냉동식품"}},
		{ID: "2", CompanyName: "경기물류", Location: "경기", Dong: "동탄동", Products: []string{"Electronics"}},
		{ID: "3", CompanyName: "부산항운", Location: "부산"},
	}

	cases := []struct {
		name   string
		filter SearchFilter
		want   []string
	}{
		{name: "empty filter", filter: SearchFilter{}, want: []string{"1", "2", "3"}},
		{name: "city keyword", filter: SearchFilter{Keyword: "강남"}, want: []string{"1"}},
		{name: "product keyword ignores case", filter: SearchFilter{Keyword: "electronics"}, want: []string{"2"}},
		{name: "company name never matches", filter: SearchFilter{Keyword: "항운"}, want: []string{}},
		{name: "region set", filter: SearchFilter{Regions: []string{"서울", "부산"}}, want: []string{"1", "3"}},
		{name: "keyword and region", filter: SearchFilter{Keyword: "동탄", Regions: []string{"서울"}}, want: []string{}},
	}
	for _, tc := range cases {
		if got := listingIDs(FilterListings(listings, tc.filter)); !equalIDs(got, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestFilterListings_Attributes(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	seedListings(t, store, repository.CollectionApprovedWarehouses, []map[string]any{
		{"id": "W-small", "availableArea": 80, "palletCount": "40", "temperature": "상온", "products": []string{"잡화"}},
		{"id": "W-mid", "availableArea": "300", "palletCount": 150, "temperature": "냉장/냉동", "products": []string{"냉동식품"}},
		{"id": "W-big", "availableArea": 2500, "palletCount": 1200, "temperature": []string{"상온"}},
		{"id": "W-unknown", "availableArea": "문의", "temperature": "냉장"},
		{"id": "W-blank"},
	})
	listings, err := NewListingCatalog(store, nil).List(context.Background(), model.ListingTypeWarehouse)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listings) != 5 {
		t.Fatalf("expected loose form fields to decode, got %d listings", len(listings))
	}

	bucket := func(raw string) Range {
		r, ok := ParseRangeBucket(raw)
		if !ok {
			t.Fatalf("ParseRangeBucket(%q) failed", raw)
		}
		return r
	}
	bound := func(v float64) *float64 { return &v }

	cases := []struct {
		name   string
		filter SearchFilter
		want   []string
	}{
		{name: "lowest area bucket has no lower bound", filter: SearchFilter{Area: bucket("0-100")}, want: []string{"W-small", "W-unknown"}},
		{name: "middle area bucket", filter: SearchFilter{Area: bucket("100-500")}, want: []string{"W-mid"}},
		{name: "open area bucket", filter: SearchFilter{Area: bucket("2000+")}, want: []string{"W-big"}},
		{name: "pallet bucket upper bound inclusive", filter: SearchFilter{Pallets: bucket("50-200")}, want: []string{"W-mid"}},
		{name: "inclusive min and max", filter: SearchFilter{Pallets: Range{Min: bound(40), Max: bound(150)}}, want: []string{"W-small", "W-mid"}},
		{name: "product type", filter: SearchFilter{ProductTypes: []string{"냉동식품", "의류"}}, want: []string{"W-mid"}},
		{name: "storage type substring", filter: SearchFilter{StorageTypes: []string{"냉장"}}, want: []string{"W-mid", "W-unknown"}},
	}
	for _, tc := range cases {
		if got := listingIDs(FilterListings(listings, tc.filter)); !equalIDs(got, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestParseRangeBucket_Invalid(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "abc", "500-100", "10-", "+"} {
		if _, ok := ParseRangeBucket(raw); ok {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}
