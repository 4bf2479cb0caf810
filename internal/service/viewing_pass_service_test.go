package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"logimatch/internal/event"
	"logimatch/internal/model"
	"logimatch/internal/repository/memory"
)

func TestIsExpired_Boundary(t *testing.T) {
	t.Parallel()

	now := date(2024, time.March, 1)
	svc := newTestPassService(memory.NewStore(), newTestClock(now))

	cases := []struct {
		name   string
		pass   *model.ViewingPass
		expect bool
	}{
		{name: "expiry equals now", pass: &model.ViewingPass{ExpiryDate: now}, expect: false},
		{name: "one second past expiry", pass: &model.ViewingPass{ExpiryDate: now.Add(-time.Second)}, expect: true},
		{name: "future expiry", pass: &model.ViewingPass{ExpiryDate: now.Add(time.Hour)}, expect: false},
		{name: "missing expiry", pass: &model.ViewingPass{}, expect: true},
		{name: "missing ledger", pass: nil, expect: true},
	}

	for _, tc := range cases {
		if got := svc.IsExpired(tc.pass); got != tc.expect {
			t.Fatalf("%s: expected IsExpired=%v, got %v", tc.name, tc.expect, got)
		}
	}
}

func TestHasValidEntitlement(t *testing.T) {
	t.Parallel()

	now := date(2024, time.March, 1)
	svc := newTestPassService(memory.NewStore(), newTestClock(now))

	if svc.HasValidEntitlement(nil) {
		t.Fatal("expected no entitlement without a ledger")
	}
	if svc.HasValidEntitlement(&model.ViewingPass{ExpiryDate: now.Add(time.Hour), RemainingCount: 0}) {
		t.Fatal("expected no entitlement with zero remaining views")
	}
	if svc.HasValidEntitlement(&model.ViewingPass{ExpiryDate: now, RemainingCount: 3}) {
		t.Fatal("expected no entitlement when expiry is not after now")
	}
	if !svc.HasValidEntitlement(&model.ViewingPass{ExpiryDate: now.Add(time.Hour), RemainingCount: 1}) {
		t.Fatal("expected entitlement with views left before expiry")
	}
}

func TestDebit_RevealTwiceDebitsOnce(t *testing.T) {
	t.Parallel()

	clock := newTestClock(date(2024, time.January, 1))
	svc := newTestPassService(memory.NewStore(), clock)
	ctx := context.Background()

	if _, err := svc.Purchase(ctx, "user-1", "basic"); err != nil {
		t.Fatalf("Purchase: %v", err)
	}

	first, err := svc.Debit(ctx, "user-1", warehouseRef("W1"), "동탄 물류센터")
	if err != nil {
		t.Fatalf("first Debit: %v", err)
	}
	if !first.Success || first.AlreadyViewed || first.RemainingCount != 9 {
		t.Fatalf("unexpected first debit: %+v", first)
	}

	second, err := svc.Debit(ctx, "user-1", warehouseRef("W1"), "동탄 물류센터")
	if err != nil {
		t.Fatalf("second Debit: %v", err)
	}
	if !second.Success || !second.AlreadyViewed || second.RemainingCount != 9 {
		t.Fatalf("expected free repeat reveal with 9 remaining, got %+v", second)
	}

	pass, err := svc.GetLedger(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetLedger: %v", err)
	}
	if len(pass.ViewedItems) != 1 || len(pass.UsageHistory) != 1 {
		t.Fatalf("expected one viewed item and one usage entry, got %d and %d", len(pass.ViewedItems), len(pass.UsageHistory))
	}
	if pass.UsageHistory[0].ItemName != "동탄 물류센터" || pass.UsageHistory[0].CountUsed != 1 {
		t.Fatalf("unexpected usage entry: %+v", pass.UsageHistory[0])
	}
}

func TestDebit_SameIDDifferentTypeIsDistinct(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	now := date(2024, time.January, 10)
	seedPass(t, store, model.ViewingPass{
		ID: "p1", UserID: "user-1", ExpiryDate: now.AddDate(0, 1, 0), RemainingCount: 5, TotalCount: 5,
		ViewedItems: []model.ViewedItem{{ItemID: "7", ItemType: model.ListingTypeWarehouse, ViewedAt: now}},
	})
	svc := newTestPassService(store, newTestClock(now))

	result, err := svc.Debit(context.Background(), "user-1", model.ListingRef{ID: "7", Type: model.ListingTypeCustomer}, "")
	if err != nil {
		t.Fatalf("Debit: %v", err)
	}
	if !result.Success || result.AlreadyViewed || result.RemainingCount != 4 {
		t.Fatalf("expected a fresh debit for the customer listing, got %+v", result)
	}

	pass, _ := svc.GetLedger(context.Background(), "user-1")
	if got := pass.UsageHistory[0].ItemName; got != "customer-7" {
		t.Fatalf("expected fallback item name customer-7, got %q", got)
	}
}

func TestDebit_NeverGoesNegative(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	now := date(2024, time.February, 1)
	seedPass(t, store, model.ViewingPass{
		ID: "p1", UserID: "user-1", ExpiryDate: now.AddDate(0, 1, 0), RemainingCount: 2, TotalCount: 2,
	})
	svc := newTestPassService(store, newTestClock(now))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		result, err := svc.Debit(ctx, "user-1", warehouseRef(fmt.Sprintf("W%d", i)), "")
		if err != nil {
			t.Fatalf("Debit %d: %v", i, err)
		}
		if i < 2 {
			if !result.Success {
				t.Fatalf("expected debit %d to succeed, got %+v", i, result)
			}
			continue
		}
		if result.Success || result.Reason != ReasonExhausted || result.Message != messageExhausted {
			t.Fatalf("expected exhausted on debit %d, got %+v", i, result)
		}
	}

	pass, _ := svc.GetLedger(ctx, "user-1")
	if pass.RemainingCount != 0 {
		t.Fatalf("expected remaining 0, got %d", pass.RemainingCount)
	}
}

func TestDebit_DenialsAreResultsNotErrors(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	now := date(2024, time.May, 1)
	seedPass(t, store, model.ViewingPass{
		ID: "p1", UserID: "expired-user", ExpiryDate: now.Add(-time.Second), RemainingCount: 4, TotalCount: 10,
	})
	svc := newTestPassService(store, newTestClock(now))
	ctx := context.Background()

	anonymous, err := svc.Debit(ctx, "", warehouseRef("W1"), "")
	if err != nil || anonymous.Reason != ReasonNotLoggedIn || anonymous.Message != messageNotLoggedIn {
		t.Fatalf("expected not logged in, got %+v, %v", anonymous, err)
	}

	missing, err := svc.Debit(ctx, "nobody", warehouseRef("W1"), "")
	if err != nil || missing.Reason != ReasonNoEntitlement || missing.Message != messageNoEntitlement {
		t.Fatalf("expected no entitlement, got %+v, %v", missing, err)
	}

	expired, err := svc.Debit(ctx, "expired-user", warehouseRef("W1"), "")
	if err != nil || expired.Reason != ReasonExpired || !expired.Expired || expired.Message != messageExpired {
		t.Fatalf("expected expired, got %+v, %v", expired, err)
	}
}

func TestDebit_ExpiredLedgerStillRevealsViewedListing(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	now := date(2024, time.May, 1)
	seedPass(t, store, model.ViewingPass{
		ID: "p1", UserID: "user-1", ExpiryDate: now.AddDate(0, -1, 0), RemainingCount: 0, TotalCount: 10,
		ViewedItems: []model.ViewedItem{{ItemID: "W1", ItemType: model.ListingTypeWarehouse}},
	})
	svc := newTestPassService(store, newTestClock(now))

	result, err := svc.Debit(context.Background(), "user-1", warehouseRef("W1"), "")
	if err != nil {
		t.Fatalf("Debit: %v", err)
	}
	if !result.Success || !result.AlreadyViewed {
		t.Fatalf("expected already viewed success, got %+v", result)
	}
}

func TestDebit_ConcurrentRevealsOfSameListingDebitOnce(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	now := date(2024, time.February, 1)
	seedPass(t, store, model.ViewingPass{
		ID: "p1", UserID: "user-1", ExpiryDate: now.AddDate(0, 1, 0), RemainingCount: 5, TotalCount: 5,
	})
	svc := newTestPassService(store, newTestClock(now))

	var wg sync.WaitGroup
	errCh := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Debit(context.Background(), "user-1", warehouseRef("W1"), "")
			errCh <- err
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			t.Fatalf("Debit: %v", err)
		}
	}

	pass, _ := svc.GetLedger(context.Background(), "user-1")
	if pass.RemainingCount != 4 || len(pass.ViewedItems) != 1 {
		t.Fatalf("expected exactly one debit, got remaining=%d viewed=%d", pass.RemainingCount, len(pass.ViewedItems))
	}
}

func TestDebit_PublishesExhaustedOnLastView(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	now := date(2024, time.February, 1)
	seedPass(t, store, model.ViewingPass{
		ID: "p1", UserID: "user-1", ExpiryDate: now.AddDate(0, 1, 0), RemainingCount: 1, TotalCount: 10,
	})
	bus := event.NewBus()
	svc := NewViewingPassService(store, bus, nil)
	svc.now = newTestClock(now).Now

	got := make(chan event.PassExhaustedPayload, 1)
	bus.Subscribe(event.EventPassExhausted, func(payload any) {
		if data, ok := payload.(event.PassExhaustedPayload); ok {
			got <- data
		}
	})

	if _, err := svc.Debit(context.Background(), "user-1", warehouseRef("W1"), ""); err != nil {
		t.Fatalf("Debit: %v", err)
	}

	select {
	case data := <-got:
		if data.UserID != "user-1" || data.PassID != "p1" {
			t.Fatalf("unexpected exhausted payload: %+v", data)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for exhausted event")
	}
}

func TestEndToEnd_BasicPackageLifecycle(t *testing.T) {
	t.Parallel()

	clock := newTestClock(date(2024, time.January, 1))
	svc := newTestPassService(memory.NewStore(), clock)
	ctx := context.Background()

	pass, err := svc.Purchase(ctx, "user-1", "basic")
	if err != nil {
		t.Fatalf("Purchase: %v", err)
	}
	if pass.RemainingCount != 10 || pass.TotalCount != 10 {
		t.Fatalf("expected 10/10 views, got %d/%d", pass.RemainingCount, pass.TotalCount)
	}
	if !pass.ExpiryDate.Equal(date(2024, time.April, 1)) {
		t.Fatalf("expected expiry 2024-04-01, got %s", pass.ExpiryDate)
	}

	clock.Advance(time.Hour)
	result, err := svc.Debit(ctx, "user-1", warehouseRef("W1"), "")
	if err != nil || result.RemainingCount != 9 {
		t.Fatalf("expected 9 remaining after W1, got %+v, %v", result, err)
	}

	again, err := svc.Debit(ctx, "user-1", warehouseRef("W1"), "")
	if err != nil || !again.AlreadyViewed || again.RemainingCount != 9 {
		t.Fatalf("expected free repeat of W1, got %+v, %v", again, err)
	}

	for i := 2; i <= 10; i++ {
		clock.Advance(time.Minute)
		if _, err := svc.Debit(ctx, "user-1", warehouseRef(fmt.Sprintf("W%d", i)), ""); err != nil {
			t.Fatalf("Debit W%d: %v", i, err)
		}
	}

	pass, err = svc.GetLedger(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetLedger: %v", err)
	}
	if pass.RemainingCount != 0 || len(pass.ViewedItems) != 10 {
		t.Fatalf("expected 0 remaining and 10 viewed, got %d and %d", pass.RemainingCount, len(pass.ViewedItems))
	}

	eleventh, err := svc.Debit(ctx, "user-1", warehouseRef("W11"), "")
	if err != nil {
		t.Fatalf("Debit W11: %v", err)
	}
	if eleventh.Success || eleventh.Reason != ReasonExhausted {
		t.Fatalf("expected exhausted on 11th listing, got %+v", eleventh)
	}
}

func TestPurchase_RejectsUnknownPackage(t *testing.T) {
	t.Parallel()

	svc := newTestPassService(memory.NewStore(), newTestClock(date(2024, time.January, 1)))
	if _, err := svc.Purchase(context.Background(), "user-1", "platinum"); !errors.Is(err, ErrInvalidPackage) {
		t.Fatalf("expected ErrInvalidPackage, got %v", err)
	}
	if _, err := svc.Purchase(context.Background(), "", "basic"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestPurchase_MergesIntoSingleLedger(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	clock := newTestClock(date(2024, time.January, 1))
	svc := newTestPassService(store, clock)
	ctx := context.Background()

	first, err := svc.Purchase(ctx, "user-1", "basic")
	if err != nil {
		t.Fatalf("first Purchase: %v", err)
	}
	if _, err := svc.Debit(ctx, "user-1", warehouseRef("W1"), ""); err != nil {
		t.Fatalf("Debit: %v", err)
	}

	clock.Set(date(2024, time.February, 15))
	merged, err := svc.Purchase(ctx, "user-1", "premium")
	if err != nil {
		t.Fatalf("second Purchase: %v", err)
	}

	if merged.ID != first.ID {
		t.Fatalf("expected the same ledger id, got %s and %s", first.ID, merged.ID)
	}
	if merged.RemainingCount != 29 || merged.TotalCount != 30 {
		t.Fatalf("expected 29/30 views, got %d/%d", merged.RemainingCount, merged.TotalCount)
	}
	if !merged.ExpiryDate.Equal(date(2024, time.May, 15)) {
		t.Fatalf("expected expiry 2024-05-15, got %s", merged.ExpiryDate)
	}
	if !merged.HasViewed("W1", model.ListingTypeWarehouse) {
		t.Fatal("expected earlier reveal to survive the merge")
	}
	if len(merged.Purchases) != 2 {
		t.Fatalf("expected 2 purchase records, got %d", len(merged.Purchases))
	}

	passes, _, err := svc.passes.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(passes) != 1 {
		t.Fatalf("expected a single stored ledger, got %d", len(passes))
	}
}

func TestPurchase_ForfeitsViewsOfExpiredLedger(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	now := date(2024, time.June, 1)
	seedPass(t, store, model.ViewingPass{
		ID: "p1", UserID: "user-1", ExpiryDate: date(2024, time.April, 1), RemainingCount: 4, TotalCount: 10,
	})
	svc := newTestPassService(store, newTestClock(now))

	pass, err := svc.Purchase(context.Background(), "user-1", "basic")
	if err != nil {
		t.Fatalf("Purchase: %v", err)
	}
	if pass.RemainingCount != 10 || pass.TotalCount != 20 {
		t.Fatalf("expected 10/20 views, got %d/%d", pass.RemainingCount, pass.TotalCount)
	}
	if !pass.ExpiryDate.Equal(date(2024, time.September, 1)) {
		t.Fatalf("expected expiry 2024-09-01, got %s", pass.ExpiryDate)
	}
}

func TestExtend_PricingAndExpiry(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	now := date(2024, time.March, 1)
	seedPass(t, store,
		model.ViewingPass{ID: "early", UserID: "u1", ExpiryDate: date(2024, time.March, 20), RemainingCount: 3, TotalCount: 10},
		model.ViewingPass{ID: "late", UserID: "u2", ExpiryDate: date(2024, time.February, 1), RemainingCount: 2, TotalCount: 10},
		model.ViewingPass{ID: "boundary", UserID: "u3", ExpiryDate: now, RemainingCount: 1, TotalCount: 10},
	)
	svc := newTestPassService(store, newTestClock(now))
	ctx := context.Background()

	cases := []struct {
		id        string
		price     int64
		expiry    time.Time
		remaining int
	}{
		{id: "early", price: 45000, expiry: date(2024, time.June, 20), remaining: 3},
		{id: "late", price: 50000, expiry: date(2024, time.June, 1), remaining: 2},
		{id: "boundary", price: 50000, expiry: date(2024, time.June, 1), remaining: 1},
	}

	for _, tc := range cases {
		pass, err := svc.Extend(ctx, tc.id, DefaultExtensionMonths)
		if err != nil {
			t.Fatalf("Extend %s: %v", tc.id, err)
		}
		if pass.ExtensionPrice != tc.price {
			t.Fatalf("%s: expected price %d, got %d", tc.id, tc.price, pass.ExtensionPrice)
		}
		if !pass.ExpiryDate.Equal(tc.expiry) {
			t.Fatalf("%s: expected expiry %s, got %s", tc.id, tc.expiry, pass.ExpiryDate)
		}
		if pass.RemainingCount != tc.remaining {
			t.Fatalf("%s: remaining count changed to %d", tc.id, pass.RemainingCount)
		}
		if pass.ExtendedAt == nil || !pass.ExtendedAt.Equal(now) {
			t.Fatalf("%s: expected extendedAt %s, got %v", tc.id, now, pass.ExtendedAt)
		}
	}
}

func TestExtend_Errors(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	seedPass(t, store, model.ViewingPass{ID: "p1", UserID: "u1", ExpiryDate: date(2024, time.March, 20)})
	svc := newTestPassService(store, newTestClock(date(2024, time.March, 1)))

	if _, err := svc.Extend(context.Background(), "missing", 3); !errors.Is(err, ErrPassNotFound) {
		t.Fatalf("expected ErrPassNotFound, got %v", err)
	}
	if _, err := svc.Extend(context.Background(), "p1", 0); !errors.Is(err, ErrInvalidExtension) {
		t.Fatalf("expected ErrInvalidExtension, got %v", err)
	}
}

func TestUsageStatisticsAndHistory(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	seedPass(t, store, model.ViewingPass{
		ID: "p1", UserID: "u1", ExpiryDate: date(2024, time.June, 1), RemainingCount: 7, TotalCount: 10,
		UsageHistory: []model.UsageEntry{
			{Date: date(2024, time.February, 3), ItemID: "W1", ItemType: model.ListingTypeWarehouse, CountUsed: 1},
			{Date: date(2024, time.January, 9), ItemID: "C1", ItemType: model.ListingTypeCustomer, CountUsed: 1},
			{Date: date(2024, time.February, 20), ItemID: "W2", ItemType: model.ListingTypeWarehouse, CountUsed: 1},
		},
	})
	svc := newTestPassService(store, newTestClock(date(2024, time.March, 1)))
	ctx := context.Background()

	stats, err := svc.UsageStatistics(ctx, "u1")
	if err != nil {
		t.Fatalf("UsageStatistics: %v", err)
	}
	if stats.TotalUsed != 3 {
		t.Fatalf("expected 3 total, got %d", stats.TotalUsed)
	}
	if len(stats.MonthlyUsage) != 2 ||
		stats.MonthlyUsage[0] != (MonthlyUsage{Month: "2024-01", Count: 1}) ||
		stats.MonthlyUsage[1] != (MonthlyUsage{Month: "2024-02", Count: 2}) {
		t.Fatalf("unexpected monthly usage: %+v", stats.MonthlyUsage)
	}
	if stats.ItemTypeStats[model.ListingTypeWarehouse] != 2 || stats.ItemTypeStats[model.ListingTypeCustomer] != 1 {
		t.Fatalf("unexpected type stats: %+v", stats.ItemTypeStats)
	}

	history, err := svc.UsageHistory(ctx, "u1")
	if err != nil {
		t.Fatalf("UsageHistory: %v", err)
	}
	if history[0].ItemID != "W2" || history[2].ItemID != "C1" {
		t.Fatalf("expected newest first, got %+v", history)
	}

	empty, err := svc.UsageStatistics(ctx, "nobody")
	if err != nil || empty.TotalUsed != 0 || len(empty.MonthlyUsage) != 0 {
		t.Fatalf("expected empty stats, got %+v, %v", empty, err)
	}
}

func TestRecentViewed_NewestFirstWithLimit(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	base := date(2024, time.January, 1)
	viewed := make([]model.ViewedItem, 0, 12)
	for i := 0; i < 12; i++ {
		viewed = append(viewed, model.ViewedItem{
			ItemID:   fmt.Sprintf("W%d", i),
			ItemType: model.ListingTypeWarehouse,
			ViewedAt: base.Add(time.Duration(i) * time.Hour),
		})
	}
	seedPass(t, store, model.ViewingPass{ID: "p1", UserID: "u1", ExpiryDate: date(2024, time.April, 1), ViewedItems: viewed})
	svc := newTestPassService(store, newTestClock(base))

	items, err := svc.RecentViewed(context.Background(), "u1", 0)
	if err != nil {
		t.Fatalf("RecentViewed: %v", err)
	}
	if len(items) != DefaultRecentViewedLimit {
		t.Fatalf("expected %d items, got %d", DefaultRecentViewedLimit, len(items))
	}
	if items[0].ItemID != "W11" || items[9].ItemID != "W2" {
		t.Fatalf("unexpected order: first=%s last=%s", items[0].ItemID, items[9].ItemID)
	}
}

func TestRemainingDaysAndExpiryWarning(t *testing.T) {
	t.Parallel()

	now := date(2024, time.March, 1)
	svc := newTestPassService(memory.NewStore(), newTestClock(now))

	cases := []struct {
		expiry time.Time
		days   int
		warn   bool
	}{
		{expiry: now.Add(36 * time.Hour), days: 2, warn: true},
		{expiry: now.AddDate(0, 0, 7), days: 7, warn: true},
		{expiry: now.AddDate(0, 0, 7).Add(time.Minute), days: 8, warn: false},
		{expiry: now, days: 0, warn: false},
		{expiry: now.AddDate(0, 0, -3), days: 0, warn: false},
	}

	for _, tc := range cases {
		pass := &model.ViewingPass{ExpiryDate: tc.expiry}
		if got := svc.RemainingDays(pass); got != tc.days {
			t.Fatalf("expiry %s: expected %d days, got %d", tc.expiry, tc.days, got)
		}
		if got := svc.ShouldWarnExpiry(pass); got != tc.warn {
			t.Fatalf("expiry %s: expected warn=%v, got %v", tc.expiry, tc.warn, got)
		}
	}
}

func TestCanCompare(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	seedPass(t, store, model.ViewingPass{
		ID: "p1", UserID: "u1", ExpiryDate: date(2024, time.April, 1),
		ViewedItems: []model.ViewedItem{
			{ItemID: "W1", ItemType: model.ListingTypeWarehouse},
			{ItemID: "W2", ItemType: model.ListingTypeWarehouse},
		},
	})
	svc := newTestPassService(store, newTestClock(date(2024, time.March, 1)))
	ctx := context.Background()

	ok, err := svc.CanCompare(ctx, userSession("u1"), warehouseRef("W1"), warehouseRef("W2"))
	if err != nil || !ok {
		t.Fatalf("expected compare allowed for two revealed listings, got %v, %v", ok, err)
	}
	ok, _ = svc.CanCompare(ctx, userSession("u1"), warehouseRef("W1"), warehouseRef("W3"))
	if ok {
		t.Fatal("expected compare denied when one listing is not revealed")
	}
	ok, _ = svc.CanCompare(ctx, adminSession(), warehouseRef("X"), warehouseRef("Y"))
	if !ok {
		t.Fatal("expected admin to compare anything")
	}
	ok, _ = svc.CanCompare(ctx, nil, warehouseRef("W1"), warehouseRef("W2"))
	if ok {
		t.Fatal("expected anonymous compare denied")
	}
}

func TestWarnExpiring_OncePerDay(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	now := date(2024, time.March, 1).Add(9 * time.Hour)
	seedPass(t, store,
		model.ViewingPass{ID: "soon", UserID: "u1", ExpiryDate: now.AddDate(0, 0, 3)},
		model.ViewingPass{ID: "later", UserID: "u2", ExpiryDate: now.AddDate(0, 1, 0)},
	)
	clock := newTestClock(now)
	svc := newTestPassService(store, clock)
	ctx := context.Background()

	count, err := svc.WarnExpiring(ctx)
	if err != nil || count != 1 {
		t.Fatalf("expected one warning, got %d, %v", count, err)
	}

	clock.Advance(6 * time.Hour)
	count, err = svc.WarnExpiring(ctx)
	if err != nil || count != 0 {
		t.Fatalf("expected no repeat warning the same day, got %d, %v", count, err)
	}

	clock.Advance(24 * time.Hour)
	count, err = svc.WarnExpiring(ctx)
	if err != nil || count != 1 {
		t.Fatalf("expected a warning on the next day, got %d, %v", count, err)
	}
}
