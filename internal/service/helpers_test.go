package service

import (
	"sync"
	"testing"
	"time"

	"logimatch/internal/model"
	"logimatch/internal/repository"
	"logimatch/internal/repository/memory"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(now time.Time) *testClock {
	return &testClock{now: now}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(now time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func userSession(userID string) *model.Session {
	return &model.Session{UserID: userID, Role: model.RoleUser}
}

func adminSession() *model.Session {
	return &model.Session{UserID: "admin-1", Role: model.RoleAdmin}
}

func warehouseRef(id string) model.ListingRef {
	return model.ListingRef{ID: id, Type: model.ListingTypeWarehouse}
}

func newTestPassService(store repository.Store, clock *testClock) *ViewingPassService {
	svc := NewViewingPassService(store, nil, nil)
	svc.now = clock.Now
	return svc
}

func seedListings(t *testing.T, store *memory.Store, collection string, listings any) {
	t.Helper()
	if err := store.Seed(collection, listings); err != nil {
		t.Fatalf("seed %s: %v", collection, err)
	}
}

func seedPass(t *testing.T, store *memory.Store, passes ...model.ViewingPass) {
	t.Helper()
	seedListings(t, store, repository.CollectionViewingPasses, passes)
}
