package repository

import (
	"context"
	"encoding/json"
	"errors"

	"logimatch/internal/model"
)

var ErrVersionConflict = errors.New("collection version conflict")

const (
	CollectionViewingPasses       = "viewingPasses"
	CollectionPremiumApplications = "premiumApplications"
	CollectionPremiumItems        = "premiumItems"
	CollectionApprovedWarehouses  = "approvedWarehouses"
	CollectionApprovedCustomers   = "approvedCustomers"
	CollectionNotifications       = "notifications"
	CollectionFavorites           = "favorites"
)

// ListingCollection maps a listing type to the collection the approval flow writes it to.
func ListingCollection(listingType model.ListingType) string {
	if listingType == model.ListingTypeCustomer {
		return CollectionApprovedCustomers
	}
	return CollectionApprovedWarehouses
}

// Snapshot is the JSON array stored under one collection together with the
// version it was read at. An absent collection has nil Data and Version 0.
type Snapshot struct {
	Data    json.RawMessage
	Version int64
}

// Store persists whole collections. Put replaces the collection only if its
// version still equals expectedVersion and returns the new version; otherwise
// it fails with ErrVersionConflict.
type Store interface {
	Get(ctx context.Context, collection string) (Snapshot, error)
	Put(ctx context.Context, collection string, data json.RawMessage, expectedVersion int64) (int64, error)
}
