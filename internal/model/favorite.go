package model

import "time"

// Favorite is a listing a user bookmarked. A user holds at most one
// favorite per listing.
type Favorite struct {
	UserID   string      `json:"userId"`
	ItemID   string      `json:"itemId"`
	ItemType ListingType `json:"itemType"`
	AddedAt  time.Time   `json:"addedAt"`
}

func (f Favorite) Ref() ListingRef {
	return ListingRef{ID: f.ItemID, Type: f.ItemType}
}
