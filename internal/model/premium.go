package model

import "time"

const PremiumApplicationStatusActive = "active"

// PremiumSubscription is the current promotion window of one listing.
type PremiumSubscription struct {
	ItemID    string      `json:"itemId"`
	ItemType  ListingType `json:"itemType"`
	EndDate   time.Time   `json:"endDate"`
	IsPremium bool        `json:"isPremium"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// PremiumApplication is an append-only purchase record of a premium window.
type PremiumApplication struct {
	ID          string      `json:"id"`
	UserID      string      `json:"userId"`
	ItemID      string      `json:"itemId"`
	ItemType    ListingType `json:"itemType"`
	PackageType string      `json:"packageType"`
	Amount      int64       `json:"amount"`
	StartDate   time.Time   `json:"startDate"`
	EndDate     time.Time   `json:"endDate"`
	Status      string      `json:"status"`
	CreatedAt   time.Time   `json:"createdAt"`
	PaymentDate time.Time   `json:"paymentDate"`
}
