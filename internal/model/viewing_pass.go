package model

import "time"

// ViewingPass is the per-user viewing-pass ledger.
type ViewingPass struct {
	ID             string         `json:"id"`
	UserID         string         `json:"userId"`
	PackageType    string         `json:"packageType,omitempty"`
	Price          int64          `json:"price,omitempty"`
	PurchaseDate   time.Time      `json:"purchaseDate"`
	ExpiryDate     time.Time      `json:"expiryDate"`
	RemainingCount int            `json:"remainingCount"`
	TotalCount     int            `json:"totalCount"`
	ViewedItems    []ViewedItem   `json:"viewedItems"`
	UsageHistory   []UsageEntry   `json:"usedHistory"`
	Purchases      []PassPurchase `json:"purchases,omitempty"`
	ExtendedAt     *time.Time     `json:"extendedAt,omitempty"`
	ExtensionPrice int64          `json:"extensionPrice,omitempty"`
	LastWarnedAt   *time.Time     `json:"lastWarnedAt,omitempty"`
}

type ViewedItem struct {
	ItemID   string      `json:"itemId"`
	ItemType ListingType `json:"itemType"`
	ViewedAt time.Time   `json:"viewedAt"`
}

type UsageEntry struct {
	Date      time.Time   `json:"date"`
	ItemID    string      `json:"itemId"`
	ItemType  ListingType `json:"itemType"`
	ItemName  string      `json:"itemName"`
	CountUsed int         `json:"countUsed"`
}

type PassPurchase struct {
	PackageType string    `json:"packageType"`
	Count       int       `json:"count"`
	Price       int64     `json:"price"`
	PurchasedAt time.Time `json:"purchasedAt"`
}

func (p *ViewingPass) HasViewed(itemID string, itemType ListingType) bool {
	if p == nil {
		return false
	}
	for _, item := range p.ViewedItems {
		if item.ItemID == itemID && item.ItemType == itemType {
			return true
		}
	}
	return false
}
