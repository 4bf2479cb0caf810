package model

import "time"

type NotificationType string

const (
	NotificationPurchase       NotificationType = "purchase"
	NotificationExtension      NotificationType = "extension"
	NotificationPremium        NotificationType = "premium"
	NotificationExpiryWarning  NotificationType = "expiry_warning"
	NotificationPremiumExpired NotificationType = "premium_expired"
)

type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"userId"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"createdAt"`
}
