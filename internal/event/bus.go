package event

import (
	"strings"
	"sync"
	"time"
)

const (
	EventPassPurchased  = "pass.purchased"
	EventPassExtended   = "pass.extended"
	EventPassExhausted  = "pass.exhausted"
	EventPassExpiring   = "pass.expiring"
	EventPremiumApplied = "premium.applied"
	EventPremiumExpired = "premium.expired"
)

type PassPurchasedPayload struct {
	UserID         string    `json:"user_id"`
	PassID         string    `json:"pass_id"`
	PackageType    string    `json:"package_type"`
	Count          int       `json:"count"`
	Price          int64     `json:"price"`
	RemainingCount int       `json:"remaining_count"`
	ExpiryDate     time.Time `json:"expiry_date"`
}

type PassExtendedPayload struct {
	UserID         string    `json:"user_id"`
	PassID         string    `json:"pass_id"`
	ExpiryDate     time.Time `json:"expiry_date"`
	ExtensionPrice int64     `json:"extension_price"`
	BeforeExpiry   bool      `json:"before_expiry"`
}

type PassExhaustedPayload struct {
	UserID string `json:"user_id"`
	PassID string `json:"pass_id"`
}

type PassExpiringPayload struct {
	UserID        string    `json:"user_id"`
	PassID        string    `json:"pass_id"`
	RemainingDays int       `json:"remaining_days"`
	ExpiryDate    time.Time `json:"expiry_date"`
}

type PremiumAppliedPayload struct {
	UserID        string    `json:"user_id"`
	ApplicationID string    `json:"application_id"`
	ItemID        string    `json:"item_id"`
	ItemType      string    `json:"item_type"`
	PackageType   string    `json:"package_type"`
	Amount        int64     `json:"amount"`
	EndDate       time.Time `json:"end_date"`
}

type PremiumExpiredPayload struct {
	UserID   string    `json:"user_id,omitempty"`
	ItemID   string    `json:"item_id"`
	ItemType string    `json:"item_type"`
	EndDate  time.Time `json:"end_date"`
}

type Bus struct {
	handlers sync.Map
	mu       sync.Mutex
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) Subscribe(event string, handler func(payload any)) {
	if b == nil || handler == nil {
		return
	}

	eventName := strings.TrimSpace(event)
	if eventName == "" {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	handlers := make([]func(payload any), 0, 1)
	if current, ok := b.handlers.Load(eventName); ok {
		if casted, valid := current.([]func(payload any)); valid {
			handlers = append(handlers, casted...)
		}
	}
	handlers = append(handlers, handler)
	b.handlers.Store(eventName, handlers)
}

func (b *Bus) Publish(event string, payload any) {
	if b == nil {
		return
	}

	eventName := strings.TrimSpace(event)
	if eventName == "" {
		return
	}

	current, ok := b.handlers.Load(eventName)
	if !ok {
		return
	}

	handlers, ok := current.([]func(payload any))
	if !ok || len(handlers) == 0 {
		return
	}

	for _, handler := range handlers {
		if handler == nil {
			continue
		}
		go handler(payload)
	}
}
