package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

type ListingType string

const (
	ListingTypeWarehouse ListingType = "warehouse"
	ListingTypeCustomer  ListingType = "customer"
)

func ParseListingType(raw string) (ListingType, bool) {
	switch ListingType(strings.ToLower(strings.TrimSpace(raw))) {
	case ListingTypeWarehouse:
		return ListingTypeWarehouse, true
	case ListingTypeCustomer:
		return ListingTypeCustomer, true
	default:
		return "", false
	}
}

func (t ListingType) Valid() bool {
	return t == ListingTypeWarehouse || t == ListingTypeCustomer
}

// Label is the Korean noun shown in place of a masked company name.
func (t ListingType) Label() string {
	if t == ListingTypeWarehouse {
		return "창고"
	}
	return "고객사"
}

// Listing is a warehouse or customer record owned by the registration and
// approval flow. The core reads it and patches only the premium mirror fields.
type Listing struct {
	ID             string     `json:"id"`
	OwnerID        string     `json:"ownerId,omitempty"`
	CompanyName    string     `json:"companyName"`
	Location       string     `json:"location,omitempty"`
	City           string     `json:"city,omitempty"`
	Dong           string     `json:"dong,omitempty"`
	ContactName    string     `json:"contactName,omitempty"`
	ContactPhone   string     `json:"contactPhone,omitempty"`
	ContactEmail   string     `json:"contactEmail,omitempty"`
	Products       []string   `json:"products,omitempty"`
	AvailableArea  *Measure   `json:"availableArea,omitempty"`
	RequiredArea   *Measure   `json:"requiredArea,omitempty"`
	PalletCount    *Measure   `json:"palletCount,omitempty"`
	Temperature    FormText   `json:"temperature,omitempty"`
	SubmittedAt    *time.Time `json:"submittedAt,omitempty"`
	ApprovedAt     *time.Time `json:"approvedAt,omitempty"`
	IsPremium      bool       `json:"isPremium"`
	PremiumEndDate *time.Time `json:"premiumEndDate"`
}

// ListingRef identifies a listing across both collections.
type ListingRef struct {
	ID   string      `json:"id"`
	Type ListingType `json:"type"`
}

func (r ListingRef) String() string {
	return string(r.Type) + ":" + r.ID
}

// Area is the space a warehouse offers or a customer needs.
func (l Listing) Area() *Measure {
	if l.AvailableArea != nil {
		return l.AvailableArea
	}
	return l.RequiredArea
}

// Measure is a numeric form field. Registration forms store it either as a
// JSON number or as the raw input string; anything unparsable reads as zero.
type Measure float64

func (m *Measure) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.ReplaceAll(strings.TrimSpace(unquoted), ",", "")
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*m = 0
		return nil
	}
	*m = Measure(value)
	return nil
}

// FormText decodes a free-text form field and reads any non-string value as empty.
type FormText string

func (t *FormText) UnmarshalJSON(data []byte) error {
	*t = ""
	if !bytes.HasPrefix(bytes.TrimSpace(data), []byte(`"`)) {
		return nil
	}
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return nil
	}
	*t = FormText(value)
	return nil
}
