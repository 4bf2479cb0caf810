package service

import (
	"strings"
	"time"

	"logimatch/internal/model"
)

// DisplayName is the label a caller sees for a listing. The company name is
// only shown to administrators and to users who revealed the listing; anyone
// else gets a placeholder built from the listing's region.
func DisplayName(listing model.Listing, listingType model.ListingType, session *model.Session, pass *model.ViewingPass) string {
	if isRevealedTo(listing, listingType, session, pass) {
		return listing.CompanyName
	}
	return maskedName(listing, listingType)
}

func maskedName(listing model.Listing, listingType model.ListingType) string {
	label := listingType.Label()

	switch {
	case listing.City != "" && listing.Dong != "":
		parts := make([]string, 0, 4)
		for _, part := range []string{listing.Location, listing.City, listing.Dong} {
			if part != "" {
				parts = append(parts, part)
			}
		}
		return strings.Join(append(parts, label), " ")
	case listing.Location != "":
		return listing.Location + " 지역 " + label
	default:
		return label
	}
}

func isRevealedTo(listing model.Listing, listingType model.ListingType, session *model.Session, pass *model.ViewingPass) bool {
	if session.IsAdmin() {
		return true
	}
	if !session.Authenticated() || pass == nil || pass.UserID != session.UserID {
		return false
	}
	return pass.HasViewed(listing.ID, listingType)
}

// ListingView is a listing as rendered for one caller. Identity and contact
// fields are empty unless Revealed is set.
type ListingView struct {
	ID             string            `json:"id"`
	Type           model.ListingType `json:"type"`
	DisplayName    string            `json:"display_name"`
	Revealed       bool              `json:"revealed"`
	CompanyName    string            `json:"company_name,omitempty"`
	ContactName    string            `json:"contact_name,omitempty"`
	ContactPhone   string            `json:"contact_phone,omitempty"`
	ContactEmail   string            `json:"contact_email,omitempty"`
	Location       string            `json:"location,omitempty"`
	City           string            `json:"city,omitempty"`
	Dong           string            `json:"dong,omitempty"`
	Products       []string          `json:"products,omitempty"`
	AvailableArea  *model.Measure    `json:"available_area,omitempty"`
	RequiredArea   *model.Measure    `json:"required_area,omitempty"`
	PalletCount    *model.Measure    `json:"pallet_count,omitempty"`
	Temperature    string            `json:"temperature,omitempty"`
	IsPremium      bool              `json:"is_premium"`
	PremiumEndDate *time.Time        `json:"premium_end_date,omitempty"`
	SubmittedAt    *time.Time        `json:"submitted_at,omitempty"`
	ApprovedAt     *time.Time        `json:"approved_at,omitempty"`
}

// PresentListing renders a listing for session, masking it unless revealed.
func PresentListing(listing model.Listing, listingType model.ListingType, session *model.Session, pass *model.ViewingPass) ListingView {
	revealed := isRevealedTo(listing, listingType, session, pass)
	view := ListingView{
		ID:             listing.ID,
		Type:           listingType,
		DisplayName:    DisplayName(listing, listingType, session, pass),
		Revealed:       revealed,
		Location:       listing.Location,
		City:           listing.City,
		Dong:           listing.Dong,
		Products:       listing.Products,
		AvailableArea:  listing.AvailableArea,
		RequiredArea:   listing.RequiredArea,
		PalletCount:    listing.PalletCount,
		Temperature:    string(listing.Temperature),
		IsPremium:      listing.IsPremium,
		PremiumEndDate: listing.PremiumEndDate,
		SubmittedAt:    listing.SubmittedAt,
		ApprovedAt:     listing.ApprovedAt,
	}
	if revealed {
		view.CompanyName = listing.CompanyName
		view.ContactName = listing.ContactName
		view.ContactPhone = listing.ContactPhone
		view.ContactEmail = listing.ContactEmail
	}
	return view
}

func PresentListings(listings []model.Listing, listingType model.ListingType, session *model.Session, pass *model.ViewingPass) []ListingView {
	out := make([]ListingView, 0, len(listings))
	for _, listing := range listings {
		out = append(out, PresentListing(listing, listingType, session, pass))
	}
	return out
}
