package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"logimatch/internal/metrics"
	"logimatch/internal/model"
)

type AccessState string

const (
	AccessGranted        AccessState = "granted"
	AccessReadyToConfirm AccessState = "ready_to_confirm"
	AccessDenied         AccessState = "denied"
)

// AccessDecision is the outcome of checking whether a caller may see a
// listing's identity and contact details.
type AccessDecision struct {
	State          AccessState `json:"state"`
	Reason         ReasonCode  `json:"reason,omitempty"`
	Message        string      `json:"message,omitempty"`
	RemainingCount int         `json:"remaining_count"`
	ExpiryDate     *time.Time  `json:"expiry_date,omitempty"`
}

func (d AccessDecision) Granted() bool {
	return d.State == AccessGranted
}

type RevealResult struct {
	State          AccessState `json:"state"`
	Success        bool        `json:"success"`
	AlreadyViewed  bool        `json:"already_viewed,omitempty"`
	Reason         ReasonCode  `json:"reason,omitempty"`
	RemainingCount int         `json:"remaining_count"`
	Message        string      `json:"message,omitempty"`
	Expired        bool        `json:"expired,omitempty"`
}

// RevealPolicy decides access to listing details. The first matching rule
// wins: administrators, anonymous callers, expired ledgers, already revealed
// listings, missing entitlement, and finally a debit that needs confirmation.
type RevealPolicy struct {
	passes *ViewingPassService
	logger *zap.Logger
}

func NewRevealPolicy(passes *ViewingPassService, logger *zap.Logger) *RevealPolicy {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RevealPolicy{passes: passes, logger: logger}
}

func (p *RevealPolicy) CheckAccess(ctx context.Context, session *model.Session, ref model.ListingRef) (AccessDecision, error) {
	if session.IsAdmin() {
		return AccessDecision{State: AccessGranted, Reason: ReasonAdminBypass}, nil
	}
	if !session.Authenticated() {
		return AccessDecision{State: AccessDenied, Reason: ReasonNotLoggedIn, Message: messageNotLoggedIn}, nil
	}
	if !ref.Type.Valid() {
		return AccessDecision{}, ErrInvalidListingType
	}

	pass, err := p.passes.GetLedger(ctx, session.UserID)
	if err != nil {
		return AccessDecision{}, err
	}

	decision := AccessDecision{}
	if pass != nil {
		expiry := pass.ExpiryDate
		decision.RemainingCount = pass.RemainingCount
		decision.ExpiryDate = &expiry
	}

	switch {
	case pass != nil && p.passes.IsExpired(pass):
		decision.State = AccessDenied
		decision.Reason = ReasonExpired
		decision.Message = messageExpired
	case p.passes.HasBeenRevealed(pass, ref):
		decision.State = AccessGranted
		decision.Reason = ReasonAlreadyViewed
	case !p.passes.HasValidEntitlement(pass):
		decision.State = AccessDenied
		decision.Reason = ReasonNoEntitlement
		decision.Message = messageNoEntitlement
		if pass != nil && pass.RemainingCount <= 0 {
			decision.Message = messageExhausted
		}
	default:
		decision.State = AccessReadyToConfirm
	}

	p.logger.Debug("listing access checked",
		zap.String("user_id", session.UserID),
		zap.String("listing_id", ref.ID),
		zap.String("listing_type", string(ref.Type)),
		zap.String("state", string(decision.State)),
		zap.String("reason", string(decision.Reason)),
	)
	return decision, nil
}

// ConfirmReveal spends one view on the listing after the caller confirmed.
// It re-validates through the ledger debit, so a ledger that ran out or
// expired since CheckAccess is reported as such.
func (p *RevealPolicy) ConfirmReveal(
	ctx context.Context,
	session *model.Session,
	listing model.Listing,
	listingType model.ListingType,
) (RevealResult, error) {
	if session.IsAdmin() {
		metrics.IncReveal(string(ReasonAdminBypass))
		return RevealResult{State: AccessGranted, Success: true, Reason: ReasonAdminBypass}, nil
	}
	if !session.Authenticated() {
		metrics.IncReveal(string(ReasonNotLoggedIn))
		return RevealResult{State: AccessDenied, Reason: ReasonNotLoggedIn, Message: messageNotLoggedIn}, nil
	}

	ref := model.ListingRef{ID: listing.ID, Type: listingType}
	debit, err := p.passes.Debit(ctx, session.UserID, ref, listing.CompanyName)
	if err != nil {
		return RevealResult{}, err
	}

	result := RevealResult{
		State:          AccessDenied,
		Success:        debit.Success,
		AlreadyViewed:  debit.AlreadyViewed,
		Reason:         debit.Reason,
		RemainingCount: debit.RemainingCount,
		Message:        debit.Message,
		Expired:        debit.Expired,
	}
	if debit.Success {
		result.State = AccessGranted
	}

	outcome := string(result.Reason)
	if result.Success && !result.AlreadyViewed {
		outcome = "debited"
	}
	metrics.IncReveal(outcome)

	p.logger.Debug("listing reveal confirmed",
		zap.String("user_id", session.UserID),
		zap.String("listing_id", ref.ID),
		zap.String("listing_type", string(ref.Type)),
		zap.String("outcome", outcome),
		zap.Int("remaining_count", result.RemainingCount),
	)
	return result, nil
}
