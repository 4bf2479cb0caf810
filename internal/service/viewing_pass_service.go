package service

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"logimatch/internal/event"
	"logimatch/internal/metrics"
	"logimatch/internal/model"
	"logimatch/internal/repository"
)

const (
	DefaultRecentViewedLimit = 10
	expiryWarningDays        = 7
)

var (
	ErrPassNotFound     = errors.New("viewing pass not found")
	ErrInvalidExtension = errors.New("invalid extension months")
	ErrUnauthenticated  = errors.New("authentication required")
)

// Messages shown to the user for each debit outcome.
const (
	messageNotLoggedIn   = "로그인이 필요합니다."
	messageNoEntitlement = "열람권이 없습니다."
	messageExpired       = "열람권이 만료되었습니다."
	messageExhausted     = "열람권이 모두 소진되었습니다."
)

// ReasonCode explains why access was granted or denied.
type ReasonCode string

const (
	ReasonAdminBypass   ReasonCode = "admin_bypass"
	ReasonAlreadyViewed ReasonCode = "already_viewed"
	ReasonNotLoggedIn   ReasonCode = "not_logged_in"
	ReasonNoEntitlement ReasonCode = "no_entitlement"
	ReasonExpired       ReasonCode = "expired"
	ReasonExhausted     ReasonCode = "exhausted"
)

// DebitResult is the business outcome of consuming one view. Denials are
// reported here; the error return of Debit is reserved for storage failures.
type DebitResult struct {
	Success        bool       `json:"success"`
	AlreadyViewed  bool       `json:"already_viewed,omitempty"`
	RemainingCount int        `json:"remaining_count"`
	Reason         ReasonCode `json:"reason,omitempty"`
	Message        string     `json:"message,omitempty"`
	Expired        bool       `json:"expired,omitempty"`
}

type MonthlyUsage struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

type UsageStatistics struct {
	MonthlyUsage  []MonthlyUsage            `json:"monthly_usage"`
	ItemTypeStats map[model.ListingType]int `json:"item_type_stats"`
	TotalUsed     int                       `json:"total_used"`
}

type ViewingPassService struct {
	passes   *repository.Collection[model.ViewingPass]
	eventBus *event.Bus
	logger   *zap.Logger

	now func() time.Time
}

func NewViewingPassService(store repository.Store, eventBus *event.Bus, logger *zap.Logger) *ViewingPassService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ViewingPassService{
		passes:   repository.NewCollection[model.ViewingPass](store, repository.CollectionViewingPasses),
		eventBus: eventBus,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// GetLedger returns the user's ledger, or nil when the user has none.
func (s *ViewingPassService) GetLedger(ctx context.Context, userID string) (*model.ViewingPass, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, nil
	}

	items, _, err := s.passes.Load(ctx)
	if err != nil {
		return nil, err
	}

	idx := findPassByUser(items, userID)
	if idx < 0 {
		return nil, nil
	}
	pass := items[idx]
	return &pass, nil
}

// IsExpired treats the exact expiry instant as still valid. A ledger without
// an expiry date counts as expired.
func (s *ViewingPassService) IsExpired(pass *model.ViewingPass) bool {
	return isPassExpired(pass, s.now())
}

func (s *ViewingPassService) HasValidEntitlement(pass *model.ViewingPass) bool {
	return hasValidEntitlement(pass, s.now())
}

func (s *ViewingPassService) HasBeenRevealed(pass *model.ViewingPass, ref model.ListingRef) bool {
	return pass.HasViewed(ref.ID, ref.Type)
}

// Debit consumes one view of ref from the user's ledger. Revealing the same
// listing again is free and leaves the ledger untouched.
func (s *ViewingPassService) Debit(
	ctx context.Context,
	userID string,
	ref model.ListingRef,
	listingName string,
) (DebitResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return DebitResult{Reason: ReasonNotLoggedIn, Message: messageNotLoggedIn}, nil
	}
	if !ref.Type.Valid() {
		return DebitResult{}, ErrInvalidListingType
	}
	if strings.TrimSpace(listingName) == "" {
		listingName = string(ref.Type) + "-" + ref.ID
	}

	var (
		result DebitResult
		passID string
	)
	err := s.passes.Mutate(ctx, func(items []model.ViewingPass) ([]model.ViewingPass, bool, error) {
		now := s.now()
		idx := findPassByUser(items, userID)
		if idx < 0 {
			result = DebitResult{Reason: ReasonNoEntitlement, Message: messageNoEntitlement}
			return items, false, nil
		}

		pass := &items[idx]
		passID = pass.ID
		switch {
		case pass.HasViewed(ref.ID, ref.Type):
			result = DebitResult{Success: true, AlreadyViewed: true, Reason: ReasonAlreadyViewed, RemainingCount: pass.RemainingCount}
			return items, false, nil
		case isPassExpired(pass, now):
			result = DebitResult{Reason: ReasonExpired, Message: messageExpired, Expired: true, RemainingCount: pass.RemainingCount}
			return items, false, nil
		case pass.RemainingCount <= 0:
			result = DebitResult{Reason: ReasonExhausted, Message: messageExhausted}
			return items, false, nil
		}

		pass.RemainingCount--
		pass.ViewedItems = append(pass.ViewedItems, model.ViewedItem{
			ItemID:   ref.ID,
			ItemType: ref.Type,
			ViewedAt: now,
		})
		pass.UsageHistory = append(pass.UsageHistory, model.UsageEntry{
			Date:      now,
			ItemID:    ref.ID,
			ItemType:  ref.Type,
			ItemName:  listingName,
			CountUsed: 1,
		})
		result = DebitResult{Success: true, RemainingCount: pass.RemainingCount}
		return items, true, nil
	})
	if err != nil {
		s.logger.Warn("debit viewing pass failed",
			zap.String("user_id", userID),
			zap.String("listing_id", ref.ID),
			zap.String("listing_type", string(ref.Type)),
			zap.Error(err),
		)
		return DebitResult{}, err
	}

	if result.Success && !result.AlreadyViewed && result.RemainingCount == 0 && s.eventBus != nil {
		s.eventBus.Publish(event.EventPassExhausted, event.PassExhaustedPayload{
			UserID: userID,
			PassID: passID,
		})
	}
	return result, nil
}

// Purchase credits a package to the user. A user keeps a single ledger: a
// repeat purchase adds its views to the current balance, pushes the expiry
// out to at least now plus the package validity and keeps the viewed set so
// earlier reveals stay free. Views left on an expired ledger are forfeited.
func (s *ViewingPassService) Purchase(ctx context.Context, userID, packageKey string) (*model.ViewingPass, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	pkg, err := LookupPassPackage(packageKey)
	if err != nil {
		return nil, err
	}

	var purchased model.ViewingPass
	err = s.passes.Mutate(ctx, func(items []model.ViewingPass) ([]model.ViewingPass, bool, error) {
		now := s.now()
		expiry := addMonths(now, pkg.ValidityMonths)
		record := model.PassPurchase{
			PackageType: pkg.Key,
			Count:       pkg.Count,
			Price:       pkg.Price,
			PurchasedAt: now,
		}

		idx := findPassByUser(items, userID)
		if idx < 0 {
			purchased = model.ViewingPass{
				ID:             uuid.NewString(),
				UserID:         userID,
				PackageType:    pkg.Key,
				Price:          pkg.Price,
				PurchaseDate:   now,
				ExpiryDate:     expiry,
				RemainingCount: pkg.Count,
				TotalCount:     pkg.Count,
				ViewedItems:    []model.ViewedItem{},
				UsageHistory:   []model.UsageEntry{},
				Purchases:      []model.PassPurchase{record},
			}
			return append(items, purchased), true, nil
		}

		pass := &items[idx]
		if isPassExpired(pass, now) {
			pass.RemainingCount = 0
		}
		pass.RemainingCount += pkg.Count
		pass.TotalCount += pkg.Count
		pass.ExpiryDate = laterOf(pass.ExpiryDate, expiry)
		pass.PackageType = pkg.Key
		pass.Price = pkg.Price
		pass.PurchaseDate = now
		pass.LastWarnedAt = nil
		pass.Purchases = append(pass.Purchases, record)
		purchased = *pass
		return items, true, nil
	})
	if err != nil {
		s.logger.Warn("purchase viewing pass failed",
			zap.String("user_id", userID),
			zap.String("package", pkg.Key),
			zap.Error(err),
		)
		return nil, err
	}

	metrics.IncPassPurchase(pkg.Key)
	s.logger.Info("viewing pass purchased",
		zap.String("user_id", userID),
		zap.String("pass_id", purchased.ID),
		zap.String("package", pkg.Key),
		zap.Int("remaining_count", purchased.RemainingCount),
	)
	if s.eventBus != nil {
		s.eventBus.Publish(event.EventPassPurchased, event.PassPurchasedPayload{
			UserID:         userID,
			PassID:         purchased.ID,
			PackageType:    pkg.Key,
			Count:          pkg.Count,
			Price:          pkg.Price,
			RemainingCount: purchased.RemainingCount,
			ExpiryDate:     purchased.ExpiryDate,
		})
	}
	return &purchased, nil
}

// Extend pushes the expiry of a ledger out by months counted from the later
// of now and the current expiry. The remaining count is not touched.
func (s *ViewingPassService) Extend(ctx context.Context, passID string, months int) (*model.ViewingPass, error) {
	passID = strings.TrimSpace(passID)
	if passID == "" {
		return nil, ErrPassNotFound
	}
	if months <= 0 {
		return nil, ErrInvalidExtension
	}

	var (
		extended     model.ViewingPass
		beforeExpiry bool
	)
	err := s.passes.Mutate(ctx, func(items []model.ViewingPass) ([]model.ViewingPass, bool, error) {
		now := s.now()
		idx := findPassByID(items, passID)
		if idx < 0 {
			return nil, false, ErrPassNotFound
		}

		pass := &items[idx]
		beforeExpiry = pass.ExpiryDate.After(now)
		pass.ExpiryDate = addMonths(laterOf(pass.ExpiryDate, now), months)
		pass.ExtendedAt = &now
		pass.ExtensionPrice = ExtensionPrice(beforeExpiry)
		pass.LastWarnedAt = nil
		extended = *pass
		return items, true, nil
	})
	if err != nil {
		if !errors.Is(err, ErrPassNotFound) {
			s.logger.Warn("extend viewing pass failed", zap.String("pass_id", passID), zap.Error(err))
		}
		return nil, err
	}

	metrics.IncPassExtension(beforeExpiry)
	if s.eventBus != nil {
		s.eventBus.Publish(event.EventPassExtended, event.PassExtendedPayload{
			UserID:         extended.UserID,
			PassID:         extended.ID,
			ExpiryDate:     extended.ExpiryDate,
			ExtensionPrice: extended.ExtensionPrice,
			BeforeExpiry:   beforeExpiry,
		})
	}
	return &extended, nil
}

func (s *ViewingPassService) UsageHistory(ctx context.Context, userID string) ([]model.UsageEntry, error) {
	pass, err := s.GetLedger(ctx, userID)
	if err != nil || pass == nil {
		return []model.UsageEntry{}, err
	}

	history := append([]model.UsageEntry(nil), pass.UsageHistory...)
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].Date.After(history[j].Date)
	})
	return history, nil
}

func (s *ViewingPassService) UsageStatistics(ctx context.Context, userID string) (UsageStatistics, error) {
	stats := UsageStatistics{
		MonthlyUsage: []MonthlyUsage{},
		ItemTypeStats: map[model.ListingType]int{
			model.ListingTypeWarehouse: 0,
			model.ListingTypeCustomer:  0,
		},
	}

	pass, err := s.GetLedger(ctx, userID)
	if err != nil || pass == nil {
		return stats, err
	}

	byMonth := make(map[string]int)
	for _, entry := range pass.UsageHistory {
		byMonth[entry.Date.UTC().Format("2006-01")] += entry.CountUsed
		if entry.ItemType == model.ListingTypeWarehouse {
			stats.ItemTypeStats[model.ListingTypeWarehouse] += entry.CountUsed
		} else {
			stats.ItemTypeStats[model.ListingTypeCustomer] += entry.CountUsed
		}
		stats.TotalUsed += entry.CountUsed
	}

	for month, count := range byMonth {
		stats.MonthlyUsage = append(stats.MonthlyUsage, MonthlyUsage{Month: month, Count: count})
	}
	sort.Slice(stats.MonthlyUsage, func(i, j int) bool {
		return stats.MonthlyUsage[i].Month < stats.MonthlyUsage[j].Month
	})
	return stats, nil
}

func (s *ViewingPassService) RecentViewed(ctx context.Context, userID string, limit int) ([]model.ViewedItem, error) {
	if limit <= 0 {
		limit = DefaultRecentViewedLimit
	}

	pass, err := s.GetLedger(ctx, userID)
	if err != nil || pass == nil {
		return []model.ViewedItem{}, err
	}

	items := append([]model.ViewedItem(nil), pass.ViewedItems...)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].ViewedAt.After(items[j].ViewedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// RemainingDays rounds a partial day up and never goes below zero.
func (s *ViewingPassService) RemainingDays(pass *model.ViewingPass) int {
	return remainingDays(pass, s.now())
}

func (s *ViewingPassService) ShouldWarnExpiry(pass *model.ViewingPass) bool {
	days := s.RemainingDays(pass)
	return days > 0 && days <= expiryWarningDays
}

// CanCompare allows side-by-side comparison of two listings the caller has
// already revealed. Administrators may compare anything.
func (s *ViewingPassService) CanCompare(ctx context.Context, session *model.Session, a, b model.ListingRef) (bool, error) {
	if session.IsAdmin() {
		return true, nil
	}
	if !session.Authenticated() {
		return false, nil
	}

	pass, err := s.GetLedger(ctx, session.UserID)
	if err != nil {
		return false, err
	}
	return pass.HasViewed(a.ID, a.Type) && pass.HasViewed(b.ID, b.Type), nil
}

// WarnExpiring publishes one expiry warning per ledger and UTC day for every
// ledger that runs out within the warning window.
func (s *ViewingPassService) WarnExpiring(ctx context.Context) (int, error) {
	var due []event.PassExpiringPayload
	err := s.passes.Mutate(ctx, func(items []model.ViewingPass) ([]model.ViewingPass, bool, error) {
		now := s.now()
		today := now.Truncate(24 * time.Hour)
		due = due[:0]

		for i := range items {
			pass := &items[i]
			days := remainingDays(pass, now)
			if days <= 0 || days > expiryWarningDays {
				continue
			}
			if pass.LastWarnedAt != nil && !pass.LastWarnedAt.Before(today) {
				continue
			}

			warnedAt := now
			pass.LastWarnedAt = &warnedAt
			due = append(due, event.PassExpiringPayload{
				UserID:        pass.UserID,
				PassID:        pass.ID,
				RemainingDays: days,
				ExpiryDate:    pass.ExpiryDate,
			})
		}
		return items, len(due) > 0, nil
	})
	if err != nil {
		return 0, err
	}

	if s.eventBus != nil {
		for _, payload := range due {
			s.eventBus.Publish(event.EventPassExpiring, payload)
		}
	}
	return len(due), nil
}

func isPassExpired(pass *model.ViewingPass, now time.Time) bool {
	if pass == nil || pass.ExpiryDate.IsZero() {
		return true
	}
	return pass.ExpiryDate.Before(now)
}

func hasValidEntitlement(pass *model.ViewingPass, now time.Time) bool {
	return pass != nil && pass.ExpiryDate.After(now) && pass.RemainingCount > 0
}

func remainingDays(pass *model.ViewingPass, now time.Time) int {
	if pass == nil || pass.ExpiryDate.IsZero() {
		return 0
	}
	days := int(math.Ceil(pass.ExpiryDate.Sub(now).Hours() / 24))
	if days < 0 {
		return 0
	}
	return days
}

func findPassByUser(items []model.ViewingPass, userID string) int {
	for i := range items {
		if items[i].UserID == userID {
			return i
		}
	}
	return -1
}

func findPassByID(items []model.ViewingPass, passID string) int {
	for i := range items {
		if items[i].ID == passID {
			return i
		}
	}
	return -1
}
