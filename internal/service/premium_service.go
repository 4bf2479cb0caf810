package service

import (
	"context"
	"errors"
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

var ErrNotListingOwner = errors.New("listing is not owned by the caller")

type PremiumService struct {
	applications *repository.Collection[model.PremiumApplication]
	items        *repository.Collection[model.PremiumSubscription]
	listings     *ListingCatalog
	eventBus     *event.Bus
	logger       *zap.Logger

	now func() time.Time
}

func NewPremiumService(
	store repository.Store,
	listings *ListingCatalog,
	eventBus *event.Bus,
	logger *zap.Logger,
) *PremiumService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &PremiumService{
		applications: repository.NewCollection[model.PremiumApplication](store, repository.CollectionPremiumApplications),
		items:        repository.NewCollection[model.PremiumSubscription](store, repository.CollectionPremiumItems),
		listings:     listings,
		eventBus:     eventBus,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Apply buys a premium window for a listing. A listing that is still premium
// keeps its remaining time: the new months are added to the later of now and
// the current end date.
func (s *PremiumService) Apply(
	ctx context.Context,
	session *model.Session,
	ref model.ListingRef,
	packageKey string,
) (*model.PremiumApplication, error) {
	if !session.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if !ref.Type.Valid() {
		return nil, ErrInvalidListingType
	}
	pkg, err := LookupPremiumPackage(packageKey)
	if err != nil {
		return nil, err
	}

	listing, err := s.listings.Find(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !session.IsAdmin() && listing.OwnerID != "" && listing.OwnerID != session.UserID {
		return nil, ErrNotListingOwner
	}

	var (
		window   model.PremiumSubscription
		previous *model.PremiumSubscription
		start    time.Time
	)
	err = s.items.Mutate(ctx, func(items []model.PremiumSubscription) ([]model.PremiumSubscription, bool, error) {
		now := s.now()
		idx := findSubscription(items, ref)

		previous = nil
		if idx >= 0 {
			prior := items[idx]
			previous = &prior
		}
		start = now
		if idx >= 0 && items[idx].IsPremium {
			start = laterOf(items[idx].EndDate, now)
		}
		window = model.PremiumSubscription{
			ItemID:    ref.ID,
			ItemType:  ref.Type,
			EndDate:   addMonths(start, pkg.Months),
			IsPremium: true,
			UpdatedAt: now,
		}

		if idx >= 0 {
			items[idx] = window
		} else {
			items = append(items, window)
		}
		return items, true, nil
	})
	if err != nil {
		s.logger.Warn("update premium window failed",
			zap.String("user_id", session.UserID),
			zap.String("listing_id", ref.ID),
			zap.String("listing_type", string(ref.Type)),
			zap.Error(err),
		)
		return nil, err
	}

	now := s.now()
	application := model.PremiumApplication{
		ID:          uuid.NewString(),
		UserID:      session.UserID,
		ItemID:      ref.ID,
		ItemType:    ref.Type,
		PackageType: pkg.Key,
		Amount:      pkg.Price,
		StartDate:   start,
		EndDate:     window.EndDate,
		Status:      model.PremiumApplicationStatusActive,
		CreatedAt:   now,
		PaymentDate: now,
	}
	err = s.applications.Mutate(ctx, func(items []model.PremiumApplication) ([]model.PremiumApplication, bool, error) {
		return append(items, application), true, nil
	})
	if err != nil {
		s.logger.Error("append premium application failed",
			zap.String("user_id", session.UserID),
			zap.String("listing_id", ref.ID),
			zap.String("listing_type", string(ref.Type)),
			zap.Error(err),
		)
		s.rollbackWindow(ctx, ref, window, previous)
		return nil, err
	}

	endDate := window.EndDate
	if err := s.listings.PatchPremium(ctx, ref, true, &endDate); err != nil {
		s.logger.Warn("mirror premium flag onto listing failed",
			zap.String("listing_id", ref.ID),
			zap.String("listing_type", string(ref.Type)),
			zap.Error(err),
		)
	}

	metrics.IncPremiumApplication(pkg.Key)
	s.logger.Info("premium application created",
		zap.String("user_id", session.UserID),
		zap.String("application_id", application.ID),
		zap.String("listing_id", ref.ID),
		zap.String("listing_type", string(ref.Type)),
		zap.Time("end_date", application.EndDate),
	)
	if s.eventBus != nil {
		s.eventBus.Publish(event.EventPremiumApplied, event.PremiumAppliedPayload{
			UserID:        session.UserID,
			ApplicationID: application.ID,
			ItemID:        ref.ID,
			ItemType:      string(ref.Type),
			PackageType:   pkg.Key,
			Amount:        pkg.Price,
			EndDate:       application.EndDate,
		})
	}
	return &application, nil
}

// rollbackWindow puts back the window Apply replaced when no application
// could be recorded for it. A window changed by someone else since is kept.
func (s *PremiumService) rollbackWindow(
	ctx context.Context,
	ref model.ListingRef,
	applied model.PremiumSubscription,
	previous *model.PremiumSubscription,
) {
	err := s.items.Mutate(ctx, func(items []model.PremiumSubscription) ([]model.PremiumSubscription, bool, error) {
		idx := findSubscription(items, ref)
		if idx < 0 || !items[idx].EndDate.Equal(applied.EndDate) || !items[idx].UpdatedAt.Equal(applied.UpdatedAt) {
			return items, false, nil
		}
		if previous == nil {
			return append(items[:idx], items[idx+1:]...), true, nil
		}
		items[idx] = *previous
		return items, true, nil
	})
	if err != nil {
		s.logger.Error("roll back premium window failed",
			zap.String("listing_id", ref.ID),
			zap.String("listing_type", string(ref.Type)),
			zap.Error(err),
		)
	}
}

// IsActive reports whether the listing has a premium window ending after now.
// A window found expired is materialised on the spot: the subscription and
// the listing mirror are both flipped to non-premium.
func (s *PremiumService) IsActive(ctx context.Context, ref model.ListingRef) (bool, error) {
	items, _, err := s.items.Load(ctx)
	if err != nil {
		return false, err
	}

	idx := findSubscription(items, ref)
	if idx < 0 {
		return false, nil
	}
	if items[idx].EndDate.After(s.now()) {
		return true, nil
	}
	if !items[idx].IsPremium {
		return false, nil
	}

	if _, err := s.expire(ctx, []model.ListingRef{ref}); err != nil {
		return false, err
	}
	return false, nil
}

// ActiveSet resolves IsActive for many listings with a single read, applying
// the same expiry materialisation.
func (s *PremiumService) ActiveSet(ctx context.Context, listingType model.ListingType) (map[string]bool, error) {
	items, _, err := s.items.Load(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	active := make(map[string]bool)
	var lapsed []model.ListingRef
	for _, item := range items {
		if item.ItemType != listingType {
			continue
		}
		if item.EndDate.After(now) {
			active[item.ItemID] = true
			continue
		}
		if item.IsPremium {
			lapsed = append(lapsed, model.ListingRef{ID: item.ItemID, Type: item.ItemType})
		}
	}

	if len(lapsed) > 0 {
		if _, err := s.expire(ctx, lapsed); err != nil {
			return nil, err
		}
	}
	return active, nil
}

// SweepExpired flips every lapsed premium window and returns how many were flipped.
func (s *PremiumService) SweepExpired(ctx context.Context) (int, error) {
	items, _, err := s.items.Load(ctx)
	if err != nil {
		return 0, err
	}

	now := s.now()
	var lapsed []model.ListingRef
	for _, item := range items {
		if item.IsPremium && !item.EndDate.After(now) {
			lapsed = append(lapsed, model.ListingRef{ID: item.ItemID, Type: item.ItemType})
		}
	}
	if len(lapsed) == 0 {
		return 0, nil
	}
	return s.expire(ctx, lapsed)
}

// HistoryFor lists every application for a listing, newest first.
func (s *PremiumService) HistoryFor(ctx context.Context, ref model.ListingRef) ([]model.PremiumApplication, error) {
	items, _, err := s.applications.Load(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]model.PremiumApplication, 0)
	for _, item := range items {
		if item.ItemID == ref.ID && item.ItemType == ref.Type {
			out = append(out, item)
		}
	}
	sortApplicationsNewestFirst(out)
	return out, nil
}

func (s *PremiumService) ApplicationsByUser(ctx context.Context, userID string) ([]model.PremiumApplication, error) {
	items, _, err := s.applications.Load(ctx)
	if err != nil {
		return nil, err
	}

	userID = strings.TrimSpace(userID)
	out := make([]model.PremiumApplication, 0)
	for _, item := range items {
		if item.UserID == userID {
			out = append(out, item)
		}
	}
	sortApplicationsNewestFirst(out)
	return out, nil
}

// LatestApplications maps listing id to the creation time of its newest
// application, for one listing type.
func (s *PremiumService) LatestApplications(ctx context.Context, listingType model.ListingType) (map[string]time.Time, error) {
	items, _, err := s.applications.Load(ctx)
	if err != nil {
		return nil, err
	}

	latest := make(map[string]time.Time)
	for _, item := range items {
		if item.ItemType != listingType {
			continue
		}
		if current, ok := latest[item.ItemID]; !ok || item.CreatedAt.After(current) {
			latest[item.ItemID] = item.CreatedAt
		}
	}
	return latest, nil
}

// IsOwner reports whether userID registered the listing or holds an active
// premium application for it.
func (s *PremiumService) IsOwner(ctx context.Context, userID string, ref model.ListingRef) (bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false, nil
	}

	listing, err := s.listings.Find(ctx, ref)
	if err != nil && !errors.Is(err, ErrListingNotFound) {
		return false, err
	}
	if listing != nil && listing.OwnerID == userID {
		return true, nil
	}

	items, _, err := s.applications.Load(ctx)
	if err != nil {
		return false, err
	}
	for _, item := range items {
		if item.UserID == userID &&
			item.ItemID == ref.ID &&
			item.ItemType == ref.Type &&
			item.Status == model.PremiumApplicationStatusActive {
			return true, nil
		}
	}
	return false, nil
}

// expire flips the given lapsed windows to non-premium. Only the caller that
// performs the flip mirrors it onto the listing and publishes the event, so a
// window expires exactly once however many readers race on it.
func (s *PremiumService) expire(ctx context.Context, refs []model.ListingRef) (int, error) {
	var flipped []model.PremiumSubscription
	err := s.items.Mutate(ctx, func(items []model.PremiumSubscription) ([]model.PremiumSubscription, bool, error) {
		now := s.now()
		flipped = flipped[:0]
		for _, ref := range refs {
			idx := findSubscription(items, ref)
			if idx < 0 || !items[idx].IsPremium || items[idx].EndDate.After(now) {
				continue
			}
			items[idx].IsPremium = false
			items[idx].UpdatedAt = now
			flipped = append(flipped, items[idx])
		}
		return items, len(flipped) > 0, nil
	})
	if err != nil {
		s.logger.Warn("expire premium windows failed", zap.Int("count", len(refs)), zap.Error(err))
		return 0, err
	}

	var firstErr error
	for _, item := range flipped {
		ref := model.ListingRef{ID: item.ItemID, Type: item.ItemType}
		if err := s.listings.PatchPremium(ctx, ref, false, nil); err != nil {
			s.logger.Warn("clear premium flag on listing failed",
				zap.String("listing_id", ref.ID),
				zap.String("listing_type", string(ref.Type)),
				zap.Error(err),
			)
			if firstErr == nil {
				firstErr = err
			}
		}

		metrics.IncPremiumExpired()
		if s.eventBus != nil {
			s.eventBus.Publish(event.EventPremiumExpired, event.PremiumExpiredPayload{
				UserID:   s.premiumHolder(ctx, ref),
				ItemID:   ref.ID,
				ItemType: string(ref.Type),
				EndDate:  item.EndDate,
			})
		}
	}

	return len(flipped), firstErr
}

// premiumHolder is the user who bought the most recent window, falling back
// to the listing owner.
func (s *PremiumService) premiumHolder(ctx context.Context, ref model.ListingRef) string {
	history, err := s.HistoryFor(ctx, ref)
	if err == nil && len(history) > 0 {
		return history[0].UserID
	}

	listing, err := s.listings.Find(ctx, ref)
	if err != nil {
		return ""
	}
	return listing.OwnerID
}

func findSubscription(items []model.PremiumSubscription, ref model.ListingRef) int {
	for i := range items {
		if items[i].ItemID == ref.ID && items[i].ItemType == ref.Type {
			return i
		}
	}
	return -1
}

func sortApplicationsNewestFirst(items []model.PremiumApplication) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}
