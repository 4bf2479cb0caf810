package service

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"logimatch/internal/event"
	"logimatch/internal/model"
	"logimatch/internal/sse"
)

const notificationDateLayout = "2006-01-02"

const subscriberTimeout = 10 * time.Second

// Subscribe turns domain events into user notifications.
func (s *NotificationService) Subscribe(bus *event.Bus) {
	if bus == nil {
		return
	}

	bus.Subscribe(event.EventPassPurchased, func(payload any) {
		data, ok := payload.(event.PassPurchasedPayload)
		if !ok {
			s.logger.Debug("skip purchase notification: invalid payload")
			return
		}

		packageName := data.PackageType
		if pkg, err := LookupPassPackage(data.PackageType); err == nil {
			packageName = pkg.Name
		}
		s.notifyFromEvent(data.UserID, model.NotificationPurchase, map[string]string{
			"package_name":    packageName,
			"remaining_count": strconv.Itoa(data.RemainingCount),
			"expiry_date":     data.ExpiryDate.Format(notificationDateLayout),
		})
		s.pushPassUpdate(data.UserID, data.RemainingCount, data.ExpiryDate)
	})

	bus.Subscribe(event.EventPassExtended, func(payload any) {
		data, ok := payload.(event.PassExtendedPayload)
		if !ok {
			s.logger.Debug("skip extension notification: invalid payload")
			return
		}

		s.notifyFromEvent(data.UserID, model.NotificationExtension, map[string]string{
			"expiry_date": data.ExpiryDate.Format(notificationDateLayout),
			"price":       strconv.FormatInt(data.ExtensionPrice, 10),
		})
	})

	bus.Subscribe(event.EventPassExhausted, func(payload any) {
		data, ok := payload.(event.PassExhaustedPayload)
		if !ok {
			return
		}
		s.sseHub.Publish(sse.ToUser(data.UserID), sse.NewEvent(sse.EventPassUpdated, map[string]any{
			"pass_id":         data.PassID,
			"remaining_count": 0,
		}))
	})

	bus.Subscribe(event.EventPassExpiring, func(payload any) {
		data, ok := payload.(event.PassExpiringPayload)
		if !ok {
			s.logger.Debug("skip expiry warning: invalid payload")
			return
		}

		s.notifyFromEvent(data.UserID, model.NotificationExpiryWarning, map[string]string{
			"remaining_days": strconv.Itoa(data.RemainingDays),
			"expiry_date":    data.ExpiryDate.Format(notificationDateLayout),
		})
	})

	bus.Subscribe(event.EventPremiumApplied, func(payload any) {
		data, ok := payload.(event.PremiumAppliedPayload)
		if !ok {
			s.logger.Debug("skip premium notification: invalid payload")
			return
		}

		packageName := data.PackageType
		if pkg, err := LookupPremiumPackage(data.PackageType); err == nil {
			packageName = pkg.Name
		}
		s.notifyFromEvent(data.UserID, model.NotificationPremium, map[string]string{
			"package_name": packageName,
			"end_date":     data.EndDate.Format(notificationDateLayout),
		})
		s.sseHub.Publish(sse.Everyone(), sse.NewEvent(sse.EventPremiumStatus, map[string]any{
			"item_id":    data.ItemID,
			"item_type":  data.ItemType,
			"is_premium": true,
			"end_date":   data.EndDate,
		}))
		s.sseHub.Publish(sse.ToRole(model.RoleAdmin), sse.NewEvent(sse.EventPremiumApplication, data))
	})

	bus.Subscribe(event.EventPremiumExpired, func(payload any) {
		data, ok := payload.(event.PremiumExpiredPayload)
		if !ok {
			s.logger.Debug("skip premium expired notification: invalid payload")
			return
		}

		s.sseHub.Publish(sse.Everyone(), sse.NewEvent(sse.EventPremiumStatus, map[string]any{
			"item_id":    data.ItemID,
			"item_type":  data.ItemType,
			"is_premium": false,
		}))
		if data.UserID == "" {
			return
		}
		s.notifyFromEvent(data.UserID, model.NotificationPremiumExpired, map[string]string{
			"item_label": model.ListingType(data.ItemType).Label(),
			"end_date":   data.EndDate.Format(notificationDateLayout),
		})
	})
}

func (s *NotificationService) notifyFromEvent(userID string, notificationType model.NotificationType, vars map[string]string) {
	ctx, cancel := context.WithTimeout(context.Background(), subscriberTimeout)
	defer cancel()

	if _, err := s.NotifyTemplate(ctx, userID, notificationType, vars); err != nil {
		s.logger.Warn("create notification failed",
			zap.String("user_id", userID),
			zap.String("type", string(notificationType)),
			zap.Error(err),
		)
	}
}

func (s *NotificationService) pushPassUpdate(userID string, remaining int, expiry time.Time) {
	s.sseHub.Publish(sse.ToUser(userID), sse.NewEvent(sse.EventPassUpdated, map[string]any{
		"remaining_count": remaining,
		"expiry_date":     expiry,
	}))
}
