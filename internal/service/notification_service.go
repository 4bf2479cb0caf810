package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"logimatch/internal/model"
	"logimatch/internal/repository"
	"logimatch/internal/sse"
	tplfs "logimatch/templates"
)

var ErrNotificationNotFound = errors.New("notification not found")

var notificationTemplateFiles = map[model.NotificationType]string{
	model.NotificationPurchase:       "notifications/purchase.tmpl",
	model.NotificationExtension:      "notifications/extension.tmpl",
	model.NotificationPremium:        "notifications/premium.tmpl",
	model.NotificationExpiryWarning:  "notifications/expiry_warning.tmpl",
	model.NotificationPremiumExpired: "notifications/premium_expired.tmpl",
}

// NotificationService stores per-user notifications and pushes each new one
// to the user's live event stream.
type NotificationService struct {
	notifications *repository.Collection[model.Notification]
	sseHub        *sse.Hub
	logger        *zap.Logger
	writeMu       sync.Mutex
	templateMu    sync.RWMutex
	templates     map[model.NotificationType]*template.Template

	now func() time.Time
}

func NewNotificationService(store repository.Store, sseHub *sse.Hub, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &NotificationService{
		notifications: repository.NewCollection[model.Notification](store, repository.CollectionNotifications),
		sseHub:        sseHub,
		logger:        logger,
		templates:     make(map[model.NotificationType]*template.Template),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *NotificationService) Notify(
	ctx context.Context,
	userID string,
	notificationType model.NotificationType,
	title string,
	message string,
) (*model.Notification, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	notification := model.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      notificationType,
		Title:     title,
		Message:   message,
		CreatedAt: s.now(),
	}
	// Writes from one process go through writeMu so a burst of events never
	// exhausts the optimistic retries against itself.
	s.writeMu.Lock()
	err := s.notifications.Mutate(ctx, func(items []model.Notification) ([]model.Notification, bool, error) {
		return append(items, notification), true, nil
	})
	s.writeMu.Unlock()
	if err != nil {
		return nil, err
	}

	s.sseHub.Publish(sse.ToUser(userID), sse.NewEvent(sse.EventNotification, notification))
	return &notification, nil
}

// NotifyTemplate renders the title and message registered for notificationType.
func (s *NotificationService) NotifyTemplate(
	ctx context.Context,
	userID string,
	notificationType model.NotificationType,
	vars map[string]string,
) (*model.Notification, error) {
	title, message, err := s.render(notificationType, vars)
	if err != nil {
		return nil, err
	}
	return s.Notify(ctx, userID, notificationType, title, message)
}

func (s *NotificationService) List(ctx context.Context, userID string) ([]model.Notification, error) {
	items, _, err := s.notifications.Load(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]model.Notification, 0)
	for _, item := range items {
		if item.UserID == userID {
			out = append(out, item)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.notifications.Mutate(ctx, func(items []model.Notification) ([]model.Notification, bool, error) {
		for i := range items {
			if items[i].ID != notificationID || items[i].UserID != userID {
				continue
			}
			if items[i].Read {
				return items, false, nil
			}
			items[i].Read = true
			return items, true, nil
		}
		return nil, false, ErrNotificationNotFound
	})
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	items, _, err := s.notifications.Load(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, item := range items {
		if item.UserID == userID && !item.Read {
			count++
		}
	}
	return count, nil
}

func (s *NotificationService) render(
	notificationType model.NotificationType,
	vars map[string]string,
) (string, string, error) {
	tpl, err := s.loadTemplate(notificationType)
	if err != nil {
		return "", "", err
	}

	title := bytes.NewBuffer(nil)
	if err := tpl.ExecuteTemplate(title, "title", vars); err != nil {
		return "", "", err
	}
	message := bytes.NewBuffer(nil)
	if err := tpl.ExecuteTemplate(message, "message", vars); err != nil {
		return "", "", err
	}
	return strings.TrimSpace(title.String()), strings.TrimSpace(message.String()), nil
}

func (s *NotificationService) loadTemplate(name model.NotificationType) (*template.Template, error) {
	s.templateMu.RLock()
	if tpl, ok := s.templates[name]; ok {
		s.templateMu.RUnlock()
		return tpl, nil
	}
	s.templateMu.RUnlock()

	file, ok := notificationTemplateFiles[name]
	if !ok {
		return nil, fmt.Errorf("notification template not found: %s", name)
	}

	raw, err := tplfs.NotificationTemplateFS.ReadFile(file)
	if err != nil {
		return nil, err
	}

	tpl, err := template.New(file).Option("missingkey=zero").Parse(string(raw))
	if err != nil {
		return nil, err
	}

	s.templateMu.Lock()
	s.templates[name] = tpl
	s.templateMu.Unlock()
	return tpl, nil
}
