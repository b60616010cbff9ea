package notification

import (
	"context"

	"github.com/oggyb/birdie/internal/app"
	svcErr "github.com/oggyb/birdie/internal/errors"
	"github.com/oggyb/birdie/internal/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Page is one slice of a user's notification list.
type Page struct {
	Items []repository.NotificationView
	// NextPaginationToken is nil on the last page.
	NextPaginationToken *string
}

// Service reads and acknowledges notifications written by the swipe engine.
type Service struct {
	appCtx *app.AppContext
	repo   *repository.NotificationRepository
}

// NewNotificationService creates a new Service instance.
func NewNotificationService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx: appCtx,
		repo:   repository.NewNotificationRepository(appCtx.DB),
	}
}

// List returns userID's notifications, newest first.
//
// Behavior:
//   - limit defaults to 20 and is capped at 100.
//   - token is the NextPaginationToken of the previous page; a malformed
//     token is InvalidInput.
//   - Each item carries the related user's primary photo URL, or null.
//
// Example:
//
//	page, err := svc.List(ctx, 42, nil, 20)
//	next, err := svc.List(ctx, 42, page.NextPaginationToken, 20)
func (s *Service) List(ctx context.Context, userID uint64, token *string, limit int) (*Page, error) {
	s.appCtx.Logger.Debug("List notifications called", "user", userID, "limit", limit)

	if userID == 0 {
		return nil, svcErr.InvalidInput("User ID required")
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	items, next, err := s.repo.ListForUser(ctx, userID, token, limit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []repository.NotificationView{}
	}
	return &Page{Items: items, NextPaginationToken: next}, nil
}

// MarkAsRead flags one of userID's notifications as read. Marking someone
// else's notification, or one that does not exist, is NotFound.
func (s *Service) MarkAsRead(ctx context.Context, userID, notificationID uint64) error {
	s.appCtx.Logger.Debug("MarkAsRead called", "user", userID, "notification", notificationID)

	if userID == 0 || notificationID == 0 {
		return svcErr.InvalidInput("User ID and notification ID are required")
	}

	updated, err := s.repo.MarkAsRead(ctx, notificationID, userID)
	if err != nil {
		return err
	}
	if !updated {
		// already-read rows report zero affected rows on some drivers
		owned, err := s.repo.OwnedBy(ctx, notificationID, userID)
		if err != nil {
			return err
		}
		if !owned {
			return svcErr.NotFound("Notification not found")
		}
	}

	s.appCtx.InvalidateUnread(ctx, userID)
	return nil
}

// UnreadCount returns how many unread notifications userID has.
//
// Behavior:
//  1. Checks Redis first and refreshes the key's TTL on a hit.
//  2. On a miss (or without Redis) counts in the DB.
//  3. Stores the DB count back with a 1h TTL.
//
// Redis failures are logged and fall through to the DB.
func (s *Service) UnreadCount(ctx context.Context, userID uint64) (int64, error) {
	if userID == 0 {
		return 0, svcErr.InvalidInput("User ID required")
	}

	rc := s.appCtx.RedisCache
	if rc != nil {
		n, ok, err := rc.GetUnreadCount(ctx, userID)
		if err != nil {
			s.appCtx.Logger.Warn("unread cache read failed", "user", userID, "error", err)
		} else if ok {
			return n, nil
		}
	}

	n, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, err
	}

	if rc != nil {
		if err := rc.SetUnreadCount(ctx, userID, n); err != nil {
			s.appCtx.Logger.Warn("unread cache write failed", "user", userID, "error", err)
		}
	}
	return n, nil
}
