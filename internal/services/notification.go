package services

import (
	"context"
	"fmt"
	"time"

	"consultations/internal/domain"
)

type notificationService struct {
	notificationRepo domain.NotificationRepository
	contextTimeout   time.Duration
}

func NewNotificationService(notificationRepo domain.NotificationRepository, timeout time.Duration) domain.NotificationService {
	return &notificationService{notificationRepo: notificationRepo, contextTimeout: timeout}
}

func (s *notificationService) List(ctx context.Context, actor domain.Identity, page domain.PaginationParams) (domain.Page[*domain.Notification], error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	result, err := s.notificationRepo.ListByRecipient(ctx, actor.UserID, page)
	if err != nil {
		return domain.Page[*domain.Notification]{}, fmt.Errorf("list notifications: %w", err)
	}
	return result, nil
}

func (s *notificationService) UnseenCount(ctx context.Context, actor domain.Identity) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	n, err := s.notificationRepo.CountUnseen(ctx, actor.UserID)
	if err != nil {
		return 0, fmt.Errorf("count unseen notifications: %w", err)
	}
	return n, nil
}

// MarkSeen is idempotent. Only the recipient may mark a notification.
func (s *notificationService) MarkSeen(ctx context.Context, actor domain.Identity, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	n, err := s.notificationRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if n.RecipientID != actor.UserID {
		return domain.ErrPermissionDenied
	}
	if n.Seen {
		return nil
	}
	return s.notificationRepo.MarkSeen(ctx, id)
}
