package service

import (
	"context"

	"github.com/plume-sante/community-backend/internal/model"
	"github.com/plume-sante/community-backend/internal/repository"
)

type NotificationService interface {
	Notify(ctx context.Context, recipientID uint64, kind model.NotificationKind, convID, msgID *uint64)
	List(ctx context.Context, recipientID uint64, unreadOnly bool, limit int) ([]model.Notification, int64, error)
	MarkAllRead(ctx context.Context, recipientID uint64) error
	MarkByConversation(ctx context.Context, recipientID, convID uint64) error
}

type notificationService struct {
	repo repository.NotificationRepository
}

func NewNotificationService(repo repository.NotificationRepository) NotificationService {
	return &notificationService{repo: repo}
}

// Notify is best-effort; it never returns an error so it cannot break the
// flows that trigger it. Bodies are not copied into previews on purpose:
// message content stays inside the encrypted rows.
func (s *notificationService) Notify(ctx context.Context, recipientID uint64, kind model.NotificationKind, convID, msgID *uint64) {
	if recipientID == 0 || kind == "" {
		return
	}
	n := &model.Notification{
		RecipientID:    recipientID,
		Kind:           kind,
		ConversationID: convID,
		MessageID:      msgID,
	}
	_ = s.repo.Create(ctx, n)
}

func (s *notificationService) List(ctx context.Context, recipientID uint64, unreadOnly bool, limit int) ([]model.Notification, int64, error) {
	if recipientID == 0 {
		return nil, 0, nil
	}
	list, err := s.repo.ListByRecipient(ctx, recipientID, unreadOnly, limit)
	if err != nil {
		return nil, 0, err
	}
	cnt, err := s.repo.CountUnread(ctx, recipientID)
	if err != nil {
		return list, 0, err
	}
	return list, cnt, nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, recipientID uint64) error {
	if recipientID == 0 {
		return nil
	}
	return s.repo.MarkAllRead(ctx, recipientID)
}

func (s *notificationService) MarkByConversation(ctx context.Context, recipientID, convID uint64) error {
	if recipientID == 0 || convID == 0 {
		return nil
	}
	return s.repo.MarkByConversation(ctx, recipientID, convID)
}
