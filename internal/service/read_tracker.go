package service

import (
	"context"
	"errors"

	"github.com/plume-sante/community-backend/internal/model"
	"github.com/plume-sante/community-backend/internal/repository"
	"gorm.io/gorm"
)

// ReadTracker owns per-member read cursors and the unread counts derived
// from them.
type ReadTracker interface {
	// SetReadCursor advances the cursor; callers must not move it backward.
	SetReadCursor(ctx context.Context, convID, personID, lastReadMessageID uint64) error
	UnreadCount(ctx context.Context, convID, viewerID uint64) (int64, error)
}

type readTracker struct {
	db         *gorm.DB
	convRepo   repository.ConversationRepository
	memberRepo repository.MemberRepository
	msgRepo    repository.MessageRepository
	notifier   NotificationService
}

func NewReadTracker(db *gorm.DB, convRepo repository.ConversationRepository, memberRepo repository.MemberRepository, msgRepo repository.MessageRepository, notifier NotificationService) ReadTracker {
	return &readTracker{db: db, convRepo: convRepo, memberRepo: memberRepo, msgRepo: msgRepo, notifier: notifier}
}

func (t *readTracker) SetReadCursor(ctx context.Context, convID, personID, lastReadMessageID uint64) error {
	if _, err := t.memberRepo.Find(ctx, convID, personID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if err := t.memberRepo.SetReadCursor(ctx, convID, personID, lastReadMessageID, t.db.NowFunc()); err != nil {
		return err
	}
	if t.notifier != nil {
		_ = t.notifier.MarkByConversation(ctx, personID, convID)
	}
	return nil
}

func (t *readTracker) UnreadCount(ctx context.Context, convID, viewerID uint64) (int64, error) {
	if _, err := t.convRepo.FindByID(ctx, convID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	member, err := t.memberRepo.Find(ctx, convID, viewerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrForbidden
		}
		return 0, err
	}
	return t.msgRepo.CountUnread(ctx, convID, viewerID, member.LastReadMessageID)
}

// IsSeenByOther reports whether the viewer's last message has been read by
// the other party of a direct conversation. It is nil for groups, for an
// empty conversation and for messages the viewer did not author.
func IsSeenByOther(cv *model.Conversation, lastMessage *model.Message, viewerID uint64, other *model.ConversationMember) *bool {
	if cv == nil || cv.IsGroup || lastMessage == nil || other == nil {
		return nil
	}
	if lastMessage.SenderID != viewerID {
		return nil
	}
	seen := lastMessage.ID <= other.LastReadMessageID
	return &seen
}
