package service

import (
	"context"
	"errors"

	"github.com/plume-sante/community-backend/internal/model"
	"github.com/plume-sante/community-backend/internal/repository"
	"gorm.io/gorm"
)

// ReactionService manages emoji reactions. Reactions live and die
// independently of message status; soft-deleted messages keep theirs.
type ReactionService interface {
	Add(ctx context.Context, messageID, personID uint64, emoji string) (*model.MessageReaction, error)
	// Remove reports whether a reaction actually existed.
	Remove(ctx context.Context, messageID, personID uint64, emoji string) (bool, error)
	ListForMessage(ctx context.Context, messageID uint64) ([]model.MessageReaction, error)
}

type reactionService struct {
	reactionRepo repository.ReactionRepository
	msgRepo      repository.MessageRepository
	memberRepo   repository.MemberRepository
}

func NewReactionService(reactionRepo repository.ReactionRepository, msgRepo repository.MessageRepository, memberRepo repository.MemberRepository) ReactionService {
	return &reactionService{reactionRepo: reactionRepo, msgRepo: msgRepo, memberRepo: memberRepo}
}

func (s *reactionService) Add(ctx context.Context, messageID, personID uint64, emoji string) (*model.MessageReaction, error) {
	if emoji == "" {
		return nil, errors.New("emoji is required")
	}
	msg, err := s.msgRepo.FindByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if _, err := s.memberRepo.Find(ctx, msg.ConversationID, personID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrForbidden
		}
		return nil, err
	}
	rc := &model.MessageReaction{MessageID: messageID, PersonID: personID, Emoji: emoji}
	if err := s.reactionRepo.Create(ctx, rc); err != nil {
		// Same (message, person, emoji) triple already there: idempotent.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return rc, nil
		}
		return nil, err
	}
	return rc, nil
}

func (s *reactionService) Remove(ctx context.Context, messageID, personID uint64, emoji string) (bool, error) {
	return s.reactionRepo.Delete(ctx, messageID, personID, emoji)
}

func (s *reactionService) ListForMessage(ctx context.Context, messageID uint64) ([]model.MessageReaction, error) {
	if _, err := s.msgRepo.FindByID(ctx, messageID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.reactionRepo.ListByMessage(ctx, messageID)
}
