package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/plume-sante/community-backend/internal/model"
	"github.com/plume-sante/community-backend/internal/repository"
	"gorm.io/gorm"
)

// MembershipService handles departures and conversation teardown. Every
// operation here is one unit of work: a failure at any step rolls the whole
// thing back.
type MembershipService interface {
	// LeaveDirect reports false when the person was not a member (no-op).
	LeaveDirect(ctx context.Context, convID, personID uint64, softDeleteOwnMessages bool) (bool, error)
	LeaveGroup(ctx context.Context, convID, personID uint64, softDeleteOwnMessages bool) (bool, error)
	DeleteGroup(ctx context.Context, convID, requesterID uint64, hardDelete bool) error
	SetMuted(ctx context.Context, convID, personID uint64, muted bool) error
}

type membershipService struct {
	db           *gorm.DB
	convRepo     repository.ConversationRepository
	memberRepo   repository.MemberRepository
	msgRepo      repository.MessageRepository
	reactionRepo repository.ReactionRepository
	personRepo   repository.PersonRepository
	notifier     NotificationService
}

func NewMembershipService(db *gorm.DB, convRepo repository.ConversationRepository, memberRepo repository.MemberRepository, msgRepo repository.MessageRepository, reactionRepo repository.ReactionRepository, personRepo repository.PersonRepository, notifier NotificationService) MembershipService {
	return &membershipService{
		db:           db,
		convRepo:     convRepo,
		memberRepo:   memberRepo,
		msgRepo:      msgRepo,
		reactionRepo: reactionRepo,
		personRepo:   personRepo,
		notifier:     notifier,
	}
}

func (s *membershipService) LeaveDirect(ctx context.Context, convID, personID uint64, softDeleteOwnMessages bool) (bool, error) {
	cv, err := s.convRepo.FindByID(ctx, convID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	if cv.IsGroup {
		return false, ErrNotDirect
	}

	// Identity lookup is a collaborator call, kept outside the transaction.
	pseudo := s.pseudoOf(ctx, personID)
	notice := fmt.Sprintf("%s left the conversation", pseudo)

	left := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		members := s.memberRepo.WithTx(tx)
		if _, err := members.Find(ctx, convID, personID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		left = true
		msgs := s.msgRepo.WithTx(tx)
		convs := s.convRepo.WithTx(tx)
		if softDeleteOwnMessages {
			if err := s.softDeleteOwn(ctx, tx, convID, personID); err != nil {
				return err
			}
		}
		if err := members.Delete(ctx, convID, personID); err != nil {
			return err
		}
		now := s.db.NowFunc()
		if err := convs.SetLastMessageAt(ctx, convID, &now); err != nil {
			return err
		}
		// The title is overwritten even when one was set before; callers
		// rely on the departure notice being visible to the remaining party.
		if err := convs.SetTitle(ctx, convID, notice); err != nil {
			return err
		}
		if err := convs.ClearDirectKey(ctx, convID); err != nil {
			return err
		}
		remaining, err := members.Count(ctx, convID)
		if err != nil {
			return err
		}
		if remaining == 0 {
			return s.teardown(ctx, tx, convID, msgs)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if left {
		s.notifyDeparture(ctx, convID, personID)
	}
	return left, nil
}

func (s *membershipService) LeaveGroup(ctx context.Context, convID, personID uint64, softDeleteOwnMessages bool) (bool, error) {
	cv, err := s.convRepo.FindByID(ctx, convID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	if !cv.IsGroup {
		return false, ErrNotGroup
	}

	left := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		members := s.memberRepo.WithTx(tx)
		if _, err := members.Find(ctx, convID, personID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		left = true
		msgs := s.msgRepo.WithTx(tx)
		convs := s.convRepo.WithTx(tx)
		if softDeleteOwnMessages {
			if err := s.softDeleteOwn(ctx, tx, convID, personID); err != nil {
				return err
			}
		}
		if err := members.Delete(ctx, convID, personID); err != nil {
			return err
		}
		// Group departures recompute last_message_at from what is left
		// instead of stamping "now"; it may go back to null.
		lastAt, err := msgs.MaxActiveCreatedAt(ctx, convID)
		if err != nil {
			return err
		}
		if err := convs.SetLastMessageAt(ctx, convID, lastAt); err != nil {
			return err
		}
		remaining, err := members.Count(ctx, convID)
		if err != nil {
			return err
		}
		if remaining == 0 {
			return s.teardown(ctx, tx, convID, msgs)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if left {
		s.notifyDeparture(ctx, convID, personID)
	}
	return left, nil
}

func (s *membershipService) DeleteGroup(ctx context.Context, convID, requesterID uint64, hardDelete bool) error {
	cv, err := s.convRepo.FindByID(ctx, convID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if !cv.IsGroup {
		return ErrNotGroup
	}
	if _, err := s.memberRepo.Find(ctx, convID, requesterID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrForbidden
		}
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		members := s.memberRepo.WithTx(tx)
		msgs := s.msgRepo.WithTx(tx)
		convs := s.convRepo.WithTx(tx)
		reactions := s.reactionRepo.WithTx(tx)
		if hardDelete {
			// Reactions first: their cleanup query selects over messages.
			if err := reactions.DeleteByConversation(ctx, convID); err != nil {
				return err
			}
			if err := msgs.DeleteByConversation(ctx, convID); err != nil {
				return err
			}
		} else {
			if err := msgs.MarkAllDeleted(ctx, convID, DeletedBody, s.db.NowFunc()); err != nil {
				return err
			}
		}
		if err := members.DeleteByConversation(ctx, convID); err != nil {
			return err
		}
		return convs.Delete(ctx, convID)
	})
}

func (s *membershipService) SetMuted(ctx context.Context, convID, personID uint64, muted bool) error {
	if _, err := s.memberRepo.Find(ctx, convID, personID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return s.memberRepo.SetMuted(ctx, convID, personID, muted)
}

// softDeleteOwn marks every still-active message of the leaver as deleted,
// oldest first, inside the caller's transaction.
func (s *membershipService) softDeleteOwn(ctx context.Context, tx *gorm.DB, convID, personID uint64) error {
	msgs := s.msgRepo.WithTx(tx)
	own, err := msgs.ListActiveBySender(ctx, convID, personID)
	if err != nil {
		return err
	}
	now := s.db.NowFunc()
	for i := range own {
		m := own[i]
		m.Status = model.MessageStatusDeleted
		m.DeletedAt = &now
		m.Body = DeletedBody
		if err := msgs.Save(ctx, &m); err != nil {
			return err
		}
	}
	return nil
}

// teardown removes everything belonging to an emptied conversation so no
// orphaned rows outlive it.
func (s *membershipService) teardown(ctx context.Context, tx *gorm.DB, convID uint64, msgs repository.MessageRepository) error {
	if err := s.reactionRepo.WithTx(tx).DeleteByConversation(ctx, convID); err != nil {
		return err
	}
	if err := msgs.DeleteByConversation(ctx, convID); err != nil {
		return err
	}
	return s.convRepo.WithTx(tx).Delete(ctx, convID)
}

// notifyDeparture tells the remaining unmuted members that someone left.
// Best-effort, after the unit of work committed; a torn-down conversation
// has no members left to tell.
func (s *membershipService) notifyDeparture(ctx context.Context, convID, leaverID uint64) {
	if s.notifier == nil {
		return
	}
	members, err := s.memberRepo.ListByConversation(ctx, convID)
	if err != nil {
		return
	}
	for _, m := range members {
		if m.PersonID == leaverID || m.IsMuted {
			continue
		}
		s.notifier.Notify(ctx, m.PersonID, model.NotificationMemberLeft, &convID, nil)
	}
}

func (s *membershipService) pseudoOf(ctx context.Context, personID uint64) string {
	p, err := s.personRepo.FindByID(ctx, personID)
	if err != nil || p.Pseudo == "" {
		return "A member"
	}
	return p.Pseudo
}
