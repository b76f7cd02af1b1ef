package service

import (
	"context"
	"errors"

	"github.com/plume-sante/community-backend/internal/model"
	"github.com/plume-sante/community-backend/internal/repository"
	"gorm.io/gorm"
)

// ConversationService resolves conversations: it finds or creates the single
// direct conversation between two people and creates group conversations.
type ConversationService interface {
	GetOrCreateDirect(ctx context.Context, a, b uint64, title *string) (*model.Conversation, error)
	CreateGroup(ctx context.Context, creator uint64, memberIDs []uint64, title string, creatorAsAdmin bool) (*model.Conversation, error)
	AddMember(ctx context.Context, convID, personID uint64, role model.MemberRole) (*model.ConversationMember, error)
	Get(ctx context.Context, convID, viewerID uint64) (*model.Conversation, error)
}

type conversationService struct {
	db         *gorm.DB
	convRepo   repository.ConversationRepository
	memberRepo repository.MemberRepository
	notifier   NotificationService
}

func NewConversationService(db *gorm.DB, convRepo repository.ConversationRepository, memberRepo repository.MemberRepository, notifier NotificationService) ConversationService {
	return &conversationService{db: db, convRepo: convRepo, memberRepo: memberRepo, notifier: notifier}
}

func (s *conversationService) GetOrCreateDirect(ctx context.Context, a, b uint64, title *string) (*model.Conversation, error) {
	if a == b {
		return nil, ErrSelfChat
	}
	cv, err := s.convRepo.FindDirectBetween(ctx, a, b)
	if err == nil {
		return cv, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	created, err := s.createDirect(ctx, a, b, title)
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return s.resolveDirectConflict(ctx, a, b, title)
		}
		return nil, err
	}
	return created, nil
}

// resolveDirectConflict handles a unique-index collision on direct_key.
// Usually a concurrent caller created the pair's conversation first and the
// read path now finds it. The key may instead be held by a conversation that
// no longer has exactly two members; that holder loses its key and the
// create is retried once. Either way the conflict never reaches the caller.
func (s *conversationService) resolveDirectConflict(ctx context.Context, a, b uint64, title *string) (*model.Conversation, error) {
	cv, err := s.convRepo.FindDirectBetween(ctx, a, b)
	if err == nil {
		return cv, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	holder, err := s.convRepo.FindByDirectKey(ctx, model.DirectPairKey(a, b))
	if err != nil {
		return nil, err
	}
	if err := s.convRepo.ClearDirectKey(ctx, holder.ID); err != nil {
		return nil, err
	}
	return s.createDirect(ctx, a, b, title)
}

func (s *conversationService) createDirect(ctx context.Context, a, b uint64, title *string) (*model.Conversation, error) {
	key := model.DirectPairKey(a, b)
	cv := &model.Conversation{Title: title, IsGroup: false, DirectKey: &key}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		convs := s.convRepo.WithTx(tx)
		members := s.memberRepo.WithTx(tx)
		if err := convs.Create(ctx, cv); err != nil {
			return err
		}
		for _, pid := range []uint64{a, b} {
			m := &model.ConversationMember{ConversationID: cv.ID, PersonID: pid, Role: model.RoleMember}
			if err := members.Create(ctx, m); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cv, nil
}

func (s *conversationService) CreateGroup(ctx context.Context, creator uint64, memberIDs []uint64, title string, creatorAsAdmin bool) (*model.Conversation, error) {
	ids := dedupeIDs(append([]uint64{creator}, memberIDs...))
	cv := &model.Conversation{Title: &title, IsGroup: true, AdminID: &creator}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		convs := s.convRepo.WithTx(tx)
		members := s.memberRepo.WithTx(tx)
		if err := convs.Create(ctx, cv); err != nil {
			return err
		}
		for _, pid := range ids {
			role := model.RoleMember
			if pid == creator && creatorAsAdmin {
				role = model.RoleAdmin
			}
			m := &model.ConversationMember{ConversationID: cv.ID, PersonID: pid, Role: role}
			if err := members.Create(ctx, m); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cv, nil
}

// AddMember is idempotent: joining twice returns the original membership
// untouched.
func (s *conversationService) AddMember(ctx context.Context, convID, personID uint64, role model.MemberRole) (*model.ConversationMember, error) {
	cv, err := s.convRepo.FindByID(ctx, convID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if existing, err := s.memberRepo.Find(ctx, convID, personID); err == nil {
		return existing, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	m := &model.ConversationMember{ConversationID: convID, PersonID: personID, Role: role}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		members := s.memberRepo.WithTx(tx)
		if err := members.Create(ctx, m); err != nil {
			return err
		}
		if cv.IsGroup {
			return nil
		}
		// A direct conversation that grows past two members stops being the
		// pair's channel; releasing its key lets the resolver open a fresh
		// one for the pair.
		cnt, err := members.Count(ctx, convID)
		if err != nil {
			return err
		}
		if cnt > 2 {
			return s.convRepo.WithTx(tx).ClearDirectKey(ctx, convID)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return s.memberRepo.Find(ctx, convID, personID)
		}
		return nil, err
	}
	s.notifyMembers(ctx, convID, personID, model.NotificationMemberJoined)
	return m, nil
}

// notifyMembers tells every unmuted member except the subject about a
// membership event. Best-effort.
func (s *conversationService) notifyMembers(ctx context.Context, convID, subjectID uint64, kind model.NotificationKind) {
	if s.notifier == nil {
		return
	}
	members, err := s.memberRepo.ListByConversation(ctx, convID)
	if err != nil {
		return
	}
	for _, m := range members {
		if m.PersonID == subjectID || m.IsMuted {
			continue
		}
		s.notifier.Notify(ctx, m.PersonID, kind, &convID, nil)
	}
}

func (s *conversationService) Get(ctx context.Context, convID, viewerID uint64) (*model.Conversation, error) {
	cv, err := s.convRepo.FindByID(ctx, convID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if _, err := s.memberRepo.Find(ctx, convID, viewerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrForbidden
		}
		return nil, err
	}
	return cv, nil
}

func dedupeIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
