package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/plume-sante/community-backend/internal/bodycodec"
	"github.com/plume-sante/community-backend/internal/model"
	"github.com/plume-sante/community-backend/internal/repository"
	"gorm.io/gorm"
)

const groupTitleFallback = "Group conversation"

// ConversationSummary is the denormalized conversation-list row a client
// renders. It is recomputed from the entities on every call.
type ConversationSummary struct {
	ID                 uint64     `json:"id"`
	Title              string     `json:"title"`
	IsGroup            bool       `json:"isGroup"`
	CreatedAt          time.Time  `json:"createdAt"`
	LastMessageAt      *time.Time `json:"lastMessageAt,omitempty"`
	UnreadCount        int64      `json:"unreadCount"`
	LastMessagePreview *string    `json:"lastMessagePreview,omitempty"`
	IsMuted            bool       `json:"isMuted"`

	// direct conversations only
	OtherPersonID     *uint64    `json:"otherPersonId,omitempty"`
	OtherPseudo       *string    `json:"otherPseudo,omitempty"`
	OtherLastActiveAt *time.Time `json:"otherLastActiveAt,omitempty"`
	IsSeen            *bool      `json:"isSeen,omitempty"`

	// groups only
	MemberCount *int64  `json:"memberCount,omitempty"`
	AdminID     *uint64 `json:"adminId,omitempty"`
}

// SummaryService projects the viewer's conversation list. Pure read side: no
// writes, no cached state.
type SummaryService interface {
	ListForViewer(ctx context.Context, viewerID uint64) ([]ConversationSummary, error)
}

type summaryService struct {
	convRepo   repository.ConversationRepository
	memberRepo repository.MemberRepository
	msgRepo    repository.MessageRepository
	personRepo repository.PersonRepository
	codec      *bodycodec.Codec
}

func NewSummaryService(convRepo repository.ConversationRepository, memberRepo repository.MemberRepository, msgRepo repository.MessageRepository, personRepo repository.PersonRepository, codec *bodycodec.Codec) SummaryService {
	return &summaryService{convRepo: convRepo, memberRepo: memberRepo, msgRepo: msgRepo, personRepo: personRepo, codec: codec}
}

func (s *summaryService) ListForViewer(ctx context.Context, viewerID uint64) ([]ConversationSummary, error) {
	memberships, err := s.memberRepo.ListByPerson(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	summaries := make([]ConversationSummary, 0, len(memberships))
	var otherIDs []uint64
	otherByConv := make(map[uint64]*model.ConversationMember)

	for i := range memberships {
		mb := memberships[i]
		cv, err := s.convRepo.FindByID(ctx, mb.ConversationID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Membership row raced a teardown; skip it.
				continue
			}
			return nil, err
		}
		members, err := s.memberRepo.ListByConversation(ctx, cv.ID)
		if err != nil {
			return nil, err
		}
		last, err := s.msgRepo.LastInConversation(ctx, cv.ID)
		if err != nil {
			return nil, err
		}
		unread, err := s.msgRepo.CountUnread(ctx, cv.ID, viewerID, mb.LastReadMessageID)
		if err != nil {
			return nil, err
		}

		sum := ConversationSummary{
			ID:            cv.ID,
			IsGroup:       cv.IsGroup,
			CreatedAt:     cv.CreatedAt,
			LastMessageAt: cv.LastMessageAt,
			UnreadCount:   unread,
			IsMuted:       mb.IsMuted,
		}
		if last != nil {
			preview := s.preview(*last)
			sum.LastMessagePreview = &preview
		}
		if cv.IsGroup {
			cnt := int64(len(members))
			sum.MemberCount = &cnt
			sum.AdminID = cv.AdminID
			sum.Title = groupTitleFallback
			if cv.Title != nil && *cv.Title != "" {
				sum.Title = *cv.Title
			}
		} else {
			other := otherOf(members, viewerID)
			if other != nil {
				id := other.PersonID
				sum.OtherPersonID = &id
				otherIDs = append(otherIDs, id)
				otherByConv[cv.ID] = other
			}
			sum.IsSeen = IsSeenByOther(cv, last, viewerID, other)
			if cv.Title != nil && *cv.Title != "" {
				sum.Title = *cv.Title
			}
		}
		summaries = append(summaries, sum)
	}

	// One batched identity lookup for every direct counterpart.
	people, err := s.personRepo.FindByIDs(ctx, otherIDs)
	if err != nil {
		return nil, err
	}
	for i := range summaries {
		sum := &summaries[i]
		if sum.IsGroup || sum.OtherPersonID == nil {
			continue
		}
		if p, ok := people[*sum.OtherPersonID]; ok {
			pseudo := p.Pseudo
			sum.OtherPseudo = &pseudo
			sum.OtherLastActiveAt = p.LastActiveAt
			if sum.Title == "" {
				sum.Title = fmt.Sprintf("chat with %s", pseudo)
			}
		}
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		at, bt := effectiveActivity(a), effectiveActivity(b)
		if !at.Equal(bt) {
			return at.After(bt)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return summaries, nil
}

func (s *summaryService) preview(msg model.Message) string {
	if msg.Status == model.MessageStatusDeleted {
		return DeletedBody
	}
	plain, err := s.codec.DecryptOrPassthrough(msg.Body)
	if err != nil {
		return UnavailableBody
	}
	return plain
}

func otherOf(members []model.ConversationMember, viewerID uint64) *model.ConversationMember {
	for i := range members {
		if members[i].PersonID != viewerID {
			return &members[i]
		}
	}
	return nil
}

// effectiveActivity orders conversations that never had a message by their
// creation time.
func effectiveActivity(s ConversationSummary) time.Time {
	if s.LastMessageAt != nil {
		return *s.LastMessageAt
	}
	return time.Time{}
}
