package service

import (
	"context"
	"errors"

	"github.com/plume-sante/community-backend/internal/bodycodec"
	"github.com/plume-sante/community-backend/internal/model"
	"github.com/plume-sante/community-backend/internal/repository"
	"gorm.io/gorm"
)

const (
	// DeletedBody replaces the encrypted content of soft-deleted messages;
	// the original body is unrecoverable afterwards.
	DeletedBody = "This message has been deleted."
	// UnavailableBody is shown when a stored body carries the encryption
	// prefix but cannot be deciphered.
	UnavailableBody = "Message unavailable."
)

// MessageService is the message pipeline: posting, editing, soft deletion and
// ordered reads.
type MessageService interface {
	Post(ctx context.Context, convID, senderID uint64, body string, replyTo *uint64, hasAttachments bool) (*model.Message, error)
	Edit(ctx context.Context, messageID uint64, newBody string) (*model.Message, error)
	SoftDelete(ctx context.Context, messageID uint64) error
	List(ctx context.Context, convID, viewerID uint64) ([]model.Message, error)
}

type messageService struct {
	db         *gorm.DB
	msgRepo    repository.MessageRepository
	convRepo   repository.ConversationRepository
	memberRepo repository.MemberRepository
	personRepo repository.PersonRepository
	codec      *bodycodec.Codec
	notifier   NotificationService
}

// NewMessageService wires the pipeline; notifier may be nil (no fan-out).
func NewMessageService(db *gorm.DB, msgRepo repository.MessageRepository, convRepo repository.ConversationRepository, memberRepo repository.MemberRepository, personRepo repository.PersonRepository, codec *bodycodec.Codec, notifier NotificationService) MessageService {
	return &messageService{db: db, msgRepo: msgRepo, convRepo: convRepo, memberRepo: memberRepo, personRepo: personRepo, codec: codec, notifier: notifier}
}

func (s *messageService) Post(ctx context.Context, convID, senderID uint64, body string, replyTo *uint64, hasAttachments bool) (*model.Message, error) {
	if body == "" && !hasAttachments {
		return nil, errors.New("body is required")
	}
	if _, err := s.convRepo.FindByID(ctx, convID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if _, err := s.memberRepo.Find(ctx, convID, senderID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrForbidden
		}
		return nil, err
	}

	// Encryption happens before the unit of work; no collaborator calls
	// inside the transaction.
	stored, err := s.codec.Encrypt(body)
	if err != nil {
		return nil, err
	}
	msg := &model.Message{
		ConversationID:   convID,
		SenderID:         senderID,
		Body:             stored,
		ReplyToMessageID: replyTo,
		HasAttachments:   hasAttachments,
		Status:           model.MessageStatusNormal,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		msgs := s.msgRepo.WithTx(tx)
		convs := s.convRepo.WithTx(tx)
		if err := msgs.Create(ctx, msg); err != nil {
			return err
		}
		at := msg.CreatedAt
		return convs.SetLastMessageAt(ctx, convID, &at)
	})
	if err != nil {
		return nil, err
	}

	s.fanOut(ctx, msg)
	// Posting is a presence signal; 1:1 summaries surface it.
	_ = s.personRepo.TouchActive(ctx, senderID)

	out := *msg
	out.Body = body
	return &out, nil
}

// fanOut queues a notification for every unmuted member except the sender.
// Best-effort and outside the unit of work.
func (s *messageService) fanOut(ctx context.Context, msg *model.Message) {
	if s.notifier == nil {
		return
	}
	members, err := s.memberRepo.ListByConversation(ctx, msg.ConversationID)
	if err != nil {
		return
	}
	for _, m := range members {
		if m.PersonID == msg.SenderID || m.IsMuted {
			continue
		}
		s.notifier.Notify(ctx, m.PersonID, model.NotificationNewMessage, &msg.ConversationID, &msg.ID)
	}
}

func (s *messageService) Edit(ctx context.Context, messageID uint64, newBody string) (*model.Message, error) {
	msg, err := s.msgRepo.FindByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if msg.Status == model.MessageStatusDeleted {
		return nil, ErrMessageDeleted
	}
	stored, err := s.codec.Encrypt(newBody)
	if err != nil {
		return nil, err
	}
	now := s.db.NowFunc()
	msg.Body = stored
	msg.Status = model.MessageStatusEdited
	msg.EditedAt = &now
	if err := s.msgRepo.Save(ctx, msg); err != nil {
		return nil, err
	}
	out := *msg
	out.Body = newBody
	return &out, nil
}

// SoftDelete is idempotent: deleting an already-deleted message changes
// nothing, including deleted_at.
func (s *messageService) SoftDelete(ctx context.Context, messageID uint64) error {
	msg, err := s.msgRepo.FindByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if msg.Status == model.MessageStatusDeleted {
		return nil
	}
	now := s.db.NowFunc()
	msg.Status = model.MessageStatusDeleted
	msg.DeletedAt = &now
	msg.Body = DeletedBody
	return s.msgRepo.Save(ctx, msg)
}

// List returns the conversation's messages in canonical id order with bodies
// decoded. Deleted messages stay in the sequence with the placeholder body;
// undecipherable bodies become UnavailableBody rather than failing the read.
func (s *messageService) List(ctx context.Context, convID, viewerID uint64) ([]model.Message, error) {
	if _, err := s.convRepo.FindByID(ctx, convID); err != nil {
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
	msgs, err := s.msgRepo.ListByConversation(ctx, convID)
	if err != nil {
		return nil, err
	}
	for i := range msgs {
		msgs[i].Body = s.decodeBody(msgs[i])
	}
	return msgs, nil
}

func (s *messageService) decodeBody(msg model.Message) string {
	if msg.Status == model.MessageStatusDeleted {
		return DeletedBody
	}
	plain, err := s.codec.DecryptOrPassthrough(msg.Body)
	if err != nil {
		// DecryptError: corrupt row, keep the read alive.
		return UnavailableBody
	}
	return plain
}
