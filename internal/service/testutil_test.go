package service

import (
	"context"
	"testing"

	"github.com/plume-sante/community-backend/internal/bodycodec"
	"github.com/plume-sante/community-backend/internal/model"
	"github.com/plume-sante/community-backend/internal/repository"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testKeyHex = "6368616e676520746869732070617373776f726420746f206120736563726574"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	// One in-memory sqlite database per test; a second pooled connection
	// would see an empty database.
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, gdb.AutoMigrate(
		&model.Person{},
		&model.Conversation{},
		&model.ConversationMember{},
		&model.Message{},
		&model.MessageReaction{},
		&model.Notification{},
	))
	return gdb
}

func newTestCodec(t *testing.T) *bodycodec.Codec {
	t.Helper()
	codec, err := bodycodec.New(testKeyHex)
	require.NoError(t, err)
	return codec
}

type fixture struct {
	db           *gorm.DB
	codec        *bodycodec.Codec
	convRepo     repository.ConversationRepository
	memberRepo   repository.MemberRepository
	msgRepo      repository.MessageRepository
	reactionRepo repository.ReactionRepository
	personRepo   repository.PersonRepository
	notifRepo    repository.NotificationRepository

	convs     ConversationService
	msgs      MessageService
	members   MembershipService
	reads     ReadTracker
	summaries SummaryService
	reactions ReactionService
	notifs    NotificationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := newTestDB(t)
	codec := newTestCodec(t)
	f := &fixture{
		db:           gdb,
		codec:        codec,
		convRepo:     repository.NewConversationRepository(gdb),
		memberRepo:   repository.NewMemberRepository(gdb),
		msgRepo:      repository.NewMessageRepository(gdb),
		reactionRepo: repository.NewReactionRepository(gdb),
		personRepo:   repository.NewPersonRepository(gdb),
		notifRepo:    repository.NewNotificationRepository(gdb),
	}
	f.notifs = NewNotificationService(f.notifRepo)
	f.convs = NewConversationService(gdb, f.convRepo, f.memberRepo, f.notifs)
	f.msgs = NewMessageService(gdb, f.msgRepo, f.convRepo, f.memberRepo, f.personRepo, codec, f.notifs)
	f.members = NewMembershipService(gdb, f.convRepo, f.memberRepo, f.msgRepo, f.reactionRepo, f.personRepo, f.notifs)
	f.reads = NewReadTracker(gdb, f.convRepo, f.memberRepo, f.msgRepo, f.notifs)
	f.summaries = NewSummaryService(f.convRepo, f.memberRepo, f.msgRepo, f.personRepo, codec)
	f.reactions = NewReactionService(f.reactionRepo, f.msgRepo, f.memberRepo)
	return f
}

func (f *fixture) person(t *testing.T, pseudo string) *model.Person {
	t.Helper()
	p := &model.Person{Pseudo: pseudo}
	require.NoError(t, f.personRepo.Create(context.Background(), p))
	return p
}

func (f *fixture) conversationExists(t *testing.T, id uint64) bool {
	t.Helper()
	var cnt int64
	require.NoError(t, f.db.Model(&model.Conversation{}).Where("id = ?", id).Count(&cnt).Error)
	return cnt > 0
}

func (f *fixture) messageCount(t *testing.T, convID uint64) int64 {
	t.Helper()
	var cnt int64
	require.NoError(t, f.db.Model(&model.Message{}).Where("conversation_id = ?", convID).Count(&cnt).Error)
	return cnt
}

func (f *fixture) memberCount(t *testing.T, convID uint64) int64 {
	t.Helper()
	var cnt int64
	require.NoError(t, f.db.Model(&model.ConversationMember{}).Where("conversation_id = ?", convID).Count(&cnt).Error)
	return cnt
}
