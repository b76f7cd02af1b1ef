package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/plume-sante/community-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostMessageUpdatesLastMessageAt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.person(t, "alice")
	b := f.person(t, "bruno")
	cv, err := f.convs.GetOrCreateDirect(ctx, a.ID, b.ID, nil)
	require.NoError(t, err)
	require.Nil(t, cv.LastMessageAt)

	msg, err := f.msgs.Post(ctx, cv.ID, a.ID, "hello", nil, false)
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Body)
	assert.Equal(t, model.MessageStatusNormal, msg.Status)

	reloaded, err := f.convRepo.FindByID(ctx, cv.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.LastMessageAt)
	assert.WithinDuration(t, msg.CreatedAt, *reloaded.LastMessageAt, time.Second)
}

func TestPostMessageEncryptsAtRest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.person(t, "alice")
	b := f.person(t, "bruno")
	cv, err := f.convs.GetOrCreateDirect(ctx, a.ID, b.ID, nil)
	require.NoError(t, err)

	msg, err := f.msgs.Post(ctx, cv.ID, a.ID, "confidential", nil, false)
	require.NoError(t, err)

	stored, err := f.msgRepo.FindByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stored.Body, "enc:v1:"))
	assert.NotContains(t, stored.Body, "confidential")
}

func TestPostMessageMembershipChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.person(t, "alice")
	b := f.person(t, "bruno")
	outsider := f.person(t, "chloe")
	cv, err := f.convs.GetOrCreateDirect(ctx, a.ID, b.ID, nil)
	require.NoError(t, err)

	_, err = f.msgs.Post(ctx, cv.ID, outsider.ID, "hi", nil, false)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.msgs.Post(ctx, 999, a.ID, "hi", nil, false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListOrderingAndDecoding(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.person(t, "alice")
	b := f.person(t, "bruno")
	cv, err := f.convs.GetOrCreateDirect(ctx, a.ID, b.ID, nil)
	require.NoError(t, err)

	bodies := []string{"one", "two", "three"}
	for _, body := range bodies {
		_, err := f.msgs.Post(ctx, cv.ID, a.ID, body, nil, false)
		require.NoError(t, err)
	}

	msgs, err := f.msgs.List(ctx, cv.ID, b.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	for i := 1; i < len(msgs); i++ {
		assert.Greater(t, msgs[i].ID, msgs[i-1].ID)
		assert.False(t, msgs[i].CreatedAt.Before(msgs[i-1].CreatedAt))
	}
	for i, body := range bodies {
		assert.Equal(t, body, msgs[i].Body)
	}

	_, err = f.msgs.List(ctx, cv.ID, 12345)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestListSurvivesCorruptBody(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.person(t, "alice")
	b := f.person(t, "bruno")
	cv, err := f.convs.GetOrCreateDirect(ctx, a.ID, b.ID, nil)
	require.NoError(t, err)

	_, err = f.msgs.Post(ctx, cv.ID, a.ID, "intact", nil, false)
	require.NoError(t, err)
	bad, err := f.msgs.Post(ctx, cv.ID, a.ID, "will corrupt", nil, false)
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&model.Message{}).
		Where("id = ?", bad.ID).
		Update("body", "enc:v1:garbage!!").Error)

	msgs, err := f.msgs.List(ctx, cv.ID, b.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "intact", msgs[0].Body)
	assert.Equal(t, UnavailableBody, msgs[1].Body)
}

func TestSoftDeleteIsIrreversibleAndIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.person(t, "alice")
	b := f.person(t, "bruno")
	cv, err := f.convs.GetOrCreateDirect(ctx, a.ID, b.ID, nil)
	require.NoError(t, err)
	msg, err := f.msgs.Post(ctx, cv.ID, a.ID, "secret", nil, false)
	require.NoError(t, err)

	require.NoError(t, f.msgs.SoftDelete(ctx, msg.ID))
	first, err := f.msgRepo.FindByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MessageStatusDeleted, first.Status)
	assert.Equal(t, DeletedBody, first.Body)
	require.NotNil(t, first.DeletedAt)

	// Second delete: no error, deleted_at untouched.
	require.NoError(t, f.msgs.SoftDelete(ctx, msg.ID))
	second, err := f.msgRepo.FindByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.True(t, second.DeletedAt.Equal(*first.DeletedAt))

	// The ciphertext is gone for good.
	assert.NotContains(t, second.Body, "enc:v1:")
}

func TestDeletedMessagesStayInSequence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.person(t, "alice")
	b := f.person(t, "bruno")
	cv, err := f.convs.GetOrCreateDirect(ctx, a.ID, b.ID, nil)
	require.NoError(t, err)

	first, err := f.msgs.Post(ctx, cv.ID, a.ID, "kept", nil, false)
	require.NoError(t, err)
	gone, err := f.msgs.Post(ctx, cv.ID, b.ID, "removed", &first.ID, false)
	require.NoError(t, err)
	require.NoError(t, f.msgs.SoftDelete(ctx, gone.ID))

	msgs, err := f.msgs.List(ctx, cv.ID, a.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, DeletedBody, msgs[1].Body)
	require.NotNil(t, msgs[1].ReplyToMessageID)
	assert.Equal(t, first.ID, *msgs[1].ReplyToMessageID)
}

func TestEditMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.person(t, "alice")
	b := f.person(t, "bruno")
	cv, err := f.convs.GetOrCreateDirect(ctx, a.ID, b.ID, nil)
	require.NoError(t, err)
	msg, err := f.msgs.Post(ctx, cv.ID, a.ID, "tpyo", nil, false)
	require.NoError(t, err)

	edited, err := f.msgs.Edit(ctx, msg.ID, "typo")
	require.NoError(t, err)
	assert.Equal(t, model.MessageStatusEdited, edited.Status)
	assert.Equal(t, "typo", edited.Body)
	require.NotNil(t, edited.EditedAt)

	require.NoError(t, f.msgs.SoftDelete(ctx, msg.ID))
	_, err = f.msgs.Edit(ctx, msg.ID, "too late")
	assert.ErrorIs(t, err, ErrMessageDeleted)
}

func TestPostFansOutToUnmutedMembers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.person(t, "alice")
	b := f.person(t, "bruno")
	c := f.person(t, "chloe")
	cv, err := f.convs.CreateGroup(ctx, a.ID, []uint64{b.ID, c.ID}, "circle", false)
	require.NoError(t, err)
	require.NoError(t, f.members.SetMuted(ctx, cv.ID, c.ID, true))

	_, err = f.msgs.Post(ctx, cv.ID, a.ID, "hello all", nil, false)
	require.NoError(t, err)

	_, unreadB, err := f.notifs.List(ctx, b.ID, true, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, unreadB)

	// Muted member and sender get nothing.
	_, unreadC, err := f.notifs.List(ctx, c.ID, true, 10)
	require.NoError(t, err)
	assert.Zero(t, unreadC)
	_, unreadA, err := f.notifs.List(ctx, a.ID, true, 10)
	require.NoError(t, err)
	assert.Zero(t, unreadA)
}
