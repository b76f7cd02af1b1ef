package service

import (
	"context"
	"testing"
	"time"

	"github.com/plume-sante/community-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateDirect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.person(t, "alice")
	b := f.person(t, "bruno")

	cv, err := f.convs.GetOrCreateDirect(ctx, a.ID, b.ID, nil)
	require.NoError(t, err)
	assert.False(t, cv.IsGroup)
	assert.Nil(t, cv.LastMessageAt)
	assert.EqualValues(t, 2, f.memberCount(t, cv.ID))

	// Repeated calls, in either argument order, settle on the same row.
	again, err := f.convs.GetOrCreateDirect(ctx, b.ID, a.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, cv.ID, again.ID)

	var total int64
	require.NoError(t, f.db.Model(&model.Conversation{}).Count(&total).Error)
	assert.EqualValues(t, 1, total)
}

func TestGetOrCreateDirectRejectsSelf(t *testing.T) {
	f := newFixture(t)
	a := f.person(t, "alice")
	_, err := f.convs.GetOrCreateDirect(context.Background(), a.ID, a.ID, nil)
	assert.ErrorIs(t, err, ErrSelfChat)
}

func TestGetOrCreateDirectIgnoresOversizedCandidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.person(t, "alice")
	b := f.person(t, "bruno")
	c := f.person(t, "chloe")

	// Historical data: a non-group conversation that somehow has three
	// members and no pair key. It must not be picked as the direct channel.
	legacy := &model.Conversation{IsGroup: false}
	require.NoError(t, f.convRepo.Create(ctx, legacy))
	for _, pid := range []uint64{a.ID, b.ID, c.ID} {
		require.NoError(t, f.memberRepo.Create(ctx, &model.ConversationMember{
			ConversationID: legacy.ID, PersonID: pid, Role: model.RoleMember,
		}))
	}

	cv, err := f.convs.GetOrCreateDirect(ctx, a.ID, b.ID, nil)
	require.NoError(t, err)
	assert.NotEqual(t, legacy.ID, cv.ID)
	assert.EqualValues(t, 2, f.memberCount(t, cv.ID))
}

func TestGetOrCreateDirectSurvivesGrownConversation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.person(t, "alice")
	b := f.person(t, "bruno")
	c := f.person(t, "chloe")

	cv, err := f.convs.GetOrCreateDirect(ctx, a.ID, b.ID, nil)
	require.NoError(t, err)

	// A third member means this is no longer the pair's channel; the key
	// must be released so the resolver keeps working.
	_, err = f.convs.AddMember(ctx, cv.ID, c.ID, model.RoleMember)
	require.NoError(t, err)

	grown, err := f.convRepo.FindByID(ctx, cv.ID)
	require.NoError(t, err)
	assert.Nil(t, grown.DirectKey)

	fresh, err := f.convs.GetOrCreateDirect(ctx, a.ID, b.ID, nil)
	require.NoError(t, err)
	assert.NotEqual(t, cv.ID, fresh.ID)
	assert.EqualValues(t, 2, f.memberCount(t, fresh.ID))

	again, err := f.convs.GetOrCreateDirect(ctx, b.ID, a.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, fresh.ID, again.ID)
}

func TestGetOrCreateDirectEvictsStaleKeyHolder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.person(t, "alice")
	b := f.person(t, "bruno")
	c := f.person(t, "chloe")

	// Historical row: holds the pair key but has three members, so the read
	// path rejects it and a naive create collides with the unique index.
	key := model.DirectPairKey(a.ID, b.ID)
	stale := &model.Conversation{IsGroup: false, DirectKey: &key}
	require.NoError(t, f.convRepo.Create(ctx, stale))
	for _, pid := range []uint64{a.ID, b.ID, c.ID} {
		require.NoError(t, f.memberRepo.Create(ctx, &model.ConversationMember{
			ConversationID: stale.ID, PersonID: pid, Role: model.RoleMember,
		}))
	}

	cv, err := f.convs.GetOrCreateDirect(ctx, a.ID, b.ID, nil)
	require.NoError(t, err)
	assert.NotEqual(t, stale.ID, cv.ID)
	assert.EqualValues(t, 2, f.memberCount(t, cv.ID))

	reloaded, err := f.convRepo.FindByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.DirectKey)
	require.NotNil(t, cv.DirectKey)
	assert.Equal(t, key, *cv.DirectKey)
}

func TestCreateGroupDeduplicatesMembers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.person(t, "alice")
	b := f.person(t, "bruno")

	cv, err := f.convs.CreateGroup(ctx, a.ID, []uint64{b.ID, b.ID, a.ID}, "circle", true)
	require.NoError(t, err)
	assert.True(t, cv.IsGroup)
	require.NotNil(t, cv.AdminID)
	assert.Equal(t, a.ID, *cv.AdminID)
	assert.EqualValues(t, 2, f.memberCount(t, cv.ID))

	m, err := f.memberRepo.Find(ctx, cv.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, m.Role)
}

func TestAddMemberIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.person(t, "alice")
	b := f.person(t, "bruno")
	c := f.person(t, "chloe")

	cv, err := f.convs.CreateGroup(ctx, a.ID, []uint64{b.ID}, "circle", false)
	require.NoError(t, err)

	first, err := f.convs.AddMember(ctx, cv.ID, c.ID, model.RoleMember)
	require.NoError(t, err)
	second, err := f.convs.AddMember(ctx, cv.ID, c.ID, model.RoleAdmin)
	require.NoError(t, err)

	// Same row, same joined_at, role untouched.
	assert.WithinDuration(t, first.JoinedAt, second.JoinedAt, time.Second)
	assert.Equal(t, model.RoleMember, second.Role)
	assert.EqualValues(t, 3, f.memberCount(t, cv.ID))
}

func TestAddMemberUnknownConversation(t *testing.T) {
	f := newFixture(t)
	a := f.person(t, "alice")
	_, err := f.convs.AddMember(context.Background(), 999, a.ID, model.RoleMember)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDirectPairKey(t *testing.T) {
	tests := []struct {
		name string
		a, b uint64
		want string
	}{
		{"ordered", 1, 2, "1:2"},
		{"reversed", 2, 1, "1:2"},
		{"large", 42, 7, "7:42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := model.DirectPairKey(tt.a, tt.b); got != tt.want {
				t.Fatalf("got=%q want=%q", got, tt.want)
			}
		})
	}
}
