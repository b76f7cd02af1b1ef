package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddReactionIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.person(t, "alice")
	b := f.person(t, "bruno")
	cv, err := f.convs.GetOrCreateDirect(ctx, a.ID, b.ID, nil)
	require.NoError(t, err)
	msg, err := f.msgs.Post(ctx, cv.ID, a.ID, "hello", nil, false)
	require.NoError(t, err)

	_, err = f.reactions.Add(ctx, msg.ID, b.ID, "❤️")
	require.NoError(t, err)
	_, err = f.reactions.Add(ctx, msg.ID, b.ID, "❤️")
	require.NoError(t, err)

	list, err := f.reactions.ListForMessage(ctx, msg.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	// Same person, different emoji is a distinct reaction.
	_, err = f.reactions.Add(ctx, msg.ID, b.ID, "👍")
	require.NoError(t, err)
	list, err = f.reactions.ListForMessage(ctx, msg.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestRemoveReactionReportsExistence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.person(t, "alice")
	b := f.person(t, "bruno")
	cv, err := f.convs.GetOrCreateDirect(ctx, a.ID, b.ID, nil)
	require.NoError(t, err)
	msg, err := f.msgs.Post(ctx, cv.ID, a.ID, "hello", nil, false)
	require.NoError(t, err)
	_, err = f.reactions.Add(ctx, msg.ID, b.ID, "👍")
	require.NoError(t, err)

	removed, err := f.reactions.Remove(ctx, msg.ID, b.ID, "👍")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = f.reactions.Remove(ctx, msg.ID, b.ID, "👍")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestReactionGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.person(t, "alice")
	b := f.person(t, "bruno")
	outsider := f.person(t, "chloe")
	cv, err := f.convs.GetOrCreateDirect(ctx, a.ID, b.ID, nil)
	require.NoError(t, err)
	msg, err := f.msgs.Post(ctx, cv.ID, a.ID, "hello", nil, false)
	require.NoError(t, err)

	_, err = f.reactions.Add(ctx, msg.ID, outsider.ID, "👍")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.reactions.Add(ctx, 999, a.ID, "👍")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.reactions.Add(ctx, msg.ID, a.ID, "")
	assert.Error(t, err)
	_, err = f.reactions.ListForMessage(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReactionsSurviveSoftDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.person(t, "alice")
	b := f.person(t, "bruno")
	cv, err := f.convs.GetOrCreateDirect(ctx, a.ID, b.ID, nil)
	require.NoError(t, err)
	msg, err := f.msgs.Post(ctx, cv.ID, a.ID, "soon deleted", nil, false)
	require.NoError(t, err)
	_, err = f.reactions.Add(ctx, msg.ID, b.ID, "😢")
	require.NoError(t, err)

	require.NoError(t, f.msgs.SoftDelete(ctx, msg.ID))

	list, err := f.reactions.ListForMessage(ctx, msg.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, "😢", list[0].Emoji)
}
