package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/panjyar/Movie-Review-System/internal/store"
)

type relationshipFixture struct {
	*reviewFixture
	svc *RelationshipService
}

func newRelationshipFixture() *relationshipFixture {
	base := newReviewFixture()
	return &relationshipFixture{
		reviewFixture: base,
		svc:           NewRelationshipService(base.users, base.movies, testLogger()),
	}
}

func TestWatchlistAddAndList(t *testing.T) {
	f := newRelationshipFixture()
	ctx := context.Background()
	user := f.seedUser(t, "collector")
	first := f.seedMovie(t, "First Movie")
	second := f.seedMovie(t, "Second Movie")

	itemFirst, err := f.svc.AddToWatchlist(ctx, user.ID, first.ID)
	require.NoError(t, err)
	require.Equal(t, first.Title, itemFirst.Movie.Title)

	_, err = f.svc.AddToWatchlist(ctx, user.ID, second.ID)
	require.NoError(t, err)

	// Повторное добавление — конфликт
	_, err = f.svc.AddToWatchlist(ctx, user.ID, first.ID)
	require.ErrorIs(t, err, store.ErrAlreadyInWatchlist)

	// Несуществующий фильм
	_, err = f.svc.AddToWatchlist(ctx, user.ID, uuid.NewString())
	require.ErrorIs(t, err, store.ErrMovieNotFound)

	// Последние добавленные — первыми
	items, err := f.svc.ListWatchlist(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, second.ID, items[0].Movie.ID)
	require.Equal(t, first.ID, items[1].Movie.ID)
}

func TestWatchlistRemoveIdempotent(t *testing.T) {
	f := newRelationshipFixture()
	ctx := context.Background()
	user := f.seedUser(t, "viewer")
	movie := f.seedMovie(t, "Once")

	_, err := f.svc.AddToWatchlist(ctx, user.ID, movie.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.RemoveFromWatchlist(ctx, user.ID, movie.ID))
	// Повторное удаление не ошибка
	require.NoError(t, f.svc.RemoveFromWatchlist(ctx, user.ID, movie.ID))

	items, err := f.svc.ListWatchlist(ctx, user.ID)
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestWatchlistSkipsDeletedMovies(t *testing.T) {
	f := newRelationshipFixture()
	ctx := context.Background()
	user := f.seedUser(t, "viewer")
	movie := f.seedMovie(t, "Gone Soon")

	_, err := f.svc.AddToWatchlist(ctx, user.ID, movie.ID)
	require.NoError(t, err)
	require.NoError(t, f.movies.Delete(ctx, movie.ID))

	items, err := f.svc.ListWatchlist(ctx, user.ID)
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestFollowLifecycle(t *testing.T) {
	f := newRelationshipFixture()
	ctx := context.Background()
	alice := f.seedUser(t, "alice")
	bob := f.seedUser(t, "bob")

	// Подписка на самого себя отклоняется
	require.ErrorIs(t, f.svc.Follow(ctx, alice.ID, alice.ID), ErrSelfFollow)

	require.NoError(t, f.svc.Follow(ctx, alice.ID, bob.ID))

	// Повторная подписка — конфликт
	require.ErrorIs(t, f.svc.Follow(ctx, alice.ID, bob.ID), store.ErrAlreadyFollowing)

	// Несуществующий адресат
	require.ErrorIs(t, f.svc.Follow(ctx, alice.ID, uuid.NewString()), store.ErrUserNotFound)

	// Взаимная подписка — две независимые связи
	require.NoError(t, f.svc.Follow(ctx, bob.ID, alice.ID))

	bobFollowers, err := f.svc.GetFollowers(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, bobFollowers, 1)
	require.Equal(t, alice.ID, bobFollowers[0].ID)

	aliceFollowing, err := f.svc.GetFollowing(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, aliceFollowing, 1)
	require.Equal(t, bob.ID, aliceFollowing[0].ID)

	ok, err := f.svc.IsFollowing(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.True(t, ok)

	// Отписка идемпотентна и не трогает обратную связь
	require.NoError(t, f.svc.Unfollow(ctx, alice.ID, bob.ID))
	require.NoError(t, f.svc.Unfollow(ctx, alice.ID, bob.ID))

	ok, err = f.svc.IsFollowing(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = f.svc.IsFollowing(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	require.True(t, ok)
}
