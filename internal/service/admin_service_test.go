package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/panjyar/Movie-Review-System/internal/domain"
	"github.com/panjyar/Movie-Review-System/internal/store"
)

type adminFixture struct {
	*reviewFixture
	svc *AdminService
}

func newAdminFixture() *adminFixture {
	base := newReviewFixture()
	return &adminFixture{
		reviewFixture: base,
		svc:           NewAdminService(base.users, base.movies, base.reviews, base.svc, testLogger()),
	}
}

func TestAdminOperationsForbiddenForUsers(t *testing.T) {
	f := newAdminFixture()
	ctx := context.Background()
	target := f.seedUser(t, "target")
	requester := f.seedUser(t, "plain")

	_, err := f.svc.ListUsers(ctx, domain.RoleUser, store.UserListParams{})
	require.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.GetStats(ctx, domain.RoleUser)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.SetUserRole(ctx, domain.RoleUser, target.ID, domain.RoleAdmin)
	require.ErrorIs(t, err, ErrForbidden)

	err = f.svc.DeleteUser(ctx, domain.RoleUser, requester.ID, target.ID)
	require.ErrorIs(t, err, ErrForbidden)

	// Отказ без побочных эффектов
	_, err = f.users.GetByID(ctx, target.ID)
	require.NoError(t, err)
	stillUser, err := f.users.GetByID(ctx, target.ID)
	require.NoError(t, err)
	require.Equal(t, domain.RoleUser, stillUser.Role)
}

func TestAdminSetUserRole(t *testing.T) {
	f := newAdminFixture()
	ctx := context.Background()
	target := f.seedUser(t, "promotee")

	_, err := f.svc.SetUserRole(ctx, domain.RoleAdmin, target.ID, "owner")
	require.ErrorIs(t, err, ErrValidation)

	updated, err := f.svc.SetUserRole(ctx, domain.RoleAdmin, target.ID, domain.RoleAdmin)
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, updated.Role)

	demoted, err := f.svc.SetUserRole(ctx, domain.RoleAdmin, target.ID, domain.RoleUser)
	require.NoError(t, err)
	require.Equal(t, domain.RoleUser, demoted.Role)
}

func TestAdminDeleteUserCascades(t *testing.T) {
	f := newAdminFixture()
	ctx := context.Background()
	admin := f.seedUser(t, "admin")
	victim := f.seedUser(t, "victim")
	other := f.seedUser(t, "other")
	movie := f.seedMovie(t, "Shared Movie")

	_, err := f.reviewFixture.svc.Submit(ctx, victim.ID, movie.ID, validReviewRequest(5))
	require.NoError(t, err)
	_, err = f.reviewFixture.svc.Submit(ctx, other.ID, movie.ID, validReviewRequest(3))
	require.NoError(t, err)

	before, err := f.movies.GetByID(ctx, movie.ID)
	require.NoError(t, err)
	require.InDelta(t, 4.0, before.AverageRating, 0.001)

	require.NoError(t, f.svc.DeleteUser(ctx, domain.RoleAdmin, admin.ID, victim.ID))

	_, err = f.users.GetByID(ctx, victim.ID)
	require.ErrorIs(t, err, store.ErrUserNotFound)

	// Отзывы удалены, агрегат фильма пересчитан по оставшимся
	after, err := f.movies.GetByID(ctx, movie.ID)
	require.NoError(t, err)
	require.Equal(t, 1, after.TotalReviews)
	require.InDelta(t, 3.0, after.AverageRating, 0.001)
}

func TestAdminCannotDeleteSelf(t *testing.T) {
	f := newAdminFixture()
	ctx := context.Background()
	admin := f.seedUser(t, "root")
	other := f.seedUser(t, "bystander")

	err := f.svc.DeleteUser(ctx, domain.RoleAdmin, admin.ID, admin.ID)
	require.ErrorIs(t, err, ErrSelfDelete)

	// Собственный ID в bulk-наборе отклоняет операцию целиком
	_, err = f.svc.BulkDeleteUsers(ctx, domain.RoleAdmin, admin.ID, []string{other.ID, admin.ID})
	require.ErrorIs(t, err, ErrSelfDelete)
	_, err = f.users.GetByID(ctx, other.ID)
	require.NoError(t, err)
}

func TestAdminBulkDeleteUsersCascades(t *testing.T) {
	f := newAdminFixture()
	ctx := context.Background()
	admin := f.seedUser(t, "admin")
	first := f.seedUser(t, "first")
	second := f.seedUser(t, "second")
	keeper := f.seedUser(t, "keeper")
	movie := f.seedMovie(t, "Popular")

	for _, u := range []*domain.User{first, second, keeper} {
		_, err := f.reviewFixture.svc.Submit(ctx, u.ID, movie.ID, validReviewRequest(4))
		require.NoError(t, err)
	}

	deleted, err := f.svc.BulkDeleteUsers(ctx, domain.RoleAdmin, admin.ID, []string{first.ID, second.ID})
	require.NoError(t, err)
	require.Equal(t, 2, deleted)

	after, err := f.movies.GetByID(ctx, movie.ID)
	require.NoError(t, err)
	require.Equal(t, 1, after.TotalReviews)
	require.InDelta(t, 4.0, after.AverageRating, 0.001)
}

func TestAdminBulkDeleteMovies(t *testing.T) {
	f := newAdminFixture()
	ctx := context.Background()
	author := f.seedUser(t, "author")
	doomed := f.seedMovie(t, "Doomed")
	kept := f.seedMovie(t, "Kept")

	_, err := f.reviewFixture.svc.Submit(ctx, author.ID, doomed.ID, validReviewRequest(2))
	require.NoError(t, err)

	deleted, err := f.svc.BulkDeleteMovies(ctx, domain.RoleAdmin, []string{doomed.ID})
	require.NoError(t, err)
	require.Equal(t, 1, deleted)

	_, err = f.movies.GetByID(ctx, doomed.ID)
	require.ErrorIs(t, err, store.ErrMovieNotFound)
	_, err = f.movies.GetByID(ctx, kept.ID)
	require.NoError(t, err)

	// Отзывы удаленного фильма тоже исчезли
	count, err := f.reviews.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, count)
}

func TestAdminStats(t *testing.T) {
	f := newAdminFixture()
	ctx := context.Background()
	alice := f.seedUser(t, "alice")
	bob := f.seedUser(t, "bob")
	movie := f.seedMovie(t, "Counted")

	_, err := f.reviewFixture.svc.Submit(ctx, alice.ID, movie.ID, validReviewRequest(5))
	require.NoError(t, err)
	_, err = f.reviewFixture.svc.Submit(ctx, bob.ID, movie.ID, validReviewRequest(4))
	require.NoError(t, err)

	stats, err := f.svc.GetStats(ctx, domain.RoleAdmin)
	require.NoError(t, err)
	require.Equal(t, 2, stats.TotalUsers)
	require.Equal(t, 1, stats.TotalMovies)
	require.Equal(t, 2, stats.TotalReviews)
	require.InDelta(t, 4.5, stats.AverageRating, 0.001)
}

func TestAdminListUsersSearchAndPagination(t *testing.T) {
	f := newAdminFixture()
	ctx := context.Background()
	f.seedUser(t, "amelia")
	f.seedUser(t, "amir")
	f.seedUser(t, "boris")

	page, err := f.svc.ListUsers(ctx, domain.RoleAdmin, store.UserListParams{Search: "am", Page: 1, PageSize: 1, SortBy: "username_asc"})
	require.NoError(t, err)
	require.Equal(t, 2, page.TotalCount)
	require.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Users, 1)
	require.Equal(t, "amelia", page.Users[0].Username)
}
