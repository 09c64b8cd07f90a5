package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/panjyar/Movie-Review-System/internal/domain"
	"github.com/panjyar/Movie-Review-System/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type reviewFixture struct {
	svc     *ReviewService
	users   *store.MockUserStore
	movies  *store.MockMovieStore
	reviews *store.MockReviewStore
}

func newReviewFixture() *reviewFixture {
	users := store.NewMockUserStore()
	movies := store.NewMockMovieStore()
	reviews := store.NewMockReviewStore()
	return &reviewFixture{
		svc:     NewReviewService(reviews, movies, users, testLogger()),
		users:   users,
		movies:  movies,
		reviews: reviews,
	}
}

func (f *reviewFixture) seedUser(t *testing.T, username string) *domain.User {
	t.Helper()
	user := &domain.User{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     username + "@example.com",
		Role:      domain.RoleUser,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, f.users.Create(context.Background(), user))
	return user
}

func (f *reviewFixture) seedMovie(t *testing.T, title string) *domain.Movie {
	t.Helper()
	movie := &domain.Movie{
		ID:          uuid.NewString(),
		Title:       title,
		Overview:    "Overview for " + title,
		ReleaseDate: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	require.NoError(t, f.movies.Create(context.Background(), movie))
	return movie
}

func validReviewRequest(rating int) domain.CreateReviewRequest {
	return domain.CreateReviewRequest{
		Rating:  rating,
		Title:   "Worth watching",
		Content: "Long enough review content to pass validation.",
	}
}

func TestSubmitReviewRefreshesAggregate(t *testing.T) {
	f := newReviewFixture()
	ctx := context.Background()
	movie := f.seedMovie(t, "Heat")

	for i, rating := range []int{5, 4, 4} {
		user := f.seedUser(t, "viewer"+string(rune('a'+i)))
		_, err := f.svc.Submit(ctx, user.ID, movie.ID, validReviewRequest(rating))
		require.NoError(t, err)
	}

	updated, err := f.movies.GetByID(ctx, movie.ID)
	require.NoError(t, err)
	require.Equal(t, 3, updated.TotalReviews)
	require.InDelta(t, 4.3, updated.AverageRating, 0.001) // 13/3 = 4.33..., округляется до 4.3
}

func TestSubmitReviewDuplicateRejected(t *testing.T) {
	f := newReviewFixture()
	ctx := context.Background()
	movie := f.seedMovie(t, "Alien")
	user := f.seedUser(t, "ripley")

	_, err := f.svc.Submit(ctx, user.ID, movie.ID, validReviewRequest(5))
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, user.ID, movie.ID, validReviewRequest(1))
	require.ErrorIs(t, err, store.ErrDuplicateReview)

	// Неудачная попытка не трогает агрегаты
	updated, err := f.movies.GetByID(ctx, movie.ID)
	require.NoError(t, err)
	require.Equal(t, 1, updated.TotalReviews)
	require.InDelta(t, 5.0, updated.AverageRating, 0.001)
}

func TestSubmitReviewMovieNotFound(t *testing.T) {
	f := newReviewFixture()
	user := f.seedUser(t, "ghost")

	_, err := f.svc.Submit(context.Background(), user.ID, uuid.NewString(), validReviewRequest(3))
	require.ErrorIs(t, err, store.ErrMovieNotFound)
}

func TestSubmitReviewValidation(t *testing.T) {
	f := newReviewFixture()
	ctx := context.Background()
	movie := f.seedMovie(t, "Dune")
	user := f.seedUser(t, "paul")

	tests := []struct {
		name string
		req  domain.CreateReviewRequest
	}{
		{"rating too high", domain.CreateReviewRequest{Rating: 6, Title: "ok", Content: "Content long enough here."}},
		{"rating missing", domain.CreateReviewRequest{Title: "ok", Content: "Content long enough here."}},
		{"empty title", domain.CreateReviewRequest{Rating: 3, Title: "   ", Content: "Content long enough here."}},
		{"short content", domain.CreateReviewRequest{Rating: 3, Title: "ok", Content: "short"}},
		{"title over 100 characters", domain.CreateReviewRequest{Rating: 3, Title: strings.Repeat("x", 101), Content: "Content long enough here."}},
		{"multibyte content too short", domain.CreateReviewRequest{Rating: 3, Title: "ok", Content: "коротко"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Submit(ctx, user.ID, movie.ID, tc.req)
			require.ErrorIs(t, err, ErrValidation)
		})
	}

	// Лимиты считаются в символах: кириллический заголовок из 100 символов
	// занимает 200 байт и все равно проходит
	_, err := f.svc.Submit(ctx, user.ID, movie.ID, domain.CreateReviewRequest{
		Rating:  4,
		Title:   strings.Repeat("ж", 100),
		Content: "Достаточно длинный текст отзыва.",
	})
	require.NoError(t, err)
}

func TestEditReview(t *testing.T) {
	f := newReviewFixture()
	ctx := context.Background()
	movie := f.seedMovie(t, "Se7en")
	author := f.seedUser(t, "somerset")
	stranger := f.seedUser(t, "mills")

	review, err := f.svc.Submit(ctx, author.ID, movie.ID, validReviewRequest(5))
	require.NoError(t, err)

	newRating := 3
	_, err = f.svc.Edit(ctx, review.ID, stranger.ID, domain.UpdateReviewRequest{Rating: &newRating})
	require.ErrorIs(t, err, ErrForbidden)

	edited, err := f.svc.Edit(ctx, review.ID, author.ID, domain.UpdateReviewRequest{Rating: &newRating})
	require.NoError(t, err)
	require.Equal(t, 3, edited.Rating)

	// Агрегат пересчитан по новой оценке
	updated, err := f.movies.GetByID(ctx, movie.ID)
	require.NoError(t, err)
	require.InDelta(t, 3.0, updated.AverageRating, 0.001)
	require.Equal(t, 1, updated.TotalReviews)
}

func TestDeleteReview(t *testing.T) {
	f := newReviewFixture()
	ctx := context.Background()
	movie := f.seedMovie(t, "Jaws")
	author := f.seedUser(t, "brody")
	other := f.seedUser(t, "quint")
	admin := f.seedUser(t, "hooper")

	first, err := f.svc.Submit(ctx, author.ID, movie.ID, validReviewRequest(5))
	require.NoError(t, err)
	second, err := f.svc.Submit(ctx, other.ID, movie.ID, validReviewRequest(4))
	require.NoError(t, err)

	// Чужой пользователь удалить не может
	err = f.svc.Delete(ctx, first.ID, other.ID, domain.RoleUser)
	require.ErrorIs(t, err, ErrForbidden)

	// Автор удаляет свой отзыв, агрегат пересчитывается
	require.NoError(t, f.svc.Delete(ctx, first.ID, author.ID, domain.RoleUser))
	updated, err := f.movies.GetByID(ctx, movie.ID)
	require.NoError(t, err)
	require.Equal(t, 1, updated.TotalReviews)
	require.InDelta(t, 4.0, updated.AverageRating, 0.001)

	// Администратор удаляет чужой отзыв
	require.NoError(t, f.svc.Delete(ctx, second.ID, admin.ID, domain.RoleAdmin))
	updated, err = f.movies.GetByID(ctx, movie.ID)
	require.NoError(t, err)
	require.Equal(t, 0, updated.TotalReviews)
	require.InDelta(t, 0.0, updated.AverageRating, 0.001)
}

func TestDeleteReviewAfterMovieDeleted(t *testing.T) {
	f := newReviewFixture()
	ctx := context.Background()
	movie := f.seedMovie(t, "Vanished")
	author := f.seedUser(t, "witness")

	review, err := f.svc.Submit(ctx, author.ID, movie.ID, validReviewRequest(4))
	require.NoError(t, err)

	// Фильм удален напрямую, отзыв остался. Удаление отзыва все равно
	// проходит, пересчет агрегата превращается в no-op.
	require.NoError(t, f.movies.Delete(ctx, movie.ID))
	require.NoError(t, f.svc.Delete(ctx, review.ID, author.ID, domain.RoleUser))

	_, err = f.reviews.GetByID(ctx, review.ID)
	require.ErrorIs(t, err, store.ErrReviewNotFound)
}

func TestToggleVotes(t *testing.T) {
	f := newReviewFixture()
	ctx := context.Background()
	movie := f.seedMovie(t, "Rashomon")
	author := f.seedUser(t, "woodcutter")
	voter := f.seedUser(t, "priest")

	review, err := f.svc.Submit(ctx, author.ID, movie.ID, validReviewRequest(5))
	require.NoError(t, err)

	// Лайк
	result, err := f.svc.ToggleLike(ctx, review.ID, voter.ID)
	require.NoError(t, err)
	require.Equal(t, 1, result.LikesCount)
	require.Equal(t, 0, result.DislikesCount)

	// Дизлайк снимает лайк: голоса взаимоисключающие
	result, err = f.svc.ToggleDislike(ctx, review.ID, voter.ID)
	require.NoError(t, err)
	require.Equal(t, 0, result.LikesCount)
	require.Equal(t, 1, result.DislikesCount)

	// Повторный дизлайк снимает голос
	result, err = f.svc.ToggleDislike(ctx, review.ID, voter.ID)
	require.NoError(t, err)
	require.Equal(t, 0, result.LikesCount)
	require.Equal(t, 0, result.DislikesCount)
}

func TestToggleVotesConcurrent(t *testing.T) {
	f := newReviewFixture()
	ctx := context.Background()
	movie := f.seedMovie(t, "Crowded")
	author := f.seedUser(t, "author")

	review, err := f.svc.Submit(ctx, author.ID, movie.ID, validReviewRequest(4))
	require.NoError(t, err)

	// Конкурирующие голоса разных пользователей не теряются
	const voters = 32
	errs := make(chan error, voters)
	var wg sync.WaitGroup
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func(voterID string) {
			defer wg.Done()
			_, err := f.svc.ToggleLike(ctx, review.ID, voterID)
			errs <- err
		}(uuid.NewString())
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	fresh, err := f.reviews.GetByID(ctx, review.ID)
	require.NoError(t, err)
	require.Len(t, fresh.Likes, voters)
	require.Empty(t, fresh.Dislikes)
}

func TestBulkDeleteReviews(t *testing.T) {
	f := newReviewFixture()
	ctx := context.Background()
	movieA := f.seedMovie(t, "Movie A")
	movieB := f.seedMovie(t, "Movie B")
	userOne := f.seedUser(t, "one")
	userTwo := f.seedUser(t, "two")

	reviewA1, err := f.svc.Submit(ctx, userOne.ID, movieA.ID, validReviewRequest(5))
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, userTwo.ID, movieA.ID, validReviewRequest(3))
	require.NoError(t, err)
	reviewB1, err := f.svc.Submit(ctx, userOne.ID, movieB.ID, validReviewRequest(2))
	require.NoError(t, err)

	// Не админ — отказ без изменений
	_, err = f.svc.BulkDelete(ctx, []string{reviewA1.ID}, domain.RoleUser)
	require.ErrorIs(t, err, ErrForbidden)
	count, err := f.reviews.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, count)

	deleted, err := f.svc.BulkDelete(ctx, []string{reviewA1.ID, reviewB1.ID}, domain.RoleAdmin)
	require.NoError(t, err)
	require.Equal(t, 2, deleted)

	updatedA, err := f.movies.GetByID(ctx, movieA.ID)
	require.NoError(t, err)
	require.Equal(t, 1, updatedA.TotalReviews)
	require.InDelta(t, 3.0, updatedA.AverageRating, 0.001)

	updatedB, err := f.movies.GetByID(ctx, movieB.ID)
	require.NoError(t, err)
	require.Equal(t, 0, updatedB.TotalReviews)
	require.InDelta(t, 0.0, updatedB.AverageRating, 0.001)
}

func TestListByMovieAttachesAuthors(t *testing.T) {
	f := newReviewFixture()
	ctx := context.Background()
	movie := f.seedMovie(t, "Solaris")
	author := f.seedUser(t, "kelvin")

	_, err := f.svc.Submit(ctx, author.ID, movie.ID, validReviewRequest(4))
	require.NoError(t, err)

	page, err := f.svc.ListByMovie(ctx, movie.ID, store.ListReviewsParams{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, 1, page.TotalCount)
	require.Len(t, page.Reviews, 1)
	require.NotNil(t, page.Reviews[0].Author)
	require.Equal(t, "kelvin", page.Reviews[0].Author.Username)
}
