package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/panjyar/Movie-Review-System/internal/domain"
	"github.com/panjyar/Movie-Review-System/internal/store"
)

type catalogFixture struct {
	*reviewFixture
	svc *CatalogService
}

func newCatalogFixture() *catalogFixture {
	base := newReviewFixture()
	return &catalogFixture{
		reviewFixture: base,
		svc:           NewCatalogService(base.movies, base.reviews, validator.New(), testLogger()),
	}
}

func TestCatalogCreateMovie(t *testing.T) {
	f := newCatalogFixture()
	ctx := context.Background()

	movie, err := f.svc.Create(ctx, domain.CreateMovieRequest{
		Title:       "The Thing",
		Overview:    "Researchers in Antarctica find something in the ice.",
		ReleaseDate: "1982-06-25",
		Runtime:     109,
		Genres:      []string{"Horror", "Sci-Fi"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, movie.ID)
	require.Equal(t, 1982, movie.ReleaseDate.Year())
	require.Zero(t, movie.TotalReviews)
	require.Zero(t, movie.AverageRating)

	_, err = f.svc.Create(ctx, domain.CreateMovieRequest{Title: "", Overview: "too short?", ReleaseDate: "bad-date"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestCatalogUpdatePreservesAggregates(t *testing.T) {
	f := newCatalogFixture()
	ctx := context.Background()
	movie := f.seedMovie(t, "Old Title")
	author := f.seedUser(t, "author")

	_, err := f.reviewFixture.svc.Submit(ctx, author.ID, movie.ID, validReviewRequest(5))
	require.NoError(t, err)

	newTitle := "New Title"
	updated, err := f.svc.Update(ctx, movie.ID, domain.UpdateMovieRequest{Title: &newTitle})
	require.NoError(t, err)
	require.Equal(t, "New Title", updated.Title)

	// Редактирование метаданных не трогает агрегаты рейтинга
	fresh, err := f.movies.GetByID(ctx, movie.ID)
	require.NoError(t, err)
	require.Equal(t, 1, fresh.TotalReviews)
	require.InDelta(t, 5.0, fresh.AverageRating, 0.001)
}

func TestCatalogDeleteRemovesReviews(t *testing.T) {
	f := newCatalogFixture()
	ctx := context.Background()
	movie := f.seedMovie(t, "Doomed")
	author := f.seedUser(t, "author")

	_, err := f.reviewFixture.svc.Submit(ctx, author.ID, movie.ID, validReviewRequest(3))
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, movie.ID))

	_, err = f.movies.GetByID(ctx, movie.ID)
	require.ErrorIs(t, err, store.ErrMovieNotFound)
	count, err := f.reviews.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, count)

	require.ErrorIs(t, f.svc.Delete(ctx, movie.ID), store.ErrMovieNotFound)
}

func TestCatalogImportIdempotent(t *testing.T) {
	f := newCatalogFixture()
	ctx := context.Background()

	desc := domain.MovieDescriptor{
		TMDBID:      603,
		Title:       "The Matrix",
		Overview:    "A hacker learns the truth about his reality.",
		ReleaseDate: "1999-03-31",
		Runtime:     136,
		Genres:      []string{"Action", "Sci-Fi"},
	}

	first, err := f.svc.Import(ctx, desc)
	require.NoError(t, err)

	author := f.seedUser(t, "neo")
	_, err = f.reviewFixture.svc.Submit(ctx, author.ID, first.ID, validReviewRequest(5))
	require.NoError(t, err)

	// Повторный импорт обновляет метаданные той же записи и не трогает агрегаты
	desc.Title = "The Matrix (Remastered)"
	second, err := f.svc.Import(ctx, desc)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "The Matrix (Remastered)", second.Title)
	require.Equal(t, 1, second.TotalReviews)
	require.InDelta(t, 5.0, second.AverageRating, 0.001)
}

func TestCatalogListFilters(t *testing.T) {
	f := newCatalogFixture()
	ctx := context.Background()

	_, err := f.svc.Create(ctx, domain.CreateMovieRequest{
		Title:       "Horror One",
		Overview:    "Something scary happens in the woods.",
		ReleaseDate: "2021-10-01",
		Genres:      []string{"Horror"},
	})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, domain.CreateMovieRequest{
		Title:       "Drama One",
		Overview:    "Something sad happens in the city.",
		ReleaseDate: "2022-02-01",
		Genres:      []string{"Drama"},
	})
	require.NoError(t, err)

	page, err := f.svc.List(ctx, store.MovieListParams{Genre: "horror"})
	require.NoError(t, err)
	require.Equal(t, 1, page.TotalCount)
	require.Equal(t, "Horror One", page.Movies[0].Title)

	page, err = f.svc.List(ctx, store.MovieListParams{Year: 2022})
	require.NoError(t, err)
	require.Equal(t, 1, page.TotalCount)
	require.Equal(t, "Drama One", page.Movies[0].Title)
}
