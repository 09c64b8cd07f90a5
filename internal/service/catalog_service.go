package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/panjyar/Movie-Review-System/internal/domain"
	"github.com/panjyar/Movie-Review-System/internal/store"
)

// CatalogService управляет каталогом фильмов: CRUD для администраторов,
// публичный просмотр и идемпотентный импорт из внешнего каталога.
type CatalogService struct {
	movies   store.MovieStore
	reviews  store.ReviewStore
	validate *validator.Validate
	logger   *slog.Logger
}

// NewCatalogService создает новый экземпляр CatalogService.
func NewCatalogService(movies store.MovieStore, reviews store.ReviewStore, validate *validator.Validate, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		movies:   movies,
		reviews:  reviews,
		validate: validate,
		logger:   logger,
	}
}

// Create добавляет фильм в каталог. Агрегаты рейтинга новой записи нулевые.
func (s *CatalogService) Create(ctx context.Context, req domain.CreateMovieRequest) (*domain.Movie, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	releaseDate, err := time.Parse("2006-01-02", req.ReleaseDate)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid release_date", ErrValidation)
	}

	now := time.Now().UTC()
	movie := &domain.Movie{
		ID:           uuid.NewString(),
		Title:        req.Title,
		Overview:     req.Overview,
		ReleaseDate:  releaseDate,
		Runtime:      req.Runtime,
		Genres:       req.Genres,
		PosterPath:   req.PosterPath,
		BackdropPath: req.BackdropPath,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.movies.Create(ctx, movie); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Movie created", slog.String("movieID", movie.ID), slog.String("title", movie.Title))
	return movie, nil
}

// Update редактирует метаданные фильма. Агрегаты рейтинга не трогаются.
func (s *CatalogService) Update(ctx context.Context, movieID string, req domain.UpdateMovieRequest) (*domain.Movie, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	movie, err := s.movies.GetByID(ctx, movieID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		movie.Title = *req.Title
	}
	if req.Overview != nil {
		movie.Overview = *req.Overview
	}
	if req.ReleaseDate != nil {
		releaseDate, err := time.Parse("2006-01-02", *req.ReleaseDate)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid release_date", ErrValidation)
		}
		movie.ReleaseDate = releaseDate
	}
	if req.Runtime != nil {
		movie.Runtime = *req.Runtime
	}
	if req.Genres != nil {
		movie.Genres = req.Genres
	}
	if req.PosterPath != nil {
		movie.PosterPath = *req.PosterPath
	}
	if req.BackdropPath != nil {
		movie.BackdropPath = *req.BackdropPath
	}
	movie.UpdatedAt = time.Now().UTC()

	if err := s.movies.Update(ctx, movie); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Movie updated", slog.String("movieID", movie.ID))
	return movie, nil
}

// Delete удаляет фильм вместе с его отзывами. Сначала удаляются зависимые
// отзывы, затем сама запись каталога.
func (s *CatalogService) Delete(ctx context.Context, movieID string) error {
	if _, err := s.movies.GetByID(ctx, movieID); err != nil {
		return err
	}

	deleted, err := s.reviews.DeleteByMovieIDs(ctx, []string{movieID})
	if err != nil {
		return fmt.Errorf("failed to delete reviews for movie %s: %w", movieID, err)
	}
	if err := s.movies.Delete(ctx, movieID); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Movie deleted", slog.String("movieID", movieID), slog.Int("reviewsDeleted", deleted))
	return nil
}

// Get возвращает фильм по идентификатору.
func (s *CatalogService) Get(ctx context.Context, movieID string) (*domain.Movie, error) {
	return s.movies.GetByID(ctx, movieID)
}

// MoviePage страница каталога вместе с данными пагинации
type MoviePage struct {
	Movies     []*domain.Movie `json:"movies"`
	TotalCount int             `json:"total_count"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
}

// List возвращает страницу каталога с фильтрами по жанру, году и поиском.
func (s *CatalogService) List(ctx context.Context, params store.MovieListParams) (*MoviePage, error) {
	params.Page, params.PageSize = normalizePage(params.Page, params.PageSize)
	movies, total, err := s.movies.List(ctx, params)
	if err != nil {
		return nil, err
	}
	return &MoviePage{
		Movies:     movies,
		TotalCount: total,
		Page:       params.Page,
		PageSize:   params.PageSize,
	}, nil
}

// Import идемпотентно заводит фильм из внешнего каталога по tmdb_id.
// Повторный импорт того же дескриптора обновляет метаданные существующей
// записи, не трогая агрегаты рейтинга.
func (s *CatalogService) Import(ctx context.Context, desc domain.MovieDescriptor) (*domain.Movie, error) {
	if err := s.validate.Struct(desc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	releaseDate, err := time.Parse("2006-01-02", desc.ReleaseDate)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid release_date", ErrValidation)
	}

	now := time.Now().UTC()
	movie := &domain.Movie{
		ID:           uuid.NewString(),
		TMDBID:       sql.NullInt64{Int64: desc.TMDBID, Valid: true},
		Title:        desc.Title,
		Overview:     desc.Overview,
		ReleaseDate:  releaseDate,
		Runtime:      desc.Runtime,
		Genres:       desc.Genres,
		PosterPath:   desc.PosterPath,
		BackdropPath: desc.BackdropPath,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.movies.UpsertByTMDBID(ctx, movie); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Movie imported", slog.String("movieID", movie.ID), slog.Int64("tmdbID", desc.TMDBID))
	return s.movies.GetByID(ctx, movie.ID)
}
