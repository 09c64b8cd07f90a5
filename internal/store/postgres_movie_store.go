package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq" // Для обработки ошибок PostgreSQL и работы с массивами TEXT[]

	"github.com/panjyar/Movie-Review-System/internal/domain"
)

// PostgresMovieStore реализует MovieStore для PostgreSQL.
type PostgresMovieStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewPostgresMovieStore создает новый экземпляр PostgresMovieStore.
func NewPostgresMovieStore(db *sqlx.DB, logger *slog.Logger) (*PostgresMovieStore, error) {
	if db == nil {
		return nil, errors.New("database connection (db) cannot be nil for PostgresMovieStore")
	}
	return &PostgresMovieStore{db: db, logger: logger}, nil
}

const movieColumns = `id, tmdb_id, title, overview, release_date, runtime, genres, poster_path, backdrop_path, average_rating, total_reviews, created_at, updated_at`

// Create создает новый фильм в базе данных.
func (s *PostgresMovieStore) Create(ctx context.Context, movie *domain.Movie) error {
	query := `INSERT INTO movies (id, tmdb_id, title, overview, release_date, runtime, genres, poster_path, backdrop_path, average_rating, total_reviews, created_at, updated_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, 0, $10, $11)`

	movie.CreatedAt = time.Now().UTC()
	movie.UpdatedAt = movie.CreatedAt

	s.logger.DebugContext(ctx, "Executing Create movie query", slog.String("movieID", movie.ID), slog.String("title", movie.Title))
	_, err := s.db.ExecContext(ctx, query,
		movie.ID, movie.TMDBID, movie.Title, movie.Overview, movie.ReleaseDate, movie.Runtime,
		pq.Array(movie.Genres), movie.PosterPath, movie.BackdropPath,
		movie.CreatedAt, movie.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" { // unique_violation
			s.logger.WarnContext(ctx, "Movie already exists (unique constraint violation in DB)",
				slog.String("constraint_name", pqErr.Constraint))
			return ErrMovieAlreadyExists
		}
		s.logger.ErrorContext(ctx, "Failed to create movie in DB", slog.String("error", err.Error()))
		return fmt.Errorf("failed to create movie: %w", err)
	}
	s.logger.InfoContext(ctx, "Movie created successfully in DB", slog.String("movieID", movie.ID))
	return nil
}

// GetByID находит фильм по его ID.
func (s *PostgresMovieStore) GetByID(ctx context.Context, id string) (*domain.Movie, error) {
	var movie domain.Movie
	err := s.db.GetContext(ctx, &movie, `SELECT `+movieColumns+` FROM movies WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMovieNotFound
		}
		s.logger.ErrorContext(ctx, "Failed to get movie by ID from DB", slog.String("movieID", id), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to get movie by ID: %w", err)
	}
	return &movie, nil
}

// Update обновляет метаданные фильма. Агрегаты рейтинга этим методом не меняются.
func (s *PostgresMovieStore) Update(ctx context.Context, movie *domain.Movie) error {
	query := `UPDATE movies SET title = $1, overview = $2, release_date = $3, runtime = $4,
              genres = $5, poster_path = $6, backdrop_path = $7, updated_at = $8 WHERE id = $9`
	movie.UpdatedAt = time.Now().UTC()

	s.logger.DebugContext(ctx, "Executing Update movie query", slog.String("movieID", movie.ID))
	result, err := s.db.ExecContext(ctx, query,
		movie.Title, movie.Overview, movie.ReleaseDate, movie.Runtime,
		pq.Array(movie.Genres), movie.PosterPath, movie.BackdropPath, movie.UpdatedAt, movie.ID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to update movie in DB", slog.String("movieID", movie.ID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to update movie: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check movie update result: %w", err)
	}
	if rowsAffected == 0 {
		return ErrMovieNotFound
	}
	return nil
}

// Delete удаляет фильм. Отзывы и записи watchlist удаляются каскадом схемы.
func (s *PostgresMovieStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM movies WHERE id = $1`, id)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete movie from DB", slog.String("movieID", id), slog.String("error", err.Error()))
		return fmt.Errorf("failed to delete movie: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrMovieNotFound
	}
	s.logger.InfoContext(ctx, "Movie deleted from DB", slog.String("movieID", id))
	return nil
}

// DeleteByIDs удаляет фильмы пачкой, возвращает число удаленных.
func (s *PostgresMovieStore) DeleteByIDs(ctx context.Context, ids []string) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM movies WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to bulk delete movies from DB", slog.String("error", err.Error()))
		return 0, fmt.Errorf("failed to bulk delete movies: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check bulk delete result: %w", err)
	}
	s.logger.InfoContext(ctx, "Movies bulk deleted from DB", slog.Int64("deleted", rowsAffected))
	return int(rowsAffected), nil
}

// List возвращает список фильмов на основе предоставленных параметров.
func (s *PostgresMovieStore) List(ctx context.Context, params MovieListParams) ([]*domain.Movie, int, error) {
	countQuery := `SELECT COUNT(*) FROM movies WHERE 1=1`
	selectQuery := `SELECT ` + movieColumns + ` FROM movies WHERE 1=1`

	var args []interface{}
	var conditions []string
	argID := 1

	if params.Genre != "" {
		// Поиск по жанру в массиве (регистронезависимый)
		conditions = append(conditions, fmt.Sprintf("EXISTS (SELECT 1 FROM unnest(genres) g WHERE LOWER(g) = LOWER($%d))", argID))
		args = append(args, params.Genre)
		argID++
	}
	if params.Year != 0 {
		conditions = append(conditions, fmt.Sprintf("EXTRACT(YEAR FROM release_date) = $%d", argID))
		args = append(args, params.Year)
		argID++
	}
	if params.SearchQuery != "" {
		// Простой поиск по названию (регистронезависимый)
		conditions = append(conditions, fmt.Sprintf("LOWER(title) LIKE LOWER($%d)", argID))
		args = append(args, "%"+params.SearchQuery+"%")
		argID++
	}

	if len(conditions) > 0 {
		conditionStr := " AND " + strings.Join(conditions, " AND ")
		countQuery += conditionStr
		selectQuery += conditionStr
	}

	var totalCount int
	s.logger.DebugContext(ctx, "Executing List movies count query", slog.String("query", countQuery), slog.Any("args", args))
	if err := s.db.GetContext(ctx, &totalCount, countQuery, args...); err != nil {
		s.logger.ErrorContext(ctx, "Failed to count movies in DB", slog.String("error", err.Error()))
		return nil, 0, fmt.Errorf("failed to count movies: %w", err)
	}
	if totalCount == 0 {
		return []*domain.Movie{}, 0, nil
	}

	// Разрешаем только известные варианты сортировки
	orderBy := "created_at DESC" // "newest" — сортировка по умолчанию
	switch params.SortBy {
	case "title":
		orderBy = "title ASC"
	case "release_date":
		orderBy = "release_date DESC"
	case "average_rating":
		orderBy = "average_rating DESC, total_reviews DESC"
	case "total_reviews":
		orderBy = "total_reviews DESC"
	case "oldest":
		orderBy = "created_at ASC"
	}
	selectQuery += " ORDER BY " + orderBy
	selectQuery += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argID, argID+1)
	args = append(args, params.PageSize, (params.Page-1)*params.PageSize)

	var movies []*domain.Movie
	s.logger.DebugContext(ctx, "Executing List movies select query", slog.String("query", selectQuery))
	if err := s.db.SelectContext(ctx, &movies, selectQuery, args...); err != nil {
		s.logger.ErrorContext(ctx, "Failed to list movies from DB", slog.String("error", err.Error()))
		return nil, 0, fmt.Errorf("failed to list movies: %w", err)
	}
	return movies, totalCount, nil
}

// Count возвращает общее число фильмов.
func (s *PostgresMovieStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM movies`); err != nil {
		return 0, fmt.Errorf("failed to count movies: %w", err)
	}
	return count, nil
}

// GetSummaries возвращает краткие описания фильмов для набора ID.
func (s *PostgresMovieStore) GetSummaries(ctx context.Context, ids []string) (map[string]*domain.MovieSummary, error) {
	if len(ids) == 0 {
		return map[string]*domain.MovieSummary{}, nil
	}
	var summaries []*domain.MovieSummary
	query := `SELECT id, title, poster_path, average_rating, total_reviews, release_date FROM movies WHERE id = ANY($1)`
	if err := s.db.SelectContext(ctx, &summaries, query, pq.Array(ids)); err != nil {
		s.logger.ErrorContext(ctx, "Failed to get movie summaries from DB", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to get movie summaries: %w", err)
	}
	result := make(map[string]*domain.MovieSummary, len(summaries))
	for _, summary := range summaries {
		result[summary.ID] = summary
	}
	return result, nil
}

// UpsertByTMDBID вставляет фильм либо обновляет метаданные по tmdb_id.
// Конфликт разрешается на стороне базы, поэтому повторный импорт идемпотентен.
func (s *PostgresMovieStore) UpsertByTMDBID(ctx context.Context, movie *domain.Movie) error {
	if !movie.TMDBID.Valid {
		return errors.New("tmdb_id is required for upsert")
	}

	query := `INSERT INTO movies (id, tmdb_id, title, overview, release_date, runtime, genres, poster_path, backdrop_path, average_rating, total_reviews, created_at, updated_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, 0, $10, $10)
              ON CONFLICT (tmdb_id) DO UPDATE SET
                  title = EXCLUDED.title,
                  overview = EXCLUDED.overview,
                  release_date = EXCLUDED.release_date,
                  runtime = EXCLUDED.runtime,
                  genres = EXCLUDED.genres,
                  poster_path = EXCLUDED.poster_path,
                  backdrop_path = EXCLUDED.backdrop_path,
                  updated_at = EXCLUDED.updated_at
              RETURNING id`

	now := time.Now().UTC()
	s.logger.DebugContext(ctx, "Executing UpsertByTMDBID query", slog.Int64("tmdbID", movie.TMDBID.Int64))
	var id string
	err := s.db.QueryRowContext(ctx, query,
		movie.ID, movie.TMDBID, movie.Title, movie.Overview, movie.ReleaseDate, movie.Runtime,
		pq.Array(movie.Genres), movie.PosterPath, movie.BackdropPath, now,
	).Scan(&id)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to upsert movie by tmdb_id in DB", slog.Int64("tmdbID", movie.TMDBID.Int64), slog.String("error", err.Error()))
		return fmt.Errorf("failed to upsert movie: %w", err)
	}
	movie.ID = id
	s.logger.InfoContext(ctx, "Movie upserted by tmdb_id", slog.String("movieID", id), slog.Int64("tmdbID", movie.TMDBID.Int64))
	return nil
}

// SetRatingAggregate записывает пересчитанные агрегаты рейтинга фильма.
func (s *PostgresMovieStore) SetRatingAggregate(ctx context.Context, movieID string, averageRating float64, totalReviews int) error {
	query := `UPDATE movies SET average_rating = $1, total_reviews = $2, updated_at = $3 WHERE id = $4`

	s.logger.DebugContext(ctx, "Executing SetRatingAggregate query",
		slog.String("movieID", movieID), slog.Float64("avg", averageRating), slog.Int("count", totalReviews))
	result, err := s.db.ExecContext(ctx, query, averageRating, totalReviews, time.Now().UTC(), movieID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to set rating aggregate in DB", slog.String("movieID", movieID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to set rating aggregate: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrMovieNotFound
	}
	return nil
}
