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
	"github.com/lib/pq" // Для обработки ошибок PostgreSQL

	"github.com/panjyar/Movie-Review-System/internal/domain"
)

// PostgresReviewStore реализует ReviewStore для PostgreSQL.
type PostgresReviewStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewPostgresReviewStore создает новый экземпляр PostgresReviewStore.
// Важно: db *sqlx.DB должен быть уже подключен и передан сюда.
func NewPostgresReviewStore(db *sqlx.DB, logger *slog.Logger) (*PostgresReviewStore, error) {
	if db == nil {
		return nil, errors.New("database connection (db) cannot be nil for PostgresReviewStore")
	}
	return &PostgresReviewStore{db: db, logger: logger}, nil
}

const reviewColumns = `id, movie_id, user_id, rating, title, content, likes, dislikes, created_at, updated_at`

// Create создает новый отзыв в базе данных.
// Гонка двух одновременных вставок одной пары (user, movie) разрешается
// ограничением uq_user_movie_review: одна вставка проходит, вторая получает
// ErrDuplicateReview.
func (s *PostgresReviewStore) Create(ctx context.Context, review *domain.Review) error {
	query := `INSERT INTO reviews (id, movie_id, user_id, rating, title, content, likes, dislikes, created_at, updated_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	review.CreatedAt = time.Now().UTC()
	review.UpdatedAt = review.CreatedAt

	s.logger.DebugContext(ctx, "Executing Create review query",
		slog.String("reviewID", review.ID),
		slog.String("movieID", review.MovieID),
		slog.String("userID", review.UserID))

	_, err := s.db.ExecContext(ctx, query,
		review.ID, review.MovieID, review.UserID, review.Rating, review.Title, review.Content,
		pq.Array(review.Likes), pq.Array(review.Dislikes),
		review.CreatedAt, review.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" { // unique_violation
			if pqErr.Constraint == "uq_user_movie_review" {
				s.logger.WarnContext(ctx, "User has already reviewed this movie (DB constraint)",
					slog.String("movieID", review.MovieID), slog.String("userID", review.UserID))
				return ErrDuplicateReview
			}
			return fmt.Errorf("failed to create review due to unique constraint %s: %w", pqErr.Constraint, err)
		}
		s.logger.ErrorContext(ctx, "Failed to create review in DB", slog.String("error", err.Error()))
		return fmt.Errorf("failed to create review: %w", err)
	}
	s.logger.InfoContext(ctx, "Review created successfully in DB", slog.String("reviewID", review.ID))
	return nil
}

// GetByID находит отзыв по его ID.
func (s *PostgresReviewStore) GetByID(ctx context.Context, reviewID string) (*domain.Review, error) {
	var review domain.Review
	err := s.db.GetContext(ctx, &review, `SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, reviewID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReviewNotFound
		}
		s.logger.ErrorContext(ctx, "Failed to get review by ID from DB", slog.String("reviewID", reviewID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to get review by ID: %w", err)
	}
	return &review, nil
}

// Update обновляет оценку, заголовок и текст отзыва.
func (s *PostgresReviewStore) Update(ctx context.Context, review *domain.Review) error {
	query := `UPDATE reviews SET rating = $1, title = $2, content = $3, updated_at = $4 WHERE id = $5`
	review.UpdatedAt = time.Now().UTC()

	s.logger.DebugContext(ctx, "Executing Update review query", slog.String("reviewID", review.ID))
	result, err := s.db.ExecContext(ctx, query, review.Rating, review.Title, review.Content, review.UpdatedAt, review.ID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to update review in DB", slog.String("reviewID", review.ID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to update review: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check review update result: %w", err)
	}
	if rowsAffected == 0 {
		return ErrReviewNotFound
	}
	return nil
}

// ToggleVote переключает голос пользователя одним UPDATE: чтение и запись
// массивов происходят внутри одного оператора, конкурирующие голоса на одном
// отзыве не теряются.
func (s *PostgresReviewStore) ToggleVote(ctx context.Context, reviewID, userID string, dislike bool) (int, int, error) {
	query := `UPDATE reviews SET
	              likes = CASE
	                  WHEN NOT $3 AND NOT ($2 = ANY(likes)) THEN array_append(likes, $2)
	                  ELSE array_remove(likes, $2)
	              END,
	              dislikes = CASE
	                  WHEN $3 AND NOT ($2 = ANY(dislikes)) THEN array_append(dislikes, $2)
	                  ELSE array_remove(dislikes, $2)
	              END,
	              updated_at = $4
	          WHERE id = $1
	          RETURNING cardinality(likes), cardinality(dislikes)`

	var likes, dislikes int
	err := s.db.QueryRowContext(ctx, query, reviewID, userID, dislike, time.Now().UTC()).Scan(&likes, &dislikes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, 0, ErrReviewNotFound
		}
		s.logger.ErrorContext(ctx, "Failed to toggle review vote in DB", slog.String("reviewID", reviewID), slog.String("error", err.Error()))
		return 0, 0, fmt.Errorf("failed to toggle review vote: %w", err)
	}
	return likes, dislikes, nil
}

// Delete удаляет отзыв.
func (s *PostgresReviewStore) Delete(ctx context.Context, reviewID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, reviewID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete review from DB", slog.String("reviewID", reviewID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to delete review: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check review delete result: %w", err)
	}
	if rowsAffected == 0 {
		return ErrReviewNotFound
	}
	s.logger.InfoContext(ctx, "Review deleted successfully from DB", slog.String("reviewID", reviewID))
	return nil
}

// DeleteByIDs удаляет отзывы пачкой, возвращает число удаленных.
func (s *PostgresReviewStore) DeleteByIDs(ctx context.Context, ids []string) (int, error) {
	return s.deleteMany(ctx, `DELETE FROM reviews WHERE id = ANY($1)`, ids)
}

// DeleteByUserIDs удаляет все отзывы указанных пользователей.
func (s *PostgresReviewStore) DeleteByUserIDs(ctx context.Context, userIDs []string) (int, error) {
	return s.deleteMany(ctx, `DELETE FROM reviews WHERE user_id = ANY($1)`, userIDs)
}

// DeleteByMovieIDs удаляет все отзывы на указанные фильмы.
func (s *PostgresReviewStore) DeleteByMovieIDs(ctx context.Context, movieIDs []string) (int, error) {
	return s.deleteMany(ctx, `DELETE FROM reviews WHERE movie_id = ANY($1)`, movieIDs)
}

func (s *PostgresReviewStore) deleteMany(ctx context.Context, query string, ids []string) (int, error) {
	result, err := s.db.ExecContext(ctx, query, pq.Array(ids))
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to bulk delete reviews from DB", slog.String("error", err.Error()))
		return 0, fmt.Errorf("failed to bulk delete reviews: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check bulk delete result: %w", err)
	}
	s.logger.InfoContext(ctx, "Reviews bulk deleted from DB", slog.Int64("deleted", rowsAffected))
	return int(rowsAffected), nil
}

// List возвращает страницу отзывов по всей системе (админка).
func (s *PostgresReviewStore) List(ctx context.Context, params ListReviewsParams) ([]*domain.Review, int, error) {
	return s.list(ctx, params, "", nil)
}

// ListByMovieID получает все отзывы для указанного фильма.
func (s *PostgresReviewStore) ListByMovieID(ctx context.Context, movieID string, params ListReviewsParams) ([]*domain.Review, int, error) {
	return s.list(ctx, params, "movie_id", movieID)
}

// ListByUserID получает все отзывы, оставленные пользователем.
func (s *PostgresReviewStore) ListByUserID(ctx context.Context, userID string, params ListReviewsParams) ([]*domain.Review, int, error) {
	return s.list(ctx, params, "user_id", userID)
}

func (s *PostgresReviewStore) list(ctx context.Context, params ListReviewsParams, filterColumn string, filterValue interface{}) ([]*domain.Review, int, error) {
	countQuery := `SELECT COUNT(*) FROM reviews WHERE 1=1`
	selectQuery := `SELECT ` + reviewColumns + ` FROM reviews WHERE 1=1`

	var args []interface{}
	var conditions []string
	argID := 1

	if filterColumn != "" {
		conditions = append(conditions, fmt.Sprintf("%s = $%d", filterColumn, argID))
		args = append(args, filterValue)
		argID++
	}
	if params.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(title) LIKE LOWER($%d) OR LOWER(content) LIKE LOWER($%d))", argID, argID))
		args = append(args, "%"+params.Search+"%")
		argID++
	}

	if len(conditions) > 0 {
		conditionStr := " AND " + strings.Join(conditions, " AND ")
		countQuery += conditionStr
		selectQuery += conditionStr
	}

	var totalCount int
	if err := s.db.GetContext(ctx, &totalCount, countQuery, args...); err != nil {
		s.logger.ErrorContext(ctx, "Failed to count reviews in DB", slog.String("error", err.Error()))
		return nil, 0, fmt.Errorf("failed to count reviews: %w", err)
	}
	if totalCount == 0 {
		return []*domain.Review{}, 0, nil
	}

	orderBy := "created_at DESC"
	switch params.SortBy {
	case "rating_desc":
		orderBy = "rating DESC, created_at DESC"
	case "rating_asc":
		orderBy = "rating ASC, created_at DESC"
	}
	selectQuery += " ORDER BY " + orderBy
	selectQuery += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argID, argID+1)
	args = append(args, params.PageSize, (params.Page-1)*params.PageSize)

	var reviews []*domain.Review
	s.logger.DebugContext(ctx, "Executing List reviews query", slog.String("query", selectQuery))
	if err := s.db.SelectContext(ctx, &reviews, selectQuery, args...); err != nil {
		s.logger.ErrorContext(ctx, "Failed to list reviews from DB", slog.String("error", err.Error()))
		return nil, 0, fmt.Errorf("failed to list reviews: %w", err)
	}
	return reviews, totalCount, nil
}

// CountByUserID возвращает число отзывов пользователя.
func (s *PostgresReviewStore) CountByUserID(ctx context.Context, userID string) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM reviews WHERE user_id = $1`, userID); err != nil {
		return 0, fmt.Errorf("failed to count reviews by userID: %w", err)
	}
	return count, nil
}

// Count возвращает общее число отзывов в системе.
func (s *PostgresReviewStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM reviews`); err != nil {
		return 0, fmt.Errorf("failed to count reviews: %w", err)
	}
	return count, nil
}

// MovieIDsByReviewIDs возвращает различающиеся movie_id для набора отзывов.
func (s *PostgresReviewStore) MovieIDsByReviewIDs(ctx context.Context, reviewIDs []string) ([]string, error) {
	return s.distinctMovieIDs(ctx, `SELECT DISTINCT movie_id FROM reviews WHERE id = ANY($1)`, reviewIDs)
}

// MovieIDsByUserIDs возвращает различающиеся movie_id по отзывам пользователей.
func (s *PostgresReviewStore) MovieIDsByUserIDs(ctx context.Context, userIDs []string) ([]string, error) {
	return s.distinctMovieIDs(ctx, `SELECT DISTINCT movie_id FROM reviews WHERE user_id = ANY($1)`, userIDs)
}

func (s *PostgresReviewStore) distinctMovieIDs(ctx context.Context, query string, ids []string) ([]string, error) {
	var movieIDs []string
	if err := s.db.SelectContext(ctx, &movieIDs, query, pq.Array(ids)); err != nil {
		s.logger.ErrorContext(ctx, "Failed to select distinct movie ids from DB", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to select movie ids: %w", err)
	}
	return movieIDs, nil
}

// GetAggregatedRatingByMovieID рассчитывает средний рейтинг и количество оценок для фильма.
func (s *PostgresReviewStore) GetAggregatedRatingByMovieID(ctx context.Context, movieID string) (*domain.AggregatedRating, error) {
	query := `SELECT COALESCE(AVG(rating), 0) as average_rating, COUNT(rating) as rating_count
              FROM reviews WHERE movie_id = $1`

	var aggRating domain.AggregatedRating
	aggRating.MovieID = movieID

	s.logger.DebugContext(ctx, "Executing GetAggregatedRatingByMovieID query", slog.String("movieID", movieID))
	if err := s.db.GetContext(ctx, &aggRating, query, movieID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to get aggregated rating from DB", slog.String("movieID", movieID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to get aggregated rating for movieID %s: %w", movieID, err)
	}
	return &aggRating, nil
}

// GlobalAverageRating возвращает среднюю оценку по всем отзывам системы.
func (s *PostgresReviewStore) GlobalAverageRating(ctx context.Context) (float64, error) {
	var avg float64
	if err := s.db.GetContext(ctx, &avg, `SELECT COALESCE(AVG(rating), 0) FROM reviews`); err != nil {
		s.logger.ErrorContext(ctx, "Failed to get global average rating from DB", slog.String("error", err.Error()))
		return 0, fmt.Errorf("failed to get global average rating: %w", err)
	}
	return avg, nil
}
