package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/panjyar/Movie-Review-System/internal/domain"
	"github.com/panjyar/Movie-Review-System/internal/store"
)

// ReviewService владеет всеми мутациями отзывов и поддерживает два инварианта:
// один отзыв на пару (пользователь, фильм) и соответствие денормализованных
// агрегатов фильма текущему множеству его отзывов. Любая мутация отзыва
// синхронно завершается пересчетом агрегатов затронутого фильма.
type ReviewService struct {
	reviews store.ReviewStore
	movies  store.MovieStore
	users   store.UserStore
	logger  *slog.Logger
}

// NewReviewService создает новый экземпляр ReviewService.
func NewReviewService(reviews store.ReviewStore, movies store.MovieStore, users store.UserStore, logger *slog.Logger) *ReviewService {
	return &ReviewService{
		reviews: reviews,
		movies:  movies,
		users:   users,
		logger:  logger,
	}
}

// ReviewPage страница отзывов вместе с параметрами пагинации
type ReviewPage struct {
	Reviews    []*domain.Review `json:"reviews"`
	TotalCount int              `json:"total_count"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
}

// Submit создает отзыв пользователя authorID на фильм movieID.
// Возвращает store.ErrDuplicateReview, если отзыв этой пары уже существует,
// и store.ErrMovieNotFound, если фильм отсутствует.
func (s *ReviewService) Submit(ctx context.Context, authorID, movieID string, req domain.CreateReviewRequest) (*domain.Review, error) {
	if err := validateReviewFields(&req.Rating, &req.Title, &req.Content); err != nil {
		return nil, err
	}

	// Фильм должен существовать до вставки
	if _, err := s.movies.GetByID(ctx, movieID); err != nil {
		if errors.Is(err, store.ErrMovieNotFound) {
			s.logger.WarnContext(ctx, "Attempt to create review for non-existent movie", slog.String("movieID", movieID))
			return nil, store.ErrMovieNotFound
		}
		return nil, err
	}

	review := &domain.Review{
		ID:        uuid.NewString(),
		MovieID:   movieID,
		UserID:    authorID,
		Rating:    req.Rating,
		Title:     strings.TrimSpace(req.Title),
		Content:   strings.TrimSpace(req.Content),
		Likes:     []string{},
		Dislikes:  []string{},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Review created", slog.String("reviewID", review.ID), slog.String("movieID", movieID), slog.String("userID", authorID))

	if err := s.RefreshMovieAggregate(ctx, movieID); err != nil {
		return nil, err
	}

	s.attachAuthors(ctx, review)
	return review, nil
}

// Edit обновляет переданные поля отзыва. Редактировать отзыв может только автор.
func (s *ReviewService) Edit(ctx context.Context, reviewID, requesterID string, req domain.UpdateReviewRequest) (*domain.Review, error) {
	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review.UserID != requesterID {
		s.logger.WarnContext(ctx, "User attempted to edit someone else's review",
			slog.String("reviewID", reviewID), slog.String("userID", requesterID))
		return nil, ErrForbidden
	}

	if err := validateReviewFields(req.Rating, req.Title, req.Content); err != nil {
		return nil, err
	}

	if req.Rating != nil {
		review.Rating = *req.Rating
	}
	if req.Title != nil {
		review.Title = strings.TrimSpace(*req.Title)
	}
	if req.Content != nil {
		review.Content = strings.TrimSpace(*req.Content)
	}

	if err := s.reviews.Update(ctx, review); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Review updated", slog.String("reviewID", reviewID))

	if err := s.RefreshMovieAggregate(ctx, review.MovieID); err != nil {
		return nil, err
	}

	s.attachAuthors(ctx, review)
	return review, nil
}

// Delete удаляет отзыв. Разрешено автору и администратору. Удаление обязано
// проходить и после удаления самого фильма: пересчет агрегатов тогда
// превращается в no-op.
func (s *ReviewService) Delete(ctx context.Context, reviewID, requesterID, requesterRole string) error {
	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return err
	}
	if review.UserID != requesterID && requesterRole != domain.RoleAdmin {
		s.logger.WarnContext(ctx, "User attempted to delete someone else's review",
			slog.String("reviewID", reviewID), slog.String("userID", requesterID))
		return ErrForbidden
	}

	if err := s.reviews.Delete(ctx, reviewID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Review deleted", slog.String("reviewID", reviewID), slog.String("deletedBy", requesterID))

	return s.RefreshMovieAggregate(ctx, review.MovieID)
}

// BulkDelete удаляет набор отзывов (только админ) и пересчитывает агрегаты
// каждого затронутого фильма ровно один раз.
func (s *ReviewService) BulkDelete(ctx context.Context, reviewIDs []string, requesterRole string) (int, error) {
	if requesterRole != domain.RoleAdmin {
		return 0, ErrForbidden
	}
	if len(reviewIDs) == 0 {
		return 0, fmt.Errorf("%w: review ids are required", ErrValidation)
	}

	// Собираем затронутые фильмы до удаления: после него связь уже потеряна
	movieIDs, err := s.reviews.MovieIDsByReviewIDs(ctx, reviewIDs)
	if err != nil {
		return 0, err
	}

	deleted, err := s.reviews.DeleteByIDs(ctx, reviewIDs)
	if err != nil {
		return 0, err
	}
	s.logger.InfoContext(ctx, "Reviews bulk deleted", slog.Int("deleted", deleted), slog.Int("movies_affected", len(movieIDs)))

	for _, movieID := range movieIDs {
		if err := s.RefreshMovieAggregate(ctx, movieID); err != nil {
			return deleted, err
		}
	}
	return deleted, nil
}

// ToggleLike идемпотентно переключает лайк пользователя на отзыве.
// Повторный вызов снимает голос; голос в противоположном множестве снимается.
func (s *ReviewService) ToggleLike(ctx context.Context, reviewID, userID string) (*domain.VoteResult, error) {
	return s.toggleVote(ctx, reviewID, userID, false)
}

// ToggleDislike идемпотентно переключает дизлайк пользователя на отзыве.
func (s *ReviewService) ToggleDislike(ctx context.Context, reviewID, userID string) (*domain.VoteResult, error) {
	return s.toggleVote(ctx, reviewID, userID, true)
}

// Переключение целиком выполняется хранилищем: конкурирующие голоса на одном
// отзыве не затирают друг друга через потерянное чтение-изменение-запись.
func (s *ReviewService) toggleVote(ctx context.Context, reviewID, userID string, dislike bool) (*domain.VoteResult, error) {
	likes, dislikes, err := s.reviews.ToggleVote(ctx, reviewID, userID, dislike)
	if err != nil {
		return nil, err
	}
	return &domain.VoteResult{LikesCount: likes, DislikesCount: dislikes}, nil
}

// Get возвращает отзыв с подтянутыми автором и фильмом.
func (s *ReviewService) Get(ctx context.Context, reviewID string) (*domain.Review, error) {
	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	s.attachAuthors(ctx, review)
	s.attachMovies(ctx, review)
	return review, nil
}

// ListByMovie возвращает страницу отзывов фильма с профилями авторов.
func (s *ReviewService) ListByMovie(ctx context.Context, movieID string, params store.ListReviewsParams) (*ReviewPage, error) {
	if _, err := s.movies.GetByID(ctx, movieID); err != nil {
		return nil, err
	}
	params.Page, params.PageSize = normalizePage(params.Page, params.PageSize)
	reviews, totalCount, err := s.reviews.ListByMovieID(ctx, movieID, params)
	if err != nil {
		return nil, err
	}
	s.attachAuthors(ctx, reviews...)
	return &ReviewPage{Reviews: reviews, TotalCount: totalCount, Page: params.Page, PageSize: params.PageSize}, nil
}

// ListByUser возвращает страницу отзывов пользователя с описаниями фильмов.
func (s *ReviewService) ListByUser(ctx context.Context, userID string, params store.ListReviewsParams) (*ReviewPage, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	params.Page, params.PageSize = normalizePage(params.Page, params.PageSize)
	reviews, totalCount, err := s.reviews.ListByUserID(ctx, userID, params)
	if err != nil {
		return nil, err
	}
	s.attachMovies(ctx, reviews...)
	return &ReviewPage{Reviews: reviews, TotalCount: totalCount, Page: params.Page, PageSize: params.PageSize}, nil
}

// AggregatedRating возвращает текущий сырой агрегат рейтинга фильма,
// посчитанный напрямую по множеству отзывов, без округления.
func (s *ReviewService) AggregatedRating(ctx context.Context, movieID string) (*domain.AggregatedRating, error) {
	if _, err := s.movies.GetByID(ctx, movieID); err != nil {
		return nil, err
	}
	return s.reviews.GetAggregatedRatingByMovieID(ctx, movieID)
}

// RefreshMovieAggregate пересчитывает агрегаты рейтинга фильма заново из
// полного множества его отзывов и записывает результат в карточку фильма.
// Пересчет всегда перечитывает хранилище, а не патчит счетчики инкрементально:
// при конкурирующих мутациях последний пересчет перечитает уже закоммиченные
// отзывы и итоговое значение сойдется к истинному агрегату.
// Если фильм уже удален, молча выходит.
func (s *ReviewService) RefreshMovieAggregate(ctx context.Context, movieID string) error {
	agg, err := s.reviews.GetAggregatedRatingByMovieID(ctx, movieID)
	if err != nil {
		return err
	}

	// Округление до 1 знака, половина — от нуля
	rounded := math.Round(agg.AverageRating*10) / 10
	if agg.RatingCount == 0 {
		rounded = 0
	}

	err = s.movies.SetRatingAggregate(ctx, movieID, rounded, agg.RatingCount)
	if errors.Is(err, store.ErrMovieNotFound) {
		s.logger.DebugContext(ctx, "Skipping aggregate refresh for deleted movie", slog.String("movieID", movieID))
		return nil
	}
	if err != nil {
		return err
	}
	s.logger.DebugContext(ctx, "Movie aggregate refreshed",
		slog.String("movieID", movieID), slog.Float64("avg", rounded), slog.Int("count", agg.RatingCount))
	return nil
}

// attachAuthors подтягивает краткие профили авторов к отзывам.
// Ошибка выборки не фатальна: отзыв отдается без профиля.
func (s *ReviewService) attachAuthors(ctx context.Context, reviews ...*domain.Review) {
	ids := make([]string, 0, len(reviews))
	for _, review := range reviews {
		ids = append(ids, review.UserID)
	}
	summaries, err := s.users.GetSummaries(ctx, ids)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to load author summaries for reviews", slog.String("error", err.Error()))
		return
	}
	for _, review := range reviews {
		review.Author = summaries[review.UserID]
	}
}

// attachMovies подтягивает краткие описания фильмов к отзывам.
func (s *ReviewService) attachMovies(ctx context.Context, reviews ...*domain.Review) {
	ids := make([]string, 0, len(reviews))
	for _, review := range reviews {
		ids = append(ids, review.MovieID)
	}
	summaries, err := s.movies.GetSummaries(ctx, ids)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to load movie summaries for reviews", slog.String("error", err.Error()))
		return
	}
	for _, review := range reviews {
		review.Movie = summaries[review.MovieID]
	}
}

// validateReviewFields проверяет доменные ограничения полей отзыва.
// Лимиты длины считаются в символах, не в байтах.
// nil-поля пропускаются, что позволяет переиспользовать проверку для patch.
func validateReviewFields(rating *int, title, content *string) error {
	if rating != nil && (*rating < 1 || *rating > 5) {
		return fmt.Errorf("%w: rating must be between 1 and 5", ErrValidation)
	}
	if title != nil {
		trimmed := strings.TrimSpace(*title)
		if trimmed == "" || utf8.RuneCountInString(trimmed) > 100 {
			return fmt.Errorf("%w: title must be 1-100 characters", ErrValidation)
		}
	}
	if content != nil {
		length := utf8.RuneCountInString(strings.TrimSpace(*content))
		if length < 10 || length > 2000 {
			return fmt.Errorf("%w: content must be 10-2000 characters", ErrValidation)
		}
	}
	return nil
}
