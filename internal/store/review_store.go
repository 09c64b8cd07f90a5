package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/panjyar/Movie-Review-System/internal/domain"
)

// Кастомные ошибки хранилища отзывов
var (
	ErrReviewNotFound  = errors.New("review not found")
	ErrDuplicateReview = errors.New("user has already reviewed this movie")
)

// ListReviewsParams параметры для получения списка отзывов
type ListReviewsParams struct {
	Page     int
	PageSize int
	Search   string // Подстрока по заголовку или тексту (админка)
	SortBy   string // "created_at_desc" (по умолчанию), "rating_desc", "rating_asc"
}

// ReviewStore определяет интерфейс для операций с данными отзывов.
// Уникальность пары (user_id, movie_id) обеспечивается хранилищем: создание
// дубликата возвращает ErrDuplicateReview без побочных эффектов.
type ReviewStore interface {
	Create(ctx context.Context, review *domain.Review) error
	GetByID(ctx context.Context, reviewID string) (*domain.Review, error)
	Update(ctx context.Context, review *domain.Review) error
	// ToggleVote атомарно переключает голос пользователя на отзыве: повторный
	// голос снимается, голос в противоположном множестве убирается той же
	// операцией. Возвращает итоговые размеры множеств.
	ToggleVote(ctx context.Context, reviewID, userID string, dislike bool) (likesCount, dislikesCount int, err error)
	Delete(ctx context.Context, reviewID string) error
	DeleteByIDs(ctx context.Context, ids []string) (int, error)
	DeleteByUserIDs(ctx context.Context, userIDs []string) (int, error)
	DeleteByMovieIDs(ctx context.Context, movieIDs []string) (int, error)

	List(ctx context.Context, params ListReviewsParams) ([]*domain.Review, int, error)
	ListByMovieID(ctx context.Context, movieID string, params ListReviewsParams) ([]*domain.Review, int, error)
	ListByUserID(ctx context.Context, userID string, params ListReviewsParams) ([]*domain.Review, int, error)
	CountByUserID(ctx context.Context, userID string) (int, error)
	Count(ctx context.Context) (int, error)

	// MovieIDsByReviewIDs возвращает различающиеся movie_id для набора отзывов
	MovieIDsByReviewIDs(ctx context.Context, reviewIDs []string) ([]string, error)
	// MovieIDsByUserIDs возвращает различающиеся movie_id, на которые
	// оставляли отзывы указанные пользователи
	MovieIDsByUserIDs(ctx context.Context, userIDs []string) ([]string, error)

	GetAggregatedRatingByMovieID(ctx context.Context, movieID string) (*domain.AggregatedRating, error)
	// GlobalAverageRating средняя оценка по всем отзывам системы; 0 при пустом наборе
	GlobalAverageRating(ctx context.Context) (float64, error)
}

// MockReviewStore in-memory реализация для разработки и тестов
type MockReviewStore struct {
	mu       sync.RWMutex
	reviews  map[string]*domain.Review  // Ключ: reviewID
	byAuthor map[string]map[string]bool // Для проверки ErrDuplicateReview: map[movieID]map[userID]bool
}

// NewMockReviewStore создает новый экземпляр MockReviewStore
func NewMockReviewStore() *MockReviewStore {
	return &MockReviewStore{
		reviews:  make(map[string]*domain.Review),
		byAuthor: make(map[string]map[string]bool),
	}
}

func (m *MockReviewStore) Create(ctx context.Context, review *domain.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Один пользователь — один отзыв на фильм
	if m.byAuthor[review.MovieID] != nil && m.byAuthor[review.MovieID][review.UserID] {
		return ErrDuplicateReview
	}
	if _, exists := m.reviews[review.ID]; exists {
		return errors.New("review with this ID already exists")
	}

	reviewCopy := *review // Сохраняем копию
	m.reviews[review.ID] = &reviewCopy
	if m.byAuthor[review.MovieID] == nil {
		m.byAuthor[review.MovieID] = make(map[string]bool)
	}
	m.byAuthor[review.MovieID][review.UserID] = true
	return nil
}

func (m *MockReviewStore) GetByID(ctx context.Context, reviewID string) (*domain.Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if review, ok := m.reviews[reviewID]; ok {
		reviewCopy := *review
		return &reviewCopy, nil
	}
	return nil, ErrReviewNotFound
}

func (m *MockReviewStore) Update(ctx context.Context, review *domain.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.reviews[review.ID]
	if !ok {
		return ErrReviewNotFound
	}
	existing.Rating = review.Rating
	existing.Title = review.Title
	existing.Content = review.Content
	existing.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MockReviewStore) ToggleVote(ctx context.Context, reviewID, userID string, dislike bool) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.reviews[reviewID]
	if !ok {
		return 0, 0, ErrReviewNotFound
	}

	target, opposite := []string(existing.Likes), []string(existing.Dislikes)
	if dislike {
		target, opposite = opposite, target
	}
	if containsID(target, userID) {
		target = removeID(target, userID)
	} else {
		target = append(target, userID)
		opposite = removeID(opposite, userID)
	}
	if dislike {
		existing.Likes, existing.Dislikes = opposite, target
	} else {
		existing.Likes, existing.Dislikes = target, opposite
	}
	existing.UpdatedAt = time.Now().UTC()
	return len(existing.Likes), len(existing.Dislikes), nil
}

func containsID(ids []string, id string) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}

func removeID(ids []string, id string) []string {
	result := make([]string, 0, len(ids))
	for _, existing := range ids {
		if existing != id {
			result = append(result, existing)
		}
	}
	return result
}

func (m *MockReviewStore) Delete(ctx context.Context, reviewID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	review, ok := m.reviews[reviewID]
	if !ok {
		return ErrReviewNotFound
	}
	m.deleteLocked(review)
	return nil
}

func (m *MockReviewStore) DeleteByIDs(ctx context.Context, ids []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	deleted := 0
	for _, id := range ids {
		if review, ok := m.reviews[id]; ok {
			m.deleteLocked(review)
			deleted++
		}
	}
	return deleted, nil
}

func (m *MockReviewStore) DeleteByUserIDs(ctx context.Context, userIDs []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		users[id] = true
	}
	deleted := 0
	for _, review := range m.reviews {
		if users[review.UserID] {
			m.deleteLocked(review)
			deleted++
		}
	}
	return deleted, nil
}

func (m *MockReviewStore) DeleteByMovieIDs(ctx context.Context, movieIDs []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	movies := make(map[string]bool, len(movieIDs))
	for _, id := range movieIDs {
		movies[id] = true
	}
	deleted := 0
	for _, review := range m.reviews {
		if movies[review.MovieID] {
			m.deleteLocked(review)
			deleted++
		}
	}
	return deleted, nil
}

// deleteLocked удаляет отзыв и запись в индексе дубликатов. Вызывать под mu.
func (m *MockReviewStore) deleteLocked(review *domain.Review) {
	delete(m.reviews, review.ID)
	if m.byAuthor[review.MovieID] != nil {
		delete(m.byAuthor[review.MovieID], review.UserID)
		if len(m.byAuthor[review.MovieID]) == 0 {
			delete(m.byAuthor, review.MovieID)
		}
	}
}

func (m *MockReviewStore) List(ctx context.Context, params ListReviewsParams) ([]*domain.Review, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listLocked(params, func(r *domain.Review) bool { return true })
}

func (m *MockReviewStore) ListByMovieID(ctx context.Context, movieID string, params ListReviewsParams) ([]*domain.Review, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listLocked(params, func(r *domain.Review) bool { return r.MovieID == movieID })
}

func (m *MockReviewStore) ListByUserID(ctx context.Context, userID string, params ListReviewsParams) ([]*domain.Review, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listLocked(params, func(r *domain.Review) bool { return r.UserID == userID })
}

// listLocked общий путь выборки с фильтром, сортировкой и пагинацией. Вызывать под mu.
func (m *MockReviewStore) listLocked(params ListReviewsParams, keep func(*domain.Review) bool) ([]*domain.Review, int, error) {
	var filtered []domain.Review
	for _, review := range m.reviews {
		if !keep(review) {
			continue
		}
		if params.Search != "" {
			needle := strings.ToLower(params.Search)
			if !strings.Contains(strings.ToLower(review.Title), needle) &&
				!strings.Contains(strings.ToLower(review.Content), needle) {
				continue
			}
		}
		filtered = append(filtered, *review)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		switch params.SortBy {
		case "rating_desc":
			if filtered[i].Rating == filtered[j].Rating {
				return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
			}
			return filtered[i].Rating > filtered[j].Rating
		case "rating_asc":
			if filtered[i].Rating == filtered[j].Rating {
				return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
			}
			return filtered[i].Rating < filtered[j].Rating
		default: // "created_at_desc" или неизвестное значение
			return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
		}
	})

	totalCount := len(filtered)
	page := paginate(totalCount, params.Page, params.PageSize)
	result := make([]*domain.Review, 0, page.end-page.start)
	for i := page.start; i < page.end; i++ {
		reviewCopy := filtered[i]
		result = append(result, &reviewCopy)
	}
	return result, totalCount, nil
}

func (m *MockReviewStore) CountByUserID(ctx context.Context, userID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, review := range m.reviews {
		if review.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (m *MockReviewStore) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.reviews), nil
}

func (m *MockReviewStore) MovieIDsByReviewIDs(ctx context.Context, reviewIDs []string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]bool)
	var result []string
	for _, id := range reviewIDs {
		if review, ok := m.reviews[id]; ok && !seen[review.MovieID] {
			seen[review.MovieID] = true
			result = append(result, review.MovieID)
		}
	}
	return result, nil
}

func (m *MockReviewStore) MovieIDsByUserIDs(ctx context.Context, userIDs []string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	users := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		users[id] = true
	}
	seen := make(map[string]bool)
	var result []string
	for _, review := range m.reviews {
		if users[review.UserID] && !seen[review.MovieID] {
			seen[review.MovieID] = true
			result = append(result, review.MovieID)
		}
	}
	return result, nil
}

func (m *MockReviewStore) GetAggregatedRatingByMovieID(ctx context.Context, movieID string) (*domain.AggregatedRating, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var sumRating, ratingCount int
	for _, review := range m.reviews {
		if review.MovieID == movieID {
			sumRating += review.Rating
			ratingCount++
		}
	}

	var avgRating float64
	if ratingCount > 0 {
		avgRating = float64(sumRating) / float64(ratingCount)
	}
	return &domain.AggregatedRating{MovieID: movieID, AverageRating: avgRating, RatingCount: ratingCount}, nil
}

func (m *MockReviewStore) GlobalAverageRating(ctx context.Context) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.reviews) == 0 {
		return 0, nil
	}
	sum := 0
	for _, review := range m.reviews {
		sum += review.Rating
	}
	return float64(sum) / float64(len(m.reviews)), nil
}
