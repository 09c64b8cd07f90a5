package store

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/panjyar/Movie-Review-System/internal/domain"
)

var (
	ErrMovieNotFound      = errors.New("movie not found")
	ErrMovieAlreadyExists = errors.New("movie with these identifying features already exists")
)

// MovieListParams параметры для постраничной выборки фильмов
type MovieListParams struct {
	Page        int
	PageSize    int
	Genre       string
	Year        int
	SearchQuery string // Подстрока по названию, без учета регистра
	SortBy      string // "title", "release_date", "average_rating", "total_reviews", "newest", "oldest"
}

// MovieStore определяет интерфейс для операций с данными фильмов.
// AverageRating/TotalReviews меняются только через SetRatingAggregate.
type MovieStore interface {
	Create(ctx context.Context, movie *domain.Movie) error
	GetByID(ctx context.Context, id string) (*domain.Movie, error)
	Update(ctx context.Context, movie *domain.Movie) error
	Delete(ctx context.Context, id string) error
	DeleteByIDs(ctx context.Context, ids []string) (int, error)
	List(ctx context.Context, params MovieListParams) ([]*domain.Movie, int, error)
	Count(ctx context.Context) (int, error)
	GetSummaries(ctx context.Context, ids []string) (map[string]*domain.MovieSummary, error)

	// UpsertByTMDBID вставляет фильм либо обновляет метаданные существующего
	// с тем же tmdb_id. В movie.ID возвращается итоговый идентификатор записи.
	UpsertByTMDBID(ctx context.Context, movie *domain.Movie) error

	// SetRatingAggregate записывает пересчитанные агрегаты рейтинга.
	// Возвращает ErrMovieNotFound, если фильм уже удален.
	SetRatingAggregate(ctx context.Context, movieID string, averageRating float64, totalReviews int) error
}

// MockMovieStore in-memory реализация для разработки и тестов
type MockMovieStore struct {
	mu     sync.RWMutex
	movies map[string]*domain.Movie // Ключ: movieID
}

// NewMockMovieStore создает новый экземпляр MockMovieStore
func NewMockMovieStore() *MockMovieStore {
	return &MockMovieStore{
		movies: make(map[string]*domain.Movie),
	}
}

func (m *MockMovieStore) Create(ctx context.Context, movie *domain.Movie) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.movies[movie.ID]; exists {
		return ErrMovieAlreadyExists
	}
	if movie.TMDBID.Valid {
		for _, existing := range m.movies {
			if existing.TMDBID.Valid && existing.TMDBID.Int64 == movie.TMDBID.Int64 {
				return ErrMovieAlreadyExists
			}
		}
	}
	movieCopy := *movie // Клонируем перед сохранением
	m.movies[movie.ID] = &movieCopy
	return nil
}

func (m *MockMovieStore) GetByID(ctx context.Context, id string) (*domain.Movie, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if movie, ok := m.movies[id]; ok {
		movieCopy := *movie
		return &movieCopy, nil
	}
	return nil, ErrMovieNotFound
}

func (m *MockMovieStore) Update(ctx context.Context, movie *domain.Movie) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.movies[movie.ID]
	if !ok {
		return ErrMovieNotFound
	}
	movieCopy := *movie
	// Агрегаты не редактируются этим методом
	movieCopy.AverageRating = existing.AverageRating
	movieCopy.TotalReviews = existing.TotalReviews
	movieCopy.UpdatedAt = time.Now().UTC()
	m.movies[movie.ID] = &movieCopy
	return nil
}

func (m *MockMovieStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.movies[id]; !ok {
		return ErrMovieNotFound
	}
	delete(m.movies, id)
	return nil
}

func (m *MockMovieStore) DeleteByIDs(ctx context.Context, ids []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	deleted := 0
	for _, id := range ids {
		if _, ok := m.movies[id]; ok {
			delete(m.movies, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *MockMovieStore) List(ctx context.Context, params MovieListParams) ([]*domain.Movie, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var filtered []domain.Movie
	for _, movie := range m.movies {
		if params.Genre != "" {
			foundGenre := false
			for _, g := range movie.Genres {
				if strings.EqualFold(g, params.Genre) {
					foundGenre = true
					break
				}
			}
			if !foundGenre {
				continue
			}
		}
		if params.Year != 0 && movie.ReleaseDate.Year() != params.Year {
			continue
		}
		if params.SearchQuery != "" && !strings.Contains(strings.ToLower(movie.Title), strings.ToLower(params.SearchQuery)) {
			continue
		}
		filtered = append(filtered, *movie)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		switch params.SortBy {
		case "title":
			return strings.ToLower(filtered[i].Title) < strings.ToLower(filtered[j].Title)
		case "release_date":
			return filtered[i].ReleaseDate.After(filtered[j].ReleaseDate)
		case "average_rating":
			if filtered[i].AverageRating == filtered[j].AverageRating {
				return filtered[i].TotalReviews > filtered[j].TotalReviews
			}
			return filtered[i].AverageRating > filtered[j].AverageRating
		case "total_reviews":
			return filtered[i].TotalReviews > filtered[j].TotalReviews
		case "oldest":
			return filtered[i].CreatedAt.Before(filtered[j].CreatedAt)
		default: // "newest" или неизвестное значение
			return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
		}
	})

	totalCount := len(filtered)
	page := paginate(totalCount, params.Page, params.PageSize)
	result := make([]*domain.Movie, 0, page.end-page.start)
	for i := page.start; i < page.end; i++ {
		movieCopy := filtered[i]
		result = append(result, &movieCopy)
	}
	return result, totalCount, nil
}

func (m *MockMovieStore) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.movies), nil
}

func (m *MockMovieStore) GetSummaries(ctx context.Context, ids []string) (map[string]*domain.MovieSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make(map[string]*domain.MovieSummary, len(ids))
	for _, id := range ids {
		if movie, ok := m.movies[id]; ok {
			result[id] = &domain.MovieSummary{
				ID:            movie.ID,
				Title:         movie.Title,
				PosterPath:    movie.PosterPath,
				AverageRating: movie.AverageRating,
				TotalReviews:  movie.TotalReviews,
				ReleaseDate:   movie.ReleaseDate,
			}
		}
	}
	return result, nil
}

func (m *MockMovieStore) UpsertByTMDBID(ctx context.Context, movie *domain.Movie) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !movie.TMDBID.Valid {
		return errors.New("tmdb_id is required for upsert")
	}
	for _, existing := range m.movies {
		if existing.TMDBID.Valid && existing.TMDBID.Int64 == movie.TMDBID.Int64 {
			// Обновляем метаданные, агрегаты не трогаем
			existing.Title = movie.Title
			existing.Overview = movie.Overview
			existing.ReleaseDate = movie.ReleaseDate
			existing.Runtime = movie.Runtime
			existing.Genres = movie.Genres
			existing.PosterPath = movie.PosterPath
			existing.BackdropPath = movie.BackdropPath
			existing.UpdatedAt = time.Now().UTC()
			movie.ID = existing.ID
			return nil
		}
	}
	movieCopy := *movie
	m.movies[movie.ID] = &movieCopy
	return nil
}

func (m *MockMovieStore) SetRatingAggregate(ctx context.Context, movieID string, averageRating float64, totalReviews int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	movie, ok := m.movies[movieID]
	if !ok {
		return ErrMovieNotFound
	}
	movie.AverageRating = math.Round(averageRating*10) / 10
	movie.TotalReviews = totalReviews
	movie.UpdatedAt = time.Now().UTC()
	return nil
}
