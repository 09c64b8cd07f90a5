package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/panjyar/Movie-Review-System/internal/domain"
	"github.com/panjyar/Movie-Review-System/internal/store"
)

// RelationshipService управляет watchlist и подписками между пользователями.
type RelationshipService struct {
	users  store.UserStore
	movies store.MovieStore
	logger *slog.Logger
}

// NewRelationshipService создает новый экземпляр RelationshipService.
func NewRelationshipService(users store.UserStore, movies store.MovieStore, logger *slog.Logger) *RelationshipService {
	return &RelationshipService{
		users:  users,
		movies: movies,
		logger: logger,
	}
}

// AddToWatchlist добавляет фильм в watchlist пользователя.
// Возвращает store.ErrMovieNotFound, если фильма нет, и
// store.ErrAlreadyInWatchlist при повторном добавлении.
func (s *RelationshipService) AddToWatchlist(ctx context.Context, userID, movieID string) (*domain.WatchlistItem, error) {
	movie, err := s.movies.GetByID(ctx, movieID)
	if err != nil {
		return nil, err
	}

	dateAdded := time.Now().UTC()
	if err := s.users.AddToWatchlist(ctx, userID, movieID, dateAdded); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Movie added to watchlist", slog.String("userID", userID), slog.String("movieID", movieID))

	return &domain.WatchlistItem{
		Movie: domain.MovieSummary{
			ID:            movie.ID,
			Title:         movie.Title,
			PosterPath:    movie.PosterPath,
			AverageRating: movie.AverageRating,
			TotalReviews:  movie.TotalReviews,
			ReleaseDate:   movie.ReleaseDate,
		},
		DateAdded: dateAdded,
	}, nil
}

// RemoveFromWatchlist убирает фильм из watchlist. Идемпотентно: отсутствие
// записи не считается ошибкой.
func (s *RelationshipService) RemoveFromWatchlist(ctx context.Context, userID, movieID string) error {
	if err := s.users.RemoveFromWatchlist(ctx, userID, movieID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Movie removed from watchlist", slog.String("userID", userID), slog.String("movieID", movieID))
	return nil
}

// ListWatchlist возвращает watchlist пользователя с описаниями фильмов,
// сначала добавленные последними. Записи удаленных фильмов пропускаются.
func (s *RelationshipService) ListWatchlist(ctx context.Context, userID string) ([]*domain.WatchlistItem, error) {
	entries, err := s.users.GetWatchlist(ctx, userID)
	if err != nil {
		return nil, err
	}

	movieIDs := make([]string, 0, len(entries))
	for _, entry := range entries {
		movieIDs = append(movieIDs, entry.MovieID)
	}
	summaries, err := s.movies.GetSummaries(ctx, movieIDs)
	if err != nil {
		return nil, err
	}

	items := make([]*domain.WatchlistItem, 0, len(entries))
	for _, entry := range entries {
		summary, ok := summaries[entry.MovieID]
		if !ok {
			continue
		}
		items = append(items, &domain.WatchlistItem{Movie: *summary, DateAdded: entry.DateAdded})
	}
	return items, nil
}

// Follow создает подписку followerID -> targetID. Подписка на самого себя
// отклоняется, повторная подписка возвращает store.ErrAlreadyFollowing.
func (s *RelationshipService) Follow(ctx context.Context, followerID, targetID string) error {
	if followerID == targetID {
		return ErrSelfFollow
	}
	// Обе стороны должны существовать
	if _, err := s.users.GetByID(ctx, targetID); err != nil {
		return err
	}
	if _, err := s.users.GetByID(ctx, followerID); err != nil {
		return err
	}

	if err := s.users.AddFollow(ctx, followerID, targetID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "User followed", slog.String("followerID", followerID), slog.String("targetID", targetID))
	return nil
}

// Unfollow удаляет подписку. Идемпотентно.
func (s *RelationshipService) Unfollow(ctx context.Context, followerID, targetID string) error {
	if err := s.users.RemoveFollow(ctx, followerID, targetID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "User unfollowed", slog.String("followerID", followerID), slog.String("targetID", targetID))
	return nil
}

// GetFollowers возвращает подписчиков пользователя.
func (s *RelationshipService) GetFollowers(ctx context.Context, userID string) ([]*domain.UserSummary, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.users.GetFollowers(ctx, userID)
}

// GetFollowing возвращает тех, на кого подписан пользователь.
func (s *RelationshipService) GetFollowing(ctx context.Context, userID string) ([]*domain.UserSummary, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.users.GetFollowing(ctx, userID)
}

// IsFollowing сообщает, подписан ли followerID на targetID.
func (s *RelationshipService) IsFollowing(ctx context.Context, followerID, targetID string) (bool, error) {
	following, err := s.users.GetFollowing(ctx, followerID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return false, nil
		}
		return false, err
	}
	for _, summary := range following {
		if summary.ID == targetID {
			return true, nil
		}
	}
	return false, nil
}
