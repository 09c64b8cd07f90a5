package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/panjyar/Movie-Review-System/internal/domain"
	"github.com/panjyar/Movie-Review-System/internal/store"
)

// AdminService закрытый контур back-office. Каждая операция заново проверяет
// роль вызывающего и при нехватке прав возвращает ErrForbidden, ничего не меняя.
type AdminService struct {
	users   store.UserStore
	movies  store.MovieStore
	reviews store.ReviewStore
	// Каскадные удаления идут через сервис отзывов, чтобы агрегаты фильмов
	// пересчитывались по общим правилам
	reviewSvc *ReviewService
	logger    *slog.Logger
}

// NewAdminService создает новый экземпляр AdminService.
func NewAdminService(users store.UserStore, movies store.MovieStore, reviews store.ReviewStore, reviewSvc *ReviewService, logger *slog.Logger) *AdminService {
	return &AdminService{
		users:     users,
		movies:    movies,
		reviews:   reviews,
		reviewSvc: reviewSvc,
		logger:    logger,
	}
}

// UserListPage страница пользователей для админ-панели
type UserListPage struct {
	Users       []*domain.User `json:"users"`
	CurrentPage int            `json:"current_page"`
	TotalPages  int            `json:"total_pages"`
	TotalCount  int            `json:"total_count"`
}

// MovieListPage страница фильмов для админ-панели
type MovieListPage struct {
	Movies      []*domain.Movie `json:"movies"`
	CurrentPage int             `json:"current_page"`
	TotalPages  int             `json:"total_pages"`
	TotalCount  int             `json:"total_count"`
}

// ReviewListPage страница отзывов для админ-панели
type ReviewListPage struct {
	Reviews     []*domain.Review `json:"reviews"`
	CurrentPage int              `json:"current_page"`
	TotalPages  int              `json:"total_pages"`
	TotalCount  int              `json:"total_count"`
}

// Stats сводные счетчики по всей системе
type Stats struct {
	TotalUsers    int     `json:"total_users"`
	TotalMovies   int     `json:"total_movies"`
	TotalReviews  int     `json:"total_reviews"`
	AverageRating float64 `json:"average_rating"` // По всем отзывам, без округления
}

func requireAdmin(role string) error {
	if role != domain.RoleAdmin {
		return ErrForbidden
	}
	return nil
}

// ListUsers возвращает страницу пользователей с поиском и фильтром по роли.
func (s *AdminService) ListUsers(ctx context.Context, requesterRole string, params store.UserListParams) (*UserListPage, error) {
	if err := requireAdmin(requesterRole); err != nil {
		return nil, err
	}
	params.Page, params.PageSize = normalizePage(params.Page, params.PageSize)
	users, total, err := s.users.List(ctx, params)
	if err != nil {
		return nil, err
	}
	return &UserListPage{
		Users:       users,
		CurrentPage: params.Page,
		TotalPages:  totalPages(total, params.PageSize),
		TotalCount:  total,
	}, nil
}

// ListMovies возвращает страницу каталога для админ-панели.
func (s *AdminService) ListMovies(ctx context.Context, requesterRole string, params store.MovieListParams) (*MovieListPage, error) {
	if err := requireAdmin(requesterRole); err != nil {
		return nil, err
	}
	params.Page, params.PageSize = normalizePage(params.Page, params.PageSize)
	movies, total, err := s.movies.List(ctx, params)
	if err != nil {
		return nil, err
	}
	return &MovieListPage{
		Movies:      movies,
		CurrentPage: params.Page,
		TotalPages:  totalPages(total, params.PageSize),
		TotalCount:  total,
	}, nil
}

// ListReviews возвращает страницу всех отзывов системы с авторами и фильмами.
func (s *AdminService) ListReviews(ctx context.Context, requesterRole string, params store.ListReviewsParams) (*ReviewListPage, error) {
	if err := requireAdmin(requesterRole); err != nil {
		return nil, err
	}
	params.Page, params.PageSize = normalizePage(params.Page, params.PageSize)
	reviews, total, err := s.reviews.List(ctx, params)
	if err != nil {
		return nil, err
	}
	s.reviewSvc.attachAuthors(ctx, reviews...)
	s.reviewSvc.attachMovies(ctx, reviews...)
	return &ReviewListPage{
		Reviews:     reviews,
		CurrentPage: params.Page,
		TotalPages:  totalPages(total, params.PageSize),
		TotalCount:  total,
	}, nil
}

// SetUserRole назначает пользователю роль "user" либо "admin".
func (s *AdminService) SetUserRole(ctx context.Context, requesterRole, targetID, role string) (*domain.User, error) {
	if err := requireAdmin(requesterRole); err != nil {
		return nil, err
	}
	if role != domain.RoleUser && role != domain.RoleAdmin {
		return nil, fmt.Errorf("%w: role must be %q or %q", ErrValidation, domain.RoleUser, domain.RoleAdmin)
	}

	if err := s.users.UpdateRole(ctx, targetID, role); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "User role updated", slog.String("userID", targetID), slog.String("role", role))
	return s.users.GetByID(ctx, targetID)
}

// DeleteUser удаляет пользователя вместе с его отзывами. Агрегаты фильмов,
// на которые он оставлял отзывы, пересчитываются. Удалить собственную
// учетную запись нельзя.
func (s *AdminService) DeleteUser(ctx context.Context, requesterRole, requesterID, targetID string) error {
	if err := requireAdmin(requesterRole); err != nil {
		return err
	}
	if targetID == requesterID {
		return ErrSelfDelete
	}
	if _, err := s.users.GetByID(ctx, targetID); err != nil {
		return err
	}

	// Затронутые фильмы собираются до удаления отзывов
	movieIDs, err := s.reviews.MovieIDsByUserIDs(ctx, []string{targetID})
	if err != nil {
		return err
	}
	deletedReviews, err := s.reviews.DeleteByUserIDs(ctx, []string{targetID})
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, targetID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "User deleted by admin",
		slog.String("userID", targetID), slog.String("adminID", requesterID), slog.Int("reviewsDeleted", deletedReviews))

	for _, movieID := range movieIDs {
		if err := s.reviewSvc.RefreshMovieAggregate(ctx, movieID); err != nil {
			return err
		}
	}
	return nil
}

// BulkDeleteUsers удаляет набор пользователей с тем же каскадом, что и
// DeleteUser. Собственный идентификатор администратора в наборе отклоняет
// всю операцию целиком.
func (s *AdminService) BulkDeleteUsers(ctx context.Context, requesterRole, requesterID string, targetIDs []string) (int, error) {
	if err := requireAdmin(requesterRole); err != nil {
		return 0, err
	}
	if len(targetIDs) == 0 {
		return 0, fmt.Errorf("%w: user ids are required", ErrValidation)
	}
	for _, id := range targetIDs {
		if id == requesterID {
			return 0, ErrSelfDelete
		}
	}

	movieIDs, err := s.reviews.MovieIDsByUserIDs(ctx, targetIDs)
	if err != nil {
		return 0, err
	}
	if _, err := s.reviews.DeleteByUserIDs(ctx, targetIDs); err != nil {
		return 0, err
	}
	deleted, err := s.users.DeleteByIDs(ctx, targetIDs)
	if err != nil {
		return 0, err
	}
	s.logger.InfoContext(ctx, "Users bulk deleted by admin",
		slog.Int("deleted", deleted), slog.String("adminID", requesterID))

	for _, movieID := range movieIDs {
		if err := s.reviewSvc.RefreshMovieAggregate(ctx, movieID); err != nil {
			return deleted, err
		}
	}
	return deleted, nil
}

// BulkDeleteMovies удаляет набор фильмов вместе с их отзывами.
func (s *AdminService) BulkDeleteMovies(ctx context.Context, requesterRole string, movieIDs []string) (int, error) {
	if err := requireAdmin(requesterRole); err != nil {
		return 0, err
	}
	if len(movieIDs) == 0 {
		return 0, fmt.Errorf("%w: movie ids are required", ErrValidation)
	}

	// Сначала зависимые отзывы, затем сами фильмы; пересчет агрегатов
	// не нужен, карточки исчезают вместе с отзывами
	deletedReviews, err := s.reviews.DeleteByMovieIDs(ctx, movieIDs)
	if err != nil {
		return 0, err
	}
	deleted, err := s.movies.DeleteByIDs(ctx, movieIDs)
	if err != nil {
		return deleted, err
	}
	s.logger.InfoContext(ctx, "Movies bulk deleted by admin",
		slog.Int("deleted", deleted), slog.Int("reviewsDeleted", deletedReviews))
	return deleted, nil
}

// BulkDeleteReviews удаляет набор отзывов через общий путь сервиса отзывов.
func (s *AdminService) BulkDeleteReviews(ctx context.Context, requesterRole string, reviewIDs []string) (int, error) {
	return s.reviewSvc.BulkDelete(ctx, reviewIDs, requesterRole)
}

// GetStats возвращает сводные счетчики для дашборда.
func (s *AdminService) GetStats(ctx context.Context, requesterRole string) (*Stats, error) {
	if err := requireAdmin(requesterRole); err != nil {
		return nil, err
	}

	totalUsers, err := s.users.Count(ctx)
	if err != nil {
		return nil, err
	}
	totalMovies, err := s.movies.Count(ctx)
	if err != nil {
		return nil, err
	}
	totalReviews, err := s.reviews.Count(ctx)
	if err != nil {
		return nil, err
	}
	avgRating, err := s.reviews.GlobalAverageRating(ctx)
	if err != nil {
		return nil, err
	}

	return &Stats{
		TotalUsers:    totalUsers,
		TotalMovies:   totalMovies,
		TotalReviews:  totalReviews,
		AverageRating: avgRating,
	}, nil
}

// normalizePage приводит параметры пагинации к тем же значениям по умолчанию,
// что и хранилища.
func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}
	return page, pageSize
}

func totalPages(total, pageSize int) int {
	if total == 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}
