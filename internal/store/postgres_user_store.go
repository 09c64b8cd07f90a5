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
	"github.com/lib/pq" // Для обработки ошибок PostgreSQL и массивов

	"github.com/panjyar/Movie-Review-System/internal/domain"
)

// PostgresUserStore реализует UserStore для PostgreSQL.
type PostgresUserStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewPostgresUserStore создает новый экземпляр PostgresUserStore.
// db должен быть уже подключен и передан сюда.
func NewPostgresUserStore(db *sqlx.DB, logger *slog.Logger) (*PostgresUserStore, error) {
	if db == nil {
		return nil, errors.New("database connection (db) cannot be nil for PostgresUserStore")
	}
	return &PostgresUserStore{db: db, logger: logger}, nil
}

// Create создает нового пользователя в базе данных.
func (s *PostgresUserStore) Create(ctx context.Context, user *domain.User) error {
	query := `INSERT INTO users (id, username, email, password_hash, profile_picture, bio, role, created_at, updated_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt

	s.logger.DebugContext(ctx, "Executing Create user query", slog.String("userID", user.ID), slog.String("username", user.Username))
	_, err := s.db.ExecContext(ctx, query,
		user.ID, user.Username, user.Email, user.PasswordHash,
		user.ProfilePicture, user.Bio, user.Role, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" { // unique_violation
			s.logger.WarnContext(ctx, "User already exists (unique constraint violation in DB)",
				slog.String("username", user.Username),
				slog.String("constraint_name", pqErr.Constraint))
			return ErrUserAlreadyExists
		}
		s.logger.ErrorContext(ctx, "Failed to create user in DB", slog.String("error", err.Error()))
		return fmt.Errorf("failed to create user: %w", err)
	}
	s.logger.InfoContext(ctx, "User created successfully in DB", slog.String("userID", user.ID))
	return nil
}

const userColumns = `id, username, email, password_hash, profile_picture, bio, role, created_at, updated_at`

// GetByID находит пользователя по его ID.
func (s *PostgresUserStore) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return s.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByEmail находит пользователя по email (email хранится в нижнем регистре).
func (s *PostgresUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = LOWER($1)`, email)
}

// GetByUsername находит пользователя по имени.
func (s *PostgresUserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (s *PostgresUserStore) getOne(ctx context.Context, query string, arg interface{}) (*domain.User, error) {
	var user domain.User
	err := s.db.GetContext(ctx, &user, query, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		s.logger.ErrorContext(ctx, "Failed to get user from DB", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// Update обновляет профиль пользователя.
func (s *PostgresUserStore) Update(ctx context.Context, user *domain.User) error {
	query := `UPDATE users SET username = $1, email = $2, profile_picture = $3, bio = $4, updated_at = $5 WHERE id = $6`
	user.UpdatedAt = time.Now().UTC()

	s.logger.DebugContext(ctx, "Executing Update user query", slog.String("userID", user.ID))
	result, err := s.db.ExecContext(ctx, query,
		user.Username, user.Email, user.ProfilePicture, user.Bio, user.UpdatedAt, user.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			s.logger.WarnContext(ctx, "User update hit unique constraint",
				slog.String("userID", user.ID), slog.String("constraint_name", pqErr.Constraint))
			return ErrUserAlreadyExists
		}
		s.logger.ErrorContext(ctx, "Failed to update user in DB", slog.String("userID", user.ID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to update user: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check user update result: %w", err)
	}
	if rowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdateRole меняет роль пользователя.
func (s *PostgresUserStore) UpdateRole(ctx context.Context, id string, role string) error {
	query := `UPDATE users SET role = $1, updated_at = $2 WHERE id = $3`

	s.logger.DebugContext(ctx, "Executing UpdateRole query", slog.String("userID", id), slog.String("role", role))
	result, err := s.db.ExecContext(ctx, query, role, time.Now().UTC(), id)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to update user role in DB", slog.String("userID", id), slog.String("error", err.Error()))
		return fmt.Errorf("failed to update user role: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrUserNotFound
	}
	s.logger.InfoContext(ctx, "User role updated in DB", slog.String("userID", id), slog.String("new_role", role))
	return nil
}

// Delete удаляет пользователя. Его записи watchlist и подписки удаляются
// каскадом на уровне схемы.
func (s *PostgresUserStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete user from DB", slog.String("userID", id), slog.String("error", err.Error()))
		return fmt.Errorf("failed to delete user: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrUserNotFound
	}
	s.logger.InfoContext(ctx, "User deleted from DB", slog.String("userID", id))
	return nil
}

// DeleteByIDs удаляет пользователей пачкой, возвращает число удаленных.
func (s *PostgresUserStore) DeleteByIDs(ctx context.Context, ids []string) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to bulk delete users from DB", slog.String("error", err.Error()))
		return 0, fmt.Errorf("failed to bulk delete users: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check bulk delete result: %w", err)
	}
	s.logger.InfoContext(ctx, "Users bulk deleted from DB", slog.Int64("deleted", rowsAffected))
	return int(rowsAffected), nil
}

// List возвращает страницу пользователей с фильтрами админки.
func (s *PostgresUserStore) List(ctx context.Context, params UserListParams) ([]*domain.User, int, error) {
	countQuery := `SELECT COUNT(*) FROM users WHERE 1=1`
	selectQuery := `SELECT ` + userColumns + ` FROM users WHERE 1=1`

	var args []interface{}
	var conditions []string
	argID := 1

	if params.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(username) LIKE LOWER($%d) OR LOWER(email) LIKE LOWER($%d))", argID, argID))
		args = append(args, "%"+params.Search+"%")
		argID++
	}
	if params.Role != "" {
		conditions = append(conditions, fmt.Sprintf("role = $%d", argID))
		args = append(args, params.Role)
		argID++
	}

	if len(conditions) > 0 {
		conditionStr := " AND " + strings.Join(conditions, " AND ")
		countQuery += conditionStr
		selectQuery += conditionStr
	}

	var totalCount int
	if err := s.db.GetContext(ctx, &totalCount, countQuery, args...); err != nil {
		s.logger.ErrorContext(ctx, "Failed to count users in DB", slog.String("error", err.Error()))
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}
	if totalCount == 0 {
		return []*domain.User{}, 0, nil
	}

	// Разрешаем только известные варианты сортировки
	orderBy := "created_at DESC"
	switch params.SortBy {
	case "created_at_asc":
		orderBy = "created_at ASC"
	case "username_asc":
		orderBy = "username ASC"
	}
	selectQuery += " ORDER BY " + orderBy
	selectQuery += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argID, argID+1)
	args = append(args, params.PageSize, (params.Page-1)*params.PageSize)

	var users []*domain.User
	s.logger.DebugContext(ctx, "Executing List users query", slog.String("query", selectQuery))
	if err := s.db.SelectContext(ctx, &users, selectQuery, args...); err != nil {
		s.logger.ErrorContext(ctx, "Failed to list users from DB", slog.String("error", err.Error()))
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, totalCount, nil
}

// Count возвращает общее число пользователей.
func (s *PostgresUserStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

// GetSummaries возвращает краткие профили для набора ID.
func (s *PostgresUserStore) GetSummaries(ctx context.Context, ids []string) (map[string]*domain.UserSummary, error) {
	if len(ids) == 0 {
		return map[string]*domain.UserSummary{}, nil
	}
	var summaries []*domain.UserSummary
	query := `SELECT id, username, profile_picture FROM users WHERE id = ANY($1)`
	if err := s.db.SelectContext(ctx, &summaries, query, pq.Array(ids)); err != nil {
		s.logger.ErrorContext(ctx, "Failed to get user summaries from DB", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to get user summaries: %w", err)
	}
	result := make(map[string]*domain.UserSummary, len(summaries))
	for _, summary := range summaries {
		result[summary.ID] = summary
	}
	return result, nil
}

// AddToWatchlist добавляет фильм в watchlist пользователя.
// Дубликат пары (user_id, movie_id) отклоняется ограничением схемы.
func (s *PostgresUserStore) AddToWatchlist(ctx context.Context, userID, movieID string, dateAdded time.Time) error {
	query := `INSERT INTO watchlist (user_id, movie_id, date_added) VALUES ($1, $2, $3)`

	s.logger.DebugContext(ctx, "Executing AddToWatchlist query", slog.String("userID", userID), slog.String("movieID", movieID))
	_, err := s.db.ExecContext(ctx, query, userID, movieID, dateAdded)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Code {
			case "23505": // unique_violation
				return ErrAlreadyInWatchlist
			case "23503": // foreign_key_violation: пользователь или фильм удалены
				return watchlistReferenceError(pqErr)
			}
		}
		s.logger.ErrorContext(ctx, "Failed to add to watchlist in DB", slog.String("error", err.Error()))
		return fmt.Errorf("failed to add to watchlist: %w", err)
	}
	return nil
}

// watchlistReferenceError по имени нарушенного внешнего ключа определяет,
// какая сторона записи watchlist исчезла между проверкой и вставкой.
func watchlistReferenceError(pqErr *pq.Error) error {
	if pqErr.Constraint == "fk_watchlist_movie" {
		return ErrMovieNotFound
	}
	return ErrUserNotFound
}

// RemoveFromWatchlist убирает фильм из watchlist. Отсутствие записи — не ошибка.
func (s *PostgresUserStore) RemoveFromWatchlist(ctx context.Context, userID, movieID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM watchlist WHERE user_id = $1 AND movie_id = $2`, userID, movieID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to remove from watchlist in DB", slog.String("error", err.Error()))
		return fmt.Errorf("failed to remove from watchlist: %w", err)
	}
	return nil
}

// GetWatchlist возвращает записи watchlist, сначала добавленные последними.
func (s *PostgresUserStore) GetWatchlist(ctx context.Context, userID string) ([]*WatchlistEntry, error) {
	var entries []*WatchlistEntry
	query := `SELECT movie_id, date_added FROM watchlist WHERE user_id = $1 ORDER BY date_added DESC`
	if err := s.db.SelectContext(ctx, &entries, query, userID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to get watchlist from DB", slog.String("userID", userID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to get watchlist: %w", err)
	}
	return entries, nil
}

// AddFollow создает подписку. Связь хранится одной строкой, поэтому обе
// стороны (following подписчика и followers цели) видны атомарно.
func (s *PostgresUserStore) AddFollow(ctx context.Context, followerID, targetID string) error {
	query := `INSERT INTO follows (follower_id, followee_id, created_at) VALUES ($1, $2, $3)`

	s.logger.DebugContext(ctx, "Executing AddFollow query", slog.String("followerID", followerID), slog.String("targetID", targetID))
	_, err := s.db.ExecContext(ctx, query, followerID, targetID, time.Now().UTC())
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Code {
			case "23505": // unique_violation
				return ErrAlreadyFollowing
			case "23503": // foreign_key_violation
				return ErrUserNotFound
			}
		}
		s.logger.ErrorContext(ctx, "Failed to add follow in DB", slog.String("error", err.Error()))
		return fmt.Errorf("failed to add follow: %w", err)
	}
	return nil
}

// RemoveFollow удаляет подписку. Идемпотентно.
func (s *PostgresUserStore) RemoveFollow(ctx context.Context, followerID, targetID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM follows WHERE follower_id = $1 AND followee_id = $2`, followerID, targetID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to remove follow in DB", slog.String("error", err.Error()))
		return fmt.Errorf("failed to remove follow: %w", err)
	}
	return nil
}

// GetFollowers возвращает краткие профили подписчиков пользователя.
func (s *PostgresUserStore) GetFollowers(ctx context.Context, userID string) ([]*domain.UserSummary, error) {
	query := `SELECT u.id, u.username, u.profile_picture
              FROM follows f JOIN users u ON u.id = f.follower_id
              WHERE f.followee_id = $1 ORDER BY u.username`
	var result []*domain.UserSummary
	if err := s.db.SelectContext(ctx, &result, query, userID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to get followers from DB", slog.String("userID", userID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to get followers: %w", err)
	}
	return result, nil
}

// GetFollowing возвращает краткие профили тех, на кого подписан пользователь.
func (s *PostgresUserStore) GetFollowing(ctx context.Context, userID string) ([]*domain.UserSummary, error) {
	query := `SELECT u.id, u.username, u.profile_picture
              FROM follows f JOIN users u ON u.id = f.followee_id
              WHERE f.follower_id = $1 ORDER BY u.username`
	var result []*domain.UserSummary
	if err := s.db.SelectContext(ctx, &result, query, userID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to get following from DB", slog.String("userID", userID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to get following: %w", err)
	}
	return result, nil
}
