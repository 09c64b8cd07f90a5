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

// Кастомные ошибки хранилища пользователей
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user with this email or username already exists")
	ErrAlreadyInWatchlist = errors.New("movie already in watchlist")
	ErrAlreadyFollowing   = errors.New("already following this user")
)

// UserListParams параметры для постраничной выборки пользователей (админка)
type UserListParams struct {
	Page     int
	PageSize int
	Search   string // Подстрока по username или email, без учета регистра
	Role     string // Фильтр по роли, пустая строка — без фильтра
	SortBy   string // "created_at_desc" (по умолчанию), "created_at_asc", "username_asc"
}

// WatchlistEntry сырая запись watchlist без подтянутого фильма
type WatchlistEntry struct {
	MovieID   string    `db:"movie_id"`
	DateAdded time.Time `db:"date_added"`
}

// UserStore определяет интерфейс для операций с данными пользователей.
type UserStore interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	UpdateRole(ctx context.Context, id string, role string) error
	Delete(ctx context.Context, id string) error
	DeleteByIDs(ctx context.Context, ids []string) (int, error)
	List(ctx context.Context, params UserListParams) ([]*domain.User, int, error)
	Count(ctx context.Context) (int, error)
	GetSummaries(ctx context.Context, ids []string) (map[string]*domain.UserSummary, error)

	// Watchlist
	AddToWatchlist(ctx context.Context, userID, movieID string, dateAdded time.Time) error
	RemoveFromWatchlist(ctx context.Context, userID, movieID string) error
	GetWatchlist(ctx context.Context, userID string) ([]*WatchlistEntry, error)

	// Подписки: обе стороны связи пишутся одной операцией
	AddFollow(ctx context.Context, followerID, targetID string) error
	RemoveFollow(ctx context.Context, followerID, targetID string) error
	GetFollowers(ctx context.Context, userID string) ([]*domain.UserSummary, error)
	GetFollowing(ctx context.Context, userID string) ([]*domain.UserSummary, error)
}

// MockUserStore in-memory реализация для разработки и тестов
type MockUserStore struct {
	mu        sync.RWMutex
	users     map[string]*domain.User      // Ключ: userID
	watchlist map[string][]*WatchlistEntry // Ключ: userID
	follows   map[string]map[string]bool   // Ключ: followerID, значение: множество targetID
}

// NewMockUserStore создает новый экземпляр MockUserStore
func NewMockUserStore() *MockUserStore {
	return &MockUserStore{
		users:     make(map[string]*domain.User),
		watchlist: make(map[string][]*WatchlistEntry),
		follows:   make(map[string]map[string]bool),
	}
}

func (m *MockUserStore) Create(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, user.Email) || existing.Username == user.Username {
			return ErrUserAlreadyExists
		}
	}
	if _, exists := m.users[user.ID]; exists {
		return ErrUserAlreadyExists
	}

	userCopy := *user // Сохраняем копию
	m.users[user.ID] = &userCopy
	return nil
}

func (m *MockUserStore) GetByID(ctx context.Context, id string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if user, ok := m.users[id]; ok {
		userCopy := *user
		return &userCopy, nil
	}
	return nil, ErrUserNotFound
}

func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, user := range m.users {
		if strings.EqualFold(user.Email, email) {
			userCopy := *user
			return &userCopy, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *MockUserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, user := range m.users {
		if user.Username == username {
			userCopy := *user
			return &userCopy, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *MockUserStore) Update(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[user.ID]; !ok {
		return ErrUserNotFound
	}
	// Проверяем уникальность нового username/email среди остальных пользователей
	for id, existing := range m.users {
		if id == user.ID {
			continue
		}
		if strings.EqualFold(existing.Email, user.Email) || existing.Username == user.Username {
			return ErrUserAlreadyExists
		}
	}

	userCopy := *user
	userCopy.UpdatedAt = time.Now().UTC()
	m.users[user.ID] = &userCopy
	return nil
}

func (m *MockUserStore) UpdateRole(ctx context.Context, id string, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return ErrUserNotFound
	}
	user.Role = role
	user.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MockUserStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return ErrUserNotFound
	}
	m.deleteLocked(id)
	return nil
}

func (m *MockUserStore) DeleteByIDs(ctx context.Context, ids []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	deleted := 0
	for _, id := range ids {
		if _, ok := m.users[id]; ok {
			m.deleteLocked(id)
			deleted++
		}
	}
	return deleted, nil
}

// deleteLocked удаляет пользователя и обе стороны его подписок. Вызывать под mu.
func (m *MockUserStore) deleteLocked(id string) {
	delete(m.users, id)
	delete(m.watchlist, id)
	delete(m.follows, id)
	for _, targets := range m.follows {
		delete(targets, id)
	}
}

func (m *MockUserStore) List(ctx context.Context, params UserListParams) ([]*domain.User, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var filtered []domain.User
	for _, user := range m.users {
		if params.Role != "" && user.Role != params.Role {
			continue
		}
		if params.Search != "" {
			needle := strings.ToLower(params.Search)
			if !strings.Contains(strings.ToLower(user.Username), needle) &&
				!strings.Contains(strings.ToLower(user.Email), needle) {
				continue
			}
		}
		filtered = append(filtered, *user)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		switch params.SortBy {
		case "username_asc":
			return filtered[i].Username < filtered[j].Username
		case "created_at_asc":
			return filtered[i].CreatedAt.Before(filtered[j].CreatedAt)
		default: // "created_at_desc" или неизвестное значение
			return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
		}
	})

	totalCount := len(filtered)
	page := paginate(len(filtered), params.Page, params.PageSize)
	result := make([]*domain.User, 0, page.end-page.start)
	for i := page.start; i < page.end; i++ {
		userCopy := filtered[i]
		result = append(result, &userCopy)
	}
	return result, totalCount, nil
}

func (m *MockUserStore) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users), nil
}

func (m *MockUserStore) GetSummaries(ctx context.Context, ids []string) (map[string]*domain.UserSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make(map[string]*domain.UserSummary, len(ids))
	for _, id := range ids {
		if user, ok := m.users[id]; ok {
			result[id] = &domain.UserSummary{
				ID:             user.ID,
				Username:       user.Username,
				ProfilePicture: user.ProfilePicture,
			}
		}
	}
	return result, nil
}

func (m *MockUserStore) AddToWatchlist(ctx context.Context, userID, movieID string, dateAdded time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userID]; !ok {
		return ErrUserNotFound
	}
	for _, entry := range m.watchlist[userID] {
		if entry.MovieID == movieID {
			return ErrAlreadyInWatchlist
		}
	}
	m.watchlist[userID] = append(m.watchlist[userID], &WatchlistEntry{MovieID: movieID, DateAdded: dateAdded})
	return nil
}

func (m *MockUserStore) RemoveFromWatchlist(ctx context.Context, userID, movieID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := m.watchlist[userID]
	kept := entries[:0]
	for _, entry := range entries {
		if entry.MovieID != movieID {
			kept = append(kept, entry)
		}
	}
	// Отсутствие записи не является ошибкой: удаление идемпотентно
	m.watchlist[userID] = kept
	return nil
}

func (m *MockUserStore) GetWatchlist(ctx context.Context, userID string) ([]*WatchlistEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.users[userID]; !ok {
		return nil, ErrUserNotFound
	}
	entries := make([]*WatchlistEntry, 0, len(m.watchlist[userID]))
	for _, entry := range m.watchlist[userID] {
		entryCopy := *entry
		entries = append(entries, &entryCopy)
	}
	// Сначала добавленные последними
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].DateAdded.After(entries[j].DateAdded)
	})
	return entries, nil
}

func (m *MockUserStore) AddFollow(ctx context.Context, followerID, targetID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[followerID]; !ok {
		return ErrUserNotFound
	}
	if _, ok := m.users[targetID]; !ok {
		return ErrUserNotFound
	}
	if m.follows[followerID][targetID] {
		return ErrAlreadyFollowing
	}
	if m.follows[followerID] == nil {
		m.follows[followerID] = make(map[string]bool)
	}
	m.follows[followerID][targetID] = true
	return nil
}

func (m *MockUserStore) RemoveFollow(ctx context.Context, followerID, targetID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Идемпотентно: отсутствие подписки не является ошибкой
	delete(m.follows[followerID], targetID)
	return nil
}

func (m *MockUserStore) GetFollowers(ctx context.Context, userID string) ([]*domain.UserSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.UserSummary
	for followerID, targets := range m.follows {
		if targets[userID] {
			if user, ok := m.users[followerID]; ok {
				result = append(result, &domain.UserSummary{ID: user.ID, Username: user.Username, ProfilePicture: user.ProfilePicture})
			}
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Username < result[j].Username })
	return result, nil
}

func (m *MockUserStore) GetFollowing(ctx context.Context, userID string) ([]*domain.UserSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.UserSummary
	for targetID := range m.follows[userID] {
		if user, ok := m.users[targetID]; ok {
			result = append(result, &domain.UserSummary{ID: user.ID, Username: user.Username, ProfilePicture: user.ProfilePicture})
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Username < result[j].Username })
	return result, nil
}

// pageBounds границы страницы после нормализации параметров
type pageBounds struct {
	start, end int
}

// paginate нормализует номер страницы и размер и возвращает границы среза
func paginate(total, page, pageSize int) pageBounds {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 10
	}
	start := (page - 1) * pageSize
	end := start + pageSize
	if start >= total {
		return pageBounds{start: total, end: total}
	}
	if end > total {
		end = total
	}
	return pageBounds{start: start, end: end}
}
