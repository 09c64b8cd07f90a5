package domain

import (
	"time"
)

// Возможные роли пользователя
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User представляет модель пользователя в приложении
type User struct {
	ID             string    `json:"id" db:"id"` // UUID
	Username       string    `json:"username" db:"username"`
	Email          string    `json:"email" db:"email"` // Хранится в нижнем регистре
	PasswordHash   string    `json:"-" db:"password_hash"` // Не отдаем хеш пароля в JSON
	ProfilePicture string    `json:"profile_picture" db:"profile_picture"`
	Bio            string    `json:"bio" db:"bio"`
	Role           string    `json:"role" db:"role"` // "user" или "admin"
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// UserSummary минимальный профиль автора, подтягивается к отзывам и спискам
type UserSummary struct {
	ID             string `json:"id" db:"id"`
	Username       string `json:"username" db:"username"`
	ProfilePicture string `json:"profile_picture" db:"profile_picture"`
}

// WatchlistItem элемент списка "посмотреть позже" вместе с кратким описанием фильма
type WatchlistItem struct {
	Movie     MovieSummary `json:"movie"`
	DateAdded time.Time    `json:"date_added" db:"date_added"`
}

// UserProfile публичный профиль пользователя вместе со статистикой.
// IsFollowing заполняется только для аутентифицированного зрителя.
type UserProfile struct {
	User           *User     `json:"user"`
	ReviewCount    int       `json:"review_count"`
	WatchlistCount int       `json:"watchlist_count"`
	FollowersCount int       `json:"followers_count"`
	FollowingCount int       `json:"following_count"`
	IsFollowing    bool      `json:"is_following"`
	RecentReviews  []*Review `json:"recent_reviews"`
}

// RegisterRequest для регистрации нового пользователя (HTTP)
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=100"`
}

// LoginRequest для входа пользователя (HTTP)
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse для ответа при успешном входе (HTTP)
type LoginResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

// UpdateProfileRequest для обновления профиля (HTTP).
// Указатели, чтобы отличать "поле не передано" от пустого значения.
type UpdateProfileRequest struct {
	Username       *string `json:"username,omitempty" validate:"omitempty,min=3,max=30"`
	Email          *string `json:"email,omitempty" validate:"omitempty,email"`
	Bio            *string `json:"bio,omitempty" validate:"omitempty,max=500"`
	ProfilePicture *string `json:"profile_picture,omitempty" validate:"omitempty,url"`
}

// SetRoleRequest для смены роли пользователя администратором (HTTP)
type SetRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}

// AddToWatchlistRequest для добавления фильма в watchlist (HTTP)
type AddToWatchlistRequest struct {
	MovieID string `json:"movie_id" validate:"required,uuid"`
}
