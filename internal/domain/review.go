package domain

import (
	"time"

	"github.com/lib/pq"
)

// Review представляет модель отзыва с оценкой.
// Likes и Dislikes — множества ID пользователей; один пользователь не может
// находиться в обоих одновременно.
type Review struct {
	ID        string         `json:"id" db:"id"`             // UUID
	MovieID   string         `json:"movie_id" db:"movie_id"` // Внешний ключ к movies
	UserID    string         `json:"user_id" db:"user_id"`   // Внешний ключ к users
	Rating    int            `json:"rating" db:"rating"`     // Оценка 1-5
	Title     string         `json:"title" db:"title"`
	Content   string         `json:"content" db:"content"`
	Likes     pq.StringArray `json:"likes" db:"likes"`       // TEXT[] в PostgreSQL
	Dislikes  pq.StringArray `json:"dislikes" db:"dislikes"` // TEXT[] в PostgreSQL
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" db:"updated_at"`

	// Не хранятся в таблице reviews, подтягиваются при выборке
	Author *UserSummary  `json:"author,omitempty"`
	Movie  *MovieSummary `json:"movie,omitempty"`
}

// CreateReviewRequest определяет тело запроса для создания нового отзыва
type CreateReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,gte=1,lte=5"`
	Title   string `json:"title" validate:"required,min=1,max=100"`
	Content string `json:"content" validate:"required,min=10,max=2000"`
}

// UpdateReviewRequest определяет тело запроса для редактирования отзыва.
// Обновляются только переданные поля.
type UpdateReviewRequest struct {
	Rating  *int    `json:"rating,omitempty" validate:"omitempty,gte=1,lte=5"`
	Title   *string `json:"title,omitempty" validate:"omitempty,min=1,max=100"`
	Content *string `json:"content,omitempty" validate:"omitempty,min=10,max=2000"`
}

// BulkDeleteRequest общее тело запроса для массового удаления (админ)
type BulkDeleteRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,uuid"`
}

// VoteResult результат переключения лайка/дизлайка
type VoteResult struct {
	LikesCount    int `json:"likes_count"`
	DislikesCount int `json:"dislikes_count"`
}

// AggregatedRating содержит агрегированную информацию о рейтинге фильма
type AggregatedRating struct {
	MovieID       string  `json:"movie_id" db:"movie_id"`
	AverageRating float64 `json:"average_rating" db:"average_rating"`
	RatingCount   int     `json:"rating_count" db:"rating_count"`
}
