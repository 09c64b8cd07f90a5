package domain

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
)

// Movie представляет основную доменную модель фильма.
// AverageRating и TotalReviews — денормализованные агрегаты, их пересчитывает
// только сервис отзывов; напрямую они не редактируются.
type Movie struct {
	ID            string         `json:"id" db:"id"`
	TMDBID        sql.NullInt64  `json:"tmdb_id,omitempty" db:"tmdb_id"` // Внешний идентификатор каталога, уникален если задан
	Title         string         `json:"title" db:"title"`
	Overview      string         `json:"overview" db:"overview"`
	ReleaseDate   time.Time      `json:"release_date" db:"release_date"`
	Runtime       int            `json:"runtime" db:"runtime"` // Минуты
	Genres        pq.StringArray `json:"genres" db:"genres"`   // TEXT[] в PostgreSQL
	PosterPath    string         `json:"poster_path,omitempty" db:"poster_path"`
	BackdropPath  string         `json:"backdrop_path,omitempty" db:"backdrop_path"`
	AverageRating float64        `json:"average_rating" db:"average_rating"` // Округлен до 1 знака
	TotalReviews  int            `json:"total_reviews" db:"total_reviews"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" db:"updated_at"`
}

// MovieSummary краткое описание фильма, подтягивается к отзывам и watchlist
type MovieSummary struct {
	ID            string    `json:"id" db:"id"`
	Title         string    `json:"title" db:"title"`
	PosterPath    string    `json:"poster_path" db:"poster_path"`
	AverageRating float64   `json:"average_rating" db:"average_rating"`
	TotalReviews  int       `json:"total_reviews" db:"total_reviews"`
	ReleaseDate   time.Time `json:"release_date" db:"release_date"`
}

// CreateMovieRequest определяет тело запроса для создания нового фильма (админ)
type CreateMovieRequest struct {
	Title        string   `json:"title" validate:"required,min=1,max=255"`
	Overview     string   `json:"overview" validate:"required,min=10"`
	ReleaseDate  string   `json:"release_date" validate:"required,datetime=2006-01-02"`
	Runtime      int      `json:"runtime" validate:"omitempty,gte=0,lte=1000"`
	Genres       []string `json:"genres" validate:"omitempty,dive,min=2,max=50"`
	PosterPath   string   `json:"poster_path,omitempty" validate:"omitempty,max=255"`
	BackdropPath string   `json:"backdrop_path,omitempty" validate:"omitempty,max=255"`
}

// UpdateMovieRequest определяет тело запроса для редактирования фильма (админ)
type UpdateMovieRequest struct {
	Title        *string  `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	Overview     *string  `json:"overview,omitempty" validate:"omitempty,min=10"`
	ReleaseDate  *string  `json:"release_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Runtime      *int     `json:"runtime,omitempty" validate:"omitempty,gte=0,lte=1000"`
	Genres       []string `json:"genres,omitempty" validate:"omitempty,dive,min=2,max=50"`
	PosterPath   *string  `json:"poster_path,omitempty" validate:"omitempty,max=255"`
	BackdropPath *string  `json:"backdrop_path,omitempty" validate:"omitempty,max=255"`
}

// MovieDescriptor описывает фильм, полученный из внешнего каталога (TMDB).
// Сам HTTP-клиент каталога живет вне этого модуля; сюда приходит уже
// распарсенный дескриптор для идемпотентного импорта по tmdb_id.
type MovieDescriptor struct {
	TMDBID       int64    `json:"tmdb_id" validate:"required,gt=0"`
	Title        string   `json:"title" validate:"required,min=1,max=255"`
	Overview     string   `json:"overview" validate:"required"`
	ReleaseDate  string   `json:"release_date" validate:"required,datetime=2006-01-02"`
	Runtime      int      `json:"runtime" validate:"omitempty,gte=0"`
	Genres       []string `json:"genres,omitempty"`
	PosterPath   string   `json:"poster_path,omitempty"`
	BackdropPath string   `json:"backdrop_path,omitempty"`
}
