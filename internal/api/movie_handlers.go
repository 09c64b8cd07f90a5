package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/panjyar/Movie-Review-System/internal/store"
)

// ListMovies возвращает страницу каталога. Поддерживаются фильтры по жанру
// и году выпуска, полнотекстовый поиск по названию и сортировка.
func (h *HTTPHandler) ListMovies(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	page, limit := parsePagination(query)
	year, _ := strconv.Atoi(query.Get("year"))
	params := store.MovieListParams{
		Page:        page,
		PageSize:    limit,
		Genre:       query.Get("genre"),
		Year:        year,
		SearchQuery: query.Get("search"),
		SortBy:      query.Get("sort_by"),
	}

	moviePage, err := h.catalog.List(ctx, params)
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to retrieve movies")
		return
	}
	h.respondJSON(w, r, http.StatusOK, moviePage)
}

// GetMovie возвращает карточку фильма вместе с денормализованными
// агрегатами рейтинга.
func (h *HTTPHandler) GetMovie(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	movieID := mux.Vars(r)["movieId"]

	movie, err := h.catalog.Get(ctx, movieID)
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to retrieve movie")
		return
	}
	h.respondJSON(w, r, http.StatusOK, movie)
}

// GetMovieReviews возвращает страницу отзывов фильма с профилями авторов.
func (h *HTTPHandler) GetMovieReviews(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	movieID := mux.Vars(r)["movieId"]

	page, limit := parsePagination(r.URL.Query())
	params := store.ListReviewsParams{
		Page:     page,
		PageSize: limit,
		SortBy:   r.URL.Query().Get("sort_by"),
	}

	reviewPage, err := h.reviewService.ListByMovie(ctx, movieID, params)
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to retrieve reviews")
		return
	}
	h.respondJSON(w, r, http.StatusOK, reviewPage)
}
