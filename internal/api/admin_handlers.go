package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/panjyar/Movie-Review-System/internal/domain"
	"github.com/panjyar/Movie-Review-System/internal/store"
)

// Маршруты ниже закрыты AdminMiddleware, но сервисный слой проверяет роль
// заново: back-office не полагается на один-единственный фильтр на входе.

// AdminGetStats возвращает сводные счетчики для дашборда.
func (h *HTTPHandler) AdminGetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	_, role, ok := requesterIdentity(ctx)
	if !ok {
		h.respondError(w, r, http.StatusInternalServerError, "Error processing user identity")
		return
	}

	stats, err := h.admin.GetStats(ctx, role)
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to retrieve stats")
		return
	}
	h.respondJSON(w, r, http.StatusOK, stats)
}

// AdminListUsers возвращает страницу пользователей с поиском и фильтром по роли.
func (h *HTTPHandler) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	_, role, ok := requesterIdentity(ctx)
	if !ok {
		h.respondError(w, r, http.StatusInternalServerError, "Error processing user identity")
		return
	}

	query := r.URL.Query()
	page, limit := parsePagination(query)
	params := store.UserListParams{
		Page:     page,
		PageSize: limit,
		Search:   query.Get("search"),
		Role:     query.Get("role"),
		SortBy:   query.Get("sort_by"),
	}

	userPage, err := h.admin.ListUsers(ctx, role, params)
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to retrieve users")
		return
	}
	h.respondJSON(w, r, http.StatusOK, userPage)
}

// AdminSetUserRole назначает пользователю роль.
func (h *HTTPHandler) AdminSetUserRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	_, role, ok := requesterIdentity(ctx)
	if !ok {
		h.respondError(w, r, http.StatusInternalServerError, "Error processing user identity")
		return
	}
	targetID := mux.Vars(r)["userId"]

	var req domain.SetRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	if err := h.validator.StructCtx(ctx, req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	user, err := h.admin.SetUserRole(ctx, role, targetID, req.Role)
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to update role")
		return
	}
	h.respondJSON(w, r, http.StatusOK, user)
}

// AdminDeleteUser удаляет пользователя вместе с его отзывами.
func (h *HTTPHandler) AdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	adminID, role, ok := requesterIdentity(ctx)
	if !ok {
		h.respondError(w, r, http.StatusInternalServerError, "Error processing user identity")
		return
	}
	targetID := mux.Vars(r)["userId"]

	if err := h.admin.DeleteUser(ctx, role, adminID, targetID); err != nil {
		h.respondServiceError(w, r, err, "Failed to delete user")
		return
	}
	h.respondJSON(w, r, http.StatusNoContent, nil)
}

// AdminBulkDeleteUsers удаляет набор пользователей.
func (h *HTTPHandler) AdminBulkDeleteUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	adminID, role, ok := requesterIdentity(ctx)
	if !ok {
		h.respondError(w, r, http.StatusInternalServerError, "Error processing user identity")
		return
	}

	var req domain.BulkDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	deleted, err := h.admin.BulkDeleteUsers(ctx, role, adminID, req.IDs)
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to delete users")
		return
	}
	h.respondJSON(w, r, http.StatusOK, map[string]int{"deleted": deleted})
}

// AdminListMovies возвращает страницу каталога для админ-панели.
func (h *HTTPHandler) AdminListMovies(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	_, role, ok := requesterIdentity(ctx)
	if !ok {
		h.respondError(w, r, http.StatusInternalServerError, "Error processing user identity")
		return
	}

	query := r.URL.Query()
	page, limit := parsePagination(query)
	params := store.MovieListParams{
		Page:        page,
		PageSize:    limit,
		SearchQuery: query.Get("search"),
		SortBy:      query.Get("sort_by"),
	}

	moviePage, err := h.admin.ListMovies(ctx, role, params)
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to retrieve movies")
		return
	}
	h.respondJSON(w, r, http.StatusOK, moviePage)
}

// AdminCreateMovie добавляет фильм в каталог.
func (h *HTTPHandler) AdminCreateMovie(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req domain.CreateMovieRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	movie, err := h.catalog.Create(ctx, req)
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to create movie")
		return
	}
	h.respondJSON(w, r, http.StatusCreated, movie)
}

// AdminImportMovie идемпотентно импортирует фильм из внешнего каталога.
func (h *HTTPHandler) AdminImportMovie(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var desc domain.MovieDescriptor
	if err := json.NewDecoder(r.Body).Decode(&desc); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	movie, err := h.catalog.Import(ctx, desc)
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to import movie")
		return
	}
	h.respondJSON(w, r, http.StatusOK, movie)
}

// AdminUpdateMovie редактирует метаданные фильма.
func (h *HTTPHandler) AdminUpdateMovie(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	movieID := mux.Vars(r)["movieId"]

	var req domain.UpdateMovieRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	movie, err := h.catalog.Update(ctx, movieID, req)
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to update movie")
		return
	}
	h.respondJSON(w, r, http.StatusOK, movie)
}

// AdminDeleteMovie удаляет фильм вместе с его отзывами.
func (h *HTTPHandler) AdminDeleteMovie(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	movieID := mux.Vars(r)["movieId"]

	if err := h.catalog.Delete(ctx, movieID); err != nil {
		h.respondServiceError(w, r, err, "Failed to delete movie")
		return
	}
	h.respondJSON(w, r, http.StatusNoContent, nil)
}

// AdminBulkDeleteMovies удаляет набор фильмов вместе с отзывами.
func (h *HTTPHandler) AdminBulkDeleteMovies(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	_, role, ok := requesterIdentity(ctx)
	if !ok {
		h.respondError(w, r, http.StatusInternalServerError, "Error processing user identity")
		return
	}

	var req domain.BulkDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	deleted, err := h.admin.BulkDeleteMovies(ctx, role, req.IDs)
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to delete movies")
		return
	}
	h.respondJSON(w, r, http.StatusOK, map[string]int{"deleted": deleted})
}

// AdminListReviews возвращает страницу всех отзывов системы.
func (h *HTTPHandler) AdminListReviews(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	_, role, ok := requesterIdentity(ctx)
	if !ok {
		h.respondError(w, r, http.StatusInternalServerError, "Error processing user identity")
		return
	}

	query := r.URL.Query()
	page, limit := parsePagination(query)
	params := store.ListReviewsParams{
		Page:     page,
		PageSize: limit,
		Search:   query.Get("search"),
		SortBy:   query.Get("sort_by"),
	}

	reviewPage, err := h.admin.ListReviews(ctx, role, params)
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to retrieve reviews")
		return
	}
	h.respondJSON(w, r, http.StatusOK, reviewPage)
}

// AdminBulkDeleteReviews удаляет набор отзывов с пересчетом агрегатов
// затронутых фильмов.
func (h *HTTPHandler) AdminBulkDeleteReviews(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	_, role, ok := requesterIdentity(ctx)
	if !ok {
		h.respondError(w, r, http.StatusInternalServerError, "Error processing user identity")
		return
	}

	var req domain.BulkDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	deleted, err := h.admin.BulkDeleteReviews(ctx, role, req.IDs)
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to delete reviews")
		return
	}
	h.respondJSON(w, r, http.StatusOK, map[string]int{"deleted": deleted})
}
