package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/panjyar/Movie-Review-System/internal/domain"
	"github.com/panjyar/Movie-Review-System/internal/store"
)

// GetUserProfile возвращает публичный профиль пользователя со статистикой
// и последними отзывами. Хеш пароля и email наружу не уходят.
func (h *HTTPHandler) GetUserProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := mux.Vars(r)["userId"]

	user, err := h.users.GetByID(ctx, userID)
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to retrieve profile")
		return
	}
	// Email не публичный
	user.Email = ""

	recent, err := h.reviewService.ListByUser(ctx, userID, store.ListReviewsParams{Page: 1, PageSize: 5})
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to retrieve profile")
		return
	}
	watchlist, err := h.relations.ListWatchlist(ctx, userID)
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to retrieve profile")
		return
	}
	followers, err := h.relations.GetFollowers(ctx, userID)
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to retrieve profile")
		return
	}
	following, err := h.relations.GetFollowing(ctx, userID)
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to retrieve profile")
		return
	}

	// Аутентифицированному зрителю сообщаем, подписан ли он на владельца профиля
	var isFollowing bool
	if viewerID := h.optionalRequesterID(r); viewerID != "" && viewerID != userID {
		isFollowing, err = h.relations.IsFollowing(ctx, viewerID, userID)
		if err != nil {
			h.respondServiceError(w, r, err, "Failed to retrieve profile")
			return
		}
	}

	profile := &domain.UserProfile{
		User:           user,
		ReviewCount:    recent.TotalCount,
		WatchlistCount: len(watchlist),
		FollowersCount: len(followers),
		FollowingCount: len(following),
		IsFollowing:    isFollowing,
		RecentReviews:  recent.Reviews,
	}
	h.respondJSON(w, r, http.StatusOK, profile)
}

// GetUserReviews возвращает страницу отзывов пользователя.
func (h *HTTPHandler) GetUserReviews(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := mux.Vars(r)["userId"]

	page, limit := parsePagination(r.URL.Query())
	params := store.ListReviewsParams{
		Page:     page,
		PageSize: limit,
		SortBy:   r.URL.Query().Get("sort_by"),
	}

	reviewPage, err := h.reviewService.ListByUser(ctx, userID, params)
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to retrieve reviews")
		return
	}
	h.respondJSON(w, r, http.StatusOK, reviewPage)
}

// --- Watchlist текущего пользователя ---

// GetWatchlist возвращает watchlist текущего пользователя,
// последние добавленные — первыми.
func (h *HTTPHandler) GetWatchlist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _, ok := requesterIdentity(ctx)
	if !ok {
		h.respondError(w, r, http.StatusInternalServerError, "Error processing user identity")
		return
	}

	items, err := h.relations.ListWatchlist(ctx, userID)
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to retrieve watchlist")
		return
	}
	h.respondJSON(w, r, http.StatusOK, map[string]interface{}{"watchlist": items})
}

// AddToWatchlist добавляет фильм в watchlist текущего пользователя.
func (h *HTTPHandler) AddToWatchlist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _, ok := requesterIdentity(ctx)
	if !ok {
		h.respondError(w, r, http.StatusInternalServerError, "Error processing user identity")
		return
	}

	var req domain.AddToWatchlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	if err := h.validator.StructCtx(ctx, req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	item, err := h.relations.AddToWatchlist(ctx, userID, req.MovieID)
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to add movie to watchlist")
		return
	}
	h.respondJSON(w, r, http.StatusCreated, item)
}

// RemoveFromWatchlist убирает фильм из watchlist. Повторное удаление
// отвечает тем же 204.
func (h *HTTPHandler) RemoveFromWatchlist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _, ok := requesterIdentity(ctx)
	if !ok {
		h.respondError(w, r, http.StatusInternalServerError, "Error processing user identity")
		return
	}
	movieID := mux.Vars(r)["movieId"]

	if err := h.relations.RemoveFromWatchlist(ctx, userID, movieID); err != nil {
		h.respondServiceError(w, r, err, "Failed to remove movie from watchlist")
		return
	}
	h.respondJSON(w, r, http.StatusNoContent, nil)
}

// --- Подписки ---

// FollowUser подписывает текущего пользователя на другого.
func (h *HTTPHandler) FollowUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	followerID, _, ok := requesterIdentity(ctx)
	if !ok {
		h.respondError(w, r, http.StatusInternalServerError, "Error processing user identity")
		return
	}
	targetID := mux.Vars(r)["userId"]

	if err := h.relations.Follow(ctx, followerID, targetID); err != nil {
		h.respondServiceError(w, r, err, "Failed to follow user")
		return
	}
	h.logger.InfoContext(ctx, "Follow request processed", slog.String("followerID", followerID), slog.String("targetID", targetID))
	h.respondJSON(w, r, http.StatusCreated, map[string]string{"status": "following"})
}

// UnfollowUser отписывает текущего пользователя. Идемпотентно.
func (h *HTTPHandler) UnfollowUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	followerID, _, ok := requesterIdentity(ctx)
	if !ok {
		h.respondError(w, r, http.StatusInternalServerError, "Error processing user identity")
		return
	}
	targetID := mux.Vars(r)["userId"]

	if err := h.relations.Unfollow(ctx, followerID, targetID); err != nil {
		h.respondServiceError(w, r, err, "Failed to unfollow user")
		return
	}
	h.respondJSON(w, r, http.StatusNoContent, nil)
}

// GetFollowers возвращает подписчиков пользователя.
func (h *HTTPHandler) GetFollowers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := mux.Vars(r)["userId"]

	followers, err := h.relations.GetFollowers(ctx, userID)
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to retrieve followers")
		return
	}
	h.respondJSON(w, r, http.StatusOK, map[string]interface{}{"followers": followers})
}

// GetFollowing возвращает список подписок пользователя.
func (h *HTTPHandler) GetFollowing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := mux.Vars(r)["userId"]

	following, err := h.relations.GetFollowing(ctx, userID)
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to retrieve following")
		return
	}
	h.respondJSON(w, r, http.StatusOK, map[string]interface{}{"following": following})
}
