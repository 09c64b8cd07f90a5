package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/panjyar/Movie-Review-System/internal/domain"
)

// CreateReview создает отзыв текущего пользователя на фильм.
// Повторный отзыв на тот же фильм отклоняется с 409.
func (h *HTTPHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _, ok := requesterIdentity(ctx)
	if !ok {
		h.respondError(w, r, http.StatusInternalServerError, "Error processing user identity")
		return
	}
	movieID := mux.Vars(r)["movieId"]
	h.logger.InfoContext(ctx, "User attempting to create review", slog.String("userID", userID), slog.String("movieID", movieID))

	var req domain.CreateReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "Failed to decode request body for review", slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	if err := h.validator.StructCtx(ctx, req); err != nil {
		h.logger.ErrorContext(ctx, "Review request validation failed", slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	review, err := h.reviewService.Submit(ctx, userID, movieID, req)
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to create review")
		return
	}
	h.respondJSON(w, r, http.StatusCreated, review)
}

// GetReview возвращает отзыв с автором и кратким описанием фильма.
func (h *HTTPHandler) GetReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reviewID := mux.Vars(r)["reviewId"]

	review, err := h.reviewService.Get(ctx, reviewID)
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to retrieve review")
		return
	}
	h.respondJSON(w, r, http.StatusOK, review)
}

// UpdateReview обновляет отзыв. Разрешено только автору.
func (h *HTTPHandler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _, ok := requesterIdentity(ctx)
	if !ok {
		h.respondError(w, r, http.StatusInternalServerError, "Error processing user identity")
		return
	}
	reviewID := mux.Vars(r)["reviewId"]

	var req domain.UpdateReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	if err := h.validator.StructCtx(ctx, req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	review, err := h.reviewService.Edit(ctx, reviewID, userID, req)
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to update review")
		return
	}
	h.respondJSON(w, r, http.StatusOK, review)
}

// DeleteReview удаляет отзыв. Разрешено автору и администратору.
func (h *HTTPHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, role, ok := requesterIdentity(ctx)
	if !ok {
		h.respondError(w, r, http.StatusInternalServerError, "Error processing user identity")
		return
	}
	reviewID := mux.Vars(r)["reviewId"]

	if err := h.reviewService.Delete(ctx, reviewID, userID, role); err != nil {
		h.respondServiceError(w, r, err, "Failed to delete review")
		return
	}
	h.respondJSON(w, r, http.StatusNoContent, nil)
}

// LikeReview переключает лайк текущего пользователя на отзыве.
func (h *HTTPHandler) LikeReview(w http.ResponseWriter, r *http.Request) {
	h.voteOnReview(w, r, false)
}

// DislikeReview переключает дизлайк текущего пользователя на отзыве.
func (h *HTTPHandler) DislikeReview(w http.ResponseWriter, r *http.Request) {
	h.voteOnReview(w, r, true)
}

func (h *HTTPHandler) voteOnReview(w http.ResponseWriter, r *http.Request, dislike bool) {
	ctx := r.Context()
	userID, _, ok := requesterIdentity(ctx)
	if !ok {
		h.respondError(w, r, http.StatusInternalServerError, "Error processing user identity")
		return
	}
	reviewID := mux.Vars(r)["reviewId"]

	var result *domain.VoteResult
	var err error
	if dislike {
		result, err = h.reviewService.ToggleDislike(ctx, reviewID, userID)
	} else {
		result, err = h.reviewService.ToggleLike(ctx, reviewID, userID)
	}
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to register vote")
		return
	}
	h.respondJSON(w, r, http.StatusOK, result)
}

// GetMovieAggregatedRating возвращает сырой агрегат рейтинга фильма,
// посчитанный напрямую по отзывам.
func (h *HTTPHandler) GetMovieAggregatedRating(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	movieID := mux.Vars(r)["movieId"]

	agg, err := h.reviewService.AggregatedRating(ctx, movieID)
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to retrieve rating")
		return
	}
	h.respondJSON(w, r, http.StatusOK, agg)
}
