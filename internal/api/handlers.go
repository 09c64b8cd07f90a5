package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/panjyar/Movie-Review-System/internal/service"
	"github.com/panjyar/Movie-Review-System/internal/store"
	"github.com/panjyar/Movie-Review-System/pkg/auth"
)

// HTTPHandler объединяет все HTTP-обработчики приложения.
type HTTPHandler struct {
	users         store.UserStore
	reviewService *service.ReviewService
	catalog       *service.CatalogService
	relations     *service.RelationshipService
	admin         *service.AdminService
	logger        *slog.Logger
	validator     *validator.Validate
	tokenManager  auth.TokenManager
}

// NewHTTPHandler создает новый экземпляр HTTPHandler.
func NewHTTPHandler(
	users store.UserStore,
	reviewService *service.ReviewService,
	catalog *service.CatalogService,
	relations *service.RelationshipService,
	admin *service.AdminService,
	logger *slog.Logger,
	v *validator.Validate,
	tm auth.TokenManager,
) *HTTPHandler {
	return &HTTPHandler{
		users:         users,
		reviewService: reviewService,
		catalog:       catalog,
		relations:     relations,
		admin:         admin,
		logger:        logger,
		validator:     v,
		tokenManager:  tm,
	}
}

// --- Вспомогательные функции ---

func (h *HTTPHandler) respondJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			h.logger.ErrorContext(r.Context(), "Failed to encode JSON response", slog.String("error", err.Error()), slog.String("path", r.URL.Path))
		}
	}
}

func (h *HTTPHandler) respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.respondJSON(w, r, status, map[string]string{"error": message})
}

// respondServiceError переводит ошибки сервисного слоя в HTTP-статусы.
// Для неизвестных ошибок клиенту уходит fallback, детали остаются в логе.
func (h *HTTPHandler) respondServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrSelfFollow),
		errors.Is(err, service.ErrSelfDelete):
		h.respondError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrForbidden):
		h.respondError(w, r, http.StatusForbidden, "Access denied")
	case errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrMovieNotFound),
		errors.Is(err, store.ErrReviewNotFound):
		h.respondError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrDuplicateReview),
		errors.Is(err, store.ErrUserAlreadyExists),
		errors.Is(err, store.ErrAlreadyInWatchlist),
		errors.Is(err, store.ErrAlreadyFollowing):
		h.respondError(w, r, http.StatusConflict, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "Unhandled service error",
			slog.String("error", err.Error()), slog.String("path", r.URL.Path))
		h.respondError(w, r, http.StatusInternalServerError, fallback)
	}
}

// parsePagination читает page и limit из query-параметров.
func parsePagination(query url.Values) (page, limit int) {
	page, _ = strconv.Atoi(query.Get("page"))
	if page <= 0 {
		page = 1
	}
	limit, _ = strconv.Atoi(query.Get("limit"))
	if limit <= 0 {
		limit = 10
	} else if limit > 50 {
		limit = 50
	}
	return page, limit
}
