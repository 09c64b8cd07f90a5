package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/panjyar/Movie-Review-System/internal/domain"
	"github.com/panjyar/Movie-Review-System/internal/store"
)

// ContextKey используется для ключей в контексте запроса.
type ContextKey string

const (
	// UserIDKey ключ для хранения ID пользователя в контексте.
	UserIDKey ContextKey = "userID"
	// UserRoleKey ключ для хранения роли пользователя в контексте.
	UserRoleKey ContextKey = "userRole"
)

// AuthMiddleware проверяет JWT токен из заголовка Authorization.
// Роль берется не из токена, а из хранилища: выданный ранее токен не должен
// сохранять админские права после понижения роли или работать после удаления
// учетной записи.
func (h *HTTPHandler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			h.logger.WarnContext(r.Context(), "Authorization header missing")
			h.respondError(w, r, http.StatusUnauthorized, "Authorization header required")
			return
		}

		// Ожидаем токен в формате "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			h.logger.WarnContext(r.Context(), "Invalid Authorization header format", slog.String("header", authHeader))
			h.respondError(w, r, http.StatusUnauthorized, "Invalid Authorization header format")
			return
		}
		tokenString := parts[1]

		claims, err := h.tokenManager.Validate(tokenString)
		if err != nil {
			h.logger.WarnContext(r.Context(), "Invalid or expired token", slog.String("error", err.Error()))
			h.respondError(w, r, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		user, err := h.users.GetByID(r.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, store.ErrUserNotFound) {
				h.logger.WarnContext(r.Context(), "Token refers to deleted user", slog.String("userID", claims.UserID))
				h.respondError(w, r, http.StatusUnauthorized, "Account no longer exists")
				return
			}
			h.logger.ErrorContext(r.Context(), "Failed to load user for token", slog.String("userID", claims.UserID), slog.String("error", err.Error()))
			h.respondError(w, r, http.StatusInternalServerError, "Failed to authenticate request")
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, user.ID)
		ctx = context.WithValue(ctx, UserRoleKey, user.Role)

		h.logger.DebugContext(ctx, "Token validated successfully", slog.String("userID", user.ID), slog.String("role", user.Role))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AdminMiddleware пропускает дальше только администраторов.
// Должен стоять после AuthMiddleware.
func (h *HTTPHandler) AdminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, ok := r.Context().Value(UserRoleKey).(string)
		if !ok || role != domain.RoleAdmin {
			h.logger.WarnContext(r.Context(), "Non-admin attempted to access admin endpoint", slog.String("path", r.URL.Path))
			h.respondError(w, r, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// optionalRequesterID достает ID пользователя из Bearer-токена на публичных
// эндпоинтах. Отсутствующий или невалидный токен — не ошибка: запрос анонимный.
func (h *HTTPHandler) optionalRequesterID(r *http.Request) string {
	parts := strings.Split(r.Header.Get("Authorization"), " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	claims, err := h.tokenManager.Validate(parts[1])
	if err != nil {
		return ""
	}
	return claims.UserID
}

// requesterIdentity достает ID и роль текущего пользователя из контекста.
func requesterIdentity(ctx context.Context) (userID, role string, ok bool) {
	userID, okID := ctx.Value(UserIDKey).(string)
	role, okRole := ctx.Value(UserRoleKey).(string)
	return userID, role, okID && okRole && userID != ""
}
