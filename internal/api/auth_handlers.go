package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/panjyar/Movie-Review-System/internal/domain"
	"github.com/panjyar/Movie-Review-System/internal/store"
	"github.com/panjyar/Movie-Review-System/pkg/auth"
)

// RegisterUser регистрирует нового пользователя. Роль всегда "user":
// первого администратора назначают напрямую в БД или через back-office.
func (h *HTTPHandler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	h.logger.InfoContext(ctx, "HTTP RegisterUser request received", slog.String("path", r.URL.Path))

	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "Failed to decode registration request body", slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	if err := h.validator.StructCtx(ctx, req); err != nil {
		h.logger.ErrorContext(ctx, "Registration request validation failed", slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to hash password", slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Error processing registration")
		return
	}

	newUser := &domain.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        strings.ToLower(req.Email),
		PasswordHash: hashedPassword,
		Role:         domain.RoleUser,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}

	if err := h.users.Create(ctx, newUser); err != nil {
		h.logger.ErrorContext(ctx, "Failed to create user in store", slog.String("error", err.Error()))
		if errors.Is(err, store.ErrUserAlreadyExists) {
			h.respondError(w, r, http.StatusConflict, "User with this email or username already exists")
		} else {
			h.respondError(w, r, http.StatusInternalServerError, "Failed to register user")
		}
		return
	}

	h.logger.InfoContext(ctx, "User registered successfully", slog.String("userID", newUser.ID), slog.String("username", newUser.Username))
	h.respondJSON(w, r, http.StatusCreated, newUser)
}

// LoginUser аутентифицирует пользователя по email и паролю и выдает JWT.
func (h *HTTPHandler) LoginUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	h.logger.InfoContext(ctx, "HTTP LoginUser request received", slog.String("path", r.URL.Path))

	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "Failed to decode login request body", slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	if err := h.validator.StructCtx(ctx, req); err != nil {
		h.logger.ErrorContext(ctx, "Login request validation failed", slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	user, err := h.users.GetByEmail(ctx, strings.ToLower(req.Email))
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			h.logger.WarnContext(ctx, "Login attempt for non-existent email", slog.String("email", req.Email))
			h.respondError(w, r, http.StatusUnauthorized, "Invalid email or password")
		} else {
			h.logger.ErrorContext(ctx, "Failed to get user by email from store", slog.String("error", err.Error()))
			h.respondError(w, r, http.StatusInternalServerError, "Login failed")
		}
		return
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		h.logger.WarnContext(ctx, "Invalid password attempt", slog.String("userID", user.ID))
		h.respondError(w, r, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	tokenString, err := h.tokenManager.Generate(user.ID, user.Role)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to generate JWT token", slog.String("userID", user.ID), slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Login failed (token generation)")
		return
	}

	h.logger.InfoContext(ctx, "User logged in successfully", slog.String("userID", user.ID))
	h.respondJSON(w, r, http.StatusOK, domain.LoginResponse{User: user, Token: tokenString})
}

// GetCurrentUser возвращает учетную запись текущего пользователя.
func (h *HTTPHandler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _, ok := requesterIdentity(ctx)
	if !ok {
		h.logger.ErrorContext(ctx, "UserID not found in request context after AuthMiddleware")
		h.respondError(w, r, http.StatusInternalServerError, "Error processing user identity")
		return
	}

	user, err := h.users.GetByID(ctx, userID)
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to retrieve user")
		return
	}
	h.respondJSON(w, r, http.StatusOK, user)
}

// UpdateCurrentUser обновляет профиль текущего пользователя.
// Обновляются только переданные поля.
func (h *HTTPHandler) UpdateCurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _, ok := requesterIdentity(ctx)
	if !ok {
		h.logger.ErrorContext(ctx, "UserID not found in request context for update profile")
		h.respondError(w, r, http.StatusInternalServerError, "Error processing user identity")
		return
	}
	h.logger.InfoContext(ctx, "HTTP UpdateCurrentUser request received", slog.String("userID", userID))

	var req domain.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "Failed to decode update profile request body", slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	// Валидируются только переданные поля: в запросе указатели
	if err := h.validator.StructCtx(ctx, req); err != nil {
		h.logger.ErrorContext(ctx, "Update profile request validation failed", slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	currentUser, err := h.users.GetByID(ctx, userID)
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to update profile")
		return
	}

	updated := false
	if req.Username != nil {
		currentUser.Username = *req.Username
		updated = true
	}
	if req.Email != nil {
		currentUser.Email = strings.ToLower(*req.Email)
		updated = true
	}
	if req.Bio != nil {
		currentUser.Bio = *req.Bio
		updated = true
	}
	if req.ProfilePicture != nil {
		currentUser.ProfilePicture = *req.ProfilePicture
		updated = true
	}

	if updated {
		currentUser.UpdatedAt = time.Now().UTC()
		if err := h.users.Update(ctx, currentUser); err != nil {
			if errors.Is(err, store.ErrUserAlreadyExists) {
				h.respondError(w, r, http.StatusConflict, "Username or email already in use")
			} else {
				h.respondServiceError(w, r, err, "Failed to update profile")
			}
			return
		}
		h.logger.InfoContext(ctx, "User profile updated", slog.String("userID", userID))
	}

	h.respondJSON(w, r, http.StatusOK, currentUser)
}
