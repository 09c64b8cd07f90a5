package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/panjyar/Movie-Review-System/internal/domain"
	"github.com/panjyar/Movie-Review-System/internal/service"
	"github.com/panjyar/Movie-Review-System/internal/store"
	"github.com/panjyar/Movie-Review-System/pkg/auth"
)

type apiFixture struct {
	router *mux.Router
	users  *store.MockUserStore
	movies *store.MockMovieStore
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	validate := validator.New()

	users := store.NewMockUserStore()
	movies := store.NewMockMovieStore()
	reviews := store.NewMockReviewStore()

	tokenManager, err := auth.NewTokenManager("test-secret-key-long-enough-for-hs256", time.Hour)
	require.NoError(t, err)

	reviewService := service.NewReviewService(reviews, movies, users, logger)
	catalogService := service.NewCatalogService(movies, reviews, validate, logger)
	relationshipService := service.NewRelationshipService(users, movies, logger)
	adminService := service.NewAdminService(users, movies, reviews, reviewService, logger)

	handler := NewHTTPHandler(users, reviewService, catalogService, relationshipService, adminService, logger, validate, tokenManager)
	return &apiFixture{
		router: NewHTTPRouter(handler),
		users:  users,
		movies: movies,
	}
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

// register + login, возвращает токен
func (f *apiFixture) registerAndLogin(t *testing.T, username string) string {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/users/register", "", domain.RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "password123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/users/login", "", domain.LoginRequest{
		Email:    username + "@example.com",
		Password: "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp domain.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func (f *apiFixture) promoteToAdmin(t *testing.T, username string) {
	t.Helper()
	user, err := f.users.GetByUsername(context.Background(), username)
	require.NoError(t, err)
	require.NoError(t, f.users.UpdateRole(context.Background(), user.ID, domain.RoleAdmin))
}

func (f *apiFixture) seedMovie(t *testing.T, title string) *domain.Movie {
	t.Helper()
	movie := &domain.Movie{
		ID:          uuid.NewString(),
		Title:       title,
		Overview:    "Overview for " + title,
		ReleaseDate: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	require.NoError(t, f.movies.Create(context.Background(), movie))
	return movie
}

func TestRegisterDuplicateConflict(t *testing.T) {
	f := newAPIFixture(t)
	f.registerAndLogin(t, "duplicate")

	rec := f.do(t, http.MethodPost, "/api/users/register", "", domain.RegisterRequest{
		Username: "duplicate",
		Email:    "duplicate@example.com",
		Password: "password123",
	})
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	f := newAPIFixture(t)
	f.registerAndLogin(t, "careful")

	rec := f.do(t, http.MethodPost, "/api/users/login", "", domain.LoginRequest{
		Email:    "careful@example.com",
		Password: "not-the-password",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestReviewFlowOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	token := f.registerAndLogin(t, "reviewer")
	movie := f.seedMovie(t, "Blade Runner")

	reviewBody := domain.CreateReviewRequest{
		Rating:  5,
		Title:   "A classic",
		Content: "Long enough review content to pass validation.",
	}

	// Без токена — 401
	rec := f.do(t, http.MethodPost, "/api/movies/"+movie.ID+"/reviews", "", reviewBody)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Создание отзыва
	rec = f.do(t, http.MethodPost, "/api/movies/"+movie.ID+"/reviews", token, reviewBody)
	require.Equal(t, http.StatusCreated, rec.Code)

	// Повторный отзыв того же пользователя — 409
	rec = f.do(t, http.MethodPost, "/api/movies/"+movie.ID+"/reviews", token, reviewBody)
	require.Equal(t, http.StatusConflict, rec.Code)

	// Отзыв на несуществующий фильм — 404
	rec = f.do(t, http.MethodPost, "/api/movies/"+uuid.NewString()+"/reviews", token, reviewBody)
	require.Equal(t, http.StatusNotFound, rec.Code)

	// Карточка фильма с обновленными агрегатами
	rec = f.do(t, http.MethodGet, "/api/movies/"+movie.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.Movie
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, 1, got.TotalReviews)
	require.InDelta(t, 5.0, got.AverageRating, 0.001)
}

func TestWatchlistOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	token := f.registerAndLogin(t, "watcher")
	movie := f.seedMovie(t, "Stalker")

	rec := f.do(t, http.MethodPost, "/api/users/me/watchlist", token, domain.AddToWatchlistRequest{MovieID: movie.ID})
	require.Equal(t, http.StatusCreated, rec.Code)

	// Повторное добавление — 409
	rec = f.do(t, http.MethodPost, "/api/users/me/watchlist", token, domain.AddToWatchlistRequest{MovieID: movie.ID})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/users/me/watchlist", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listResp struct {
		Watchlist []*domain.WatchlistItem `json:"watchlist"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listResp))
	require.Len(t, listResp.Watchlist, 1)
	require.Equal(t, movie.ID, listResp.Watchlist[0].Movie.ID)

	// Удаление идемпотентно
	rec = f.do(t, http.MethodDelete, "/api/users/me/watchlist/"+movie.ID, token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(t, http.MethodDelete, "/api/users/me/watchlist/"+movie.ID, token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestProfileReportsFollowingState(t *testing.T) {
	f := newAPIFixture(t)
	followerToken := f.registerAndLogin(t, "fan")
	f.registerAndLogin(t, "idol")
	idol, err := f.users.GetByUsername(context.Background(), "idol")
	require.NoError(t, err)

	rec := f.do(t, http.MethodPost, "/api/users/"+idol.ID+"/follow", followerToken, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	// Анонимный запрос флага не получает
	rec = f.do(t, http.MethodGet, "/api/users/"+idol.ID+"/profile", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var profile domain.UserProfile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	require.False(t, profile.IsFollowing)
	require.Equal(t, 1, profile.FollowersCount)

	// Подписчик видит свою подписку в профиле
	rec = f.do(t, http.MethodGet, "/api/users/"+idol.ID+"/profile", followerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	require.True(t, profile.IsFollowing)
}

func TestAdminEndpointsRequireAdminRole(t *testing.T) {
	f := newAPIFixture(t)
	userToken := f.registerAndLogin(t, "mortal")

	rec := f.do(t, http.MethodGet, "/api/admin/stats", userToken, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	f.promoteToAdmin(t, "mortal")
	// Роль читается из хранилища при каждом запросе, новый токен не нужен
	rec = f.do(t, http.MethodGet, "/api/admin/stats", userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminMovieLifecycleOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	adminToken := f.registerAndLogin(t, "boss")
	f.promoteToAdmin(t, "boss")

	rec := f.do(t, http.MethodPost, "/api/admin/movies", adminToken, domain.CreateMovieRequest{
		Title:       "New Release",
		Overview:    "Something interesting enough happens.",
		ReleaseDate: "2024-05-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created domain.Movie
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	newTitle := "Renamed Release"
	rec = f.do(t, http.MethodPut, "/api/admin/movies/"+created.ID, adminToken, domain.UpdateMovieRequest{Title: &newTitle})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/admin/movies/"+created.ID, adminToken, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/movies/"+created.ID, "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
