package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewHTTPRouter создает и настраивает HTTP маршрутизатор приложения.
func NewHTTPRouter(h *HTTPHandler) *mux.Router {
	router := mux.NewRouter()

	apiRouter := router.PathPrefix("/api").Subrouter()

	// Публичные эндпоинты (не требуют аутентификации)
	apiRouter.HandleFunc("/users/register", h.RegisterUser).Methods(http.MethodPost)
	apiRouter.HandleFunc("/users/login", h.LoginUser).Methods(http.MethodPost)

	apiRouter.HandleFunc("/movies", h.ListMovies).Methods(http.MethodGet)
	apiRouter.HandleFunc("/movies/{movieId}", h.GetMovie).Methods(http.MethodGet)
	apiRouter.HandleFunc("/movies/{movieId}/reviews", h.GetMovieReviews).Methods(http.MethodGet)
	apiRouter.HandleFunc("/movies/{movieId}/rating", h.GetMovieAggregatedRating).Methods(http.MethodGet)
	apiRouter.HandleFunc("/reviews/{reviewId}", h.GetReview).Methods(http.MethodGet)

	apiRouter.HandleFunc("/users/{userId}/profile", h.GetUserProfile).Methods(http.MethodGet)
	apiRouter.HandleFunc("/users/{userId}/reviews", h.GetUserReviews).Methods(http.MethodGet)
	apiRouter.HandleFunc("/users/{userId}/followers", h.GetFollowers).Methods(http.MethodGet)
	apiRouter.HandleFunc("/users/{userId}/following", h.GetFollowing).Methods(http.MethodGet)

	// Эндпоинты, требующие аутентификации
	meRouter := apiRouter.PathPrefix("/users/me").Subrouter()
	meRouter.Use(h.AuthMiddleware)
	meRouter.HandleFunc("", h.GetCurrentUser).Methods(http.MethodGet)
	meRouter.HandleFunc("", h.UpdateCurrentUser).Methods(http.MethodPut)
	meRouter.HandleFunc("/watchlist", h.GetWatchlist).Methods(http.MethodGet)
	meRouter.HandleFunc("/watchlist", h.AddToWatchlist).Methods(http.MethodPost)
	meRouter.HandleFunc("/watchlist/{movieId}", h.RemoveFromWatchlist).Methods(http.MethodDelete)

	followRouter := apiRouter.PathPrefix("/users/{userId}/follow").Subrouter()
	followRouter.Use(h.AuthMiddleware)
	followRouter.HandleFunc("", h.FollowUser).Methods(http.MethodPost)
	followRouter.HandleFunc("", h.UnfollowUser).Methods(http.MethodDelete)

	reviewWriteRouter := apiRouter.PathPrefix("").Subrouter()
	reviewWriteRouter.Use(h.AuthMiddleware)
	reviewWriteRouter.HandleFunc("/movies/{movieId}/reviews", h.CreateReview).Methods(http.MethodPost)
	reviewWriteRouter.HandleFunc("/reviews/{reviewId}", h.UpdateReview).Methods(http.MethodPut)
	reviewWriteRouter.HandleFunc("/reviews/{reviewId}", h.DeleteReview).Methods(http.MethodDelete)
	reviewWriteRouter.HandleFunc("/reviews/{reviewId}/like", h.LikeReview).Methods(http.MethodPost)
	reviewWriteRouter.HandleFunc("/reviews/{reviewId}/dislike", h.DislikeReview).Methods(http.MethodPost)

	// Back-office: аутентификация + проверка роли администратора
	adminRouter := apiRouter.PathPrefix("/admin").Subrouter()
	adminRouter.Use(h.AuthMiddleware, h.AdminMiddleware)
	adminRouter.HandleFunc("/stats", h.AdminGetStats).Methods(http.MethodGet)

	adminRouter.HandleFunc("/users", h.AdminListUsers).Methods(http.MethodGet)
	adminRouter.HandleFunc("/users/bulk-delete", h.AdminBulkDeleteUsers).Methods(http.MethodPost)
	adminRouter.HandleFunc("/users/{userId}/role", h.AdminSetUserRole).Methods(http.MethodPut)
	adminRouter.HandleFunc("/users/{userId}", h.AdminDeleteUser).Methods(http.MethodDelete)

	adminRouter.HandleFunc("/movies", h.AdminListMovies).Methods(http.MethodGet)
	adminRouter.HandleFunc("/movies", h.AdminCreateMovie).Methods(http.MethodPost)
	adminRouter.HandleFunc("/movies/import", h.AdminImportMovie).Methods(http.MethodPost)
	adminRouter.HandleFunc("/movies/bulk-delete", h.AdminBulkDeleteMovies).Methods(http.MethodPost)
	adminRouter.HandleFunc("/movies/{movieId}", h.AdminUpdateMovie).Methods(http.MethodPut)
	adminRouter.HandleFunc("/movies/{movieId}", h.AdminDeleteMovie).Methods(http.MethodDelete)

	adminRouter.HandleFunc("/reviews", h.AdminListReviews).Methods(http.MethodGet)
	adminRouter.HandleFunc("/reviews/bulk-delete", h.AdminBulkDeleteReviews).Methods(http.MethodPost)

	return router
}
